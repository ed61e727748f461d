package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"batchingest/internal/domain/schema"
	"batchingest/internal/samples"
)

func generateCommand() *cobra.Command {
	var (
		recordType string
		rows       int
		invalid    int
		out        string
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a sample CSV file of one record type",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := schema.ParseRecordType(recordType)
			if err != nil {
				return err
			}
			registry, err := schema.NewRegistry()
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return samples.NewGenerator(registry, seed).WriteCSV(w, t, rows, invalid)
		},
	}

	cmd.Flags().StringVarP(&recordType, "type", "t", "transaction", "Record type: transaction, shop or product")
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of valid rows")
	cmd.Flags().IntVar(&invalid, "invalid", 0, "Number of rows with a defect")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed, 0 picks one")

	return cmd
}
