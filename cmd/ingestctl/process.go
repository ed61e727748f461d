package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"batchingest/internal/adapters/storage"
	"batchingest/internal/config/di"
	"batchingest/internal/ports"
)

// processCommand runs files from the local disk through the same pipeline
// the server uses and prints the batch summary.
func processCommand(app *cliInstance) *cobra.Command {
	var (
		root     string
		simulate bool
		ledger   bool
	)

	cmd := &cobra.Command{
		Use:     "process <file>...",
		Short:   "Process local CSV files",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: preRun(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			local, err := storage.NewLocalStorage(root)
			if err != nil {
				return err
			}
			refs, err := refsFor(root, args)
			if err != nil {
				return err
			}

			cfg := *app.cfg
			if simulate {
				cfg.UseRealBroker = false
			}
			container, err := di.Build(ctx, &cfg, di.Options{Storage: local, SkipLedger: !ledger})
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer func() { _ = container.Shutdown(ctx) }()

			summary := container.BatchService.ProcessFiles(ctx, refs)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if !summary.Success {
				return fmt.Errorf("%d of %d files failed", summary.FailedFiles, summary.ProcessedFiles)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Directory the file paths are resolved against")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Use the in-memory broker instead of Kafka")
	cmd.Flags().BoolVar(&ledger, "ledger", false, "Record runs in DATABASE_URL")

	return cmd
}

// refsFor maps paths to refs whose bucket is the directory below root.
func refsFor(root string, paths []string) ([]ports.FileRef, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	refs := make([]ports.FileRef, 0, len(paths))
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(absRoot, p)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ports.FileRef{
			Bucket: filepath.ToSlash(filepath.Dir(rel)),
			Object: filepath.Base(rel),
		})
	}
	return refs, nil
}
