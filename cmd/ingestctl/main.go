package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"batchingest/internal/config"
	logger "batchingest/internal/shared/log"
)

// CLI wraps the root command of ingestctl.
type CLI struct {
	cmd *cobra.Command
}

// cliInstance carries state shared by subcommands after preRun.
type cliInstance struct {
	cfg *config.Config
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		fmt.Fprintln(os.Stderr, "fatal:", rec)
		os.Exit(1)
	}
}

func preRun(app *cliInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		// stdout carries the command output.
		logger.SetOutput(os.Stderr, cfg.LogLevel, "console")
		app.cfg = cfg
		return nil
	}
}

func NewCLI() *CLI {
	app := &cliInstance{}

	rootCmd := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Validate and publish CSV batch files from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(processCommand(app))
	rootCmd.AddCommand(generateCommand())

	return &CLI{cmd: rootCmd}
}

func (c CLI) execute() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	NewCLI().execute()
}
