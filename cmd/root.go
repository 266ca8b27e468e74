// =============================================================================
// Membership Importer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (mess-import)
//   ├── importCmd   (mess-import import <workbook>)
//   ├── scheduleCmd (mess-import schedule <workbook>)
//   └── versionCmd  (mess-import version)
//
// The root command owns the global flags and builds the configuration and
// logger shared by the subcommands.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/mess-import/internal/config"
	"github.com/ginjaninja78/mess-import/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "mess-import",
	Short: "Membership Importer - Load legacy membership spreadsheets into the record store",
	Long: `Membership Importer reads the legacy membership and scheduling
spreadsheets and loads them into the record store.

Key Features:
  - Fixed column layouts per format version
  - Lenient field parsing: bad values degrade instead of failing the row
  - Account aggregation across primary, supplemental and status rows
  - One atomic commit per run, or a dry run against an in-memory store

Example Usage:
  mess-import import members.xlsx             # Import the membership sheet
  mess-import import members.csv --dry-run    # Check a CSV export without writing
  mess-import schedule schedule.xlsx          # Import jobs and shifts`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the command context, so a run stopped before its commit writes
// nothing.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (defaults apply when it is missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadRuntime loads the configuration and builds the logger for a command.
func loadRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	log, err := logger.New(cfg.LogMode, level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	log.Debug("Configuration loaded",
		"config", cfgFile,
		"driver", cfg.Database.Driver,
		"format_version", cfg.FormatVersion)
	return cfg, log, nil
}
