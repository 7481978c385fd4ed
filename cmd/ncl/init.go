package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/notaclin/internal/config"
)

var (
	forceDownload bool
	skipRuntime   bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "re-download the ONNX runtime even if one is installed")
	initCmd.Flags().BoolVar(&skipRuntime, "skip-runtime", false, "only write the starter config")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config and install the ONNX runtime",
	Long: `Prepare this machine for notaclind.

init writes ~/.config/notaclin/config.yaml with the default settings,
unless the file already exists, and downloads the ONNX runtime library
used by the onnx and fastembed embedding providers to
~/.config/notaclin/lib/. ONNX_PATH, when set, points at an existing
runtime instead.

Examples:
  ncl init
  ncl init --force
  ncl init --skip-runtime`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	path, err := config.WriteStarter()
	switch {
	case errors.Is(err, config.ErrConfigExists):
		fmt.Fprintf(out, "Config already present at %s\n", path)
	case err != nil:
		return fmt.Errorf("writing starter config: %w", err)
	default:
		fmt.Fprintf(out, "Wrote starter config to %s\n", path)
	}

	if skipRuntime {
		return nil
	}
	return installRuntime(cmd, forceDownload)
}
