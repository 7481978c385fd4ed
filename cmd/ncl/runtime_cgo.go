//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/notaclin/internal/embeddings"
)

const cgoEnabled = true

func installRuntime(cmd *cobra.Command, force bool) error {
	out := cmd.OutOrStdout()
	if lib := embeddings.GetONNXLibraryPath(); lib != "" && !force {
		fmt.Fprintf(out, "ONNX runtime already installed at %s (use --force to re-download)\n", lib)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintf(out, "Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)
	if err := embeddings.DownloadONNXRuntime(ctx, ""); err != nil {
		return fmt.Errorf("downloading ONNX runtime: %w", err)
	}

	lib := embeddings.GetONNXLibraryPath()
	if lib == "" {
		return fmt.Errorf("ONNX runtime downloaded but not found")
	}
	fmt.Fprintf(out, "Installed ONNX runtime at %s\n", lib)
	return nil
}
