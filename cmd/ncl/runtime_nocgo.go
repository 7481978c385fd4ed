//go:build !cgo

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const cgoEnabled = false

func installRuntime(cmd *cobra.Command, _ bool) error {
	fmt.Fprintln(cmd.OutOrStdout(), "Built without cgo: skipping the ONNX runtime, use the tei or openai provider.")
	return nil
}
