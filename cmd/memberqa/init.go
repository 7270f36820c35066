//go:build cgo

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/embeddings"
)

var forceDownload bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// initCmd downloads the ONNX runtime used by the fastembed provider
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Download the ONNX runtime for local embeddings",
	Long: `Download the ONNX runtime library required for local embeddings with
FastEmbed. The library is installed to:
  ~/.config/memberqa/lib/

If ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  # Download the ONNX runtime
  memberqa init

  # Force re-download even if already installed
  memberqa init --force`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	if !forceDownload {
		if path := embeddings.GetONNXLibraryPath(); path != "" {
			cmd.Printf("ONNX runtime already installed at: %s\n", path)
			cmd.Println("Use --force to re-download.")
			return nil
		}
	}

	cmd.Printf("Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)
	if err := embeddings.DownloadONNXRuntime(cmd.Context(), ""); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embeddings.GetONNXLibraryPath()
	if path == "" {
		return fmt.Errorf("download completed but library not found")
	}
	cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
	return nil
}
