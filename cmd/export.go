package cmd

import (
	"fmt"
	"os"

	"image-metadata-app/internal/infra/archive"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Writes every record and its image into an HDF5 archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return fmt.Errorf("failed to get out: %w", err)
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		data, err := a.store.Export(cmd.Context())
		if err != nil {
			return err
		}

		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		a.logger.Info("archive written", zap.String("path", out), zap.Int("bytes", len(data)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", archive.FileName, "Path of the archive to write")
}
