package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Rectify a document photo or render a PDF to a fixed size",
	Long: `Normalize locates the document corners in an image, warps the page onto a
width x height rectangle and writes it as PNG (or JPEG for .jpg output).
PDFs are rendered at 216 dpi and resized.

Examples:
  docnorm normalize photo.jpg --width 1000 --height 630 -o card.png
  docnorm normalize scan.pdf --width 1240 --height 1754 -o page.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		output, _ := cmd.Flags().GetString("output")
		quality, _ := cmd.Flags().GetInt("quality")
		if width <= 0 || height <= 0 {
			return fmt.Errorf("--width and --height must be positive, got %dx%d", width, height)
		}
		if output == "" {
			output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_normalized.png"
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		normalizer, release, err := buildNormalizer(GetConfig())
		if err != nil {
			return err
		}
		defer release()

		out, err := normalizer.Normalize(cmd.Context(), data, documentType(args[0], data), width, height)
		if err != nil {
			return err
		}

		encoded, err := encodeRaster(out, output, quality)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, encoded, 0o644); err != nil { //nolint:gosec // output image is not sensitive
			return fmt.Errorf("write output: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func encodeRaster(r *raster.Raster, path string, quality int) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return raster.EncodeJPEG(r, quality)
	default:
		return raster.EncodePNG(r)
	}
}

func init() {
	normalizeCmd.Flags().Int("width", 0, "target width in pixels")
	normalizeCmd.Flags().Int("height", 0, "target height in pixels")
	normalizeCmd.Flags().StringP("output", "o", "", "output image (default <input>_normalized.png)")
	normalizeCmd.Flags().Int("quality", 92, "JPEG quality when writing .jpg")
	rootCmd.AddCommand(normalizeCmd)
}
