package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/ocr"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Normalize a document and recognize its layout fields",
	Long: `Extract normalizes the document to the layout's size, crops every field and
runs the crops through each requested engine in order.

The layout is a JSON or YAML file:

  name: id-card
  width: 1000
  height: 630
  fields:
    - name: surname
      upper_left: [320, 110]
      lower_right: [720, 160]
    - name: address
      upper_left: [320, 400]
      lower_right: [900, 520]
      is_multiline: true

Examples:
  docnorm extract photo.jpg --layout id-card.yaml
  docnorm extract scan.pdf --layout id-card.json --engines tesseract,claude --lang de --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		layoutPath, _ := cmd.Flags().GetString("layout")
		format, _ := cmd.Flags().GetString("format")
		savePath, _ := cmd.Flags().GetString("save-normalized")

		engineNames := splitEngines(cfg.OCR.DefaultEngine)
		if cmd.Flags().Changed("engines") {
			list, _ := cmd.Flags().GetString("engines")
			engineNames = splitEngines(list)
		}
		lang := cfg.OCR.DefaultLang
		if cmd.Flags().Changed("lang") {
			lang, _ = cmd.Flags().GetString("lang")
		}

		layout, err := fields.LoadLayout(layoutPath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		dispatcher, err := buildDispatcher(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if err := dispatcher.Registry().Check(engineNames...); err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(dispatcher.Registry().Names(), ", "))
		}

		normalizer, release, err := buildNormalizer(cfg)
		if err != nil {
			return err
		}
		defer release()

		width, height := layout.Dimensions()
		normalized, err := normalizer.Normalize(cmd.Context(), data, documentType(args[0], data), width, height)
		if err != nil {
			return err
		}
		if savePath != "" {
			encoded, err := encodeRaster(normalized, savePath, 92)
			if err != nil {
				return err
			}
			if err := os.WriteFile(savePath, encoded, 0o644); err != nil { //nolint:gosec // output image is not sensitive
				return fmt.Errorf("write normalized image: %w", err)
			}
		}

		results, err := dispatcher.ExtractAll(cmd.Context(), normalized, layout.Fields, engineNames, lang)
		if err != nil {
			return err
		}
		return writeResults(cmd.OutOrStdout(), format, results)
	},
}

func splitEngines(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeResults(w io.Writer, format string, results []ocr.EngineResults) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(results)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ENGINE\tFIELD\tCONFIDENCE\tPRICE\tTEXT")
		for _, r := range results {
			for _, f := range r.OCR {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.6f\t%s\n",
					r.Engine, f.Field.Name, f.Result.Confidence, f.Result.Price,
					strings.ReplaceAll(f.Result.Text, "\n", `\n`))
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (json, text)", format)
	}
}

func init() {
	extractCmd.Flags().String("layout", "", "layout file (.json, .yaml)")
	extractCmd.Flags().String("engines", "", "comma separated engines, run in order (default from config)")
	extractCmd.Flags().String("lang", "", "BCP-47 language of the document (default from config)")
	extractCmd.Flags().StringP("format", "f", "json", "output format (json, text)")
	extractCmd.Flags().String("save-normalized", "", "also write the normalized document to this path")
	extractCmd.Flags().Int("workers", 0, "per-field worker count")
	_ = extractCmd.MarkFlagRequired("layout")
	_ = viper.BindPFlag("ocr.workers", extractCmd.Flags().Lookup("workers"))
	rootCmd.AddCommand(extractCmd)
}
