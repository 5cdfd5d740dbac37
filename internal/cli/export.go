package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modata-dev/modata/pkg/export"
	"github.com/modata-dev/modata/pkg/schema"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	output  string   // output file path (or base path for multiple formats)
	formats []string // output formats: "svg", "png", "json"
	scale   float64  // raster scale multiplier for PNG output
}

// newExportCmd creates the export command for rendering diagram artifacts.
func newExportCmd() *cobra.Command {
	var formatsStr string
	opts := exportOpts{}

	cmd := &cobra.Command{
		Use:   "export [diagram.modata.json]",
		Short: "Render a diagram as SVG, PNG, or canonical JSON",
		Long: `Render a diagram as SVG, PNG, or canonical JSON.

SVG and PNG exports reproduce the stored entity positions exactly; every
entity is drawn as a table with its color-banded header and field rows.
JSON export writes the canonical document form with refreshed timestamps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseExportFormats(formatsStr)
			if err := validateExportFormats(opts.formats); err != nil {
				return err
			}
			if opts.scale <= 0 {
				return fmt.Errorf("invalid scale: %g (must be positive)", opts.scale)
			}
			return runExport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 1, "raster scale multiplier for PNG output")

	return cmd
}

// parseExportFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseExportFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	return strings.Split(s, ",")
}

// validExportFormats is the set of supported export formats.
var validExportFormats = map[string]bool{"svg": true, "png": true, "json": true}

// validateExportFormats checks that all requested formats are valid.
func validateExportFormats(formats []string) error {
	for _, f := range formats {
		if !validExportFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'png', or 'json')", f)
		}
	}
	return nil
}

// exportBasePath derives the base output path from the output and input
// paths, stripping any format extension from an explicit output.
func exportBasePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, export.ExtJSON)
	}
	ext := filepath.Ext(output)
	if validExportFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// runExport loads the diagram and renders it to each requested format.
func runExport(ctx context.Context, input string, opts *exportOpts) error {
	logger := loggerFromContext(ctx)

	d, err := schema.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load diagram %s: %w", input, err)
	}
	logger.Infof("Loaded %s: %d entities, %d relations", d.Name, len(d.Nodes), len(d.Edges))

	if len(opts.formats) == 1 && opts.output != "" {
		return exportAndWrite(ctx, d, opts.formats[0], opts.output, opts.scale)
	}

	base := exportBasePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if format == "json" {
			path = base + export.ExtJSON
		}
		if err := exportAndWrite(ctx, d, format, path, opts.scale); err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
	}
	return nil
}

// exportAndWrite renders a single format and writes it to path.
func exportAndWrite(ctx context.Context, d schema.Diagram, format, path string, scale float64) error {
	logger := loggerFromContext(ctx)

	var data []byte
	var err error
	switch format {
	case "svg":
		data, err = renderWithSpinner(ctx, d, "Rendering SVG...", export.SVG)
	case "png":
		data, err = renderWithSpinner(ctx, d, "Rendering PNG...",
			func(ctx context.Context, d schema.Diagram) ([]byte, error) {
				return export.PNGScaled(ctx, d, scale)
			})
	case "json":
		d.UpdatedAt = schema.Now()
		data, err = export.JSON(d)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return err
	}
	logger.Debugf("Generated %s: %d bytes", format, len(data))

	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return err
	}

	printSuccess("Exported %s", format)
	printFile(path)
	return nil
}

// renderWithSpinner runs a renderer behind a progress spinner.
func renderWithSpinner(
	ctx context.Context,
	d schema.Diagram,
	message string,
	render func(context.Context, schema.Diagram) ([]byte, error),
) ([]byte, error) {
	spinner := newSpinnerWithContext(ctx, message)
	spinner.Start()
	data, err := render(ctx, d)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return nil, err
	}
	spinner.Stop()
	return data, nil
}

// openOutput returns a WriteCloser for the given path.
// The path "-" writes to stdout without closing it.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
