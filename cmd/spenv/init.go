// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/spkenv/spenv/internal/issue"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

// Spec templates offered by init.
const (
	TemplateMinimal  = "minimal"
	TemplateStandard = "standard"
	TemplateFull     = "full"
)

var (
	//go:embed templates/*.yaml.tmpl
	templateFS embed.FS

	specTemplates = template.Must(template.New("spec").
			Funcs(template.FuncMap{"quote": strconv.Quote}).
			ParseFS(templateFS, "templates/*.yaml.tmpl"))

	templateNames = []string{TemplateMinimal, TemplateStandard, TemplateFull}
)

type (
	initOptions struct {
		inherit  bool
		layers   []string
		template string
		force    bool
	}

	templateData struct {
		Inherit bool
		Layers  []string
	}
)

func newInitCommand() *cobra.Command {
	opts := &initOptions{}
	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Create a .spenv.yaml in a directory",
		Long: `Create a .spenv.yaml in DIR (default: the current directory).

Templates:
  minimal   only the required fields
  standard  commented starter file (default)
  full      every field with examples`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.inherit, "inherit", false, "set inherit: true in the new spec")
	cmd.Flags().StringArrayVar(&opts.layers, "layer", nil, "layer to add (repeatable)")
	cmd.Flags().StringVarP(&opts.template, "template", "t", TemplateStandard, "template to use (minimal, standard, full)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing spec")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts *initOptions) error {
	content, err := renderSpecTemplate(opts.template, templateData{Inherit: opts.inherit, Layers: opts.layers})
	if err != nil {
		return err
	}

	path := filepath.Join(dir, spec.FileName)
	if _, statErr := os.Stat(path); statErr == nil && !opts.force {
		return issue.NewErrorContext().
			WithOperation("create spec").
			WithResource(path).
			WithSuggestion("Use --force to overwrite it").
			Wrap(fs.ErrExist).
			BuildError()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &spec.IOError{Op: "mkdir", Path: types.FilesystemPath(dir), Cause: err}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return &spec.IOError{Op: "write", Path: types.FilesystemPath(path), Cause: err}
	}

	absPath, _ := filepath.Abs(path)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(out, "  1. Edit the file to add your layers")
	fmt.Fprintln(out, "  2. Run 'spenv show' to preview the environment")
	fmt.Fprintln(out, "  3. Run 'spenv lock' to record it")
	return nil
}

// renderSpecTemplate renders the named template and checks that the result
// parses as a spec.
func renderSpecTemplate(name string, data templateData) ([]byte, error) {
	if !slices.Contains(templateNames, name) {
		return nil, fmt.Errorf("unknown template %q (valid: minimal, standard, full)", name)
	}
	var buf bytes.Buffer
	if err := specTemplates.ExecuteTemplate(&buf, name+".yaml.tmpl", data); err != nil {
		return nil, fmt.Errorf("rendering %s template: %w", name, err)
	}
	if _, err := spec.Parse(buf.Bytes(), types.FilesystemPath(spec.FileName), spec.LoadOptions{}); err != nil {
		return nil, errors.Join(fmt.Errorf("%s template produced an invalid spec", name), err)
	}
	return buf.Bytes(), nil
}
