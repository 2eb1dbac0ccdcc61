// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spkenv/spenv/internal/fingerprint"
	"github.com/spkenv/spenv/pkg/spec"
)

// Output formats accepted by show.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
	FormatTOML  = "toml"
)

type (
	showOptions struct {
		resolveFlags
		files  bool
		layers bool
		all    bool
		format string
	}

	// showView is the serializable form of a resolution. Sections not
	// selected by the flags are left empty and omitted.
	showView struct {
		Files          []fileView       `json:"files,omitempty" yaml:"files,omitempty" toml:"files,omitempty"`
		Layers         []string         `json:"layers,omitempty" yaml:"layers,omitempty" toml:"layers,omitempty"`
		Environment    []map[string]any `json:"environment,omitempty" yaml:"environment,omitempty" toml:"environment,omitempty"`
		Contents       []bindView       `json:"contents,omitempty" yaml:"contents,omitempty" toml:"contents,omitempty"`
		Packages       []string         `json:"packages,omitempty" yaml:"packages,omitempty" toml:"packages,omitempty"`
		PackageOptions map[string]any   `json:"package_options,omitempty" yaml:"package_options,omitempty" toml:"package_options,omitempty"`
		Repositories   []repoView       `json:"repositories,omitempty" yaml:"repositories,omitempty" toml:"repositories,omitempty"`
		Diagnostics    []string         `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" toml:"diagnostics,omitempty"`

		withFiles  bool
		withLayers bool
	}

	fileView struct {
		Path        string `json:"path" yaml:"path" toml:"path"`
		Origin      string `json:"origin" yaml:"origin" toml:"origin"`
		Inherit     bool   `json:"inherit" yaml:"inherit" toml:"inherit"`
		Includes    int    `json:"includes" yaml:"includes" toml:"includes"`
		Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	}

	bindView struct {
		Source   string `json:"source" yaml:"source" toml:"source"`
		Dest     string `json:"dest" yaml:"dest" toml:"dest"`
		ReadOnly bool   `json:"readonly" yaml:"readonly" toml:"readonly"`
	}

	repoView struct {
		Name    string `json:"name" yaml:"name" toml:"name"`
		Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	}
)

func newShowCommand(app *App) *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved spec files and environment",
		Long: `Show the spec files that make up the environment and what they produce.

Without --files or --layers both sections are shown. --all adds bind mounts,
packages, package options, repository selection and resolution diagnostics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.resolve(cmd.Context(), &opts.resolveFlags)
			if err != nil {
				return classifyError(err)
			}
			return renderShow(cmd.OutOrStdout(), buildShowView(res, opts), opts.format)
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.files, "files", false, "show the discovered files")
	cmd.Flags().BoolVar(&opts.layers, "layers", false, "show the layer stack and environment operations")
	cmd.Flags().BoolVar(&opts.all, "all", false, "show everything")
	cmd.Flags().StringVar(&opts.format, "format", FormatTable, "output format (table, yaml, json, toml)")
	return cmd
}

func buildShowView(res *resolution, opts *showOptions) *showView {
	neither := !opts.files && !opts.layers
	view := &showView{
		withFiles:  opts.files || opts.all || neither,
		withLayers: opts.layers || opts.all || neither,
	}

	if view.withFiles {
		for _, e := range res.Result.Entries {
			view.Files = append(view.Files, fileView{
				Path:        fingerprint.DisplayPath(res.Result.StartDir, e.Document.Path),
				Origin:      e.Origin.String(),
				Inherit:     e.Document.Inherit,
				Includes:    len(e.Document.Includes),
				Description: e.Document.Description.Summary(),
			})
		}
	}
	if view.withLayers {
		view.Layers = res.Env.Layers
		for _, op := range res.Env.Ops {
			view.Environment = append(view.Environment, op.Fields())
		}
	}
	if opts.all {
		for _, b := range res.Env.Contents {
			view.Contents = append(view.Contents, bindView{Source: string(b.Source), Dest: b.Dest, ReadOnly: b.ReadOnly})
		}
		view.Packages = res.Env.Packages
		view.PackageOptions = res.Env.PackageOptions
		for _, r := range res.Repos {
			view.Repositories = append(view.Repositories, repoView(r))
		}
		for _, d := range res.Result.Diagnostics {
			view.Diagnostics = append(view.Diagnostics, d.String())
		}
	}
	return view
}

// renderShow writes view in format.
func renderShow(w io.Writer, view *showView, format string) error {
	switch format {
	case FormatTable, "":
		_, err := io.WriteString(w, renderShowTable(view))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(view); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (valid: table, yaml, json, toml)", format)
	}
}

func renderShowTable(view *showView) string {
	var sections []string

	if view.withFiles {
		rows := make([][]string, len(view.Files))
		for i, f := range view.Files {
			rows[i] = []string{strconv.Itoa(i + 1), f.Path, f.Origin, strconv.FormatBool(f.Inherit), f.Description}
		}
		sections = append(sections, section("Discovered Files", len(rows), "file(s)",
			newTable([]string{"#", "Path", "Origin", "Inherit", "Description"}, rows)))
	}

	if view.withLayers {
		rows := make([][]string, len(view.Layers))
		for i, l := range view.Layers {
			rows[i] = []string{strconv.Itoa(i + 1), l}
		}
		sections = append(sections, section("Layer Stack", len(rows), "layer(s)",
			newTable([]string{"#", "Layer"}, rows)))
		if len(view.Environment) > 0 {
			sections = append(sections, TitleStyle.Render("Environment")+"\n"+describeOps(view.Environment))
		}
	}

	if len(view.Contents) > 0 {
		rows := make([][]string, len(view.Contents))
		for i, b := range view.Contents {
			rows[i] = []string{b.Source, b.Dest, strconv.FormatBool(b.ReadOnly)}
		}
		sections = append(sections, section("Bind Mounts", len(rows), "mount(s)",
			newTable([]string{"Source", "Destination", "Read-only"}, rows)))
	}
	if len(view.Packages) > 0 {
		sections = append(sections, TitleStyle.Render("Packages")+"\n  "+strings.Join(view.Packages, "\n  "))
	}
	if len(view.PackageOptions) > 0 {
		data, _ := yaml.Marshal(view.PackageOptions)
		sections = append(sections, TitleStyle.Render("Package Options")+"\n"+indent(string(data)))
	}
	if len(view.Repositories) > 0 {
		var lines []string
		for _, r := range view.Repositories {
			mark := SuccessStyle.Render("enabled")
			if !r.Enabled {
				mark = SubtitleStyle.Render("disabled")
			}
			lines = append(lines, fmt.Sprintf("  %s %s", CmdStyle.Render(r.Name), mark))
		}
		sections = append(sections, TitleStyle.Render("Repositories")+"\n"+strings.Join(lines, "\n"))
	}
	if len(view.Diagnostics) > 0 {
		sections = append(sections, TitleStyle.Render("Diagnostics")+"\n  "+
			VerboseStyle.Render(strings.Join(view.Diagnostics, "\n  ")))
	}

	return strings.Join(sections, "\n\n") + "\n"
}

func section(title string, n int, unit, body string) string {
	if n == 0 {
		body = "  " + SubtitleStyle.Render("(none)")
	}
	return fmt.Sprintf("%s\n%s\n%s", TitleStyle.Render(title), body, SubtitleStyle.Render(fmt.Sprintf("Total: %d %s", n, unit)))
}

func newTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// describeOps renders environment operations the way a shell user reads them.
func describeOps(ops []map[string]any) string {
	var b strings.Builder
	for _, fields := range ops {
		switch {
		case fields["set"] != nil:
			fmt.Fprintf(&b, "  %s = %v\n", CmdStyle.Render(fmt.Sprint(fields["set"])), fields["value"])
		case fields[string(spec.OpPrepend)] != nil:
			name := fmt.Sprint(fields[string(spec.OpPrepend)])
			fmt.Fprintf(&b, "  %s = %v + $%s\n", CmdStyle.Render(name), fields["value"], name)
		case fields[string(spec.OpAppend)] != nil:
			name := fmt.Sprint(fields[string(spec.OpAppend)])
			fmt.Fprintf(&b, "  %s = $%s + %v\n", CmdStyle.Render(name), name, fields["value"])
		case fields["comment"] != nil:
			fmt.Fprintf(&b, "  %s\n", SubtitleStyle.Render(fmt.Sprintf("# %v", fields["comment"])))
		case fields["priority"] != nil:
			fmt.Fprintf(&b, "  %s\n", WarningStyle.Render(fmt.Sprintf("[priority %v]", fields["priority"])))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ")
}
