package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/spf13/cobra"
)

const defaultReadmeTemplate = `# Commands

{{.CommandSections}}`

// CommandSections renders the registry as Markdown, one section per
// extension in the given order. Commands added outside an extension go last.
func CommandSections(reg *appcmd.Registry, extensions []string) string {
	sections := make(map[string][]*appcmd.Command)
	for _, root := range reg.Roots() {
		name := ""
		if ext := root.Extension(); ext != nil {
			name = ext.Name()
		}
		sections[name] = append(sections[name], root)
	}

	var buf bytes.Buffer
	for _, name := range append(extensions, "") {
		roots := sections[name]
		if len(roots) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		title := name
		if title == "" {
			title = "other"
		}
		fmt.Fprintf(&buf, "### %s\n\n", title)
		for _, root := range roots {
			writeCommand(&buf, root)
		}
	}
	return buf.String()
}

func writeCommand(w io.Writer, c *appcmd.Command) {
	switch c.Kind() {
	case appcmd.KindUser:
		fmt.Fprintf(w, "- **%s** (user menu)\n", c.Name())
		return
	case appcmd.KindMessage:
		fmt.Fprintf(w, "- **%s** (message menu)\n", c.Name())
		return
	}
	if children := c.Children(); len(children) > 0 {
		for _, child := range children {
			writeCommand(w, child)
		}
		return
	}
	fmt.Fprintf(w, "- **/%s** - %s\n", c.FullName(), c.Description())
}

// RenderReadme executes tmpl with the command sections as .CommandSections.
func RenderReadme(w io.Writer, tmpl string, sections string) error {
	t, err := template.New("readme").Parse(tmpl)
	if err != nil {
		return err
	}
	return t.Execute(w, struct{ CommandSections string }{sections})
}

func (app *App) addReadmeCommand(rootCmd *cobra.Command) {
	var tmplPath, outPath string
	readmeCmd := &cobra.Command{
		Use:   "readme",
		Short: "Render a Markdown reference of the bundled commands",
		Long: `Render every bundled command, grouped by extension, into a Markdown
template. The template receives the list as {{.CommandSections}}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmpl := defaultReadmeTemplate
			if tmplPath != "" {
				data, err := os.ReadFile(tmplPath)
				if err != nil {
					return err
				}
				tmpl = string(data)
			}

			client, err := app.offlineClient(nil)
			if err != nil {
				return err
			}
			sections := CommandSections(client.Registry(), client.Extensions())

			if outPath == "" {
				return RenderReadme(app.Out, tmpl, sections)
			}
			var buf bytes.Buffer
			if err := RenderReadme(&buf, tmpl, sections); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return err
			}
			app.Log.Info().Str("path", outPath).Msg("command reference written")
			return nil
		},
	}
	readmeCmd.Flags().StringVar(&tmplPath, "template", "", "Template file, e.g. README.md.tmpl")
	readmeCmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(readmeCmd)
}
