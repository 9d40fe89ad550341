package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leaplineage/internal/cli"
	"github.com/leapstack-labs/leaplineage/internal/cli/config"
)

// cliPages writes one page per visible command, nested commands included,
// under a single output directory.
type cliPages struct {
	root   *cobra.Command
	outDir string
}

// generateCLIDocs generates CLI documentation from the command tree.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	g := &cliPages{root: cli.NewRootCmd(), outDir: outDir}
	if err := g.write("index.md", g.index()); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}

	for _, cmd := range visibleCommands(g.root) {
		if err := g.writeCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// visibleCommands lists the documented children of cmd.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || c.Name() == "help" || c.Name() == "__complete" {
			continue
		}
		cmds = append(cmds, c)
	}
	return cmds
}

// pageName names a command's page after its path below the root, so
// "history rm" is written to history-rm.md.
func pageName(cmd *cobra.Command) string {
	path := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
	return strings.ReplaceAll(path, " ", "-")
}

func (g *cliPages) write(name string, w *MarkdownWriter) error {
	return os.WriteFile(filepath.Join(g.outDir, name), w.Bytes(), 0o600)
}

func (g *cliPages) writeCommand(cmd *cobra.Command) error {
	if err := g.write(pageName(cmd)+".md", g.command(cmd)); err != nil {
		return fmt.Errorf("failed to generate page for %s: %w", cmd.CommandPath(), err)
	}
	log.Printf("  Generated %s.md", pageName(cmd))

	for _, sub := range visibleCommands(cmd) {
		if err := g.writeCommand(sub); err != nil {
			return err
		}
	}
	return nil
}

// commandTable lists commands with links to their pages.
func commandTable(w *MarkdownWriter, header string, cmds []*cobra.Command) {
	rows := make([][]string, 0, len(cmds))
	for _, c := range cmds {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(c.Name()), pageName(c))
		rows = append(rows, []string{link, cleanDescription(c.Short)})
	}
	w.Table([]string{header, "Description"}, rows)
}

// index builds the CLI overview page.
func (g *cliPages) index() *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for leaplineage")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("leaplineage extracts table and column lineage from SQL scripts, keeps a history of saved runs, and offers an interactive REPL and a watch mode.")

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leaplineage/cmd/leaplineage@latest")

	w.Header(2, "Commands")
	commandTable(w, "Command", visibleCommands(g.root))

	w.Header(2, "Global Options")
	w.Paragraph("These flags are available for all commands:")
	writeFlagsTable(w, g.root.PersistentFlags())

	w.Header(2, "Configuration")
	w.Paragraph("Settings are read from the nearest " + InlineCode("leaplineage.yaml") +
		", then from environment variables with the " + InlineCode(config.EnvPrefix) +
		" prefix, then from flags. Later sources win.")

	keys := []struct{ key, desc string }{
		{"dialect", "SQL dialect"},
		{"default_schema", "Schema prepended to unqualified table names"},
		{"storage_prefixes", "Comma-separated cloud storage prefixes"},
		{"state_path", "State database path, relative to the config file"},
		{"concurrency", "Files analyzed in parallel"},
		{"output", "Default output format"},
		{"history_limit", "Runs listed by history"},
	}
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{InlineCode(k.key), InlineCode(config.EnvPrefix + strings.ToUpper(k.key)), k.desc}
	}
	w.Table([]string{"Key", "Environment", "Description"}, rows)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error, or a failed statement under " + InlineCode("extract --strict")},
	})
	return w
}

// command builds the page of a single command.
func (g *cliPages) command(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.CommandPath(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.CommandPath())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	useLine := cmd.UseLine()
	if cmd.HasAvailableSubCommands() && !cmd.Runnable() {
		useLine = cmd.CommandPath() + " <subcommand> [options]"
	}
	w.CodeBlock("bash", useLine)

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, alias := range cmd.Aliases {
			aliases[i] = InlineCode(alias)
		}
		w.BulletList(aliases)
	}

	if subs := visibleCommands(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		commandTable(w, "Subcommand", subs)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalNonPersistentFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w
}

// writeFlagsTable writes a table of the visible flags in flags.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}

		short := ""
		if f.Shorthand != "" {
			short = InlineCode("-" + f.Shorthand)
		}

		def := f.DefValue
		switch {
		case def == "" || def == "[]" || def == "0" && f.Value.Type() == "int":
			def = ""
		case f.Value.Type() != "bool":
			def = InlineCode(def)
		}

		rows = append(rows, []string{InlineCode("--" + f.Name), short, f.Value.Type(), def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Type", "Default", "Description"}, rows)
}

// cleanExample removes the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent == -1 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.TrimSpace(example)
	}

	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
