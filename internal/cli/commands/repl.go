package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/analyzer"
	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/pkg/dialect"
)

const (
	replPrompt             = "lineage> "
	replContinuationPrompt = "     ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Extract lineage interactively",
		Long: `Start an interactive session. Type SQL ending with a semicolon to see
its lineage; statements may span several lines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
}

// replSession holds the state of one interactive session.
type replSession struct {
	opts   analyzer.Options
	an     *analyzer.Analyzer
	logger *slog.Logger
	r      *output.Renderer
	buf    strings.Builder
}

func newREPLSession(opts analyzer.Options, logger *slog.Logger, r *output.Renderer) *replSession {
	return &replSession{opts: opts, an: analyzer.New(opts, logger), logger: logger, r: r}
}

// prompt returns the prompt for the next line.
func (s *replSession) prompt() string {
	if s.buf.Len() > 0 {
		return replContinuationPrompt
	}
	return replPrompt
}

// interrupt drops any partially typed statement.
func (s *replSession) interrupt() {
	s.buf.Reset()
}

// handleLine processes one input line and reports whether the session
// should end.
func (s *replSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dotCommand(line)
	}

	// Accumulate multi-line SQL until semicolon
	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	script := s.buf.String()
	s.buf.Reset()

	records := analyzer.Records(s.an.AnalyzeScript(ctx, "", script))
	if err := renderRecords(s.r, "", "", records); err != nil {
		s.r.Error(err.Error())
	}
	return false
}

func (s *replSession) dotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".dialect":
		if len(parts) < 2 {
			s.r.Println("dialect: " + s.opts.Lineage.Dialect.Name)
			return false
		}
		d, err := dialect.Lookup(parts[1])
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.opts.Lineage.Dialect = d
		s.an = analyzer.New(s.opts, s.logger)
		s.r.Println("dialect: " + d.Name)

	case ".schema":
		if len(parts) >= 2 {
			s.opts.Lineage.DefaultSchema = parts[1]
			if parts[1] == "-" {
				s.opts.Lineage.DefaultSchema = ""
			}
			s.an = analyzer.New(s.opts, s.logger)
		}
		schema := s.opts.Lineage.DefaultSchema
		if schema == "" {
			schema = "(none)"
		}
		s.r.Println("default schema: " + schema)

	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .dialect [name]   Show or switch the SQL dialect
  .schema [name|-]  Show, set or clear the default schema
  .quit / .exit     Exit the REPL

Tips:
  - Statements must end with a semicolon (;)
  - Ctrl+C discards a partially typed statement
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter completes dot-commands and dialect names.
func newREPLCompleter() *readline.PrefixCompleter {
	var dialects []readline.PrefixCompleterInterface
	for _, name := range dialect.List() {
		dialects = append(dialects, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".dialect", dialects...),
		readline.PcItem(".schema"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

func runREPL(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)

	opts, err := cmdCtx.Cfg.AnalyzerOptions()
	if err != nil {
		return err
	}

	// History lives next to the state database
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "repl_history")
	if err := os.MkdirAll(filepath.Dir(historyFile), 0o750); err != nil {
		historyFile = ""
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	session := newREPLSession(opts, cmdCtx.Logger, cmdCtx.Renderer)

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leaplineage REPL (dialect: %s)\n", opts.Lineage.Dialect.Name)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.interrupt()
			rl.SetPrompt(session.prompt())
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if session.handleLine(ctx, line) {
			break
		}
		rl.SetPrompt(session.prompt())
	}

	return nil
}
