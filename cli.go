package batchrename

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RunCmdOptions contains options for customizing RunCmd behavior
type RunCmdOptions struct {
	// MCPTransport allows providing a custom transport for MCP server (used for testing)
	MCPTransport *mcp.InMemoryTransport
	// Stdout writer for normal output (defaults to os.Stdout)
	Stdout io.Writer
	// Stderr writer for error output (defaults to os.Stderr)
	Stderr io.Writer
}

// commandContext holds runtime context for command execution
type commandContext struct {
	stdout  io.Writer
	stderr  io.Writer
	renamer Renamer
	printer *Printer
	config  *Config
}

func RunCmd(args []string, options *RunCmdOptions) error {
	stdout, stderr := io.Writer(os.Stdout), io.Writer(os.Stderr)
	if options != nil {
		if options.Stdout != nil {
			stdout = options.Stdout
		}
		if options.Stderr != nil {
			stderr = options.Stderr
		}
	}

	if len(args) < 1 {
		return ShowHelp(stdout)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		help       = fs.Bool("h", false, "Show help")
		mcpOption  = fs.Bool("mcp", false, "Run as MCP server")
		verbose    = fs.Bool("v", false, "Verbose output")
		dryRun     = fs.Bool("dry-run", false, "Show what would be changed without making changes")
		configFile = fs.String("config", "", "Path to configuration file")
		logLevel   = fs.String("log-level", "", "Log level (debug, info, warn, error, silent)")
	)

	if len(args) > 1 {
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
	}

	if *help {
		return ShowHelp(stdout)
	}

	if *mcpOption {
		var transport *mcp.InMemoryTransport
		if options != nil && options.MCPTransport != nil {
			transport = options.MCPTransport
		}
		return RunMCPServer(*configFile, transport)
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return ShowHelp(stdout)
	}

	config, err := LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	SetLogOutput(stderr)
	if err := ConfigureLogging(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	cmdCtx := &commandContext{
		stdout:  stdout,
		stderr:  stderr,
		printer: NewPrinter(stdout, config.MaxReportedErrors),
		config:  config,
	}

	var journal Journal
	if usesJournal(remaining[0], *dryRun) {
		j, err := OpenSQLiteJournal(config.JournalPath)
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
		journal = j
	}

	renamer, err := NewDefaultRenamer(config, journal)
	if err != nil {
		return fmt.Errorf("failed to create renamer: %w", err)
	}
	cmdCtx.renamer = renamer

	ctx := context.Background()
	switch remaining[0] {
	case "list":
		return listCommand(ctx, cmdCtx, remaining[1:])
	case "preview":
		return previewCommand(ctx, cmdCtx, remaining[1:], *verbose)
	case "rename":
		return renameCommand(ctx, cmdCtx, remaining[1:], *dryRun, *verbose)
	case "undo":
		return undoCommand(ctx, cmdCtx, remaining[1:], *dryRun)
	case "history":
		return historyCommand(ctx, cmdCtx, remaining[1:])
	case "validate":
		return validateCommand(ctx, cmdCtx, remaining[1:])
	case "rules":
		return rulesCommand(cmdCtx, remaining[1:])
	default:
		return fmt.Errorf("unknown command: %s", remaining[0])
	}
}

func ShowHelp(w io.Writer) error {
	help := `Batch Rename - Preview and apply rule based renames to the files in a folder

Usage:
  batch-rename [OPTIONS] COMMAND [ARGS...]
  batch-rename -mcp              Run as MCP server

Options:
  -h, --help           Show this help message
  -v, --verbose        Enable verbose output
  --dry-run            Preview changes without modifying files
  --config FILE        Path to configuration file
  --log-level LEVEL    Log level (debug, info, warn, error, silent)
  -mcp                 Run as MCP server

Commands:
  list         List the files a rename would consider
  preview      Show what the rules would rename each file to
  rename       Apply the rules and record an undo batch
  undo         Revert the most recent rename batch for a folder
  history      Show recorded rename batches for a folder
  validate     Check rule configuration for problems
  rules        List rule types and their defaults

Rules:
  --rules FILE reads a YAML or JSON rule list. --rule may be repeated and
  takes either a JSON object or a bare rule type to use its defaults.
  Rules apply in the order given.

Examples:
  batch-rename list --dir="/path/to/photos"
  batch-rename preview --dir="/path/to/photos" --rule='{"type":"dateRename","format":"YYYYMMDD"}' --rule=sequential
  batch-rename rename --dir="/path/to/photos" --rules=rules.yaml
  batch-rename --dry-run rename --dir="/path/to/photos" --rule='{"type":"prefix","value":"trip_"}'
  batch-rename undo --dir="/path/to/photos"
  batch-rename undo --dir="/path/to/photos" --map=undo.json
  batch-rename history --dir="/path/to/photos" --limit=5
  batch-rename validate --rule='{"type":"regex","find":"(unclosed"}'
  batch-rename -mcp --config="/path/to/config.yaml"
`
	_, _ = fmt.Fprint(w, help)
	return nil
}

func usesJournal(command string, dryRun bool) bool {
	switch command {
	case "undo", "history":
		return true
	case "rename":
		return !dryRun
	}
	return false
}

// ruleFlags collects repeated --rule values.
type ruleFlags []string

func (r *ruleFlags) String() string {
	return strings.Join(*r, " ")
}

func (r *ruleFlags) Set(value string) error {
	*r = append(*r, value)
	return nil
}

// ruleSource registers the rule flags shared by commands that take rules.
type ruleSource struct {
	file  *string
	rules ruleFlags
}

func addRuleFlags(fs *flag.FlagSet) *ruleSource {
	src := &ruleSource{}
	src.file = fs.String("rules", "", "Path to a YAML or JSON rule file")
	fs.Var(&src.rules, "rule", "Rule as a JSON object or a bare rule type (repeatable)")
	return src
}

func (s *ruleSource) load() ([]Rule, error) {
	var rules []Rule
	if *s.file != "" {
		loaded, err := LoadRules(*s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		rules = append(rules, loaded...)
	}

	for _, value := range s.rules {
		rule, err := ParseRuleFlag(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --rule %q: %w", value, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseRuleFlag parses a single --rule value.
func ParseRuleFlag(value string) (Rule, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") {
		return DecodeRule([]byte(value))
	}
	return DefaultRule(RuleKind(value))
}

func addDirFlag(fs *flag.FlagSet) (*string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return fs.String("dir", cwd, "Folder whose files are renamed"), nil
}

func listCommand(ctx context.Context, cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)

	dir, err := addDirFlag(fs)
	if err != nil {
		return err
	}
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	files, err := cmdCtx.renamer.ListFiles(ctx, *dir)
	if err != nil {
		return err
	}

	if *jsonOutput {
		return json.NewEncoder(cmdCtx.stdout).Encode(files)
	}

	cmdCtx.printer.Files(*dir, files)
	return nil
}

func previewCommand(ctx context.Context, cmdCtx *commandContext, args []string, verbose bool) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)

	dir, err := addDirFlag(fs)
	if err != nil {
		return err
	}
	src := addRuleFlags(fs)
	changedOnly := fs.Bool("changed", false, "Only show files that would be renamed or conflict")
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rules, err := src.load()
	if err != nil {
		return err
	}

	previews, err := cmdCtx.renamer.Preview(ctx, *dir, rules)
	if err != nil {
		return err
	}

	if *changedOnly {
		previews = changedEntries(previews)
	}

	if *jsonOutput {
		return json.NewEncoder(cmdCtx.stdout).Encode(previews)
	}

	if verbose {
		for _, rule := range rules {
			_, _ = fmt.Fprintf(cmdCtx.stdout, "  %s\n", Describe(rule))
		}
		_, _ = fmt.Fprintln(cmdCtx.stdout)
	}
	cmdCtx.printer.Previews(previews)
	return nil
}

func renameCommand(ctx context.Context, cmdCtx *commandContext, args []string, globalDryRun bool, verbose bool) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)

	dir, err := addDirFlag(fs)
	if err != nil {
		return err
	}
	src := addRuleFlags(fs)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	localDryRun := fs.Bool("dry-run", false, "Show what would be changed without making changes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rules, err := src.load()
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return fmt.Errorf("at least one --rule or --rules is required")
	}

	dryRun := globalDryRun || *localDryRun
	if dryRun && !*jsonOutput {
		_, _ = fmt.Fprintln(cmdCtx.stdout, "DRY RUN MODE - No files will be renamed")
	}

	report, err := cmdCtx.renamer.Rename(ctx, *dir, rules, dryRun)
	if err != nil && !errors.Is(err, ErrConflicts) {
		return err
	}

	if *jsonOutput {
		if encodeErr := json.NewEncoder(cmdCtx.stdout).Encode(report); encodeErr != nil {
			return encodeErr
		}
		return err
	}

	if err != nil {
		cmdCtx.printer.Previews(conflictEntries(report.Previews))
		return err
	}

	if dryRun || verbose {
		cmdCtx.printer.Previews(report.Previews)
	}

	if report.Result != nil {
		cmdCtx.printer.RenameResult(report.Result, report.BatchID)
		if report.Result.Failed > 0 {
			return fmt.Errorf("completed with %d errors", report.Result.Failed)
		}
	}
	return nil
}

func undoCommand(ctx context.Context, cmdCtx *commandContext, args []string, globalDryRun bool) error {
	fs := flag.NewFlagSet("undo", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)

	dir, err := addDirFlag(fs)
	if err != nil {
		return err
	}
	mapFile := fs.String("map", "", "Revert an undo map saved from 'rename --json' instead of the journal")
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if globalDryRun {
		return fmt.Errorf("undo does not support --dry-run")
	}

	var result *UndoResult
	if *mapFile != "" {
		undoMap, err := LoadUndoMap(*mapFile)
		if err != nil {
			return err
		}
		result, err = cmdCtx.renamer.UndoMap(ctx, *dir, undoMap)
		if err != nil {
			return err
		}
	} else {
		result, err = cmdCtx.renamer.Undo(ctx, *dir)
		if err != nil {
			return err
		}
	}

	if *jsonOutput {
		return json.NewEncoder(cmdCtx.stdout).Encode(result)
	}

	cmdCtx.printer.UndoResult(result)
	if result.Failed > 0 {
		return fmt.Errorf("completed with %d errors", result.Failed)
	}
	return nil
}

func historyCommand(ctx context.Context, cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)

	dir, err := addDirFlag(fs)
	if err != nil {
		return err
	}
	limit := fs.Int("limit", 10, "Maximum batches to show (0 for all)")
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	batches, err := cmdCtx.renamer.History(ctx, *dir, *limit)
	if err != nil {
		return err
	}

	if *jsonOutput {
		return json.NewEncoder(cmdCtx.stdout).Encode(batches)
	}

	cmdCtx.printer.History(batches)
	return nil
}

func validateCommand(ctx context.Context, cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)

	src := addRuleFlags(fs)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rules, err := src.load()
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return fmt.Errorf("at least one --rule or --rules is required")
	}

	results := cmdCtx.renamer.ValidateRules(ctx, rules)

	if *jsonOutput {
		return json.NewEncoder(cmdCtx.stdout).Encode(results)
	}

	cmdCtx.printer.Validation(rules, results)
	return nil
}

func rulesCommand(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	defaults := make([]Rule, 0, len(RuleKinds()))
	for _, kind := range RuleKinds() {
		rule, err := DefaultRule(kind)
		if err != nil {
			return err
		}
		defaults = append(defaults, rule)
	}

	if *jsonOutput {
		data, err := EncodeRules(defaults)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmdCtx.stdout).Encode(json.RawMessage(data))
	}

	cmdCtx.printer.Rules(defaults)
	return nil
}

// LoadUndoMap reads an undo map from a JSON file. The file may hold the bare
// list or the output of 'rename --json'.
func LoadUndoMap(path string) ([]UndoEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read undo map: %w", err)
	}

	var undoMap []UndoEntry
	if err := json.Unmarshal(data, &undoMap); err == nil {
		return undoMap, nil
	}

	var report RenameReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("invalid undo map: %w", err)
	}
	if report.Result == nil {
		return nil, fmt.Errorf("invalid undo map: no rename result in %s", path)
	}
	return report.Result.UndoMap, nil
}

func changedEntries(previews []PreviewEntry) []PreviewEntry {
	var out []PreviewEntry
	for _, e := range previews {
		if (e.Changed && !e.Skip) || e.Conflict {
			out = append(out, e)
		}
	}
	return out
}

func conflictEntries(previews []PreviewEntry) []PreviewEntry {
	var out []PreviewEntry
	for _, e := range previews {
		if e.Conflict {
			out = append(out, e)
		}
	}
	return out
}
