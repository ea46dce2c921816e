package batchrename

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Parameter structures for MCP tools
type ListFilesParams struct {
	Folder     string `json:"folder"`
	MaxResults *int   `json:"max_results,omitempty"`
}

type PreviewRenameParams struct {
	Folder      string           `json:"folder"`
	Rules       []map[string]any `json:"rules"`
	ChangedOnly bool             `json:"changed_only,omitempty"`
}

type ExecuteRenameParams struct {
	Folder string           `json:"folder"`
	Rules  []map[string]any `json:"rules"`
	DryRun bool             `json:"dry_run,omitempty"`
}

type UndoRenameParams struct {
	Folder  string      `json:"folder"`
	UndoMap []UndoEntry `json:"undo_map,omitempty"`
}

type RenameHistoryParams struct {
	Folder string `json:"folder"`
	Limit  *int   `json:"limit,omitempty"`
}

type ValidateRulesParams struct {
	Rules []map[string]any `json:"rules"`
}

type ListRuleTypesParams struct{}

// Tool handler functions
func ListFilesTool(ctx context.Context, req *mcp.CallToolRequest, args ListFilesParams, renamer Renamer) (*mcp.CallToolResult, any, error) {
	result, err := renamer.ListFiles(ctx, args.Folder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list files: %w", err)
	}

	if args.MaxResults != nil {
		result = firstN(result, *args.MaxResults)
	}

	return nil, result, nil
}

func PreviewRenameTool(ctx context.Context, req *mcp.CallToolRequest, args PreviewRenameParams, renamer Renamer) (*mcp.CallToolResult, any, error) {
	rules, err := RulesFromMaps(args.Rules)
	if err != nil {
		return nil, nil, err
	}

	result, err := renamer.Preview(ctx, args.Folder, rules)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to preview rename: %w", err)
	}

	if args.ChangedOnly {
		result = changedEntries(result)
	}

	return nil, result, nil
}

func ExecuteRenameTool(ctx context.Context, req *mcp.CallToolRequest, args ExecuteRenameParams, renamer Renamer) (*mcp.CallToolResult, any, error) {
	rules, err := RulesFromMaps(args.Rules)
	if err != nil {
		return nil, nil, err
	}
	if len(rules) == 0 {
		return nil, nil, fmt.Errorf("at least one rule is required")
	}

	report, err := renamer.Rename(ctx, args.Folder, rules, args.DryRun)
	if errors.Is(err, ErrConflicts) && report != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, conflictSummary(report.Previews))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rename: %w", err)
	}

	return nil, report, nil
}

func UndoRenameTool(ctx context.Context, req *mcp.CallToolRequest, args UndoRenameParams, renamer Renamer) (*mcp.CallToolResult, any, error) {
	var (
		result *UndoResult
		err    error
	)
	if len(args.UndoMap) > 0 {
		result, err = renamer.UndoMap(ctx, args.Folder, args.UndoMap)
	} else {
		result, err = renamer.Undo(ctx, args.Folder)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to undo rename: %w", err)
	}

	return nil, result, nil
}

func RenameHistoryTool(ctx context.Context, req *mcp.CallToolRequest, args RenameHistoryParams, renamer Renamer) (*mcp.CallToolResult, any, error) {
	limit := 10
	if args.Limit != nil {
		limit = *args.Limit
	}

	result, err := renamer.History(ctx, args.Folder, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rename history: %w", err)
	}

	return nil, result, nil
}

func ValidateRulesTool(ctx context.Context, req *mcp.CallToolRequest, args ValidateRulesParams, renamer Renamer) (*mcp.CallToolResult, any, error) {
	rules, err := RulesFromMaps(args.Rules)
	if err != nil {
		return nil, nil, err
	}

	result := renamer.ValidateRules(ctx, rules)
	return nil, result, nil
}

func ListRuleTypesTool(ctx context.Context, req *mcp.CallToolRequest, args ListRuleTypesParams) (*mcp.CallToolResult, any, error) {
	result := make([]map[string]any, 0, len(RuleKinds()))
	for _, kind := range RuleKinds() {
		rule, err := DefaultRule(kind)
		if err != nil {
			return nil, nil, err
		}
		fields, err := ruleFields(rule)
		if err != nil {
			return nil, nil, err
		}
		result = append(result, fields)
	}
	return nil, result, nil
}

func conflictSummary(previews []PreviewEntry) string {
	var names []string
	for _, e := range conflictEntries(previews) {
		names = append(names, fmt.Sprintf("%s -> %s", e.Original, e.Renamed))
	}
	const maxShown = 20
	shown := firstN(names, maxShown)
	summary := strings.Join(shown, ", ")
	if len(names) > len(shown) {
		summary += fmt.Sprintf(" and %d more", len(names)-len(shown))
	}
	return summary
}

// NewMCPServer registers every rename tool against renamer.
func NewMCPServer(renamer Renamer) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "batch-rename",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_files",
		Description: "List the regular files of a folder in natural order with size and timestamps",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListFilesParams) (*mcp.CallToolResult, any, error) {
		return ListFilesTool(ctx, req, args, renamer)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_rename",
		Description: "Apply an ordered rule list to a folder without touching disk and report each new name and any conflicts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PreviewRenameParams) (*mcp.CallToolResult, any, error) {
		return PreviewRenameTool(ctx, req, args, renamer)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execute_rename",
		Description: "Rename files in a folder using an ordered rule list. Refuses to run while any name conflicts. Records an undo batch",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExecuteRenameParams) (*mcp.CallToolResult, any, error) {
		return ExecuteRenameTool(ctx, req, args, renamer)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "undo_rename",
		Description: "Revert the most recent rename batch for a folder, or an explicit undo map",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args UndoRenameParams) (*mcp.CallToolResult, any, error) {
		return UndoRenameTool(ctx, req, args, renamer)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename_history",
		Description: "List recorded rename batches for a folder, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RenameHistoryParams) (*mcp.CallToolResult, any, error) {
		return RenameHistoryTool(ctx, req, args, renamer)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_rules",
		Description: "Check rule configuration and get suggestions for rules that would have no effect",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ValidateRulesParams) (*mcp.CallToolResult, any, error) {
		return ValidateRulesTool(ctx, req, args, renamer)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_rule_types",
		Description: "List every rule type with its default fields",
	}, ListRuleTypesTool)

	return server
}

// RunMCPServer starts the MCP server implementation using the official Go SDK
// If transport is nil, it will use stdio transport
func RunMCPServer(configPath string, transport *mcp.InMemoryTransport) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := ConfigureLogging(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	journal, err := OpenSQLiteJournal(config.JournalPath)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	renamer, err := NewDefaultRenamer(config, journal)
	if err != nil {
		return fmt.Errorf("failed to create renamer: %w", err)
	}

	server := NewMCPServer(renamer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if transport != nil {
		return server.Run(ctx, transport)
	}
	return server.Run(ctx, &mcp.StdioTransport{})
}
