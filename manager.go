package batchrename

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

type Renamer interface {
	ListFiles(ctx context.Context, folder string) ([]FileDescriptor, error)
	Preview(ctx context.Context, folder string, rules []Rule) ([]PreviewEntry, error)
	Rename(ctx context.Context, folder string, rules []Rule, dryRun bool) (*RenameReport, error)
	Undo(ctx context.Context, folder string) (*UndoResult, error)
	UndoMap(ctx context.Context, folder string, undoMap []UndoEntry) (*UndoResult, error)
	History(ctx context.Context, folder string, limit int) ([]JournalBatch, error)
	ValidateRules(ctx context.Context, rules []Rule) []*ValidationResult
}

type DefaultRenamer struct {
	lister    DirectoryLister
	executor  *Executor
	journal   Journal
	validator Validator
	config    *Config
	log       *logrus.Entry
}

// NewDefaultRenamer builds a Renamer over the local filesystem. journal may be
// nil, in which case batches are not recorded and Undo reports ErrNoUndo.
func NewDefaultRenamer(config *Config, journal Journal) (*DefaultRenamer, error) {
	validator := NewDefaultValidator(config)
	if err := validator.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fsys := OSFileSystem{}
	return &DefaultRenamer{
		lister:    NewFilesystemLister(config, fsys),
		executor:  NewExecutor(fsys, config),
		journal:   journal,
		validator: validator,
		config:    config,
		log:       WithName("renamer"),
	}, nil
}

func (m *DefaultRenamer) ListFiles(ctx context.Context, folder string) ([]FileDescriptor, error) {
	folder, err := m.resolveFolder(folder)
	if err != nil {
		return nil, err
	}
	return m.lister.ListFiles(ctx, folder)
}

func (m *DefaultRenamer) Preview(ctx context.Context, folder string, rules []Rule) ([]PreviewEntry, error) {
	folder, err := m.resolveFolder(folder)
	if err != nil {
		return nil, err
	}
	return m.preview(ctx, folder, rules)
}

// preview checks targets against every name in folder, not only the listed
// files, so a rename onto a hidden file or subdirectory is reported as a
// conflict before anything moves.
func (m *DefaultRenamer) preview(ctx context.Context, folder string, rules []Rule) ([]PreviewEntry, error) {
	files, err := m.lister.ListFiles(ctx, folder)
	if err != nil {
		return nil, err
	}
	occupied, err := m.lister.OccupiedNames(ctx, folder)
	if err != nil {
		return nil, err
	}
	return PreviewWithOccupied(files, rules, occupied), nil
}

// Rename previews rules against folder and commits the batch. Execution is
// refused while any entry is in conflict; the returned report then carries the
// previews alongside an error wrapping ErrConflicts.
func (m *DefaultRenamer) Rename(ctx context.Context, folder string, rules []Rule, dryRun bool) (*RenameReport, error) {
	folder, err := m.resolveFolder(folder)
	if err != nil {
		return nil, err
	}

	previews, err := m.preview(ctx, folder, rules)
	if err != nil {
		return nil, err
	}

	report := &RenameReport{
		Folder:    folder,
		DryRun:    dryRun,
		Previews:  previews,
		Conflicts: CountConflicts(previews),
	}

	if dryRun {
		return report, nil
	}

	if report.Conflicts > 0 {
		return report, fmt.Errorf("%d conflicting names: %w", report.Conflicts, ErrConflicts)
	}

	result, err := m.executor.Execute(ctx, folder, previews)
	if err != nil {
		return nil, err
	}
	report.Result = result

	if m.journal != nil {
		id, err := m.journal.Record(ctx, folder, result.UndoMap)
		if err != nil {
			m.log.WithError(err).WithField("folder", folder).Error("Failed to journal undo map")
		}
		report.BatchID = id
	}

	return report, nil
}

// Undo reverts the pending batch recorded for folder.
func (m *DefaultRenamer) Undo(ctx context.Context, folder string) (*UndoResult, error) {
	folder, err := m.resolveFolder(folder)
	if err != nil {
		return nil, err
	}

	if m.journal == nil {
		return nil, ErrNoUndo
	}

	batch, err := m.journal.Latest(ctx, folder)
	if err != nil {
		return nil, err
	}

	result, err := m.executor.Undo(ctx, folder, batch.Entries)
	if err != nil {
		return nil, err
	}

	failed := make(map[string]bool, len(result.Errors))
	for _, e := range result.Errors {
		failed[e.File] = true
	}
	var remaining []UndoEntry
	for _, entry := range batch.Entries {
		if failed[entry.From] {
			remaining = append(remaining, entry)
		}
	}

	if err := m.journal.Complete(ctx, batch.ID, remaining); err != nil {
		m.log.WithError(err).WithField("batch", batch.ID).Error("Failed to update journal after undo")
	}

	return result, nil
}

// UndoMap reverts an explicit undo map without consulting the journal.
func (m *DefaultRenamer) UndoMap(ctx context.Context, folder string, undoMap []UndoEntry) (*UndoResult, error) {
	folder, err := m.resolveFolder(folder)
	if err != nil {
		return nil, err
	}
	return m.executor.Undo(ctx, folder, undoMap)
}

func (m *DefaultRenamer) History(ctx context.Context, folder string, limit int) ([]JournalBatch, error) {
	folder, err := m.resolveFolder(folder)
	if err != nil {
		return nil, err
	}
	if m.journal == nil {
		return []JournalBatch{}, nil
	}
	return m.journal.History(ctx, folder, limit)
}

func (m *DefaultRenamer) ValidateRules(ctx context.Context, rules []Rule) []*ValidationResult {
	results := make([]*ValidationResult, 0, len(rules))
	for _, rule := range rules {
		if ctx.Err() != nil {
			break
		}
		results = append(results, m.validator.ValidateRule(rule))
	}
	return results
}

func (m *DefaultRenamer) resolveFolder(folder string) (string, error) {
	expanded, err := ExpandPath(folder)
	if err != nil {
		return "", fmt.Errorf("invalid folder: %w", err)
	}
	if err := m.validator.ValidatePath(expanded); err != nil {
		return "", fmt.Errorf("invalid folder: %w", err)
	}
	return expanded, nil
}

// ExpandPath expands a leading tilde and returns a cleaned absolute path.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return filepath.Abs(path)
}
