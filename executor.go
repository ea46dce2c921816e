package batchrename

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultTempPrefix = "__brtemp_"

// Executor commits preview batches to disk and reverses them.
type Executor struct {
	fs         FileSystem
	tempPrefix string
	log        *logrus.Entry
}

func NewExecutor(fsys FileSystem, config *Config) *Executor {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	prefix := DefaultTempPrefix
	if config != nil && config.TempPrefix != "" {
		prefix = config.TempPrefix
	}
	return &Executor{
		fs:         fsys,
		tempPrefix: prefix,
		log:        WithName("executor"),
	}
}

// move is a single rename inside the target folder.
type move struct {
	from string
	to   string
}

// Execute renames every changed, non-skipped, non-conflicting entry of
// previews inside folder. Per-file failures are recorded in the result. The
// context is only consulted before the first rename; once staging starts the
// batch runs to completion.
func (e *Executor) Execute(ctx context.Context, folder string, previews []PreviewEntry) (*RenameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RenameResult{
		Errors:  []FileError{},
		UndoMap: []UndoEntry{},
	}
	log := e.log.WithField("folder", folder)

	var moves []move
	for _, p := range previews {
		if p.Skip || !p.Changed || p.Conflict {
			result.Skipped++
			continue
		}
		moves = append(moves, move{from: p.Original, to: p.Renamed})
	}

	for i, err := range e.relocate(log, folder, moves) {
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, FileError{File: moves[i].from, Error: err.Error()})
			continue
		}
		result.Success++
		result.UndoMap = append(result.UndoMap, UndoEntry{From: moves[i].to, To: moves[i].from})
	}

	log.WithFields(logrus.Fields{
		"success": result.Success,
		"failed":  result.Failed,
		"skipped": result.Skipped,
	}).Info("Rename batch complete")

	return result, nil
}

// Undo renames each From name back to its To name using the same staging as
// Execute, so reversing a rotation never collides with itself. A failure on
// one entry does not stop the others.
func (e *Executor) Undo(ctx context.Context, folder string, undoMap []UndoEntry) (*UndoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &UndoResult{Errors: []FileError{}}
	log := e.log.WithField("folder", folder)

	moves := make([]move, 0, len(undoMap))
	for _, entry := range undoMap {
		moves = append(moves, move{from: entry.From, to: entry.To})
	}

	for i, err := range e.relocate(log, folder, moves) {
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, FileError{File: moves[i].from, Error: err.Error()})
			continue
		}
		result.Success++
	}

	log.WithFields(logrus.Fields{
		"success": result.Success,
		"failed":  result.Failed,
	}).Info("Undo batch complete")

	return result, nil
}

// relocate applies moves in two phases. Every source is first moved to a
// unique temporary name, then every staged file claims its target, so no
// rename lands on a name still held by another file of the batch. A file
// that cannot claim its target is put back under its original name. The
// returned slice holds the outcome of each move.
func (e *Executor) relocate(log *logrus.Entry, folder string, moves []move) []error {
	errs := make([]error, len(moves))
	temps := make([]string, len(moves))

	for i, m := range moves {
		if err := checkNames(m.from, m.to); err != nil {
			errs[i] = err
			log.WithError(err).WithField("file", m.from).Warn("Refusing to rename file")
			continue
		}

		temp, err := e.tempName(folder, m.from)
		if err != nil {
			errs[i] = err
			continue
		}

		if err := e.fs.Rename(filepath.Join(folder, m.from), filepath.Join(folder, temp)); err != nil {
			errs[i] = err
			log.WithError(err).WithField("file", m.from).Warn("Failed to stage file")
			continue
		}

		log.WithFields(logrus.Fields{
			"file": m.from,
			"temp": temp,
		}).Debug("Staged file")
		temps[i] = temp
	}

	for i, m := range moves {
		if temps[i] == "" {
			continue
		}

		tempPath := filepath.Join(folder, temps[i])
		err := e.claim(tempPath, filepath.Join(folder, m.to))
		if err == nil {
			continue
		}

		if restoreErr := e.fs.Rename(tempPath, filepath.Join(folder, m.from)); restoreErr != nil {
			log.WithError(restoreErr).WithFields(logrus.Fields{
				"file": m.from,
				"temp": temps[i],
			}).Error("Failed to restore staged file")
		}
		errs[i] = err
		log.WithError(err).WithFields(logrus.Fields{
			"file":   m.from,
			"target": m.to,
		}).Warn("Failed to rename file")
	}

	return errs
}

// claim renames src to dst unless dst is held by another file. On a
// case-insensitive volume a case-only rename resolves dst to src itself, which
// is allowed.
func (e *Executor) claim(src, dst string) error {
	dstInfo, err := e.fs.Lstat(dst)
	switch {
	case err == nil:
		srcInfo, err := e.fs.Lstat(src)
		if err != nil {
			return err
		}
		if !os.SameFile(srcInfo, dstInfo) {
			return fmt.Errorf("%s: %w", filepath.Base(dst), ErrTargetExists)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return e.fs.Rename(src, dst)
}

func (e *Executor) tempName(folder, original string) (string, error) {
	for range 3 {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		name := fmt.Sprintf("%s%d_%s_%s", e.tempPrefix, time.Now().UnixNano(), suffix, original)
		if _, err := e.fs.Lstat(filepath.Join(folder, name)); errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
	}
	return "", fmt.Errorf("could not find a free temporary name for %s", original)
}

func checkNames(names ...string) error {
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			return err
		}
	}
	return nil
}
