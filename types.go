package batchrename

import "time"

// FileDescriptor describes one regular file in the target directory.
// Base + Ext always equals Name.
type FileDescriptor struct {
	Name      string     `json:"name"`
	Ext       string     `json:"ext"`
	Base      string     `json:"base"`
	Size      uint64     `json:"size"`
	ModTime   *time.Time `json:"mtime"`
	BirthTime *time.Time `json:"birthtime"`
}

// NewFileDescriptor splits name into base and extension. The extension is the
// final ".suffix" including the dot, or empty.
func NewFileDescriptor(name string, size uint64, modTime, birthTime *time.Time) FileDescriptor {
	base, ext := SplitName(name)
	return FileDescriptor{
		Name:      name,
		Ext:       ext,
		Base:      base,
		Size:      size,
		ModTime:   modTime,
		BirthTime: birthTime,
	}
}

// Parts is the state threaded through the rule pipeline for a single file.
type Parts struct {
	Base      string
	Ext       string
	ModTime   *time.Time
	BirthTime *time.Time
}

func (p Parts) Name() string {
	return p.Base + p.Ext
}

type PreviewEntry struct {
	Original string `json:"original"`
	Renamed  string `json:"renamed"`
	Conflict bool   `json:"conflict"`
	Skip     bool   `json:"skip"`
	Changed  bool   `json:"changed"`
}

type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// UndoEntry maps a post-rename name (From) back to the original name (To).
type UndoEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type RenameResult struct {
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Errors  []FileError `json:"errors"`
	UndoMap []UndoEntry `json:"undoMap"`
}

type UndoResult struct {
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Errors  []FileError `json:"errors"`
}

// RenameReport is the outcome of a full preview/execute cycle run through a Renamer.
type RenameReport struct {
	Folder    string         `json:"folder"`
	DryRun    bool           `json:"dry_run"`
	Previews  []PreviewEntry `json:"previews"`
	Result    *RenameResult  `json:"result,omitempty"`
	BatchID   string         `json:"batch_id,omitempty"`
	Conflicts int            `json:"conflicts"`
}

type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// BatchStatus is the lifecycle state of a journaled rename batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchUndone     BatchStatus = "undone"
	BatchSuperseded BatchStatus = "superseded"
)

type JournalBatch struct {
	ID        string      `json:"id"`
	Folder    string      `json:"folder"`
	CreatedAt time.Time   `json:"created_at"`
	Status    BatchStatus `json:"status"`
	Entries   []UndoEntry `json:"entries"`
}
