package batchrename

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DirectoryLister supplies the files of a single directory. Subdirectories are
// never descended into.
type DirectoryLister interface {
	ScanDirectory(ctx context.Context, dir string) iter.Seq2[FileDescriptor, error]
	ListFiles(ctx context.Context, dir string) ([]FileDescriptor, error)
	OccupiedNames(ctx context.Context, dir string) ([]string, error)
}

type FilesystemLister struct {
	config *Config
	fs     FileSystem
	log    *logrus.Entry
}

func NewFilesystemLister(config *Config, fsys FileSystem) *FilesystemLister {
	if config == nil {
		config = DefaultConfig()
	}
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	return &FilesystemLister{
		config: config,
		fs:     fsys,
		log:    WithName("lister"),
	}
}

// ScanDirectory yields one descriptor per regular file in dir, in natural name
// order. If the directory cannot be read a single *DirectoryReadError is
// yielded.
func (l *FilesystemLister) ScanDirectory(ctx context.Context, dir string) iter.Seq2[FileDescriptor, error] {
	return func(yield func(FileDescriptor, error) bool) {
		entries, err := l.fs.ReadDir(dir)
		if err != nil {
			yield(FileDescriptor{}, &DirectoryReadError{Path: dir, Err: err})
			return
		}

		var names []string
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			if l.excluded(dir, entry.Name()) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.SliceStable(names, func(i, j int) bool {
			return naturalLess(names[i], names[j])
		})

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				yield(FileDescriptor{}, err)
				return
			}
			if !yield(l.describe(dir, name), nil) {
				return
			}
		}
	}
}

func (l *FilesystemLister) ListFiles(ctx context.Context, dir string) ([]FileDescriptor, error) {
	files := []FileDescriptor{}
	for file, err := range l.ScanDirectory(ctx, dir) {
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// OccupiedNames returns the entries of dir that ListFiles leaves out: hidden
// and excluded files, the journal, subdirectories and other non-regular
// entries. Their names are still taken on disk.
func (l *FilesystemLister) OccupiedNames(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryReadError{Path: dir, Err: err}
	}

	names := []string{}
	for _, entry := range entries {
		if entry.Type().IsRegular() && !l.excluded(dir, entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l *FilesystemLister) describe(dir, name string) FileDescriptor {
	path := filepath.Join(dir, name)
	info, err := l.fs.Lstat(path)
	if err != nil {
		l.log.WithError(err).WithField("file", name).Debug("Cannot stat file")
		return NewFileDescriptor(name, 0, nil, nil)
	}

	modTime := info.ModTime()
	var size uint64
	if info.Size() > 0 {
		size = uint64(info.Size())
	}
	return NewFileDescriptor(name, size, &modTime, birthTime(path, info))
}

func (l *FilesystemLister) excluded(dir, name string) bool {
	if !l.config.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	for _, pattern := range l.config.ExcludePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}

	if journal := l.config.JournalPath; journal != "" && filepath.Dir(journal) == filepath.Clean(dir) {
		base := filepath.Base(journal)
		if name == base || name == base+"-wal" || name == base+"-shm" || name == base+"-journal" {
			return true
		}
	}

	return false
}

// naturalLess orders names so that digit runs compare numerically and letters
// compare case-insensitively: "file2" sorts before "file10".
func naturalLess(a, b string) bool {
	ai, bi, la, lb := 0, 0, len(a), len(b)
	for ai < la && bi < lb {
		ca, cb := a[ai], b[bi]
		if isDigit(ca) && isDigit(cb) {
			startA, startB := ai, bi
			for ai < la && isDigit(a[ai]) {
				ai++
			}
			for bi < lb && isDigit(b[bi]) {
				bi++
			}

			numA := strings.TrimLeft(a[startA:ai], "0")
			numB := strings.TrimLeft(b[startB:bi], "0")
			if len(numA) != len(numB) {
				return len(numA) < len(numB)
			}
			if numA != numB {
				return numA < numB
			}
			if lenA, lenB := ai-startA, bi-startB; lenA != lenB {
				return lenA < lenB
			}
			continue
		}

		if lowA, lowB := toLowerByte(ca), toLowerByte(cb); lowA != lowB {
			return lowA < lowB
		}
		ai++
		bi++
	}
	if la-ai != lb-bi {
		return la-ai < lb-bi
	}
	return a < b
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func toLowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func humanSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
