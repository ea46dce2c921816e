package batchrename

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Preview projects the outcome of applying rules to files without touching
// disk. The result has one entry per file, in batch order, and depends only on
// its inputs.
func Preview(files []FileDescriptor, rules []Rule) []PreviewEntry {
	return PreviewWithOccupied(files, rules, nil)
}

// PreviewWithOccupied is Preview for a folder that also holds names outside the
// batch, such as hidden files or subdirectories. Renaming onto any of them is a
// conflict.
func PreviewWithOccupied(files []FileDescriptor, rules []Rule, occupied []string) []PreviewEntry {
	previews := make([]PreviewEntry, len(files))
	if len(rules) == 0 {
		for i, file := range files {
			previews[i] = PreviewEntry{Original: file.Name, Renamed: file.Name}
		}
		return previews
	}

	allowed := allowedExtensions(rules)
	pipeline := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if _, ok := rule.(FilterExt); !ok {
			pipeline = append(pipeline, rule)
		}
	}

	index := 0
	for i, file := range files {
		if allowed != nil && !allowed.admits(file.Ext) {
			previews[i] = PreviewEntry{Original: file.Name, Renamed: file.Name, Skip: true}
			continue
		}

		parts := ApplyRules(Parts{
			Base:      file.Base,
			Ext:       file.Ext,
			ModTime:   file.ModTime,
			BirthTime: file.BirthTime,
		}, pipeline, index)
		index++

		renamed := parts.Name()
		previews[i] = PreviewEntry{
			Original: file.Name,
			Renamed:  renamed,
			Changed:  renamed != file.Name,
		}
	}

	markConflicts(previews, occupied)
	return previews
}

// HasConflicts reports whether any entry in previews is in conflict.
func HasConflicts(previews []PreviewEntry) bool {
	return CountConflicts(previews) > 0
}

func CountConflicts(previews []PreviewEntry) int {
	count := 0
	for _, p := range previews {
		if p.Conflict {
			count++
		}
	}
	return count
}

// extensionFilter holds one allowed-extension set per FilterExt rule. A file
// must be admitted by every set.
type extensionFilter []map[string]bool

func allowedExtensions(rules []Rule) extensionFilter {
	var filter extensionFilter
	for _, rule := range rules {
		fe, ok := rule.(FilterExt)
		if !ok {
			continue
		}
		set := make(map[string]bool)
		for _, ext := range fe.Extensions {
			if key := extensionKey(ext); key != "" {
				set[key] = true
			}
		}
		if len(set) > 0 {
			filter = append(filter, set)
		}
	}
	return filter
}

func (f extensionFilter) admits(ext string) bool {
	key := extensionKey(ext)
	for _, set := range f {
		if !set[key] {
			return false
		}
	}
	return true
}

func extensionKey(ext string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// nameKey folds a file name for collision checks: case-insensitive and
// insensitive to Unicode composition.
func nameKey(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}

// markConflicts flags entries whose target is claimed by another entry or is
// held by a name that stays put. Entries that are skipped, unchanged or in
// conflict keep their original names, so each newly flagged entry can block
// further ones; the pass repeats until nothing changes.
func markConflicts(previews []PreviewEntry, external []string) {
	byTarget := make(map[string][]int)
	occupied := make(map[string]bool, len(external))
	for _, name := range external {
		occupied[nameKey(name)] = true
	}

	for i, p := range previews {
		if p.Skip || !p.Changed {
			occupied[nameKey(p.Original)] = true
		}
		if !p.Skip {
			key := nameKey(p.Renamed)
			byTarget[key] = append(byTarget[key], i)
		}
	}

	for _, indexes := range byTarget {
		if len(indexes) < 2 {
			continue
		}
		for _, i := range indexes {
			previews[i].Conflict = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, p := range previews {
			if p.Conflict {
				occupied[nameKey(p.Original)] = true
			}
		}
		for i, p := range previews {
			if p.Skip || !p.Changed || p.Conflict {
				continue
			}
			if occupied[nameKey(p.Renamed)] {
				previews[i].Conflict = true
				changed = true
			}
		}
	}
}
