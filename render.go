package batchrename

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes human-readable tables for CLI output. Styles are bound to the
// output writer, so redirected output carries no escape sequences.
type Printer struct {
	w         io.Writer
	maxErrors int

	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	dim    lipgloss.Style
	cell   func(width int) lipgloss.Style
}

func NewPrinter(w io.Writer, maxErrors int) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:         w,
		maxErrors: maxErrors,
		header:    r.NewStyle().Bold(true).Underline(true),
		ok:        r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:      r.NewStyle().Foreground(lipgloss.Color("3")),
		bad:       r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:       r.NewStyle().Faint(true),
		cell: func(width int) lipgloss.Style {
			return r.NewStyle().Width(width + 2)
		},
	}
}

func (p *Printer) Files(folder string, files []FileDescriptor) {
	p.printf("%s (%d files)\n", p.header.Render(folder), len(files))
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f.Name, humanSize(f.Size), formatTimestamp(f.ModTime), formatTimestamp(f.BirthTime)})
	}
	p.table([]string{"NAME", "SIZE", "MODIFIED", "CREATED"}, rows, nil)
}

func (p *Printer) Previews(previews []PreviewEntry) {
	rows := make([][]string, 0, len(previews))
	styles := make([]*lipgloss.Style, 0, len(previews))
	var changed, skipped, conflicts int
	for _, e := range previews {
		status := "unchanged"
		style := &p.dim
		switch {
		case e.Skip:
			status = "skipped"
			skipped++
		case e.Conflict:
			status = "CONFLICT"
			style = &p.bad
			conflicts++
		case e.Changed:
			status = "rename"
			style = &p.ok
			changed++
		}
		rows = append(rows, []string{e.Original, "→", e.Renamed, status})
		styles = append(styles, style)
	}
	p.table([]string{"ORIGINAL", "", "RENAMED", "STATUS"}, rows, styles)

	summary := fmt.Sprintf("%d to rename, %d skipped, %d unchanged",
		changed, skipped, len(previews)-changed-skipped-conflicts)
	p.printf("\n%s", summary)
	if conflicts > 0 {
		p.printf(", %s", p.bad.Render(fmt.Sprintf("%d conflicts", conflicts)))
	}
	p.printf("\n")
}

func (p *Printer) RenameResult(result *RenameResult, batchID string) {
	p.printf("\n%s renamed, %s failed, %d skipped\n",
		p.ok.Render(fmt.Sprint(result.Success)),
		p.failedCount(result.Failed),
		result.Skipped)
	if batchID != "" {
		p.printf("%s\n", p.dim.Render("undo batch "+batchID))
	}
	p.errors(result.Errors)
}

func (p *Printer) UndoResult(result *UndoResult) {
	p.printf("%s restored, %s failed\n",
		p.ok.Render(fmt.Sprint(result.Success)),
		p.failedCount(result.Failed))
	p.errors(result.Errors)
}

func (p *Printer) History(batches []JournalBatch) {
	if len(batches) == 0 {
		p.printf("No rename batches recorded\n")
		return
	}
	rows := make([][]string, 0, len(batches))
	styles := make([]*lipgloss.Style, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			b.ID,
			b.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(b.Status),
			fmt.Sprint(len(b.Entries)),
			b.Folder,
		})
		style := &p.dim
		if b.Status == BatchPending {
			style = &p.ok
		}
		styles = append(styles, style)
	}
	p.table([]string{"BATCH", "CREATED", "STATUS", "FILES", "FOLDER"}, rows, styles)
}

func (p *Printer) Validation(rules []Rule, results []*ValidationResult) {
	for i, result := range results {
		name := Describe(rules[i])
		if result.IsValid {
			p.printf("%s %s\n", p.ok.Render("✓"), name)
			continue
		}
		p.printf("%s %s\n", p.bad.Render("✗"), name)
		for _, issue := range result.Issues {
			p.printf("  Issue: %s\n", issue)
		}
		for _, suggestion := range result.Suggestions {
			p.printf("  → %s\n", suggestion)
		}
	}
}

func (p *Printer) Rules(rules []Rule) {
	rows := make([][]string, 0, len(rules))
	for _, rule := range rules {
		fields, err := ruleFields(rule)
		if err != nil {
			continue
		}
		delete(fields, "type")
		var defaults []string
		for _, key := range slices.Sorted(maps.Keys(fields)) {
			defaults = append(defaults, fmt.Sprintf("%s=%v", key, fields[key]))
		}
		rows = append(rows, []string{string(rule.Kind()), strings.Join(defaults, " ")})
	}
	p.table([]string{"TYPE", "DEFAULTS"}, rows, nil)
}

func (p *Printer) failedCount(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return p.bad.Render(fmt.Sprint(n))
}

func (p *Printer) errors(errs []FileError) {
	if len(errs) == 0 {
		return
	}
	shown := firstN(errs, p.maxErrors)
	for _, e := range shown {
		p.printf("  %s %s: %s\n", p.bad.Render("!"), e.File, e.Error)
	}
	if hidden := len(errs) - len(shown); hidden > 0 {
		p.printf("  %s\n", p.dim.Render(fmt.Sprintf("... and %d more", hidden)))
	}
}

// table prints rows in aligned columns. styles, when set, colours each row.
func (p *Printer) table(headers []string, rows [][]string, styles []*lipgloss.Style) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		var b strings.Builder
		for i, c := range cells {
			if i == len(cells)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(p.cell(widths[i]).Render(c))
		}
		out := strings.TrimRight(b.String(), " ")
		if style != nil {
			out = style.Render(out)
		}
		return out
	}

	p.printf("%s\n", p.header.Render(line(headers, nil)))
	for i, row := range rows {
		var style *lipgloss.Style
		if styles != nil {
			style = styles[i]
		}
		p.printf("%s\n", line(row, style))
	}
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// firstN returns at most n leading items; n <= 0 means no limit.
func firstN[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
