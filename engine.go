package batchrename

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	titleWordPattern = regexp.MustCompile(`[\p{L}\p{N}_]\S*`)
	camelSepPattern  = regexp.MustCompile(`[^\p{L}\p{N}]+.`)
)

// SplitName splits a file name into base and extension. A leading dot does not
// start an extension, so ".env" has no extension.
func SplitName(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// ApplyRule applies a single rule to parts. index is the sequential position of
// the file among the non-skipped files of its batch and is only read by
// Sequential. ApplyRule performs no I/O and never fails: a rule with an
// unusable pattern leaves parts unchanged.
func ApplyRule(parts Parts, rule Rule, index int) Parts {
	switch r := rule.(type) {
	case Prefix:
		parts.Base = r.Value + parts.Base
	case Suffix:
		parts.Base = parts.Base + r.Value
	case Replace:
		parts.Base = applyReplace(parts.Base, r)
	case RemoveChars:
		parts.Base = removeChars(parts.Base, r.Chars)
	case Case:
		parts.Base = applyCase(parts.Base, r.Mode)
	case Sequential:
		number := fmt.Sprintf("%0*d", max(r.Padding, 0), r.Start+index)
		parts.Base = place(parts.Base, number, r.Separator, r.Position)
	case InsertAt:
		parts.Base = insertAt(parts.Base, r.Value, r.Position)
	case RemoveAt:
		parts.Base = removeAt(parts.Base, r.Start, r.Count)
	case FilterExt:
		// consumed by Preview
	case ChangeExt:
		parts.Ext = normalizeExt(r.Value)
	case TrimSpaces:
		parts.Base = trimSpaces(parts.Base, r.Mode)
	case RemoveSpecial:
		parts.Base = strings.Map(keepPlain, parts.Base)
	case DateRename:
		stamp := FormatDate(sourceTime(parts, r.Source), r.Format)
		parts.Base = place(parts.Base, stamp, r.Separator, r.Position)
	case Regex:
		if r.Find != "" {
			parts.Base = regexReplace(parts.Base, r.Find, r.Replace, r.CaseSensitive)
		}
	}
	return parts
}

// ApplyRules threads parts through every rule in order.
func ApplyRules(parts Parts, rules []Rule, index int) Parts {
	for _, rule := range rules {
		parts = ApplyRule(parts, rule, index)
	}
	return parts
}

func applyReplace(base string, r Replace) string {
	if r.Find == "" {
		return base
	}
	if r.UseRegex {
		return regexReplace(base, r.Find, r.Replace, r.CaseSensitive)
	}
	if r.CaseSensitive {
		return strings.ReplaceAll(base, r.Find, r.Replace)
	}
	return replaceAll(regexp.MustCompile(`(?i)`+regexp.QuoteMeta(r.Find)), base, r.Replace)
}

func regexReplace(base, pattern, replacement string, caseSensitive bool) string {
	if !caseSensitive {
		pattern = `(?i)` + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return base
	}
	return replaceAll(re, base, replacement)
}

// replaceAll replaces every match of re in src. The replacement uses
// JavaScript substitution patterns rather than regexp.Expand templates, so rule
// files written for other renamers keep their meaning.
func replaceAll(re *regexp.Regexp, src, replacement string) string {
	matches := re.FindAllStringSubmatchIndex(src, -1)
	if matches == nil {
		return src
	}

	var b strings.Builder
	last := 0
	for _, match := range matches {
		b.WriteString(src[last:match[0]])
		expandReplacement(&b, re, src, replacement, match)
		last = match[1]
	}
	b.WriteString(src[last:])
	return b.String()
}

// expandReplacement resolves $$, $&, $`, $', $n, $nn and $<name> against one
// match. Anything else, including references to groups that do not exist, is
// copied literally. Groups that did not participate expand to nothing.
func expandReplacement(b *strings.Builder, re *regexp.Regexp, src, replacement string, match []int) {
	groups := re.NumSubexp()
	group := func(n int) string {
		if match[2*n] < 0 {
			return ""
		}
		return src[match[2*n]:match[2*n+1]]
	}

	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		if c != '$' || i+1 == len(replacement) {
			b.WriteByte(c)
			continue
		}

		next := replacement[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(group(0))
			i++
		case next == '`':
			b.WriteString(src[:match[0]])
			i++
		case next == '\'':
			b.WriteString(src[match[1]:])
			i++
		case isDigit(next):
			n, width := int(next-'0'), 1
			if i+2 < len(replacement) && isDigit(replacement[i+2]) {
				if nn := n*10 + int(replacement[i+2]-'0'); nn >= 1 && nn <= groups {
					n, width = nn, 2
				}
			}
			if n < 1 || n > groups {
				b.WriteByte(c)
				continue
			}
			b.WriteString(group(n))
			i += width
		case next == '<' && hasNamedGroups(re):
			end := strings.IndexByte(replacement[i+2:], '>')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			if idx := re.SubexpIndex(replacement[i+2 : i+2+end]); idx > 0 {
				b.WriteString(group(idx))
			}
			i += end + 2
		default:
			b.WriteByte(c)
		}
	}
}

func hasNamedGroups(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames() {
		if name != "" {
			return true
		}
	}
	return false
}

func removeChars(base, chars string) string {
	if chars == "" {
		return base
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, base)
}

func applyCase(base, mode string) string {
	switch mode {
	case CaseUpper:
		return strings.ToUpper(base)
	case CaseLower:
		return strings.ToLower(base)
	case CaseTitle:
		return titleWordPattern.ReplaceAllStringFunc(base, func(word string) string {
			runes := []rune(word)
			return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
		})
	case CaseCamel:
		return camelSepPattern.ReplaceAllStringFunc(strings.ToLower(base), func(match string) string {
			runes := []rune(match)
			return strings.ToUpper(string(runes[len(runes)-1]))
		})
	case CaseSnake:
		return replaceSpaceRuns(strings.ToLower(base), "_")
	case CaseKebab:
		return replaceSpaceRuns(strings.ToLower(base), "-")
	}
	return base
}

func replaceSpaceRuns(s, replacement string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteString(replacement)
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func trimSpaces(base, mode string) string {
	switch mode {
	case TrimEdges:
		return strings.TrimSpace(base)
	case TrimSingle:
		return strings.Join(strings.Fields(base), " ")
	case TrimRemove:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, base)
	}
	return base
}

// keepPlain drops everything except ASCII letters and digits, whitespace,
// hyphen, underscore and dot.
func keepPlain(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case r == '-', r == '_', r == '.', unicode.IsSpace(r):
		return r
	}
	return -1
}

func insertAt(base, value string, position int) string {
	if value == "" {
		return base
	}
	runes := []rune(base)
	idx := clampIndex(position, len(runes))
	return string(runes[:idx]) + value + string(runes[idx:])
}

func removeAt(base string, start, count int) string {
	if count <= 0 {
		return base
	}
	runes := []rune(base)
	from := clampIndex(start, len(runes))
	to := min(from+count, len(runes))
	return string(runes[:from]) + string(runes[to:])
}

// clampIndex resolves a possibly negative index against a length n. Negative
// values count from the end.
func clampIndex(pos, n int) int {
	if pos < 0 {
		return max(0, n+pos)
	}
	return min(pos, n)
}

func normalizeExt(value string) string {
	if value == "" || strings.HasPrefix(value, ".") {
		return value
	}
	return "." + value
}

func place(base, value, separator, position string) string {
	switch position {
	case PlacePrefix:
		return value + separator + base
	case PlaceReplace:
		return value
	default:
		return base + separator + value
	}
}

func sourceTime(parts Parts, source string) *time.Time {
	if source == SourceBirthTime {
		return parts.BirthTime
	}
	return parts.ModTime
}

var dateTokens = []struct {
	token  string
	layout func(t time.Time) string
}{
	{"YYYY", func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	{"YY", func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) }},
	{"MM", func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }},
	{"DD", func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
	{"HH", func(t time.Time) string { return fmt.Sprintf("%02d", t.Hour()) }},
	{"mm", func(t time.Time) string { return fmt.Sprintf("%02d", t.Minute()) }},
	{"ss", func(t time.Time) string { return fmt.Sprintf("%02d", t.Second()) }},
}

// FormatDate renders t in local time using the tokens YYYY, YY, MM, DD, HH, mm
// and ss. The format is scanned once from left to right, so substituted text is
// never matched again. A nil time renders as "unknown".
func FormatDate(t *time.Time, format string) string {
	if t == nil {
		return "unknown"
	}
	local := t.Local()

	var b strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(format[i:], tok.token) {
				b.WriteString(tok.layout(local))
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}
