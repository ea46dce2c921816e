package batchrename

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type Validator interface {
	ValidateRule(rule Rule) *ValidationResult
	ValidatePath(path string) error
	ValidateConfig(config *Config) error
}

type DefaultValidator struct {
	config *Config
}

func NewDefaultValidator(config *Config) *DefaultValidator {
	return &DefaultValidator{
		config: config,
	}
}

// ValidateRule reports problems with a rule's configuration. The engine never
// fails on these; a rule with an invalid pattern simply has no effect.
func (v *DefaultValidator) ValidateRule(rule Rule) *ValidationResult {
	result := &ValidationResult{
		IsValid:     true,
		Issues:      []string{},
		Suggestions: []string{},
	}

	issue := func(msg string, suggestions ...string) {
		result.IsValid = false
		result.Issues = append(result.Issues, msg)
		result.Suggestions = append(result.Suggestions, suggestions...)
	}

	switch r := rule.(type) {
	case Prefix:
		if r.Value == "" {
			issue("Prefix is empty; rule has no effect")
		}
		checkFragment(r.Value, issue)
	case Suffix:
		if r.Value == "" {
			issue("Suffix is empty; rule has no effect")
		}
		checkFragment(r.Value, issue)
	case Replace:
		if r.Find == "" {
			issue("Find text is empty; rule has no effect")
		} else if r.UseRegex {
			checkPattern(r.Find, r.CaseSensitive, issue)
		}
		checkFragment(r.Replace, issue)
	case RemoveChars:
		if r.Chars == "" {
			issue("No characters given; rule has no effect")
		}
	case Case:
		checkChoice("case mode", r.Mode, []string{CaseUpper, CaseLower, CaseTitle, CaseCamel, CaseSnake, CaseKebab}, issue)
	case Sequential:
		checkChoice("position", r.Position, []string{PlacePrefix, PlaceSuffix, PlaceReplace}, issue)
		if r.Padding < 0 {
			issue("Padding cannot be negative", "Use 0 for no padding")
		}
		checkFragment(r.Separator, issue)
	case InsertAt:
		if r.Value == "" {
			issue("Insert text is empty; rule has no effect")
		}
		checkFragment(r.Value, issue)
	case RemoveAt:
		if r.Count < 1 {
			issue("Count must be at least 1", "Consider: count 1")
		}
	case FilterExt:
		if len(r.Extensions) == 0 {
			issue("No extensions given; filter has no effect", "Consider: extensions [\"txt\", \"jpg\"]")
		}
	case ChangeExt:
		checkFragment(r.Value, issue)
	case TrimSpaces:
		checkChoice("whitespace mode", r.Mode, []string{TrimEdges, TrimSingle, TrimRemove}, issue)
	case RemoveSpecial:
	case DateRename:
		checkChoice("date source", r.Source, []string{SourceModTime, SourceBirthTime}, issue)
		checkChoice("position", r.Position, []string{PlacePrefix, PlaceSuffix, PlaceReplace}, issue)
		if !containsDateToken(r.Format) {
			issue("Date format contains no date tokens", "Consider: YYYY-MM-DD")
		}
		checkFragment(r.Format, issue)
		checkFragment(r.Separator, issue)
	case Regex:
		if r.Find == "" {
			issue("Pattern is empty; rule has no effect")
		} else {
			checkPattern(r.Find, r.CaseSensitive, issue)
		}
		checkFragment(r.Replace, issue)
	}

	return result
}

func containsDateToken(format string) bool {
	for _, tok := range dateTokens {
		if strings.Contains(format, tok.token) {
			return true
		}
	}
	return false
}

func checkPattern(pattern string, caseSensitive bool, issue func(string, ...string)) {
	if !caseSensitive {
		pattern = `(?i)` + pattern
	}
	if _, err := regexp.Compile(pattern); err != nil {
		issue(fmt.Sprintf("Invalid regular expression: %v", err), "The rule is skipped until the pattern compiles")
	}
}

func checkChoice(what, value string, choices []string, issue func(string, ...string)) {
	for _, choice := range choices {
		if value == choice {
			return
		}
	}
	issue(fmt.Sprintf("Unknown %s %q", what, value), "Valid values: "+strings.Join(choices, ", "))
}

func checkFragment(value string, issue func(string, ...string)) {
	if strings.ContainsAny(value, "/\x00") || strings.ContainsRune(value, filepath.Separator) {
		issue(fmt.Sprintf("Text %q contains a path separator", value), "Remove path separators from the text")
	}
}

// ValidatePath checks that path is an absolute, existing directory.
func (v *DefaultValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path contains directory traversal")
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

func (v *DefaultValidator) ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if config.TempPrefix == "" {
		return fmt.Errorf("temp_prefix cannot be empty")
	}

	if err := ValidateName(config.TempPrefix); err != nil {
		return fmt.Errorf("invalid temp_prefix: %w", err)
	}

	if config.MaxReportedErrors < 0 {
		return fmt.Errorf("max_reported_errors cannot be negative")
	}

	for _, pattern := range config.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	if config.LogLevel != "" && !strings.EqualFold(config.LogLevel, LevelSilent) {
		if _, err := parseLevel(config.LogLevel); err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
	}

	return nil
}

// ValidateName checks that name is usable as a single path element inside the
// target directory.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name: %w", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	case strings.ContainsAny(name, "/\x00") || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("%q contains a path separator: %w", name, ErrInvalidName)
	}
	return nil
}
