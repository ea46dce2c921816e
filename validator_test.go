package batchrename_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchrename "github.com/thrawn01/batch-rename"
)

func TestDefaultValidator_ValidateRule(t *testing.T) {
	config := batchrename.DefaultConfig()
	validator := batchrename.NewDefaultValidator(config)

	tests := []struct {
		name           string
		rule           batchrename.Rule
		expectValid    bool
		expectedIssues []string
	}{
		{
			name:        "ValidPrefix",
			rule:        batchrename.Prefix{Value: "trip_"},
			expectValid: true,
		},
		{
			name:           "EmptyPrefix",
			rule:           batchrename.Prefix{},
			expectedIssues: []string{"Prefix is empty"},
		},
		{
			name:           "SuffixWithSeparator",
			rule:           batchrename.Suffix{Value: "a/b"},
			expectedIssues: []string{"path separator"},
		},
		{
			name:        "ValidRegexReplace",
			rule:        batchrename.Replace{Find: `\d+`, Replace: "#", UseRegex: true},
			expectValid: true,
		},
		{
			name:           "InvalidRegexReplace",
			rule:           batchrename.Replace{Find: `(`, UseRegex: true},
			expectedIssues: []string{"Invalid regular expression"},
		},
		{
			name:        "LiteralReplaceIgnoresRegexSyntax",
			rule:        batchrename.Replace{Find: `(`, Replace: "_"},
			expectValid: true,
		},
		{
			name:           "EmptyRemoveChars",
			rule:           batchrename.RemoveChars{},
			expectedIssues: []string{"No characters given"},
		},
		{
			name:           "UnknownCaseMode",
			rule:           batchrename.Case{Mode: "sarcastic"},
			expectedIssues: []string{`Unknown case mode "sarcastic"`},
		},
		{
			name:        "ValidSequential",
			rule:        batchrename.Sequential{Start: 1, Padding: 3, Separator: "_", Position: batchrename.PlaceSuffix},
			expectValid: true,
		},
		{
			name:           "NegativePadding",
			rule:           batchrename.Sequential{Start: 1, Padding: -1, Position: batchrename.PlacePrefix},
			expectedIssues: []string{"Padding cannot be negative"},
		},
		{
			name:           "RemoveAtZeroCount",
			rule:           batchrename.RemoveAt{Count: 0},
			expectedIssues: []string{"Count must be at least 1"},
		},
		{
			name:           "EmptyFilter",
			rule:           batchrename.FilterExt{},
			expectedIssues: []string{"No extensions given"},
		},
		{
			name:        "ChangeExtEmptyIsValid",
			rule:        batchrename.ChangeExt{},
			expectValid: true,
		},
		{
			name:           "UnknownTrimMode",
			rule:           batchrename.TrimSpaces{Mode: "squash"},
			expectedIssues: []string{"Unknown whitespace mode"},
		},
		{
			name:        "RemoveSpecial",
			rule:        batchrename.RemoveSpecial{},
			expectValid: true,
		},
		{
			name:           "DateWithoutTokens",
			rule:           batchrename.DateRename{Source: batchrename.SourceModTime, Format: "date", Position: batchrename.PlacePrefix},
			expectedIssues: []string{"no date tokens"},
		},
		{
			name:           "DateUnknownSource",
			rule:           batchrename.DateRename{Source: "atime", Format: "YYYY", Position: batchrename.PlacePrefix},
			expectedIssues: []string{"Unknown date source"},
		},
		{
			name:           "InvalidRegex",
			rule:           batchrename.Regex{Find: `[a-`},
			expectedIssues: []string{"Invalid regular expression"},
		},
		{
			name:           "EmptyRegex",
			rule:           batchrename.Regex{},
			expectedIssues: []string{"Pattern is empty"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := validator.ValidateRule(test.rule)
			require.NotNil(t, result)

			if test.expectValid {
				assert.True(t, result.IsValid, "issues: %v", result.Issues)
				assert.Empty(t, result.Issues)
				return
			}

			assert.False(t, result.IsValid)
			for _, expected := range test.expectedIssues {
				found := false
				for _, issue := range result.Issues {
					if strings.Contains(issue, expected) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected issue containing %q, got %v", expected, result.Issues)
			}
		})
	}
}

func TestDefaultValidator_ValidatePath(t *testing.T) {
	validator := batchrename.NewDefaultValidator(batchrename.DefaultConfig())
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name        string
		path        string
		expectError string
	}{
		{name: "ValidDirectory", path: dir},
		{name: "Empty", path: "", expectError: "cannot be empty"},
		{name: "Relative", path: "photos", expectError: "must be absolute"},
		{name: "Traversal", path: dir + "/../" + filepath.Base(dir), expectError: "directory traversal"},
		{name: "Missing", path: filepath.Join(dir, "missing"), expectError: "does not exist"},
		{name: "NotADirectory", path: file, expectError: "not a directory"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := validator.ValidatePath(test.path)
			if test.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.expectError)
		})
	}
}

func TestDefaultValidator_ValidateConfig(t *testing.T) {
	validator := batchrename.NewDefaultValidator(nil)

	assert.NoError(t, validator.ValidateConfig(batchrename.DefaultConfig()))
	assert.Error(t, validator.ValidateConfig(nil))

	tests := []struct {
		name   string
		modify func(c *batchrename.Config)
	}{
		{name: "EmptyTempPrefix", modify: func(c *batchrename.Config) { c.TempPrefix = "" }},
		{name: "TempPrefixWithSeparator", modify: func(c *batchrename.Config) { c.TempPrefix = "tmp/" }},
		{name: "NegativeMaxErrors", modify: func(c *batchrename.Config) { c.MaxReportedErrors = -1 }},
		{name: "BadExcludePattern", modify: func(c *batchrename.Config) { c.ExcludePatterns = []string{"["} }},
		{name: "BadLogLevel", modify: func(c *batchrename.Config) { c.LogLevel = "loud" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := batchrename.DefaultConfig()
			test.modify(config)
			assert.Error(t, validator.ValidateConfig(config))
		})
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"a.txt", ".env", "spaces are fine", "ünïcödé"} {
		assert.NoError(t, batchrename.ValidateName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", "../up", "nul\x00byte"} {
		assert.ErrorIs(t, batchrename.ValidateName(name), batchrename.ErrInvalidName, name)
	}
}
