package batchrename

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleKind is the wire tag identifying a rule variant.
type RuleKind string

const (
	KindPrefix        RuleKind = "prefix"
	KindSuffix        RuleKind = "suffix"
	KindReplace       RuleKind = "replace"
	KindRemoveChars   RuleKind = "removeChars"
	KindCase          RuleKind = "case"
	KindSequential    RuleKind = "sequential"
	KindInsertAt      RuleKind = "insertAt"
	KindRemoveAt      RuleKind = "removeAt"
	KindFilterExt     RuleKind = "filterExt"
	KindChangeExt     RuleKind = "changeExt"
	KindTrimSpaces    RuleKind = "trimSpaces"
	KindRemoveSpecial RuleKind = "removeSpecial"
	KindDateRename    RuleKind = "dateRename"
	KindRegex         RuleKind = "regex"
)

// Placement values shared by Sequential and DateRename.
const (
	PlacePrefix  = "prefix"
	PlaceSuffix  = "suffix"
	PlaceReplace = "replace"
)

// Case modes.
const (
	CaseUpper = "upper"
	CaseLower = "lower"
	CaseTitle = "title"
	CaseCamel = "camel"
	CaseSnake = "snake"
	CaseKebab = "kebab"
)

// Whitespace modes for TrimSpaces.
const (
	TrimEdges  = "trim"
	TrimSingle = "single"
	TrimRemove = "remove"
)

// Timestamp sources for DateRename.
const (
	SourceModTime   = "mtime"
	SourceBirthTime = "birthtime"
)

// Rule is one step of a rename pipeline. The set of implementations is closed;
// ApplyRule switches over every variant.
type Rule interface {
	Kind() RuleKind
	isRule()
}

type Prefix struct {
	Value string `json:"value"`
}

type Suffix struct {
	Value string `json:"value"`
}

type Replace struct {
	Find          string `json:"find"`
	Replace       string `json:"replace"`
	CaseSensitive bool   `json:"caseSensitive"`
	UseRegex      bool   `json:"useRegex"`
}

type RemoveChars struct {
	Chars string `json:"chars"`
}

type Case struct {
	Mode string `json:"mode"`
}

type Sequential struct {
	Start     int    `json:"start"`
	Padding   int    `json:"padding"`
	Separator string `json:"separator"`
	Position  string `json:"position"`
}

type InsertAt struct {
	Value    string `json:"value"`
	Position int    `json:"position"`
}

type RemoveAt struct {
	Start int `json:"start"`
	Count int `json:"count"`
}

// FilterExt restricts the batch to files with one of the listed extensions.
// It is consumed by Preview and is a no-op inside the pipeline. When a rule
// list holds several FilterExt rules a file must match every one of them; an
// empty extension list admits everything.
type FilterExt struct {
	Extensions []string `json:"extensions"`
}

type ChangeExt struct {
	Value string `json:"value"`
}

type TrimSpaces struct {
	Mode string `json:"mode"`
}

type RemoveSpecial struct{}

type DateRename struct {
	Source    string `json:"source"`
	Format    string `json:"format"`
	Position  string `json:"position"`
	Separator string `json:"separator"`
}

type Regex struct {
	Find          string `json:"find"`
	Replace       string `json:"replace"`
	CaseSensitive bool   `json:"caseSensitive"`
}

func (Prefix) Kind() RuleKind        { return KindPrefix }
func (Suffix) Kind() RuleKind        { return KindSuffix }
func (Replace) Kind() RuleKind       { return KindReplace }
func (RemoveChars) Kind() RuleKind   { return KindRemoveChars }
func (Case) Kind() RuleKind          { return KindCase }
func (Sequential) Kind() RuleKind    { return KindSequential }
func (InsertAt) Kind() RuleKind      { return KindInsertAt }
func (RemoveAt) Kind() RuleKind      { return KindRemoveAt }
func (FilterExt) Kind() RuleKind     { return KindFilterExt }
func (ChangeExt) Kind() RuleKind     { return KindChangeExt }
func (TrimSpaces) Kind() RuleKind    { return KindTrimSpaces }
func (RemoveSpecial) Kind() RuleKind { return KindRemoveSpecial }
func (DateRename) Kind() RuleKind    { return KindDateRename }
func (Regex) Kind() RuleKind         { return KindRegex }

func (Prefix) isRule()        {}
func (Suffix) isRule()        {}
func (Replace) isRule()       {}
func (RemoveChars) isRule()   {}
func (Case) isRule()          {}
func (Sequential) isRule()    {}
func (InsertAt) isRule()      {}
func (RemoveAt) isRule()      {}
func (FilterExt) isRule()     {}
func (ChangeExt) isRule()     {}
func (TrimSpaces) isRule()    {}
func (RemoveSpecial) isRule() {}
func (DateRename) isRule()    {}
func (Regex) isRule()         {}

// DefaultRule returns a rule of the given kind populated with the defaults a
// freshly created rule starts with. Decoding starts from these values, so
// fields absent from the wire form keep them.
func DefaultRule(kind RuleKind) (Rule, error) {
	switch kind {
	case KindPrefix:
		return Prefix{}, nil
	case KindSuffix:
		return Suffix{}, nil
	case KindReplace:
		return Replace{}, nil
	case KindRemoveChars:
		return RemoveChars{}, nil
	case KindCase:
		return Case{Mode: CaseTitle}, nil
	case KindSequential:
		return Sequential{Start: 1, Padding: 3, Separator: "_", Position: PlaceSuffix}, nil
	case KindInsertAt:
		return InsertAt{}, nil
	case KindRemoveAt:
		return RemoveAt{Start: 0, Count: 1}, nil
	case KindFilterExt:
		return FilterExt{}, nil
	case KindChangeExt:
		return ChangeExt{}, nil
	case KindTrimSpaces:
		return TrimSpaces{Mode: TrimEdges}, nil
	case KindRemoveSpecial:
		return RemoveSpecial{}, nil
	case KindDateRename:
		return DateRename{Source: SourceModTime, Format: "YYYY-MM-DD", Position: PlacePrefix, Separator: "_"}, nil
	case KindRegex:
		return Regex{}, nil
	default:
		return nil, fmt.Errorf("unknown rule type: %q", kind)
	}
}

// RuleKinds lists every rule kind in a stable order.
func RuleKinds() []RuleKind {
	return []RuleKind{
		KindPrefix, KindSuffix, KindReplace, KindRemoveChars, KindCase,
		KindSequential, KindInsertAt, KindRemoveAt, KindFilterExt, KindChangeExt,
		KindTrimSpaces, KindRemoveSpecial, KindDateRename, KindRegex,
	}
}

type ruleHeader struct {
	Type RuleKind `json:"type"`
}

// DecodeRule decodes the plain-object wire form of a rule.
func DecodeRule(data []byte) (Rule, error) {
	var header ruleHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	if header.Type == "" {
		return nil, fmt.Errorf("rule is missing its type")
	}

	rule, err := DefaultRule(header.Type)
	if err != nil {
		return nil, err
	}

	switch r := rule.(type) {
	case Prefix:
		return decodeInto(data, r)
	case Suffix:
		return decodeInto(data, r)
	case Replace:
		return decodeInto(data, r)
	case RemoveChars:
		return decodeInto(data, r)
	case Case:
		return decodeInto(data, r)
	case Sequential:
		return decodeInto(data, r)
	case InsertAt:
		return decodeInto(data, r)
	case RemoveAt:
		return decodeInto(data, r)
	case FilterExt:
		return decodeInto(data, r)
	case ChangeExt:
		return decodeInto(data, r)
	case TrimSpaces:
		return decodeInto(data, r)
	case RemoveSpecial:
		return r, nil
	case DateRename:
		return decodeInto(data, r)
	case Regex:
		return decodeInto(data, r)
	}
	return nil, fmt.Errorf("unknown rule type: %q", header.Type)
}

func decodeInto[T Rule](data []byte, rule T) (Rule, error) {
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("invalid %s rule: %w", rule.Kind(), err)
	}
	return rule, nil
}

// DecodeRules decodes a JSON array of rules, preserving order.
func DecodeRules(data []byte) ([]Rule, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid rule list: %w", err)
	}

	rules := make([]Rule, 0, len(raw))
	for i, item := range raw {
		rule, err := DecodeRule(item)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// EncodeRule returns the wire form of a rule: its fields plus a "type" tag.
func EncodeRule(rule Rule) ([]byte, error) {
	fields, err := ruleFields(rule)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// EncodeRules encodes a rule list as a JSON array.
func EncodeRules(rules []Rule) ([]byte, error) {
	list := make([]map[string]any, 0, len(rules))
	for _, rule := range rules {
		fields, err := ruleFields(rule)
		if err != nil {
			return nil, err
		}
		list = append(list, fields)
	}
	return json.Marshal(list)
}

func ruleFields(rule Rule) (map[string]any, error) {
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s rule: %w", rule.Kind(), err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode %s rule: %w", rule.Kind(), err)
	}
	fields["type"] = string(rule.Kind())
	return fields, nil
}

// RulesFromMaps converts loosely typed rule objects, as received from YAML or
// an MCP client, into rules.
func RulesFromMaps(items []map[string]any) ([]Rule, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("invalid rule list: %w", err)
	}
	return DecodeRules(data)
}

type ruleFile struct {
	Rules []map[string]any `yaml:"rules"`
}

// LoadRules reads a rule file. The file is YAML (JSON is accepted as a YAML
// subset) holding either a top level "rules" list or a bare list.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules parses the contents of a rule file.
func ParseRules(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err == nil && file.Rules != nil {
		return RulesFromMaps(file.Rules)
	}

	var list []map[string]any
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("invalid rule file: %w", err)
	}
	return RulesFromMaps(list)
}

// Describe returns a one line summary of a rule.
func Describe(rule Rule) string {
	switch r := rule.(type) {
	case Prefix:
		if r.Value == "" {
			return "Add prefix"
		}
		return fmt.Sprintf("%q + name", r.Value)
	case Suffix:
		if r.Value == "" {
			return "Add suffix"
		}
		return fmt.Sprintf("name + %q", r.Value)
	case Replace:
		if r.Find == "" {
			return "Find & Replace"
		}
		return fmt.Sprintf("%q → %q", r.Find, r.Replace)
	case RemoveChars:
		if r.Chars == "" {
			return "Remove characters"
		}
		return fmt.Sprintf("Remove: %q", r.Chars)
	case Case:
		return "→ " + r.Mode
	case Sequential:
		return fmt.Sprintf("%d+ pad %d (%s)", r.Start, r.Padding, r.Position)
	case InsertAt:
		if r.Value == "" {
			return "Insert at position"
		}
		return fmt.Sprintf("Insert %q at %d", r.Value, r.Position)
	case RemoveAt:
		return fmt.Sprintf("Remove %d char(s) at %d", r.Count, r.Start)
	case FilterExt:
		if len(r.Extensions) == 0 {
			return "Filter by ext"
		}
		return "Only: " + strings.Join(r.Extensions, ", ")
	case ChangeExt:
		if r.Value == "" {
			return "→ (none)"
		}
		return "→ " + r.Value
	case TrimSpaces:
		return r.Mode
	case RemoveSpecial:
		return "Remove special characters"
	case DateRename:
		return fmt.Sprintf("%s → %s (%s)", r.Source, r.Format, r.Position)
	case Regex:
		if r.Find == "" {
			return "Regex replace"
		}
		return fmt.Sprintf("/%s/ → %q", r.Find, r.Replace)
	}
	return string(rule.Kind())
}
