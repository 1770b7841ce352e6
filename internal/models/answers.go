// Package models defines answer value types for the setup wizard.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AnswerKind discriminates the shapes a form answer can take.
type AnswerKind string

const (
	// AnswerKindText is a free-text answer.
	AnswerKindText AnswerKind = "text"
	// AnswerKindOptions is a multi-select answer.
	AnswerKindOptions AnswerKind = "options"
	// AnswerKindNested is a string-to-string map answer, used for per-platform
	// detail fields.
	AnswerKindNested AnswerKind = "nested"
	// AnswerKindFlag is a boolean toggle answer.
	AnswerKindFlag AnswerKind = "flag"
)

// AnswerValue is one wizard form answer. Exactly one of the payload fields is
// meaningful, selected by Kind.
type AnswerValue struct {
	Kind    AnswerKind
	Text    string
	Options []string
	Nested  map[string]string
	Flag    bool
}

// TextValue builds a free-text answer.
func TextValue(s string) AnswerValue {
	return AnswerValue{Kind: AnswerKindText, Text: s}
}

// OptionsValue builds a multi-select answer.
func OptionsValue(opts ...string) AnswerValue {
	return AnswerValue{Kind: AnswerKindOptions, Options: opts}
}

// NestedValue builds a nested map answer.
func NestedValue(m map[string]string) AnswerValue {
	return AnswerValue{Kind: AnswerKindNested, Nested: m}
}

// FlagValue builds a boolean answer.
func FlagValue(b bool) AnswerValue {
	return AnswerValue{Kind: AnswerKindFlag, Flag: b}
}

// IsEmpty reports whether the answer holds no user data. An unset flag is
// indistinguishable from a deliberate false.
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case AnswerKindText:
		return strings.TrimSpace(v.Text) == ""
	case AnswerKindOptions:
		return len(v.Options) == 0
	case AnswerKindNested:
		return len(v.Nested) == 0
	case AnswerKindFlag:
		return !v.Flag
	default:
		return true
	}
}

// HasOption reports whether a multi-select answer includes the option.
func (v AnswerValue) HasOption(opt string) bool {
	for _, o := range v.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// WithOption returns a copy of a multi-select answer with the option added.
// Adding a present option is a no-op.
func (v AnswerValue) WithOption(opt string) AnswerValue {
	if v.HasOption(opt) {
		return v
	}
	out := v.Clone()
	out.Options = append(out.Options, opt)
	return out
}

// Clone returns a deep copy of the answer.
func (v AnswerValue) Clone() AnswerValue {
	out := v
	if v.Options != nil {
		out.Options = append([]string(nil), v.Options...)
	}
	if v.Nested != nil {
		out.Nested = make(map[string]string, len(v.Nested))
		for k, val := range v.Nested {
			out.Nested[k] = val
		}
	}
	return out
}

// MarshalJSON encodes the answer as its bare JSON shape: a string, a sorted
// array, an object, or a boolean.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerKindText:
		return json.Marshal(v.Text)
	case AnswerKindOptions:
		opts := append([]string(nil), v.Options...)
		sort.Strings(opts)
		if opts == nil {
			opts = []string{}
		}
		return json.Marshal(opts)
	case AnswerKindNested:
		if v.Nested == nil {
			return json.Marshal(map[string]string{})
		}
		return json.Marshal(v.Nested)
	case AnswerKindFlag:
		return json.Marshal(v.Flag)
	default:
		return nil, fmt.Errorf("unknown answer kind: %q", v.Kind)
	}
}

// UnmarshalJSON infers the answer kind from the JSON shape.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case string:
		*v = TextValue(val)
	case bool:
		*v = FlagValue(val)
	case []interface{}:
		opts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("answer option must be a string, got %T", item)
			}
			opts = append(opts, s)
		}
		*v = OptionsValue(opts...)
	case map[string]interface{}:
		nested := make(map[string]string, len(val))
		for k, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("nested answer value must be a string, got %T", item)
			}
			nested[k] = s
		}
		*v = NestedValue(nested)
	default:
		return fmt.Errorf("unsupported answer JSON shape: %T", raw)
	}
	return nil
}

// FormAnswers is the full answer set of one wizard session, keyed by field
// name. The keys present in a session define its field vocabulary.
type FormAnswers map[string]AnswerValue

// Clone returns a deep copy of the answer set.
func (a FormAnswers) Clone() FormAnswers {
	out := make(FormAnswers, len(a))
	for k, v := range a {
		out[k] = v.Clone()
	}
	return out
}

// Set replaces the value of a known field. Writing an unknown field is
// rejected so typos never widen the vocabulary.
func (a FormAnswers) Set(field string, v AnswerValue) error {
	if _, ok := a[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	a[field] = v
	return nil
}

// Text returns the text of a field, or "" for absent or non-text fields.
func (a FormAnswers) Text(field string) string {
	return a[field].Text
}

// Options returns the selected options of a field.
func (a FormAnswers) Options(field string) []string {
	return a[field].Options
}

// Flag returns the boolean value of a field.
func (a FormAnswers) Flag(field string) bool {
	return a[field].Flag
}

// AnyPresent reports whether at least one of the fields holds data.
func (a FormAnswers) AnyPresent(fields ...string) bool {
	for _, f := range fields {
		if v, ok := a[f]; ok && !v.IsEmpty() {
			return true
		}
	}
	return false
}

// AllPresent reports whether every one of the fields holds data.
func (a FormAnswers) AllPresent(fields ...string) bool {
	for _, f := range fields {
		v, ok := a[f]
		if !ok || v.IsEmpty() {
			return false
		}
	}
	return true
}
