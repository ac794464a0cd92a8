package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"medical-assessment/internal/catalog"
)

// Payload is a submitted answer. The concrete type follows the "type"
// discriminator of the wire format; each variant knows its canonical value.
type Payload interface {
	Type() catalog.QuestionType
	Normalize() string
}

type TextAnswer struct {
	Value string
}

func (a TextAnswer) Type() catalog.QuestionType { return catalog.TypeText }
func (a TextAnswer) Normalize() string          { return a.Value }

// NumberAnswer keeps the literal as submitted. No numeric coercion.
type NumberAnswer struct {
	Literal string
}

func (a NumberAnswer) Type() catalog.QuestionType { return catalog.TypeNumber }
func (a NumberAnswer) Normalize() string          { return a.Literal }

type SingleChoiceAnswer struct {
	OptionLabel string
	OptionID    string
	Value       string
}

func (a SingleChoiceAnswer) Type() catalog.QuestionType { return catalog.TypeSingleChoice }

func (a SingleChoiceAnswer) Normalize() string {
	for _, v := range []string{a.OptionLabel, a.OptionID, a.Value} {
		if v != "" {
			return v
		}
	}
	return ""
}

type MultiChoiceAnswer struct {
	OptionLabels []string
}

func (a MultiChoiceAnswer) Type() catalog.QuestionType { return catalog.TypeMultiChoice }
func (a MultiChoiceAnswer) Normalize() string          { return strings.Join(a.OptionLabels, ", ") }

// FallbackAnswer covers unknown or missing type discriminators.
type FallbackAnswer struct {
	DeclaredType string
	Value        string
}

func (a FallbackAnswer) Type() catalog.QuestionType { return catalog.QuestionType(a.DeclaredType) }
func (a FallbackAnswer) Normalize() string          { return a.Value }

// Normalize returns the canonical display and matching value of p. A nil
// payload normalizes to the empty string.
func Normalize(p Payload) string {
	if p == nil {
		return ""
	}
	return p.Normalize()
}

type wirePayload struct {
	Type                 string          `json:"type"`
	Value                json.RawMessage `json:"value"`
	SelectedOptionID     string          `json:"selected_option_id"`
	SelectedOptionLabel  string          `json:"selected_option_label"`
	SelectedOptionLabels []string        `json:"selected_option_labels"`
}

// DecodePayload parses the answer_json object sent by clients:
// {type, value} | {type, selected_option_label, selected_option_id} |
// {type, selected_option_labels}.
func DecodePayload(raw json.RawMessage) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: answer_json is required", ErrInvalidAnswer)
	}
	var w wirePayload
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	value := scalarText(w.Value)

	switch catalog.QuestionType(w.Type) {
	case catalog.TypeText:
		return TextAnswer{Value: value}, nil
	case catalog.TypeNumber:
		return NumberAnswer{Literal: value}, nil
	case catalog.TypeSingleChoice:
		return SingleChoiceAnswer{
			OptionLabel: w.SelectedOptionLabel,
			OptionID:    w.SelectedOptionID,
			Value:       value,
		}, nil
	case catalog.TypeMultiChoice:
		return MultiChoiceAnswer{OptionLabels: w.SelectedOptionLabels}, nil
	default:
		return FallbackAnswer{DeclaredType: w.Type, Value: value}, nil
	}
}

// scalarText renders a JSON value the way it was submitted: strings are
// unquoted, numbers and booleans keep their literal text, null is empty.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
