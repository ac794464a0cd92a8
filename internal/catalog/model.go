package catalog

import (
	"encoding/json"
	"strings"
	"unicode"
)

type QuestionType string

const (
	TypeText         QuestionType = "text"
	TypeNumber       QuestionType = "number"
	TypeSingleChoice QuestionType = "single_choice"
	TypeMultiChoice  QuestionType = "multi_choice"
)

// IsChoice reports whether answers to the type select from Options.
func (t QuestionType) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultiChoice
}

func parseType(s string) QuestionType {
	switch QuestionType(s) {
	case TypeText, TypeNumber, TypeSingleChoice, TypeMultiChoice:
		return QuestionType(s)
	default:
		return TypeText
	}
}

// DefaultUrgency applies to symptoms that do not declare one.
const DefaultUrgency = "yellow_doctor_visit"

type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts either a bare option id ("less_than_a_day") or an
// {"id","label"} object. Bare ids get a title-cased label.
func (o *Option) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		o.ID = id
		o.Label = labelFromID(id)
		return nil
	}
	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Label == "" {
		p.Label = labelFromID(p.ID)
	}
	*o = Option(p)
	return nil
}

// Question is a catalog entry as served to clients.
type Question struct {
	ID           string       `json:"question_id"`
	Text         string       `json:"text"`
	Type         QuestionType `json:"response_type"`
	Options      []Option     `json:"response_options,omitempty"`
	IsCompulsory bool         `json:"is_compulsory"`
}

// Trigger selects a conditional question set: the recorded answer to
// QuestionID must equal Value, ignoring case.
type Trigger struct {
	QuestionID string
	Value      string
}

func (t Trigger) String() string { return t.QuestionID + "=" + t.Value }

func (t Trigger) Satisfied(answers map[string]string) bool {
	v, ok := answers[t.QuestionID]
	return ok && strings.EqualFold(v, t.Value)
}

type ConditionalSet struct {
	Trigger   Trigger
	Questions []Question
}

// Symptom is one decision-tree entry. Followups keep document order.
type Symptom struct {
	ID             string     `json:"symptom_id"`
	Label          string     `json:"label"`
	Keywords       []string   `json:"keywords"`
	DefaultUrgency string     `json:"default_urgency"`
	Followups      []Question `json:"followup_questions"`
}

func labelFromID(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
