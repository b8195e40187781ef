// Package editor holds the SQL text being edited and the statements
// submitted during the session.
package editor

import (
	"errors"
	"strings"
)

// Terminator ends every submitted statement.
const Terminator = ";"

// maxHistory bounds the recall list.
const maxHistory = 100

// ErrEmptyStatement is returned when submitting blank text.
var ErrEmptyStatement = errors.New("nothing to execute")

// Editor holds the raw SQL text and an in-memory recall list of submitted
// statements, newest first. It is not persisted.
type Editor struct {
	text    string
	history []string
	idx     int // -1 = draft, 0+ = history index
	draft   string
}

// New creates an empty editor.
func New() *Editor {
	return &Editor{idx: -1}
}

// Text returns the current text.
func (e *Editor) Text() string { return e.text }

// SetText replaces the current text and leaves history navigation.
func (e *Editor) SetText(text string) {
	e.text = text
	e.idx = -1
}

// Normalize trims trailing whitespace and appends the statement terminator
// when it is missing.
func Normalize(text string) string {
	s := strings.TrimRight(text, " \t\r\n")
	if s == "" || strings.HasSuffix(s, Terminator) {
		return s
	}
	return s + Terminator
}

// Submit returns the normalized statement and records it in the recall
// list.
func (e *Editor) Submit() (string, error) {
	stmt := Normalize(e.text)
	if strings.TrimSpace(strings.TrimSuffix(stmt, Terminator)) == "" {
		return "", ErrEmptyStatement
	}

	if len(e.history) == 0 || e.history[0] != stmt {
		e.history = append([]string{stmt}, e.history...)
		if len(e.history) > maxHistory {
			e.history = e.history[:maxHistory]
		}
	}
	e.idx = -1
	e.draft = ""
	return stmt, nil
}

// History returns the submitted statements, newest first.
func (e *Editor) History() []string {
	return append([]string(nil), e.history...)
}

// Prev moves to the next older statement and returns the new text.
func (e *Editor) Prev() string {
	if e.idx < len(e.history)-1 {
		if e.idx == -1 {
			e.draft = e.text
		}
		e.idx++
		e.text = e.history[e.idx]
	}
	return e.text
}

// Next moves to the next newer statement, ending at the saved draft.
func (e *Editor) Next() string {
	if e.idx > -1 {
		e.idx--
		if e.idx == -1 {
			e.text = e.draft
		} else {
			e.text = e.history[e.idx]
		}
	}
	return e.text
}
