// Package protocol turns received frames into commands and commands' answers into frames.
package protocol

import (
	"babble/domain"
	"babble/errors"
	"fmt"
	"strings"
	"unicode"
)

var keywords = map[string]domain.CommandKind{
	"LOGIN":        domain.Login,
	"PUBLISH":      domain.Publish,
	"FOLLOW":       domain.Follow,
	"TIMELINE":     domain.Timeline,
	"FOLLOW_COUNT": domain.FollowCount,
	"RDV":          domain.Rendezvous,
}

// ParseError describes an input that could not be turned into a command.
// AnswerExpected tells whether the sender waits for an error answer.
type ParseError struct {
	Raw            string
	Reason         string
	AnswerExpected bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (%q)", errors.ErrParse, e.Reason, e.Raw)
}

func (e *ParseError) Unwrap() error { return errors.ErrParse }

// Parse reads one message of the form "KEYWORD[ payload]".
// An upper-case keyword asks for an answer, its lower-case form does not;
// a login is always answered. Over-long names and texts are truncated.
func Parse(raw []byte, limits domain.Limits) (*domain.Command, error) {
	input := strings.TrimRight(string(raw), "\r\n\x00")

	word, payload, _ := strings.Cut(input, " ")
	payload = strings.TrimSpace(payload)

	kind, ok := keywords[strings.ToUpper(word)]
	if !ok {
		return nil, &ParseError{Raw: input, Reason: "unknown keyword", AnswerExpected: !isLower(word)}
	}
	answerExpected := kind == domain.Login || !isLower(word)

	if !kind.HasPayload() {
		return domain.NewCommand(kind, 0, "", answerExpected), nil
	}
	if payload == "" {
		return nil, &ParseError{Raw: input, Reason: "missing payload", AnswerExpected: answerExpected}
	}

	switch kind {
	case domain.Publish:
		payload = truncate(payload, limits.MessageSize)
	default:
		payload = truncate(payload, limits.IDSize)
	}
	return domain.NewCommand(kind, 0, payload, answerExpected), nil
}

// isLower reports whether word has at least one letter and no upper-case letter.
func isLower(word string) bool {
	letter := false
	for _, r := range word {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letter = true
		}
	}
	return letter
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
