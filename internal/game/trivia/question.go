package trivia

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsableQuestion is returned when model output does not contain a
// complete question block.
var ErrUnparsableQuestion = errors.New("could not parse a trivia question from model output")

// Question is one multiple-choice trivia question. Answer is the correct
// option letter, A through D.
type Question struct {
	Text    string
	Options map[string]string
	Answer  string
}

var optionLetters = []string{"A", "B", "C", "D"}

// ParseQuestion extracts a question from model output of the form:
//
//	Question: <text>
//	A) <option>
//	B) <option>
//	C) <option>
//	D) <option>
//	Answer: <letter>
//
// Option markers may use ')' or '.', and surrounding chatter is ignored.
func ParseQuestion(raw string) (*Question, error) {
	q := &Question{Options: make(map[string]string)}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case matchPrefix(line, "Question:") != "":
			q.Text = matchPrefix(line, "Question:")
		case matchPrefix(line, "Answer:") != "":
			answer := strings.ToUpper(matchPrefix(line, "Answer:"))
			// Models sometimes echo the option text after the letter.
			if len(answer) > 0 {
				q.Answer = answer[:1]
			}
		default:
			for _, letter := range optionLetters {
				for _, sep := range []string{")", ".", ":"} {
					prefix := letter + sep
					if len(line) > len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
						q.Options[letter] = strings.TrimSpace(line[len(prefix):])
					}
				}
			}
		}
	}

	if q.Text == "" || q.Answer == "" {
		return nil, ErrUnparsableQuestion
	}
	if _, ok := q.Options[q.Answer]; !ok {
		return nil, fmt.Errorf("answer %q has no matching option: %w", q.Answer, ErrUnparsableQuestion)
	}
	for _, letter := range optionLetters {
		if q.Options[letter] == "" {
			return nil, fmt.Errorf("option %s missing: %w", letter, ErrUnparsableQuestion)
		}
	}
	return q, nil
}

func matchPrefix(line, prefix string) string {
	if len(line) > len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
		return strings.TrimSpace(line[len(prefix):])
	}
	return ""
}

// NormalizeChoice turns a player answer into an option letter, accepting
// "b", "B" or "B)".
func NormalizeChoice(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ").:")
	for _, letter := range optionLetters {
		if s == letter {
			return letter, true
		}
	}
	return "", false
}
