// Package prompt renders the single text prompt sent to the completion API
// from a greeting, a bounded recap of prior turns, and the live question.
package prompt

import (
	"errors"
	"strings"
)

// Greeting opens every rendered prompt.
const Greeting = "Hello! I'm your friendly Groq chatbot. I can help answer your questions, provide information, or just chat. I'm also super fast! Let's start our conversation!"

// RecapHeader introduces the prior turns. It is omitted on the first turn.
const RecapHeader = "As a recap, here is the current conversation:"

var (
	ErrEmptyQuestions = errors.New("prompt: question history is empty")
	ErrInvalidWindow  = errors.New("prompt: memory window must be positive")
)

type Role string

const (
	RoleGreeting Role = "greeting"
	RoleRecap    Role = "recap"
	RoleHuman    Role = "human"
	RoleAI       Role = "ai"
)

// Segment is one ordered piece of a prompt.
type Segment struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Template is the ordered segment list produced by Build.
type Template []Segment

// HasRecap reports whether the template carries prior turns.
func (t Template) HasRecap() bool {
	for _, seg := range t {
		if seg.Role == RoleRecap {
			return true
		}
	}
	return false
}

// Window returns the trailing n items. The result aliases items.
func Window(items []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// Build assembles the prompt template. The live question is always the last
// element of questions; the caller appends it before calling.
//
// Questions and answers are windowed independently and then zipped up to the
// shorter list. When the lists differ in length the recap pairs are offset by
// one, and the live question is left out of the recap only when it falls
// beyond the shorter window; once len(questions) > windowSize it is paired
// with the last answer. It always closes the prompt.
func Build(questions, answers []string, windowSize int) (Template, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestions
	}
	if windowSize < 1 {
		return nil, ErrInvalidWindow
	}

	current := questions[len(questions)-1]
	qs := Window(questions, windowSize)
	as := Window(answers, windowSize)
	paired := min(len(qs), len(as))

	t := make(Template, 0, 2+2*paired+2)
	t = append(t, Segment{Role: RoleGreeting, Text: Greeting})
	if paired > 0 {
		t = append(t, Segment{Role: RoleRecap, Text: RecapHeader})
		for i := 0; i < paired; i++ {
			t = append(t,
				Segment{Role: RoleHuman, Text: qs[i]},
				Segment{Role: RoleAI, Text: as[i]},
			)
		}
	}
	t = append(t,
		Segment{Role: RoleHuman, Text: current},
		Segment{Role: RoleAI},
	)
	return t, nil
}

// Render formats a template as text, one segment per line.
func Render(t Template) string {
	var b strings.Builder
	for i, seg := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch seg.Role {
		case RoleHuman:
			b.WriteString("Human: ")
			b.WriteString(seg.Text)
		case RoleAI:
			b.WriteString("AI:")
			if seg.Text != "" {
				b.WriteByte(' ')
				b.WriteString(seg.Text)
			}
		default:
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// RenderPrompt is Build followed by Render.
func RenderPrompt(questions, answers []string, windowSize int) (string, error) {
	t, err := Build(questions, answers, windowSize)
	if err != nil {
		return "", err
	}
	return Render(t), nil
}
