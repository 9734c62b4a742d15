// Package conversation holds the per-session question/answer transcript
// that the prompt builder windows over.
package conversation

import "errors"

var (
	ErrQuestionPending   = errors.New("conversation: previous question has no answer yet")
	ErrNoPendingQuestion = errors.New("conversation: no question is waiting for an answer")
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// History is two parallel append-only lists. At every observation point
// len(Answers) is len(Questions) or len(Questions)-1.
type History struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
}

// Pending reports whether the last question is still unanswered.
func (h *History) Pending() bool {
	return len(h.Answers) < len(h.Questions)
}

// Len returns the number of answered turns.
func (h *History) Len() int {
	return len(h.Answers)
}

func (h *History) AppendQuestion(q string) error {
	if h.Pending() {
		return ErrQuestionPending
	}
	h.Questions = append(h.Questions, q)
	return nil
}

func (h *History) AppendAnswer(a string) error {
	if !h.Pending() {
		return ErrNoPendingQuestion
	}
	h.Answers = append(h.Answers, a)
	return nil
}

// Turns returns the answered turns in order.
func (h *History) Turns() []Turn {
	out := make([]Turn, 0, len(h.Answers))
	for i, a := range h.Answers {
		out = append(out, Turn{Question: h.Questions[i], Answer: a})
	}
	return out
}

// Clone returns a copy that shares no backing arrays with h.
func (h History) Clone() History {
	return History{
		Questions: append([]string(nil), h.Questions...),
		Answers:   append([]string(nil), h.Answers...),
	}
}
