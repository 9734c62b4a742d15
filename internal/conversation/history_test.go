package conversation

import (
	"errors"
	"testing"
)

func TestHistoryAppendKeepsInvariant(t *testing.T) {
	var h History
	if err := h.AppendAnswer("early"); !errors.Is(err, ErrNoPendingQuestion) {
		t.Fatalf("AppendAnswer() on empty history error = %v, want ErrNoPendingQuestion", err)
	}
	if err := h.AppendQuestion("q1"); err != nil {
		t.Fatalf("AppendQuestion() error = %v", err)
	}
	if !h.Pending() {
		t.Fatalf("Pending() = false after question, want true")
	}
	if err := h.AppendQuestion("q2"); !errors.Is(err, ErrQuestionPending) {
		t.Fatalf("AppendQuestion() while pending error = %v, want ErrQuestionPending", err)
	}
	if err := h.AppendAnswer("a1"); err != nil {
		t.Fatalf("AppendAnswer() error = %v", err)
	}
	if h.Pending() || h.Len() != 1 {
		t.Fatalf("unexpected history state: %+v", h)
	}

	turns := h.Turns()
	if len(turns) != 1 || turns[0] != (Turn{Question: "q1", Answer: "a1"}) {
		t.Fatalf("Turns() = %+v", turns)
	}
}

func TestHistoryCloneIsIndependent(t *testing.T) {
	h := History{Questions: []string{"q1"}, Answers: []string{"a1"}}
	c := h.Clone()
	if err := c.AppendQuestion("q2"); err != nil {
		t.Fatalf("AppendQuestion() error = %v", err)
	}
	c.Questions[0] = "changed"

	if len(h.Questions) != 1 || h.Questions[0] != "q1" {
		t.Fatalf("original history mutated: %+v", h)
	}
}
