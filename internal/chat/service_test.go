package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/groqchat/internal/groq"
	"github.com/ent0n29/groqchat/internal/memory"
	"github.com/ent0n29/groqchat/internal/prompt"
	"github.com/ent0n29/groqchat/internal/session"
)

type recordingClient struct {
	mu      sync.Mutex
	prompts []string
	models  []string
	err     error
}

func (c *recordingClient) Complete(_ context.Context, p, model string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, p)
	c.models = append(c.models, model)
	if c.err != nil {
		return "", c.err
	}
	return "answer " + string(rune('0'+len(c.prompts))), nil
}

type blockingClient struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingClient) Complete(ctx context.Context, _, _ string) (string, error) {
	close(c.started)
	select {
	case <-c.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newTestService(t *testing.T, client groq.Client, store memory.Store) (*Service, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(time.Minute)
	svc := NewService(sessions, client, store, nil, Limits{
		Models:        groq.Models{"m1", "m2"},
		MemoryDefault: 5,
		MemoryMax:     10,
	})
	return svc, sessions
}

func createSession(t *testing.T, svc *Service, sessions *session.Manager, req session.CreateRequest) *session.Session {
	t.Helper()
	req, err := svc.NormalizeCreate(req)
	if err != nil {
		t.Fatalf("NormalizeCreate() error = %v", err)
	}
	return sessions.Create(req)
}

func TestAskBuildsWindowedPromptAndCommits(t *testing.T) {
	client := &recordingClient{}
	store := memory.NewInMemoryStore()
	svc, sessions := newTestService(t, client, store)
	sess := createSession(t, svc, sessions, session.CreateRequest{MemoryLength: 1})

	first, err := svc.Ask(context.Background(), sess.ID, "q1")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if first.Answer != "answer 1" || first.Model != "m1" || first.TurnID == "" {
		t.Fatalf("unexpected reply: %+v", first)
	}
	if _, err := svc.Ask(context.Background(), sess.ID, "q2"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, err := svc.Ask(context.Background(), sess.ID, "q3"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	want0, _ := prompt.RenderPrompt([]string{"q1"}, nil, 1)
	if client.prompts[0] != want0 {
		t.Fatalf("first prompt = %q, want %q", client.prompts[0], want0)
	}
	// Window of one: the trailing question is the live one and the trailing
	// answer belongs to the previous turn, so they pair up offset by one.
	want2, _ := prompt.RenderPrompt([]string{"q1", "q2", "q3"}, []string{"answer 1", "answer 2"}, 1)
	if client.prompts[2] != want2 {
		t.Fatalf("third prompt = %q, want %q", client.prompts[2], want2)
	}

	got, _ := sessions.Get(sess.ID)
	if got.History.Len() != 3 || got.History.Pending() {
		t.Fatalf("history = %+v", got.History)
	}

	records, err := store.RecentContext(context.Background(), sess.ID, 10)
	if err != nil {
		t.Fatalf("RecentContext() error = %v", err)
	}
	if len(records) != 6 || records[0].Role != memory.RoleUser || records[1].Role != memory.RoleAssistant {
		t.Fatalf("transcript = %+v", records)
	}
}

func TestAskFailureLeavesHistoryUntouched(t *testing.T) {
	client := &recordingClient{err: &groq.Error{Kind: groq.KindRateLimit, Status: 429}}
	store := memory.NewInMemoryStore()
	svc, sessions := newTestService(t, client, store)
	sess := createSession(t, svc, sessions, session.CreateRequest{})

	_, err := svc.Ask(context.Background(), sess.ID, "hello")
	if !errors.Is(err, groq.ErrRateLimit) {
		t.Fatalf("Ask() error = %v, want ErrRateLimit", err)
	}

	got, _ := sessions.Get(sess.ID)
	if len(got.History.Questions) != 0 || len(got.History.Answers) != 0 {
		t.Fatalf("history mutated on failure: %+v", got.History)
	}
	if got.ActiveTurnID != "" {
		t.Fatalf("turn slot not released: %q", got.ActiveTurnID)
	}
	records, _ := store.RecentContext(context.Background(), sess.ID, 10)
	if len(records) != 0 {
		t.Fatalf("failed turn persisted: %+v", records)
	}

	client.err = nil
	if _, err := svc.Ask(context.Background(), sess.ID, "hello again"); err != nil {
		t.Fatalf("Ask() after failure error = %v", err)
	}
}

func TestAskRejectsConcurrentTurn(t *testing.T) {
	client := &blockingClient{started: make(chan struct{}), release: make(chan struct{})}
	svc, sessions := newTestService(t, client, nil)
	sess := createSession(t, svc, sessions, session.CreateRequest{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ask(context.Background(), sess.ID, "slow")
		done <- err
	}()
	<-client.started

	if _, err := svc.Ask(context.Background(), sess.ID, "fast"); !errors.Is(err, session.ErrTurnInProgress) {
		t.Fatalf("concurrent Ask() error = %v, want ErrTurnInProgress", err)
	}
	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("first Ask() error = %v", err)
	}
}

func TestAskValidatesInput(t *testing.T) {
	svc, sessions := newTestService(t, &recordingClient{}, nil)
	if _, err := svc.Ask(context.Background(), "missing", "hi"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Ask(missing) error = %v, want ErrNotFound", err)
	}
	sess := createSession(t, svc, sessions, session.CreateRequest{})
	if _, err := svc.Ask(context.Background(), sess.ID, "  \n"); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("Ask(blank) error = %v, want ErrEmptyQuestion", err)
	}
}

func TestAskRedactsTranscript(t *testing.T) {
	store := memory.NewInMemoryStore()
	svc, sessions := newTestService(t, &recordingClient{}, store)
	sess := createSession(t, svc, sessions, session.CreateRequest{})

	if _, err := svc.Ask(context.Background(), sess.ID, "mail me at sam@example.com"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	records, _ := store.RecentContext(context.Background(), sess.ID, 2)
	if !records[0].PIIRedacted || strings.Contains(records[0].Content, "sam@example.com") {
		t.Fatalf("question not redacted: %+v", records[0])
	}

	got, _ := sessions.Get(sess.ID)
	if got.History.Questions[0] != "mail me at sam@example.com" {
		t.Fatalf("session history should keep the original text: %+v", got.History)
	}
}

func TestAdditionalContextIsNotSentToModel(t *testing.T) {
	client := &recordingClient{}
	svc, sessions := newTestService(t, client, nil)
	sess := createSession(t, svc, sessions, session.CreateRequest{AdditionalContext: "write it in spanish"})

	if _, err := svc.Ask(context.Background(), sess.ID, "hi"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if strings.Contains(client.prompts[0], "spanish") {
		t.Fatalf("additional context leaked into prompt: %q", client.prompts[0])
	}
}

func TestSettingsValidation(t *testing.T) {
	svc, sessions := newTestService(t, &recordingClient{}, nil)

	if _, err := svc.NormalizeCreate(session.CreateRequest{Model: "gpt-4"}); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("NormalizeCreate(unknown model) error = %v, want ErrUnknownModel", err)
	}
	if _, err := svc.NormalizeCreate(session.CreateRequest{MemoryLength: 11}); !errors.Is(err, ErrInvalidMemoryLength) {
		t.Fatalf("NormalizeCreate(11) error = %v, want ErrInvalidMemoryLength", err)
	}

	sess := createSession(t, svc, sessions, session.CreateRequest{})
	if sess.MemoryLength != 5 || sess.Model != "m1" || sess.UserID != "anonymous" {
		t.Fatalf("defaults not applied: %+v", sess)
	}

	model := "m2"
	n := 3
	got, err := svc.UpdateSettings(sess.ID, session.SettingsUpdate{Model: &model, MemoryLength: &n})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if got.Model != "m2" || got.MemoryLength != 3 {
		t.Fatalf("settings not applied: %+v", got)
	}

	zero := 0
	if _, err := svc.UpdateSettings(sess.ID, session.SettingsUpdate{MemoryLength: &zero}); !errors.Is(err, ErrInvalidMemoryLength) {
		t.Fatalf("UpdateSettings(0) error = %v, want ErrInvalidMemoryLength", err)
	}
}

func TestAskEndedDuringCompletion(t *testing.T) {
	client := &blockingClient{started: make(chan struct{}), release: make(chan struct{})}
	store := memory.NewInMemoryStore()
	svc, sessions := newTestService(t, client, store)
	sess := createSession(t, svc, sessions, session.CreateRequest{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ask(context.Background(), sess.ID, "slow")
		done <- err
	}()
	<-client.started

	if _, err := sessions.End(sess.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	close(client.release)

	if err := <-done; !errors.Is(err, session.ErrEnded) {
		t.Fatalf("Ask() error = %v, want ErrEnded", err)
	}
	got, _ := sessions.Get(sess.ID)
	if got.History.Len() != 0 || got.History.Pending() {
		t.Fatalf("history = %+v, want empty", got.History)
	}
	records, _ := store.RecentContext(context.Background(), sess.ID, 10)
	if len(records) != 0 {
		t.Fatalf("transcript = %+v, want nothing persisted", records)
	}
}

func TestTranscriptOutlivesSession(t *testing.T) {
	store := memory.NewInMemoryStore()
	svc, sessions := newTestService(t, &recordingClient{}, store)
	sess := createSession(t, svc, sessions, session.CreateRequest{})
	for _, q := range []string{"q1", "q2"} {
		if _, err := svc.Ask(context.Background(), sess.ID, q); err != nil {
			t.Fatalf("Ask(%q) error = %v", q, err)
		}
	}

	records, err := svc.Transcript(context.Background(), sess.ID, 10)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if len(records) != 4 || records[0].Content != "q1" || records[3].Content != "answer 2" {
		t.Fatalf("transcript = %+v", records)
	}

	// A fresh manager stands in for a restart or a pruned session.
	restarted, _ := newTestService(t, &recordingClient{}, store)
	records, err = restarted.Transcript(context.Background(), sess.ID, 3)
	if err != nil {
		t.Fatalf("Transcript() after prune error = %v", err)
	}
	if len(records) != 3 || records[2].Content != "answer 2" {
		t.Fatalf("limited transcript = %+v", records)
	}

	if _, err := restarted.Transcript(context.Background(), "missing", 10); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Transcript(missing) error = %v, want ErrNotFound", err)
	}

	fresh := createSession(t, svc, sessions, session.CreateRequest{})
	empty, err := svc.Transcript(context.Background(), fresh.ID, 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("Transcript(fresh) = %v, %v; want empty slice", empty, err)
	}
}
