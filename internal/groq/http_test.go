package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientComplete(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Hello!"}},
			},
		})
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL+"/", "test-key", 5*time.Second)
	got, err := c.Complete(context.Background(), "Human: hi\nAI:", "mixtral-8x7b-32768")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Hello!" {
		t.Fatalf("Complete() = %q, want %q", got, "Hello!")
	}
	if gotReq.Model != "mixtral-8x7b-32768" {
		t.Fatalf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" || gotReq.Messages[0].Content != "Human: hi\nAI:" {
		t.Fatalf("request messages = %+v", gotReq.Messages)
	}
}

func TestHTTPClientClassifiesStatus(t *testing.T) {
	cases := []struct {
		status    int
		want      error
		retryable bool
	}{
		{http.StatusUnauthorized, ErrAuthentication, false},
		{http.StatusForbidden, ErrAuthentication, false},
		{http.StatusTooManyRequests, ErrRateLimit, true},
		{http.StatusBadGateway, ErrTransport, true},
		{http.StatusBadRequest, ErrTransport, false},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
		}))

		c := NewHTTPClient(server.URL, "k", time.Second)
		_, err := c.Complete(context.Background(), "p", "m")
		server.Close()

		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: error = %v, want %v", tc.status, err, tc.want)
		}
		if got := Retryable(err); got != tc.retryable {
			t.Fatalf("status %d: Retryable() = %v, want %v", tc.status, got, tc.retryable)
		}
		var e *Error
		if !errors.As(err, &e) || e.Status != tc.status || e.Detail != "nope" {
			t.Fatalf("status %d: error detail = %+v", tc.status, e)
		}
	}
}

func TestHTTPClientEmptyChoicesIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, "k", time.Second).Complete(context.Background(), "p", "m")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestHTTPClientUnreachableIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPClient(url, "k", time.Second).Complete(context.Background(), "p", "m")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if KindOf(err) != KindTransport {
		t.Fatalf("KindOf() = %q, want %q", KindOf(err), KindTransport)
	}
}
