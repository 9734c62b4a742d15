package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/groqchat/internal/protocol"
	"github.com/ent0n29/groqchat/internal/samples"
)

type options struct {
	baseURL        string
	userID         string
	model          string
	memoryLength   int
	turns          int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type createSessionRequest struct {
	UserID       string `json:"user_id,omitempty"`
	Model        string `json:"model,omitempty"`
	MemoryLength int    `json:"memory_length,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

type wsEnvelope struct {
	Type      string `json:"type"`
	TurnID    string `json:"turn_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Text      string `json:"text,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type turnResult struct {
	reply   wsEnvelope
	elapsed time.Duration
}

var defaultQuestions = []string{
	"Reply in three words: what is Groq?",
	"Reply in three words: what did I just ask?",
	"Reply in three words: summarize our chat.",
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatreplay: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "chatreplay: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var textsRaw string
	var promptsFile string
	var interTurnMS int
	var turnTimeoutMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "groqchat base URL")
	flag.StringVar(&cfg.userID, "user-id", "chat-replay", "user_id used for the synthetic session")
	flag.StringVar(&cfg.model, "model", "", "model for the session (server default when empty)")
	flag.IntVar(&cfg.memoryLength, "memory", 0, "conversational memory length (server default when 0)")
	flag.IntVar(&cfg.turns, "turns", 6, "number of questions to replay")
	flag.IntVar(&interTurnMS, "inter-turn-ms", 250, "delay between turns in milliseconds")
	flag.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "timeout waiting for each reply in milliseconds")
	flag.StringVar(&textsRaw, "texts", "", "questions separated by '|' (optional)")
	flag.StringVar(&promptsFile, "prompts-file", "", "draw questions at random from this file, one per line (optional)")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	texts, err := resolveTexts(textsRaw, promptsFile, cfg.turns)
	if err != nil {
		return options{}, err
	}
	cfg.texts = texts
	return cfg, nil
}

// resolveTexts prefers explicit texts, then a prompt file, then the built-in questions.
func resolveTexts(raw, promptsFile string, turns int) ([]string, error) {
	if strings.TrimSpace(raw) != "" {
		texts := splitTexts(raw)
		if len(texts) == 0 {
			return nil, fmt.Errorf("texts produced no non-empty questions")
		}
		return texts, nil
	}
	if strings.TrimSpace(promptsFile) != "" {
		src := samples.NewFileSource(promptsFile)
		texts := make([]string, 0, turns)
		for i := 0; i < turns; i++ {
			p, err := src.Pick()
			if err != nil {
				return nil, fmt.Errorf("prompts-file: %w", err)
			}
			texts = append(texts, p)
		}
		return texts, nil
	}
	return append([]string(nil), defaultQuestions...), nil
}

func splitTexts(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	httpClient := &http.Client{Timeout: 45 * time.Second}
	created, err := createSession(ctx, httpClient, cfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	sessionID := created.SessionID
	defer func() {
		_ = endSession(context.Background(), httpClient, cfg.baseURL, sessionID)
	}()

	if cfg.verbose {
		fmt.Printf("chatreplay: session=%s model=%s turns=%d\n", sessionID, created.Model, cfg.turns)
	}

	wsURL, err := wsURLForSession(cfg.baseURL, sessionID)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	replyCh := make(chan wsEnvelope, 32)
	readErrCh := make(chan error, 1)
	go readLoop(conn, replyCh, readErrCh, cfg.verbose)

	var latencies []time.Duration
	var failures int
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		if cfg.verbose {
			fmt.Printf("chatreplay: turn %d/%d question=%q\n", i+1, cfg.turns, text)
		}

		start := time.Now()
		if err := sendQuestion(conn, sessionID, text); err != nil {
			return fmt.Errorf("turn %d send question: %w", i+1, err)
		}
		res, err := awaitReply(replyCh, readErrCh, cfg.turnTimeout, start)
		if err != nil {
			return fmt.Errorf("turn %d await reply: %w", i+1, err)
		}
		if res.reply.Type == string(protocol.TypeErrorEvent) {
			failures++
			if cfg.verbose {
				fmt.Printf("chatreplay: turn %d failed code=%s retryable=%v detail=%s\n", i+1, res.reply.Code, res.reply.Retryable, res.reply.Detail)
			}
		} else {
			latencies = append(latencies, res.elapsed)
			if cfg.verbose {
				fmt.Printf("chatreplay: turn %d rtt=%s upstream=%dms answer=%q\n", i+1, res.elapsed.Round(time.Millisecond), res.reply.LatencyMS, res.reply.Text)
			}
		}
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	fmt.Printf("chatreplay: ok=%d failed=%d p50=%s p95=%s\n",
		len(latencies), failures,
		percentile(latencies, 0.50).Round(time.Millisecond),
		percentile(latencies, 0.95).Round(time.Millisecond),
	)
	return nil
}

func createSession(ctx context.Context, client *http.Client, cfg options) (createSessionResponse, error) {
	payload, err := json.Marshal(createSessionRequest{
		UserID:       cfg.userID,
		Model:        strings.TrimSpace(cfg.model),
		MemoryLength: cfg.memoryLength,
	})
	if err != nil {
		return createSessionResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/v1/chat/session", bytes.NewReader(payload))
	if err != nil {
		return createSessionResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return createSessionResponse{}, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return createSessionResponse{}, err
	}
	if res.StatusCode != http.StatusCreated {
		return createSessionResponse{}, fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out createSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return createSessionResponse{}, err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return createSessionResponse{}, fmt.Errorf("missing session_id in response")
	}
	return out, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/session/"+url.PathEscape(sessionID)+"/end", nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func wsURLForSession(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/chat/session/ws"
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop forwards replies and chat errors; system events are informational.
func readLoop(conn *websocket.Conn, replyCh chan<- wsEnvelope, readErrCh chan<- error, verbose bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case string(protocol.TypeAssistantReply), string(protocol.TypeErrorEvent):
			replyCh <- env
		case string(protocol.TypeSystemEvent):
			if verbose {
				fmt.Printf("chatreplay: system_event code=%s\n", env.Code)
			}
		}
	}
}

func sendQuestion(conn *websocket.Conn, sessionID, text string) error {
	return conn.WriteJSON(protocol.ClientQuestion{
		Type:      protocol.TypeClientQuestion,
		SessionID: sessionID,
		Text:      text,
	})
}

func awaitReply(replyCh <-chan wsEnvelope, readErrCh <-chan error, timeout time.Duration, start time.Time) (turnResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case env := <-replyCh:
		return turnResult{reply: env, elapsed: time.Since(start)}, nil
	case err := <-readErrCh:
		return turnResult{}, err
	case <-timer.C:
		return turnResult{}, fmt.Errorf("timeout after %s", timeout)
	}
}

// percentile uses nearest-rank on a sorted copy; zero for no samples.
func percentile(durations []time.Duration, p float64) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p*float64(len(sorted))+0.999999) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
