package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/groqchat/internal/protocol"
	"github.com/ent0n29/groqchat/internal/session"
)

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if s.chat == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "chat service not configured")
		return
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 16)
	outbound := make(chan any, 64)

	// One worker per connection keeps at most one completion in flight.
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for msg := range inbound {
			for _, out := range s.handleClientMessage(ctx, sessionID, msg) {
				select {
				case <-ctx.Done():
					return
				case outbound <- out:
				}
			}
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := protocol.TypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	outbound <- protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: sessionID,
		Code:      "connected",
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.enqueue(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := protocol.TypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		default:
			s.enqueue(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "busy",
				Source:    "gateway",
				Retryable: true,
				Detail:    "too many queued messages",
			})
		}
	}

	cancel()
	close(inbound)
	<-workerDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// enqueue drops the message when the outbound queue is saturated so the
// read loop never blocks on a slow writer.
func (s *Server) enqueue(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		if t, ok := protocol.TypeOf(msg); ok {
			s.metrics.WSMessages.WithLabelValues("dropped", string(t)).Inc()
		}
	}
}

func (s *Server) handleClientMessage(ctx context.Context, sessionID string, msg any) []any {
	switch m := msg.(type) {
	case protocol.ClientQuestion:
		if m.SessionID != sessionID {
			return []any{sessionMismatch(sessionID)}
		}
		reply, err := s.chat.Ask(ctx, sessionID, m.Text)
		if err != nil {
			return []any{errorEvent(sessionID, "chat", err)}
		}
		return []any{protocol.AssistantReply{
			Type:      protocol.TypeAssistantReply,
			SessionID: sessionID,
			TurnID:    reply.TurnID,
			Question:  reply.Question,
			Text:      reply.Answer,
			Model:     reply.Model,
			LatencyMS: reply.LatencyMS,
		}}
	case protocol.ClientSettings:
		if m.SessionID != sessionID {
			return []any{sessionMismatch(sessionID)}
		}
		_, err := s.chat.UpdateSettings(sessionID, session.SettingsUpdate{
			Model:             m.Model,
			MemoryLength:      m.MemoryLength,
			AdditionalContext: m.AdditionalContext,
		})
		if err != nil {
			return []any{errorEvent(sessionID, "settings", err)}
		}
		return []any{protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: sessionID,
			Code:      "settings_updated",
		}}
	default:
		return nil
	}
}

func errorEvent(sessionID, source string, err error) protocol.ErrorEvent {
	ce := classifyChatError(err)
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      ce.code,
		Source:    source,
		Retryable: ce.retryable,
		Detail:    err.Error(),
	}
}

func sessionMismatch(sessionID string) protocol.ErrorEvent {
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      "session_mismatch",
		Source:    "gateway",
		Detail:    "message session_id does not match the connection",
	}
}
