package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tempohq/tempo/internal/agent"
	"github.com/tempohq/tempo/internal/chat"
	"github.com/tempohq/tempo/internal/confirm"
	"github.com/tempohq/tempo/internal/impact"
	"github.com/tempohq/tempo/internal/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// confirmTimeout bounds how long an unanswered confirmation blocks the
// assistant before it counts as a cancel.
const confirmTimeout = 2 * time.Minute

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type        string `json:"type"`       // "message" or "confirm"
	SessionID   string `json:"session_id"` // empty for new sessions
	Content     string `json:"content"`
	ID          string `json:"id,omitempty"`     // confirm: request being answered
	Choice      string `json:"choice,omitempty"` // confirm: "confirm", "cancel" or "alternative"
	Alternative int    `json:"alternative,omitempty"`
}

// chatResponse is the outgoing WebSocket message format for replies and
// errors.
type chatResponse struct {
	Type        string `json:"type"` // "response" or "error"
	SessionID   string `json:"session_id"`
	Content     string `json:"content"`
	ContentHTML string `json:"content_html,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
	ToolCalls   int    `json:"tool_calls,omitempty"`
}

// confirmRequest asks the client to approve a pending action.
type confirmRequest struct {
	Type         string            `json:"type"` // "confirm_request"
	ID           string            `json:"id"`
	Preview      impact.Preview    `json:"preview"`
	Alternatives []alternativeView `json:"alternatives,omitempty"`
}

type alternativeView struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// socket is one WebSocket connection. Reads stay on the handler
// goroutine; assistant runs happen on their own goroutine so the read
// loop can keep delivering confirmation answers.
type socket struct {
	d    *Dashboard
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	busy    bool
	pending map[string]chan confirm.Choice
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// The request context dies with the HTTP middleware timeout; after the
	// upgrade the socket's lifetime is the read loop, not the request.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &socket{d: d, conn: conn, pending: map[string]chan confirm.Choice{}}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("dashboard: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError("", "invalid message format")
			continue
		}

		switch req.Type {
		case "message":
			if req.Content == "" {
				s.sendError(req.SessionID, "content is required")
				continue
			}
			if !s.begin() {
				s.sendError(req.SessionID, "still working on the previous message")
				continue
			}
			go func(req chatRequest) {
				defer s.end()
				s.handleMessage(ctx, req)
			}(req)
		case "confirm":
			s.resolve(req)
		default:
			s.sendError(req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *socket) handleMessage(ctx context.Context, req chatRequest) {
	d := s.d
	if d.provider == nil {
		s.sendError(req.SessionID, "assistant not configured")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sess, err := d.chats.CreateSession(ctx, "dashboard")
		if err != nil {
			s.sendError("", "failed to create session: "+err.Error())
			return
		}
		sessionID = sess.ID
	}

	history, err := d.history(ctx, sessionID)
	if err != nil {
		log.Printf("dashboard: loading history for %s: %v", sessionID, err)
	}

	if _, err := d.chats.AddMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      "user",
		Content:   req.Content,
	}); err != nil {
		s.sendError(sessionID, "failed to save message: "+err.Error())
		return
	}

	// Confirmations for this run travel over this socket.
	gate := confirm.NewGate(&wsPrompter{socket: s})
	assistant := agent.New(d.provider, d.registry, gate, d.engine, d.tasks, d.agentOpts)

	res, err := assistant.Run(ctx, agent.Request{
		SessionID: sessionID,
		Message:   req.Content,
		History:   history,
	})
	if err != nil {
		s.sendError(sessionID, "processing failed: "+err.Error())
		return
	}

	meta, _ := json.Marshal(map[string]any{
		"iterations":    res.Iterations,
		"tool_calls":    len(res.Calls),
		"input_tokens":  res.InputTokens,
		"output_tokens": res.OutputTokens,
		"cost_usd":      res.CostUSD,
	})
	if _, err := d.chats.AddMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   res.Reply,
		Metadata:  string(meta),
	}); err != nil {
		log.Printf("dashboard: saving reply for %s: %v", sessionID, err)
	}

	s.send(chatResponse{
		Type:        "response",
		SessionID:   sessionID,
		Content:     res.Reply,
		ContentHTML: d.renderMarkdown(res.Reply),
		Iterations:  res.Iterations,
		ToolCalls:   len(res.Calls),
	})
}

// history loads the recent turns of a session as model messages.
func (d *Dashboard) history(ctx context.Context, sessionID string) ([]llm.Message, error) {
	msgs, err := d.chats.RecentMessages(ctx, sessionID, historyWindow)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "user":
			history = append(history, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case "assistant":
			history = append(history, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return history, nil
}

// begin marks the socket busy. A second message while an assistant run
// is in flight is rejected instead of queued.
func (s *socket) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *socket) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// resolve routes a confirmation answer to the waiting prompt.
func (s *socket) resolve(req chatRequest) {
	s.mu.Lock()
	ch, ok := s.pending[req.ID]
	if ok {
		delete(s.pending, req.ID)
	}
	s.mu.Unlock()
	if !ok {
		s.sendError(req.SessionID, "no pending confirmation with id "+req.ID)
		return
	}

	choice := confirm.Choice{Kind: confirm.ChoiceCancel}
	switch req.Choice {
	case "confirm":
		choice.Kind = confirm.ChoiceConfirm
	case "alternative":
		choice.Kind = confirm.ChoiceAlternative
		choice.Alternative = req.Alternative
	}
	ch <- choice
}

func (s *socket) send(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		log.Printf("dashboard: websocket write: %v", err)
	}
}

func (s *socket) sendError(sessionID, message string) {
	s.send(chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	})
}

// wsPrompter asks for confirmation over the socket and waits for the
// client to answer.
type wsPrompter struct {
	socket *socket
}

func (p *wsPrompter) Prompt(ctx context.Context, preview impact.Preview, alternatives []confirm.Alternative) (confirm.Choice, error) {
	s := p.socket
	id := uuid.New().String()
	ch := make(chan confirm.Choice, 1)

	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()

	views := make([]alternativeView, len(alternatives))
	for i, alt := range alternatives {
		views[i] = alternativeView{Index: i, Label: alt.Label, Description: alt.Description}
	}
	s.send(confirmRequest{
		Type:         "confirm_request",
		ID:           id,
		Preview:      preview,
		Alternatives: views,
	})

	select {
	case choice := <-ch:
		return choice, nil
	case <-time.After(confirmTimeout):
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		log.Printf("dashboard: confirmation %s timed out, cancelling", id)
		return confirm.Choice{Kind: confirm.ChoiceCancel}, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return confirm.Choice{}, ctx.Err()
	}
}
