package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/middleware"
	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
	"github.com/gorilla/websocket"
)

const (
	// MaxSessionTurns bounds how many turns one live session may buffer.
	MaxSessionTurns = 500

	sessionReadLimit    = 64 * 1024
	sessionIdleTimeout  = 10 * time.Minute
	sessionWriteTimeout = 10 * time.Second
	sessionSubmitBudget = 2 * time.Minute
)

// Session message types.
const (
	msgTypePrompt = "prompt"
	msgTypeTurn   = "turn"
	msgTypeEnd    = "end"
	msgTypePing   = "ping"
	msgTypePong   = "pong"
	msgTypeEntry  = "entry"
	msgTypeError  = "error"
)

// SessionClientMessage is a frame sent by the client during a live session.
type SessionClientMessage struct {
	Type    string `json:"type"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionServerMessage is a frame sent to the client.
type SessionServerMessage struct {
	Type   string               `json:"type"`
	Tone   *services.ToneInfo   `json:"tone,omitempty"`
	Prompt string               `json:"prompt,omitempty"`
	Entry  *models.JournalEntry `json:"entry,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// SessionWebSocket runs one live journaling session.
//
// The server opens with the composed prompt for ?tone=. The client streams turns, then sends
// "end"; the buffered turns are assembled into a transcript and submitted through the same
// pipeline as POST /api/journal. The server answers with the entry or an error and closes.
func (h *Handler) SessionWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	tone, prompt, err := h.Journal.ComposePromptFor(r.Context(), identity.ID, r.URL.Query().Get("tone"))
	if errors.Is(err, services.ErrValidation) {
		writeError(w, http.StatusBadRequest, "Unknown tone")
		return
	}
	if err != nil {
		log.Printf("[SessionWebSocket] Failed to build prompt for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to build prompt")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), h.AllowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s := &liveSession{conn: conn}
	if err := s.send(SessionServerMessage{Type: msgTypePrompt, Tone: &tone, Prompt: prompt}); err != nil {
		return
	}

	conn.SetReadLimit(sessionReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(sessionIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(sessionIdleTimeout))
	})

	var turns []models.TranscriptMessage
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Client went away before "end"; nothing is saved.
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(sessionIdleTimeout))

		var msg SessionClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case msgTypeTurn:
			if !services.ValidSource(msg.Source) {
				continue
			}
			if len(turns) >= MaxSessionTurns {
				s.fail("Session is too long")
				return
			}
			turns = append(turns, models.TranscriptMessage{Source: msg.Source, Message: msg.Message})
		case msgTypeEnd:
			h.finishSession(r.Context(), s, identity, turns)
			return
		case msgTypePing:
			_ = s.send(SessionServerMessage{Type: msgTypePong})
		default:
			// Ignore unknown types
		}
	}
}

func (h *Handler) finishSession(ctx context.Context, s *liveSession, identity models.Identity, turns []models.TranscriptMessage) {
	ctx, cancel := context.WithTimeout(ctx, sessionSubmitBudget)
	defer cancel()

	entry, err := h.Journal.CreateEntry(ctx, identity, services.AssembleTranscript(turns))
	if err != nil {
		status, msg := createEntryStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("[SessionWebSocket] Submission failed for user %s: %v", identity.ID, err)
		}
		s.fail(msg)
		return
	}
	_ = s.send(SessionServerMessage{Type: msgTypeEntry, Entry: entry})
	s.close()
}

type liveSession struct {
	conn *websocket.Conn
}

func (s *liveSession) send(msg SessionServerMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *liveSession) fail(message string) {
	_ = s.send(SessionServerMessage{Type: msgTypeError, Error: message})
	s.close()
}

func (s *liveSession) close() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(sessionWriteTimeout))
}
