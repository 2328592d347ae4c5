package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/fetch"

	"github.com/gorilla/websocket"
)

const (
	sessionWriteWait = 10 * time.Second
	sessionPongWait  = 60 * time.Second
	sessionPingEvery = (sessionPongWait * 9) / 10
)

// sessionInbound is a client message. Type "documents" replaces the document
// set, "config" replaces the settings, "ping" asks for a "pong".
type sessionInbound struct {
	Type      string            `json:"type"`
	Documents []engine.Document `json:"documents,omitempty"`
	engine.Options
}

type sessionOutbound struct {
	Type    string         `json:"type"`
	Result  *engine.Output `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

// session holds the state of one websocket connection.
type session struct {
	docs []engine.Document
	cfg  *engine.Config
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	return origin == "" || slices.Contains(h.origins, "*") || slices.Contains(h.origins, origin)
}

// handleSession re-runs the engine after every change once both documents and
// settings are known.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	// same ceiling as a multipart upload
	conn.SetReadLimit(h.documents.MaxBytes * maxUploadFiles)

	h.sessions.Add(1)
	id := RequestID(r.Context())
	slog.Debug("Session opened", "request_id", id)
	defer slog.Debug("Session closed", "request_id", id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(sessionPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(sessionPongWait))
	})

	writeCh := make(chan sessionOutbound, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(sessionPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(sessionWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(sessionWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var s session
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			cancel()
			<-writerDone
			return
		}
		// a slow client blocks here rather than losing results
		select {
		case writeCh <- h.apply(&s, data):
		case <-writerDone:
			return
		}
	}
}

// apply updates the session from one message and returns the reply.
func (h *Handler) apply(s *session, data []byte) sessionOutbound {
	var in sessionInbound
	if err := json.Unmarshal(data, &in); err != nil {
		return sessionError(fmt.Errorf("malformed message: %w", err))
	}

	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case "ping":
		return sessionOutbound{Type: "pong"}
	case "documents":
		docs, err := h.sessionDocuments(in.Documents)
		if err != nil {
			return sessionError(err)
		}
		s.docs = docs
	case "config":
		cfg, err := engine.ParseConfig(in.Options)
		if err != nil {
			return sessionError(err)
		}
		s.cfg = &cfg
	case "":
		return sessionOutbound{Type: "error", Message: "type is required"}
	default:
		return sessionOutbound{Type: "error", Message: fmt.Sprintf("unknown message type %q", in.Type)}
	}

	if s.docs == nil || s.cfg == nil {
		return sessionOutbound{Type: "ack"}
	}
	out, err := h.run(s.docs, *s.cfg)
	if err != nil {
		return sessionError(err)
	}
	return sessionOutbound{Type: "result", Result: &out}
}

// sessionDocuments applies the same checks as uploads. HTML content is
// flattened like any other HTML document.
func (h *Handler) sessionDocuments(in []engine.Document) ([]engine.Document, error) {
	docs := make([]engine.Document, 0, len(in))
	for _, d := range in {
		doc, err := fetch.NewDocument(d.Name, []byte(d.Content), "", h.documents)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	docs = fetch.Dedupe(docs)
	if err := fetch.CheckAll(docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents provided", engine.ErrInvalidInput)
	}
	return docs, nil
}

func sessionError(err error) sessionOutbound {
	msg := err.Error()
	if statusFor(err) == http.StatusInternalServerError {
		slog.Error("Session run failed", "error", err)
		msg = "internal server error"
	}
	return sessionOutbound{Type: "error", Message: msg}
}
