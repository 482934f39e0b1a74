// ABOUTME: JSON handlers for the chat and health endpoints
// ABOUTME: Validates chat requests and maps service failures to HTTP status codes
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/harper/folio/internal/core"
)

const (
	// MaxBodyBytes bounds the size of a chat request body
	MaxBodyBytes = 64 << 10
	// MinSessionIDLength is the shortest accepted session identifier
	MinSessionIDLength = 8
	// MaxMessageLength is the longest accepted message, in characters
	MaxMessageLength = 4000

	// UnavailableDetail is returned when no reply could be produced
	UnavailableDetail = "Unable to generate a response. Check your API key and index."
)

// ChatHandler answers one chat message within a session
type ChatHandler interface {
	Handle(ctx context.Context, sessionID, message string) (string, error)
}

// ChatRequest is the body of POST /api/chat.
// The camelCase session key is accepted for older frontends.
type ChatRequest struct {
	SessionID      string `json:"session_id"`
	SessionIDCamel string `json:"sessionId,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the body of a successful chat reply
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse carries a human readable failure
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Session returns whichever session key the client sent
func (r ChatRequest) Session() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.SessionIDCamel
}

// Validate checks field bounds
func (r ChatRequest) Validate() error {
	if n := utf8.RuneCountInString(r.Session()); n < MinSessionIDLength {
		return fmt.Errorf("session_id must be at least %d characters", MinSessionIDLength)
	}
	n := utf8.RuneCountInString(r.Message)
	if n < 1 {
		return errors.New("message must not be empty")
	}
	if n > MaxMessageLength {
		return fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func chatHandler(chat ChatHandler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
			return
		}
		if err := req.Validate(); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		reply, err := chat.Handle(r.Context(), req.Session(), req.Message)
		if err != nil {
			if !errors.Is(err, core.ErrServiceUnavailable) {
				logger.Error("chat failed", zap.String("session_id", req.Session()), zap.Error(err))
			}
			writeDetail(w, http.StatusInternalServerError, UnavailableDetail)
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
	}
}
