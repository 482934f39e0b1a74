// ABOUTME: ChatService answers a message within a session and records the exchange
// ABOUTME: The session changes only when the pipeline produced a reply
package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harper/folio/internal/logging"
	"github.com/harper/folio/internal/models"
)

// ErrServiceUnavailable is returned when no reply could be generated
var ErrServiceUnavailable = errors.New("unable to generate a response")

// ReplyGenerator produces a reply for a question given prior turns
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, question string, history []models.ChatTurn) (Reply, error)
}

// ChatService composes the session store and the reply pipeline
type ChatService struct {
	sessions *SessionStore
	pipeline ReplyGenerator
	logger   *zap.Logger
	observer Observer
}

// NewChatService creates a ChatService
func NewChatService(sessions *SessionStore, pipeline ReplyGenerator, logger *zap.Logger, observer Observer) *ChatService {
	return &ChatService{
		sessions: sessions,
		pipeline: pipeline,
		logger:   logging.OrNop(logger),
		observer: observerOrNop(observer),
	}
}

// Sessions exposes the underlying store
func (cs *ChatService) Sessions() *SessionStore {
	return cs.sessions
}

// Handle answers message for sessionID and appends the user and assistant turns.
// Pipeline failures are logged and returned as ErrServiceUnavailable.
func (cs *ChatService) Handle(ctx context.Context, sessionID, message string) (string, error) {
	history := cs.sessions.GetHistory(sessionID)

	reply, err := cs.pipeline.GenerateReply(ctx, message, history)
	if err != nil {
		cs.observer.ObserveChat(OutcomeUnavailable)
		cs.logger.Error("chat reply failed",
			zap.String("session_id", sessionID),
			zap.Int("history_turns", len(history)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	if err := cs.sessions.AppendMessage(sessionID, models.RoleUser, message); err != nil {
		return "", err
	}
	if err := cs.sessions.AppendMessage(sessionID, models.RoleAssistant, reply.Text); err != nil {
		return "", err
	}

	if reply.Configured {
		cs.observer.ObserveChat(OutcomeOK)
	} else {
		cs.observer.ObserveChat(OutcomeNotConfigured)
		cs.logger.Warn("chat answered with configuration sentinel", zap.String("session_id", sessionID))
	}
	return reply.Text, nil
}
