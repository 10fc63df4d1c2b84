package usecase

import (
	"context"
	"errors"
	"strings"

	"rental-assistant/internal/domain"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// MessageLog is the read side of the live message log.
type MessageLog interface {
	ListMessages(ctx context.Context, userID string, limit int) ([]domain.LogEntry, error)
}

type MessageLogService struct {
	log MessageLog
}

func NewMessageLogService(l MessageLog) (*MessageLogService, error) {
	if l == nil {
		return nil, errors.New("usecase: message log must not be nil")
	}
	return &MessageLogService{log: l}, nil
}

// Recent returns up to limit entries for userID, oldest first. userID is used
// verbatim, matching the key HandleMessage writes under. A zero limit selects
// DefaultMessageLimit.
func (s *MessageLogService) Recent(ctx context.Context, userID string, limit int) ([]domain.LogEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	switch {
	case limit == 0:
		limit = DefaultMessageLimit
	case limit < 0 || limit > MaxMessageLimit:
		return nil, newError(ErrorInvalidInput, "invalid_limit", nil)
	}
	entries, err := s.log.ListMessages(ctx, userID, limit)
	if err != nil {
		return nil, newError(ErrorInternal, "store_read_error", err)
	}
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	return entries, nil
}
