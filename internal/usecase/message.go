package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rental-assistant/internal/domain"
)

type SentimentScorer interface {
	Score(text string) float64
}

type LLMClient interface {
	Chat(ctx context.Context, req domain.ChatRequest) (string, error)
}

// ConversationStore persists per-user history and the live message log.
// SaveConversation replaces the stored history wholesale.
type ConversationStore interface {
	GetConversation(ctx context.Context, userID string) ([]domain.Turn, error)
	SaveConversation(ctx context.Context, userID string, turns []domain.Turn) error
	AppendMessage(ctx context.Context, userID string, entry domain.LogEntry) error
}

// Recorder receives pipeline observations. Implemented by metrics.Metrics.
type Recorder interface {
	RecordContextMode(mode string)
	RecordPersona(persona string)
	RecordLLMCall(status string, d time.Duration)
	RecordStoreOp(operation, status string, d time.Duration)
}

type MessageService struct {
	scorer   SentimentScorer
	llm      LLMClient
	store    ConversationStore
	products ProductSource
	log      zerolog.Logger
	recorder Recorder
}

type MessageInput struct {
	Text   string
	UserID string
}

type MessageOutput struct {
	Reply       string
	UserID      string
	ContextMode ContextMode
	Persona     string
}

type Option func(*MessageService)

func WithLogger(l zerolog.Logger) Option {
	return func(s *MessageService) {
		s.log = l
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *MessageService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewMessageService(scorer SentimentScorer, llm LLMClient, store ConversationStore, products ProductSource, opts ...Option) (*MessageService, error) {
	if scorer == nil {
		return nil, errors.New("usecase: sentiment scorer must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if products == nil {
		return nil, errors.New("usecase: product source must not be nil")
	}
	s := &MessageService{
		scorer:   scorer,
		llm:      llm,
		store:    store,
		products: products,
		log:      zerolog.Nop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleMessage runs one request cycle: read history, build the prompt,
// call the model, then overwrite the stored history and publish the reply.
// There is no locking around the read and the write; concurrent requests for
// one user can overwrite each other's turns.
func (s *MessageService) HandleMessage(ctx context.Context, in MessageInput) (MessageOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return MessageOutput{}, newError(ErrorInvalidInput, "missing_text", nil)
	}
	userID := in.UserID
	if strings.TrimSpace(userID) == "" {
		userID = domain.AnonymousUserID
	}
	log := s.log.With().Str("user_id", userID).Logger()

	history, err := s.getConversation(ctx, userID)
	if err != nil {
		return MessageOutput{}, newError(ErrorInternal, "store_read_error", err)
	}

	score := s.scorer.Score(in.Text)
	productContext, mode := buildProductContext(in.Text, s.products)
	persona := SelectPersona(score)
	s.recorder.RecordContextMode(string(mode))
	s.recorder.RecordPersona(persona.Name)
	log.Debug().
		Float64("sentiment", score).
		Str("context_mode", string(mode)).
		Str("persona", persona.Name).
		Int("history_turns", len(history)).
		Msg("prompt assembled")

	reply, err := s.chat(ctx, domain.ChatRequest{
		SystemInstruction: persona.Instruction,
		History:           toChatTurns(history),
		Message:           composeMessage(productContext, in.Text),
	})
	if err != nil {
		var pe ProviderError
		if errors.As(err, &pe) {
			return MessageOutput{}, newError(ErrorUpstream, "llm_error", err)
		}
		return MessageOutput{}, newError(ErrorInternal, "llm_call_failed", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return MessageOutput{}, newError(ErrorUpstream, "llm_empty_reply", errors.New("model returned no text"))
	}

	if err := s.saveConversation(ctx, userID, appendExchange(history, in.Text, reply)); err != nil {
		return MessageOutput{}, newError(ErrorInternal, "store_write_error", err)
	}

	// History is already durable; a lost live-log entry does not fail the request.
	if err := s.appendMessage(ctx, userID, domain.LogEntry{Text: reply, User: domain.BotUser}); err != nil {
		log.Warn().Err(err).Msg("message log append failed")
	}

	return MessageOutput{
		Reply:       reply,
		UserID:      userID,
		ContextMode: mode,
		Persona:     persona.Name,
	}, nil
}

func (s *MessageService) getConversation(ctx context.Context, userID string) ([]domain.Turn, error) {
	start := time.Now()
	turns, err := s.store.GetConversation(ctx, userID)
	s.recorder.RecordStoreOp("get_conversation", status(err), time.Since(start))
	return turns, err
}

func (s *MessageService) saveConversation(ctx context.Context, userID string, turns []domain.Turn) error {
	start := time.Now()
	err := s.store.SaveConversation(ctx, userID, turns)
	s.recorder.RecordStoreOp("save_conversation", status(err), time.Since(start))
	return err
}

func (s *MessageService) appendMessage(ctx context.Context, userID string, entry domain.LogEntry) error {
	start := time.Now()
	err := s.store.AppendMessage(ctx, userID, entry)
	s.recorder.RecordStoreOp("append_message", status(err), time.Since(start))
	return err
}

func (s *MessageService) chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	start := time.Now()
	reply, err := s.llm.Chat(ctx, req)
	s.recorder.RecordLLMCall(status(err), time.Since(start))
	return reply, err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type nopRecorder struct{}

func (nopRecorder) RecordContextMode(string)                    {}
func (nopRecorder) RecordPersona(string)                        {}
func (nopRecorder) RecordLLMCall(string, time.Duration)         {}
func (nopRecorder) RecordStoreOp(string, string, time.Duration) {}
