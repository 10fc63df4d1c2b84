package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rental-assistant/internal/domain"
)

type fakeScorer struct {
	mu    sync.Mutex
	score float64
	calls int
}

func (f *fakeScorer) Score(_ string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.score
}

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	requests []domain.ChatRequest
}

func (f *fakeLLM) Chat(_ context.Context, req domain.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeLLM) lastRequest() domain.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type memStore struct {
	mu            sync.Mutex
	conversations map[string][]domain.Turn
	messages      map[string][]domain.LogEntry
	getErr        error
	saveErr       error
	appendErr     error
	reads         int
	writes        int
	appends       int
}

func newMemStore() *memStore {
	return &memStore{
		conversations: map[string][]domain.Turn{},
		messages:      map[string][]domain.LogEntry{},
	}
}

func (m *memStore) GetConversation(_ context.Context, userID string) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return append([]domain.Turn(nil), m.conversations[userID]...), nil
}

func (m *memStore) SaveConversation(_ context.Context, userID string, turns []domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.conversations[userID] = append([]domain.Turn(nil), turns...)
	return nil
}

func (m *memStore) AppendMessage(_ context.Context, userID string, entry domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	entry.Timestamp = time.Now()
	m.messages[userID] = append(m.messages[userID], entry)
	return nil
}

type countingRecorder struct {
	modes    []string
	personas []string
	llm      []string
	store    []string
}

func (r *countingRecorder) RecordContextMode(mode string) { r.modes = append(r.modes, mode) }
func (r *countingRecorder) RecordPersona(p string)        { r.personas = append(r.personas, p) }
func (r *countingRecorder) RecordLLMCall(status string, _ time.Duration) {
	r.llm = append(r.llm, status)
}
func (r *countingRecorder) RecordStoreOp(op, status string, _ time.Duration) {
	r.store = append(r.store, op+":"+status)
}

func newTestService(t *testing.T, scorer SentimentScorer, llm LLMClient, store ConversationStore, opts ...Option) *MessageService {
	t.Helper()
	svc, err := NewMessageService(scorer, llm, store, defaultCatalog(t), opts...)
	require.NoError(t, err)
	return svc
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, code, ucErr.Code)
	require.Equal(t, reason, ucErr.Reason)
}

func TestNewMessageService_ValidatesDependencies(t *testing.T) {
	c := defaultCatalog(t)
	_, err := NewMessageService(nil, &fakeLLM{}, newMemStore(), c)
	require.Error(t, err)
	_, err = NewMessageService(&fakeScorer{}, nil, newMemStore(), c)
	require.Error(t, err)
	_, err = NewMessageService(&fakeScorer{}, &fakeLLM{}, nil, c)
	require.Error(t, err)
	_, err = NewMessageService(&fakeScorer{}, &fakeLLM{}, newMemStore(), nil)
	require.Error(t, err)
}

func TestHandleMessage_HappyPath(t *testing.T) {
	store := newMemStore()
	llm := &fakeLLM{reply: "  Hi there!  "}
	rec := &countingRecorder{}
	svc := newTestService(t, &fakeScorer{}, llm, store, WithRecorder(rec))

	out, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hello how are you", UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "Hi there!", out.Reply)
	require.Equal(t, "u1", out.UserID)
	require.Equal(t, ContextNone, out.ContextMode)
	require.Equal(t, PersonaNeutral.Name, out.Persona)

	req := llm.lastRequest()
	require.Equal(t, "hello how are you", req.Message)
	require.Equal(t, PersonaNeutral.Instruction, req.SystemInstruction)
	require.Empty(t, req.History)

	require.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Content: "hello how are you"},
		{Role: domain.RoleAssistant, Content: "Hi there!"},
	}, store.conversations["u1"])
	require.Len(t, store.messages["u1"], 1)
	require.Equal(t, "Hi there!", store.messages["u1"][0].Text)
	require.Equal(t, domain.BotUser, store.messages["u1"][0].User)

	require.Equal(t, []string{"none"}, rec.modes)
	require.Equal(t, []string{"neutral"}, rec.personas)
	require.Equal(t, []string{"ok"}, rec.llm)
	require.Equal(t, []string{"get_conversation:ok", "save_conversation:ok", "append_message:ok"}, rec.store)
}

func TestHandleMessage_DefaultsAnonymousUser(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeScorer{}, &fakeLLM{reply: "ok"}, store)

	out, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi", UserID: "   "})
	require.NoError(t, err)
	require.Equal(t, domain.AnonymousUserID, out.UserID)
	require.Len(t, store.conversations[domain.AnonymousUserID], 2)
}

func TestHandleMessage_EmptyTextHasNoSideEffects(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		store := newMemStore()
		llm := &fakeLLM{reply: "ok"}
		scorer := &fakeScorer{}
		svc := newTestService(t, scorer, llm, store)

		_, err := svc.HandleMessage(context.Background(), MessageInput{Text: text, UserID: "u1"})
		expectError(t, err, ErrorInvalidInput, "missing_text")
		require.Zero(t, store.reads)
		require.Zero(t, store.writes)
		require.Zero(t, store.appends)
		require.Zero(t, llm.calls)
		require.Zero(t, scorer.calls)
	}
}

func TestHandleMessage_InjectsContextButPersistsRawText(t *testing.T) {
	store := newMemStore()
	llm := &fakeLLM{reply: "It costs $45.00 per month."}
	svc := newTestService(t, &fakeScorer{}, llm, store)

	out, err := svc.HandleMessage(context.Background(), MessageInput{Text: "Tell me about WM001", UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, ContextDetail, out.ContextMode)

	sent := llm.lastRequest().Message
	require.True(t, strings.HasPrefix(sent, "Here is specific information about the SmartWasher 5000 (Top Load) (Product ID: WM001)"))
	require.True(t, strings.HasSuffix(sent, " User's question: Tell me about WM001"))

	for _, turn := range store.conversations["u1"] {
		require.NotContains(t, turn.Content, "Here is specific information")
		require.NotContains(t, turn.Content, "User's question:")
	}
	require.Equal(t, "Tell me about WM001", store.conversations["u1"][0].Content)
}

func TestHandleMessage_TranslatesHistoryAndAppendsInOrder(t *testing.T) {
	store := newMemStore()
	prior := []domain.Turn{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "first reply"},
		{Role: domain.RoleUser, Content: "second"},
		{Role: domain.RoleAssistant, Content: "second reply"},
	}
	store.conversations["u1"] = prior
	llm := &fakeLLM{reply: "third reply"}
	svc := newTestService(t, &fakeScorer{}, llm, store)

	_, err := svc.HandleMessage(context.Background(), MessageInput{Text: "third", UserID: "u1"})
	require.NoError(t, err)

	req := llm.lastRequest()
	require.Len(t, req.History, 4)
	require.Equal(t, "model", req.History[1].Role)
	require.Equal(t, "second reply", req.History[3].Parts[0].Text)

	got := store.conversations["u1"]
	require.Len(t, got, len(prior)+2)
	require.Equal(t, prior, got[:len(prior)])
	require.Equal(t, domain.Turn{Role: domain.RoleUser, Content: "third"}, got[4])
	require.Equal(t, domain.Turn{Role: domain.RoleAssistant, Content: "third reply"}, got[5])
}

func TestHandleMessage_PersonaFollowsSentiment(t *testing.T) {
	cases := []struct {
		score float64
		want  Persona
	}{
		{score: -0.9, want: PersonaComforting},
		{score: -0.5, want: PersonaNeutral},
		{score: 0.5, want: PersonaNeutral},
		{score: 0.9, want: PersonaEnthusiastic},
	}
	for _, tc := range cases {
		llm := &fakeLLM{reply: "ok"}
		svc := newTestService(t, &fakeScorer{score: tc.score}, llm, newMemStore())
		out, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi"})
		require.NoError(t, err)
		require.Equal(t, tc.want.Name, out.Persona)
		require.Equal(t, tc.want.Instruction, llm.lastRequest().SystemInstruction)
	}
}

func TestHandleMessage_LLMErrorLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	prior := []domain.Turn{{Role: domain.RoleUser, Content: "a"}, {Role: domain.RoleAssistant, Content: "b"}}
	store.conversations["u1"] = prior
	rec := &countingRecorder{}
	svc := newTestService(t, &fakeScorer{}, &fakeLLM{err: fmt.Errorf("chat: %w", quotaError{})}, store, WithRecorder(rec))

	_, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi", UserID: "u1"})
	expectError(t, err, ErrorUpstream, "llm_error")
	ucErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, "quota exceeded", ucErr.Detail())
	require.Equal(t, prior, store.conversations["u1"])
	require.Zero(t, store.writes)
	require.Zero(t, store.appends)
	require.Equal(t, []string{"error"}, rec.llm)
}

func TestHandleMessage_LocalClientFailureIsInternal(t *testing.T) {
	store := newMemStore()
	llm := &fakeLLM{err: errors.New("gemini: decode response: invalid character 'n'")}
	svc := newTestService(t, &fakeScorer{}, llm, store)

	_, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi", UserID: "u1"})
	expectError(t, err, ErrorInternal, "llm_call_failed")
	require.Zero(t, store.writes)
}

func TestHandleMessage_KeepsRawUserID(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeScorer{}, &fakeLLM{reply: "ok"}, store)

	out, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi", UserID: " bob"})
	require.NoError(t, err)
	require.Equal(t, " bob", out.UserID)

	_, err = svc.HandleMessage(context.Background(), MessageInput{Text: "hi", UserID: "bob"})
	require.NoError(t, err)

	require.Len(t, store.conversations[" bob"], 2)
	require.Len(t, store.conversations["bob"], 2)
	require.Len(t, store.messages[" bob"], 1)
}

func TestHandleMessage_EmptyReplyIsUpstreamError(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeScorer{}, &fakeLLM{reply: " \n "}, store)

	_, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi"})
	expectError(t, err, ErrorUpstream, "llm_empty_reply")
	require.Zero(t, store.writes)
}

func TestHandleMessage_StoreErrors(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("read failed")
	llm := &fakeLLM{reply: "ok"}
	svc := newTestService(t, &fakeScorer{}, llm, store)
	_, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi"})
	expectError(t, err, ErrorInternal, "store_read_error")
	require.Zero(t, llm.calls)

	store = newMemStore()
	store.saveErr = errors.New("write failed")
	svc = newTestService(t, &fakeScorer{}, &fakeLLM{reply: "ok"}, store)
	_, err = svc.HandleMessage(context.Background(), MessageInput{Text: "hi"})
	expectError(t, err, ErrorInternal, "store_write_error")
	require.Zero(t, store.appends)
}

func TestHandleMessage_MessageLogFailureStillSucceeds(t *testing.T) {
	store := newMemStore()
	store.appendErr = errors.New("log unavailable")
	svc := newTestService(t, &fakeScorer{}, &fakeLLM{reply: "ok"}, store)

	out, err := svc.HandleMessage(context.Background(), MessageInput{Text: "hi", UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Reply)
	require.Len(t, store.conversations["u1"], 2)
}

// barrierStore holds every reader until all expected readers have read, so
// two requests are guaranteed to start from the same history.
type barrierStore struct {
	*memStore
	readers sync.WaitGroup
}

func (b *barrierStore) GetConversation(ctx context.Context, userID string) ([]domain.Turn, error) {
	turns, err := b.memStore.GetConversation(ctx, userID)
	b.readers.Done()
	b.readers.Wait()
	return turns, err
}

// Known race: there is no locking between the read and the overwrite, so two
// concurrent requests for one user both start from N turns and the last write
// wins with N+2 turns. This test pins the behavior; it is not a guarantee.
func TestHandleMessage_ConcurrentSameUserLosesTurns(t *testing.T) {
	mem := newMemStore()
	mem.conversations["u1"] = []domain.Turn{
		{Role: domain.RoleUser, Content: "earlier"},
		{Role: domain.RoleAssistant, Content: "earlier reply"},
	}
	store := &barrierStore{memStore: mem}
	store.readers.Add(2)
	svc := newTestService(t, &fakeScorer{}, &fakeLLM{reply: "ok"}, store)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, text := range []string{"request A", "request B"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := svc.HandleMessage(context.Background(), MessageInput{Text: text, UserID: "u1"})
			errs <- err
		}(text)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := mem.conversations["u1"]
	require.Len(t, got, 4, "one request's turn pair is lost")
	require.Equal(t, 2, mem.writes)

	var sawA, sawB bool
	for _, turn := range got {
		sawA = sawA || turn.Content == "request A"
		sawB = sawB || turn.Content == "request B"
	}
	require.True(t, sawA != sawB, "exactly one request's user turn survives")
}
