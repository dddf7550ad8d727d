package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/repository/contract"
	"doc-assistant-be/internal/repository/memory"
	"doc-assistant-be/internal/repository/specification"
	"doc-assistant-be/internal/repository/unitofwork"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/fallback"
	"doc-assistant-be/pkg/intent"
	"doc-assistant-be/pkg/llm"
	"doc-assistant-be/pkg/retrieval"
	"doc-assistant-be/pkg/stream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory repository fakes ----

type fakeDocumentRepo struct {
	docs    []*entity.Document
	deleted []uuid.UUID
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *entity.Document) error {
	r.docs = append(r.docs, doc)
	return nil
}
func (r *fakeDocumentRepo) Update(_ context.Context, _ *entity.Document) error { return nil }
func (r *fakeDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}
func (r *fakeDocumentRepo) FindOne(_ context.Context, _ ...specification.Specification) (*entity.Document, error) {
	if len(r.docs) == 0 {
		return nil, nil
	}
	return r.docs[0], nil
}
func (r *fakeDocumentRepo) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Document, error) {
	return r.docs, nil
}
func (r *fakeDocumentRepo) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	return int64(len(r.docs)), nil
}
func (r *fakeDocumentRepo) FindByNameFragment(_ context.Context, _ uuid.UUID, _ string) ([]*entity.Document, error) {
	return nil, nil
}

type fakeChunkRepo struct {
	created    []*entity.DocumentChunk
	deletedFor []uuid.UUID
}

func (r *fakeChunkRepo) CreateBulk(_ context.Context, chunks []*entity.DocumentChunk) error {
	r.created = append(r.created, chunks...)
	return nil
}
func (r *fakeChunkRepo) DeleteByDocumentId(_ context.Context, docId uuid.UUID) error {
	r.deletedFor = append(r.deletedFor, docId)
	return nil
}
func (r *fakeChunkRepo) SearchSimilarWithScore(_ context.Context, _ []float32, _ int, _ uuid.UUID, _ []uuid.UUID, _ float64) ([]*contract.ScoredChunk, error) {
	return nil, nil
}

type fakeConversationRepo struct {
	convs   []*entity.Conversation
	deleted []uuid.UUID
}

func (r *fakeConversationRepo) Create(_ context.Context, conv *entity.Conversation) error {
	r.convs = append(r.convs, conv)
	return nil
}
func (r *fakeConversationRepo) Update(_ context.Context, _ *entity.Conversation) error { return nil }
func (r *fakeConversationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}
func (r *fakeConversationRepo) FindOne(_ context.Context, _ ...specification.Specification) (*entity.Conversation, error) {
	if len(r.convs) == 0 {
		return nil, nil
	}
	return r.convs[0], nil
}
func (r *fakeConversationRepo) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Conversation, error) {
	return r.convs, nil
}

type fakeMessageRepo struct {
	msgs []*entity.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *entity.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}
func (r *fakeMessageRepo) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Message, error) {
	return r.msgs, nil
}
func (r *fakeMessageRepo) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	return int64(len(r.msgs)), nil
}
func (r *fakeMessageRepo) FindLastAssistantMessage(_ context.Context, _ uuid.UUID) (*entity.Message, error) {
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].Role == constant.ChatRoleAssistant {
			return r.msgs[i], nil
		}
	}
	return nil, nil
}

type fakeFeedbackRepo struct {
	entries []*entity.FeedbackEntry
}

func (r *fakeFeedbackRepo) Create(_ context.Context, fb *entity.FeedbackEntry) error {
	r.entries = append(r.entries, fb)
	return nil
}
func (r *fakeFeedbackRepo) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	return int64(len(r.entries)), nil
}

type fakePreferenceRepo struct {
	pref *entity.UserPreference
}

func (r *fakePreferenceRepo) Upsert(_ context.Context, pref *entity.UserPreference) error {
	r.pref = pref
	return nil
}
func (r *fakePreferenceRepo) FindByUserId(_ context.Context, _ uuid.UUID) (*entity.UserPreference, error) {
	return r.pref, nil
}

type fakeMemoryRepo struct {
	items []*entity.UserMemory
}

func (r *fakeMemoryRepo) Create(_ context.Context, mem *entity.UserMemory) error {
	r.items = append(r.items, mem)
	return nil
}
func (r *fakeMemoryRepo) FindAllByUserId(_ context.Context, _ uuid.UUID, _ int) ([]*entity.UserMemory, error) {
	return r.items, nil
}
func (r *fakeMemoryRepo) DeleteAllByUserId(_ context.Context, _ uuid.UUID) error {
	r.items = nil
	return nil
}

type fakeUow struct {
	docs    *fakeDocumentRepo
	chunks  *fakeChunkRepo
	convs   *fakeConversationRepo
	msgs    *fakeMessageRepo
	fb      *fakeFeedbackRepo
	prefs   *fakePreferenceRepo
	mems    *fakeMemoryRepo
	begins  int
	commits int
}

func newFakeUow() *fakeUow {
	return &fakeUow{
		docs:   &fakeDocumentRepo{},
		chunks: &fakeChunkRepo{},
		convs:  &fakeConversationRepo{},
		msgs:   &fakeMessageRepo{},
		fb:     &fakeFeedbackRepo{},
		prefs:  &fakePreferenceRepo{},
		mems:   &fakeMemoryRepo{},
	}
}

func (u *fakeUow) Begin(_ context.Context) error { u.begins++; return nil }
func (u *fakeUow) Commit() error                 { u.commits++; return nil }
func (u *fakeUow) Rollback() error               { return nil }

func (u *fakeUow) DocumentRepository() contract.DocumentRepository           { return u.docs }
func (u *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository { return u.chunks }
func (u *fakeUow) ConversationRepository() contract.ConversationRepository   { return u.convs }
func (u *fakeUow) MessageRepository() contract.MessageRepository             { return u.msgs }
func (u *fakeUow) FeedbackRepository() contract.FeedbackRepository           { return u.fb }
func (u *fakeUow) UserPreferenceRepository() contract.UserPreferenceRepository {
	return u.prefs
}
func (u *fakeUow) UserMemoryRepository() contract.UserMemoryRepository { return u.mems }

type fakeUowFactory struct {
	uow *fakeUow
}

func (f *fakeUowFactory) NewUnitOfWork(_ context.Context) unitofwork.UnitOfWork { return f.uow }

// ---- retrieval fakes ----

type stubFinder struct {
	docs []retrieval.DocumentRef
}

func (f *stubFinder) FindOwned(_ context.Context, _ uuid.UUID, _ []uuid.UUID) ([]retrieval.DocumentRef, error) {
	return f.docs, nil
}
func (f *stubFinder) FindByNameFragment(_ context.Context, _ uuid.UUID, _ string) ([]retrieval.DocumentRef, error) {
	return nil, nil
}
func (f *stubFinder) ListReady(_ context.Context, _ uuid.UUID) ([]retrieval.DocumentRef, error) {
	return f.docs, nil
}

type stubSearcher struct {
	hits  []retrieval.ChunkHit
	calls int
}

func (s *stubSearcher) SearchSimilar(_ context.Context, _ uuid.UUID, _ []uuid.UUID, _ []float32, _ int) ([]retrieval.ChunkHit, error) {
	s.calls++
	return s.hits, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

// ---- model and bus fakes ----

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: constant.ChatRoleUser, Content: prompt}}, opts...)
}

// stubStreamLLM delivers tokens one by one. When cancel is set it fires after
// the tokens, simulating a client that disconnects mid-generation.
type stubStreamLLM struct {
	stubLLM
	tokens  []string
	summary llm.StreamSummary
	cancel  context.CancelFunc
}

func (s *stubStreamLLM) ChatStream(ctx context.Context, _ []llm.Message, onToken llm.TokenFunc, _ ...llm.Option) (llm.StreamSummary, error) {
	s.calls++
	for _, tok := range s.tokens {
		if err := onToken(tok); err != nil {
			return llm.StreamSummary{}, err
		}
	}
	if s.cancel != nil {
		s.cancel()
		return llm.StreamSummary{}, ctx.Err()
	}
	return s.summary, nil
}

type fakeBus struct {
	payloads [][]byte
}

func (b *fakeBus) Publish(_ context.Context, payload []byte) error {
	b.payloads = append(b.payloads, payload)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(_, _ string, _ map[string]interface{}) {}
func (nopLogger) Info(_, _ string, _ map[string]interface{})  {}
func (nopLogger) Warn(_, _ string, _ map[string]interface{})  {}
func (nopLogger) Error(_, _ string, _ map[string]interface{}) {}
func (nopLogger) Sync() error                                 { return nil }

// ---- fixture ----

type chatFixture struct {
	svc      IChatService
	uow      *fakeUow
	searcher *stubSearcher
	bus      *fakeBus
	userId   uuid.UUID
}

func readyDocs(userId uuid.UUID, n int, sizeBytes int64) []*entity.Document {
	docs := make([]*entity.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, &entity.Document{
			Id:        uuid.New(),
			UserId:    userId,
			Name:      "Report",
			SizeBytes: sizeBytes,
			Status:    "ready",
			CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
		})
	}
	return docs
}

func newChatFixture(t *testing.T, docs []*entity.Document, hits []retrieval.ChunkHit, provider llm.LLMProvider) *chatFixture {
	t.Helper()

	store, err := intent.LoadPatternStore("")
	require.NoError(t, err)
	classifier := intent.NewClassifier(store, intent.DefaultClassifierConfig(), nil)

	fallbacks, err := fallback.Load("")
	require.NoError(t, err)

	uow := newFakeUow()
	uow.docs.docs = docs

	refs := make([]retrieval.DocumentRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, retrieval.DocumentRef{ID: d.Id, Name: d.Name, UpdatedAt: d.CreatedAt})
	}
	searcher := &stubSearcher{hits: hits}
	retriever := retrieval.NewPipeline(&stubFinder{docs: refs}, searcher, stubEmbedder{}, retrieval.Config{}, nil)

	bus := &fakeBus{}
	svc := NewChatService(
		&fakeUowFactory{uow: uow},
		classifier,
		fallbacks,
		retriever,
		provider,
		memory.NewCacheAnswerStore(time.Hour),
		memory.NewStatsCache(time.Minute),
		bus,
		nopLogger{},
		nil,
	)

	return &chatFixture{svc: svc, uow: uow, searcher: searcher, bus: bus, userId: uuid.New()}
}

func reportHit(docID uuid.UUID) retrieval.ChunkHit {
	return retrieval.ChunkHit{
		ChunkID:      uuid.New(),
		DocumentID:   docID,
		DocumentName: "Q3 Report",
		Content:      "The quarterly report shows revenue grew twelve percent over the prior period.",
		ChunkIndex:   0,
		Similarity:   0.91,
		TokenCount:   18,
	}
}

// ---- tests ----

func TestSendChatWorkspaceAnalyticsSkipsModelAndRetrieval(t *testing.T) {
	model := &stubLLM{reply: "should not be used"}
	fx := newChatFixture(t, readyDocs(uuid.New(), 5, 1000), nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "How many documents do I have?",
	})
	require.NoError(t, err)

	assert.Equal(t, string(intent.IntentDocAnalytics), resp.Verdict.Intent)
	assert.Contains(t, resp.Answer, "5 documents")
	assert.Zero(t, model.calls, "analytics must not hit the model")
	assert.Zero(t, fx.searcher.calls, "analytics must not hit vector search")

	require.Len(t, fx.uow.msgs.msgs, 2)
	assert.Equal(t, constant.ChatRoleUser, fx.uow.msgs.msgs[0].Role)
	assert.Equal(t, constant.ChatRoleAssistant, fx.uow.msgs.msgs[1].Role)
	assert.Len(t, fx.uow.convs.convs, 1)
}

func TestSendChatChitchatSkipsRetrieval(t *testing.T) {
	model := &stubLLM{reply: "Hi! How can I help with your documents today?"}
	fx := newChatFixture(t, nil, nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, string(intent.IntentChitchat), resp.Verdict.Intent)
	assert.Equal(t, model.reply, resp.Answer)
	assert.Equal(t, 1, model.calls)
	assert.Zero(t, fx.searcher.calls)
}

func TestSendChatEmptyWorkspaceHelpWordingOverride(t *testing.T) {
	model := &stubLLM{reply: "should not be used"}
	fx := newChatFixture(t, nil, nil, model)

	// Classifies as DOC_QA but the empty workspace plus the "import"
	// wording steers it to product help.
	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "What does the report say about the import process?",
	})
	require.NoError(t, err)

	assert.Equal(t, string(intent.IntentProductHelp), resp.Verdict.Intent)
	assert.Equal(t, 1.0, resp.Verdict.Confidence)
	assert.True(t, resp.Verdict.Overridden)
	assert.Equal(t, string(fallback.ScenarioProductHelp), resp.Fallback)
	assert.Zero(t, model.calls)
	assert.Zero(t, fx.searcher.calls)

	require.Len(t, fx.uow.msgs.msgs, 2)
	meta := fx.uow.msgs.msgs[1].Metadata
	require.NotNil(t, meta)
	assert.Equal(t, intent.OverrideRuleHelpWording, meta.OverrideRule)
}

func TestSendChatEmptyWorkspaceDocIntentGetsGuidance(t *testing.T) {
	model := &stubLLM{reply: "should not be used"}
	fx := newChatFixture(t, nil, nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "summarize my quarterly report",
	})
	require.NoError(t, err)

	assert.Equal(t, string(intent.IntentProductHelp), resp.Verdict.Intent)
	assert.True(t, resp.Verdict.Overridden)
	assert.Equal(t, string(fallback.ScenarioNoDocsGuidance), resp.Fallback)
	assert.Zero(t, model.calls)
}

func TestSendChatMultiSegmentJoinsAnswersWithDivider(t *testing.T) {
	docs := readyDocs(uuid.New(), 5, 1000)
	model := &stubLLM{reply: "The report shows revenue grew twelve percent."}
	fx := newChatFixture(t, docs, []retrieval.ChunkHit{reportHit(docs[0].Id)}, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "summarize my report and then how many documents do i have",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Verdict.Segments)
	assert.Contains(t, resp.Answer, constant.SegmentDivider)
	assert.Contains(t, resp.Answer, "5 documents")
	assert.Contains(t, resp.Answer, model.reply)
	// The last segment drives the recorded verdict.
	assert.Equal(t, string(intent.IntentDocAnalytics), resp.Verdict.Intent)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, 1, fx.searcher.calls)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "Q3 Report", resp.Citations[0].DocumentName)
}

func TestSendChatDocQAWithoutEvidenceFallsBack(t *testing.T) {
	model := &stubLLM{reply: "should not be used"}
	fx := newChatFixture(t, readyDocs(uuid.New(), 3, 1000), nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "What does the contract say about payment terms?",
	})
	require.NoError(t, err)

	assert.Equal(t, string(fallback.ScenarioNoEvidence), resp.Fallback)
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, 1, fx.searcher.calls)
	assert.Zero(t, model.calls)
	assert.Empty(t, resp.Citations)
}

func TestSendChatModelFailureDegradesToFallback(t *testing.T) {
	model := &stubLLM{err: errors.New("connection refused")}
	fx := newChatFixture(t, nil, nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "hello",
	})
	require.NoError(t, err, "an upstream failure must degrade, not fail the turn")

	assert.Equal(t, string(fallback.ScenarioUpstream), resp.Fallback)
	assert.NotEmpty(t, resp.Answer)
	// The degraded turn is still persisted.
	assert.Len(t, fx.uow.msgs.msgs, 2)
}

func TestSendChatStoresMemory(t *testing.T) {
	model := &stubLLM{reply: "should not be used"}
	fx := newChatFixture(t, nil, nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "remember that my favorite color is blue",
	})
	require.NoError(t, err)

	require.Len(t, fx.uow.mems.items, 1)
	assert.Equal(t, "my favorite color is blue", fx.uow.mems.items[0].Content)
	assert.Contains(t, resp.Answer, "my favorite color is blue")
	assert.Zero(t, model.calls)
}

func TestSendChatFeedbackPublishesEvent(t *testing.T) {
	model := &stubLLM{reply: "should not be used"}
	fx := newChatFixture(t, nil, nil, model)

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "thanks, that was a great answer",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)

	require.GreaterOrEqual(t, len(fx.bus.payloads), 2)
	var first chatEventEnvelope
	require.NoError(t, json.Unmarshal(fx.bus.payloads[0], &first))
	assert.Equal(t, events.TypeFeedbackReceived, first.Type)
	assert.Equal(t, "positive", first.Data["sentiment"])

	var last chatEventEnvelope
	require.NoError(t, json.Unmarshal(fx.bus.payloads[len(fx.bus.payloads)-1], &last))
	assert.Equal(t, events.TypeAnswerCompleted, last.Type)
}

func TestSendChatConversationNotFound(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})

	missing := uuid.New()
	_, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		ConversationId: &missing,
		Message:        "hello",
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
	assert.Equal(t, 404, HTTPStatus(err))
}

func TestSendChatBlankMessageIsInvalidInput(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})

	_, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "   ",
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
	assert.Equal(t, 400, HTTPStatus(err))
}

func TestStreamChatTokensConcatenateToDone(t *testing.T) {
	model := &stubStreamLLM{
		tokens:  []string{"Hi", " there", "!"},
		summary: llm.StreamSummary{FinishReason: "stop", TokensUsed: 3},
	}
	fx := newChatFixture(t, nil, nil, model)

	var got []stream.Event
	err := fx.svc.StreamChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "hello",
	}, func(ev stream.Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	var concat strings.Builder
	var done *stream.Event
	var sawMetadata bool
	terminals := 0
	for i := range got {
		switch got[i].Type {
		case stream.EventContent:
			concat.WriteString(got[i].Token)
		case stream.EventMetadata:
			sawMetadata = true
			require.NotNil(t, got[i].Metadata)
			assert.Equal(t, string(intent.IntentChitchat), got[i].Metadata.Intent)
		case stream.EventDone, stream.EventError:
			terminals++
			done = &got[i]
		}
	}
	require.NotNil(t, done)
	assert.Equal(t, stream.EventDone, done.Type)
	assert.Equal(t, 1, terminals)
	assert.Equal(t, done.Type, got[len(got)-1].Type, "the terminal event must close the stream")
	assert.Equal(t, "Hi there!", done.FullAnswer)
	assert.Equal(t, done.FullAnswer, concat.String())
	assert.True(t, sawMetadata)
}

func TestStreamChatCancelledMidStreamLeavesNoTrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := &stubStreamLLM{tokens: []string{"Hi"}, cancel: cancel}
	fx := newChatFixture(t, nil, nil, model)

	var got []stream.Event
	err := fx.svc.StreamChat(ctx, fx.userId, &dto.SendChatRequest{
		Message: "hello",
	}, func(ev stream.Event) error {
		got = append(got, ev)
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	for _, ev := range got {
		assert.False(t, ev.Terminal(), "a cancelled stream must end without a terminal event, got %s", ev.Type)
	}
	assert.Empty(t, fx.uow.msgs.msgs, "a cancelled turn must not persist messages")
	assert.Empty(t, fx.uow.convs.convs, "a cancelled turn must not create the conversation")
}

func TestStreamChatPreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})

	var got []stream.Event
	err := fx.svc.StreamChat(ctx, fx.userId, &dto.SendChatRequest{
		Message: "hello",
	}, func(ev stream.Event) error {
		got = append(got, ev)
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
	assert.Empty(t, fx.uow.msgs.msgs)
}

func TestStreamChatErrorEventOnBadConversation(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})

	missing := uuid.New()
	var got []stream.Event
	err := fx.svc.StreamChat(context.Background(), fx.userId, &dto.SendChatRequest{
		ConversationId: &missing,
		Message:        "hello",
	}, func(ev stream.Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err, "handler errors surface as an error event, not a transport error")

	require.Len(t, got, 1)
	assert.Equal(t, stream.EventError, got[0].Type)
	assert.Equal(t, string(ErrCodeNotFound), got[0].Code)
	assert.NotEmpty(t, got[0].Message)
}

func TestSendChatUpdatesPreference(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "unused"})

	resp, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "please answer in portuguese from now on",
	})
	require.NoError(t, err)

	require.NotNil(t, fx.uow.prefs.pref)
	assert.Equal(t, "pt", fx.uow.prefs.pref.Language)
	assert.Contains(t, resp.Answer, "language set to pt")
}

func TestDeleteConversation(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})

	err := fx.svc.DeleteConversation(context.Background(), fx.userId, uuid.New())
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))

	conv := &entity.Conversation{Id: uuid.New(), UserId: fx.userId}
	fx.uow.convs.convs = append(fx.uow.convs.convs, conv)

	require.NoError(t, fx.svc.DeleteConversation(context.Background(), fx.userId, conv.Id))
	require.Len(t, fx.uow.convs.deleted, 1)
	assert.Equal(t, conv.Id, fx.uow.convs.deleted[0])
}

func TestSendFeedbackRequiresOwnedConversation(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})

	err := fx.svc.SendFeedback(context.Background(), fx.userId, &dto.SendFeedbackRequest{
		ConversationId: uuid.New(),
		Sentiment:      "positive",
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))

	fx.uow.convs.convs = append(fx.uow.convs.convs, &entity.Conversation{
		Id:     uuid.New(),
		UserId: fx.userId,
	})
	err = fx.svc.SendFeedback(context.Background(), fx.userId, &dto.SendFeedbackRequest{
		ConversationId: fx.uow.convs.convs[0].Id,
		Sentiment:      "positive",
	})
	require.NoError(t, err)
	require.Len(t, fx.bus.payloads, 1)

	var env chatEventEnvelope
	require.NoError(t, json.Unmarshal(fx.bus.payloads[0], &env))
	assert.Equal(t, events.TypeFeedbackReceived, env.Type)
}

func TestStreamChatMultiSegmentConcatMatchesDone(t *testing.T) {
	userId := uuid.New()
	docs := readyDocs(userId, 5, 1000)
	model := &stubStreamLLM{tokens: []string{"Revenue ", "grew ", "twelve percent."}}
	fx := newChatFixture(t, docs, []retrieval.ChunkHit{reportHit(docs[0].Id)}, model)
	fx.userId = userId

	var got []stream.Event
	err := fx.svc.StreamChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "summarize my report and then how many documents do i have",
	}, func(ev stream.Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)

	var concat strings.Builder
	var done *stream.Event
	for i := range got {
		switch got[i].Type {
		case stream.EventContent:
			concat.WriteString(got[i].Token)
		case stream.EventDone:
			done = &got[i]
		}
	}
	require.NotNil(t, done)
	assert.Contains(t, done.FullAnswer, constant.SegmentDivider)
	assert.Equal(t, done.FullAnswer, concat.String(),
		"content events must concatenate to the full answer, divider included")
}

func TestSendChatPromptOverBudgetFallsBack(t *testing.T) {
	userId := uuid.New()
	docs := readyDocs(userId, 3, 1000)
	hit := reportHit(docs[0].Id)
	hit.Content = strings.Repeat("x", 40000)
	model := &stubLLM{reply: "should not be reached"}
	fx := newChatFixture(t, docs, []retrieval.ChunkHit{hit}, model)
	fx.userId = userId

	res, err := fx.svc.SendChat(context.Background(), fx.userId, &dto.SendChatRequest{
		Message: "What does the report say about revenue?",
	})
	require.NoError(t, err)

	assert.Equal(t, string(fallback.ScenarioBudgetExceeded), res.Fallback)
	assert.Equal(t, 0, model.calls, "an over-budget prompt must never reach the model")
	assert.Len(t, fx.uow.msgs.msgs, 2, "a degraded turn is still persisted")
}

func TestForgetMemories(t *testing.T) {
	fx := newChatFixture(t, nil, nil, &stubLLM{reply: "hi"})
	fx.uow.mems.items = []*entity.UserMemory{
		{Id: uuid.New(), UserId: fx.userId, Content: "my favorite color is blue"},
		{Id: uuid.New(), UserId: fx.userId, Content: "i work in finance"},
	}

	require.NoError(t, fx.svc.ForgetMemories(context.Background(), fx.userId))
	assert.Empty(t, fx.uow.mems.items)
}
