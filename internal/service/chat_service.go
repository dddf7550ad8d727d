package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/entity"
	"doc-assistant-be/internal/pkg/logger"
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
)

// IChatService is the chat orchestrator: classification, overrides, routing,
// retrieval, generation and persistence for one conversation turn.
type IChatService interface {
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit func(stream.Event) error) error
	GetConversations(ctx context.Context, userId uuid.UUID) ([]*dto.GetConversationsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) error
	ForgetMemories(ctx context.Context, userId uuid.UUID) error
	SendFeedback(ctx context.Context, userId uuid.UUID, request *dto.SendFeedbackRequest) error
}

type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	classifier  *intent.Classifier
	fallbacks   *fallback.Resolver
	retriever   *retrieval.Pipeline
	llmProvider llm.LLMProvider
	answers     memory.AnswerStore
	statsCache  *memory.StatsCache
	publisher   IPublisherService
	log         logger.ILogger
	pipelineLog *log.Logger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	classifier *intent.Classifier,
	fallbacks *fallback.Resolver,
	retriever *retrieval.Pipeline,
	llmProvider llm.LLMProvider,
	answers memory.AnswerStore,
	statsCache *memory.StatsCache,
	publisher IPublisherService,
	lg logger.ILogger,
	pipelineLog *log.Logger,
) IChatService {
	return &chatService{
		uowFactory:  uowFactory,
		classifier:  classifier,
		fallbacks:   fallbacks,
		retriever:   retriever,
		llmProvider: llmProvider,
		answers:     answers,
		statsCache:  statsCache,
		publisher:   publisher,
		log:         lg,
		pipelineLog: pipelineLog,
	}
}

// segmentAnswer is the outcome of routing one query segment.
type segmentAnswer struct {
	text         string
	citations    []entity.MessageCitation
	fallback     string
	tokensUsed   int
	finishReason string
	retrieved    int
}

// turnContext carries per-turn state through the handler branches.
type turnContext struct {
	userId uuid.UUID
	convId uuid.UUID
	req    *dto.SendChatRequest
	style  fallback.Style
	stats  memory.WorkspaceSnapshot
	emit   func(stream.Event) error // nil on the non-streaming path
}

func (tc *turnContext) send(ev stream.Event) error {
	if tc.emit == nil {
		return nil
	}
	return tc.emit(ev)
}

// turnResult is what one completed chat turn produced.
type turnResult struct {
	conversationId uuid.UUID
	messageId      uuid.UUID
	answer         string
	verdict        intent.Verdict
	overridden     bool
	segments       int
	citations      []entity.MessageCitation
	fallback       string
	createdAt      time.Time
}

// SendChat runs a full turn and returns the final answer in one response.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	res, err := cs.process(ctx, userId, request, nil)
	if err != nil {
		return nil, err
	}

	citations := make([]dto.ChatCitationDTO, 0, len(res.citations))
	for _, c := range res.citations {
		citations = append(citations, dto.ChatCitationDTO{
			DocumentId:   c.DocumentId,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.ChunkIndex,
			Snippet:      c.Snippet,
		})
	}

	return &dto.SendChatResponse{
		ConversationId: res.conversationId,
		MessageId:      res.messageId,
		Answer:         res.answer,
		Verdict: dto.ChatVerdictDTO{
			Intent:     string(res.verdict.PrimaryIntent),
			Confidence: res.verdict.Confidence,
			Language:   string(res.verdict.Language),
			Overridden: res.overridden,
			Segments:   res.segments,
		},
		Citations: citations,
		Fallback:  res.fallback,
		CreatedAt: res.createdAt,
	}, nil
}

// StreamChat runs a full turn, forwarding events to emit. A well-formed
// stream ends with exactly one done or error event; a cancelled turn ends
// with neither.
func (cs *chatService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit func(stream.Event) error) error {
	_, err := cs.process(ctx, userId, request, emit)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Client is gone; nothing to emit.
		return err
	}
	code := CodeOf(err)
	cs.log.Error("chat", "stream turn failed", map[string]interface{}{
		"user_id": userId.String(),
		"code":    string(code),
		"error":   err.Error(),
	})
	if emitErr := emit(stream.Error(string(code), publicErrorMessage(code))); emitErr != nil {
		return emitErr
	}
	return nil
}

// publicErrorMessage keeps internals out of client-facing error events.
func publicErrorMessage(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidInput:
		return "The message could not be processed. Please rephrase and try again."
	case ErrCodeNotFound:
		return "Conversation not found."
	case ErrCodeUpstream:
		return "A backing service is unavailable right now. Please try again shortly."
	default:
		return "Something went wrong on our side. Please try again."
	}
}

// process is the shared turn state machine:
// classify -> segment -> override -> route -> persist -> done.
func (cs *chatService) process(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit func(stream.Event) error) (*turnResult, error) {
	verdict, err := cs.classifier.Predict(request.Message, request.Language)
	if err != nil {
		if errors.Is(err, intent.ErrEmptyQuery) {
			return nil, newChatError(ErrCodeInvalidInput, "message is empty", err)
		}
		return nil, newChatError(ErrCodeClassification, "classification failed", err)
	}

	conv, convIsNew, err := cs.resolveConversation(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	stats, err := cs.workspaceStats(ctx, userId)
	if err != nil {
		return nil, newChatError(ErrCodeInternal, "workspace stats unavailable", err)
	}

	tc := &turnContext{
		userId: userId,
		convId: conv.Id,
		req:    request,
		style:  cs.resolveStyle(ctx, userId, request.Style),
		stats:  stats,
		emit:   emit,
	}

	normalized := intent.Normalize(request.Message)
	segments := cs.planSegments(normalized, verdict)

	cs.tracef("[TURN] user=%s conv=%s intent=%s conf=%.2f segments=%d", userId, conv.Id, verdict.PrimaryIntent, verdict.Confidence, len(segments))

	var (
		parts        []string
		citations    []entity.MessageCitation
		lastDecision intent.OverrideDecision
		lastAnswer   segmentAnswer
		retrieved    int
	)
	for i, seg := range segments {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// The divider is part of the final answer, so the stream carries it
		// as content too; concatenated content events must equal done's
		// full_answer.
		if i > 0 {
			if err := tc.send(stream.Content(constant.SegmentDivider)); err != nil {
				return nil, err
			}
		}

		decision := intent.ResolveOverride(seg.verdict, intent.WorkspaceStats{
			DocumentCount: stats.DocumentCount,
			StorageBytes:  stats.StorageBytes,
		}, seg.text)
		if decision.Overridden {
			cs.tracef("[OVERRIDE] user=%s rule=%s %s -> %s", userId, decision.Rule, seg.verdict.PrimaryIntent, decision.Verdict.PrimaryIntent)
		}
		if err := tc.send(stream.Intent(string(decision.Verdict.PrimaryIntent), decision.Verdict.Confidence)); err != nil {
			return nil, err
		}

		ans, err := cs.dispatchSafe(ctx, tc, decision, seg.text)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			cs.log.Error("chat", "segment handler failed", map[string]interface{}{
				"user_id": userId.String(),
				"intent":  string(decision.Verdict.PrimaryIntent),
				"code":    string(CodeOf(err)),
				"error":   err.Error(),
			})
			ans = cs.errorFallback(tc, decision.Verdict.Language, err)
			if tc.emit != nil {
				if emitErr := tc.send(stream.Content(ans.text)); emitErr != nil {
					return nil, emitErr
				}
			}
		}

		parts = append(parts, ans.text)
		citations = append(citations, ans.citations...)
		retrieved += ans.retrieved
		lastDecision = decision
		lastAnswer = ans
	}

	fullAnswer := strings.Join(parts, constant.SegmentDivider)

	for _, c := range citations {
		if err := tc.send(stream.CitationOf(stream.Citation{
			DocumentID:   c.DocumentId.String(),
			DocumentName: c.DocumentName,
			ChunkIndex:   c.ChunkIndex,
			Snippet:      c.Snippet,
		})); err != nil {
			return nil, err
		}
	}
	if err := tc.send(stream.MetadataOf(stream.Metadata{
		Intent:          string(lastDecision.Verdict.PrimaryIntent),
		Confidence:      lastDecision.Verdict.Confidence,
		Language:        string(lastDecision.Verdict.Language),
		Overridden:      lastDecision.Overridden,
		Segments:        len(segments),
		RetrievedChunks: retrieved,
	})); err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	now := time.Now()
	assistantMsg, err := cs.persistTurn(ctx, tc, conv, convIsNew, request.Message, fullAnswer, lastDecision, lastAnswer, len(segments), citations, now)
	if err != nil {
		return nil, newChatError(ErrCodeInternal, "persist turn", err)
	}

	if saveErr := cs.answers.Save(ctx, userId.String(), conv.Id.String(), memory.StoredAnswer{
		Text:      fullAnswer,
		Intent:    string(lastDecision.Verdict.PrimaryIntent),
		Question:  request.Message,
		CreatedAt: now,
	}); saveErr != nil {
		cs.log.Warn("chat", "answer store save failed", map[string]interface{}{"error": saveErr.Error()})
	}

	cs.publishEvent(ctx, events.NewAnswerCompleted(
		userId.String(), conv.Id.String(),
		string(lastDecision.Verdict.PrimaryIntent), lastDecision.Verdict.Confidence, len(citations),
	))

	if err := tc.send(stream.Done(fullAnswer)); err != nil {
		return nil, err
	}

	return &turnResult{
		conversationId: conv.Id,
		messageId:      assistantMsg.Id,
		answer:         fullAnswer,
		verdict:        lastDecision.Verdict,
		overridden:     lastDecision.Overridden,
		segments:       len(segments),
		citations:      citations,
		fallback:       lastAnswer.fallback,
		createdAt:      now,
	}, nil
}

// querySegment pairs a segment with its own verdict.
type querySegment struct {
	text    string
	verdict intent.Verdict
}

// planSegments splits a multi-part question and classifies each part in the
// language of the whole message. Segments that fail classification fall back
// to the whole-message verdict.
func (cs *chatService) planSegments(normalized string, whole intent.Verdict) []querySegment {
	seg := intent.DetectSegments(normalized, whole.Language)
	if !seg.IsMulti {
		return []querySegment{{text: normalized, verdict: whole}}
	}
	out := make([]querySegment, 0, len(seg.Segments))
	for _, part := range seg.Segments {
		v, err := cs.classifier.Predict(part, string(whole.Language))
		if err != nil {
			v = whole
		}
		out = append(out, querySegment{text: intent.Normalize(part), verdict: v})
	}
	return out
}

// dispatchSafe wraps dispatch with panic recovery so a handler bug degrades
// to a fallback answer instead of tearing down the request.
func (cs *chatService) dispatchSafe(ctx context.Context, tc *turnContext, decision intent.OverrideDecision, segText string) (ans segmentAnswer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newChatError(ErrCodeInternal, fmt.Sprintf("handler panic: %v", r), nil)
		}
	}()
	return cs.dispatch(ctx, tc, decision, segText)
}

// dispatch routes one segment to its handler. Every value of the intent enum
// has a branch; an unknown value is a bug and surfaces as UNSUPPORTED_INTENT.
func (cs *chatService) dispatch(ctx context.Context, tc *turnContext, decision intent.OverrideDecision, segText string) (segmentAnswer, error) {
	v := decision.Verdict
	switch v.PrimaryIntent {
	case intent.IntentDocQA:
		return cs.answerFromDocuments(ctx, tc, v, segText, constant.DocQASystemPromptV2)
	case intent.IntentDocSearch:
		return cs.searchDocuments(ctx, tc, v, segText)
	case intent.IntentDocSummarize:
		return cs.answerFromDocuments(ctx, tc, v, segText, constant.DocSummarizeSystemPromptV1)
	case intent.IntentDocAnalytics:
		return cs.workspaceAnalytics(tc, v)
	case intent.IntentDocManagement:
		return cs.templated(tc, fallback.ScenarioComingSoon, v.Language, map[string]string{"action": "managing documents from chat"}), nil
	case intent.IntentPreferenceUpdate:
		return cs.updatePreference(ctx, tc, segText)
	case intent.IntentMemoryStore:
		return cs.storeMemory(ctx, tc, segText)
	case intent.IntentMemoryRecall:
		return cs.recallMemories(ctx, tc, segText)
	case intent.IntentAnswerRewrite:
		return cs.reworkAnswer(ctx, tc, v, segText, "Rewrite the previous answer with different wording, same level of detail.")
	case intent.IntentAnswerExpand:
		return cs.reworkAnswer(ctx, tc, v, segText, "Expand the previous answer with more detail and examples from its content.")
	case intent.IntentAnswerSimplify:
		return cs.reworkAnswer(ctx, tc, v, segText, "Simplify the previous answer into short, plain sentences.")
	case intent.IntentFeedbackPositive:
		return cs.acknowledgeFeedback(ctx, tc, "positive", segText)
	case intent.IntentFeedbackNegative:
		return cs.acknowledgeFeedback(ctx, tc, "negative", segText)
	case intent.IntentProductHelp:
		if decision.NoDocsGuidance {
			return cs.templated(tc, fallback.ScenarioNoDocsGuidance, v.Language, map[string]string{"action": "upload a document"}), nil
		}
		return cs.templated(tc, fallback.ScenarioProductHelp, v.Language, map[string]string{"name": "the document assistant"}), nil
	case intent.IntentOnboarding:
		return cs.direct(tc, constant.OnboardingAnswerV1)
	case intent.IntentFeatureRequest:
		cs.publishEvent(ctx, events.NewFeatureRequest(tc.userId.String(), tc.convId.String(), segText))
		return cs.direct(tc, "Thanks for the suggestion! I've passed it on to the team.")
	case intent.IntentGeneralKnowledge, intent.IntentReasoning, intent.IntentTextTransform, intent.IntentChitchat:
		return cs.generalAnswer(ctx, tc, segText)
	case intent.IntentMetaDescription:
		return cs.direct(tc, constant.MetaDescriptionAnswerV1)
	case intent.IntentOutOfScope:
		return cs.templated(tc, fallback.ScenarioOutOfScope, v.Language, nil), nil
	case intent.IntentAmbiguous, intent.IntentMultiIntent:
		return cs.templated(tc, fallback.ScenarioAmbiguous, v.Language, nil), nil
	case intent.IntentSafetyConcern:
		cs.publishEvent(ctx, events.NewSafetyConcern(tc.userId.String(), tc.convId.String()))
		return cs.templated(tc, fallback.ScenarioSafetyConcern, v.Language, nil), nil
	default:
		return segmentAnswer{}, newChatError(ErrCodeUnsupported, fmt.Sprintf("no handler for intent %s", v.PrimaryIntent), nil)
	}
}

// ---- document handlers ----

var quotedNameRE = regexp.MustCompile(`"([^"]{2,64})"|'([^']{2,64})'`)

// nameFragment pulls a quoted document name out of the query, if any.
func nameFragment(query string) string {
	m := quotedNameRE.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func (cs *chatService) retrieve(ctx context.Context, tc *turnContext, segText string) ([]retrieval.RankedChunk, error) {
	if err := tc.send(stream.Retrieving()); err != nil {
		return nil, err
	}
	ranked, err := cs.retriever.Retrieve(ctx, retrieval.Request{
		UserID:         tc.userId,
		Query:          segText,
		ExplicitDocIDs: tc.req.DocumentIds,
		SelectedDocIDs: tc.req.SelectedIds,
		NameFragment:   nameFragment(segText),
	})
	if err != nil {
		return nil, newChatError(ErrCodeUpstream, "retrieval failed", err)
	}
	return ranked, nil
}

func citationsOf(ranked []retrieval.RankedChunk) []entity.MessageCitation {
	out := make([]entity.MessageCitation, 0, len(ranked))
	for _, rc := range ranked {
		out = append(out, entity.MessageCitation{
			DocumentId:   rc.DocumentID,
			DocumentName: rc.DocumentName,
			ChunkIndex:   rc.ChunkIndex,
			Snippet:      snippet(rc.Content, 160),
		})
	}
	return out
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

func (cs *chatService) answerFromDocuments(ctx context.Context, tc *turnContext, v intent.Verdict, segText, systemPrompt string) (segmentAnswer, error) {
	ranked, err := cs.retrieve(ctx, tc, segText)
	if err != nil {
		return segmentAnswer{}, err
	}
	if len(ranked) == 0 {
		return cs.templated(tc, fallback.ScenarioNoEvidence, v.Language, nil), nil
	}

	var b strings.Builder
	for i, rc := range ranked {
		fmt.Fprintf(&b, "[Excerpt %d from %q]\n%s\n\n", i+1, rc.DocumentName, rc.Content)
	}

	history := []llm.Message{
		{Role: constant.ChatRoleSystem, Content: systemPrompt},
		{Role: constant.ChatRoleUser, Content: fmt.Sprintf("DOCUMENT EXCERPTS:\n\n%sQUESTION: %s", b.String(), segText)},
	}

	text, summary, err := cs.generate(ctx, tc, history)
	if err != nil {
		return segmentAnswer{}, err
	}
	return segmentAnswer{
		text:         text,
		citations:    citationsOf(ranked),
		tokensUsed:   summary.TokensUsed,
		finishReason: summary.FinishReason,
		retrieved:    len(ranked),
	}, nil
}

// searchDocuments answers DOC_SEARCH with the ranked matches directly, no
// model round-trip.
func (cs *chatService) searchDocuments(ctx context.Context, tc *turnContext, v intent.Verdict, segText string) (segmentAnswer, error) {
	ranked, err := cs.retrieve(ctx, tc, segText)
	if err != nil {
		return segmentAnswer{}, err
	}
	if len(ranked) == 0 {
		return cs.templated(tc, fallback.ScenarioNoEvidence, v.Language, nil), nil
	}

	var b strings.Builder
	b.WriteString("Here is what I found:\n")
	for i, rc := range ranked {
		fmt.Fprintf(&b, "%d. %s (section %d): %s\n", i+1, rc.DocumentName, rc.ChunkIndex+1, snippet(rc.Content, 200))
	}
	ans := segmentAnswer{
		text:      strings.TrimRight(b.String(), "\n"),
		citations: citationsOf(ranked),
		retrieved: len(ranked),
	}
	if err := tc.send(stream.Content(ans.text)); err != nil {
		return segmentAnswer{}, err
	}
	return ans, nil
}

// workspaceAnalytics answers from the cached census, no retrieval and no
// model round-trip.
func (cs *chatService) workspaceAnalytics(tc *turnContext, v intent.Verdict) (segmentAnswer, error) {
	noun := "documents"
	if tc.stats.DocumentCount == 1 {
		noun = "document"
	}
	text := fmt.Sprintf("You have %d %s in your workspace, using %s of storage.",
		tc.stats.DocumentCount, noun, humanBytes(tc.stats.StorageBytes))
	return cs.direct(tc, text)
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/float64(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// ---- memory and preference handlers ----

var memoryPrefixes = []string{
	"please remember that ", "remember that ", "please remember ", "remember ",
	"don't forget that ", "dont forget that ", "note that ",
	"lembre-se que ", "lembre que ", "recuerda que ", "recuerda ",
}

func memoryContent(segText string) string {
	for _, p := range memoryPrefixes {
		if strings.HasPrefix(segText, p) {
			return strings.TrimSpace(segText[len(p):])
		}
	}
	return strings.TrimSpace(segText)
}

func (cs *chatService) storeMemory(ctx context.Context, tc *turnContext, segText string) (segmentAnswer, error) {
	content := memoryContent(segText)
	if content == "" {
		return segmentAnswer{}, newChatError(ErrCodeInvalidInput, "nothing to remember", nil)
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return segmentAnswer{}, err
	}
	defer uow.Rollback()

	mem := &entity.UserMemory{
		Id:        uuid.New(),
		UserId:    tc.userId,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := uow.UserMemoryRepository().Create(ctx, mem); err != nil {
		return segmentAnswer{}, err
	}
	if err := uow.Commit(); err != nil {
		return segmentAnswer{}, err
	}

	return cs.direct(tc, fmt.Sprintf("Got it. I'll remember that %s.", content))
}

func (cs *chatService) recallMemories(ctx context.Context, tc *turnContext, segText string) (segmentAnswer, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	memories, err := uow.UserMemoryRepository().FindAllByUserId(ctx, tc.userId, 20)
	if err != nil {
		return segmentAnswer{}, err
	}
	if len(memories) == 0 {
		return cs.direct(tc, "I don't have anything stored about you yet. Tell me something to remember and I'll keep it in mind.")
	}

	var b strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&b, "- %s (%s)\n", m.Content, m.CreatedAt.Format("2006-01-02"))
	}
	history := []llm.Message{
		{Role: constant.ChatRoleSystem, Content: constant.MemoryRecallSystemPromptV1},
		{Role: constant.ChatRoleUser, Content: fmt.Sprintf("STORED FACTS:\n%s\nQUESTION: %s", b.String(), segText)},
	}
	text, summary, err := cs.generate(ctx, tc, history)
	if err != nil {
		return segmentAnswer{}, err
	}
	return segmentAnswer{text: text, tokensUsed: summary.TokensUsed, finishReason: summary.FinishReason}, nil
}

var preferenceLanguages = map[string]string{
	"english": "en", "inglês": "en", "ingles": "en", "inglés": "en",
	"portuguese": "pt", "português": "pt", "portugues": "pt", "portugués": "pt",
	"spanish": "es", "espanhol": "es", "español": "es", "espanol": "es",
}

var preferenceStyles = map[string]string{
	"professional": string(fallback.StyleProfessional),
	"formal":       string(fallback.StyleProfessional),
	"friendly":     string(fallback.StyleFriendly),
	"casual":       string(fallback.StyleFriendly),
	"informal":     string(fallback.StyleFriendly),
}

func (cs *chatService) updatePreference(ctx context.Context, tc *turnContext, segText string) (segmentAnswer, error) {
	var lang, style string
	for word, code := range preferenceLanguages {
		if strings.Contains(segText, word) {
			lang = code
			break
		}
	}
	for word, code := range preferenceStyles {
		if strings.Contains(segText, word) {
			style = code
			break
		}
	}
	if lang == "" && style == "" {
		return cs.direct(tc, "I can set your language (English, Portuguese or Spanish) and answer style (friendly or professional). Which would you like?")
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.UserPreferenceRepository().FindByUserId(ctx, tc.userId)
	if err != nil {
		return segmentAnswer{}, err
	}

	now := time.Now()
	pref := &entity.UserPreference{
		Id:        uuid.New(),
		UserId:    tc.userId,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	if existing != nil {
		pref.Id = existing.Id
		pref.Language = existing.Language
		pref.AnswerStyle = existing.AnswerStyle
		pref.CreatedAt = existing.CreatedAt
	}
	var changes []string
	if lang != "" {
		pref.Language = lang
		changes = append(changes, fmt.Sprintf("language set to %s", lang))
	}
	if style != "" {
		pref.AnswerStyle = style
		changes = append(changes, fmt.Sprintf("answer style set to %s", style))
	}

	if err := uow.Begin(ctx); err != nil {
		return segmentAnswer{}, err
	}
	defer uow.Rollback()
	if err := uow.UserPreferenceRepository().Upsert(ctx, pref); err != nil {
		return segmentAnswer{}, err
	}
	if err := uow.Commit(); err != nil {
		return segmentAnswer{}, err
	}

	return cs.direct(tc, fmt.Sprintf("Done: %s.", strings.Join(changes, ", ")))
}

// ---- answer rework handlers ----

func (cs *chatService) reworkAnswer(ctx context.Context, tc *turnContext, v intent.Verdict, segText, instruction string) (segmentAnswer, error) {
	prev, found, err := cs.answers.Get(ctx, tc.userId.String(), tc.convId.String())
	if err != nil {
		cs.log.Warn("chat", "answer store read failed", map[string]interface{}{"error": err.Error()})
	}
	if !found {
		// The store is ephemeral; fall back to the persisted history.
		uow := cs.uowFactory.NewUnitOfWork(ctx)
		last, dbErr := uow.MessageRepository().FindLastAssistantMessage(ctx, tc.convId)
		if dbErr != nil {
			return segmentAnswer{}, dbErr
		}
		if last != nil {
			prev = memory.StoredAnswer{Text: last.Content, Intent: last.Intent, CreatedAt: last.CreatedAt}
			found = true
		}
	}
	if !found || strings.TrimSpace(prev.Text) == "" {
		return cs.templated(tc, fallback.ScenarioNoPriorAnswer, v.Language, nil), nil
	}

	history := []llm.Message{
		{Role: constant.ChatRoleSystem, Content: constant.AnswerReworkSystemPromptV1},
		{Role: constant.ChatRoleUser, Content: fmt.Sprintf("%s\n\nPREVIOUS ANSWER:\n%s\n\nREQUEST: %s", instruction, prev.Text, segText)},
	}
	text, summary, err := cs.generate(ctx, tc, history)
	if err != nil {
		return segmentAnswer{}, err
	}
	return segmentAnswer{text: text, tokensUsed: summary.TokensUsed, finishReason: summary.FinishReason}, nil
}

// ---- conversational handlers ----

func (cs *chatService) generalAnswer(ctx context.Context, tc *turnContext, segText string) (segmentAnswer, error) {
	history := []llm.Message{
		{Role: constant.ChatRoleSystem, Content: constant.GeneralAssistantSystemPromptV1},
		{Role: constant.ChatRoleUser, Content: segText},
	}
	text, summary, err := cs.generate(ctx, tc, history)
	if err != nil {
		return segmentAnswer{}, err
	}
	return segmentAnswer{text: text, tokensUsed: summary.TokensUsed, finishReason: summary.FinishReason}, nil
}

func (cs *chatService) acknowledgeFeedback(ctx context.Context, tc *turnContext, sentiment, segText string) (segmentAnswer, error) {
	cs.publishEvent(ctx, events.NewFeedbackReceived(tc.userId.String(), tc.convId.String(), sentiment, segText))
	if sentiment == "positive" {
		return cs.direct(tc, "Glad that helped! Ask me anything else about your documents.")
	}
	return cs.direct(tc, "Sorry about that. I've recorded your feedback; rephrasing the question or naming the document often helps.")
}

// ---- shared helpers ----

// generate runs the model, streaming tokens when both the caller and the
// provider support it.
// generationContextTokens caps the assembled prompt. Past it the model would
// truncate silently, so the turn fails with a budget error instead.
const generationContextTokens = 8000

func promptTokens(history []llm.Message) int {
	total := 0
	for _, m := range history {
		total += len(m.Content) / 4
	}
	return total
}

func (cs *chatService) generate(ctx context.Context, tc *turnContext, history []llm.Message) (string, llm.StreamSummary, error) {
	if tokens := promptTokens(history); tokens > generationContextTokens {
		return "", llm.StreamSummary{}, newChatError(ErrCodeBudgetExceeded,
			fmt.Sprintf("assembled prompt is ~%d tokens, limit %d", tokens, generationContextTokens), nil)
	}

	if err := tc.send(stream.Generating()); err != nil {
		return "", llm.StreamSummary{}, err
	}

	if tc.emit != nil {
		if sp, ok := cs.llmProvider.(llm.StreamingProvider); ok {
			var b strings.Builder
			summary, err := sp.ChatStream(ctx, history, func(token string) error {
				b.WriteString(token)
				return tc.emit(stream.Content(token))
			})
			if err != nil {
				if ctx.Err() != nil {
					return "", llm.StreamSummary{}, ctx.Err()
				}
				return "", llm.StreamSummary{}, newChatError(ErrCodeUpstream, "model stream failed", err)
			}
			return b.String(), summary, nil
		}
	}

	text, err := cs.llmProvider.Chat(ctx, history)
	if err != nil {
		if ctx.Err() != nil {
			return "", llm.StreamSummary{}, ctx.Err()
		}
		return "", llm.StreamSummary{}, newChatError(ErrCodeUpstream, "model call failed", err)
	}
	if err := tc.send(stream.Content(text)); err != nil {
		return "", llm.StreamSummary{}, err
	}
	return text, llm.StreamSummary{}, nil
}

// direct wraps a canned answer, emitting it as a single content event on the
// streaming path.
func (cs *chatService) direct(tc *turnContext, text string) (segmentAnswer, error) {
	if err := tc.send(stream.Content(text)); err != nil {
		return segmentAnswer{}, err
	}
	return segmentAnswer{text: text}, nil
}

// templated resolves a fallback template in the turn's style and language.
func (cs *chatService) templated(tc *turnContext, scenario fallback.Scenario, lang intent.Language, placeholders map[string]string) segmentAnswer {
	msg := cs.fallbacks.Resolve(scenario, tc.style, string(lang), placeholders)
	_ = tc.send(stream.Content(msg.Text))
	return segmentAnswer{text: msg.Text, fallback: string(scenario)}
}

// errorFallback converts a handler failure into a user-facing answer.
func (cs *chatService) errorFallback(tc *turnContext, lang intent.Language, err error) segmentAnswer {
	scenario := fallback.ScenarioInternalError
	switch CodeOf(err) {
	case ErrCodeUpstream:
		scenario = fallback.ScenarioUpstream
	case ErrCodeBudgetExceeded:
		scenario = fallback.ScenarioBudgetExceeded
	}
	msg := cs.fallbacks.Resolve(scenario, tc.style, string(lang), nil)
	return segmentAnswer{text: msg.Text, fallback: string(scenario)}
}

func (cs *chatService) resolveStyle(ctx context.Context, userId uuid.UUID, requested string) fallback.Style {
	if requested != "" {
		return fallback.Style(requested)
	}
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	pref, err := uow.UserPreferenceRepository().FindByUserId(ctx, userId)
	if err != nil || pref == nil || pref.AnswerStyle == "" {
		return fallback.DefaultStyle
	}
	return fallback.Style(pref.AnswerStyle)
}

// workspaceStats returns the cached document census, refreshing it from the
// database on a miss.
func (cs *chatService) workspaceStats(ctx context.Context, userId uuid.UUID) (memory.WorkspaceSnapshot, error) {
	if snap, ok := cs.statsCache.Get(userId.String()); ok {
		return snap, nil
	}
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByUser{UserID: userId},
		specification.NotDeleted{},
	)
	if err != nil {
		return memory.WorkspaceSnapshot{}, err
	}
	snap := memory.WorkspaceSnapshot{DocumentCount: int64(len(docs))}
	for _, d := range docs {
		snap.StorageBytes += d.SizeBytes
	}
	cs.statsCache.Set(userId.String(), snap)
	return snap, nil
}

// resolveConversation loads the target conversation or prepares a new one.
// A new conversation is only persisted together with the turn, so a
// cancelled turn leaves nothing behind.
func (cs *chatService) resolveConversation(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*entity.Conversation, bool, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if request.ConversationId != nil {
		conv, err := uow.ConversationRepository().FindOne(ctx,
			specification.ByID{ID: *request.ConversationId},
			specification.ByUser{UserID: userId},
		)
		if err != nil {
			return nil, false, newChatError(ErrCodeInternal, "load conversation", err)
		}
		if conv == nil {
			return nil, false, newChatError(ErrCodeNotFound, "conversation not found", nil)
		}
		return conv, false, nil
	}
	return &entity.Conversation{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     snippet(request.Message, 80),
		CreatedAt: time.Now(),
	}, true, nil
}

func (cs *chatService) persistTurn(
	ctx context.Context,
	tc *turnContext,
	conv *entity.Conversation,
	convIsNew bool,
	question, answer string,
	decision intent.OverrideDecision,
	last segmentAnswer,
	segments int,
	citations []entity.MessageCitation,
	now time.Time,
) (*entity.Message, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if convIsNew {
		if err := uow.ConversationRepository().Create(ctx, conv); err != nil {
			return nil, err
		}
	} else {
		conv.UpdatedAt = &now
		if err := uow.ConversationRepository().Update(ctx, conv); err != nil {
			return nil, err
		}
	}

	userMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conv.Id,
		UserId:         tc.userId,
		Role:           constant.ChatRoleUser,
		Content:        question,
		CreatedAt:      now,
	}
	if err := uow.MessageRepository().Create(ctx, userMsg); err != nil {
		return nil, err
	}

	assistantMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conv.Id,
		UserId:         tc.userId,
		Role:           constant.ChatRoleAssistant,
		Content:        answer,
		Intent:         string(decision.Verdict.PrimaryIntent),
		Confidence:     decision.Verdict.Confidence,
		Metadata: &entity.MessageMetadata{
			Language:     string(decision.Verdict.Language),
			Overridden:   decision.Overridden,
			OverrideRule: decision.Rule,
			Segments:     segments,
			Citations:    citations,
			TokensUsed:   last.tokensUsed,
			FinishReason: last.finishReason,
			Fallback:     last.fallback,
		},
		CreatedAt: now.Add(1 * time.Millisecond),
	}
	if err := uow.MessageRepository().Create(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// chatEventEnvelope is the wire form of a pipeline event on the in-process
// bus.
type chatEventEnvelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// publishEvent is fire and forget: a dead bus must not fail the turn.
func (cs *chatService) publishEvent(ctx context.Context, evt events.Event) {
	if cs.publisher == nil {
		return
	}
	payload, err := json.Marshal(chatEventEnvelope{
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp(),
	})
	if err == nil {
		err = cs.publisher.Publish(ctx, payload)
	}
	if err != nil {
		cs.log.Warn("chat", "event publish failed", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
	}
}

func (cs *chatService) tracef(format string, args ...interface{}) {
	if cs.pipelineLog != nil {
		cs.pipelineLog.Printf(format, args...)
	}
}

// ---- history queries ----

func (cs *chatService) GetConversations(ctx context.Context, userId uuid.UUID) ([]*dto.GetConversationsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	convs, err := uow.ConversationRepository().FindAll(ctx,
		specification.ByUser{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.GetConversationsResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, &dto.GetConversationsResponse{
			Id:        c.Id,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return out, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conv, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.ByUser{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, newChatError(ErrCodeNotFound, "conversation not found", nil)
	}

	msgs, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversation{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.GetChatHistoryResponse, 0, len(msgs))
	for _, m := range msgs {
		item := &dto.GetChatHistoryResponse{
			Id:         m.Id,
			Role:       m.Role,
			Content:    m.Content,
			Intent:     m.Intent,
			Confidence: m.Confidence,
			CreatedAt:  m.CreatedAt,
		}
		if m.Metadata != nil {
			for _, c := range m.Metadata.Citations {
				item.Citations = append(item.Citations, dto.ChatCitationDTO{
					DocumentId:   c.DocumentId,
					DocumentName: c.DocumentName,
					ChunkIndex:   c.ChunkIndex,
					Snippet:      c.Snippet,
				})
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// DeleteConversation removes a conversation after an ownership check and
// drops its remembered answer so a later rewrite cannot resurrect it.
func (cs *chatService) DeleteConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conv, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.ByUser{UserID: userId},
	)
	if err != nil {
		return err
	}
	if conv == nil {
		return newChatError(ErrCodeNotFound, "conversation not found", nil)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()
	if err := uow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if delErr := cs.answers.Delete(ctx, userId.String(), conversationId.String()); delErr != nil {
		cs.log.Warn("chat", "answer store delete failed", map[string]interface{}{"error": delErr.Error()})
	}
	return nil
}

// ForgetMemories wipes every fact the user asked the assistant to remember.
func (cs *chatService) ForgetMemories(ctx context.Context, userId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()
	if err := uow.UserMemoryRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return err
	}
	return uow.Commit()
}

func (cs *chatService) SendFeedback(ctx context.Context, userId uuid.UUID, request *dto.SendFeedbackRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conv, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: request.ConversationId},
		specification.ByUser{UserID: userId},
	)
	if err != nil {
		return err
	}
	if conv == nil {
		return newChatError(ErrCodeNotFound, "conversation not found", nil)
	}

	cs.publishEvent(ctx, events.NewFeedbackReceived(userId.String(), request.ConversationId.String(), request.Sentiment, request.Comment))
	return nil
}
