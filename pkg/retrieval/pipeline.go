package retrieval

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Boost multipliers for candidate documents. A chunk inherits the product of
// every boost its document qualifies for.
const (
	BoostExplicitMention = 1.5
	BoostUISelection     = 1.3
	BoostRecency         = 1.15
)

// Config tunes the pipeline. Zero values are replaced with the defaults
// below.
type Config struct {
	VectorWeight   float64
	KeywordWeight  float64
	MinScore       float64
	PerDocCap      int
	MaxTokens      int
	CandidateLimit int
	RecencyWindow  time.Duration
}

func (c Config) withDefaults() Config {
	if c.VectorWeight == 0 && c.KeywordWeight == 0 {
		c.VectorWeight, c.KeywordWeight = 0.7, 0.3
	}
	if c.MinScore == 0 {
		c.MinScore = 0.35
	}
	if c.PerDocCap == 0 {
		c.PerDocCap = 3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.CandidateLimit == 0 {
		c.CandidateLimit = 40
	}
	if c.RecencyWindow == 0 {
		c.RecencyWindow = 7 * 24 * time.Hour
	}
	return c
}

// Pipeline is the retrieval orchestrator. Safe for concurrent use.
type Pipeline struct {
	docs     DocumentFinder
	chunks   ChunkSearcher
	embedder Embedder
	cfg      Config
	trace    *log.Logger // may be nil
	now      func() time.Time
}

func NewPipeline(docs DocumentFinder, chunks ChunkSearcher, embedder Embedder, cfg Config, trace *log.Logger) *Pipeline {
	return &Pipeline{
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		trace:    trace,
		now:      time.Now,
	}
}

// Retrieve resolves candidate documents, runs hybrid search and returns the
// budgeted ranking. An empty workspace or zero hits returns an empty slice
// and no error.
func (p *Pipeline) Retrieve(ctx context.Context, req Request) ([]RankedChunk, error) {
	candidates, boosts, err := p.resolveCandidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		p.tracef("[RETRIEVAL] no candidate documents for user %s", req.UserID)
		return nil, nil
	}

	embedding, err := p.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docIDs := make([]uuid.UUID, len(candidates))
	for i, d := range candidates {
		docIDs[i] = d.ID
	}
	hits, err := p.chunks.SearchSimilar(ctx, req.UserID, docIDs, embedding, p.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	queryTerms := contentTerms(req.Query)
	ranked := p.rank(hits, queryTerms, boosts)
	ranked = capPerDocument(ranked, p.cfg.PerDocCap)

	budget := p.cfg.MaxTokens
	if req.MaxTokens > 0 {
		budget = req.MaxTokens
	}
	ranked = applyTokenBudget(ranked, budget)

	p.tracef("[RETRIEVAL] user=%s candidates=%d hits=%d kept=%d", req.UserID, len(candidates), len(hits), len(ranked))
	return ranked, nil
}

// resolveCandidates picks the document set in priority order: explicit ids,
// then name fragment, then the whole workspace. UI-selected documents join
// whichever set was chosen. The boost map carries the per-document multiplier
// product.
func (p *Pipeline) resolveCandidates(ctx context.Context, req Request) ([]DocumentRef, map[uuid.UUID]float64, error) {
	boosts := make(map[uuid.UUID]float64)
	var primary []DocumentRef

	switch {
	case len(req.ExplicitDocIDs) > 0:
		docs, err := p.docs.FindOwned(ctx, req.UserID, req.ExplicitDocIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve explicit documents: %w", err)
		}
		for _, d := range docs {
			boosts[d.ID] = BoostExplicitMention
		}
		primary = docs
	case req.NameFragment != "":
		docs, err := p.docs.FindByNameFragment(ctx, req.UserID, req.NameFragment)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve documents by name: %w", err)
		}
		for _, d := range docs {
			boosts[d.ID] = BoostExplicitMention
		}
		primary = docs
		if len(docs) == 0 {
			// An unmatched name falls back to the whole workspace.
			primary, err = p.docs.ListReady(ctx, req.UserID)
			if err != nil {
				return nil, nil, fmt.Errorf("list workspace documents: %w", err)
			}
		}
	default:
		docs, err := p.docs.ListReady(ctx, req.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("list workspace documents: %w", err)
		}
		primary = docs
	}

	selected := make(map[uuid.UUID]bool, len(req.SelectedDocIDs))
	for _, id := range req.SelectedDocIDs {
		selected[id] = true
	}

	seen := make(map[uuid.UUID]bool, len(primary))
	out := make([]DocumentRef, 0, len(primary))
	cutoff := p.now().Add(-p.cfg.RecencyWindow)
	for _, d := range primary {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true

		boost, ok := boosts[d.ID]
		if !ok {
			boost = 1.0
		}
		if selected[d.ID] {
			boost *= BoostUISelection
		}
		if d.UpdatedAt.After(cutoff) {
			boost *= BoostRecency
		}
		boosts[d.ID] = boost
		out = append(out, d)
	}

	// UI-selected documents not already in the candidate set join it.
	if len(req.SelectedDocIDs) > 0 {
		var missing []uuid.UUID
		for _, id := range req.SelectedDocIDs {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			docs, err := p.docs.FindOwned(ctx, req.UserID, missing)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve selected documents: %w", err)
			}
			for _, d := range docs {
				boost := BoostUISelection
				if d.UpdatedAt.After(cutoff) {
					boost *= BoostRecency
				}
				boosts[d.ID] = boost
				out = append(out, d)
			}
		}
	}
	return out, boosts, nil
}

// rank merges vector and keyword scores, dedupes by chunk id keeping the best
// merged score, drops everything under MinScore and sorts by boosted score
// descending.
func (p *Pipeline) rank(hits []ChunkHit, queryTerms []string, boosts map[uuid.UUID]float64) []RankedChunk {
	best := make(map[uuid.UUID]RankedChunk, len(hits))
	for _, h := range hits {
		kw := keywordOverlap(queryTerms, h.Content)
		merged := p.cfg.VectorWeight*h.Similarity + p.cfg.KeywordWeight*kw
		if merged < p.cfg.MinScore {
			continue
		}
		boost, ok := boosts[h.DocumentID]
		if !ok {
			boost = 1.0
		}
		rc := RankedChunk{
			ChunkHit:     h,
			KeywordScore: kw,
			MergedScore:  merged,
			Boost:        boost,
			BoostedScore: merged * boost,
		}
		if prev, ok := best[h.ChunkID]; !ok || rc.MergedScore > prev.MergedScore {
			best[h.ChunkID] = rc
		}
	}

	out := make([]RankedChunk, 0, len(best))
	for _, rc := range best {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BoostedScore != out[j].BoostedScore {
			return out[i].BoostedScore > out[j].BoostedScore
		}
		return out[i].ChunkID.String() < out[j].ChunkID.String()
	})
	return out
}

// capPerDocument keeps at most cap chunks per document, preserving rank
// order.
func capPerDocument(ranked []RankedChunk, limit int) []RankedChunk {
	counts := make(map[uuid.UUID]int)
	out := ranked[:0:0]
	for _, rc := range ranked {
		if counts[rc.DocumentID] >= limit {
			continue
		}
		counts[rc.DocumentID]++
		out = append(out, rc)
	}
	return out
}

// applyTokenBudget keeps the longest prefix of the ranking that fits in
// budget tokens. Chunks are never split; the first chunk that does not fit
// ends the selection.
func applyTokenBudget(ranked []RankedChunk, budget int) []RankedChunk {
	used := 0
	for i, rc := range ranked {
		t := rc.TokenCount
		if t <= 0 {
			t = estimateTokens(rc.Content)
		}
		if used+t > budget {
			return ranked[:i]
		}
		used += t
	}
	return ranked
}

// estimateTokens is the usual rough chars/4 heuristic, used when ingestion
// did not store a count.
func estimateTokens(content string) int {
	n := len(content) / 4
	if n == 0 && content != "" {
		n = 1
	}
	return n
}

func (p *Pipeline) tracef(format string, args ...interface{}) {
	if p.trace != nil {
		p.trace.Printf(format, args...)
	}
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "on": true,
	"to": true, "is": true, "are": true, "and": true, "or": true, "my": true,
	"me": true, "i": true, "do": true, "does": true, "what": true, "how": true,
	"for": true, "it": true, "that": true, "this": true, "about": true,
}

// contentTerms lowercases, strips punctuation and removes stopwords.
func contentTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]")
		if f == "" || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// keywordOverlap is the fraction of query terms present in the chunk content.
func keywordOverlap(queryTerms []string, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	present := make(map[string]bool)
	for _, t := range contentTerms(content) {
		present[t] = true
	}
	matched := 0
	for _, t := range queryTerms {
		if present[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
