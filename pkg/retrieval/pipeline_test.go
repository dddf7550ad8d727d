package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeFinder struct {
	owned    []DocumentRef
	byName   []DocumentRef
	ready    []DocumentRef
	lastCall string
}

func (f *fakeFinder) FindOwned(_ context.Context, _ uuid.UUID, _ []uuid.UUID) ([]DocumentRef, error) {
	f.lastCall = "owned"
	return f.owned, nil
}

func (f *fakeFinder) FindByNameFragment(_ context.Context, _ uuid.UUID, _ string) ([]DocumentRef, error) {
	f.lastCall = "byName"
	return f.byName, nil
}

func (f *fakeFinder) ListReady(_ context.Context, _ uuid.UUID) ([]DocumentRef, error) {
	f.lastCall = "ready"
	return f.ready, nil
}

type fakeSearcher struct {
	hits []ChunkHit
}

func (f *fakeSearcher) SearchSimilar(_ context.Context, _ uuid.UUID, _ []uuid.UUID, _ []float32, _ int) ([]ChunkHit, error) {
	return f.hits, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func hit(docID uuid.UUID, sim float64, content string, tokens int) ChunkHit {
	return ChunkHit{
		ChunkID:    uuid.New(),
		DocumentID: docID,
		Content:    content,
		Similarity: sim,
		TokenCount: tokens,
	}
}

func newTestPipeline(finder *fakeFinder, searcher *fakeSearcher, cfg Config) *Pipeline {
	return NewPipeline(finder, searcher, fakeEmbedder{}, cfg, nil)
}

func TestRetrieveEmptyWorkspace(t *testing.T) {
	p := newTestPipeline(&fakeFinder{}, &fakeSearcher{}, Config{})
	got, err := p.Retrieve(context.Background(), Request{UserID: uuid.New(), Query: "anything"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want empty result, got %d chunks", len(got))
	}
}

func TestRetrieveCandidatePriority(t *testing.T) {
	docA := DocumentRef{ID: uuid.New(), Name: "report"}
	finder := &fakeFinder{
		owned:  []DocumentRef{docA},
		byName: []DocumentRef{docA},
		ready:  []DocumentRef{docA},
	}
	p := newTestPipeline(finder, &fakeSearcher{}, Config{})

	// Explicit ids win over everything.
	_, err := p.Retrieve(context.Background(), Request{
		UserID: uuid.New(), Query: "q", ExplicitDocIDs: []uuid.UUID{docA.ID}, NameFragment: "report",
	})
	if err != nil {
		t.Fatal(err)
	}
	if finder.lastCall != "owned" {
		t.Errorf("explicit ids should resolve via FindOwned, got %s", finder.lastCall)
	}

	// Name fragment next.
	_, err = p.Retrieve(context.Background(), Request{UserID: uuid.New(), Query: "q", NameFragment: "report"})
	if err != nil {
		t.Fatal(err)
	}
	if finder.lastCall != "byName" {
		t.Errorf("name fragment should resolve via FindByNameFragment, got %s", finder.lastCall)
	}

	// Bare request scans the workspace.
	_, err = p.Retrieve(context.Background(), Request{UserID: uuid.New(), Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if finder.lastCall != "ready" {
		t.Errorf("bare request should resolve via ListReady, got %s", finder.lastCall)
	}
}

func TestRetrieveMinScoreFilterAndOrdering(t *testing.T) {
	doc := DocumentRef{ID: uuid.New(), Name: "notes", UpdatedAt: time.Now().Add(-30 * 24 * time.Hour)}
	low := hit(doc.ID, 0.10, "irrelevant filler text", 10)
	mid := hit(doc.ID, 0.60, "quarterly revenue figures", 10)
	high := hit(doc.ID, 0.90, "quarterly revenue breakdown by region", 10)

	finder := &fakeFinder{ready: []DocumentRef{doc}}
	searcher := &fakeSearcher{hits: []ChunkHit{low, mid, high}}
	p := newTestPipeline(finder, searcher, Config{})

	got, err := p.Retrieve(context.Background(), Request{UserID: uuid.New(), Query: "quarterly revenue"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 chunks after min-score filter, got %d", len(got))
	}
	if got[0].ChunkID != high.ChunkID || got[1].ChunkID != mid.ChunkID {
		t.Error("chunks not ordered by score descending")
	}
	for _, rc := range got {
		if rc.BoostedScore < rc.MergedScore {
			t.Errorf("boost shrank score: boosted %.3f < merged %.3f", rc.BoostedScore, rc.MergedScore)
		}
	}
}

func TestRetrieveExplicitBoost(t *testing.T) {
	old := time.Now().Add(-60 * 24 * time.Hour)
	docA := DocumentRef{ID: uuid.New(), Name: "a", UpdatedAt: old}
	docB := DocumentRef{ID: uuid.New(), Name: "b", UpdatedAt: old}

	// Same similarity, but docA is explicitly mentioned so its chunk must
	// rank first.
	hitA := hit(docA.ID, 0.70, "shared topic text", 10)
	hitB := hit(docB.ID, 0.70, "shared topic text", 10)

	finder := &fakeFinder{owned: []DocumentRef{docA, docB}}
	searcher := &fakeSearcher{hits: []ChunkHit{hitB, hitA}}
	p := newTestPipeline(finder, searcher, Config{})

	got, err := p.Retrieve(context.Background(), Request{
		UserID:         uuid.New(),
		Query:          "shared topic",
		ExplicitDocIDs: []uuid.UUID{docA.ID, docB.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(got))
	}
	// Both explicit here, so boosts tie; check the multiplier applied.
	for _, rc := range got {
		if rc.Boost < BoostExplicitMention {
			t.Errorf("explicit document boost %.2f < %.2f", rc.Boost, BoostExplicitMention)
		}
	}
}

func TestCapPerDocument(t *testing.T) {
	docA, docB := uuid.New(), uuid.New()
	ranked := []RankedChunk{
		{ChunkHit: hit(docA, 0.9, "", 1)},
		{ChunkHit: hit(docA, 0.8, "", 1)},
		{ChunkHit: hit(docA, 0.7, "", 1)},
		{ChunkHit: hit(docA, 0.6, "", 1)},
		{ChunkHit: hit(docB, 0.5, "", 1)},
	}
	got := capPerDocument(ranked, 3)
	if len(got) != 4 {
		t.Fatalf("want 4 chunks after cap, got %d", len(got))
	}
	counts := map[uuid.UUID]int{}
	for _, rc := range got {
		counts[rc.DocumentID]++
	}
	if counts[docA] != 3 || counts[docB] != 1 {
		t.Errorf("cap violated: %v", counts)
	}
}

func TestApplyTokenBudget(t *testing.T) {
	doc := uuid.New()
	ranked := []RankedChunk{
		{ChunkHit: hit(doc, 0.9, "", 500)},
		{ChunkHit: hit(doc, 0.8, "", 500)},
		{ChunkHit: hit(doc, 0.7, "", 600)},
		{ChunkHit: hit(doc, 0.6, "", 100)},
	}

	got := applyTokenBudget(ranked, 1100)
	// 500+500 fits; the 600 chunk would exceed and ends the selection even
	// though the 100 chunk after it would fit.
	if len(got) != 2 {
		t.Fatalf("want prefix of 2 chunks, got %d", len(got))
	}
	total := 0
	for _, rc := range got {
		total += rc.TokenCount
	}
	if total > 1100 {
		t.Errorf("budget exceeded: %d > 1100", total)
	}
	for i := range got {
		if got[i].ChunkID != ranked[i].ChunkID {
			t.Error("budget selection is not a prefix of the ranking")
		}
	}

	if got := applyTokenBudget(ranked, 0); len(got) != 0 {
		t.Errorf("zero budget keeps %d chunks", len(got))
	}
	if got := applyTokenBudget(nil, 100); len(got) != 0 {
		t.Errorf("nil ranking yields %d chunks", len(got))
	}
}

func TestKeywordOverlap(t *testing.T) {
	tests := []struct {
		query   string
		content string
		want    float64
	}{
		{"quarterly revenue", "the quarterly revenue grew", 1.0},
		{"quarterly revenue", "revenue only mentioned", 0.5},
		{"quarterly revenue", "nothing relevant here", 0.0},
		{"the of and", "anything", 0.0}, // all stopwords
	}
	for _, tt := range tests {
		got := keywordOverlap(contentTerms(tt.query), tt.content)
		if got != tt.want {
			t.Errorf("keywordOverlap(%q, %q) = %.2f, want %.2f", tt.query, tt.content, got, tt.want)
		}
	}
}
