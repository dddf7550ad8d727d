package intent

import (
	"strings"
	"testing"
)

func TestDetectSegmentsSplits(t *testing.T) {
	tests := []struct {
		query string
		lang  Language
		want  []string
	}{
		{
			"summarize the report and then how many documents do i have",
			LangEN,
			[]string{"summarize the report", "how many documents do i have"},
		},
		{
			"find my tax notes; show my invoices",
			LangEN,
			[]string{"find my tax notes", "show my invoices"},
		},
		{
			"resuma o relatório e depois quantos documentos eu tenho",
			LangPT,
			[]string{"resuma o relatório", "quantos documentos eu tenho"},
		},
	}
	for _, tt := range tests {
		got := DetectSegments(tt.query, tt.lang)
		if !got.IsMulti {
			t.Errorf("DetectSegments(%q) not multi", tt.query)
			continue
		}
		if len(got.Segments) != len(tt.want) {
			t.Errorf("DetectSegments(%q) = %v, want %v", tt.query, got.Segments, tt.want)
			continue
		}
		for i := range tt.want {
			if got.Segments[i] != tt.want[i] {
				t.Errorf("DetectSegments(%q) segment %d = %q, want %q", tt.query, i, got.Segments[i], tt.want[i])
			}
		}
	}
}

func TestDetectSegmentsSingle(t *testing.T) {
	tests := []string{
		"hi and then bye",                      // below min query length
		"summarize the quarterly report",       // no delimiter
		"what happened before and then after?", // second segment too short
	}
	for _, q := range tests {
		got := DetectSegments(q, LangEN)
		if got.IsMulti {
			t.Errorf("DetectSegments(%q) = multi %v, want single", q, got.Segments)
		}
		if len(got.Segments) != 1 || got.Segments[0] != q {
			t.Errorf("DetectSegments(%q) single segment mutated: %v", q, got.Segments)
		}
	}
}

func TestDetectSegmentsQuoteProtection(t *testing.T) {
	q := `find the note titled "planning and then execution" in my workspace`
	got := DetectSegments(q, LangEN)
	if got.IsMulti {
		t.Fatalf("delimiter inside quotes split the query: %v", got.Segments)
	}

	// A real delimiter outside quotes still splits, and the quoted span
	// survives intact.
	q = `find the note titled "a and b" please and then summarize my latest report`
	got = DetectSegments(q, LangEN)
	if !got.IsMulti || len(got.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %v", got.Segments)
	}
	if !strings.Contains(got.Segments[0], `"a and b"`) {
		t.Errorf("quoted span lost: %q", got.Segments[0])
	}
}

func TestDetectSegmentsNoCharacterLoss(t *testing.T) {
	q := "summarize the report and then how many documents do i have"
	got := DetectSegments(q, LangEN)
	joined := strings.Join(got.Segments, " and then ")
	if joined != q {
		t.Errorf("segments lose characters: %q != %q", joined, q)
	}
}
