package intent

import (
	"errors"
	"testing"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	store, err := LoadPatternStore("")
	if err != nil {
		t.Fatalf("LoadPatternStore: %v", err)
	}
	return NewClassifier(store, DefaultClassifierConfig(), nil)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello   World  ", "hello world"},
		{"SUMMARIZE\tthe\nreport", "summarize the report"},
		{"", ""},
		{"   ", ""},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Idempotency.
		if got := Normalize(Normalize(tt.in)); got != tt.want {
			t.Errorf("Normalize not idempotent for %q: %q", tt.in, got)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		query string
		want  Language
	}{
		{"what is the capital of france", LangEN},
		{"como faço para enviar um arquivo", LangPT},
		{"cómo puedo subir una imagen, está bien?", LangES},
		{"xyzzy", LangEN}, // no indicators, default
		{"", LangEN},
	}
	for _, tt := range tests {
		if got := DetectLanguage(Normalize(tt.query)); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %s, want %s", tt.query, got, tt.want)
		}
	}
}

func TestPredictRouting(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		query string
		want  Intent
	}{
		{"hello", IntentChitchat},
		{"hi!", IntentChitchat},
		{"how many documents do i have", IntentDocAnalytics},
		{"summarize the report", IntentDocSummarize},
		{"how do i upload files", IntentProductHelp},
		{"find my tax documents", IntentDocSearch},
		{"thanks, great answer", IntentFeedbackPositive},
		{"that's wrong, the contract says otherwise", IntentFeedbackNegative},
		{"remember that my deadline is friday", IntentMemoryStore},
		{"tell me more about that", IntentAnswerExpand},
		{"from now on always answer in portuguese", IntentPreferenceUpdate},
		{"what can you do", IntentMetaDescription},
		{"book me a flight to lisbon", IntentOutOfScope},
		{"i want to hurt myself", IntentSafetyConcern},
	}
	for _, tt := range tests {
		v, err := c.Predict(tt.query, "")
		if err != nil {
			t.Fatalf("Predict(%q): %v", tt.query, err)
		}
		if v.PrimaryIntent != tt.want {
			t.Errorf("Predict(%q) = %s (%.2f), want %s", tt.query, v.PrimaryIntent, v.Confidence, tt.want)
		}
	}
}

func TestPredictEmptyQuery(t *testing.T) {
	c := newTestClassifier(t)
	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := c.Predict(q, ""); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Predict(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestPredictAmbiguousBelowThreshold(t *testing.T) {
	c := newTestClassifier(t)
	v, err := c.Predict("banana purple elephant", "")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if v.PrimaryIntent != IntentAmbiguous {
		t.Fatalf("got %s, want AMBIGUOUS", v.PrimaryIntent)
	}
	if len(v.TopScores) > 3 {
		t.Errorf("TopScores carries %d entries, cap is 3", len(v.TopScores))
	}
}

func TestPredictScoresClamped(t *testing.T) {
	c := newTestClassifier(t)
	queries := []string{
		"hello", "how many documents do i have", "summarize the report",
		"banana purple elephant", "find my notes and then summarize them",
	}
	for _, q := range queries {
		v, err := c.Predict(q, "")
		if err != nil {
			t.Fatalf("Predict(%q): %v", q, err)
		}
		if v.Confidence < 0 || v.Confidence > 1 {
			t.Errorf("Predict(%q) confidence %.3f out of [0,1]", q, v.Confidence)
		}
		for _, s := range v.SecondaryIntents {
			if s.Confidence < 0 || s.Confidence > 1 {
				t.Errorf("Predict(%q) secondary %s score %.3f out of [0,1]", q, s.Intent, s.Confidence)
			}
		}
	}
}

func TestPredictLanguageHint(t *testing.T) {
	c := newTestClassifier(t)

	v, err := c.Predict("resumir", "es")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if v.Language != LangES {
		t.Errorf("language = %s, want es (hint)", v.Language)
	}
	if v.PrimaryIntent != IntentDocSummarize {
		t.Errorf("intent = %s, want DOC_SUMMARIZE", v.PrimaryIntent)
	}

	// An unsupported hint falls back to detection.
	v, err = c.Predict("what is the capital of france", "de")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if v.Language != LangEN {
		t.Errorf("language = %s, want en (detected)", v.Language)
	}
}

func TestPredictEvidencePresent(t *testing.T) {
	c := newTestClassifier(t)
	v, err := c.Predict("how many documents do i have", "")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if v.Evidence.Pattern == "" && len(v.Evidence.Keywords) == 0 {
		t.Error("confident verdict carries no evidence")
	}
}
