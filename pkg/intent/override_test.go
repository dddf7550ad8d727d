package intent

import (
	"reflect"
	"testing"
)

func TestResolveOverrideEmptyWorkspaceHelpWording(t *testing.T) {
	v := Verdict{PrimaryIntent: IntentGeneralKnowledge, Confidence: 0.5, Language: LangEN}
	stats := WorkspaceStats{DocumentCount: 0}

	d := ResolveOverride(v, stats, "how do i upload my files")
	if !d.Overridden || d.Rule != OverrideRuleHelpWording {
		t.Fatalf("rule = %s (overridden=%v), want %s", d.Rule, d.Overridden, OverrideRuleHelpWording)
	}
	if d.Verdict.PrimaryIntent != IntentProductHelp || d.Verdict.Confidence != 1.0 {
		t.Errorf("verdict = %s conf %.2f, want PRODUCT_HELP conf 1.0", d.Verdict.PrimaryIntent, d.Verdict.Confidence)
	}
	if d.NoDocsGuidance {
		t.Error("rule 1 must not set NoDocsGuidance")
	}
}

func TestResolveOverrideEmptyWorkspaceDocIntent(t *testing.T) {
	v := Verdict{PrimaryIntent: IntentDocSummarize, Confidence: 0.7, Language: LangEN}
	stats := WorkspaceStats{DocumentCount: 0}

	d := ResolveOverride(v, stats, "summarize the report")
	if !d.Overridden || d.Rule != OverrideRuleNoDocuments {
		t.Fatalf("rule = %s (overridden=%v), want %s", d.Rule, d.Overridden, OverrideRuleNoDocuments)
	}
	if d.Verdict.PrimaryIntent != IntentProductHelp || d.Verdict.Confidence != 0.9 {
		t.Errorf("verdict = %s conf %.2f, want PRODUCT_HELP conf 0.9", d.Verdict.PrimaryIntent, d.Verdict.Confidence)
	}
	if !d.NoDocsGuidance {
		t.Error("rule 2 must set NoDocsGuidance")
	}
}

func TestResolveOverrideRulesExclusive(t *testing.T) {
	// A query that carries help wording AND a doc-dependent intent with an
	// empty workspace hits rule 1 only, never rule 2.
	v := Verdict{PrimaryIntent: IntentDocQA, Confidence: 0.6, Language: LangEN}
	d := ResolveOverride(v, WorkspaceStats{DocumentCount: 0}, "how do i upload a document to ask about it")
	if d.Rule != OverrideRuleHelpWording {
		t.Errorf("rule = %s, want %s (first match wins)", d.Rule, OverrideRuleHelpWording)
	}
}

func TestResolveOverridePassthrough(t *testing.T) {
	stats := WorkspaceStats{DocumentCount: 12}

	high := Verdict{
		PrimaryIntent: IntentDocAnalytics,
		Confidence:    0.9,
		Language:      LangEN,
		Evidence:      MatchedEvidence{Pattern: `how many (?:documents|files|notes|pages)\b`},
	}
	d := ResolveOverride(high, stats, "how many documents do i have")
	if d.Overridden || d.Rule != OverrideRulePassHigh {
		t.Errorf("rule = %s (overridden=%v), want %s", d.Rule, d.Overridden, OverrideRulePassHigh)
	}
	if !reflect.DeepEqual(d.Verdict, high) {
		t.Error("passthrough mutated the verdict")
	}

	low := Verdict{PrimaryIntent: IntentChitchat, Confidence: 0.5, Language: LangEN}
	d = ResolveOverride(low, stats, "hello")
	if d.Overridden || d.Rule != OverrideRulePass {
		t.Errorf("rule = %s (overridden=%v), want %s", d.Rule, d.Overridden, OverrideRulePass)
	}
}

func TestResolveOverrideIdempotent(t *testing.T) {
	v := Verdict{PrimaryIntent: IntentDocQA, Confidence: 0.7, Language: LangEN}
	stats := WorkspaceStats{DocumentCount: 0}
	query := "summarize the report"

	first := ResolveOverride(v, stats, query)
	second := ResolveOverride(first.Verdict, stats, query)
	if second.Verdict.PrimaryIntent != first.Verdict.PrimaryIntent ||
		second.Verdict.Confidence != first.Verdict.Confidence {
		t.Errorf("not idempotent: first=%+v second=%+v", first.Verdict, second.Verdict)
	}
}
