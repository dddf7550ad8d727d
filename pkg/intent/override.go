package intent

import "strings"

// WorkspaceStats is the workspace snapshot the override rules inspect.
type WorkspaceStats struct {
	DocumentCount int64
	StorageBytes  int64
}

// OverrideDecision is the resolver output. When Overridden is false the
// verdict passed through untouched.
type OverrideDecision struct {
	Verdict        Verdict
	Overridden     bool
	Rule           string
	NoDocsGuidance bool
}

// Override rule names, recorded on the decision for logging and tests.
const (
	OverrideRuleHelpWording = "empty_workspace_help_wording"
	OverrideRuleNoDocuments = "empty_workspace_doc_intent"
	OverrideRulePassHigh    = "high_confidence_passthrough"
	OverrideRulePass        = "passthrough"
)

// helpWordingMarkers are phrases that signal the user is asking how to use
// the product rather than asking about content.
var helpWordingMarkers = map[Language][]string{
	LangEN: {"how do i", "how can i", "how to", "upload", "import", "get started", "getting started", "where is the"},
	LangPT: {"como faço", "como posso", "como usar", "enviar", "importar", "começar"},
	LangES: {"cómo puedo", "cómo hago", "cómo usar", "subir", "importar", "empezar"},
}

// ResolveOverride applies the post-classification override rules, first match
// wins. It is a pure function of its arguments and idempotent: feeding its
// output verdict back in yields the same decision.
func ResolveOverride(v Verdict, stats WorkspaceStats, normalizedQuery string) OverrideDecision {
	// Rule 1: empty workspace plus help wording means the user is lost in
	// the product, whatever the classifier thought.
	if stats.DocumentCount == 0 && v.PrimaryIntent != IntentProductHelp && hasHelpWording(normalizedQuery, v.Language) {
		out := v
		out.PrimaryIntent = IntentProductHelp
		out.Confidence = 1.0
		out.SecondaryIntents = nil
		return OverrideDecision{Verdict: out, Overridden: true, Rule: OverrideRuleHelpWording}
	}

	// Rule 2: a document-dependent intent cannot be served with zero
	// documents; steer to product help and flag the guidance variant.
	if stats.DocumentCount == 0 && v.PrimaryIntent.RequiresDocuments() {
		out := v
		out.PrimaryIntent = IntentProductHelp
		out.Confidence = 0.9
		out.SecondaryIntents = nil
		return OverrideDecision{Verdict: out, Overridden: true, Rule: OverrideRuleNoDocuments, NoDocsGuidance: true}
	}

	// Rule 3: very high confidence with concrete evidence passes through.
	if v.Confidence >= 0.85 && (v.Evidence.Pattern != "" || len(v.Evidence.Keywords) > 0) {
		return OverrideDecision{Verdict: v, Rule: OverrideRulePassHigh}
	}

	// Rule 4: default passthrough.
	return OverrideDecision{Verdict: v, Rule: OverrideRulePass}
}

func hasHelpWording(normalizedQuery string, lang Language) bool {
	markers, ok := helpWordingMarkers[lang]
	if !ok {
		markers = helpWordingMarkers[DefaultLanguage]
	}
	for _, m := range markers {
		if strings.Contains(normalizedQuery, m) {
			return true
		}
	}
	return false
}
