package intent

// Intent is the closed set of query categories the assistant can route.
type Intent string

const (
	IntentDocQA            Intent = "DOC_QA"
	IntentDocSearch        Intent = "DOC_SEARCH"
	IntentDocSummarize     Intent = "DOC_SUMMARIZE"
	IntentDocAnalytics     Intent = "DOC_ANALYTICS"
	IntentDocManagement    Intent = "DOC_MANAGEMENT"
	IntentPreferenceUpdate Intent = "PREFERENCE_UPDATE"
	IntentMemoryStore      Intent = "MEMORY_STORE"
	IntentMemoryRecall     Intent = "MEMORY_RECALL"
	IntentAnswerRewrite    Intent = "ANSWER_REWRITE"
	IntentAnswerExpand     Intent = "ANSWER_EXPAND"
	IntentAnswerSimplify   Intent = "ANSWER_SIMPLIFY"
	IntentFeedbackPositive Intent = "FEEDBACK_POSITIVE"
	IntentFeedbackNegative Intent = "FEEDBACK_NEGATIVE"
	IntentProductHelp      Intent = "PRODUCT_HELP"
	IntentOnboarding       Intent = "ONBOARDING"
	IntentFeatureRequest   Intent = "FEATURE_REQUEST"
	IntentGeneralKnowledge Intent = "GENERAL_KNOWLEDGE"
	IntentReasoning        Intent = "REASONING"
	IntentTextTransform    Intent = "TEXT_TRANSFORM"
	IntentChitchat         Intent = "CHITCHAT"
	IntentMetaDescription  Intent = "META_DESCRIPTION"
	IntentOutOfScope       Intent = "OUT_OF_SCOPE"
	IntentAmbiguous        Intent = "AMBIGUOUS"
	IntentSafetyConcern    Intent = "SAFETY_CONCERN"
	IntentMultiIntent      Intent = "MULTI_INTENT"
)

// All lists every routable intent. The classifier and the router both range
// over this slice, so adding a value here without a pattern entry or a handler
// branch fails fast at startup / in tests.
var All = []Intent{
	IntentDocQA,
	IntentDocSearch,
	IntentDocSummarize,
	IntentDocAnalytics,
	IntentDocManagement,
	IntentPreferenceUpdate,
	IntentMemoryStore,
	IntentMemoryRecall,
	IntentAnswerRewrite,
	IntentAnswerExpand,
	IntentAnswerSimplify,
	IntentFeedbackPositive,
	IntentFeedbackNegative,
	IntentProductHelp,
	IntentOnboarding,
	IntentFeatureRequest,
	IntentGeneralKnowledge,
	IntentReasoning,
	IntentTextTransform,
	IntentChitchat,
	IntentMetaDescription,
	IntentOutOfScope,
	IntentAmbiguous,
	IntentSafetyConcern,
	IntentMultiIntent,
}

// docDependent are the intents that cannot be served without at least one
// document in the workspace.
var docDependent = map[Intent]bool{
	IntentDocQA:        true,
	IntentDocSearch:    true,
	IntentDocSummarize: true,
	IntentDocAnalytics: true,
}

// RequiresDocuments reports whether the intent needs workspace documents.
func (i Intent) RequiresDocuments() bool {
	return docDependent[i]
}

// Valid reports whether the value belongs to the closed enumeration.
func (i Intent) Valid() bool {
	for _, v := range All {
		if v == i {
			return true
		}
	}
	return false
}

// Language codes supported by the classifier.
type Language string

const (
	LangEN Language = "en"
	LangPT Language = "pt"
	LangES Language = "es"
)

// DefaultLanguage is used when detection ties or finds nothing.
const DefaultLanguage = LangEN

// SupportedLanguages in detection priority order.
var SupportedLanguages = []Language{LangEN, LangPT, LangES}

// ValidLanguage reports whether the hint names a supported language.
func ValidLanguage(s string) bool {
	switch Language(s) {
	case LangEN, LangPT, LangES:
		return true
	}
	return false
}

// ScoredIntent pairs an intent with its classification score.
type ScoredIntent struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// MatchedEvidence records what the classifier matched on.
type MatchedEvidence struct {
	Pattern  string   `json:"pattern,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Verdict is the classifier output for a single query.
// PrimaryIntent is always exactly one value; "no confident match" is
// represented by IntentAmbiguous, never by an empty value.
type Verdict struct {
	PrimaryIntent    Intent          `json:"primary_intent"`
	Confidence       float64         `json:"confidence"`
	SecondaryIntents []ScoredIntent  `json:"secondary_intents,omitempty"`
	Language         Language        `json:"language"`
	Evidence         MatchedEvidence `json:"evidence"`

	// TopScores carries the top raw scores when the verdict degrades to
	// AMBIGUOUS, so callers can log what almost matched.
	TopScores []ScoredIntent `json:"top_scores,omitempty"`
}
