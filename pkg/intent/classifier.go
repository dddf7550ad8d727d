package intent

import (
	"errors"
	"log"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyQuery is returned when the query is empty after normalization.
var ErrEmptyQuery = errors.New("intent: empty query")

// ClassifierConfig carries the decision thresholds. Scores and thresholds all
// live in [0,1].
type ClassifierConfig struct {
	// PrimaryThreshold is the minimum top score for a confident verdict;
	// below it the verdict degrades to AMBIGUOUS.
	PrimaryThreshold float64
	// SecondaryThreshold is the minimum score for an intent to be attached
	// as a secondary.
	SecondaryThreshold float64
	// MultiSignalThreshold marks a secondary strong enough to hint that the
	// query may carry more than one intent.
	MultiSignalThreshold float64
	// MaxSecondary caps the number of attached secondaries.
	MaxSecondary int
}

// DefaultClassifierConfig returns the tuned production thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		PrimaryThreshold:     0.45,
		SecondaryThreshold:   0.30,
		MultiSignalThreshold: 0.60,
		MaxSecondary:         3,
	}
}

// Classifier scores a query against the pattern store and produces a Verdict.
// It is stateless apart from the read-only store, so a single instance serves
// all requests.
type Classifier struct {
	store *PatternStore
	cfg   ClassifierConfig
	trace *log.Logger // pipeline trace log, may be nil
}

func NewClassifier(store *PatternStore, cfg ClassifierConfig, trace *log.Logger) *Classifier {
	if cfg.MaxSecondary <= 0 {
		cfg.MaxSecondary = 3
	}
	return &Classifier{store: store, cfg: cfg, trace: trace}
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Normalize lowercases, trims and collapses internal whitespace. It is
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRE.ReplaceAllString(s, " ")
}

// Indicator words for language detection. Whole-word counts decide; ties and
// zero counts resolve to english.
var languageIndicators = map[Language][]string{
	LangEN: {"the", "is", "are", "what", "how", "my", "do", "you", "please", "can", "and", "of", "this"},
	LangPT: {"que", "como", "você", "não", "meu", "minha", "por", "para", "fazer", "está", "uma", "isso"},
	LangES: {"qué", "cómo", "usted", "mi", "por", "para", "hacer", "está", "una", "los", "las", "esto"},
}

// DetectLanguage counts indicator words per supported language over the
// normalized text. The language with the highest count wins; SupportedLanguages
// order breaks ties, which lands on english.
func DetectLanguage(normalized string) Language {
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return DefaultLanguage
	}
	present := make(map[string]int, len(words))
	for _, w := range words {
		present[strings.Trim(w, ".,!?;:\"'")]++
	}

	best := DefaultLanguage
	bestCount := 0
	for _, lang := range SupportedLanguages {
		count := 0
		for _, ind := range languageIndicators[lang] {
			count += present[ind]
		}
		if count > bestCount {
			best = lang
			bestCount = count
		}
	}
	return best
}

type scored struct {
	intent   Intent
	score    float64
	evidence MatchedEvidence
}

// Predict classifies the query. langHint, when it names a supported language,
// overrides detection. An empty query returns ErrEmptyQuery.
func (c *Classifier) Predict(query, langHint string) (Verdict, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return Verdict{}, ErrEmptyQuery
	}

	lang := DefaultLanguage
	if ValidLanguage(langHint) {
		lang = Language(langHint)
	} else {
		lang = DetectLanguage(normalized)
	}

	results := c.score(normalized, lang)

	v := Verdict{Language: lang}
	if len(results) == 0 || results[0].score < c.cfg.PrimaryThreshold {
		v.PrimaryIntent = IntentAmbiguous
		if len(results) > 0 {
			v.Confidence = results[0].score
		}
		for i := 0; i < len(results) && i < 3; i++ {
			v.TopScores = append(v.TopScores, ScoredIntent{Intent: results[i].intent, Confidence: results[i].score})
		}
		return v, nil
	}

	top := results[0]
	v.PrimaryIntent = top.intent
	v.Confidence = top.score
	v.Evidence = top.evidence

	for _, r := range results[1:] {
		if r.score < c.cfg.SecondaryThreshold {
			break
		}
		if len(v.SecondaryIntents) >= c.cfg.MaxSecondary {
			break
		}
		v.SecondaryIntents = append(v.SecondaryIntents, ScoredIntent{Intent: r.intent, Confidence: r.score})
		if r.score >= c.cfg.MultiSignalThreshold && c.trace != nil {
			c.trace.Printf("[CLASSIFIER] strong secondary %s (%.2f) next to %s (%.2f), query may be multi-intent",
				r.intent, r.score, top.intent, top.score)
		}
	}
	return v, nil
}

// score runs every rule for the language against the normalized text and
// returns the non-zero results sorted by score descending. Ties sort by intent
// name so the output is deterministic.
func (c *Classifier) score(normalized string, lang Language) []scored {
	var results []scored
	for _, r := range c.store.Rules(lang) {
		regexScore := 0.0
		ev := MatchedEvidence{}
		for i, re := range r.regexes {
			if re.MatchString(normalized) {
				regexScore = 1.0
				ev.Pattern = r.sources[i]
				break
			}
		}

		keywordScore := 0.0
		if len(r.keywords) > 0 {
			matched := 0
			for i, re := range r.keywordRES {
				if re.MatchString(normalized) {
					matched++
					ev.Keywords = append(ev.Keywords, r.keywords[i])
				}
			}
			keywordScore = float64(matched) / float64(len(r.keywords))
		}

		base := regexScore
		if keywordScore > base {
			base = keywordScore
		}
		final := clamp01(base * r.priority)
		if final == 0 {
			continue
		}
		results = append(results, scored{intent: r.intent, score: final, evidence: ev})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].intent < results[j].intent
	})
	return results
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
