package intent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

//go:embed patterns.json
var defaultPatternsJSON []byte

// criticalIntents must have at least one english rule after loading. A config
// file that silently drops one of these would break routing for the product's
// core flows, so loading fails instead.
var criticalIntents = []Intent{
	IntentDocQA,
	IntentDocSearch,
	IntentDocSummarize,
	IntentDocAnalytics,
	IntentProductHelp,
	IntentChitchat,
	IntentSafetyConcern,
}

type languagePatterns struct {
	Keywords []string `json:"keywords"`
	Patterns []string `json:"patterns"`
}

type intentPatterns struct {
	Priority  int                         `json:"priority"`
	Languages map[string]languagePatterns `json:"languages"`
}

type patternsFile struct {
	Version int                       `json:"version"`
	Intents map[string]intentPatterns `json:"intents"`
}

// rule is one intent's compiled matching material for one language.
type rule struct {
	intent     Intent
	priority   float64 // clamped to [0,1] at load time
	keywords   []string
	keywordRES []*regexp.Regexp // whole-word matcher per keyword
	regexes    []*regexp.Regexp
	sources    []string // raw pattern text, aligned with regexes
}

// PatternStore holds the compiled classification rules, grouped by language.
// It is built once at startup and read-only afterwards, so it is safe for
// concurrent use without locking.
type PatternStore struct {
	rules map[Language][]rule
}

// LoadPatternStore reads the pattern config from path, or from the embedded
// defaults when path is empty, compiles every regex and validates coverage.
// Any error here should abort startup.
func LoadPatternStore(path string) (*PatternStore, error) {
	raw := defaultPatternsJSON
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pattern config %s: %w", path, err)
		}
		raw = b
	}

	var file patternsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse pattern config: %w", err)
	}
	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("pattern config contains no intents")
	}

	store := &PatternStore{rules: make(map[Language][]rule)}
	for name, ip := range file.Intents {
		in := Intent(name)
		if !in.Valid() {
			return nil, fmt.Errorf("pattern config references unknown intent %q", name)
		}
		prio := float64(ip.Priority)
		if prio < 0 {
			prio = 0
		}
		if prio > 100 {
			prio = 100
		}
		prio /= 100

		for langName, lp := range ip.Languages {
			if !ValidLanguage(langName) {
				return nil, fmt.Errorf("intent %s: unsupported language %q", name, langName)
			}
			r, err := compileRule(in, prio, lp)
			if err != nil {
				return nil, fmt.Errorf("intent %s lang %s: %w", name, langName, err)
			}
			lang := Language(langName)
			store.rules[lang] = append(store.rules[lang], r)
		}
	}

	// Languages without an entry for some intent fall back to the english
	// rules so every language list covers the same intent set.
	english := store.rules[LangEN]
	for _, lang := range SupportedLanguages {
		if lang == LangEN {
			continue
		}
		covered := make(map[Intent]bool, len(store.rules[lang]))
		for _, r := range store.rules[lang] {
			covered[r.intent] = true
		}
		for _, r := range english {
			if !covered[r.intent] {
				store.rules[lang] = append(store.rules[lang], r)
			}
		}
	}

	if err := store.validate(); err != nil {
		return nil, err
	}
	return store, nil
}

func compileRule(in Intent, prio float64, lp languagePatterns) (rule, error) {
	r := rule{intent: in, priority: prio}
	for _, kw := range lp.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return rule{}, fmt.Errorf("keyword %q: %w", kw, err)
		}
		r.keywords = append(r.keywords, kw)
		r.keywordRES = append(r.keywordRES, re)
	}
	for _, src := range lp.Patterns {
		re, err := regexp.Compile(src)
		if err != nil {
			return rule{}, fmt.Errorf("pattern %q: %w", src, err)
		}
		r.regexes = append(r.regexes, re)
		r.sources = append(r.sources, src)
	}
	if len(r.keywords) == 0 && len(r.regexes) == 0 {
		return rule{}, fmt.Errorf("no keywords and no patterns")
	}
	return r, nil
}

func (s *PatternStore) validate() error {
	english := make(map[Intent]bool)
	for _, r := range s.rules[LangEN] {
		english[r.intent] = true
	}
	for _, in := range criticalIntents {
		if !english[in] {
			return fmt.Errorf("pattern config missing critical intent %s", in)
		}
	}
	return nil
}

// Rules returns the rule set for lang, falling back to english for unknown
// languages.
func (s *PatternStore) Rules(lang Language) []rule {
	if rs, ok := s.rules[lang]; ok {
		return rs
	}
	return s.rules[DefaultLanguage]
}
