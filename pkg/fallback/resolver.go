// Package fallback resolves user-facing fallback messages from a templated
// catalog. Resolution never fails: missing scenario, style or language entries
// degrade step by step down to a generic message.
package fallback

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

//go:embed templates.json
var defaultTemplatesJSON []byte

// Scenario identifies a fallback situation.
type Scenario string

const (
	ScenarioAmbiguous      Scenario = "ambiguous_question"
	ScenarioNoDocsGuidance Scenario = "no_documents_guidance"
	ScenarioProductHelp    Scenario = "product_help"
	ScenarioNoEvidence     Scenario = "no_evidence"
	ScenarioUpstream       Scenario = "upstream_failure"
	ScenarioComingSoon     Scenario = "coming_soon"
	ScenarioOutOfScope     Scenario = "out_of_scope"
	ScenarioSafetyConcern  Scenario = "safety_concern"
	ScenarioInternalError  Scenario = "internal_error"
	ScenarioBudgetExceeded Scenario = "budget_exceeded"
	ScenarioNoPriorAnswer  Scenario = "no_prior_answer"
)

// Style selects the tone variant. DefaultStyle always exists for critical
// scenarios.
type Style string

const (
	StyleFriendly     Style = "friendly"
	StyleProfessional Style = "professional"

	DefaultStyle = StyleFriendly
)

// criticalScenarios must resolve in the default style and english after
// loading, otherwise the catalog is rejected and startup aborts.
var criticalScenarios = []Scenario{
	ScenarioAmbiguous,
	ScenarioNoDocsGuidance,
	ScenarioUpstream,
	ScenarioComingSoon,
	ScenarioSafetyConcern,
	ScenarioInternalError,
	ScenarioNoPriorAnswer,
}

type scenarioTemplates struct {
	Styles map[string]map[string]string `json:"styles"`
}

type templatesFile struct {
	Version   int                          `json:"version"`
	Generic   map[string]string            `json:"generic"`
	Scenarios map[string]scenarioTemplates `json:"scenarios"`
}

// Message is a resolved fallback message.
type Message struct {
	Scenario Scenario `json:"scenario"`
	Style    Style    `json:"style"`
	Language string   `json:"language"`
	Text     string   `json:"text"`
}

// Resolver holds the loaded catalog. Read-only after construction.
type Resolver struct {
	file templatesFile
}

// Load reads the template catalog from path, or the embedded defaults when
// path is empty, and validates critical coverage.
func Load(path string) (*Resolver, error) {
	raw := defaultTemplatesJSON
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fallback templates %s: %w", path, err)
		}
		raw = b
	}
	var file templatesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse fallback templates: %w", err)
	}
	if file.Generic["en"] == "" {
		return nil, fmt.Errorf("fallback templates missing english generic message")
	}
	for _, sc := range criticalScenarios {
		st, ok := file.Scenarios[string(sc)]
		if !ok {
			return nil, fmt.Errorf("fallback templates missing critical scenario %s", sc)
		}
		if st.Styles[string(DefaultStyle)]["en"] == "" {
			return nil, fmt.Errorf("fallback scenario %s missing %s/en template", sc, DefaultStyle)
		}
	}
	return &Resolver{file: file}, nil
}

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Resolve looks up scenario → style → language, degrading at each level:
// unknown style falls back to the default style, unknown language to english,
// unknown scenario to the generic message. Placeholders written as {{name}}
// are substituted from placeholders; unresolved ones are stripped. The result
// is deterministic for identical inputs.
func (r *Resolver) Resolve(scenario Scenario, style Style, lang string, placeholders map[string]string) Message {
	text, usedStyle, usedLang := r.lookup(scenario, style, lang)

	text = placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholderRE.FindStringSubmatch(m)[1]
		return placeholders[key]
	})
	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))

	return Message{Scenario: scenario, Style: usedStyle, Language: usedLang, Text: text}
}

func (r *Resolver) lookup(scenario Scenario, style Style, lang string) (string, Style, string) {
	if lang == "" {
		lang = "en"
	}
	if style == "" {
		style = DefaultStyle
	}
	if st, ok := r.file.Scenarios[string(scenario)]; ok {
		for _, s := range []Style{style, DefaultStyle} {
			byLang, ok := st.Styles[string(s)]
			if !ok {
				continue
			}
			if text := byLang[lang]; text != "" {
				return text, s, lang
			}
			if text := byLang["en"]; text != "" {
				return text, s, "en"
			}
		}
	}
	if text := r.file.Generic[lang]; text != "" {
		return text, DefaultStyle, lang
	}
	return r.file.Generic["en"], DefaultStyle, "en"
}
