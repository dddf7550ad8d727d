package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Segmentation is the segmenter output. Segments keeps the original order of
// appearance; IsMulti is true only when at least two usable segments were
// produced.
type Segmentation struct {
	IsMulti  bool     `json:"is_multi"`
	Segments []string `json:"segments"`
}

const (
	// Queries shorter than this are never split; short messages splitting
	// on a stray "and" produces garbage segments.
	minQueryLen = 20
	// A usable segment must carry at least this many characters and two
	// words once trimmed.
	minSegmentLen = 8
)

// Delimiter patterns per language in priority order: explicit sequencing
// first, weaker conjunctions last. The first pattern that yields two usable
// segments wins and the rest are never tried.
var segmentDelimiters = map[Language][]*regexp.Regexp{
	LangEN: {
		regexp.MustCompile(`\s+and\s+then\s+`),
		regexp.MustCompile(`\s+after\s+that[,\s]+`),
		regexp.MustCompile(`\s*;\s*then\s+`),
		regexp.MustCompile(`\s*;\s+`),
		regexp.MustCompile(`\s+and\s+also\s+`),
		regexp.MustCompile(`\s*,\s*also\s+`),
	},
	LangPT: {
		regexp.MustCompile(`\s+e\s+depois\s+`),
		regexp.MustCompile(`\s+depois\s+disso[,\s]+`),
		regexp.MustCompile(`\s*;\s+`),
		regexp.MustCompile(`\s+e\s+tamb\x{00e9}m\s+`),
	},
	LangES: {
		regexp.MustCompile(`\s+y\s+luego\s+`),
		regexp.MustCompile(`\s+despu\x{00e9}s\s+de\s+eso[,\s]+`),
		regexp.MustCompile(`\s*;\s+`),
		regexp.MustCompile(`\s+y\s+tambi\x{00e9}n\s+`),
	},
}

var quotedSpanRE = regexp.MustCompile(`"[^"]*"|'[^']*'`)

// DetectSegments splits a (normalized) query into independently routable
// segments. Quoted spans are protected: a delimiter inside quotes never
// splits. Text outside the consumed delimiters is preserved verbatim.
func DetectSegments(query string, lang Language) Segmentation {
	single := Segmentation{IsMulti: false, Segments: []string{query}}
	if len(query) < minQueryLen {
		return single
	}

	protected, quotes := protectQuotes(query)

	delims, ok := segmentDelimiters[lang]
	if !ok {
		delims = segmentDelimiters[DefaultLanguage]
	}
	for _, re := range delims {
		parts := re.Split(protected, -1)
		if len(parts) < 2 {
			continue
		}
		var segments []string
		usable := true
		for _, p := range parts {
			p = strings.TrimSpace(restoreQuotes(p, quotes))
			if len(p) < minSegmentLen || len(strings.Fields(p)) < 2 {
				usable = false
				break
			}
			segments = append(segments, p)
		}
		if usable && len(segments) >= 2 {
			return Segmentation{IsMulti: true, Segments: segments}
		}
	}
	return single
}

// protectQuotes swaps quoted spans for opaque placeholders so delimiter
// patterns cannot match inside them.
func protectQuotes(s string) (string, []string) {
	var quotes []string
	out := quotedSpanRE.ReplaceAllStringFunc(s, func(m string) string {
		quotes = append(quotes, m)
		return fmt.Sprintf("\x00q%d\x00", len(quotes)-1)
	})
	return out, quotes
}

func restoreQuotes(s string, quotes []string) string {
	for i, q := range quotes {
		s = strings.ReplaceAll(s, fmt.Sprintf("\x00q%d\x00", i), q)
	}
	return s
}
