// Package keyword implements the C2 keyword extractor contract
// (SPEC_FULL.md §4.7): text -> ordered list of salient terms with scores.
package keyword

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Scored is one extracted keyword with its ranking score.
type Scored struct {
	Name  string
	Score float64
}

// Extractor is the C2 contract.
type Extractor interface {
	Extract(ctx context.Context, text string, topK int) ([]Scored, error)
}

const (
	minLen = 2
	maxLen = 20
)

var punctOrDigitsOnly = regexp.MustCompile(`^[\d\W]+$`)

// defaultStopwords covers common Western function words plus a small set of
// Asian-morphology function words, matching the bilingual coverage described
// in original_source's keyword.py stopword list.
var defaultStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "as": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "can": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {},
	"이": {}, "그": {}, "저": {}, "것": {}, "수": {}, "등": {}, "및": {}, "를": {}, "은": {}, "는": {},
}

// TFIDFExtractor is a dependency-free tokenize-filter-score extractor: no
// morphological analyzer library exists anywhere in the retrieved corpus
// (original_source itself leans on a Korean-specific analyzer with no Go
// equivalent in the pack), so term classification is approximated by
// unicode script detection instead of part-of-speech tagging.
type TFIDFExtractor struct {
	stopwords map[string]struct{}
}

func NewTFIDFExtractor() *TFIDFExtractor {
	sw := make(map[string]struct{}, len(defaultStopwords))
	for k, v := range defaultStopwords {
		sw[k] = v
	}
	return &TFIDFExtractor{stopwords: sw}
}

func (e *TFIDFExtractor) AddStopwords(words ...string) {
	for _, w := range words {
		e.stopwords[strings.ToLower(w)] = struct{}{}
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}

func (e *TFIDFExtractor) isValid(tok string) bool {
	rl := len([]rune(tok))
	if rl < minLen || rl > maxLen {
		return false
	}
	if _, stop := e.stopwords[strings.ToLower(tok)]; stop {
		return false
	}
	if punctOrDigitsOnly.MatchString(tok) {
		return false
	}
	return true
}

// idf approximates original_source's length/capitalization-biased heuristic:
// longer words and capitalized words score as more distinctive, in the
// absence of a real corpus-wide document frequency count.
func idf(tok string) float64 {
	base := float64(len([]rune(tok))) / 5.0
	if base > 2.0 {
		base = 2.0
	}
	r := []rune(tok)
	if len(r) > 0 && unicode.IsUpper(r[0]) {
		base += 0.5
	}
	return base
}

// Extract tokenizes, filters, scores by TF * IDF, and returns the top-k
// results sorted by score descending. Deterministic on identical input.
func (e *TFIDFExtractor) Extract(ctx context.Context, text string, topK int) ([]Scored, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	maxCount := 0
	for _, tok := range tokenize(text) {
		if !e.isValid(tok) {
			continue
		}
		lower := strings.ToLower(tok)
		if _, seen := counts[lower]; !seen {
			order = append(order, lower)
		}
		counts[lower]++
		if counts[lower] > maxCount {
			maxCount = counts[lower]
		}
	}

	if len(counts) == 0 {
		return nil, nil
	}

	scored := make([]Scored, 0, len(counts))
	for _, name := range order {
		tf := float64(counts[name]) / float64(maxCount)
		scored = append(scored, Scored{Name: name, Score: tf * idf(name)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
