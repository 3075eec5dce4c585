// Package search ranks short text snippets against a free-form query. It
// backs the educational-catalog search endpoint: the catalog is flattened
// into one snippet per paragraph at startup, indexed once, and queried
// read-only after that, so the index carries no locks and no mutation API.
//
// Scoring is Jaccard similarity between the query token set and each
// snippet's token set. Ties break toward the shorter snippet, then
// lexicographically, so results are deterministic.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Result is a ranked snippet with its similarity score.
type Result struct {
	Snippet string
	Score   float64
}

// Index answers top-k queries over a fixed snippet set.
type Index interface {
	TopK(query string, k int) []Result
}

// Option adjusts index construction.
type Option func(*config)

type config struct {
	minSnippetRunes int
	stopwords       map[string]struct{}
	maxDocs         int
}

func defaultConfig() config {
	return config{
		minSnippetRunes: 40,
		stopwords:       nil,
		maxDocs:         0,
	}
}

// WithMinParagraphRunes drops snippets shorter than n runes. Zero keeps
// everything.
func WithMinParagraphRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minSnippetRunes = n
		}
	}
}

// WithStopwords removes the given words from both snippets and queries
// before scoring.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps how many snippets the index keeps, in input order.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

type snippet struct {
	text   string
	tokens map[string]struct{}
	nTok   int
}

type index struct {
	cfg  config
	docs []snippet
}

// NewIndexFromStrings builds an Index over the given snippets. Blank and
// too-short entries are skipped; token-free entries (punctuation only)
// are skipped too.
func NewIndexFromStrings(snippets []string, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	docs := make([]snippet, 0, len(snippets))
	for _, raw := range snippets {
		t := strings.TrimSpace(collapseSpaces(raw))
		if t == "" {
			continue
		}
		if cfg.minSnippetRunes > 0 && utf8.RuneCountInString(t) < cfg.minSnippetRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, snippet{text: t, tokens: toks, nTok: len(toks)})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching snippets. Queries with no token
// overlap yield nil. A non-positive k falls back to 3.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	type scored struct {
		text  string
		score float64
		runes int
	}
	var hits []scored
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + d.nTok - over)
		if union <= 0 {
			continue
		}
		hits = append(hits, scored{
			text:  d.text,
			score: float64(over) / union,
			runes: utf8.RuneCountInString(d.text),
		})
	}
	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		if hits[a].runes != hits[b].runes {
			return hits[a].runes < hits[b].runes
		}
		return hits[a].text < hits[b].text
	})

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Snippet: hits[n].text, Score: hits[n].score}
	}
	return out
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// tokenize lowercases s and extracts its unique word tokens, minus stopwords.
func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// collapseSpaces squeezes runs of spaces, tabs, and carriage returns into a
// single space so snippet lengths compare fairly.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
