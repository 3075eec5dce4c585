package resources

import (
	"strings"

	"github.com/earlyvue/go-screening-backend/internal/search"
)

// SearchIndex builds an in-memory index over the educational catalog: one
// document per article section paragraph (and per bullet run), each prefixed
// with the article title so matches stay attributable. The catalog is static,
// so the index is built once at startup and shared read-only.
func SearchIndex(opts ...search.Option) search.Index {
	var paragraphs []string
	for _, r := range catalog {
		paragraphs = append(paragraphs, r.Title+": "+r.Summary)
		for _, s := range r.Sections {
			for _, p := range s.Paragraphs {
				paragraphs = append(paragraphs, r.Title+": "+p)
			}
			if len(s.Bullets) > 0 {
				paragraphs = append(paragraphs, r.Title+": "+strings.Join(s.Bullets, ". "))
			}
		}
	}
	return search.NewIndexFromStrings(paragraphs, opts...)
}
