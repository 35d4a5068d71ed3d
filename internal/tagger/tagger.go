// Package tagger attaches domain metadata tags to chunks by scanning
// their text against category keyword dictionaries.
package tagger

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mira-labs/mira/internal/core/domain"
)

// Dictionary maps each tag category to its keyword and phrase patterns.
// Matching is case-insensitive with word boundaries, so "gas" does not
// match "gasoline". Extending a category is a data change only.
type Dictionary map[domain.TagCategory][]string

// Tagger is an immutable matcher built from a dictionary. Multiple
// taggers with different dictionaries can coexist.
type Tagger struct {
	patterns map[domain.TagCategory][]pattern
}

type pattern struct {
	keyword string
	re      *regexp.Regexp
}

// New compiles a tagger from the dictionary. Keywords that would
// compile to an invalid expression fail construction.
func New(dict Dictionary) (*Tagger, error) {
	t := &Tagger{patterns: make(map[domain.TagCategory][]pattern, len(domain.TagCategories()))}

	for _, category := range domain.TagCategories() {
		keywords := dict[category]
		compiled := make([]pattern, 0, len(keywords))
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			re, err := compileKeyword(kw)
			if err != nil {
				return nil, fmt.Errorf("%w: keyword %q in category %s: %v", domain.ErrInvalidConfig, kw, category, err)
			}
			compiled = append(compiled, pattern{keyword: kw, re: re})
		}
		t.patterns[category] = compiled
	}

	return t, nil
}

// compileKeyword turns a keyword or phrase into a case-insensitive,
// word-bounded expression. Interior whitespace matches any run of
// whitespace so phrases survive reflowed text.
func compileKeyword(keyword string) (*regexp.Regexp, error) {
	words := strings.Fields(keyword)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	expr := `(?i)\b` + strings.Join(words, `\s+`) + `\b`
	return regexp.Compile(expr)
}

// Tag scans the chunk text and returns it with the matched keywords per
// category plus the inherited provenance metadata. Pure: identical text
// always yields identical tags, and every category is present in the
// result even when nothing matched.
func (t *Tagger) Tag(chunk domain.Chunk, region, docType string) domain.TaggedChunk {
	tags := make(domain.Tags, len(t.patterns))

	for _, category := range domain.TagCategories() {
		matched := []string{}
		for _, p := range t.patterns[category] {
			if p.re.MatchString(chunk.Text) {
				matched = append(matched, p.keyword)
			}
		}
		sort.Strings(matched)
		tags[category] = matched
	}

	return domain.TaggedChunk{
		Chunk:   chunk,
		Tags:    tags,
		Region:  region,
		DocType: docType,
	}
}
