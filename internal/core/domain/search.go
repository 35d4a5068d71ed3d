package domain

// Metric is the similarity metric a vector store ranks by. It is fixed
// per store instance and must match the metric the embedding model was
// designed for.
type Metric string

// Supported similarity metrics.
const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// Filter is a conjunction of exact-match predicates applied to stored
// chunk metadata. Zero values mean "no constraint".
type Filter struct {
	// Region restricts results to a single region when non-empty.
	Region string

	// DocType restricts results to a single document type when non-empty.
	DocType string

	// Tags requires, per category, that at least the listed keywords were
	// matched on the chunk. All listed keywords must be present.
	Tags map[TagCategory][]string
}

// IsZero reports whether the filter imposes no constraints.
func (f Filter) IsZero() bool {
	return f.Region == "" && f.DocType == "" && len(f.Tags) == 0
}

// Matches reports whether an entry's metadata satisfies the filter.
// Backends without native filtering use this for post-filtering; the
// result must be equivalent either way.
func (f Filter) Matches(region, docType string, tags Tags) bool {
	if f.Region != "" && region != f.Region {
		return false
	}
	if f.DocType != "" && docType != f.DocType {
		return false
	}
	for category, keywords := range f.Tags {
		for _, kw := range keywords {
			if !tags.Has(category, kw) {
				return false
			}
		}
	}
	return true
}

// SearchResult is a scored chunk returned to callers. Ephemeral,
// produced per query; no internal pipeline types leak through it.
type SearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string `json:"chunk_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Score is the similarity on the store's metric, higher is closer.
	Score float64 `json:"score"`

	Tags    Tags   `json:"tags"`
	Region  string `json:"region"`
	DocType string `json:"doc_type"`
}
