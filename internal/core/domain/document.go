package domain

import "time"

// SourceType identifies the extraction path that produced a document.
type SourceType string

// Known source types, matching the collector stages upstream of the core.
const (
	SourceHTML     SourceType = "html"
	SourcePDF      SourceType = "pdf"
	SourceEmbedded SourceType = "embedded"
)

// CleanedDocument is the handoff record from the cleaning stage.
// It is immutable once produced; the core never mutates it.
type CleanedDocument struct {
	// ID is a stable, content-derived identifier.
	ID string `json:"id"`

	// Text is the normalised plain text of the document.
	Text string `json:"text"`

	// SourceType records how the raw content was extracted.
	SourceType SourceType `json:"source_type"`

	// Region is the jurisdiction the document belongs to (e.g. "nsw", "qld", "wa").
	Region string `json:"region"`

	// DocType classifies the document (e.g. "legislation", "safety_alert", "guidance", "sop").
	DocType string `json:"doc_type"`

	// SourceURI is the original location the document was collected from.
	SourceURI string `json:"source_uri"`

	// ScrapedAt is when the raw content was collected.
	ScrapedAt time.Time `json:"scraped_at"`
}
