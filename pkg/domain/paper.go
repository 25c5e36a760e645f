package domain

import (
	"strings"
	"time"
)

// idPrefix is stripped from user-supplied identifiers. only the lowercase form is
// recognized, "arXiv:" and other case variants are kept as-is.
const idPrefix = "arxiv:"

// DocumentID is a normalized arXiv identifier, e.g. "2404.11397" or "hep-th/9901001"
type DocumentID string

// NormalizeID trims whitespace and strips the lowercase "arxiv:" prefix
func NormalizeID(raw string) DocumentID {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, idPrefix)
	return DocumentID(id)
}

// String returns the identifier as a plain string
func (id DocumentID) String() string {
	return string(id)
}

// Metadata represents descriptive fields of a paper as returned by the query API
type Metadata struct {
	ID        string
	Title     string
	Authors   []string // feed order, no dedup
	Abstract  string
	Published time.Time
	Updated   time.Time
}

// Freshness describes what is known about an extracted source tree on disk
type Freshness string

const (
	// FreshnessComplete means the tree was extracted and the completion marker was written
	FreshnessComplete Freshness = "complete"
	// FreshnessPartial means the directory exists but the completion marker is missing
	FreshnessPartial Freshness = "partial"
	// FreshnessUnknown is used when the tree state was not inspected
	FreshnessUnknown Freshness = "unknown"
)

// ExtractedTree is the on-disk result of unpacking a source archive
type ExtractedTree struct {
	Root      string
	Freshness Freshness
	CacheHit  bool // true if the directory existed and nothing was downloaded
}

// CacheRecord is the persisted summary of a paper and its extraction result
type CacheRecord struct {
	ID         DocumentID
	Title      string
	Authors    []string
	Abstract   string
	Published  time.Time
	Updated    time.Time
	SourcePath string
	MainFile   string // empty if no main file was selected
	CachedAt   time.Time
}

// Metadata returns descriptive fields of the record
func (r *CacheRecord) Metadata() Metadata {
	return Metadata{
		ID:        r.ID.String(),
		Title:     r.Title,
		Authors:   r.Authors,
		Abstract:  r.Abstract,
		Published: r.Published,
		Updated:   r.Updated,
	}
}

// RecordSummary is a short view of a cached paper used for listings
type RecordSummary struct {
	ID       DocumentID
	Title    string
	Authors  []string
	CachedAt time.Time
}

// CacheStats contains aggregate information about the local cache
type CacheStats struct {
	Records  int64
	TextSize int64 // sum of title and abstract lengths
	DiskSize int64 // sum of file sizes under the cache root
	Root     string
}
