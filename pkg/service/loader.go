package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/arxivtex/arxivtex/pkg/domain"
	"github.com/arxivtex/arxivtex/pkg/selector"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . MetadataFetcher
//go:generate moq -out mocks/retriever.go -pkg mocks -skip-ensure -fmt goimports . ArchiveRetriever
//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// MetadataFetcher retrieves bibliographic metadata for a paper
type MetadataFetcher interface {
	Fetch(ctx context.Context, id domain.DocumentID) (*domain.Metadata, error)
}

// ArchiveRetriever makes the extracted source tree of a paper available on disk
type ArchiveRetriever interface {
	Fetch(ctx context.Context, id domain.DocumentID) (*domain.ExtractedTree, error)
}

// Store keeps cache records
type Store interface {
	Get(ctx context.Context, id domain.DocumentID) (*domain.CacheRecord, error)
	IsCached(ctx context.Context, id domain.DocumentID) (bool, error)
	Upsert(ctx context.Context, rec *domain.CacheRecord) error
}

// Paper is a loaded paper ready to be handed to a reader
type Paper struct {
	Metadata   domain.Metadata
	MainFile   string
	SourcePath string
	FromCache  bool
}

// Loader resolves an identifier to its metadata and main TeX file,
// going to the network only when the cache has nothing usable.
type Loader struct {
	fetcher   MetadataFetcher
	retriever ArchiveRetriever
	store     Store
	now       func() time.Time
}

// NewLoader makes a loader from its collaborators
func NewLoader(fetcher MetadataFetcher, retriever ArchiveRetriever, store Store) *Loader {
	return &Loader{fetcher: fetcher, retriever: retriever, store: store, now: time.Now}
}

// Load returns the paper for rawID, from the cache if a record exists and its source tree is on disk
func (l *Loader) Load(ctx context.Context, rawID string) (*Paper, error) {
	id := domain.NormalizeID(rawID)
	if id == "" {
		return nil, domain.WrapError(domain.ErrNotFound, "load paper", errors.New("empty paper id"))
	}

	cached, err := l.store.IsCached(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached {
		return l.fromCache(ctx, id)
	}

	log.Printf("[INFO] fetching metadata for %s", id)
	meta, err := l.fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] %s: %q by %d author(s)", id, meta.Title, len(meta.Authors))

	log.Printf("[INFO] fetching source for %s", id)
	tree, err := l.retriever.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] source tree %s, freshness %s, cache hit %v", tree.Root, tree.Freshness, tree.CacheHit)

	res, err := selector.Select(tree.Root)
	if err != nil {
		return nil, fmt.Errorf("select main file for %s: %w", id, err)
	}
	log.Printf("[INFO] main file for %s: %s (score %d of %d candidates)", id, res.Path, res.Score, len(res.Candidates))

	rec := &domain.CacheRecord{
		ID:         id,
		Title:      meta.Title,
		Authors:    meta.Authors,
		Abstract:   meta.Abstract,
		Published:  meta.Published,
		Updated:    meta.Updated,
		SourcePath: tree.Root,
		MainFile:   res.Path,
		CachedAt:   l.now().UTC(),
	}
	if err := l.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	return &Paper{Metadata: *meta, MainFile: res.Path, SourcePath: tree.Root}, nil
}

func (l *Loader) fromCache(ctx context.Context, id domain.DocumentID) (*Paper, error) {
	rec, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.WrapError(domain.ErrNotFound, fmt.Sprintf("load cached %s", id), errors.New("record vanished"))
	}
	log.Printf("[INFO] using cached %s from %s", id, rec.CachedAt.Format(time.RFC3339))

	if rec.MainFile == "" {
		return nil, domain.WrapError(domain.ErrNotFound, fmt.Sprintf("load cached %s", id), errors.New("no main file recorded"))
	}
	if _, err := os.Stat(rec.MainFile); err != nil {
		return nil, domain.WrapError(domain.ErrNotFound, fmt.Sprintf("load cached %s", id), err)
	}

	return &Paper{Metadata: rec.Metadata(), MainFile: rec.MainFile, SourcePath: rec.SourcePath, FromCache: true}, nil
}
