package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

// DefaultAPIURL is the arXiv query endpoint
const DefaultAPIURL = "http://export.arxiv.org/api/query"

// MetadataFetcher retrieves paper metadata from the arXiv Atom query API
type MetadataFetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewMetadataFetcher creates a new fetcher. zero timeout means no timeout.
func NewMetadataFetcher(baseURL, userAgent string, timeout time.Duration) *MetadataFetcher {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &MetadataFetcher{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// Fetch retrieves metadata for the given paper. only the first feed entry is inspected.
func (f *MetadataFetcher) Fetch(ctx context.Context, id domain.DocumentID) (*domain.Metadata, error) {
	body, err := f.fetch(ctx, id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNetwork, fmt.Sprintf("fetch metadata for %s", id), err)
	}
	defer body.Close()

	parser := atom.Parser{}
	feed, err := parser.Parse(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, fmt.Sprintf("parse metadata for %s", id), err)
	}

	if len(feed.Entries) == 0 {
		return nil, domain.WrapError(domain.ErrParse, fmt.Sprintf("parse metadata for %s", id), fmt.Errorf("no paper found"))
	}

	return toMetadata(feed.Entries[0]), nil
}

// toMetadata converts an atom entry to paper metadata
func toMetadata(entry *atom.Entry) *domain.Metadata {
	meta := &domain.Metadata{
		ID:       entryID(entry.ID),
		Title:    strings.TrimSpace(entry.Title),
		Abstract: strings.TrimSpace(entry.Summary),
		Authors:  make([]string, 0, len(entry.Authors)),
	}

	for _, author := range entry.Authors {
		if author == nil || author.Name == "" {
			continue
		}
		meta.Authors = append(meta.Authors, author.Name)
	}

	if entry.PublishedParsed != nil {
		meta.Published = *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		meta.Updated = *entry.UpdatedParsed
	}

	return meta
}

// entryID returns the last path segment of an entry id,
// e.g. http://arxiv.org/abs/2404.11397v1 -> 2404.11397v1
func entryID(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		return raw[idx+1:]
	}
	return raw
}

// fetch retrieves the raw feed for the given id
func (f *MetadataFetcher) fetch(ctx context.Context, id domain.DocumentID) (io.ReadCloser, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("id_list", id.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}
