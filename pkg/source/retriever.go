// Package source downloads arXiv e-print bundles and unpacks them into a per-paper
// directory under the cache root. The existence of that directory is the only
// freshness signal: a directory left behind by an interrupted download or
// extraction is reused as-is and never fetched again.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

// DefaultSourceURL is the arXiv e-print endpoint
const DefaultSourceURL = "https://arxiv.org/e-print"

const (
	stagingName = "source.tar.gz"
	markerName  = ".complete"
)

// Retriever fetches and extracts source archives
type Retriever struct {
	client    *http.Client
	root      string
	baseURL   string
	userAgent string
}

// NewRetriever creates a retriever storing trees under root. zero timeout means no timeout.
func NewRetriever(root, baseURL, userAgent string, timeout time.Duration) *Retriever {
	if baseURL == "" {
		baseURL = DefaultSourceURL
	}
	return &Retriever{
		client:    &http.Client{Timeout: timeout},
		root:      root,
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// Dir returns the destination directory for the given paper. ids resolving to the
// cache root itself or outside of it are rejected with ErrFetch.
func (r *Retriever) Dir(id domain.DocumentID) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(id.String()))
	if rel == "." || rel == ".." || filepath.IsAbs(rel) || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrFetch, fmt.Sprintf("resolve source dir for %q", id), errors.New("id escapes cache root"))
	}
	return filepath.Join(r.root, rel), nil
}

// Fetch returns the extracted tree for the paper, downloading it only if the
// destination directory does not exist yet. contents of an existing directory are not checked.
func (r *Retriever) Fetch(ctx context.Context, id domain.DocumentID) (*domain.ExtractedTree, error) {
	dir, err := r.Dir(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err == nil {
		log.Printf("[DEBUG] source for %s found in %s", id, dir)
		return &domain.ExtractedTree{Root: dir, Freshness: Freshness(dir), CacheHit: true}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.WrapError(domain.ErrFetch, fmt.Sprintf("create source dir for %s", id), err)
	}

	staging := filepath.Join(dir, stagingName)
	if err := r.download(ctx, id, staging); err != nil {
		return nil, domain.WrapError(domain.ErrFetch, fmt.Sprintf("download source for %s", id), err)
	}

	extracted, err := extract(staging, dir)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtract, fmt.Sprintf("extract source for %s", id), err)
	}

	if err := os.Remove(staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrExtract, fmt.Sprintf("remove staging file for %s", id), err)
	}

	if !extracted {
		log.Printf("[WARN] source for %s is neither tar nor zip, nothing extracted", id)
		return &domain.ExtractedTree{Root: dir, Freshness: domain.FreshnessPartial}, nil
	}

	if err := os.WriteFile(filepath.Join(dir, markerName), []byte(time.Now().UTC().Format(time.RFC3339)), 0o600); err != nil {
		return nil, domain.WrapError(domain.ErrExtract, fmt.Sprintf("write completion marker for %s", id), err)
	}

	log.Printf("[DEBUG] source for %s extracted to %s", id, dir)
	return &domain.ExtractedTree{Root: dir, Freshness: domain.FreshnessComplete}, nil
}

// Freshness reports whether the tree at dir carries the completion marker
func Freshness(dir string) domain.Freshness {
	if _, err := os.Stat(dir); err != nil {
		return domain.FreshnessUnknown
	}
	if _, err := os.Stat(filepath.Join(dir, markerName)); err == nil {
		return domain.FreshnessComplete
	}
	return domain.FreshnessPartial
}

// download streams the archive for id into dst
func (r *Retriever) download(ctx context.Context, id domain.DocumentID, dst string) error {
	srcURL, err := url.JoinPath(r.baseURL, id.String())
	if err != nil {
		return fmt.Errorf("build source URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch URL %s: %w", srcURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, srcURL)
	}

	f, err := os.Create(dst) //nolint:gosec // path is built from the cache root
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write staging file: %w", err)
	}
	return f.Close()
}
