package service

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivtex/arxivtex/pkg/arxiv"
	"github.com/arxivtex/arxivtex/pkg/domain"
	"github.com/arxivtex/arxivtex/pkg/repository"
	"github.com/arxivtex/arxivtex/pkg/service/mocks"
	"github.com/arxivtex/arxivtex/pkg/source"
)

const paperTex = `\documentclass{article}
\title{Test}
\begin{document}
\maketitle
\begin{abstract}short\end{abstract}
\section{Introduction}
\bibliography{refs}
\end{document}
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
}

func TestLoader_Load_Miss(t *testing.T) {
	root := t.TempDir()
	tree := filepath.Join(root, "1706.03762")
	writeTree(t, tree, map[string]string{"paper.tex": paperTex, "appendix_a.tex": `\section{Extra}`})

	meta := &domain.Metadata{ID: "1706.03762v7", Title: "Attention", Authors: []string{"B", "A"}, Abstract: "abs"}
	fetcher := &mocks.MetadataFetcherMock{
		FetchFunc: func(ctx context.Context, id domain.DocumentID) (*domain.Metadata, error) { return meta, nil },
	}
	retriever := &mocks.ArchiveRetrieverMock{
		FetchFunc: func(ctx context.Context, id domain.DocumentID) (*domain.ExtractedTree, error) {
			return &domain.ExtractedTree{Root: tree, Freshness: domain.FreshnessComplete}, nil
		},
	}
	var stored *domain.CacheRecord
	store := &mocks.StoreMock{
		IsCachedFunc: func(ctx context.Context, id domain.DocumentID) (bool, error) { return false, nil },
		UpsertFunc: func(ctx context.Context, rec *domain.CacheRecord) error {
			stored = rec
			return nil
		},
	}

	l := NewLoader(fetcher, retriever, store)
	fixed := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	p, err := l.Load(context.Background(), "  arxiv:1706.03762 ")
	require.NoError(t, err)
	assert.False(t, p.FromCache)
	assert.Equal(t, filepath.Join(tree, "paper.tex"), p.MainFile)
	assert.Equal(t, tree, p.SourcePath)
	assert.Equal(t, *meta, p.Metadata)

	require.Len(t, fetcher.FetchCalls(), 1)
	assert.Equal(t, domain.DocumentID("1706.03762"), fetcher.FetchCalls()[0].ID)
	require.Len(t, retriever.FetchCalls(), 1)
	assert.Equal(t, domain.DocumentID("1706.03762"), retriever.FetchCalls()[0].ID)

	require.NotNil(t, stored)
	assert.Equal(t, domain.DocumentID("1706.03762"), stored.ID)
	assert.Equal(t, "Attention", stored.Title)
	assert.Equal(t, []string{"B", "A"}, stored.Authors)
	assert.Equal(t, p.MainFile, stored.MainFile)
	assert.Equal(t, tree, stored.SourcePath)
	assert.Equal(t, fixed, stored.CachedAt)

	_, err = os.Stat(filepath.Join(tree, "main.tex"))
	assert.NoError(t, err, "alias created")
}

func TestLoader_Load_Hit(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "x", "main.tex")
	writeTree(t, root, map[string]string{"x/main.tex": paperTex})

	fetcher := &mocks.MetadataFetcherMock{}
	retriever := &mocks.ArchiveRetrieverMock{}
	store := &mocks.StoreMock{
		IsCachedFunc: func(ctx context.Context, id domain.DocumentID) (bool, error) { return true, nil },
		GetFunc: func(ctx context.Context, id domain.DocumentID) (*domain.CacheRecord, error) {
			return &domain.CacheRecord{ID: id, Title: "Cached", Authors: []string{"Q"}, SourcePath: filepath.Dir(main), MainFile: main}, nil
		},
	}

	p, err := NewLoader(fetcher, retriever, store).Load(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, p.FromCache)
	assert.Equal(t, main, p.MainFile)
	assert.Equal(t, "Cached", p.Metadata.Title)
	assert.Equal(t, domain.DocumentID("x"), p.Metadata.ID)
	assert.Empty(t, fetcher.FetchCalls())
	assert.Empty(t, retriever.FetchCalls())
	assert.Empty(t, store.UpsertCalls())
}

func TestLoader_Load_HitMissingMainFile(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name string
		rec  *domain.CacheRecord
	}{
		{"record vanished", nil},
		{"no main file recorded", &domain.CacheRecord{ID: "x", SourcePath: root}},
		{"main file deleted", &domain.CacheRecord{ID: "x", SourcePath: root, MainFile: filepath.Join(root, "gone.tex")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.StoreMock{
				IsCachedFunc: func(ctx context.Context, id domain.DocumentID) (bool, error) { return true, nil },
				GetFunc:      func(ctx context.Context, id domain.DocumentID) (*domain.CacheRecord, error) { return tt.rec, nil },
			}
			_, err := NewLoader(&mocks.MetadataFetcherMock{}, &mocks.ArchiveRetrieverMock{}, store).Load(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestLoader_Load_Errors(t *testing.T) {
	root := t.TempDir()
	emptyTree := filepath.Join(root, "empty")
	require.NoError(t, os.MkdirAll(emptyTree, 0o750))
	goodTree := filepath.Join(root, "good")
	writeTree(t, goodTree, map[string]string{"a.tex": paperTex})

	okMeta := func(ctx context.Context, id domain.DocumentID) (*domain.Metadata, error) {
		return &domain.Metadata{ID: id.String()}, nil
	}
	treeAt := func(dir string) func(context.Context, domain.DocumentID) (*domain.ExtractedTree, error) {
		return func(context.Context, domain.DocumentID) (*domain.ExtractedTree, error) {
			return &domain.ExtractedTree{Root: dir}, nil
		}
	}
	notCached := func(ctx context.Context, id domain.DocumentID) (bool, error) { return false, nil }
	upsertOK := func(ctx context.Context, rec *domain.CacheRecord) error { return nil }

	tests := []struct {
		name      string
		fetcher   *mocks.MetadataFetcherMock
		retriever *mocks.ArchiveRetrieverMock
		store     *mocks.StoreMock
		kind      error
	}{
		{
			name: "store check fails",
			store: &mocks.StoreMock{IsCachedFunc: func(ctx context.Context, id domain.DocumentID) (bool, error) {
				return false, domain.WrapError(domain.ErrCache, "get", errors.New("disk"))
			}},
			kind: domain.ErrCache,
		},
		{
			name: "metadata network error",
			fetcher: &mocks.MetadataFetcherMock{FetchFunc: func(ctx context.Context, id domain.DocumentID) (*domain.Metadata, error) {
				return nil, domain.WrapError(domain.ErrNetwork, "fetch", errors.New("refused"))
			}},
			store: &mocks.StoreMock{IsCachedFunc: notCached},
			kind:  domain.ErrNetwork,
		},
		{
			name:    "archive fetch error",
			fetcher: &mocks.MetadataFetcherMock{FetchFunc: okMeta},
			retriever: &mocks.ArchiveRetrieverMock{FetchFunc: func(ctx context.Context, id domain.DocumentID) (*domain.ExtractedTree, error) {
				return nil, domain.WrapError(domain.ErrFetch, "download", errors.New("404"))
			}},
			store: &mocks.StoreMock{IsCachedFunc: notCached},
			kind:  domain.ErrFetch,
		},
		{
			name:      "no tex files",
			fetcher:   &mocks.MetadataFetcherMock{FetchFunc: okMeta},
			retriever: &mocks.ArchiveRetrieverMock{FetchFunc: treeAt(emptyTree)},
			store:     &mocks.StoreMock{IsCachedFunc: notCached, UpsertFunc: upsertOK},
			kind:      domain.ErrNotFound,
		},
		{
			name:      "upsert fails",
			fetcher:   &mocks.MetadataFetcherMock{FetchFunc: okMeta},
			retriever: &mocks.ArchiveRetrieverMock{FetchFunc: treeAt(goodTree)},
			store: &mocks.StoreMock{IsCachedFunc: notCached, UpsertFunc: func(ctx context.Context, rec *domain.CacheRecord) error {
				return domain.WrapError(domain.ErrCache, "upsert", errors.New("readonly"))
			}},
			kind: domain.ErrCache,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fetcher == nil {
				tt.fetcher = &mocks.MetadataFetcherMock{}
			}
			if tt.retriever == nil {
				tt.retriever = &mocks.ArchiveRetrieverMock{}
			}
			_, err := NewLoader(tt.fetcher, tt.retriever, tt.store).Load(context.Background(), "1234.5678")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	t.Run("empty id", func(t *testing.T) {
		_, err := NewLoader(&mocks.MetadataFetcherMock{}, &mocks.ArchiveRetrieverMock{}, &mocks.StoreMock{}).Load(context.Background(), "   ")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("no tex files leaves store untouched", func(t *testing.T) {
		store := &mocks.StoreMock{IsCachedFunc: notCached, UpsertFunc: upsertOK}
		_, err := NewLoader(&mocks.MetadataFetcherMock{FetchFunc: okMeta}, &mocks.ArchiveRetrieverMock{FetchFunc: treeAt(emptyTree)}, store).
			Load(context.Background(), "1234.5678")
		require.Error(t, err)
		assert.Empty(t, store.UpsertCalls())
	})
}

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2404.11397v1</id>
    <updated>2024-04-17T13:58:20Z</updated>
    <published>2024-04-17T13:58:20Z</published>
    <title>A Cached Paper</title>
    <summary>Abstract text.</summary>
    <author><name>First Author</name></author>
    <author><name>Second Author</name></author>
  </entry>
</feed>`

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestLoader_EndToEnd(t *testing.T) {
	var apiCalls, sourceCalls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
		assert.Equal(t, "2404.11397", r.URL.Query().Get("id_list"))
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer api.Close()

	bundle := tarGz(t, map[string]string{"ms.tex": paperTex, "sections/intro.tex": "% This file is included\n\\section{Intro}"})
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&sourceCalls, 1)
		_, _ = w.Write(bundle)
	}))
	defer src.Close()

	root := t.TempDir()
	repos, err := repository.NewRepositories(context.Background(), repository.Config{Root: root})
	require.NoError(t, err)
	defer repos.Close()

	l := NewLoader(arxiv.NewMetadataFetcher(api.URL, "test", 0), source.NewRetriever(root, src.URL, "test", 0), repos.Paper)

	p, err := l.Load(context.Background(), "arxiv:2404.11397")
	require.NoError(t, err)
	assert.False(t, p.FromCache)
	assert.Equal(t, filepath.Join(root, "2404.11397", "ms.tex"), p.MainFile)
	assert.Equal(t, "A Cached Paper", p.Metadata.Title)
	assert.Equal(t, []string{"First Author", "Second Author"}, p.Metadata.Authors)

	// second load is served from the cache without touching the network
	p2, err := l.Load(context.Background(), "2404.11397")
	require.NoError(t, err)
	assert.True(t, p2.FromCache)
	assert.Equal(t, p.MainFile, p2.MainFile)
	assert.Equal(t, p.Metadata.Title, p2.Metadata.Title)
	assert.Equal(t, p.Metadata.Authors, p2.Metadata.Authors)
	assert.Equal(t, int32(1), atomic.LoadInt32(&apiCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sourceCalls))

	// removing the tree invalidates the record and triggers a refetch
	require.NoError(t, os.RemoveAll(filepath.Join(root, "2404.11397")))
	p3, err := l.Load(context.Background(), "2404.11397")
	require.NoError(t, err)
	assert.False(t, p3.FromCache)
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&sourceCalls))
}
