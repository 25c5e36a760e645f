package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

func testRecord(root, id string, cachedAt time.Time) *domain.CacheRecord {
	return &domain.CacheRecord{
		ID:         domain.DocumentID(id),
		Title:      "Title " + id,
		Authors:    []string{"Zed Last", "Amy First", "Mid Dle"},
		Abstract:   "abstract of " + id,
		Published:  time.Date(2017, 6, 12, 17, 57, 34, 0, time.UTC),
		Updated:    time.Date(2023, 8, 2, 0, 41, 18, 0, time.UTC),
		SourcePath: filepath.Join(root, id),
		MainFile:   filepath.Join(root, id, "main.tex"),
		CachedAt:   cachedAt,
	}
}

func TestPaperRepository_UpsertGet(t *testing.T) {
	repos, root := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := testRecord(root, "1706.03762", now)
	require.NoError(t, repos.Paper.Upsert(ctx, rec))

	got, err := repos.Paper.Get(ctx, "1706.03762")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, []string{"Zed Last", "Amy First", "Mid Dle"}, got.Authors, "author order preserved")
	assert.Equal(t, rec.Abstract, got.Abstract)
	assert.True(t, rec.Published.Equal(got.Published))
	assert.True(t, rec.Updated.Equal(got.Updated))
	assert.Equal(t, rec.SourcePath, got.SourcePath)
	assert.Equal(t, rec.MainFile, got.MainFile)
	assert.True(t, now.Equal(got.CachedAt))

	t.Run("missing record", func(t *testing.T) {
		got, err := repos.Paper.Get(ctx, "0000.00000")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		rec2 := testRecord(root, "1706.03762", now.Add(time.Hour))
		rec2.Title = "Replaced"
		rec2.Authors = []string{"Solo"}
		rec2.MainFile = filepath.Join(root, "1706.03762", "paper.tex")
		require.NoError(t, repos.Paper.Upsert(ctx, rec2))

		got, err := repos.Paper.Get(ctx, "1706.03762")
		require.NoError(t, err)
		assert.Equal(t, "Replaced", got.Title)
		assert.Equal(t, []string{"Solo"}, got.Authors)
		assert.Equal(t, rec2.MainFile, got.MainFile)

		var count int
		require.NoError(t, repos.DB.Get(&count, "SELECT COUNT(*) FROM papers"))
		assert.Equal(t, 1, count)
	})

	t.Run("zero dates and no authors", func(t *testing.T) {
		rec := &domain.CacheRecord{ID: "hep-th/9901001", SourcePath: filepath.Join(root, "hep-th", "9901001"), CachedAt: now}
		require.NoError(t, repos.Paper.Upsert(ctx, rec))
		got, err := repos.Paper.Get(ctx, "hep-th/9901001")
		require.NoError(t, err)
		assert.True(t, got.Published.IsZero())
		assert.True(t, got.Updated.IsZero())
		assert.Empty(t, got.Authors)
	})
}

func TestPaperRepository_RoundTripWholeRecord(t *testing.T) {
	repos, root := setupTestDB(t)
	ctx := context.Background()

	t.Run("utc record", func(t *testing.T) {
		rec := testRecord(root, "2401.00001", time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC))
		require.NoError(t, repos.Paper.Upsert(ctx, rec))
		got, err := repos.Paper.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("nil authors", func(t *testing.T) {
		rec := testRecord(root, "2401.00002", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
		rec.Authors = nil
		require.NoError(t, repos.Paper.Upsert(ctx, rec))
		got, err := repos.Paper.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("non-utc zone comes back as the same instant in utc", func(t *testing.T) {
		zone := time.FixedZone("CET", 3600)
		rec := testRecord(root, "2401.00003", time.Date(2024, 1, 2, 4, 4, 5, 0, zone))
		require.NoError(t, repos.Paper.Upsert(ctx, rec))
		got, err := repos.Paper.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, rec.CachedAt.Equal(got.CachedAt))
		assert.Equal(t, time.UTC, got.CachedAt.Location())

		want := *rec
		want.CachedAt = rec.CachedAt.UTC()
		assert.Equal(t, &want, got)
	})
}

func TestPaperRepository_IsCached(t *testing.T) {
	repos, root := setupTestDB(t)
	ctx := context.Background()

	ok, err := repos.Paper.IsCached(ctx, "1706.03762")
	require.NoError(t, err)
	assert.False(t, ok, "no record")

	rec := testRecord(root, "1706.03762", time.Now())
	require.NoError(t, repos.Paper.Upsert(ctx, rec))
	ok, err = repos.Paper.IsCached(ctx, "1706.03762")
	require.NoError(t, err)
	assert.False(t, ok, "record without tree")

	require.NoError(t, os.MkdirAll(rec.SourcePath, 0o750))
	ok, err = repos.Paper.IsCached(ctx, "1706.03762")
	require.NoError(t, err)
	assert.True(t, ok, "empty tree still counts")
}

func TestPaperRepository_List(t *testing.T) {
	repos, root := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	list, err := repos.Paper.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repos.Paper.Upsert(ctx, testRecord(root, "a", base)))
	require.NoError(t, repos.Paper.Upsert(ctx, testRecord(root, "b", base.Add(2*time.Minute))))
	require.NoError(t, repos.Paper.Upsert(ctx, testRecord(root, "c", base.Add(time.Minute))))

	list, err = repos.Paper.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, domain.DocumentID("b"), list[0].ID)
	assert.Equal(t, domain.DocumentID("c"), list[1].ID)
	assert.Equal(t, domain.DocumentID("a"), list[2].ID)
	assert.Equal(t, "Title b", list[0].Title)
	assert.Equal(t, []string{"Zed Last", "Amy First", "Mid Dle"}, list[0].Authors)

	list, err = repos.Paper.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPaperRepository_DeleteAll(t *testing.T) {
	repos, root := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"1706.03762", "hep-th/9901001"} {
		rec := testRecord(root, id, time.Now())
		require.NoError(t, os.MkdirAll(rec.SourcePath, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(rec.SourcePath, "main.tex"), []byte("x"), 0o600))
		require.NoError(t, repos.Paper.Upsert(ctx, rec))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("keep"), 0o600))

	require.NoError(t, repos.Paper.DeleteAll(ctx))

	list, err := repos.Paper.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.IsDir(), "directory %s left behind", e.Name())
	}
	_, err = os.Stat(filepath.Join(root, StoreFile))
	require.NoError(t, err, "store file kept")
	_, err = os.Stat(filepath.Join(root, "notes.txt"))
	require.NoError(t, err, "plain files kept")

	// store still usable
	require.NoError(t, repos.Paper.Upsert(ctx, testRecord(root, "x", time.Now())))
}

func TestPaperRepository_Stats(t *testing.T) {
	repos, root := setupTestDB(t)
	ctx := context.Background()

	stats, err := repos.Paper.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Records)
	assert.Equal(t, int64(0), stats.TextSize)
	assert.Equal(t, root, stats.Root)

	rec := testRecord(root, "p1", time.Now())
	rec.Title = "abcd"
	rec.Abstract = "123456"
	require.NoError(t, repos.Paper.Upsert(ctx, rec))
	require.NoError(t, os.MkdirAll(rec.SourcePath, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(rec.SourcePath, "main.tex"), make([]byte, 1000), 0o600))

	stats, err = repos.Paper.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Records)
	assert.Equal(t, int64(10), stats.TextSize)
	assert.GreaterOrEqual(t, stats.DiskSize, int64(1000))
}

func TestAuthorsSQL(t *testing.T) {
	v, err := authorsSQL(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = authorsSQL{"b", "a"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["b","a"]`, v)

	var a authorsSQL
	require.NoError(t, a.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, authorsSQL{"x", "y"}, a)
	require.NoError(t, a.Scan(`["z"]`))
	assert.Equal(t, authorsSQL{"z"}, a)
	require.NoError(t, a.Scan(nil))
	assert.Nil(t, a)
	require.NoError(t, a.Scan(`[]`))
	assert.Nil(t, a)
	assert.Error(t, a.Scan(42))
}
