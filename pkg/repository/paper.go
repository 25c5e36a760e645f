package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

// PaperRepository keeps one cache record per paper. records are replaced wholesale,
// there is no versioning and no coordination between concurrent writers.
type PaperRepository struct {
	db   *sqlx.DB
	root string
}

// paperSQL represents a cached paper for SQL operations
type paperSQL struct {
	ID         string       `db:"id"`
	Title      string       `db:"title"`
	Authors    authorsSQL   `db:"authors"`
	Abstract   string       `db:"abstract"`
	Published  sql.NullTime `db:"published"`
	Updated    sql.NullTime `db:"updated"`
	SourcePath string       `db:"source_path"`
	MainFile   string       `db:"main_file"`
	CachedAt   time.Time    `db:"cached_at"`
}

// summarySQL is the listing view of a cached paper
type summarySQL struct {
	ID       string     `db:"id"`
	Title    string     `db:"title"`
	Authors  authorsSQL `db:"authors"`
	CachedAt time.Time  `db:"cached_at"`
}

// authorsSQL is a JSON array of author names, order preserved. an empty array reads back as nil
type authorsSQL []string

// Value implements driver.Valuer for database storage
func (a authorsSQL) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (a *authorsSQL) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported authors type %T", value)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	if len(names) == 0 {
		names = nil
	}
	*a = names
	return nil
}

// NewPaperRepository creates a new paper repository for the given cache root
func NewPaperRepository(db *sqlx.DB, root string) *PaperRepository {
	return &PaperRepository{db: db, root: root}
}

// Upsert stores the record, replacing any existing record for the same id.
// times are stored as UTC instants, so Get returns them in UTC whatever zone was upserted.
func (r *PaperRepository) Upsert(ctx context.Context, rec *domain.CacheRecord) error {
	row := toPaperSQL(rec)
	query := `
		INSERT INTO papers (id, title, authors, abstract, published, updated, source_path, main_file, cached_at)
		VALUES (:id, :title, :authors, :abstract, :published, :updated, :source_path, :main_file, :cached_at)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			abstract = excluded.abstract,
			published = excluded.published,
			updated = excluded.updated,
			source_path = excluded.source_path,
			main_file = excluded.main_file,
			cached_at = excluded.cached_at
	`

	err := newRetrier().Do(ctx, func() error {
		if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: err}
		}
		return nil
	}, &criticalError{})
	if err != nil {
		return domain.WrapError(domain.ErrCache, fmt.Sprintf("upsert paper %s", rec.ID), err)
	}
	return nil
}

// Get retrieves the record for id, returns nil if there is none
func (r *PaperRepository) Get(ctx context.Context, id domain.DocumentID) (*domain.CacheRecord, error) {
	var row paperSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM papers WHERE id = ?", id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCache, fmt.Sprintf("get paper %s", id), err)
	}
	return row.toDomain(), nil
}

// IsCached reports whether a record exists and its source tree is present on disk.
// contents of the tree are not checked.
func (r *PaperRepository) IsCached(ctx context.Context, id domain.DocumentID) (bool, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.SourcePath == "" {
		return false, nil
	}
	_, err = os.Stat(rec.SourcePath)
	return err == nil, nil
}

// List returns summaries of all cached papers, most recently cached first.
// limit <= 0 means no limit.
func (r *PaperRepository) List(ctx context.Context, limit int) ([]domain.RecordSummary, error) {
	q := sq.Select("id", "title", "authors", "cached_at").From("papers").OrderBy("cached_at DESC", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCache, "build list query", err)
	}

	var rows []summarySQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.WrapError(domain.ErrCache, "list papers", err)
	}

	res := make([]domain.RecordSummary, len(rows))
	for i, row := range rows {
		res[i] = domain.RecordSummary{
			ID:       domain.DocumentID(row.ID),
			Title:    row.Title,
			Authors:  []string(row.Authors),
			CachedAt: row.CachedAt.UTC(),
		}
	}
	return res, nil
}

// DeleteAll removes every record and every directory under the cache root.
// plain files in the root, including the store itself, are kept.
func (r *PaperRepository) DeleteAll(ctx context.Context) error {
	err := newRetrier().Do(ctx, func() error {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM papers"); err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: err}
		}
		return nil
	}, &criticalError{})
	if err != nil {
		return domain.WrapError(domain.ErrCache, "delete papers", err)
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return domain.WrapError(domain.ErrCache, "read cache root", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.root, e.Name())); err != nil {
			return domain.WrapError(domain.ErrCache, fmt.Sprintf("remove %s", e.Name()), err)
		}
	}
	return nil
}

// Stats returns record count, aggregate text size and disk usage of the cache root
func (r *PaperRepository) Stats(ctx context.Context) (*domain.CacheStats, error) {
	query, args, err := sq.Select("COUNT(*)", "COALESCE(SUM(LENGTH(title) + LENGTH(abstract)), 0)").
		From("papers").ToSql()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCache, "build stats query", err)
	}

	stats := &domain.CacheStats{Root: r.root}
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&stats.Records, &stats.TextSize); err != nil {
		return nil, domain.WrapError(domain.ErrCache, "count papers", err)
	}

	err = filepath.WalkDir(r.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.DiskSize += info.Size()
		return nil
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCache, "walk cache root", err)
	}

	return stats, nil
}

func toPaperSQL(rec *domain.CacheRecord) *paperSQL {
	row := &paperSQL{
		ID:         rec.ID.String(),
		Title:      rec.Title,
		Authors:    authorsSQL(rec.Authors),
		Abstract:   rec.Abstract,
		SourcePath: rec.SourcePath,
		MainFile:   rec.MainFile,
		CachedAt:   rec.CachedAt.UTC(),
	}
	if !rec.Published.IsZero() {
		row.Published = sql.NullTime{Time: rec.Published.UTC(), Valid: true}
	}
	if !rec.Updated.IsZero() {
		row.Updated = sql.NullTime{Time: rec.Updated.UTC(), Valid: true}
	}
	return row
}

func (p *paperSQL) toDomain() *domain.CacheRecord {
	rec := &domain.CacheRecord{
		ID:         domain.DocumentID(p.ID),
		Title:      p.Title,
		Authors:    []string(p.Authors),
		Abstract:   p.Abstract,
		SourcePath: p.SourcePath,
		MainFile:   p.MainFile,
		CachedAt:   p.CachedAt.UTC(),
	}
	if p.Published.Valid {
		rec.Published = p.Published.Time.UTC()
	}
	if p.Updated.Valid {
		rec.Updated = p.Updated.Time.UTC()
	}
	return rec
}
