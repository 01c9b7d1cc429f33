package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var _ SourceRepository = (*SQLiteSourceRepository)(nil)

var sourceColumns = []string{
	"name", "url", "title", "link", "language", "alert_count", "last_error",
	"last_fetched_at", "last_success_at", "next_fetch_at", "created_at", "updated_at",
}

// SQLiteSourceRepository stores source poll status in SQLite.
type SQLiteSourceRepository struct {
	db      *DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

func NewSourceRepository(db *DB) *SQLiteSourceRepository {
	return &SQLiteSourceRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now:     time.Now,
	}
}

func (r *SQLiteSourceRepository) GetSource(ctx context.Context, name string) (*Source, error) {
	query, args, err := r.builder.
		Select(sourceColumns...).
		From("sources").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build source query: %w", err)
	}

	source, err := scanSource(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

func (r *SQLiteSourceRepository) ListSources(ctx context.Context) ([]Source, error) {
	query, args, err := r.builder.
		Select(sourceColumns...).
		From("sources").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sources query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SQLiteSourceRepository) GetSourceCount(ctx context.Context) (int, error) {
	query, args, err := r.builder.Select("COUNT(*)").From("sources").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func (r *SQLiteSourceRepository) UpsertSource(ctx context.Context, name, url string) error {
	now := r.now().UnixMilli()

	query, args, err := r.builder.
		Insert("sources").
		Columns("name", "url", "created_at", "updated_at").
		Values(name, url, now, now).
		Suffix("ON CONFLICT(name) DO UPDATE SET url = excluded.url, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

func (r *SQLiteSourceRepository) RecordSuccess(ctx context.Context, name string, result FetchResult) error {
	return r.update(ctx, name, map[string]any{
		"title":           result.Title,
		"link":            result.Link,
		"language":        result.Language,
		"alert_count":     result.AlertCount,
		"last_error":      "",
		"last_fetched_at": result.FetchedAt.UnixMilli(),
		"last_success_at": result.FetchedAt.UnixMilli(),
		"next_fetch_at":   result.NextFetchAt.UnixMilli(),
		"updated_at":      r.now().UnixMilli(),
	})
}

func (r *SQLiteSourceRepository) RecordFailure(ctx context.Context, name string, fetchedAt, nextFetchAt time.Time, fetchErr error) error {
	message := "unknown error"
	if fetchErr != nil {
		message = fetchErr.Error()
	}

	return r.update(ctx, name, map[string]any{
		"last_error":      message,
		"last_fetched_at": fetchedAt.UnixMilli(),
		"next_fetch_at":   nextFetchAt.UnixMilli(),
		"updated_at":      r.now().UnixMilli(),
	})
}

func (r *SQLiteSourceRepository) update(ctx context.Context, name string, values map[string]any) error {
	query, args, err := r.builder.
		Update("sources").
		SetMap(values).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source '%s' not found", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var source Source
	var lastFetchedAt, lastSuccessAt, nextFetchAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&source.Name, &source.URL, &source.Title, &source.Link, &source.Language,
		&source.AlertCount, &source.LastError,
		&lastFetchedAt, &lastSuccessAt, &nextFetchAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	source.LastFetchedAt = fromMillis(lastFetchedAt)
	source.LastSuccessAt = fromMillis(lastSuccessAt)
	source.NextFetchAt = fromMillis(nextFetchAt)
	source.CreatedAt = time.UnixMilli(createdAt)
	source.UpdatedAt = time.UnixMilli(updatedAt)

	return &source, nil
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
