package database

import (
	"context"
	"time"
)

type SourceRepository interface {
	GetSource(ctx context.Context, name string) (*Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	GetSourceCount(ctx context.Context) (int, error)

	UpsertSource(ctx context.Context, name, url string) error
	RecordSuccess(ctx context.Context, name string, result FetchResult) error
	RecordFailure(ctx context.Context, name string, fetchedAt, nextFetchAt time.Time, fetchErr error) error
}
