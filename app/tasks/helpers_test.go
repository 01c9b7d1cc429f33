package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lysyi3m/cap-comb/app/alerting"
	"github.com/lysyi3m/cap-comb/app/database"
	"github.com/lysyi3m/cap-comb/app/observability"
	"github.com/lysyi3m/cap-comb/app/snapshot"
	"github.com/lysyi3m/cap-comb/app/source"
	"github.com/stretchr/testify/require"
)

var _ database.SourceRepository = (*fakeSourceRepo)(nil)

var testNow = time.Date(2019, 11, 25, 6, 0, 0, 0, time.UTC)

type fakeSourceRepo struct {
	mu      sync.Mutex
	sources map[string]*database.Source
	getErr  error
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{sources: make(map[string]*database.Source)}
}

func (r *fakeSourceRepo) GetSource(_ context.Context, name string) (*database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	src, ok := r.sources[name]
	if !ok {
		return nil, nil
	}
	copied := *src
	return &copied, nil
}

func (r *fakeSourceRepo) ListSources(context.Context) ([]database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]database.Source, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, *src)
	}
	return out, nil
}

func (r *fakeSourceRepo) GetSourceCount(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources), nil
}

func (r *fakeSourceRepo) UpsertSource(_ context.Context, name, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[name]; ok {
		src.URL = url
		return nil
	}
	r.sources[name] = &database.Source{Name: name, URL: url}
	return nil
}

func (r *fakeSourceRepo) RecordSuccess(_ context.Context, name string, result database.FetchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[name]
	if !ok {
		return fmt.Errorf("source %s not found", name)
	}
	src.Title = result.Title
	src.AlertCount = result.AlertCount
	src.LastError = ""
	src.LastFetchedAt = &result.FetchedAt
	src.LastSuccessAt = &result.FetchedAt
	src.NextFetchAt = &result.NextFetchAt
	return nil
}

func (r *fakeSourceRepo) RecordFailure(_ context.Context, name string, fetchedAt, nextFetchAt time.Time, fetchErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[name]
	if !ok {
		return fmt.Errorf("source %s not found", name)
	}
	src.LastError = fetchErr.Error()
	src.LastFetchedAt = &fetchedAt
	src.NextFetchAt = &nextFetchAt
	return nil
}

func (r *fakeSourceRepo) setNextFetch(name string, next *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = &database.Source{Name: name, NextFetchAt: next}
}

type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]*alerting.Alert
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, source string, alerts []*alerting.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = make(map[string][]*alerting.Alert)
	}
	p.published[source] = append(p.published[source], alerts...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count(source string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published[source])
}

type testAlert struct {
	id       string
	severity string
}

// newSourceServer serves a feed at /feed.xml whose items link to one alert
// document each. Alerts listed in failing answer 500.
func newSourceServer(t *testing.T, alerts []testAlert, failing ...string) *httptest.Server {
	t.Helper()

	documents := make(map[string]string, len(alerts))
	var items strings.Builder
	for _, a := range alerts {
		fmt.Fprintf(&items, "<item><title>%s</title><link>alerts/%s.xml</link></item>", a.id, a.id)
		documents["/alerts/"+a.id+".xml"] = fmt.Sprintf(
			`<alert><identifier>%s</identifier><sender>test@example.com</sender><status>Actual</status><msgType>Alert</msgType>`+
				`<info><event>Flood</event><severity>%s</severity><area><areaDesc>Delta</areaDesc><circle>-6.8,39.28 5</circle></area></info></alert>`,
			a.id, a.severity)
	}
	for _, id := range failing {
		delete(documents, "/alerts/"+id+".xml")
	}
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Alerts</title><link>https://example.com/</link><language>en</language>` +
		items.String() + `</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.xml" {
			_, _ = io.WriteString(w, feed)
			return
		}
		doc, ok := documents[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSourceConfig(name, url string) *source.Config {
	return &source.Config{
		Name: name,
		URL:  url,
		Settings: source.ConfigSettings{
			Enabled:         true,
			RefreshInterval: 300,
			MaxAlerts:       100,
			Timeout:         5,
		},
	}
}

func writeSourceConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0o644))
}

func testDeps(t *testing.T, configCache *source.ConfigCache) (*Deps, *fakeSourceRepo, *fakePublisher, *clockwork.FakeClock) {
	t.Helper()

	if configCache == nil {
		configCache = source.NewConfigCache(t.TempDir())
	}
	repo := newFakeSourceRepo()
	publisher := &fakePublisher{}
	clock := clockwork.NewFakeClockAt(testNow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps := &Deps{
		ConfigCache:      configCache,
		SourceRepo:       repo,
		Client:           alerting.NewClient(&http.Client{Timeout: 5 * time.Second}, logger),
		Filterer:         source.NewFilterer(),
		Snapshots:        snapshot.NewStore(),
		Publisher:        publisher,
		Metrics:          observability.NewMetricsForTesting(),
		Clock:            clock,
		FetchConcurrency: 4,
	}
	return deps, repo, publisher, clock
}
