package tasks

import (
	"github.com/jonboulle/clockwork"
	"github.com/lysyi3m/cap-comb/app/alerting"
	"github.com/lysyi3m/cap-comb/app/database"
	"github.com/lysyi3m/cap-comb/app/observability"
	"github.com/lysyi3m/cap-comb/app/publish"
	"github.com/lysyi3m/cap-comb/app/snapshot"
	"github.com/lysyi3m/cap-comb/app/source"
)

// Deps are the collaborators shared by the scheduler and its tasks.
type Deps struct {
	ConfigCache *source.ConfigCache
	SourceRepo  database.SourceRepository
	Client      *alerting.Client
	Filterer    *source.Filterer
	Snapshots   *snapshot.Store
	Publisher   publish.Publisher
	Metrics     *observability.Metrics
	Clock       clockwork.Clock

	UserAgent        string
	FetchConcurrency int
}

func (d *Deps) applyDefaults() {
	if d.Client == nil {
		d.Client = alerting.NewClient(nil, nil)
	}
	if d.Filterer == nil {
		d.Filterer = source.NewFilterer()
	}
	if d.Snapshots == nil {
		d.Snapshots = snapshot.NewStore()
	}
	if d.Publisher == nil {
		d.Publisher = publish.NoopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetricsForTesting()
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
}
