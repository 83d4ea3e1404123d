package pcs

import (
	"errors"
	"fmt"

	"github.com/EmileSonneveld/itinero-transit/internal/cdb"
	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
	"github.com/EmileSonneveld/itinero-transit/internal/transfer"
)

// ErrConfig marks scan settings that are rejected before any scanning
// starts: inverted time frames, unknown stops, missing profiles.
var ErrConfig = errors.New("invalid scan settings")

// ConnectionFilter decides per connection whether the scanners may use it.
// Cancelled connections are always skipped; a filter adds restrictions on
// top of that.
type ConnectionFilter func(c *models.Connection) bool

// Profile bundles the pluggable parts of a scan: the metric, the comparators
// it is judged under, the transfer generator and the optional pruning
// guesser.
type Profile struct {
	MetricZero        journey.Metric
	ProfileComparator journey.Comparator
	ParetoComparator  journey.Comparator
	TransferGenerator transfer.Generator
	Guesser           Guesser

	// MaxVehicles caps the vehicles taken on one journey. Zero means
	// unlimited.
	MaxVehicles uint32
}

// DefaultProfile is the canonical transfer-counting profile over the given
// transfer generator.
func DefaultProfile(gen transfer.Generator) *Profile {
	return &Profile{
		MetricZero:        journey.NewTransferMetric(),
		ProfileComparator: journey.ProfileComparator{},
		ParetoComparator:  journey.ParetoComparator{},
		TransferGenerator: gen,
		MaxVehicles:       8,
	}
}

// Query is the fluent builder the three journey calculations hang off.
// Configuration errors stick to the builder and surface when a calculation
// is requested.
type Query struct {
	db      *cdb.ConnectionsDb
	stops   *stops.Store
	profile *Profile

	from, to   models.StopID
	start, end uint64

	filter   ConnectionFilter
	deadline func() bool

	err error
}

// NewQuery starts a query against a database snapshot and the stops known
// to it. The database must not receive writes while the query runs; pass a
// Clone() when a writer may be active.
func NewQuery(db *cdb.ConnectionsDb, stopStore *stops.Store) *Query {
	return &Query{db: db, stops: stopStore}
}

func (q *Query) SelectProfile(p *Profile) *Query {
	if q.err != nil {
		return q
	}
	if p == nil || p.MetricZero == nil || p.ProfileComparator == nil || p.ParetoComparator == nil || p.TransferGenerator == nil {
		q.err = fmt.Errorf("%w: incomplete profile", ErrConfig)
		return q
	}
	q.profile = p
	return q
}

func (q *Query) SelectStops(from, to models.StopID) *Query {
	if q.err != nil {
		return q
	}
	if _, ok := q.stops.Get(from); !ok {
		q.err = fmt.Errorf("%w: unknown departure stop %s", ErrConfig, from)
		return q
	}
	if _, ok := q.stops.Get(to); !ok {
		q.err = fmt.Errorf("%w: unknown arrival stop %s", ErrConfig, to)
		return q
	}
	q.from, q.to = from, to
	return q
}

// SelectStopsByGlobalID resolves the upstream feed identifiers of both
// stops before selecting them.
func (q *Query) SelectStopsByGlobalID(from, to string) *Query {
	if q.err != nil {
		return q
	}
	fromStop, ok := q.stops.FindByGlobalID(from)
	if !ok {
		q.err = fmt.Errorf("%w: unknown departure stop %q", ErrConfig, from)
		return q
	}
	toStop, ok := q.stops.FindByGlobalID(to)
	if !ok {
		q.err = fmt.Errorf("%w: unknown arrival stop %q", ErrConfig, to)
		return q
	}
	q.from, q.to = fromStop.ID, toStop.ID
	return q
}

func (q *Query) SelectTimeFrame(start, end uint64) *Query {
	if q.err != nil {
		return q
	}
	if end <= start {
		q.err = fmt.Errorf("%w: time frame ends (%d) before it starts (%d)", ErrConfig, end, start)
		return q
	}
	q.start, q.end = start, end
	return q
}

// WithConnectionFilter restricts the scan to connections the filter
// accepts.
func (q *Query) WithConnectionFilter(f ConnectionFilter) *Query {
	q.filter = f
	return q
}

// WithDeadline installs a predicate checked once per enumerator advance. As
// soon as it reports true the scan stops and returns what it has, flagged
// as truncated.
func (q *Query) WithDeadline(d func() bool) *Query {
	q.deadline = d
	return q
}

func (q *Query) validate() error {
	if q.err != nil {
		return q.err
	}
	if q.profile == nil {
		return fmt.Errorf("%w: no profile selected", ErrConfig)
	}
	if q.from == (models.StopID{}) && q.to == (models.StopID{}) {
		return fmt.Errorf("%w: no stops selected", ErrConfig)
	}
	if q.end == 0 {
		return fmt.Errorf("%w: no time frame selected", ErrConfig)
	}
	return nil
}

// usable applies the always-on mode-bit policy plus the custom filter.
// Board/alight restrictions are enforced where boarding and alighting
// actually happen, not here.
func (q *Query) usable(c *models.Connection) bool {
	if c.IsCancelled() {
		return false
	}
	return q.filter == nil || q.filter(c)
}
