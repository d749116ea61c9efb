package feed

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Sink receives every published batch. The payload is a JSON array of
// Vehicle.
type Sink interface {
	Publish(payload []byte) error
}

// PollMetrics receives poller counters. A nil PollMetrics is allowed.
type PollMetrics interface {
	PollResult(result string)
	PollObserve(d time.Duration)
	RefreshIntervalSet(d time.Duration)
	VehiclesPublished(n int)
}

type PollerConfig struct {
	Agency string
	// Hue in (0,1) colors every vehicle of the agency. Values whose
	// fractional part is not positive pick a random hue.
	Hue             float64
	InitialInterval time.Duration
	MinInterval     time.Duration
	// LockRefresh keeps InitialInterval instead of adapting to the feed's
	// observed update rate.
	LockRefresh  bool
	FetchTimeout time.Duration
}

// Poller fetches the source periodically. When any vehicle appeared or moved
// it stamps the changed vehicles and publishes the full vehicle list.
type Poller struct {
	source  Source
	cfg     PollerConfig
	hue     float64
	sinks   []Sink
	metrics PollMetrics
	now     func() time.Time

	mu          sync.Mutex
	vehicles    map[string]Vehicle
	payload     []byte
	interval    time.Duration
	lastChange  time.Time
	lastStampMs int64
}

func NewPoller(source Source, cfg PollerConfig, m PollMetrics, sinks ...Sink) *Poller {
	hue := math.Mod(cfg.Hue, 1)
	if hue <= 0 {
		hue = rand.Float64()
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 20 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Poller{
		source:   source,
		cfg:      cfg,
		hue:      hue,
		sinks:    sinks,
		metrics:  m,
		now:      time.Now,
		vehicles: make(map[string]Vehicle),
		interval: cfg.InitialInterval,
	}
}

func (p *Poller) Hue() float64 { return p.hue }

// Interval is the delay before the next poll.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Last returns the most recently published payload, or nil before the first
// change.
func (p *Poller) Last() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload
}

// Run polls immediately and then after every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				log.Printf("poll error: %v", err)
			}
			t.Reset(p.Interval())
		}
	}
}

// Poll performs one fetch. It reports whether anything changed; on change the
// batch has been handed to every sink.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()
	positions, err := p.source.Fetch(cctx)
	if p.metrics != nil {
		p.metrics.PollObserve(time.Since(start))
	}
	if err != nil {
		p.result("error")
		return false, err
	}
	log.Printf("fetched vehicles: %d", len(positions))

	batch, changed := p.apply(positions)
	if !changed {
		p.result("unchanged")
		return false, nil
	}
	p.result("changed")

	payload, err := json.Marshal(batch)
	if err != nil {
		return true, err
	}
	p.mu.Lock()
	p.payload = payload
	p.mu.Unlock()

	log.Printf("vehicles updated: %d", len(batch))
	if p.metrics != nil {
		p.metrics.VehiclesPublished(len(batch))
	}
	for _, s := range p.sinks {
		if err := s.Publish(payload); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
	return true, nil
}

func (p *Poller) result(r string) {
	if p.metrics != nil {
		p.metrics.PollResult(r)
	}
}

// apply merges positions into the known vehicles. Vehicles that did not
// move keep their previous lastUpdate. Vehicles absent from the feed are
// forgotten.
func (p *Poller) apply(positions []Position) ([]Vehicle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	stamp := now.UnixMilli()
	if stamp <= p.lastStampMs {
		stamp = p.lastStampMs + 1
	}

	changed := false
	current := make(map[string]Vehicle, len(positions))
	for _, pos := range positions {
		v := Vehicle{
			UID:    p.uid(pos.ID),
			ID:     pos.ID,
			Lat:    pos.Lat,
			Lon:    pos.Lon,
			Agency: p.cfg.Agency,
			Hue:    p.hue,
		}
		prev, ok := p.vehicles[v.UID]
		if ok && prev.Lat == v.Lat && prev.Lon == v.Lon {
			v.LastUpdate = prev.LastUpdate
		} else {
			v.LastUpdate = stamp
			changed = true
		}
		current[v.UID] = v
	}
	p.vehicles = current

	if changed {
		p.lastStampMs = stamp
		p.adaptInterval(now)
	}

	out := make([]Vehicle, 0, len(current))
	for _, v := range current {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, changed
}

// adaptInterval sets the next interval to half the time between the last two
// changes, never below MinInterval. Called with mu held.
func (p *Poller) adaptInterval(now time.Time) {
	if !p.cfg.LockRefresh && !p.lastChange.IsZero() {
		next := (now.Sub(p.lastChange) / 2).Truncate(time.Second)
		if next < p.cfg.MinInterval {
			next = p.cfg.MinInterval
		}
		p.interval = next
		log.Printf("refresh interval: %s", next)
	}
	p.lastChange = now
	if p.metrics != nil {
		p.metrics.RefreshIntervalSet(p.interval)
	}
}

func (p *Poller) uid(id string) string {
	if p.cfg.Agency == "" {
		return id
	}
	return p.cfg.Agency + ":" + id
}
