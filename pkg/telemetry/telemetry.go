// Package telemetry feeds prometheus metrics from story observers.
// Hosts create a Collector, register it against their registry, and
// hand Collector.Observers to the story; nothing here touches the
// engine beyond what the observer surface exposes.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weftworks/skein/pkg/story"
)

// Collector bundles the playback metrics.
type Collector struct {
	now func() time.Time

	passagesEntered *prometheus.CounterVec
	outputItems     *prometheus.CounterVec
	stateChanges    *prometheus.CounterVec
	passageSeconds  prometheus.Histogram

	lastEntered time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithNow injects the clock used for passage duration observation.
func WithNow(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates the metric set and registers it with reg.
// Registering the same collector twice panics, as prometheus does.
func NewCollector(reg prometheus.Registerer, opts ...Option) *Collector {
	c := &Collector{
		now: time.Now,
		passagesEntered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skein_passages_entered_total",
				Help: "Total number of passage entries, by passage name.",
			},
			[]string{"passage"},
		),
		outputItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skein_output_items_total",
				Help: "Total number of items added to the output buffer, by kind.",
			},
			[]string{"kind"},
		),
		stateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skein_state_changes_total",
				Help: "Total number of playback state transitions, by new state.",
			},
			[]string{"state"},
		),
		passageSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skein_passage_duration_seconds",
				Help:    "Time spent in a passage before the next one was entered.",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
			},
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	reg.MustRegister(c.passagesEntered, c.outputItems, c.stateChanges, c.passageSeconds)
	return c
}

// Observers returns the observer set that feeds the metrics. Register
// it with the story via Observe or WithObservers.
func (c *Collector) Observers() story.Observers {
	return story.Observers{
		PassageEntered: func(p *story.Passage) {
			c.passagesEntered.WithLabelValues(p.Name).Inc()
			now := c.now()
			if !c.lastEntered.IsZero() {
				c.passageSeconds.Observe(now.Sub(c.lastEntered).Seconds())
			}
			c.lastEntered = now
		},
		StateChanged: func(s story.State) {
			c.stateChanges.WithLabelValues(string(s)).Inc()
		},
		OutputAdded: func(o story.Output) {
			c.outputItems.WithLabelValues(itemKind(o)).Inc()
		},
	}
}

// itemKind labels an output item for the by-kind counter.
func itemKind(o story.Output) string {
	switch o.(type) {
	case *story.Text:
		return "text"
	case *story.LineBreak:
		return "line_break"
	case *story.Link:
		return "link"
	case *story.PassageMarker:
		return "passage_marker"
	case *story.StyleTag:
		return "style_tag"
	case *story.EmbedPassage:
		return "embed_passage"
	case *story.EmbedFragment:
		return "embed_fragment"
	default:
		return "other"
	}
}
