package skein

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/weftworks/skein/internal/runtime"
	"github.com/weftworks/skein/pkg/cue"
	"github.com/weftworks/skein/pkg/deck"
	"github.com/weftworks/skein/pkg/member"
	"github.com/weftworks/skein/pkg/story"
)

// Story is the high-level entry point for the Skein library. It wraps
// the internal playback engine and provides a simplified API for
// hosts: navigation, link resolution, output inspection and cue
// wiring.
type Story struct {
	player     *runtime.Player
	deck       *deck.Deck
	logger     *slog.Logger
	targets    []*cue.Target
	playerOpts []runtime.Option
	validate   bool

	// Name labels the story in logs. Optional.
	Name string
}

// Option defines a functional option for configuring a Story.
type Option func(*Story)

// WithName sets the label used to enrich log records.
func WithName(name string) Option {
	return func(s *Story) {
		s.Name = name
	}
}

// WithLogger sets a custom structured logger for the story.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Story) {
		s.logger = logger
	}
}

// WithObservers registers observers for playback events. May be given
// repeatedly.
func WithObservers(obs story.Observers) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithObservers(obs))
	}
}

// WithCueTarget registers a cue target before playback starts. May be
// given repeatedly.
func WithCueTarget(t *cue.Target) Option {
	return func(s *Story) {
		s.targets = append(s.targets, t)
	}
}

// WithRegistry injects a custom cue registry, bypassing the default
// one.
func WithRegistry(r *cue.Registry) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithRegistry(r))
	}
}

// WithScheduler sets the background facility async cue results are
// handed to. Defaults to plain goroutines.
func WithScheduler(sched cue.Scheduler) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithScheduler(sched))
	}
}

// WithMembers injects a custom member-access table.
func WithMembers(t *member.Table) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithMembers(t))
	}
}

// WithStart overrides the deck's start passage.
func WithStart(name string) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithStart(name))
	}
}

// WithStyleTags enables style boundary tags in the output buffer.
func WithStyleTags(enabled bool) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithStyleTags(enabled))
	}
}

// WithVars seeds the story variables.
func WithVars(vars map[string]any) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithVars(vars))
	}
}

// WithNow injects the clock used for passage timing.
func WithNow(now func() time.Time) Option {
	return func(s *Story) {
		s.playerOpts = append(s.playerOpts, runtime.WithNow(now))
	}
}

// WithValidation controls whether New lints the deck before playing
// it. Enabled by default; hosts whose passage bodies have side effects
// should disable it, since validation dry-runs every body once.
func WithValidation(enabled bool) Option {
	return func(s *Story) {
		s.validate = enabled
	}
}

// New initializes a Story for the deck.
//
// Unless disabled via WithValidation(false), the deck is linted first:
// dangling references fail construction, unreachable passages are
// logged as warnings.
func New(d *deck.Deck, opts ...Option) (*Story, error) {
	if d == nil {
		return nil, fmt.Errorf("skein: a deck is required")
	}

	s := &Story{deck: d, validate: true}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.Name != "" {
		s.logger = s.logger.With("story", s.Name)
	}

	if s.validate {
		if err := checkDeck(s.logger, d); err != nil {
			return nil, err
		}
	}

	playerOpts := append([]runtime.Option{runtime.WithLogger(s.logger)}, s.playerOpts...)
	s.player = runtime.NewPlayer(d, playerOpts...)

	for _, t := range s.targets {
		s.player.Cues().AddTarget(t)
	}
	if len(s.targets) > 0 {
		s.player.Cues().InvalidateCache()
	}
	return s, nil
}

func checkDeck(logger *slog.Logger, d *deck.Deck) error {
	var hard []string
	for _, p := range deck.Validate(d) {
		if p.Warning {
			logger.Warn("deck check", "detail", p.String())
			continue
		}
		hard = append(hard, p.String())
	}
	if len(hard) > 0 {
		return fmt.Errorf("skein: deck is not playable: %s", strings.Join(hard, "; "))
	}
	return nil
}

// Begin navigates to the start passage.
func (s *Story) Begin() error { return s.player.Begin() }

// GoTo leaves the current passage and enters the named one. Legal only
// while idle.
func (s *Story) GoTo(name string) error { return s.player.GoTo(name) }

// Pause suspends playback until Resume.
func (s *Story) Pause() error { return s.player.Pause() }

// Resume continues playback exactly where it paused.
func (s *Story) Resume() error { return s.player.Resume() }

// Reset returns the story to its initial conditions. Legal only while
// idle.
func (s *Story) Reset() error { return s.player.Reset() }

// Update dispatches the cached update cues. Hosts with a tick loop
// call it; the engine never schedules it by itself.
func (s *Story) Update() { s.player.Update() }

// State returns the current playback state.
func (s *Story) State() story.State { return s.player.State() }

// CurrentPassage returns the current passage name, empty when none.
func (s *Story) CurrentPassage() string { return s.player.CurrentPassage() }

// Tags returns the current passage's tags.
func (s *Story) Tags() []string { return s.player.Tags() }

// History returns the names of every passage entered, in order.
func (s *Story) History() []string { return s.player.History() }

// PassageElapsed returns how long the current passage has been
// current.
func (s *Story) PassageElapsed() time.Duration { return s.player.PassageElapsed() }

// Output returns a snapshot of the output buffer.
func (s *Story) Output() []story.Output { return s.player.Output() }

// OutputAt returns the buffered item at index i.
func (s *Story) OutputAt(i int) (story.Output, bool) { return s.player.OutputAt(i) }

// OutputLen returns the number of buffered items.
func (s *Story) OutputLen() int { return s.player.OutputLen() }

// RemoveOutput removes a buffered item by identity.
func (s *Story) RemoveOutput(o story.Output) { s.player.RemoveOutput(o) }

// BeginInsert redirects subsequent output to the given buffer index
// until EndInsert.
func (s *Story) BeginInsert(index int) { s.player.BeginInsert(index) }

// EndInsert pops the innermost insertion redirect.
func (s *Story) EndInsert() { s.player.EndInsert() }

// ApplyStyle opens a style scope from the host side. Close the
// returned scope to end it.
func (s *Story) ApplyStyle(st story.Style) story.Scope { return s.player.ApplyStyle(st) }

// CurrentStyle returns the style that would be stamped on the next
// emitted item.
func (s *Story) CurrentStyle() story.Style { return s.player.CurrentStyle() }

// Links returns the links currently on offer, in buffer order.
func (s *Story) Links() []*story.Link { return s.player.Links() }

// LinkAt returns the i-th link in buffer order.
func (s *Story) LinkAt(i int) (*story.Link, error) { return s.player.LinkAt(i) }

// FindLink returns the first link matching the name
// case-insensitively, or nil.
func (s *Story) FindLink(name string) *story.Link { return s.player.FindLink(name) }

// GetLink is FindLink that fails when the link does not exist.
func (s *Story) GetLink(name string) (*story.Link, error) { return s.player.GetLink(name) }

// HasLink reports whether a link with the name is on offer.
func (s *Story) HasLink(name string) bool { return s.player.HasLink(name) }

// FollowLink runs the link's action and navigates to its target.
func (s *Story) FollowLink(l *story.Link) error { return s.player.FollowLink(l) }

// FollowLinkNamed follows the first link matching the name.
func (s *Story) FollowLinkNamed(name string) error { return s.player.FollowLinkNamed(name) }

// FollowLinkAt follows the i-th link in buffer order.
func (s *Story) FollowLinkAt(i int) error { return s.player.FollowLinkAt(i) }

// LinksFollowed returns how many links have completed navigation.
func (s *Story) LinksFollowed() int { return s.player.LinksFollowed() }

// Var reads a story variable.
func (s *Story) Var(name string) any { return s.player.Var(name) }

// SetVar writes a story variable.
func (s *Story) SetVar(name string, value any) { s.player.SetVar(name, value) }

// Vars returns a copy of the story variables.
func (s *Story) Vars() map[string]any { return s.player.Vars() }

// Observe registers observers for subsequent playback events.
func (s *Story) Observe(obs story.Observers) { s.player.Observe(obs) }

// Cues exposes the cue registry for target management.
func (s *Story) Cues() *cue.Registry { return s.player.Cues() }

// Teller returns the engine view handed to passage bodies, for hosts
// that drive narrative code outside a thread.
func (s *Story) Teller() story.Teller { return s.player.Teller() }

// Deck returns the deck the story plays.
func (s *Story) Deck() *deck.Deck { return s.deck }
