// Package runtime implements passage playback: the state machine, the
// output buffer, style scoping, thread flattening and link handling.
// The public API wraps it from the repository root.
package runtime

import (
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/weftworks/skein/pkg/cue"
	"github.com/weftworks/skein/pkg/deck"
	"github.com/weftworks/skein/pkg/member"
	"github.com/weftworks/skein/pkg/story"
)

// Player drives one story. It is single-threaded by contract: hosts
// serialize all calls, and cue handlers run synchronously on the
// calling goroutine (only scheduled follow-ups leave it).
type Player struct {
	deck      *deck.Deck
	logger    *slog.Logger
	cues      *cue.Registry
	sched     cue.Scheduler
	members   *member.Table
	now       func() time.Time
	styleTags bool
	start     string

	state     story.State
	observers []story.Observers
	buf       *buffer
	scopes    *scopeStack
	teller    story.Teller
	vars      map[string]any

	current   *story.Passage
	tags      []string
	history   []string
	enteredAt time.Time
	linksDone int

	next       func() (story.Output, bool)
	stop       func()
	pending    string // passage waiting to enter while paused mid-transition
	hasPending bool
	activeLink *story.Link
	threadErr  error

	updateCues []cue.Binding
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// WithRegistry sets the cue registry.
func WithRegistry(r *cue.Registry) Option {
	return func(p *Player) {
		p.cues = r
	}
}

// WithScheduler sets the scheduler the default registry hands async
// cue results to. Ignored when WithRegistry supplies a registry.
func WithScheduler(s cue.Scheduler) Option {
	return func(p *Player) {
		p.sched = s
	}
}

// WithMembers sets the member-access table.
func WithMembers(t *member.Table) Option {
	return func(p *Player) {
		p.members = t
	}
}

// WithNow injects the clock used for passage timing.
func WithNow(now func() time.Time) Option {
	return func(p *Player) {
		p.now = now
	}
}

// WithStyleTags enables style boundary tags in the output buffer.
func WithStyleTags(enabled bool) Option {
	return func(p *Player) {
		p.styleTags = enabled
	}
}

// WithStart overrides the deck's start passage.
func WithStart(name string) Option {
	return func(p *Player) {
		p.start = name
	}
}

// WithObservers registers observers. May be given repeatedly.
func WithObservers(obs story.Observers) Option {
	return func(p *Player) {
		p.observers = append(p.observers, obs)
	}
}

// WithVars seeds the story variables.
func WithVars(vars map[string]any) Option {
	return func(p *Player) {
		maps.Copy(p.vars, vars)
	}
}

// NewPlayer creates an idle player for the deck.
func NewPlayer(d *deck.Deck, opts ...Option) *Player {
	p := &Player{
		deck:  d,
		now:   time.Now,
		state: story.StateIdle,
		vars:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if p.cues == nil {
		ropts := []cue.RegistryOption{cue.WithLogger(p.logger)}
		if p.sched != nil {
			ropts = append(ropts, cue.WithScheduler(p.sched))
		}
		p.cues = cue.NewRegistry(ropts...)
	}
	if p.members == nil {
		p.members = member.Defaults()
	}
	p.buf = newBuffer(p.notifyRemoved)
	p.scopes = newScopeStack(p.styleTags, func(o story.Output) { p.emit(o, false) })
	p.teller = teller{p: p}
	return p
}

// State returns the current playback state.
func (p *Player) State() story.State { return p.state }

func (p *Player) setState(s story.State) {
	if p.state == s {
		return
	}
	p.state = s
	p.logger.Debug("state changed", "state", s)
	for _, ob := range p.observers {
		if ob.StateChanged != nil {
			ob.StateChanged(s)
		}
	}
}

// Begin navigates to the start passage.
func (p *Player) Begin() error {
	start := p.start
	if start == "" {
		start = p.deck.Start()
	}
	if start == "" {
		return story.ErrNoStart
	}
	return p.GoTo(start)
}

// GoTo leaves the current passage (running its exit cues) and enters
// the named one. Legal only while idle.
func (p *Player) GoTo(name string) error {
	if p.state != story.StateIdle {
		return &story.StateError{Op: "GoTo", State: p.state}
	}
	psg, ok := p.deck.Passage(name)
	if !ok {
		return &story.NotFoundError{Kind: "passage", Name: name}
	}

	if p.current != nil {
		p.pending, p.hasPending = name, true
		p.setState(story.StateExiting)
		p.cues.Invoke(p.cues.FindScoped(p.buf.markers(true), cue.Exit, 0))
		if p.state == story.StatePaused {
			// A cue paused the transition; Resume picks it up.
			return nil
		}
		p.pending, p.hasPending = "", false
	}

	return p.enter(psg)
}

// enter makes the passage current and plays its thread.
func (p *Player) enter(psg *story.Passage) error {
	p.buf.reset()
	p.scopes.reset()
	p.tags = slices.Clone(psg.Tags)
	p.history = append(p.history, psg.Name)
	p.current = psg
	p.enteredAt = p.now()
	p.threadErr = nil

	p.logger.Info("passage entered", "passage", psg.Name)
	for _, ob := range p.observers {
		if ob.PassageEntered != nil {
			ob.PassageEntered(psg)
		}
	}

	p.emit(story.NewPassageMarker(psg), false)
	p.refreshUpdateCues()

	p.next, p.stop = iter.Pull(p.flatten(psg.Play(p.teller), nil))

	p.setState(story.StatePlaying)
	p.cues.Invoke(p.cues.FindScoped(p.buf.markers(true), cue.Enter, 1))
	if p.state == story.StatePaused {
		return nil
	}
	_, err := p.playout()
	return err
}

// pull drains the current cursor into the buffer until it ends, an
// abort item arrives, or something pauses the story.
func (p *Player) pull() (aborted *story.Abort, paused bool) {
	for {
		o, ok := p.next()
		if !ok {
			return nil, false
		}
		if ab, isAbort := o.(*story.Abort); isAbort {
			// Control flow only; never buffered.
			return ab, false
		}
		p.emit(o, true)
		if p.state == story.StatePaused {
			return nil, true
		}
	}
}

// playout runs the pull loop and, unless paused, finalizes the
// thread: dispose the cursor, return to idle, and fire the completion
// cues (Aborted, ActionDone or Done). It reports whether the thread
// was aborted.
func (p *Player) playout() (aborted bool, err error) {
	ab, paused := p.pull()
	if paused {
		return false, nil
	}

	p.stopThread()
	link := p.activeLink
	p.activeLink = nil
	p.setState(story.StateIdle)

	if err := p.threadErr; err != nil {
		p.threadErr = nil
		p.logger.Error("playback failed", "err", err)
		return false, err
	}

	if ab != nil {
		p.logger.Debug("thread aborted", "target", ab.Target)
		p.cues.Invoke(p.cues.FindScoped(p.buf.markers(false), cue.Aborted, 0))
		if ab.Target != "" {
			return true, p.GoTo(ab.Target)
		}
		return true, nil
	}

	if link != nil {
		p.cues.Invoke(p.cues.FindScoped(p.buf.markers(false), cue.ActionDone, 0), link)
	} else {
		p.cues.Invoke(p.cues.FindScoped(p.buf.markers(false), cue.Done, 0))
	}
	return false, nil
}

func (p *Player) stopThread() {
	if p.stop != nil {
		p.stop()
	}
	p.next, p.stop = nil, nil
}

// emit stamps the item with the composed style, buffers it, and
// dispatches it to observers and Output cues. Passage markers
// arriving through the thread open their cue scope first.
func (p *Player) emit(o story.Output, fromThread bool) {
	o.Attrs().Style = p.scopes.current()
	p.buf.add(o)

	if fromThread {
		if m, ok := o.(*story.PassageMarker); ok {
			p.enterEmbedded(m)
		}
	}

	for _, ob := range p.observers {
		if ob.OutputAdded != nil {
			ob.OutputAdded(o)
		}
	}
	p.cues.Invoke(p.cues.FindScoped(p.buf.markers(false), cue.Output, 0), o)
}

// enterEmbedded fires the Enter cues for a passage reached through
// flattening and refreshes the update-cue cache to include it.
func (p *Player) enterEmbedded(m *story.PassageMarker) {
	p.logger.Debug("embedded passage entered", "passage", m.Passage.Name)
	p.cues.Invoke(p.cues.FindScoped(p.buf.markers(true), cue.Enter, 1))
	p.refreshUpdateCues()
}

// refreshUpdateCues recomputes the cached Update cues for everything
// currently on stage. Update handlers must be synchronous; offenders
// are logged and excluded for the lifetime of the cache.
func (p *Player) refreshUpdateCues() {
	p.updateCues = p.cues.SyncOnly(p.cues.FindScoped(p.buf.markers(false), cue.Update, 0))
}

// Pause suspends playback. Legal while a thread is playing or while a
// passage transition is running its exit cues.
func (p *Player) Pause() error {
	if p.state != story.StatePlaying && p.state != story.StateExiting {
		return &story.StateError{Op: "Pause", State: p.state}
	}
	p.setState(story.StatePaused)
	return nil
}

// Resume continues exactly where playback stopped: mid-thread at the
// retained cursor, or mid-transition by entering the pending passage.
func (p *Player) Resume() error {
	if p.state != story.StatePaused {
		return &story.StateError{Op: "Resume", State: p.state}
	}
	if p.hasPending {
		name := p.pending
		p.pending, p.hasPending = "", false
		psg, ok := p.deck.Passage(name)
		if !ok {
			// The deck is immutable, so the pending passage was
			// validated when GoTo accepted it.
			p.setState(story.StateIdle)
			return &story.NotFoundError{Kind: "passage", Name: name}
		}
		return p.enter(psg)
	}
	p.setState(story.StatePlaying)
	if p.next == nil {
		// Paused before any thread existed; nothing to pull.
		p.setState(story.StateIdle)
		return nil
	}
	_, err := p.playout()
	return err
}

// Reset returns the player to its initial conditions. Legal only
// while idle; a paused story must be resumed (or played out) first.
func (p *Player) Reset() error {
	if p.state != story.StateIdle {
		return &story.StateError{Op: "Reset", State: p.state}
	}
	p.buf.reset()
	p.scopes.reset()
	p.vars = make(map[string]any)
	p.current = nil
	p.tags = nil
	p.history = nil
	p.enteredAt = time.Time{}
	p.linksDone = 0
	p.updateCues = nil
	p.pending, p.hasPending = "", false
	p.activeLink = nil
	p.logger.Info("story reset")
	return nil
}

// Update dispatches the cached Update cues. Hosts with a frame or
// tick loop call it; the engine never schedules it by itself.
func (p *Player) Update() {
	if p.current == nil {
		return
	}
	p.cues.Invoke(p.updateCues)
}

// Links returns the links currently in the output buffer, in buffer
// order.
func (p *Player) Links() []*story.Link {
	var links []*story.Link
	for _, o := range p.buf.items {
		if l, ok := o.(*story.Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// LinkAt returns the i-th link in buffer order.
func (p *Player) LinkAt(i int) (*story.Link, error) {
	links := p.Links()
	if i < 0 || i >= len(links) {
		return nil, &story.NotFoundError{Kind: "link", Name: strconv.Itoa(i)}
	}
	return links[i], nil
}

// FindLink returns the first link whose name matches
// case-insensitively, or nil.
func (p *Player) FindLink(name string) *story.Link {
	for _, l := range p.Links() {
		if strings.EqualFold(l.Name, name) {
			return l
		}
	}
	return nil
}

// GetLink is FindLink that fails when the link does not exist.
func (p *Player) GetLink(name string) (*story.Link, error) {
	if l := p.FindLink(name); l != nil {
		return l, nil
	}
	return nil, &story.NotFoundError{Kind: "link", Name: name}
}

// HasLink reports whether a link with the name is in the buffer.
func (p *Player) HasLink(name string) bool {
	return p.FindLink(name) != nil
}

// FollowLink runs the link's action (if any) and navigates to its
// target. Navigation only happens when the action's thread, if it
// produced one, ran to natural completion within this call: a paused
// action defers it, an aborted action cancels it. Legal only while
// idle.
func (p *Player) FollowLink(l *story.Link) error {
	if p.state != story.StateIdle {
		return &story.StateError{Op: "FollowLink", State: p.state}
	}
	if l == nil || (l.Target == "" && l.Action == nil) {
		return story.ErrDeadLink
	}
	if !p.buf.contains(l) {
		return &story.NotFoundError{Kind: "link", Name: l.Name}
	}

	if l.Action != nil {
		p.logger.Debug("link action", "link", l.Name)
		p.activeLink = l
		t := l.Action(p.teller)
		if t != nil {
			p.threadErr = nil
			p.next, p.stop = iter.Pull(p.flatten(t, nil))
			p.setState(story.StatePlaying)
			aborted, err := p.playout()
			if err != nil {
				return err
			}
			if p.state == story.StatePaused || aborted {
				return nil
			}
		} else {
			p.activeLink = nil
		}
	}

	if l.Target == "" {
		return nil
	}
	p.linksDone++
	p.logger.Debug("link followed", "link", l.Name, "target", l.Target)
	return p.GoTo(l.Target)
}

// FollowLinkNamed follows the first link matching the name.
func (p *Player) FollowLinkNamed(name string) error {
	l, err := p.GetLink(name)
	if err != nil {
		return err
	}
	return p.FollowLink(l)
}

// FollowLinkAt follows the i-th link in buffer order.
func (p *Player) FollowLinkAt(i int) error {
	l, err := p.LinkAt(i)
	if err != nil {
		return err
	}
	return p.FollowLink(l)
}

// LinksFollowed returns how many links have completed navigation.
func (p *Player) LinksFollowed() int { return p.linksDone }

// CurrentPassage returns the current passage name, empty when none.
func (p *Player) CurrentPassage() string {
	if p.current == nil {
		return ""
	}
	return p.current.Name
}

// Tags returns the current passage's tags.
func (p *Player) Tags() []string { return slices.Clone(p.tags) }

// History returns the names of every passage entered, in order.
func (p *Player) History() []string { return slices.Clone(p.history) }

// Output returns a snapshot of the output buffer.
func (p *Player) Output() []story.Output { return p.buf.snapshot() }

// OutputAt returns the buffered item at index i.
func (p *Player) OutputAt(i int) (story.Output, bool) { return p.buf.at(i) }

// OutputLen returns the number of buffered items.
func (p *Player) OutputLen() int { return p.buf.len() }

// RemoveOutput removes a buffered item by identity and notifies the
// removal observers. Removing an item that is not buffered is a
// no-op.
func (p *Player) RemoveOutput(o story.Output) { p.buf.remove(o) }

// BeginInsert redirects subsequent output to the given buffer index.
func (p *Player) BeginInsert(index int) { p.buf.beginInsert(index) }

// EndInsert pops the innermost insertion redirect.
func (p *Player) EndInsert() { p.buf.endInsert() }

// ApplyStyle pushes a style scope from the host side.
func (p *Player) ApplyStyle(s story.Style) story.Scope { return p.scopes.push(s) }

// CurrentStyle returns the style that would be stamped on the next
// emitted item.
func (p *Player) CurrentStyle() story.Style { return p.scopes.current() }

// PassageElapsed returns how long the current passage has been
// current. Zero when no passage is.
func (p *Player) PassageElapsed() time.Duration {
	if p.current == nil {
		return 0
	}
	return p.now().Sub(p.enteredAt)
}

// Var reads a story variable.
func (p *Player) Var(name string) any { return p.vars[name] }

// SetVar writes a story variable.
func (p *Player) SetVar(name string, value any) { p.vars[name] = value }

// Vars returns a copy of the story variables.
func (p *Player) Vars() map[string]any { return maps.Clone(p.vars) }

// Observe registers observers for subsequent events.
func (p *Player) Observe(obs story.Observers) {
	p.observers = append(p.observers, obs)
}

// Cues exposes the cue registry for target management.
func (p *Player) Cues() *cue.Registry { return p.cues }

// Teller returns the engine view handed to passage bodies, for hosts
// that drive narrative code outside a thread.
func (p *Player) Teller() story.Teller { return p.teller }

func (p *Player) notifyRemoved(o story.Output) {
	for _, ob := range p.observers {
		if ob.OutputRemoved != nil {
			ob.OutputRemoved(o)
		}
	}
}
