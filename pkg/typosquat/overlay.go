package typosquat

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/observability"
	"github.com/nodemedic/nodemedic/pkg/selection"
)

// State is the visible suggestion list.
type State struct {
	// NodeID is the node the list belongs to; empty when nothing is selected.
	NodeID      string
	Suggestions []Suggestion
	// Pending is set while the lookup for NodeID is outstanding.
	Pending bool
	// Failed is set when the lookup for NodeID failed.
	Failed bool
}

func (s State) clone() State {
	s.Suggestions = slices.Clone(s.Suggestions)
	return s
}

// Result is the outcome of a single lookup.
type Result struct {
	Token       string
	Suggestions []Suggestion
	Err         error
}

// Dispatcher schedules a lookup. It must eventually hand the lookup's result
// to [Overlay.Deliver], typically on another goroutine.
type Dispatcher func(ctx context.Context, l *Lookup)

// Options configures an [Overlay].
type Options struct {
	Logger *log.Logger

	// Dispatch defaults to [Lookup.Start].
	Dispatch Dispatcher
}

// Overlay holds the typosquat suggestions for the current selection.
type Overlay struct {
	ctx      context.Context
	finder   Finder
	sel      *selection.Controller
	logger   *log.Logger
	dispatch Dispatcher
	unbind   func()

	mu      sync.Mutex
	state   State
	subs    []stateSubscriber
	nextSub int

	// version counts state changes and notified is the last version handed
	// to subscribers. Only one goroutine drains at a time, so subscribers
	// see changes in order and always end on the live state.
	version  uint64
	notified uint64
	draining bool
}

type stateSubscriber struct {
	id int
	fn func(State)
}

// NewOverlay creates an overlay driven by sel. Lookups issued by the overlay
// run with ctx.
func NewOverlay(ctx context.Context, f Finder, sel *selection.Controller, opts Options) *Overlay {
	o := &Overlay{
		ctx:      ctx,
		finder:   f,
		sel:      sel,
		logger:   opts.Logger,
		dispatch: opts.Dispatch,
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.dispatch == nil {
		o.dispatch = func(ctx context.Context, l *Lookup) { l.Start(ctx) }
	}
	o.unbind = sel.Subscribe(o.onChange)
	return o
}

// Close stops following the selection. Lookups already in flight may still
// be delivered but will be discarded once nothing matches them.
func (o *Overlay) Close() {
	o.unbind()
}

func (o *Overlay) onChange(ch selection.Change) {
	if ch.Cleared() {
		o.setState(State{})
		return
	}
	id := ch.Next.NodeID
	o.setState(State{NodeID: id, Pending: true})
	o.dispatch(o.ctx, o.RequestFor(id))
}

// RequestFor creates a lookup for nodeID. Nothing runs until the lookup is
// started or run.
func (o *Overlay) RequestFor(nodeID string) *Lookup {
	return &Lookup{overlay: o, token: nodeID}
}

// Deliver applies r if its token still matches the live selection and
// reports whether it was applied. Stale results are dropped.
func (o *Overlay) Deliver(r Result) bool {
	o.mu.Lock()
	current, ok := o.sel.SelectedID()
	if !ok || current != r.Token {
		o.mu.Unlock()
		o.logger.Debug("discarding stale typosquat result", "token", r.Token, "selected", current)
		observability.Typosquat().OnStaleDiscard(o.ctx, r.Token, current)
		return false
	}

	next := State{NodeID: r.Token}
	if r.Err != nil {
		next.Failed = true
	} else {
		next.Suggestions = slices.Clone(r.Suggestions)
	}
	o.state = next
	o.version++
	o.mu.Unlock()

	if r.Err != nil {
		o.logger.Warn("typosquat lookup failed", "package", r.Token, "err", r.Err)
		observability.Typosquat().OnLookupFailed(o.ctx, r.Token, r.Err)
	} else {
		observability.Typosquat().OnDelivered(o.ctx, r.Token, len(r.Suggestions))
	}
	o.publish()
	return true
}

// State returns a copy of the visible suggestion state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (o *Overlay) Subscribe(fn func(State)) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextSub++
	id := o.nextSub
	o.subs = append(o.subs, stateSubscriber{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.subs = slices.DeleteFunc(o.subs, func(s stateSubscriber) bool { return s.id == id })
	}
}

func (o *Overlay) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.version++
	o.mu.Unlock()
	o.publish()
}

// publish hands the current state to subscribers until they have seen the
// latest version. A change made while another goroutine is publishing is
// picked up by that goroutine's next pass.
func (o *Overlay) publish() {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	for o.notified != o.version {
		o.notified = o.version
		s := o.state.clone()
		subs := slices.Clone(o.subs)
		o.mu.Unlock()
		notifyState(subs, s)
		o.mu.Lock()
	}
	o.draining = false
	o.mu.Unlock()
}

func notifyState(subs []stateSubscriber, s State) {
	for _, sub := range subs {
		sub.fn(s.clone())
	}
}

// Lookup is a lazy, single-valued typosquat request. The finder runs at most
// once no matter how often Run is called.
type Lookup struct {
	overlay *Overlay
	token   string

	once   sync.Once
	result Result
}

// Token is the node id the lookup was issued for.
func (l *Lookup) Token() string { return l.token }

// Run executes the lookup on first call and returns the memoized result.
func (l *Lookup) Run(ctx context.Context) Result {
	l.once.Do(func() {
		l.result = Result{Token: l.token}
		observability.Typosquat().OnLookupStart(ctx, l.token)
		if l.overlay.finder == nil {
			l.result.Err = errs.New(errs.ErrCodeLookupFailed, "no typosquat source configured")
			return
		}
		s, err := l.overlay.finder.Find(ctx, l.token)
		if err != nil {
			if !errs.Is(err, errs.ErrCodeLookupFailed) {
				err = errs.Wrap(errs.ErrCodeLookupFailed, err, "typosquat lookup for %s", l.token)
			}
			l.result.Err = err
			return
		}
		l.result.Suggestions = s
	})
	return l.result
}

// Start runs the lookup on a new goroutine and delivers the result to the
// overlay that issued it.
func (l *Lookup) Start(ctx context.Context) {
	go func() {
		l.overlay.Deliver(l.Run(ctx))
	}()
}
