package engine

import (
	"context"
	"fmt"

	"market-telegram/session"
)

// Outcome describes one dispatch, for metrics and logs.
type Outcome struct {
	Kind    Kind
	Flow    session.FlowID // flow after the transition
	From    session.State
	To      session.State
	Matched bool
	Denied  bool
}

type Option func(*Engine)

// WithPrepare runs fn on every event after the session is locked and before
// routing. The bot uses it to load the user's language.
func WithPrepare(fn func(ctx context.Context, ev Event, s *session.Session)) Option {
	return func(e *Engine) { e.prepare = fn }
}

func WithObserver(fn func(Outcome)) Option {
	return func(e *Engine) { e.observe = fn }
}

// WithUnhandled sets the handler for events no flow or global route claims.
func WithUnhandled(h Handler) Option {
	return func(e *Engine) { e.unhandled = h }
}

type Engine struct {
	sessions  *session.Manager
	flows     []*Flow
	byID      map[session.FlowID]*Flow
	owner     map[session.State]session.FlowID
	global    []Route
	prepare   func(ctx context.Context, ev Event, s *session.Session)
	observe   func(Outcome)
	unhandled Handler
}

func New(sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		byID:     make(map[session.FlowID]*Flow),
		owner:    make(map[session.State]session.FlowID),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Register adds a flow. Entry points are tried in registration order; each
// state may belong to one flow only.
func (e *Engine) Register(f *Flow) error {
	if f.ID == session.FlowNone {
		return fmt.Errorf("flow without id")
	}
	if _, dup := e.byID[f.ID]; dup {
		return fmt.Errorf("flow %s registered twice", f.ID)
	}
	for st := range f.States {
		if st == session.End || st == session.StateIdle {
			return fmt.Errorf("flow %s: state %s cannot have routes", f.ID, st)
		}
		if other, taken := e.owner[st]; taken {
			return fmt.Errorf("state %s owned by both %s and %s", st, other, f.ID)
		}
	}
	for st := range f.States {
		e.owner[st] = f.ID
	}
	e.byID[f.ID] = f
	e.flows = append(e.flows, f)
	return nil
}

// Global adds routes that live outside any flow. They are tried last.
func (e *Engine) Global(routes ...Route) {
	e.global = append(e.global, routes...)
}

// Dispatch handles one event to completion under the user's session lock.
func (e *Engine) Dispatch(ctx context.Context, ev Event) Outcome {
	s, release := e.sessions.Acquire(ev.UserID)
	defer release()

	if e.prepare != nil {
		e.prepare(ctx, ev, s)
	}
	out := Outcome{Kind: ev.Kind, From: s.State}
	out.Matched, out.Denied = e.route(ctx, ev, s)
	out.Flow, out.To = s.Flow, s.State
	if e.observe != nil {
		e.observe(out)
	}
	return out
}

func (e *Engine) route(ctx context.Context, ev Event, s *session.Session) (matched, denied bool) {
	var active *Flow
	if s.Active() {
		active = e.byID[s.Flow]
		if active == nil {
			s.Reset()
		}
	}

	if active != nil {
		h := match(active.States[s.State], ev)
		if h == nil {
			h = match(active.Fallbacks, ev)
		}
		if h != nil {
			return true, e.run(ctx, active, h, ev, s)
		}
	}

	for _, f := range e.flows {
		if h := match(f.Entry, ev); h != nil {
			if f.Authorize != nil && !f.Authorize(ev) {
				e.deny(ctx, f, ev, s)
				return true, true
			}
			s.Begin(f.ID)
			e.transition(s, h(ctx, ev, s))
			return true, false
		}
	}

	if h := match(e.global, ev); h != nil {
		e.transition(s, h(ctx, ev, s))
		return true, false
	}

	if active != nil && active.Unmatched != nil {
		return false, e.run(ctx, active, active.Unmatched, ev, s)
	}
	if e.unhandled != nil {
		e.transition(s, e.unhandled(ctx, ev, s))
	}
	return false, false
}

func (e *Engine) run(ctx context.Context, f *Flow, h Handler, ev Event, s *session.Session) (denied bool) {
	if f.Authorize != nil && !f.Authorize(ev) {
		e.deny(ctx, f, ev, s)
		return true
	}
	e.transition(s, h(ctx, ev, s))
	return false
}

func (e *Engine) deny(ctx context.Context, f *Flow, ev Event, s *session.Session) {
	if f.Denied != nil {
		f.Denied(ctx, ev, s)
	}
	s.Reset()
}

// transition applies a handler's result. A state owned by another flow hands
// the session over to that flow; payload and view are left to the handler.
func (e *Engine) transition(s *session.Session, to session.State) {
	if to == session.End || to == session.StateIdle {
		s.Reset()
		return
	}
	owner, ok := e.owner[to]
	if !ok {
		// A state no flow routes from would strand the user.
		s.Reset()
		return
	}
	s.Flow = owner
	s.State = to
}
