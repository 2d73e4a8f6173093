package engine

import (
	"context"

	"market-telegram/session"
)

// Handler runs one step and returns the next state: the same state to stay,
// session.End to finish, or a state of another flow to hand over to it.
type Handler func(ctx context.Context, ev Event, s *session.Session) session.State

type Matcher func(ev Event) bool

type Route struct {
	Match  Matcher
	Handle Handler
}

func On(m Matcher, h Handler) Route {
	return Route{Match: m, Handle: h}
}

func Command(names ...string) Matcher {
	return func(ev Event) bool {
		if ev.Kind != KindCommand {
			return false
		}
		for _, n := range names {
			if ev.Command == n {
				return true
			}
		}
		return false
	}
}

// Pressed matches buttons with one of the given tags.
func Pressed(tags ...Tag) Matcher {
	return func(ev Event) bool {
		if ev.Kind != KindButton {
			return false
		}
		for _, t := range tags {
			if ev.Button.Tag == t {
				return true
			}
		}
		return false
	}
}

func AnyButton() Matcher {
	return func(ev Event) bool { return ev.Kind == KindButton }
}

func Text() Matcher {
	return func(ev Event) bool { return ev.Kind == KindText }
}

// Flow is one conversation machine.
type Flow struct {
	ID     session.FlowID
	Entry  []Route
	States map[session.State][]Route
	// Fallbacks are tried when no route of the current state matched.
	Fallbacks []Route
	// Unmatched, if set, handles events nothing else claimed while the flow
	// is active, typically by re-rendering the current view.
	Unmatched Handler
	// Authorize gates every event of the flow. Denied runs instead when it
	// returns false and the flow is ended.
	Authorize func(ev Event) bool
	Denied    Handler
}

func match(routes []Route, ev Event) Handler {
	for _, r := range routes {
		if r.Match(ev) {
			return r.Handle
		}
	}
	return nil
}
