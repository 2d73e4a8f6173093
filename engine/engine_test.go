package engine

import (
	"context"
	"testing"
	"time"

	"market-telegram/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID  = int64(10)
	adminID = int64(1)
)

// recorder notes which handlers ran.
type recorder struct{ calls []string }

func (r *recorder) h(name string, next session.State) Handler {
	return func(_ context.Context, _ Event, s *session.Session) session.State {
		r.calls = append(r.calls, name)
		if next == stay {
			return s.State
		}
		return next
	}
}

const stay = session.State(-100)

func newTestEngine(t *testing.T, r *recorder) (*Engine, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(time.Hour, 24*time.Hour)
	e := New(sessions, WithUnhandled(r.h("unhandled", stay)))

	order := &Flow{
		ID: session.FlowOrder,
		Entry: []Route{
			On(Pressed(TagBrowse), r.h("browse", session.Browsing)),
		},
		States: map[session.State][]Route{
			session.Browsing: {
				On(Pressed(TagSelectProduct), r.h("select", session.SelectingQuantity)),
				On(Pressed(TagCheckout), r.h("checkout", session.End)),
			},
			session.SelectingQuantity: {
				On(Text(), r.h("quantity", session.Browsing)),
				On(AnyButton(), r.h("reprompt", stay)),
			},
		},
		Fallbacks: []Route{
			On(Command("cancel"), r.h("cancel", session.End)),
			On(Pressed(TagMainMenu), r.h("main_menu", session.End)),
		},
		Unmatched: r.h("rerender", stay),
	}
	admin := &Flow{
		ID:    session.FlowAdmin,
		Entry: []Route{On(Command("admin"), r.h("admin", session.AdminPanel))},
		States: map[session.State][]Route{
			session.AdminPanel: {On(Pressed(TagAdminManageList), r.h("manage", session.AdminManageList))},
		},
		Authorize: func(ev Event) bool { return ev.UserID == adminID },
		Denied:    r.h("denied", session.End),
	}
	manage := &Flow{
		ID: session.FlowAdminManage,
		States: map[session.State][]Route{
			session.AdminManageList: {On(Pressed(TagAdminPanel), r.h("back_to_panel", session.AdminPanel))},
		},
		Authorize: func(ev Event) bool { return ev.UserID == adminID },
	}
	require.NoError(t, e.Register(order))
	require.NoError(t, e.Register(admin))
	require.NoError(t, e.Register(manage))
	e.Global(On(Command("start"), r.h("start", session.End)))
	return e, sessions
}

func session0(m *session.Manager, id int64) session.Session {
	s, release := m.Acquire(id)
	defer release()
	return *s
}

func TestDispatchOrderFlow(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)
	ctx := context.Background()

	out := e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "browse"))
	assert.True(t, out.Matched)
	assert.Equal(t, session.Browsing, out.To)
	assert.Equal(t, session.FlowOrder, out.Flow)

	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "sel:3"))
	assert.Equal(t, session.SelectingQuantity, session0(m, userID).State)

	e.Dispatch(ctx, TextEvent(userID, userID, 2, "1.5"))
	assert.Equal(t, session.Browsing, session0(m, userID).State)

	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "checkout"))
	s := session0(m, userID)
	assert.Equal(t, session.FlowNone, s.Flow)
	assert.Equal(t, session.StateIdle, s.State)

	assert.Equal(t, []string{"browse", "select", "quantity", "checkout"}, r.calls)
}

func TestSelectingQuantityIgnoresButtons(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)
	ctx := context.Background()
	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "browse"))
	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "sel:3"))

	for _, data := range []string{"sel:4", "checkout", "rm:1", "garbage", "sel:x", "view_cart"} {
		e.Dispatch(ctx, ButtonEvent(userID, userID, 1, data))
		assert.Equal(t, session.SelectingQuantity, session0(m, userID).State, data)
	}
}

func TestFallbackEndsFlowFromAnyState(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)
	ctx := context.Background()
	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "browse"))
	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "sel:3"))

	e.Dispatch(ctx, CommandEvent(userID, userID, "cancel"))
	s := session0(m, userID)
	assert.Equal(t, session.FlowNone, s.Flow)
	assert.Equal(t, "cancel", r.calls[len(r.calls)-1])
}

func TestEntryAbandonsActiveFlow(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)
	ctx := context.Background()

	e.Dispatch(ctx, ButtonEvent(adminID, adminID, 1, "browse"))
	s, release := m.Acquire(adminID)
	s.Payload = &session.OrderDraft{}
	release()

	e.Dispatch(ctx, CommandEvent(adminID, adminID, "admin"))
	got := session0(m, adminID)
	assert.Equal(t, session.FlowAdmin, got.Flow)
	assert.Equal(t, session.AdminPanel, got.State)
	assert.Nil(t, got.Payload)
}

func TestUnauthorizedEntryIsDenied(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)

	out := e.Dispatch(context.Background(), CommandEvent(userID, userID, "admin"))
	assert.True(t, out.Denied)
	assert.Equal(t, []string{"denied"}, r.calls)
	assert.Equal(t, session.FlowNone, session0(m, userID).Flow)
}

func TestStateOfAnotherFlowHandsOver(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)
	ctx := context.Background()

	e.Dispatch(ctx, CommandEvent(adminID, adminID, "admin"))
	e.Dispatch(ctx, ButtonEvent(adminID, adminID, 1, "admin_manage"))
	s := session0(m, adminID)
	assert.Equal(t, session.FlowAdminManage, s.Flow)
	assert.Equal(t, session.AdminManageList, s.State)

	e.Dispatch(ctx, ButtonEvent(adminID, adminID, 1, "admin_panel"))
	s = session0(m, adminID)
	assert.Equal(t, session.FlowAdmin, s.Flow)
	assert.Equal(t, session.AdminPanel, s.State)
}

func TestUnmatchedAndGlobalRoutes(t *testing.T) {
	r := &recorder{}
	e, m := newTestEngine(t, r)
	ctx := context.Background()

	// No flow active: unknown text goes to the unhandled handler.
	out := e.Dispatch(ctx, TextEvent(userID, userID, 5, "hello"))
	assert.False(t, out.Matched)
	assert.Equal(t, []string{"unhandled"}, r.calls)

	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "browse"))
	e.Dispatch(ctx, ButtonEvent(userID, userID, 1, "rm:1"))
	assert.Equal(t, "rerender", r.calls[len(r.calls)-1])
	assert.Equal(t, session.Browsing, session0(m, userID).State)

	e.Dispatch(ctx, CommandEvent(userID, userID, "start"))
	assert.Equal(t, "start", r.calls[len(r.calls)-1])
	assert.Equal(t, session.FlowNone, session0(m, userID).Flow)
}

func TestObserverSeesEveryDispatch(t *testing.T) {
	var outcomes []Outcome
	e := New(session.NewManager(0, 0), WithObserver(func(o Outcome) { outcomes = append(outcomes, o) }))
	require.NoError(t, e.Register(&Flow{
		ID:     session.FlowOrder,
		Entry:  []Route{On(Pressed(TagBrowse), func(context.Context, Event, *session.Session) session.State { return session.Browsing })},
		States: map[session.State][]Route{session.Browsing: nil},
	}))

	e.Dispatch(context.Background(), ButtonEvent(userID, userID, 1, "browse"))
	e.Dispatch(context.Background(), TextEvent(userID, userID, 2, "hi"))
	require.Len(t, outcomes, 2)
	assert.Equal(t, Outcome{Kind: KindButton, Flow: session.FlowOrder, From: session.StateIdle, To: session.Browsing, Matched: true}, outcomes[0])
	assert.Equal(t, Outcome{Kind: KindText, Flow: session.FlowOrder, From: session.Browsing, To: session.Browsing}, outcomes[1])
}

func TestRegisterRejectsSharedStates(t *testing.T) {
	e := New(session.NewManager(0, 0))
	require.NoError(t, e.Register(&Flow{ID: session.FlowOrder, States: map[session.State][]Route{session.Browsing: nil}}))
	assert.Error(t, e.Register(&Flow{ID: session.FlowAdmin, States: map[session.State][]Route{session.Browsing: nil}}))
	assert.Error(t, e.Register(&Flow{ID: session.FlowOrder}))
	assert.Error(t, e.Register(&Flow{}))
}
