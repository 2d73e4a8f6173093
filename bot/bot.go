// Package bot wires the conversation flows of the ordering bot.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"market-telegram/config"
	"market-telegram/engine"
	"market-telegram/lang"
	"market-telegram/metrics"
	"market-telegram/models"
	"market-telegram/session"
)

type Deps struct {
	Messenger Messenger
	Catalog   Catalog
	Orders    Orders
	Users     Users
	Lang      *lang.Catalog
	Admins    config.AdminSet
	Sessions  *session.Manager
	Metrics   *metrics.Metrics // optional
	Logger    *slog.Logger     // optional
}

type Bot struct {
	msgr     Messenger
	catalog  Catalog
	orders   Orders
	users    Users
	tr       *lang.Catalog
	admins   config.AdminSet
	sessions *session.Manager
	engine   *engine.Engine
	queue    *engine.Serializer
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func New(d Deps) (*Bot, error) {
	if d.Messenger == nil || d.Catalog == nil || d.Orders == nil || d.Users == nil || d.Lang == nil || d.Sessions == nil {
		return nil, errors.New("bot: missing dependency")
	}
	if d.Admins.Len() == 0 {
		return nil, config.ErrMissingAdmins
	}
	b := &Bot{
		msgr:     d.Messenger,
		catalog:  d.Catalog,
		orders:   d.Orders,
		users:    d.Users,
		tr:       d.Lang,
		admins:   d.Admins,
		sessions: d.Sessions,
		queue:    engine.NewSerializer(),
		metrics:  d.Metrics,
		log:      d.Logger,
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.engine = engine.New(d.Sessions,
		engine.WithPrepare(b.prepare),
		engine.WithObserver(b.observe),
		engine.WithUnhandled(b.handleUnhandled),
	)
	if err := b.registerFlows(); err != nil {
		return nil, err
	}
	return b, nil
}

// Handle processes one event synchronously and acknowledges its button, if any.
func (b *Bot) Handle(ctx context.Context, ev engine.Event) {
	ctx, a := withAck(ctx)
	b.engine.Dispatch(ctx, ev)
	if ev.CallbackID != "" {
		if err := b.msgr.Answer(ctx, ev.CallbackID, a.text, a.alert); err != nil {
			b.log.Debug("answer callback", "user_id", ev.UserID, "err", err)
		}
	}
}

// Run feeds events into the per-user queue until the channel closes or ctx is
// done, then waits for queued events to finish.
func (b *Bot) Run(ctx context.Context, events <-chan engine.Event) error {
	// In-flight handlers finish even after shutdown starts.
	work := context.WithoutCancel(ctx)
	defer b.queue.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.queue.Submit(ev.UserID, func() { b.Handle(work, ev) })
		}
	}
}

// Sweep expires idle sessions every interval until ctx is done.
func (b *Bot) Sweep(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			reset, evicted := b.sessions.Sweep(now)
			if reset > 0 || evicted > 0 {
				b.log.Info("sessions expired", "flows_reset", reset, "evicted", evicted)
			}
			b.metrics.SessionsExpired.WithLabelValues("flow_timeout").Add(float64(reset))
			b.metrics.SessionsExpired.WithLabelValues("ttl").Add(float64(evicted))
			b.metrics.Sessions.Set(float64(b.sessions.Len()))
		}
	}
}

// prepare makes sure the user row exists and the session knows its language.
func (b *Bot) prepare(ctx context.Context, ev engine.Event, s *session.Session) {
	if s.Lang != "" && !(ev.Kind == engine.KindCommand && ev.Command == "start") {
		return
	}
	stored, err := b.users.EnsureUser(ctx, models.User{
		TelegramID: ev.UserID,
		FirstName:  ev.From.FirstName,
		Username:   ev.From.Username,
		IsAdmin:    b.admins.Contains(ev.UserID),
	})
	if err != nil {
		b.log.Warn("ensure user", "user_id", ev.UserID, "err", err)
	}
	if code := b.tr.Normalize(stored); code != "" {
		s.Lang = code
	} else if s.Lang == "" {
		s.Lang = b.tr.Default()
	}
}

func (b *Bot) observe(o engine.Outcome) {
	b.metrics.Events.WithLabelValues(o.Kind.String(), strconv.FormatBool(o.Matched)).Inc()
	if o.From != o.To {
		b.metrics.Transitions.WithLabelValues(o.Flow.String(), o.From.String(), o.To.String()).Inc()
	}
}

func (b *Bot) isAdmin(ev engine.Event) bool {
	return b.admins.Contains(ev.UserID)
}

// t translates key into the session's language.
func (b *Bot) t(s *session.Session, key string, vars lang.Vars) string {
	return b.tr.T(s.Lang, key, vars)
}

type ackKey struct{}

// ack collects the toast shown when a button press is acknowledged.
type ack struct {
	text  string
	alert bool
}

func withAck(ctx context.Context) (context.Context, *ack) {
	a := &ack{}
	return context.WithValue(ctx, ackKey{}, a), a
}

// toast sets the text shown to the user when their button is acknowledged.
func toast(ctx context.Context, text string, alert bool) {
	if a, ok := ctx.Value(ackKey{}).(*ack); ok {
		a.text, a.alert = text, alert
	}
}
