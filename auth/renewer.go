package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-shop-client/client"
	"github.com/jrsteele09/go-shop-client/session"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// DefaultRenewInterval is shorter than the access token lifetime so an
// active user should never run into an expired token mid-request.
const DefaultRenewInterval = 14 * time.Minute

// Renewer proactively refreshes the session on a fixed cadence while the
// application is running. A failed attempt is logged and the timer keeps
// going; forced sign-out stays the responsibility of the request path.
// Renewal goes through the same single-flight guard as on-demand
// refreshes, so the two can never race into parallel refresh calls.
type Renewer struct {
	client   *client.Client
	store    *session.Store
	interval time.Duration
	logger   zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// RenewerOption modifies the Renewer during construction.
type RenewerOption func(*Renewer)

// WithRenewInterval overrides the renewal cadence.
func WithRenewInterval(d time.Duration) RenewerOption {
	return func(r *Renewer) { r.interval = d }
}

// WithRenewerLogger sets the structured logger.
func WithRenewerLogger(logger zerolog.Logger) RenewerOption {
	return func(r *Renewer) { r.logger = logger }
}

func NewRenewer(c *client.Client, options ...RenewerOption) *Renewer {
	r := &Renewer{
		client:   c,
		store:    c.Store(),
		interval: DefaultRenewInterval,
		logger:   zerolog.Nop(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Start attempts one immediate renewal when a session is present, then
// renews on every tick until Stop is called or ctx is cancelled.
func (r *Renewer) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop cancels the renewal timer. Safe to call more than once.
func (r *Renewer) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Renewer) run(ctx context.Context) {
	defer close(r.done)

	r.renew(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.renew(ctx)
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// renew refreshes only when the persisted session looks valid; each
// attempt is independent and a failure never cancels the timer.
func (r *Renewer) renew(ctx context.Context) {
	if !r.store.Present(ctx) {
		return
	}
	r.logExpiry(ctx)
	if err := r.client.RefreshSession(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("proactive session renewal failed")
		return
	}
	r.logger.Debug().Msg("session renewed proactively")
}

func (r *Renewer) logExpiry(ctx context.Context) {
	sess, err := r.store.Load(ctx)
	if err != nil || sess.AccessToken == "" {
		return
	}
	exp, err := session.AccessTokenExpiry(sess.AccessToken)
	if err != nil {
		return
	}
	if remaining := exp.Sub(NowTimeFunc()); remaining < 0 {
		r.logger.Info().Time("expired_at", exp).Msg("access token already expired before renewal")
	} else {
		r.logger.Debug().Dur("remaining", remaining).Msg("renewing access token")
	}
}
