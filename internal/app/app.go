// Package app wires the token store, API client, session manager and event
// publisher together and hands out screens once a user is signed in.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/api"
	"fintrack/internal/config"
	"fintrack/internal/events"
	"fintrack/internal/events/amqp"
	"fintrack/internal/listsync"
	"fintrack/internal/log"
	"fintrack/internal/screens"
	"fintrack/internal/session"
	"fintrack/internal/tokenstore"
)

var ErrNotAuthenticated = errors.New("not signed in")

type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     tokenstore.Store
	Client    *api.Client
	Session   *session.Manager
	Publisher events.Publisher

	notify     func(listsync.Notice)
	httpClient *http.Client
	clock      func() time.Time
	closers    []func() error
}

type Option func(*App)

// WithNotifier routes user-facing failure notices to fn.
func WithNotifier(fn func(listsync.Notice)) Option {
	return func(a *App) { a.notify = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) { a.httpClient = hc }
}

// WithStore replaces the configured token store. The caller keeps ownership.
func WithStore(s tokenstore.Store) Option {
	return func(a *App) { a.Store = s }
}

func WithPublisher(p events.Publisher) Option {
	return func(a *App) { a.Publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.clock = now }
}

// New builds the application context from cfg. The AMQP publisher is
// optional: when it cannot be reached the app runs without change events.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	logger = log.OrDiscard(logger)
	a := &App{
		Config: cfg,
		Logger: logger.WithComponent(log.ComponentApp),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Store == nil {
		store, err := tokenstore.Open(tokenstore.Config{
			Kind: tokenstore.Kind(cfg.TokenStore),
			Path: cfg.TokenDBPath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open token store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}

	clientOpts := []api.Option{api.WithLogger(logger)}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(a.httpClient))
	}
	if cfg.HTTPTimeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(cfg.HTTPTimeout))
	}
	a.Client = api.NewClient(cfg.APIBaseURL, clientOpts...)
	a.Session = session.NewManager(a.Store, a.Client, session.WithLogger(logger), session.WithClock(a.clock))

	if a.Publisher == nil {
		a.Publisher = a.openPublisher(ctx, logger)
	}

	a.Logger.InfoContext(ctx, "Application initialized",
		"api_base_url", cfg.APIBaseURL,
		"token_store", cfg.TokenStore,
		"events", cfg.AMQPURL != "")
	return a, nil
}

func (a *App) openPublisher(ctx context.Context, logger *log.Logger) events.Publisher {
	if a.Config.AMQPURL == "" {
		return events.Discard{}
	}
	pub, err := amqp.NewPublisher(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPRoutingKey, logger)
	if err != nil {
		a.Logger.WarnContext(ctx, "AMQP unavailable, continuing without change events", log.FieldError, err.Error())
		return events.Discard{}
	}
	a.closers = append(a.closers, pub.Close)
	return pub
}

// Initialize restores a persisted session, if any.
func (a *App) Initialize(ctx context.Context) session.State {
	return a.Session.Initialize(ctx)
}

func (a *App) deps() screens.Deps {
	return screens.Deps{
		Client:      a.Client,
		Publisher:   a.Publisher,
		Notify:      a.notify,
		Logger:      a.Logger,
		Thresholds:  aggregate.ThresholdsFromPercent(a.Config.BudgetWarningPct, a.Config.BudgetOverPct),
		RecentLimit: a.Config.RecentLimit,
		Clock:       a.clock,
	}
}

func (a *App) requireAuth() error {
	if a.Session.State() != session.Authenticated {
		return ErrNotAuthenticated
	}
	return nil
}

func (a *App) Transactions() (*screens.Transactions, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return screens.NewTransactions(a.deps()), nil
}

func (a *App) Budgets() (*screens.Budgets, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return screens.NewBudgets(a.deps()), nil
}

func (a *App) Goals() (*screens.Goals, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return screens.NewGoals(a.deps()), nil
}

func (a *App) Dashboard() (*screens.Dashboard, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return screens.NewDashboard(a.deps()), nil
}

// Close releases what New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
