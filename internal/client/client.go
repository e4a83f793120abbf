// Package client wires the session store, task cache and mutation
// coordinator into one object with a defined lifecycle.
package client

import (
	"context"
	"log/slog"
	"time"

	"todd/internal/config"
	"todd/internal/logging"
	"todd/internal/mutation"
	"todd/internal/service"
	"todd/internal/session"
	"todd/internal/taskcache"
)

// Client is the application core handed to commands.
type Client struct {
	Config    *config.Config
	Service   service.Service
	Session   *session.Store
	Mutations *mutation.Coordinator
	Logger    *slog.Logger
	Now       func() time.Time

	stop func()
}

// Options allows overriding the client's dependencies.
type Options struct {
	// Persister stores the session. Defaults to a file in the config directory.
	Persister session.Persister

	Logger *slog.Logger
	Now    func() time.Time
}

// New creates a client for svc. The persisted session, if any, is restored.
// Logging out through Session clears the task cache.
func New(cfg *config.Config, svc service.Service, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	persister := opts.Persister
	if persister == nil {
		persister = session.FilePersister{Path: cfg.SessionPath()}
	}

	sess := session.New(svc, persister, session.Options{
		Now:    now,
		TTL:    cfg.Settings.SessionTTL,
		Logger: logger,
	})
	coord := mutation.New(svc, sess, taskcache.New(), logger)
	sess.OnChange(coord.SessionEnded)

	c := &Client{
		Config:    cfg,
		Service:   svc,
		Session:   sess,
		Mutations: coord,
		Logger:    logger,
		Now:       now,
	}
	c.stop = c.watch()
	return c
}

// Cache returns the task cache.
func (c *Client) Cache() *taskcache.Cache {
	return c.Mutations.Cache()
}

// Load fills the cache from the backend.
func (c *Client) Load(ctx context.Context) ([]service.Task, error) {
	if err := c.Mutations.Reload(ctx); err != nil {
		return nil, err
	}
	return c.Cache().Snapshot(), nil
}

// Close releases the client. The session is kept.
func (c *Client) Close() {
	if c.stop != nil {
		c.stop()
	}
}

// watch logs every coordinator event until the returned function is called.
func (c *Client) watch() func() {
	events, cancel := c.Mutations.Subscribe(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			attrs := []any{
				slog.String("op", ev.Op.String()),
				slog.Uint64("cache_version", ev.CacheVersion),
			}
			if ev.TaskID != "" {
				attrs = append(attrs, slog.String("task_id", ev.TaskID))
			}
			if ev.Err != nil {
				attrs = append(attrs, logging.Err(ev.Err))
			}
			c.Logger.Debug("cache event", attrs...)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
