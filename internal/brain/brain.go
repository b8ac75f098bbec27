// Package brain wires the storage backend, the event feed and every
// component for one process.
package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyegge/brain/internal/abtest"
	"github.com/steveyegge/brain/internal/config"
	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/improver"
	"github.com/steveyegge/brain/internal/judge"
	"github.com/steveyegge/brain/internal/learner"
	"github.com/steveyegge/brain/internal/observer"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/workflow"
)

const redisPingTimeout = 2 * time.Second

// Brain owns the store and the components built on it
type Brain struct {
	Config *config.Config

	Store     storage.Store
	Publisher events.Publisher

	Observer *observer.Observer
	Improver *improver.Improver
	ABTests  *abtest.Tester
	Judge    *judge.Judge
	Learner  *learner.Learner

	redis  *events.RedisPublisher
	logger *slog.Logger
}

// Options overrides parts of the wiring, mostly for tests
type Options struct {
	Logger *slog.Logger
	Source workflow.Source  // Default: sprint records under cfg.WorkflowDir
	Now    func() time.Time // Default: time.Now
}

// Open builds every component from cfg
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Brain, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStorage(ctx, &storage.Config{
		Backend:     cfg.Storage.Backend,
		Dir:         cfg.StateDir,
		SQLitePath:  cfg.SQLitePath(),
		PostgresURL: cfg.Storage.PostgresURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	b := &Brain{Config: cfg, Store: store, logger: logger}
	b.Publisher = b.openPublisher(ctx)

	source := opts.Source
	if source == nil {
		source = workflow.NewSprintSource(cfg.WorkflowDir)
	}

	b.Observer, err = observer.New(&observer.Deps{
		Store:     store,
		Source:    source,
		Publisher: b.Publisher,
		Logger:    logger.With("component", "observer"),
		Now:       opts.Now,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating observer: %w", err)
	}
	b.Improver, err = improver.New(&improver.Deps{
		Store:     store,
		Publisher: b.Publisher,
		Logger:    logger.With("component", "improver"),
		Now:       opts.Now,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating improver: %w", err)
	}
	b.ABTests, err = abtest.New(&abtest.Deps{
		Store:     store,
		Publisher: b.Publisher,
		Logger:    logger.With("component", "abtest"),
		Now:       opts.Now,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating A/B tester: %w", err)
	}
	b.Judge, err = judge.New(&judge.Deps{
		Store:     store,
		Publisher: b.Publisher,
		Logger:    logger.With("component", "judge"),
		Now:       opts.Now,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating judge: %w", err)
	}
	b.Learner, err = learner.New(&learner.Deps{
		Store:     store,
		Publisher: b.Publisher,
		Logger:    logger.With("component", "learner"),
		Now:       opts.Now,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating learner: %w", err)
	}

	return b, nil
}

// openPublisher always logs events and adds the Redis stream when
// configured and reachable. An unreachable Redis is logged, not fatal.
func (b *Brain) openPublisher(ctx context.Context) events.Publisher {
	pubs := events.Multi{events.NewLogPublisher(b.logger)}

	url := b.Config.Events.RedisURL
	if url == "" {
		return pubs
	}
	rp, err := events.NewRedisPublisher(url, b.Config.Events.Stream, b.Config.Events.MaxLen)
	if err != nil {
		b.logger.Warn("redis event stream disabled", "error", err)
		return pubs
	}
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rp.Ping(pingCtx); err != nil {
		b.logger.Warn("redis event stream disabled", "error", err)
		_ = rp.Close()
		return pubs
	}
	b.redis = rp
	return append(pubs, rp)
}

// LockWriter takes the cross-process writer lock in the state directory.
// Call the returned func to release it.
func (b *Brain) LockWriter(holder string) (func(), error) {
	path, err := storage.AcquireWriterLock(b.Config.StateDir, holder)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := storage.ReleaseWriterLock(path); err != nil {
			b.logger.Warn("failed to release writer lock", "error", err)
		}
	}, nil
}

// Watch polls the observer, taking the writer lock around every check so
// a concurrent halt is either refused or seen by the next check.
func (b *Brain) Watch(ctx context.Context, interval time.Duration, fn func(*observer.ObserveResult)) error {
	return b.Observer.Watch(ctx, interval, func() (func(), error) {
		return b.LockWriter("observer watch")
	}, fn)
}

// Close releases the store and the event stream
func (b *Brain) Close() error {
	var errs []error
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	return errors.Join(errs...)
}
