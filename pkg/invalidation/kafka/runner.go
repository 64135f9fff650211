// Package kafka consumes collection-update events and evicts what this
// replica cached for the updated collection.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/invalidation"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/logger"
)

// DatasetEvictor drops in-process copies of a data file.
type DatasetEvictor interface {
	Evict(path string) int
}

// AxisEvictor drops shared axis properties of a collection.
type AxisEvictor interface {
	EvictCollection(ctx context.Context, collection string) (int, error)
}

type Runner struct {
	log      *slog.Logger
	cfg      InvalidationConfig
	colls    *config.Collections
	datasets DatasetEvictor
	axes     AxisEvictor
	ms       *invalidationMetrics
	ver      *versionDedupe
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
	Datasets DatasetEvictor
	Axes     AxisEvictor
}

func New(cfg InvalidationConfig, colls *config.Collections, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:      opts.Logger,
		cfg:      cfg,
		colls:    colls,
		datasets: opts.Datasets,
		axes:     opts.Axes,
		ms:       newInvalidationMetrics(opts.Register),
		ver:      newVersionDedupe(1024),
		assign:   map[int32]struct{}{},
	}
}

func (r *Runner) Enabled() bool {
	return r.cfg.Enabled && r.cfg.Driver == DriverKafka
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.Enabled() {
		r.log.Info("invalidation runner disabled", "driver", r.cfg.Driver, "enabled", r.cfg.Enabled)
		return nil
	}
	if r.colls == nil {
		return errors.New("kafka runner: collections are required")
	}
	if r.datasets == nil && r.axes == nil {
		return errors.New("kafka runner: nothing to invalidate")
	}

	sc, err := r.cfg.saramaConfig()
	if err != nil {
		return err
	}
	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, sc)
	if err != nil {
		return fmt.Errorf("consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(true)
			r.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					r.assign[p] = struct{}{}
				}
			}
			r.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(false)
			r.assign = map[int32]struct{}{}
			r.assignMu.Unlock()
		},
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka invalidation runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka invalidation runner stopped")
}

// Readiness reports whether partitions are assigned. A disabled runner is
// always ready.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.Enabled() {
		return true, nil
	}
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// handleMessage applies one event. Malformed or unknown-collection events
// are counted and skipped so they cannot stall the partition; only failed
// evictions are returned.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	if !msg.Timestamp.IsZero() {
		r.ms.lag.Set(time.Since(msg.Timestamp).Seconds())
	}

	ev, err := invalidation.Decode(msg.Value)
	if err != nil {
		r.ms.events.WithLabelValues(resultMalformed).Inc()
		r.log.Warn("invalidation event rejected",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	ctx = logger.WithCollection(logger.WithComponent(ctx, "invalidation"), ev.Collection)

	coll, ok := r.colls.Get(ev.Collection)
	if !ok {
		r.ms.events.WithLabelValues(resultUnknownColl).Inc()
		r.log.WarnContext(ctx, "invalidation for unknown collection")
		return nil
	}
	if !r.ver.shouldApply(ev.Collection, ev.Version) {
		r.ms.events.WithLabelValues(resultStale).Inc()
		return nil
	}

	err = r.apply(ctx, coll)
	r.observe(ev.Op, err, time.Since(start))
	if err != nil {
		r.ver.forget(ev.Collection, ev.Version)
		return err
	}
	observability.SetCollectionInvalidatedAt(ev.Collection, float64(ev.TS.Unix()))
	r.log.InfoContext(ctx, "collection invalidated", "version", ev.Version, "op", ev.Op)
	return nil
}

func (r *Runner) apply(ctx context.Context, coll config.Collection) error {
	if r.datasets != nil {
		n := r.datasets.Evict(coll.Provider.Data)
		r.ms.evicted.WithLabelValues("datasets").Add(float64(n))
	}
	if r.axes != nil {
		n, err := r.axes.EvictCollection(ctx, coll.ID)
		r.ms.evicted.WithLabelValues("axes").Add(float64(n))
		if err != nil {
			return fmt.Errorf("evict axes of %s: %w", coll.ID, err)
		}
	}
	return nil
}

func (r *Runner) observe(op string, err error, dur time.Duration) {
	if op == "" {
		op = "unknown"
	}
	result := resultApplied
	if err != nil {
		result = resultFailed
	}
	r.ms.events.WithLabelValues(result).Inc()
	r.ms.applyDur.WithLabelValues(op).Observe(dur.Seconds())
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
