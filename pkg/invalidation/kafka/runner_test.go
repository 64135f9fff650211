package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/axisstore"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/redisstore"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/invalidation"
)

const dataPath = "/data/metoffice.nc"

type fakeDatasets struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeDatasets) Evict(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return 1
}

func (f *fakeDatasets) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

type fakeAxes struct {
	mu    sync.Mutex
	colls []string
	err   error
}

func (f *fakeAxes) EvictCollection(_ context.Context, collection string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.colls = append(f.colls, collection)
	return 2, f.err
}

func testCollections(t *testing.T) *config.Collections {
	t.Helper()
	colls, err := config.NewCollections(config.Collection{
		ID:       "metoffice",
		Provider: config.ProviderDef{Name: "xarray-edr", Data: dataPath},
	})
	if err != nil {
		t.Fatal(err)
	}
	return colls
}

func eventMsg(t *testing.T, offset int64, ev invalidation.Event) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: "t", Partition: 0, Offset: offset, Timestamp: ev.TS, Value: b}
}

func newRunner(t *testing.T, ds DatasetEvictor, ax AxisEvictor) (*Runner, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })
	cfg := InvalidationConfig{Enabled: true, Driver: DriverKafka}
	return New(cfg, testCollections(t), Options{Register: reg, Datasets: ds, Axes: ax}), reg
}

func TestHandleMessage_EvictsAndDedupesByVersion(t *testing.T) {
	ds, ax := &fakeDatasets{}, &fakeAxes{}
	r, reg := newRunner(t, ds, ax)
	ctx := context.Background()
	ts := time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)

	ev := invalidation.Event{Version: 1, Op: invalidation.OpUpdate, Collection: "metoffice", TS: ts}
	if err := r.handleMessage(ctx, eventMsg(t, 1, ev)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if ds.calls() != 1 || ds.paths[0] != dataPath || len(ax.colls) != 1 || ax.colls[0] != "metoffice" {
		t.Fatalf("evictions datasets=%v axes=%v", ds.paths, ax.colls)
	}

	// replayed version is skipped
	if err := r.handleMessage(ctx, eventMsg(t, 2, ev)); err != nil {
		t.Fatalf("duplicate handleMessage: %v", err)
	}
	if ds.calls() != 1 {
		t.Fatalf("duplicate version must not evict again")
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(resultStale)); got != 1 {
		t.Fatalf("stale_version=%v want 1", got)
	}

	ev.Version = 2
	if err := r.handleMessage(ctx, eventMsg(t, 3, ev)); err != nil {
		t.Fatalf("handleMessage v2: %v", err)
	}
	if ds.calls() != 2 {
		t.Fatalf("newer version must evict")
	}
	if got := testutil.ToFloat64(r.ms.evicted.WithLabelValues("axes")); got != 4 {
		t.Fatalf("evicted axes=%v want 4", got)
	}

	want := `
# HELP edr_collection_invalidated_at_seconds Unix time of the last applied invalidation per collection.
# TYPE edr_collection_invalidated_at_seconds gauge
edr_collection_invalidated_at_seconds{collection="metoffice"} 1.7614800e+09
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "edr_collection_invalidated_at_seconds"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestHandleMessage_SkipsInvalidAndUnknown(t *testing.T) {
	ds := &fakeDatasets{}
	r, reg := newRunner(t, ds, nil)
	ctx := context.Background()

	bad := &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"version":1,"op":"insert"}`)}
	if err := r.handleMessage(ctx, bad); err != nil {
		t.Fatalf("invalid event must be skipped, got %v", err)
	}
	unknown := invalidation.Event{Version: 1, Op: invalidation.OpDelete, Collection: "nope", TS: time.Now().UTC()}
	if err := r.handleMessage(ctx, eventMsg(t, 2, unknown)); err != nil {
		t.Fatalf("unknown collection must be skipped, got %v", err)
	}
	if ds.calls() != 0 {
		t.Fatalf("nothing should be evicted")
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(resultMalformed)); got != 1 {
		t.Fatalf("malformed=%v want 1", got)
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(resultUnknownColl)); got != 1 {
		t.Fatalf("unknown_collection=%v want 1", got)
	}
	want := `
# HELP edr_invalidation_events_total Collection-update events consumed, by result.
# TYPE edr_invalidation_events_total counter
edr_invalidation_events_total{result="malformed"} 1
edr_invalidation_events_total{result="unknown_collection"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "edr_invalidation_events_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestHandleMessage_AxisFailureIsReturned(t *testing.T) {
	ax := &fakeAxes{err: errors.New("redis down")}
	r, _ := newRunner(t, &fakeDatasets{}, ax)
	ev := invalidation.Event{Version: 1, Op: invalidation.OpReplace, Collection: "metoffice", TS: time.Now().UTC()}
	if err := r.handleMessage(context.Background(), eventMsg(t, 1, ev)); err == nil {
		t.Fatalf("expected error when axis eviction fails")
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(resultFailed)); got != 1 {
		t.Fatalf("failed=%v want 1", got)
	}

	// the redelivered version is applied again once Redis is back
	ax.mu.Lock()
	ax.err = nil
	ax.mu.Unlock()
	if err := r.handleMessage(context.Background(), eventMsg(t, 1, ev)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues(resultStale)); got != 0 {
		t.Fatalf("stale_version=%v want 0", got)
	}
	if len(ax.colls) != 2 {
		t.Fatalf("evictions=%v want 2", ax.colls)
	}
}

func TestHandleMessage_MiniredisAxisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	store := axisstore.New(rc, axisstore.Options{})
	ctx := context.Background()
	store.Put(ctx, "metoffice", "aaaa", axes.Properties{XLabel: "lon"})
	store.Put(ctx, "metoffice", "bbbb", axes.Properties{XLabel: "lon"})
	store.Put(ctx, "other", "aaaa", axes.Properties{XLabel: "x"})

	r, _ := newRunner(t, nil, store)
	ev := invalidation.Event{Version: 5, Op: invalidation.OpUpdate, Collection: "metoffice", TS: time.Now().UTC()}
	if err := r.handleMessage(ctx, eventMsg(t, 1, ev)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if _, ok := store.Get(ctx, "metoffice", "aaaa"); ok {
		t.Fatalf("metoffice axes must be evicted")
	}
	if _, ok := store.Get(ctx, "other", "aaaa"); !ok {
		t.Fatalf("other collections must be kept")
	}
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return map[string][]int32{"t": {0, 3}} }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "t" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func TestConsumeClaim_MarksAfterWork(t *testing.T) {
	ax := &fakeAxes{err: errors.New("redis down")}
	r, _ := newRunner(t, &fakeDatasets{}, ax)
	g := &groupHandler{process: r.handleMessage}
	s := &sess{ctx: t.Context()}

	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Offset: 10, Value: []byte(`not json`)}
	ch <- eventMsg(t, 11, invalidation.Event{Version: 1, Op: invalidation.OpUpdate, Collection: "metoffice", TS: time.Now().UTC()})
	close(ch)

	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err == nil {
		t.Fatalf("expected failed eviction to stop the claim")
	}
	// the skipped message is committed, the failed one is not
	if len(s.marked) != 1 || s.marked[0] != 10 {
		t.Fatalf("marked=%v want [10]", s.marked)
	}
}

func TestReadiness(t *testing.T) {
	off := New(InvalidationConfig{Driver: DriverNone}, nil, Options{})
	if ok, _ := off.Readiness(); !ok {
		t.Fatalf("disabled runner must be ready")
	}
	if err := off.Start(context.Background()); err != nil {
		t.Fatalf("disabled Start: %v", err)
	}

	r, _ := newRunner(t, &fakeDatasets{}, nil)
	if ok, _ := r.Readiness(); ok {
		t.Fatalf("unassigned runner must not be ready")
	}
	h := &groupHandler{setup: func(sess sarama.ConsumerGroupSession) {
		r.assignMu.Lock()
		r.assigned.Store(true)
		for _, parts := range sess.Claims() {
			for _, p := range parts {
				r.assign[p] = struct{}{}
			}
		}
		r.assignMu.Unlock()
	}}
	_ = h.Setup(&sess{ctx: t.Context()})
	if ok, parts := r.Readiness(); !ok || len(parts) != 2 {
		t.Fatalf("ready=%v partitions=%v", ok, parts)
	}
}

func TestSaramaConfig(t *testing.T) {
	sc, err := InvalidationConfig{}.saramaConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if sc.Consumer.Offsets.Initial != sarama.OffsetNewest || !sc.Consumer.Return.Errors {
		t.Fatalf("unexpected consumer settings")
	}

	sc, err = InvalidationConfig{SASL: SASLConfig{Enable: true, Username: "u", Password: "p"}}.saramaConfig()
	if err != nil || sc.Net.SASL.Mechanism != sarama.SASLTypePlaintext {
		t.Fatalf("plain sasl: %v", err)
	}
	if _, err := (InvalidationConfig{SASL: SASLConfig{Enable: true, Mechanism: "GSSAPI", Username: "u"}}).saramaConfig(); err == nil {
		t.Fatalf("expected unsupported mechanism error")
	}
	if _, err := (InvalidationConfig{TLS: TLSConfig{Enable: true, CaFile: "/nonexistent/ca.pem"}}).saramaConfig(); err == nil {
		t.Fatalf("expected missing CA error")
	}
	sc, err = InvalidationConfig{TLS: TLSConfig{Enable: true, SkipVerify: true}}.saramaConfig()
	if err != nil || !sc.Net.TLS.Enable || !sc.Net.TLS.Config.InsecureSkipVerify {
		t.Fatalf("tls: %v", err)
	}
}
