package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/observability"
	"github.com/couchcryptid/plume-triage/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	mu       sync.Mutex
	batches  [][]domain.RawRequest
	failures int // leading calls that return an error
	calls    atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawRequest, error) {
	n := int(m.calls.Add(1))
	if n <= m.failures {
		return nil, errors.New("broker unavailable")
	}

	m.mu.Lock()
	if len(m.batches) > 0 {
		b := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	// block until context cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	fail   map[string]bool     // request keys that fail
	issues map[string][]string // plume issues per request key
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawRequest) (domain.Assessment, error) {
	key := string(raw.Key)
	if m.fail[key] {
		return domain.Assessment{}, errors.New("bad request")
	}
	out := domain.Assessment{ID: "a-" + key, RequestID: key, Issues: m.issues[key]}
	if key != "none" {
		out.Selected = &domain.ScoredPathogen{PathogenScore: domain.PathogenScore{PathogenID: "flu"}}
	}
	return out, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.Assessment
	failures int
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, assessments []domain.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("sink unavailable")
	}
	m.loaded = append(m.loaded, assessments...)
	return nil
}

func (m *mockLoader) snapshot() []domain.Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Assessment(nil), m.loaded...)
}

func rawRequest(key string, committed *atomic.Int64) domain.RawRequest {
	return domain.RawRequest{
		Key:   []byte(key),
		Value: []byte(`{"request_id":"` + key + `"}`),
		Topic: "assessment-requests",
		Commit: func(context.Context) error {
			if committed != nil {
				committed.Add(1)
			}
			return nil
		},
	}
}

func sampleCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var committed atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawRequest{
		{rawRequest("r1", &committed), rawRequest("r2", &committed)},
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 2)
	assert.Equal(t, "r1", loaded[0].RequestID)
	assert.Equal(t, int64(2), committed.Load())
	assert.NoError(t, p.CheckReadiness(context.Background()))

	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.RequestsConsumed), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.AssessmentsProduced), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 1e-9)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.snapshot())
}

func TestPipeline_Run_SkipsPoisonRequests(t *testing.T) {
	var committed atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawRequest{
		{rawRequest("good", &committed), rawRequest("bad", &committed)},
	}}
	tfm := &mockTransformer{fail: map[string]bool{"bad": true}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].RequestID)
	// The poison request is committed so it is not redelivered.
	assert.Equal(t, int64(2), committed.Load())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.AssessmentErrors), 1e-9)
}

func TestPipeline_Run_AllFailNotReady(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawRequest{{rawRequest("bad", nil)}}}
	tfm := &mockTransformer{fail: map[string]bool{"bad": true}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var committed atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawRequest{{rawRequest("r1", &committed)}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.Equal(t, int64(0), committed.Load())
}

func TestPipeline_Run_RecoversAfterExtractErrors(t *testing.T) {
	var committed atomic.Int64
	ext := &mockExtractor{
		failures: 1,
		batches:  [][]domain.RawRequest{{rawRequest("r1", &committed)}},
	}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), observability.NewMetricsForTesting(), 10)
	// One 200ms backoff, then the batch is processed.
	runFor(t, p, 800*time.Millisecond)

	assert.Len(t, ldr.snapshot(), 1)
	assert.Equal(t, int64(1), committed.Load())
}

func TestPipeline_Run_RecordsAssessmentOutcomes(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawRequest{
		{rawRequest("ok", nil), rawRequest("none", nil), rawRequest("flawed", nil), rawRequest("bad", nil)},
	}}
	tfm := &mockTransformer{
		fail:   map[string]bool{"bad": true},
		issues: map[string][]string{"flawed": {"stack height 900 m is outside [0, 500]", "wind speed 0 m/s must be positive"}},
	}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	// Assessments without a candidate or with issues are still produced.
	assert.Len(t, ldr.snapshot(), 3)
	assert.Equal(t, uint64(4), sampleCount(t, metrics.AssessmentDuration))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.NoCandidate), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.AssessmentIssues), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.AssessmentErrors), 1e-9)
}
