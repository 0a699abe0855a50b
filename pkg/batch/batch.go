// Package batch runs many independent portal operations concurrently
// through one shared pooled client using a fixed-size worker pool.
package batch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prajeetp/bhbatch/pkg/abort"
	"github.com/prajeetp/bhbatch/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for batch execution.
var (
	batchOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_operations_total",
		Help: "Total batch operations by kind and outcome",
	}, []string{"kind", "outcome"})

	batchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_duration_seconds",
		Help:    "Wall time of whole batch runs by kind",
		Buckets: []float64{0.5, 1, 5, 15, 60, 300},
	}, []string{"kind"})

	batchInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batch_operations_inflight",
		Help: "Operations currently being executed by batch workers",
	})
)

// Kind classifies an operation by portal endpoint semantics.
type Kind string

const (
	// KindViewByID is a GET of one record's detail page.
	KindViewByID Kind = "view_by_id"

	// KindSearch is a criteria search returning an HTML table.
	KindSearch Kind = "search"

	// KindCreate submits one new blackhole record.
	KindCreate Kind = "create"

	// KindUpdate posts an action form against one existing record.
	KindUpdate Kind = "update"
)

// Operation is one logical unit of work: one target, one endpoint call.
// Immutable once submitted. TargetID correlates the result; duplicates are
// allowed and correlate by submission order.
type Operation struct {
	TargetID string
	Kind     Kind
	Method   string // http.MethodGet or http.MethodPost
	Endpoint string // relative portal path, e.g. "view.cgi"
	Params   url.Values
	Form     url.Values
}

// Result is produced exactly once per submitted Operation, aborted or not.
type Result struct {
	TargetID   string
	Succeeded  bool
	StatusCode int // 0 when no response was received
	Body       string
	Attempts   int
	Elapsed    time.Duration
	Aborted    bool
}

// Config holds executor configuration.
type Config struct {
	// Concurrency bounds the worker pool. Default 5; large removal batches
	// run fine at 10-20 since the portal handles the fan-in.
	Concurrency int

	// Retry applies to every operation individually.
	Retry client.RetryConfig

	// OnProgress, when set, is called after each operation resolves with
	// the number of resolved operations and the batch total. Calls are
	// serialized; keep the callback cheap.
	OnProgress func(done, total int)
}

// DefaultConfig returns safe executor defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 5,
		Retry:       client.DefaultRetryConfig(),
	}
}

// Executor runs operation batches against one pooled client.
type Executor struct {
	client *client.Client
	config Config
	logger zerolog.Logger
}

// NewExecutor creates a batch executor sharing the given pooled client.
func NewExecutor(c *client.Client, cfg Config) *Executor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &Executor{
		client: c,
		config: cfg,
		logger: log.With().Str("component", "batch-executor").Logger(),
	}
}

// Run executes the operations under the configured concurrency bound and
// returns exactly one Result per Operation, in submission order. A single
// operation's failure never aborts the batch; when the abort signal is set
// mid-batch, in-flight attempts finish naturally and every unstarted
// operation resolves as an aborted failure without a network call.
func (e *Executor) Run(ctx context.Context, ops []Operation, sig *abort.Signal) []Result {
	if len(ops) == 0 {
		return nil
	}

	start := time.Now()
	kind := batchKind(ops)
	defer func() {
		batchDurationSeconds.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	e.logger.Info().
		Int("operations", len(ops)).
		Int("concurrency", e.config.Concurrency).
		Str("kind", string(kind)).
		Msg("Starting batch")

	results := make([]Result, len(ops))

	queue := make(chan int, len(ops))
	for i := range ops {
		queue <- i
	}
	close(queue)

	var progressMu sync.Mutex
	resolved := 0
	report := func() {
		if e.config.OnProgress == nil {
			return
		}
		progressMu.Lock()
		resolved++
		done := resolved
		progressMu.Unlock()
		e.config.OnProgress(done, len(ops))
	}

	workers := e.config.Concurrency
	if workers > len(ops) {
		workers = len(ops)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range queue {
				op := ops[idx]
				if sig.IsSet() || ctx.Err() != nil {
					results[idx] = abortedResult(op)
					batchOperationsTotal.WithLabelValues(string(op.Kind), "aborted").Inc()
					report()
					continue
				}
				results[idx] = e.runOne(ctx, workerID, op, sig)
				batchOperationsTotal.WithLabelValues(string(op.Kind), outcomeLabel(results[idx])).Inc()
				report()
			}
		}(w)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	e.logger.Info().
		Int("operations", len(ops)).
		Int("succeeded", succeeded).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return results
}

// runOne executes a single operation through the retry policy. Panics from
// a malformed operation are contained at the worker boundary and converted
// into a failed result so one bad item never crashes the batch or leaks an
// unresolved slot.
func (e *Executor) runOne(ctx context.Context, workerID int, op Operation, sig *abort.Signal) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Int("worker_id", workerID).
				Str("target_id", op.TargetID).
				Interface("panic", r).
				Msg("Operation panicked")
			res = Result{
				TargetID: op.TargetID,
				Body:     fmt.Sprintf("operation panic: %v", r),
			}
		}
	}()

	batchInflight.Inc()
	defer batchInflight.Dec()

	e.logger.Debug().
		Int("worker_id", workerID).
		Str("target_id", op.TargetID).
		Str("endpoint", op.Endpoint).
		Msg("Operation start")

	var out client.Outcome
	switch op.Method {
	case http.MethodPost:
		out = e.client.PostWithRetry(ctx, op.Endpoint, op.Params, op.Form, e.config.Retry, sig)
	default:
		out = e.client.GetWithRetry(ctx, op.Endpoint, op.Params, e.config.Retry, sig)
	}

	res = Result{
		TargetID:   op.TargetID,
		Succeeded:  out.Succeeded,
		StatusCode: out.StatusCode,
		Body:       out.Body,
		Attempts:   out.Attempts,
		Elapsed:    out.Elapsed,
		Aborted:    out.Aborted,
	}
	if out.Aborted {
		res.Body = "aborted"
	} else if !out.Succeeded && out.StatusCode == 0 && out.Err != nil {
		res.Body = out.Err.Error()
	}

	e.logger.Debug().
		Int("worker_id", workerID).
		Str("target_id", op.TargetID).
		Int("status", res.StatusCode).
		Int("attempts", res.Attempts).
		Bool("succeeded", res.Succeeded).
		Msg("Operation done")

	return res
}

func abortedResult(op Operation) Result {
	return Result{
		TargetID: op.TargetID,
		Body:     "aborted",
		Aborted:  true,
	}
}

func outcomeLabel(r Result) string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.Succeeded:
		return "success"
	default:
		return "failure"
	}
}

// batchKind labels a batch for metrics by its first operation; mixed
// batches are rare and keep the first kind's label.
func batchKind(ops []Operation) Kind {
	if len(ops) == 0 {
		return ""
	}
	return ops[0].Kind
}
