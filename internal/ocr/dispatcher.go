package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MeKo-Tech/docnorm/internal/fields"
	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// DefaultWorkers bounds concurrent per-field recognition calls.
const DefaultWorkers = 4

// EngineResults is one engine's output for a document.
type EngineResults struct {
	Engine string        `json:"engine"`
	OCR    []FieldResult `json:"ocr"`
}

// Observer receives one call per finished engine run.
type Observer interface {
	ObserveEngine(engine string, fieldCount int, price float64, elapsed time.Duration, err error)
}

// Dispatcher runs fields through registered engines.
type Dispatcher struct {
	registry *Registry
	workers  int
	limiter  *rate.Limiter
	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the per-field worker pool size.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRateLimit caps per-field engine calls at rps per second. Zero disables
// the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// NewDispatcher returns a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		workers:  min(DefaultWorkers, runtime.NumCPU()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry exposes the engines this dispatcher can reach.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Extract crops descriptors out of normalized and recognizes them with the
// named engine. Results are in descriptor order.
func (d *Dispatcher) Extract(ctx context.Context, normalized *raster.Raster, descriptors []fields.Descriptor,
	engineName, lang string,
) ([]FieldResult, error) {
	if err := d.registry.Check(engineName); err != nil {
		return nil, err
	}
	crops, err := fields.CropAll(normalized, descriptors)
	if err != nil {
		return nil, err
	}
	return d.run(ctx, crops, engineName, lang)
}

// ExtractAll runs every named engine over the same document, in order. An
// unknown name fails the call before any engine starts.
func (d *Dispatcher) ExtractAll(ctx context.Context, normalized *raster.Raster, descriptors []fields.Descriptor,
	engines []string, lang string,
) ([]EngineResults, error) {
	out := make([]EngineResults, 0, len(engines))
	err := d.ExtractEach(ctx, normalized, descriptors, engines, lang, func(r EngineResults) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractEach is ExtractAll with results handed to fn as each engine
// finishes. An error from fn stops the run.
func (d *Dispatcher) ExtractEach(ctx context.Context, normalized *raster.Raster, descriptors []fields.Descriptor,
	engines []string, lang string, fn func(EngineResults) error,
) error {
	if len(engines) == 0 {
		return fmt.Errorf("%w: no engine requested", ErrUnsupportedEngine)
	}
	if err := d.registry.Check(engines...); err != nil {
		return err
	}
	crops, err := fields.CropAll(normalized, descriptors)
	if err != nil {
		return err
	}
	for _, name := range engines {
		res, err := d.run(ctx, crops, name, lang)
		if err != nil {
			return err
		}
		if err := fn(EngineResults{Engine: name, OCR: res}); err != nil {
			return err
		}
	}
	return nil
}

// run drives one engine through startup, extraction and cleanup. With no
// crops the engine is never created.
func (d *Dispatcher) run(ctx context.Context, crops []fields.Crop, name, lang string) (results []FieldResult, err error) {
	if len(crops) == 0 {
		return []FieldResult{}, nil
	}

	engine, err := d.registry.New(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if cerr := engine.Cleanup(); cerr != nil {
			slog.Warn("Engine cleanup failed", "engine", name, "error", cerr)
		}
		if d.observer != nil {
			d.observer.ObserveEngine(name, len(crops), totalPrice(results), time.Since(start), err)
		}
	}()

	if err := engine.Startup(ctx, lang); err != nil {
		return nil, &EngineError{Engine: name, Phase: "startup", Err: err}
	}

	var raw []Result
	switch e := engine.(type) {
	case BatchCapable:
		raw, err = d.extractBatch(ctx, e, crops)
	case PerFieldCapable:
		raw, err = d.extractPerField(ctx, e, crops)
	default:
		err = errors.New("engine is neither batch nor per-field capable")
	}
	if err != nil {
		return nil, &EngineError{Engine: name, Phase: "extract", Err: err}
	}

	results = make([]FieldResult, len(crops))
	for i, c := range crops {
		results[i] = FieldResult{Field: c.Field, Result: normalizeResult(raw[i], c.Field.IsMultiline)}
	}

	slog.Debug("Engine finished",
		"engine", name,
		"fields", len(crops),
		"price", totalPrice(results),
		"duration", time.Since(start))
	return results, nil
}

func (d *Dispatcher) extractBatch(ctx context.Context, e BatchCapable, crops []fields.Crop) ([]Result, error) {
	composite, err := fields.Merge(crops)
	if err != nil {
		return nil, err
	}
	res, err := e.ExtractBatch(ctx, composite)
	if err != nil {
		return nil, err
	}
	if len(res) != len(crops) {
		return nil, fmt.Errorf("%w: %d results for %d fields", ErrRecognitionEngineFailure, len(res), len(crops))
	}
	return res, nil
}

type fieldJob struct {
	index int
	crop  fields.Crop
}

type fieldOutcome struct {
	index  int
	result Result
	err    error
}

// extractPerField recognizes crops on a bounded worker pool, preserving order.
func (d *Dispatcher) extractPerField(ctx context.Context, e PerFieldCapable, crops []fields.Crop) ([]Result, error) {
	workers := min(d.workers, len(crops))
	if l, ok := e.(ConcurrencyLimiter); ok && l.MaxConcurrency() > 0 {
		workers = min(workers, l.MaxConcurrency())
	}
	workers = max(workers, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan fieldJob)
	outcomes := make(chan fieldOutcome, len(crops))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes <- d.recognize(ctx, e, job)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, c := range crops {
			select {
			case jobs <- fieldJob{index: i, crop: c}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]Result, len(crops))
	done := make([]bool, len(crops))
	var firstErr error
	for o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("field %q: %w", crops[o.index].Field.Name, o.err)
				cancel()
			}
			continue
		}
		results[o.index] = o.result
		done[o.index] = true
	}
	if firstErr != nil {
		return nil, firstErr
	}
	for i := range done {
		if !done[i] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("field %q was not processed", crops[i].Field.Name)
		}
	}
	return results, nil
}

func (d *Dispatcher) recognize(ctx context.Context, e PerFieldCapable, job fieldJob) fieldOutcome {
	if err := ctx.Err(); err != nil {
		return fieldOutcome{index: job.index, err: err}
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fieldOutcome{index: job.index, err: err}
		}
	}
	res, err := e.ExtractField(ctx, job.crop)
	return fieldOutcome{index: job.index, result: res, err: err}
}

// normalizeResult applies the single-line policy and clamps the numbers.
func normalizeResult(r Result, multiline bool) Result {
	if !multiline {
		r.Text = strings.NewReplacer("\r", "", "\n", "").Replace(r.Text)
	}
	switch {
	case math.IsNaN(r.Confidence) || r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	if math.IsNaN(r.Price) || r.Price < 0 {
		r.Price = 0
	}
	return r
}

func totalPrice(results []FieldResult) float64 {
	var sum float64
	for _, r := range results {
		sum += r.Result.Price
	}
	return sum
}
