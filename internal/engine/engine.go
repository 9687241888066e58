// Package engine выполняет экспорт: основной захват, обрезка и кодирование,
// а при сбое захвата реконструкция по геометрии.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/memeshot/internal/analyzer"
	"github.com/ivlev/memeshot/internal/capture"
	"github.com/ivlev/memeshot/internal/config"
	"github.com/ivlev/memeshot/internal/geometry"
	"github.com/ivlev/memeshot/internal/layout"
	"github.com/ivlev/memeshot/internal/logging"
	"github.com/ivlev/memeshot/internal/output"
	"github.com/ivlev/memeshot/internal/renderer"
	"github.com/ivlev/memeshot/internal/scene"
	"github.com/ivlev/memeshot/internal/system"
)

// Sink принимает закодированное изображение.
type Sink interface {
	Emit(ctx context.Context, data []byte, filename string) error
}

// Notifier сообщает пользователю итог экспорта. На каждый экспорт
// вызывается ровно один из методов.
type Notifier interface {
	Success(Result)
	Failure(error)
}

// Request описывает один экспорт снимка сцены.
type Request struct {
	Scene    *scene.Scene
	Document capture.Document
	Metrics  layout.Metrics
}

type Result struct {
	RunID    string
	Filename string
	Outcome  OutcomeKind
	Width    int
	Height   int
	Bytes    int
	Elapsed  time.Duration
}

type Exporter struct {
	Rasterizer capture.Rasterizer // nil: always reconstruct
	Compositor *renderer.Compositor
	Sink       Sink
	Notifier   Notifier
	Logger     *slog.Logger

	Tolerance      uint8
	Scale          float64
	CaptureTimeout time.Duration // zero: none
	LoadTimeout    time.Duration // zero: none

	// OnTransition, если задан, видит каждую смену состояния.
	OnTransition func(from, to State)
	Now          func() time.Time

	lock *semaphore.Weighted
}

// New собирает экспортер по конфигурации.
func New(cfg *config.Config, r capture.Rasterizer, c *renderer.Compositor, sink Sink, n Notifier) (*Exporter, error) {
	captureTimeout, err := cfg.CaptureTimeoutDuration()
	if err != nil {
		return nil, err
	}
	loadTimeout, err := cfg.LoadTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = renderer.NewCompositor(nil)
	}
	c.Scale = cfg.Scale

	return &Exporter{
		Rasterizer:     r,
		Compositor:     c,
		Sink:           sink,
		Notifier:       n,
		Tolerance:      uint8(cfg.Tolerance),
		Scale:          cfg.Scale,
		CaptureTimeout: captureTimeout,
		LoadTimeout:    loadTimeout,
		lock:           semaphore.NewWeighted(1),
	}, nil
}

// Export выполняет один экспорт. Одновременно идет только один экспорт,
// остальные вызовы ждут блокировку или отмену ctx.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if e.lock == nil {
		e.lock = semaphore.NewWeighted(1)
	}

	r := &run{
		e:     e,
		id:    uuid.New().String(),
		state: Idle,
		start: e.now(),
	}
	r.log = logging.Or(e.Logger).With("run", r.id)

	if err := e.lock.Acquire(ctx, 1); err != nil {
		return nil, r.fail(err)
	}
	defer e.lock.Release(1)

	res, err := r.export(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}

	r.to(Done)
	r.log.Info("export done", "file", res.Filename, "outcome", res.Outcome, "size", fmt.Sprintf("%dx%d", res.Width, res.Height))
	if e.Notifier != nil {
		e.Notifier.Success(*res)
	}
	return res, nil
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

type run struct {
	e     *Exporter
	id    string
	state State
	start time.Time
	log   *slog.Logger
}

func (r *run) to(s State) {
	if !CanTransition(r.state, s) {
		panic(fmt.Sprintf("engine: illegal transition %s -> %s", r.state, s))
	}
	from := r.state
	r.state = s
	r.log.Debug("transition", "from", from, "to", s)
	if r.e.OnTransition != nil {
		r.e.OnTransition(from, s)
	}
}

func (r *run) fail(err error) error {
	r.to(Failed)
	r.log.Warn("export failed", "error", err)
	if r.e.Notifier != nil {
		r.e.Notifier.Failure(err)
	}
	return err
}

func (r *run) export(ctx context.Context, req Request) (*Result, error) {
	if req.Document == nil {
		return nil, ErrTargetMissing
	}
	includeBars := req.Scene != nil && (req.Scene.HasHeaderText() || req.Scene.HasFooterText())
	target, err := req.Document.Target(includeBars)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTargetMissing, err)
	}
	// Пустая сцена не экспортируется ни одним из путей
	if !geometry.HasContent(req.Scene) {
		return nil, fmt.Errorf("%w: %w", ErrExportUnavailable, geometry.ErrNoContent)
	}

	r.to(Capturing)
	out := r.capture(ctx, target)

	switch out.Kind {
	case Captured:
		r.to(Trimming)
		before := out.Buffer.Bounds().Size()
		trimmed := analyzer.Trim(out.Buffer, r.e.Tolerance)
		if trimmed != out.Buffer {
			system.PutImage(out.Buffer)
			out.Buffer = trimmed
		}
		r.log.Debug("trimmed", "from", before, "to", out.Buffer.Bounds().Size())
	default:
		r.log.Warn("primary capture failed, reconstructing", "error", out.Err)
		r.to(Reconstructing)
		out = r.reconstruct(ctx, req)
		if out.Kind == OutcomeFailed {
			return nil, out.Err
		}
	}

	r.to(Encoding)
	return r.encode(ctx, out)
}

// capture запускает основной растеризатор со скрытыми плейсхолдерами и без
// теней. Состояние отображения восстанавливается на любом пути, включая панику.
func (r *run) capture(ctx context.Context, target capture.Target) (out Outcome) {
	if r.e.Rasterizer == nil {
		return failed(fmt.Errorf("%w: no rasterizer configured", ErrRasterizerFailure))
	}
	w, h := target.Size()
	if w <= 0 || h <= 0 {
		return failed(fmt.Errorf("%w: target has no size (%gx%g)", ErrRasterizerFailure, w, h))
	}

	guard := capture.Conceal(target)
	defer guard.Restore()
	defer func() {
		if p := recover(); p != nil {
			out = failed(fmt.Errorf("%w: panic: %v", ErrRasterizerFailure, p))
		}
	}()

	if r.e.CaptureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.e.CaptureTimeout)
		defer cancel()
	}

	opts := capture.DefaultOptions(w, h)
	if r.e.Scale > 0 {
		opts.Scale = r.e.Scale
	}

	buf, err := r.e.Rasterizer.Render(ctx, target, opts)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrRasterizerFailure, err))
	}
	if buf == nil || buf.Bounds().Empty() {
		return failed(fmt.Errorf("%w: empty result", ErrRasterizerFailure))
	}
	return captured(buf)
}

// reconstruct перерисовывает сцену по геометрии.
func (r *run) reconstruct(ctx context.Context, req Request) Outcome {
	g, err := geometry.Resolve(req.Scene, req.Metrics)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrExportUnavailable, err))
	}

	if r.e.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.e.LoadTimeout)
		defer cancel()
	}

	c := r.e.Compositor
	if c == nil {
		c = renderer.NewCompositor(nil)
	}
	if c.Logger == nil {
		// Сохраняем id запуска в сообщениях компоновщика
		cc := *c
		cc.Logger = r.log
		c = &cc
	}

	buf, err := c.Compose(ctx, req.Scene, g)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrExportUnavailable, err))
	}
	return reconstructed(buf)
}

func (r *run) encode(ctx context.Context, out Outcome) (*Result, error) {
	data, err := encodePNG(out.Buffer)
	b := out.Buffer.Bounds()
	system.PutImage(out.Buffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	filename := output.Filename(r.e.now())
	if r.e.Sink == nil {
		return nil, fmt.Errorf("%w: no output sink", ErrEncoding)
	}
	if err := r.e.Sink.Emit(ctx, data, filename); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return &Result{
		RunID:    r.id,
		Filename: filename,
		Outcome:  out.Kind,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Bytes:    len(data),
		Elapsed:  r.e.now().Sub(r.start),
	}, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
