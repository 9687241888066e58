package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/memeshot/internal/capture"
	"github.com/ivlev/memeshot/internal/config"
	"github.com/ivlev/memeshot/internal/engine"
	"github.com/ivlev/memeshot/internal/fonts"
	"github.com/ivlev/memeshot/internal/layout"
	"github.com/ivlev/memeshot/internal/logging"
	"github.com/ivlev/memeshot/internal/output"
	"github.com/ivlev/memeshot/internal/renderer"
	"github.com/ivlev/memeshot/internal/scene"
	"github.com/ivlev/memeshot/internal/source"
	"github.com/ivlev/memeshot/internal/system"
	"github.com/ivlev/memeshot/internal/view"
	"github.com/ivlev/memeshot/internal/watch"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	background string
	initPath   string
	all        bool
	watch      bool
}

func parseFlags(args []string) (*config.Config, options, error) {
	var opts options
	fs := flag.NewFlagSet("memeshot", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", "", "Файл конфигурации (.yaml или .toml)")
	input := fs.String("input", "scenes", "Файл сцены или папка (из папки берется самая свежая сцена)")
	outDir := fs.String("output", "", "Папка для результатов")
	fs.StringVar(&opts.background, "background", "", "Заменить фон: файл изображения или папка, из которой берется самое свежее")
	fs.StringVar(&opts.initPath, "init", "", "Создать шаблон сцены по указанному пути и выйти")
	fs.BoolVar(&opts.all, "all", false, "Экспортировать все сцены из папки")
	fs.BoolVar(&opts.watch, "watch", false, "Следить за папкой и экспортировать измененные сцены")
	tolerance := fs.Int("tolerance", 0, "Допуск обрезки полей (0-255)")
	scale := fs.Float64("scale", 0, "Масштаб экспорта (pixel ratio)")
	viewport := fs.Int("viewport", 0, "Ширина колонки редактора в CSS px")
	captureTimeout := fs.String("capture-timeout", "", "Таймаут основного захвата, например 5s")
	loadTimeout := fs.String("load-timeout", "", "Таймаут загрузки изображений, например 10s")
	fallback := fs.Bool("fallback", false, "Без основного захвата, только реконструкция")
	preview := fs.Bool("preview", false, "Показать результат прямо в iTerm2")
	font := fs.String("font", "", "Шрифт TTF/OTF для разметки и реконструкции")
	workers := fs.Int("workers", 0, "Потоки загрузки сцен для -all")
	stats := fs.Bool("stats", false, "Печатать отчет о производительности")
	verbose := fs.Bool("v", false, "Отладочный лог")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, opts, err
		}
		cfg = loaded
	}

	// Явно заданные флаги важнее файла конфигурации
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *input
		case "output":
			cfg.OutputDir = *outDir
		case "tolerance":
			cfg.Tolerance = *tolerance
		case "scale":
			cfg.Scale = *scale
		case "viewport":
			cfg.ViewportWidth = *viewport
		case "capture-timeout":
			cfg.CaptureTimeout = *captureTimeout
		case "load-timeout":
			cfg.LoadTimeout = *loadTimeout
		case "fallback":
			cfg.FallbackOnly = *fallback
		case "preview":
			cfg.Preview = *preview
		case "font":
			cfg.FontPath = *font
		case "workers":
			cfg.Workers = *workers
		case "stats":
			cfg.ShowStats = *stats
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if cfg.InputPath == "" {
		cfg.InputPath = *input
	}
	cfg.BuildVersion = version

	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.initPath != "" {
		if err := scene.Write(starterScene(), opts.initPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "[+++] Успех! Шаблон сцены сохранен: %s\n", opts.initPath)
		return nil
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	log := logging.Logger()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}

	app, err := newApp(cfg, opts, stdout)
	if err != nil {
		return err
	}
	if used, total, err := system.MemoryUsage(); err == nil {
		log.Debug("memory", "used_mib", used, "total_mib", total)
	}

	start := time.Now()
	defer func() {
		if !cfg.ShowStats {
			return
		}
		report := app.notifier.report(cfg, time.Since(start))
		report.Print(stdout)
		if err := report.AppendLog(filepath.Join(cfg.OutputDir, "benchmark.log"), time.Now()); err != nil {
			log.Warn("benchmark log", "error", err)
		}
	}()

	switch {
	case opts.watch:
		w := watch.New(cfg.InputPath)
		w.Logger = log
		fmt.Fprintf(stdout, "[*] Слежу за папкой: %s\n", cfg.InputPath)
		return w.Run(ctx, func(ctx context.Context, path string) {
			// Ошибки уже показал notifier
			_, _ = app.exportFile(ctx, path)
		})
	case opts.all:
		return app.exportAll(ctx, cfg.InputPath)
	}

	path := cfg.InputPath
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		latest, err := scene.FindLatest(path)
		if err != nil {
			return fmt.Errorf("%w. Положите файл сцены в %s", err, path)
		}
		path = latest
		fmt.Fprintf(stdout, "[*] Выбрана сцена: %s\n", path)
	}
	_, err = app.exportFile(ctx, path)
	return err
}

// starterScene is the editor's initial layout: both bars and one centred
// field, no background yet.
func starterScene() *scene.Scene {
	return &scene.Scene{
		TextFields: []scene.TextField{
			{ID: 1, Kind: scene.KindHeader, Text: "TOP TEXT", FontSize: 48, Opacity: 100, Scale: 1},
			{ID: 2, Kind: scene.KindRegular, X: 50, Y: 50, FontSize: 48, Color: "#ffffff", Opacity: 100, Scale: 1},
			{ID: 3, Kind: scene.KindFooter, Text: "BOTTOM TEXT", FontSize: 48, Opacity: 100, Scale: 1},
		},
	}
}

type app struct {
	cfg        *config.Config
	background string
	estimator  *layout.Estimator
	exporter   *engine.Exporter
	notifier   *consoleNotifier
}

func newApp(cfg *config.Config, opts options, stdout io.Writer) (*app, error) {
	log := logging.Logger()

	var fam *fonts.Family
	if cfg.FontPath != "" {
		f, err := fonts.LoadFile(cfg.FontPath)
		if err != nil {
			return nil, err
		}
		fam = f
	}

	estimator := layout.NewEstimator(float64(cfg.ViewportWidth))
	if fam != nil {
		estimator.Fonts = fam
	}

	var rasterizer capture.Rasterizer
	if !cfg.FallbackOnly {
		rasterizer = &capture.FitzRasterizer{Logger: log}
	}

	files := &output.FileSink{Dir: cfg.OutputDir}
	sinks := output.MultiSink{files}
	if cfg.Preview {
		term := &output.TerminalSink{Out: os.Stdout}
		if term.IsCompatible() {
			sinks = append(sinks, term)
		} else {
			log.Warn("preview needs an iTerm2 terminal, skipping")
		}
	}

	notifier := &consoleNotifier{out: stdout, files: files}
	exporter, err := engine.New(cfg, rasterizer, renderer.NewCompositor(fam), sinks, notifier)
	if err != nil {
		return nil, err
	}
	exporter.Logger = log

	background := opts.background
	if background != "" {
		latest, err := system.FindLatestImage(background)
		if err != nil {
			return nil, err
		}
		background = latest
	}

	return &app{
		cfg:        cfg,
		background: background,
		estimator:  estimator,
		exporter:   exporter,
		notifier:   notifier,
	}, nil
}

// exportFile загружает снимок сцены и экспортирует его.
func (a *app) exportFile(ctx context.Context, path string) (*engine.Result, error) {
	s, err := scene.Read(path)
	if err != nil {
		a.notifier.Failure(err)
		return nil, err
	}
	if a.background != "" {
		s.BackgroundSrc = a.background
		s.Background = nil
	}

	s.Open(ctx, source.NewFileLoader(filepath.Dir(path)))
	if err := a.waitImages(ctx, s); err != nil {
		a.notifier.Failure(err)
		return nil, err
	}

	m := a.estimator.Measure(s)
	return a.exporter.Export(ctx, engine.Request{
		Scene:    s,
		Document: view.Build(s, m),
		Metrics:  m,
	})
}

// waitImages ждет изображения до таймаута загрузки. Не успевшие загрузиться
// не попадают в захват и пропускаются реконструкцией.
func (a *app) waitImages(ctx context.Context, s *scene.Scene) error {
	wctx := ctx
	if d, _ := a.cfg.LoadTimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	err := s.WaitImages(wctx)
	if err != nil && ctx.Err() == nil {
		logging.Logger().Warn("images still loading", "error", err)
		return nil
	}
	return err
}

func (a *app) exportAll(ctx context.Context, dir string) error {
	paths, err := sceneFiles(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("в папке %s не найдено сцен", dir)
	}

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, path := range paths {
		g.Go(func() error {
			if _, err := a.exportFile(ctx, path); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func sceneFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// consoleNotifier печатает строку на каждый экспорт и ведет счет для отчета.
type consoleNotifier struct {
	out   io.Writer
	files *output.FileSink

	mu            sync.Mutex
	exports       int
	reconstructed int
	failed        int
	slowest       time.Duration
}

func (n *consoleNotifier) Success(r engine.Result) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.exports++
	if r.Outcome == engine.Reconstructed {
		n.reconstructed++
	}
	if r.Elapsed > n.slowest {
		n.slowest = r.Elapsed
	}

	// реконструкция для пользователя не отличается от обычного экспорта
	fmt.Fprintf(n.out, "[+++] Успех! Результат: %s (%dx%d)\n", n.files.Path(r.Filename), r.Width, r.Height)
}

func (n *consoleNotifier) Failure(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.failed++
	fmt.Fprintf(n.out, "[-] Экспорт не удался: %v\n", err)
}

func (n *consoleNotifier) report(cfg *config.Config, total time.Duration) system.Report {
	n.mu.Lock()
	defer n.mu.Unlock()

	return system.Report{
		Build:         cfg.BuildVersion,
		Input:         cfg.InputPath,
		Exports:       n.exports,
		Reconstructed: n.reconstructed,
		Failed:        n.failed,
		Total:         total,
		Slowest:       n.slowest,
		Pool:          system.SharedStats(),
	}
}
