package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/captaintwin/itnews-portal/internal/config"
	"github.com/captaintwin/itnews-portal/internal/extract"
	"github.com/captaintwin/itnews-portal/internal/fetcher"
	"github.com/captaintwin/itnews-portal/internal/model"
	"github.com/captaintwin/itnews-portal/internal/pipeline"
	"github.com/captaintwin/itnews-portal/internal/poster"
	"github.com/captaintwin/itnews-portal/internal/report"
	"github.com/captaintwin/itnews-portal/internal/state"
	"github.com/captaintwin/itnews-portal/internal/storage"
	"github.com/captaintwin/itnews-portal/internal/telegram"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd := args[0]; cmd {
	case "collect":
		err = runCollect(ctx, cfg, log)
	case "select":
		err = runSelect(ctx, cfg, log)
	case "schedule":
		err = runSchedule(cfg, log)
	case "run":
		err = runAll(ctx, cfg, log)
	case "post":
		err = runPost(ctx, cfg, log, args[1:])
	case "report":
		err = sendPlanReport(cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: itnews <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  collect              Fetch feeds and save the candidates snapshot")
	fmt.Fprintln(os.Stderr, "  select               Deduplicate, rank and save the selection")
	fmt.Fprintln(os.Stderr, "  schedule             Build the publication schedule and send the plan report")
	fmt.Fprintln(os.Stderr, "  run                  collect + select + schedule in one go")
	fmt.Fprintln(os.Stderr, "  post [--instant|--half]  Deliver scheduled items to the channel")
	fmt.Fprintln(os.Stderr, "  report               Re-send the publication plan report")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func openStore(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	log.Debug("database open", "path", cfg.DatabasePath)
	return store, nil
}

func newPipeline(cfg *config.Config, store storage.Storage, log *slog.Logger) *pipeline.Pipeline {
	client := &http.Client{Timeout: cfg.RequestTimeout()}
	return pipeline.New(cfg, store, fetcher.New(client), extract.New(client), log)
}

func runCollect(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	_, err = newPipeline(cfg, store, log).Collect(ctx)
	return err
}

func runSelect(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	_, err = newPipeline(cfg, store, log).Select(ctx)
	return err
}

func runSchedule(cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := newPipeline(cfg, store, log).BuildSchedule()
	if err != nil || len(entries) == 0 {
		return err
	}
	return sendPlanReport(cfg, log)
}

func runAll(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p := newPipeline(cfg, store, log)

	items, err := p.Collect(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Warn("no news collected, stopping")
		return nil
	}

	selection, err := p.Select(ctx)
	if err != nil {
		return err
	}
	if len(selection) == 0 {
		log.Warn("nothing selected, stopping")
		return nil
	}

	entries, err := p.BuildSchedule()
	if err != nil || len(entries) == 0 {
		return err
	}

	return sendPlanReport(cfg, log)
}

// sendPlanReport loads the current plan, keeps a plain-text copy on disk and
// sends it to the report chat. A missing schedule snapshot is an error, but
// report delivery itself always fails soft.
func sendPlanReport(cfg *config.Config, log *slog.Logger) error {
	entries, selection, err := loadPlan(cfg, log)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Warn("no schedule to report")
		return nil
	}

	text := report.FormatPlan(entries, selection, time.Now().In(cfg.Location()))

	if err := os.WriteFile(cfg.ReportFile(), []byte(report.PlainText(text)), 0o600); err != nil {
		log.Warn("write report file", "path", cfg.ReportFile(), "error", err)
	}

	if err := cfg.ValidateReport(); err != nil {
		log.Warn("report chat not configured, skipping", "error", err)
		return nil
	}
	m, err := telegram.New(cfg.ReportToken, cfg.ReportChat, log)
	if err != nil {
		log.Warn("create report messenger", "error", err)
		return nil
	}
	if err := m.SendReport(text); err != nil {
		log.Warn("send plan report", "error", err)
		return nil
	}
	log.Info("plan report sent", "items", len(entries))
	return nil
}

func loadPlan(cfg *config.Config, log *slog.Logger) ([]model.ScheduleEntry, model.Selection, error) {
	entries, err := state.Load[[]model.ScheduleEntry](cfg.ScheduleFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("no schedule snapshot, run schedule first: %w", err)
		}
		log.Warn("schedule snapshot unreadable, treating as empty", "error", err)
	}
	selection, err := state.Load[model.Selection](cfg.SelectionFile())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("selection snapshot unreadable, treating as empty", "error", err)
	}
	return entries, selection, nil
}

func runPost(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	flags := flag.NewFlagSet("post", flag.ExitOnError)
	instant := flags.Bool("instant", false, "publish all unsent items immediately")
	half := flags.Bool("half", false, "publish one half of the selection, spaced evenly")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := cfg.ValidateChannel(); err != nil {
		return err
	}

	selection, entries, err := loadPostInputs(cfg, log, *instant || *half)
	if err != nil {
		return err
	}
	if len(selection) == 0 && len(entries) == 0 {
		log.Warn("nothing to post")
		return nil
	}

	tracker := state.LoadTracker(cfg.DeliveryStateFile(), cfg.Retention(), log)

	m, err := telegram.New(cfg.TelegramToken, cfg.TelegramChat, log)
	if err != nil {
		return fmt.Errorf("create messenger: %w", err)
	}

	p := poster.New(selection, entries, tracker, m, log)
	p.SetTickInterval(cfg.PollInterval())
	p.SetPause(cfg.InstantPause())

	switch {
	case *instant:
		log.Info("instant mode: publishing all unsent items")
		p.Instant(ctx)
	case *half:
		p.Half(ctx, cfg.HalfCutoffHour, cfg.HalfSpan())
	default:
		log.Info("posting on schedule", "entries", len(entries), "poll", cfg.PollInterval())
		p.Run(ctx)
	}
	return nil
}

// loadPostInputs reads the selection and schedule snapshots. Both missing is
// an unrecoverable setup error; one missing degrades per mode (instant and
// half modes only need the selection).
func loadPostInputs(cfg *config.Config, log *slog.Logger, selectionOnly bool) (model.Selection, []model.ScheduleEntry, error) {
	selection, selErr := state.Load[model.Selection](cfg.SelectionFile())
	if selErr != nil && !errors.Is(selErr, fs.ErrNotExist) {
		log.Warn("selection snapshot unreadable, treating as empty", "error", selErr)
		selErr = nil
	}

	entries, schedErr := state.Load[[]model.ScheduleEntry](cfg.ScheduleFile())
	if schedErr != nil && !errors.Is(schedErr, fs.ErrNotExist) {
		log.Warn("schedule snapshot unreadable, treating as empty", "error", schedErr)
		schedErr = nil
	}

	if selErr != nil && schedErr != nil {
		return nil, nil, fmt.Errorf("no selection and no schedule, run the pipeline first: %w", selErr)
	}
	if selectionOnly {
		if selErr != nil {
			return nil, nil, fmt.Errorf("no selection snapshot, run select first: %w", selErr)
		}
		return selection, nil, nil
	}
	if schedErr != nil {
		log.Warn("no schedule snapshot, nothing due")
		return selection, nil, nil
	}
	return selection, entries, nil
}
