package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/config"
	"github.com/l1jgo/assetstage/internal/decode"
	"github.com/l1jgo/assetstage/internal/loadstate"
	"github.com/l1jgo/assetstage/internal/overlay"
	"github.com/l1jgo/assetstage/internal/persist"
	"github.com/l1jgo/assetstage/internal/scripting"
	"github.com/l1jgo/assetstage/internal/stage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, tick time.Duration) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             assetstage  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     async asset loading · scene stage     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mstage:\033[0m %s \033[90m(tick: %s)\033[0m\n\n", name, tick)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := strconv.Itoa(count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ──────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/assetstage.toml"
	if p := os.Getenv("ASSETSTAGE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Stage.Name, cfg.Stage.TickRate)

	// 3. Optional load journal
	var journal persist.Writer
	if cfg.Journal.Enabled {
		printSection("Journal")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("journal database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("schema at version %d", version))

		repo := persist.NewJournalRepo(db, fmt.Sprintf("%d-%d", cfg.Stage.StartTime, os.Getpid()))
		failed, err := repo.LastFailures(ctx)
		if err != nil {
			return fmt.Errorf("journal history: %w", err)
		}
		printStat("previously failed assets", len(failed))
		for _, rec := range failed {
			log.Warn("asset failed in an earlier run",
				zap.String("asset", rec.Ticket),
				zap.String("path", rec.Path),
				zap.String("error", rec.Error),
				zap.Time("at", rec.At))
		}
		journal = repo
		fmt.Println()
	}

	// 4. Reveal policy
	printSection("Scripting")
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printStat("lua scripts", engine.Loaded())
	fmt.Println()

	// 5. Build the stage; decodes start here
	printSection("Assets")
	var sink overlay.Sink = overlay.WriterSink{W: os.Stdout}
	if cfg.Overlay.Output == "log" {
		sink = overlay.LogSink{Log: log}
	}
	st, err := stage.New(stage.Options{
		Config:  cfg,
		Decoder: decode.New(),
		Log:     log,
		Policy:  engine,
		Sink:    sink,
		Journal: journal,
	}, time.Now())
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	printStat("requested", len(st.Tickets()))
	printStat("decode workers", cfg.Assets.Workers)

	if cfg.Assets.Watch {
		w, err := asset.NewWatcher(st.WatchDirs()...)
		if err != nil {
			return fmt.Errorf("watch assets: %w", err)
		}
		defer w.Close()
		st.Watch(w)
		printOK("watching asset directories for changes")
	}
	fmt.Println()

	// 6. Cycle loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Stage.TickRate)
	defer ticker.Stop()

	printSection("Running")
	printReady(fmt.Sprintf("cycle loop started (tick: %s)", cfg.Stage.TickRate))
	if cfg.Stage.MaxCycles > 0 {
		printReady(fmt.Sprintf("stopping after %d cycles", cfg.Stage.MaxCycles))
	}
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			f := st.Step(now, now.Sub(last))
			last = now
			if cfg.Stage.MaxCycles > 0 && f.Cycle >= cfg.Stage.MaxCycles {
				log.Info("cycle limit reached", zap.Uint64("cycles", f.Cycle), zap.Stringer("state", f.State))
				return shutdown(st, log)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return shutdown(st, log)
		}
	}
}

func shutdown(st *stage.Stage, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		log.Error("final journal flush failed", zap.Error(err))
	}
	if st.State() != loadstate.Loaded {
		pending, failed := st.Tracker.Blocking()
		log.Warn("stopped before assets loaded",
			zap.Int("pending", len(pending)),
			zap.Int("failed", len(failed)),
			zap.Duration("waited", st.Tracker.TimeInLoading(time.Now())))
	}
	log.Info("stage stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
