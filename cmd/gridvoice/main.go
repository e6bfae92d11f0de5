// GridVoice speaks when a live trade price crosses a grid boundary.
//
// Usage:
//
//	gridvoice [-symbol BTCUSDT] [-verbose] [-quiet] [-headless]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/clock"
	"github.com/hammamikhairi/gridvoice/internal/config"
	"github.com/hammamikhairi/gridvoice/internal/display"
	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/engine"
	"github.com/hammamikhairi/gridvoice/internal/feed"
	"github.com/hammamikhairi/gridvoice/internal/grid"
	"github.com/hammamikhairi/gridvoice/internal/logger"
	"github.com/hammamikhairi/gridvoice/internal/settings"
	"github.com/hammamikhairi/gridvoice/internal/speech"
	"github.com/hammamikhairi/gridvoice/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Flags default to the environment-derived values and override them.
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", cfg.LogFile, "file to write logs to (use \"stderr\" to log to console)")
	symbol := flag.String("symbol", cfg.Symbol, "trade stream symbol")
	feedBase := flag.String("feed", cfg.FeedBase, "websocket base URL of the trade stream")
	settingsFile := flag.String("settings", cfg.SettingsFile, "user settings file")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech even if Azure keys are set")
	diskCache := flag.Bool("disk-cache", cfg.DiskCache, "persist TTS audio cache to disk")
	cacheDir := flag.String("cache-dir", cfg.CacheDir, "directory for persistent TTS audio cache")
	redisAddr := flag.String("redis", cfg.RedisAddr, "redis address for a shared audio cache (empty to disable)")
	headless := flag.Bool("headless", false, "run without the terminal view until interrupted")
	flag.Parse()

	// Configure logger.
	logLevel, _ := logger.ParseLevel(cfg.LogLevel) // validated by config.Load
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the view stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		f, err := openLogFile(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v (falling back to stderr)\n", err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Redirect Go's default log package (used by third-party libs) to the
	// same output so it doesn't spam the terminal.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	// Cancelled when the view quits or on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Wire dependencies.
	prefs := settings.Open(*settingsFile, log)
	log.Info("settings file: %s", prefs.Path())
	tracker, err := grid.NewTracker(prefs.Get().Interval)
	if err != nil {
		// Open already replaced invalid values; this is a programming error.
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cache := speech.NewAudioCache(buildStore(ctx, log, *diskCache, *cacheDir, *redisAddr, cfg), log)

	var synth domain.Synthesizer
	if cfg.HasAzure() && !*noSpeech {
		synth = speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, log)
		log.Info("TTS enabled (region=%s)", cfg.AzureSpeechRegion)
	} else {
		synth = speech.NewNoOpSynth(log)
		if !*noSpeech {
			log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		}
	}

	var sink domain.Sink
	fallback := speech.Tone(speech.FallbackFrequency, speech.FallbackDuration, speech.SampleRate)
	player, err := speech.NewPlayer(speech.SampleRate, log)
	if err != nil {
		log.Error("audio player init failed, playback disabled: %v", err)
		sink = speech.NewNoOpSink(log)
	} else {
		sink = player
		fallback = speech.Tone(speech.FallbackFrequency, speech.FallbackDuration, player.SampleRate())
	}

	// The engine is the error reporter for the queue it drives.
	var eng *engine.Engine
	queue := speech.NewQueue(synth, sink, log,
		speech.WithCache(cache),
		speech.WithFallback(fallback),
		speech.WithErrorReporter(domain.ErrorReporterFunc(func(msg string) {
			eng.ReportError(msg)
		})),
	)

	stream := feed.New(feed.URL(*feedBase, *symbol), log,
		feed.WithReconnectDelay(cfg.ReconnectDelay),
		feed.WithStopTimeout(cfg.StopTimeout),
	)
	eng = engine.New(stream, tracker, queue, prefs, log)
	chime := clock.New(eng.OnHour, log)

	if err := stream.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	go eng.Run(ctx)
	chime.Start(ctx)

	if *headless {
		log.Info("running headless on %s; interrupt to stop", *symbol)
		<-ctx.Done()
	} else {
		fmt.Println(display.RenderBanner(*symbol + " grid announcer"))
		ui := display.NewUI(eng)
		go func() {
			<-ctx.Done()
			ui.Quit()
		}()
		// Bubble Tea owns the terminal; blocks until quit.
		if err := ui.Run(); err != nil {
			log.Error("display: %v", err)
		}
	}

	// Ordered shutdown: stop producing, then stop speaking.
	cancel()
	chime.Stop()
	if err := stream.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		log.Warn("feed: %v", err)
	}
	queue.Close()
	if player != nil {
		player.Stop()
	}

	played, dropped := queue.Stats()
	hits, misses := cache.Stats()
	log.Info("shutdown: %d spoken, %d superseded, cache %d/%d hit/miss", played, dropped, hits, misses)
}

// buildStore assembles the persistent cache tiers: disk first, then redis.
// A tier that cannot be opened is logged and skipped.
func buildStore(ctx context.Context, log *logger.Logger, disk bool, dir, redisAddr string, cfg *config.Config) domain.ArtifactStore {
	var tiers []domain.ArtifactStore

	if disk {
		ds, err := storage.NewDiskStore(dir, log)
		if err != nil {
			log.Error("disk cache disabled: %v", err)
		} else {
			log.Info("disk cache at %s", ds.Dir())
			tiers = append(tiers, ds)
		}
	}

	if redisAddr != "" {
		dctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		client, err := storage.DialRedisOptions(dctx, redisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Error("redis cache disabled: %v", err)
		} else {
			tiers = append(tiers, storage.NewRedisStore(client, "", cfg.RedisTTL, log))
			log.Info("redis cache at %s (ttl=%s)", redisAddr, cfg.RedisTTL)
		}
	}

	if len(tiers) == 0 {
		return nil
	}
	return storage.NewTiered(log, tiers...)
}

// openLogFile opens path for appending, creating its directory first.
func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}
	return f, nil
}
