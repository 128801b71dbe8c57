package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"subtitld/internal/config"
	"subtitld/internal/engine"
	"subtitld/internal/gpu"
	"subtitld/internal/httpapi"
	"subtitld/internal/jobs"
	"subtitld/internal/manager"
	"subtitld/internal/presets"
	"subtitld/internal/registry"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subtitld",
		Short:         "Subtitle generation server with a resource-aware model cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		cfgPath    string
		flags      config.Config
		originsCSV string
		gpuDevice  int
		noGPU      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional and never overrides real environment.
			_ = godotenv.Load()

			cfg := config.Defaults()
			if cfgPath == "" {
				cfgPath = os.Getenv("SUBTITLD_CONFIG")
			}
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", cfgPath, err)
				}
				cfg = config.Merge(cfg, fileCfg)
			}
			if flags.Addr == "" {
				flags.Addr = os.Getenv("SUBTITLD_ADDR")
			}
			cfg = config.Merge(cfg, flags)
			if originsCSV != "" {
				cfg.AllowedOrigins = splitCSV(originsCSV)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runServe(cfg, gpuDevice, noGPU)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&cfgPath, "config", "c", "", "config file (.yaml/.yml/.json/.toml)")
	fl.StringVar(&flags.Addr, "addr", "", "HTTP listen address, e.g. :8000")
	fl.StringVar(&flags.ModelsDir, "models-dir", "", "directory to scan for whisper model files")
	fl.StringVar(&flags.WhisperBin, "whisper-bin", "", "whisper.cpp CLI binary name or path")
	fl.StringVar(&flags.WhisperServerURL, "whisper-server-url", "", "base URL of a running whisper server")
	fl.IntVar(&flags.Threads, "threads", 0, "inference threads for local engines")
	fl.IntVar(&flags.MaxCachedModels, "max-cached-models", 0, "maximum resident loaded models")
	fl.Float64Var(&flags.VRAMLimitPercent, "vram-limit-percent", 0, "evict cached models at this VRAM usage")
	fl.IntVar(&flags.Workers, "workers", 0, "transcription worker pool size")
	fl.IntVar(&flags.QueueDepth, "queue-depth", 0, "submission backlog size")
	fl.IntVar(&flags.MaxJobs, "max-jobs", 0, "tracked jobs before cleanup sweeps run")
	fl.IntVar(&flags.MaxUploadMB, "max-upload-mb", 0, "maximum audio upload size in MB")
	fl.StringVar(&flags.DefaultEngine, "default-engine", "", "engine used when a submission omits one")
	fl.StringVar(&flags.DefaultModelSize, "default-model-size", "", "model size used when a submission omits one")
	fl.StringVar(&flags.PresetsDir, "presets-dir", "", "directory of preset JSON files")
	fl.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fl.StringVar(&originsCSV, "cors-origins", "", "comma-separated allowed CORS origins")
	fl.IntVar(&gpuDevice, "gpu-device", 0, "nvidia device index to monitor")
	fl.BoolVar(&noGPU, "no-gpu", false, "disable GPU monitoring entirely")
	return cmd
}

func runServe(cfg config.Config, gpuDevice int, noGPU bool) error {
	log := newLogger(cfg.LogLevel)

	models, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("model scan failed, local engines may not load")
	} else {
		log.Info().Int("count", len(models)).Str("dir", cfg.ModelsDir).Msg("model files discovered")
	}

	var monitor gpu.Monitor = gpu.Disabled{}
	if !noGPU {
		monitor = gpu.NewNvidiaMonitor(gpuDevice, log)
	}

	factory := engine.NewFactory(engine.FactoryConfig{
		WhisperBin: cfg.WhisperBin,
		ServerURL:  cfg.WhisperServerURL,
		Models:     models,
		Threads:    cfg.Threads,
		Log:        log,
	})
	log.Info().Strs("engines", factory.AvailableNames()).Msg("engines registered")

	cache := manager.New(manager.Config{
		Factory:          factory,
		Monitor:          monitor,
		MaxModels:        cfg.MaxCachedModels,
		VRAMLimitPercent: cfg.VRAMLimitPercent,
		Log:              log,
	})
	jobRegistry := jobs.NewRegistry(cfg.MaxJobs, log)
	runner := jobs.NewRunner(jobs.RunnerConfig{
		Registry:   jobRegistry,
		Cache:      cache,
		Monitor:    monitor,
		Workers:    cfg.Workers,
		QueueDepth: cfg.QueueDepth,
		Log:        log,
	})
	runner.Start()

	presetList, err := presets.LoadDir(cfg.PresetsDir, log)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.PresetsDir).Msg("preset load failed")
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Runner:           runner,
		Jobs:             jobRegistry,
		Cache:            cache,
		Monitor:          monitor,
		Presets:          presetList,
		DefaultEngine:    cfg.DefaultEngine,
		DefaultModelSize: cfg.DefaultModelSize,
		MaxUploadBytes:   int64(cfg.MaxUploadMB) << 20,
		AllowedOrigins:   cfg.AllowedOrigins,
		Log:              log,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("version", version).Msg("subtitld listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown incomplete")
		}
		if err := runner.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("worker drain incomplete")
		}
		cache.Clear()
		return nil
	})
	return g.Wait()
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
