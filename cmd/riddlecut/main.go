package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"riddlecut/pkg/assembly"
	"riddlecut/pkg/audio"
	"riddlecut/pkg/captions"
	"riddlecut/pkg/config"
	"riddlecut/pkg/db"
	"riddlecut/pkg/db/maintenance"
	"riddlecut/pkg/logging"
	"riddlecut/pkg/probe"
	"riddlecut/pkg/store"
	"riddlecut/pkg/version"
	"riddlecut/pkg/video"

	"github.com/joho/godotenv"
)

const defaultConfigPath = "configs/riddlecut.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	jobPath    = flag.String("job", "", "JSON job file with segments, footage and layers")
	outDir     = flag.String("out", "", "Output directory (defaults to render.output_dir)")
)

func main() {
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()
	if p := os.Getenv("RIDDLECUT_CONFIG"); p != "" && *configPath == defaultConfigPath {
		*configPath = p
	}

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if *jobPath == "" {
		fmt.Fprintln(os.Stderr, "usage: riddlecut -job <file.json> [-config path] [-out dir]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := run(ctx, *configPath, *jobPath, *outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(id)
}

// run assembles one job, writes the mixed audio and captions next to the
// timeline, and hands the timeline to the render queue. It returns the
// timeline id.
func run(ctx context.Context, cfgPath, jobFile, out string) (string, error) {
	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return "", fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("riddlecut started", "version", version.Version, "job", jobFile)

	req, err := loadJob(jobFile)
	if err != nil {
		return "", err
	}
	completeLayers(&req, appCfg.Audio.Stings)

	asm, loader, err := newAssembler(appCfg)
	if err != nil {
		return "", err
	}

	if out == "" {
		out = appCfg.Render.OutputDir
	}
	checks := []probe.Probe{
		probe.Dir("asset dir", appCfg.Audio.AssetDir, true),
		probe.Writable("output dir", out),
		probe.Writable("queue dir", filepath.Dir(appCfg.Render.QueuePath)),
		probe.Asset("countdown sting", loader, appCfg.Audio.Stings.Countdown),
		probe.Asset("reveal sting", loader, appCfg.Audio.Stings.Reveal),
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, checks)); err != nil {
		return "", fmt.Errorf("startup checks failed: %w", err)
	}

	if t := appCfg.Assembly.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t))
		defer cancel()
	}

	tl, err := asm.Assemble(ctx, req)
	if err != nil {
		var ae *assembly.Error
		if errors.As(err, &ae) {
			return "", fmt.Errorf("segment %q failed rule %s: %w", ae.SegmentID, ae.Rule, err)
		}
		return "", err
	}

	dir := filepath.Join(out, tl.ID)
	if err := writeArtifacts(dir, tl, loader, appCfg.CaptionStyle()); err != nil {
		return "", err
	}

	if err := enqueue(ctx, appCfg.Render.QueuePath, tl); err != nil {
		return "", err
	}
	return tl.ID, nil
}

func newAssembler(cfg *config.Config) (*assembly.Assembler, audio.AssetLoader, error) {
	policy, bounds, err := cfg.TimingPolicy()
	if err != nil {
		return nil, nil, err
	}

	loader := audio.FileLoader{Root: cfg.Audio.AssetDir}
	mixOpts := cfg.MixOptions()
	mixOpts.Logger = slog.Default().With("component", "mixer")
	vidOpts := cfg.VideoOptions()
	vidOpts.Logger = slog.Default().With("component", "video")

	asm := assembly.New(audio.NewMixer(loader, mixOpts), video.New(vidOpts), assembly.Options{
		Policy:      policy,
		Bounds:      bounds,
		Layout:      cfg.CaptionLayout(),
		Concurrency: cfg.Assembly.Concurrency,
		Logger:      slog.Default().With("component", "assembly"),
	})
	return asm, loader, nil
}

func writeArtifacts(dir string, tl *assembly.Timeline, loader audio.AssetLoader, style captions.Style) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "mix.wav"))
	if err != nil {
		return fmt.Errorf("failed to create mix file: %w", err)
	}
	if err := audio.WriteWAV(f, tl.Audio, loader); err != nil {
		f.Close()
		return fmt.Errorf("failed to render mix: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	ass := captions.RenderASS(tl.Overlays(), style)
	if err := os.WriteFile(filepath.Join(dir, "captions.ass"), []byte(ass), 0o644); err != nil {
		return fmt.Errorf("failed to write captions: %w", err)
	}

	slog.Info("Artifacts written", "dir", dir)
	return nil
}

func enqueue(ctx context.Context, queuePath string, tl *assembly.Timeline) error {
	dbConn, err := db.Init(queuePath)
	if err != nil {
		return fmt.Errorf("failed to open render queue: %w", err)
	}
	defer dbConn.Close()

	st := store.NewSQLiteStore(dbConn)
	if err := maintenance.Run(ctx, st, dbConn, maintenance.DefaultRetention); err != nil {
		slog.Error("Queue maintenance failed", "error", err)
	}

	job, err := store.NewJob(tl.ID, tl, tl.Total, len(tl.Entries))
	if err != nil {
		return err
	}
	if err := st.Enqueue(ctx, job); err != nil {
		return err
	}
	logging.JobLogger.Info("Render job queued", "id", job.ID, "total", job.Total, "segments", job.Segments)
	return nil
}
