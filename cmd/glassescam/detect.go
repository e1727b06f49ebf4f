package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/cobra"

	glassesdetector "github.com/menta2k/glasses-detector"
	"github.com/menta2k/glasses-detector/internal/config"
	"github.com/menta2k/glasses-detector/pkg/camera"
	"github.com/menta2k/glasses-detector/pkg/classify"
	"github.com/menta2k/glasses-detector/pkg/inference"
	"github.com/menta2k/glasses-detector/pkg/llamacpp"
	"github.com/menta2k/glasses-detector/pkg/ollama"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultLlamaCppURL = "http://localhost:8080"
)

var detectFlags struct {
	backend   string
	model     string
	url       string
	device    int
	framesDir string
	fps       float64
	targetFPS int
	loop      bool
}

var detectCmd = &cli.Command{
	Use:   "detect",
	Short: "Classify camera frames and print the debounced glasses state",
	Args:  cli.NoArgs,
	RunE:  runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.StringVarP(&detectFlags.backend, "backend", "b", "", "inference backend: ollama|llamacpp")
	f.StringVarP(&detectFlags.model, "model", "m", "", "model name")
	f.StringVar(&detectFlags.url, "url", "", "server URL (defaults: ollama="+defaultOllamaURL+", llamacpp="+defaultLlamaCppURL+")")
	f.IntVarP(&detectFlags.device, "device", "d", 0, "camera device index")
	f.StringVar(&detectFlags.framesDir, "frames", "", "replay image files from a directory instead of a camera")
	f.Float64Var(&detectFlags.fps, "fps", 0, "capture rate requested from the source")
	f.IntVar(&detectFlags.targetFPS, "target-fps", 0, "classification rate")
	f.BoolVar(&detectFlags.loop, "loop", false, "restart the frames directory when it ends")
}

func applyDetectFlags(cmd *cli.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("backend") {
		cfg.Detector.Backend = detectFlags.backend
	}
	if f.Changed("model") {
		cfg.Detector.Model = detectFlags.model
	}
	if f.Changed("url") {
		cfg.Detector.URL = detectFlags.url
	}
	if f.Changed("target-fps") {
		cfg.Detector.TargetFPS = detectFlags.targetFPS
	}
	if f.Changed("device") {
		cfg.Camera.Device = detectFlags.device
	}
	if f.Changed("frames") {
		cfg.Camera.FramesDir = detectFlags.framesDir
	}
	if f.Changed("fps") {
		cfg.Camera.FPS = detectFlags.fps
	}
	if f.Changed("loop") {
		cfg.Camera.Loop = detectFlags.loop
	}
}

func newEngine(dc config.DetectorConfig) (inference.Engine, error) {
	url := dc.URL
	switch dc.Backend {
	case "ollama":
		if url == "" {
			url = defaultOllamaURL
		}
		engine, err := ollama.NewClient(url, dc.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return engine, nil
	case "llamacpp":
		if url == "" {
			url = defaultLlamaCppURL
		}
		engine, err := llamacpp.NewClient(url, dc.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", dc.Backend)
	}
}

func newSource(cc config.CameraConfig) (camera.Source, camera.Permission, error) {
	if cc.FramesDir != "" {
		src, err := camera.NewDirSource(cc.FramesDir, cc.FPS, cc.Loop)
		if err != nil {
			return nil, nil, err
		}
		return src, camera.StaticPermission(camera.Granted), nil
	}

	perm := camera.NewDevicePermission(cc.Device)
	granted, err := camera.Resolve(perm)
	if err != nil {
		return nil, nil, err
	}
	if !granted {
		return nil, nil, glassesdetector.ErrPermissionDenied
	}
	src, err := camera.OpenDevice(cc.Device)
	if err != nil {
		return nil, nil, err
	}
	return src, perm, nil
}

func runDetect(cmd *cli.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyDetectFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	src, perm, err := newSource(cfg.Camera)
	if err != nil {
		return err
	}
	defer src.Close()

	engine, err := newEngine(cfg.Detector)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	det := glassesdetector.New(glassesdetector.Options{
		PollInterval: cfg.Detector.PollInterval(),
		TargetFPS:    cfg.Detector.TargetFPS,
		InputSize:    cfg.Detector.InputSize,
		Logger:       logger,
		Permission:   perm,
		OnChange: func(detected bool) {
			fmt.Fprintln(out, classify.Label(detected))
		},
	})
	defer det.Close()
	det.SetEngine(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("detection started",
		"backend", cfg.Detector.Backend,
		"model", cfg.Detector.Model,
		"target_fps", cfg.Detector.TargetFPS)
	fmt.Fprintln(out, classify.Label(det.Stable()))

	if err := det.Run(ctx, src); err != nil {
		return err
	}

	s := det.Stats()
	logger.Info("detection finished",
		"submitted", s.Submitted,
		"processed", s.Processed,
		"dropped", s.Dropped,
		"errors", s.Errors,
		"latency_mean", s.LatencyMean,
		"latency_stddev", s.LatencyStdDev)
	fmt.Fprintf(out, "Final state: %s\n", classify.Label(det.Stable()))
	return nil
}
