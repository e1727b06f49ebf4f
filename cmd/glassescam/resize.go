package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/cobra"

	"github.com/menta2k/glasses-detector/internal/config"
	"github.com/menta2k/glasses-detector/internal/utils"
	"github.com/menta2k/glasses-detector/pkg/processing"
	"github.com/menta2k/glasses-detector/pkg/resizer"
)

var resizeFlags struct {
	input   string
	output  string
	width   int
	height  int
	quality int
	fit     string
	naming  string
	workers int
	exts    []string
	strict  bool
}

var resizeCmd = &cli.Command{
	Use:   "resize",
	Short: "Mirror an image tree into fixed-size JPEG training images",
	Long: `Walks the input directory, recreates its directory structure under the
output directory and writes every image as a resized JPEG. Non-image files are
skipped. Per-file failures are reported but do not stop the run.`,
	Args: cli.NoArgs,
	RunE: runResize,
}

func init() {
	f := resizeCmd.Flags()
	f.StringVarP(&resizeFlags.input, "input", "i", "", "input directory (default from config: input)")
	f.StringVarP(&resizeFlags.output, "output", "o", "", "output directory (default from config: train-images)")
	f.IntVar(&resizeFlags.width, "width", 0, "target width in pixels")
	f.IntVar(&resizeFlags.height, "height", 0, "target height in pixels")
	f.IntVarP(&resizeFlags.quality, "quality", "q", 0, "JPEG quality (1-100)")
	f.StringVar(&resizeFlags.fit, "fit", "", "resize mode: cover|stretch")
	f.StringVar(&resizeFlags.naming, "naming", "", "output naming: last-dot|first-dot")
	f.IntVarP(&resizeFlags.workers, "workers", "w", 0, "number of concurrent resizes")
	f.StringSliceVar(&resizeFlags.exts, "ext", nil, "image extensions to process")
	f.BoolVar(&resizeFlags.strict, "strict", false, "exit with an error when any entry failed")
}

func applyResizeFlags(cmd *cli.Command, rc *config.ResizerConfig) {
	f := cmd.Flags()
	if f.Changed("input") {
		rc.InputPath = resizeFlags.input
	}
	if f.Changed("output") {
		rc.OutputPath = resizeFlags.output
	}
	if f.Changed("width") {
		rc.Width = resizeFlags.width
	}
	if f.Changed("height") {
		rc.Height = resizeFlags.height
	}
	if f.Changed("quality") {
		rc.Quality = resizeFlags.quality
	}
	if f.Changed("fit") {
		rc.Fit = resizeFlags.fit
	}
	if f.Changed("naming") {
		rc.Naming = resizeFlags.naming
	}
	if f.Changed("workers") {
		rc.Workers = resizeFlags.workers
	}
	if f.Changed("ext") {
		rc.Extensions = resizeFlags.exts
	}
}

func runResize(cmd *cli.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyResizeFlags(cmd, &cfg.Resizer)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rc := cfg.Resizer
	fit, _ := processing.ParseFit(rc.Fit)
	naming, _ := utils.ParseNaming(rc.Naming)

	r, err := resizer.New(resizer.Config{
		InputPath:  rc.InputPath,
		OutputPath: rc.OutputPath,
		Width:      rc.Width,
		Height:     rc.Height,
		Extensions: rc.Extensions,
		Quality:    rc.Quality,
		Fit:        fit,
		Naming:     naming,
		Workers:    rc.Workers,
	}, resizer.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := r.Start(ctx).Wait()
	if report == nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Resized %d images into %s (%d directories, %d skipped, %s) in %s\n",
		report.Resized, rc.OutputPath, report.Dirs, report.Skipped,
		utils.FormatFileSize(report.BytesWritten), report.Duration.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  failed: %v\n", f)
	}

	if err != nil {
		return err
	}
	if resizeFlags.strict && !report.OK() {
		return fmt.Errorf("%d entries failed", len(report.Failures))
	}
	return nil
}
