package resizer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/menta2k/glasses-detector/internal/utils"
	"github.com/menta2k/glasses-detector/pkg/processing"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(createTestImage(w, h), path); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestResizer(t *testing.T, in, out string, mutate ...func(*Config)) *Resizer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InputPath = in
	cfg.OutputPath = out
	cfg.Workers = 2
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func assertImageSize(t *testing.T, path string, w, h int) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Errorf("%s: expected %dx%d, got %dx%d", path, w, h, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected %s to be absent, stat err = %v", path, err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InputPath != "input" || cfg.OutputPath != "train-images" {
		t.Errorf("Unexpected default paths %q -> %q", cfg.InputPath, cfg.OutputPath)
	}
	if cfg.Width != 224 || cfg.Height != 224 {
		t.Errorf("Expected 224x224, got %dx%d", cfg.Width, cfg.Height)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.InputPath = "" }},
		{"no output", func(c *Config) { c.OutputPath = "" }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"no extensions", func(c *Config) { c.Extensions = nil }},
		{"bad quality", func(c *Config) { c.Quality = 101 }},
		{"bad fit", func(c *Config) { c.Fit = "squash" }},
		{"bad naming", func(c *Config) { c.Naming = "dots" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestRunMirrorsTree(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "train-images")

	writeImage(t, filepath.Join(in, "a", "photo.jpg"), 400, 300)
	writeFile(t, filepath.Join(in, "a", "b", "doc.txt"), "notes")
	writeFile(t, filepath.Join(in, "readme.md"), "# readme")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}

	report, err := newTestResizer(t, in, out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Unexpected failures: %v", report.Err())
	}

	assertImageSize(t, filepath.Join(out, "a", "photo.jpg"), 224, 224)
	if !utils.DirExists(filepath.Join(out, "a", "b")) {
		t.Error("Expected mirrored directory a/b")
	}
	assertMissing(t, filepath.Join(out, "a", "b", "doc.txt"))
	assertMissing(t, filepath.Join(out, "readme.md"))

	if report.Dirs != 2 || report.Resized != 1 || report.Skipped != 2 {
		t.Errorf("Unexpected counts: dirs=%d resized=%d skipped=%d", report.Dirs, report.Resized, report.Skipped)
	}
	if report.RunID == "" {
		t.Error("Expected a run id")
	}
	if report.BytesWritten <= 0 {
		t.Error("Expected bytes written to be recorded")
	}
}

func TestRunNormalizesExtensions(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")

	writeImage(t, filepath.Join(in, "one.PNG"), 100, 50)
	writeImage(t, filepath.Join(in, "two.jpeg"), 50, 100)
	writeImage(t, filepath.Join(in, "three.gif"), 64, 64)

	report, err := newTestResizer(t, in, out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Resized != 3 {
		t.Fatalf("Expected 3 resized, got %d (failures: %v)", report.Resized, report.Err())
	}
	for _, name := range []string{"one.jpg", "two.jpg", "three.jpg"} {
		assertImageSize(t, filepath.Join(out, name), 224, 224)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")
	writeImage(t, filepath.Join(in, "a", "b", "c", "face.jpg"), 300, 300)

	r := newTestResizer(t, in, out)
	for i := 0; i < 2; i++ {
		report, err := r.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if !report.OK() {
			t.Fatalf("run %d: existing directories must not fail: %v", i, report.Err())
		}
		if report.Resized != 1 {
			t.Errorf("run %d: expected 1 resized, got %d", i, report.Resized)
		}
	}
	assertImageSize(t, filepath.Join(out, "a", "b", "c", "face.jpg"), 224, 224)
}

func TestRunCreatesMissingOutputRoot(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "nested", "out")
	writeImage(t, filepath.Join(in, "x.jpg"), 10, 10)

	if _, err := newTestResizer(t, in, out).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	assertImageSize(t, filepath.Join(out, "x.jpg"), 224, 224)
}

func TestRunMissingInput(t *testing.T) {
	root := t.TempDir()
	r := newTestResizer(t, filepath.Join(root, "nope"), filepath.Join(root, "out"))
	if _, err := r.Run(context.Background()); err == nil {
		t.Error("Expected error for missing input root")
	}
}

func TestRunSkipsSubtreeWhenMkdirFails(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")

	writeImage(t, filepath.Join(in, "blocked", "inner.jpg"), 40, 40)
	writeImage(t, filepath.Join(in, "open", "fine.jpg"), 40, 40)
	// a file where the mirrored directory should go
	writeFile(t, filepath.Join(out, "blocked"), "in the way")

	report, err := newTestResizer(t, in, out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].Op != OpMkdir {
		t.Fatalf("Expected one mkdir failure, got %v", report.Failures)
	}
	if report.Resized != 1 {
		t.Errorf("Expected the other subtree to be resized, got %d", report.Resized)
	}
	assertImageSize(t, filepath.Join(out, "open", "fine.jpg"), 224, 224)
}

func TestRunRecordsDecodeFailures(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")

	writeFile(t, filepath.Join(in, "broken.jpg"), "definitely not a jpeg")
	writeImage(t, filepath.Join(in, "good.png"), 80, 60)

	report, err := newTestResizer(t, in, out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].Op != OpResize {
		t.Fatalf("Expected one resize failure, got %v", report.Failures)
	}
	if report.Failures[0].Path != filepath.Join(in, "broken.jpg") {
		t.Errorf("Unexpected failure path %s", report.Failures[0].Path)
	}
	if report.Err() == nil {
		t.Error("Report.Err should be non-nil when failures exist")
	}
	assertImageSize(t, filepath.Join(out, "good.jpg"), 224, 224)
	assertMissing(t, filepath.Join(out, "broken.jpg"))
}

func TestRunDetectsCollisions(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")

	writeImage(t, filepath.Join(in, "face.jpg"), 30, 30)
	writeImage(t, filepath.Join(in, "face.png"), 30, 30)

	report, err := newTestResizer(t, in, out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Resized != 1 {
		t.Errorf("Expected 1 resized, got %d", report.Resized)
	}
	if len(report.Failures) != 1 || report.Failures[0].Op != OpCollision {
		t.Fatalf("Expected one collision, got %v", report.Failures)
	}
	// os.ReadDir sorts by name, so face.jpg wins
	if report.Failures[0].Path != filepath.Join(in, "face.png") {
		t.Errorf("Unexpected collision path %s", report.Failures[0].Path)
	}
}

func TestRunFirstDotNaming(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")
	writeImage(t, filepath.Join(in, "photo.v2.png"), 30, 30)

	r := newTestResizer(t, in, out, func(c *Config) { c.Naming = utils.NamingFirstDot })
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	assertImageSize(t, filepath.Join(out, "photo.jpg"), 224, 224)

	r = newTestResizer(t, in, out, func(c *Config) { c.Naming = utils.NamingLastDot })
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	assertImageSize(t, filepath.Join(out, "photo.v2.jpg"), 224, 224)
}

func TestRunStretchAndCustomSize(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")
	writeImage(t, filepath.Join(in, "wide.jpg"), 200, 50)

	r := newTestResizer(t, in, out, func(c *Config) {
		c.Fit = processing.FitStretch
		c.Width, c.Height = 64, 32
	})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	assertImageSize(t, filepath.Join(out, "wide.jpg"), 64, 32)
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")
	writeImage(t, filepath.Join(in, "x.jpg"), 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestResizer(t, in, out).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if report == nil || report.Resized != 0 {
		t.Errorf("Expected an empty report, got %+v", report)
	}
}

func TestStartJob(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		writeImage(t, filepath.Join(in, "set", name), 50, 50)
	}

	job := newTestResizer(t, in, out).Start(context.Background())
	<-job.Done()
	report, err := job.Wait()
	if err != nil {
		t.Fatalf("job failed: %v", err)
	}
	if report.Resized != 4 {
		t.Errorf("Expected 4 resized, got %d", report.Resized)
	}
}

func BenchmarkRun(b *testing.B) {
	root := b.TempDir()
	in := filepath.Join(root, "input")
	out := filepath.Join(root, "out")
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		path := filepath.Join(in, name)
		_ = os.MkdirAll(in, 0o755)
		if err := imaging.Save(createTestImage(640, 480), path); err != nil {
			b.Fatal(err)
		}
	}

	cfg := DefaultConfig()
	cfg.InputPath, cfg.OutputPath = in, out
	r, err := New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
