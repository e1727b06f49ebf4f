package processing

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Fill with a gradient pattern
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	return img
}

func TestParseFit(t *testing.T) {
	tests := []struct {
		in      string
		want    Fit
		wantErr bool
	}{
		{"", FitCover, false},
		{"cover", FitCover, false},
		{"STRETCH", FitStretch, false},
		{"contain", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFit(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFit(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestResizeExactBox(t *testing.T) {
	img := createTestImage(400, 300)
	for _, fit := range []Fit{FitCover, FitStretch} {
		out := NewProcessor(fit, 80).Resize(img, 224, 224)
		if out.Bounds().Dx() != 224 || out.Bounds().Dy() != 224 {
			t.Errorf("fit %s: expected 224x224, got %dx%d", fit, out.Bounds().Dx(), out.Bounds().Dy())
		}
	}
}

func TestResizeFileWritesJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.jpg")
	if err := imaging.Save(createTestImage(320, 200), src); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	p := NewProcessor(FitCover, 80)
	if err := p.ResizeFile(src, dst, 224, 224); err != nil {
		t.Fatalf("ResizeFile failed: %v", err)
	}

	out, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	if out.Bounds().Dx() != 224 || out.Bounds().Dy() != 224 {
		t.Errorf("Expected 224x224 output, got %v", out.Bounds())
	}
}

func TestLoadImageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewProcessor(FitCover, 80).LoadImage(path); err == nil {
		t.Error("Expected error decoding garbage file")
	}
}

func TestToTensor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{10, 20, 30, 255})
		}
	}

	tensor := ToTensor(img, 224, 224)
	if len(tensor) != 224*224*3 {
		t.Fatalf("Expected %d bytes, got %d", 224*224*3, len(tensor))
	}
	for i := 0; i < len(tensor); i += 3 {
		if tensor[i] != 10 || tensor[i+1] != 20 || tensor[i+2] != 30 {
			t.Fatalf("Unexpected pixel at %d: %v", i/3, tensor[i:i+3])
		}
	}

	// the tensor is a copy
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})
	if tensor[0] != 10 {
		t.Error("Tensor must not alias the source frame")
	}
}

func TestTensorImageRoundTrip(t *testing.T) {
	tensor := make([]uint8, 4*2*3)
	for i := range tensor {
		tensor[i] = uint8(i * 10)
	}
	img, err := TensorImage(tensor, 4, 2)
	if err != nil {
		t.Fatalf("TensorImage failed: %v", err)
	}
	if got := ToTensor(img, 4, 2); string(got) != string(tensor) {
		t.Errorf("Expected %v, got %v", tensor, got)
	}

	if _, err := TensorImage(tensor[:5], 4, 2); err == nil {
		t.Error("Expected error for short tensor")
	}
}

func TestEncodeJPEGBase64(t *testing.T) {
	s, err := NewProcessor(FitCover, 90).EncodeJPEGBase64(createTestImage(32, 32))
	if err != nil {
		t.Fatalf("EncodeJPEGBase64 failed: %v", err)
	}
	if len(s) == 0 {
		t.Error("Expected non-empty base64 output")
	}
}

func BenchmarkToTensor(b *testing.B) {
	img := createTestImage(1280, 720)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToTensor(img, 224, 224)
	}
}
