package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/glasses-detector/pkg/types"
)

// Fit selects how a source image is mapped onto a fixed output box
type Fit string

const (
	// FitCover scales to fill the box and centre-crops the overflow
	FitCover Fit = "cover"
	// FitStretch scales each axis independently, ignoring aspect ratio
	FitStretch Fit = "stretch"
)

// ParseFit validates a fit name
func ParseFit(s string) (Fit, error) {
	switch Fit(strings.ToLower(s)) {
	case FitCover, "":
		return FitCover, nil
	case FitStretch:
		return FitStretch, nil
	default:
		return "", fmt.Errorf("unknown fit mode %q (use cover or stretch)", s)
	}
}

// Processor handles image processing operations
type Processor struct {
	fit     Fit
	quality int
}

// NewProcessor creates a new image processor
func NewProcessor(fit Fit, quality int) *Processor {
	if fit == "" {
		fit = FitCover
	}
	if quality < 1 || quality > 100 {
		quality = 80
	}
	return &Processor{fit: fit, quality: quality}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	img, openErr := imaging.Open(path)
	if openErr == nil {
		return img, nil
	}

	if !strings.HasSuffix(strings.ToLower(path), ".webp") {
		return nil, fmt.Errorf("failed to decode %s: %w", path, openErr)
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if img, err := webp.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// Resize maps img onto an exact width x height box using the processor's fit mode
func (p *Processor) Resize(img image.Image, width, height int) *image.NRGBA {
	if p.fit == FitStretch {
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
}

// SaveJPEG writes img as a JPEG file at the processor's quality
func (p *Processor) SaveJPEG(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(p.quality)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// ResizeFile loads src, resizes it and writes the JPEG result to dst
func (p *Processor) ResizeFile(src, dst string, width, height int) error {
	img, err := p.LoadImage(src)
	if err != nil {
		return err
	}
	return p.SaveJPEG(p.Resize(img, width, height), dst)
}

// EncodeJPEG encodes img as JPEG bytes at the processor's quality
func (p *Processor) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJPEGBase64 converts an image to base64 JPEG for sending to vision models
func (p *Processor) EncodeJPEGBase64(img image.Image) (string, error) {
	data, err := p.EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ToTensor scales a frame to width x height and returns its pixels as
// interleaved 8-bit RGB, row-major. The returned slice never aliases frame.
func ToTensor(frame image.Image, width, height int) []uint8 {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Rect, frame, frame.Bounds(), draw.Src, nil)

	out := make([]uint8, 0, width*height*types.Channels)
	for y := 0; y < height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			out = append(out, px[0], px[1], px[2])
		}
	}
	return out
}

// TensorImage wraps an RGB tensor back into an image, used when an engine
// needs an encoded picture rather than raw pixels.
func TensorImage(tensor []uint8, width, height int) (*image.NRGBA, error) {
	if len(tensor) != width*height*types.Channels {
		return nil, fmt.Errorf("tensor has %d bytes, expected %d for %dx%d RGB", len(tensor), width*height*types.Channels, width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(tensor); i, j = i+3, j+4 {
		img.Pix[j+0] = tensor[i+0]
		img.Pix[j+1] = tensor[i+1]
		img.Pix[j+2] = tensor[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}
