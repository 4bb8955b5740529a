package imageprep

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Config tunes the OCR preprocessing steps
type Config struct {
	// MaxDimension bounds width and height; larger images are downscaled
	MaxDimension int
	Contrast     float64
	Sharpen      float64
	JPEGQuality  int
}

// DefaultConfig works well for phone photos of thermal receipts
var DefaultConfig = Config{
	MaxDimension: 2000,
	Contrast:     30,
	Sharpen:      1.5,
	JPEGQuality:  90,
}

// Preprocessor converts receipt photos into high-contrast grayscale JPEGs
type Preprocessor struct {
	config Config
}

// New creates a preprocessor; zero fields take DefaultConfig values
func New(config Config) *Preprocessor {
	if config.MaxDimension <= 0 {
		config.MaxDimension = DefaultConfig.MaxDimension
	}
	if config.Contrast == 0 {
		config.Contrast = DefaultConfig.Contrast
	}
	if config.Sharpen == 0 {
		config.Sharpen = DefaultConfig.Sharpen
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = DefaultConfig.JPEGQuality
	}
	return &Preprocessor{config: config}
}

// Prepare decodes the image, honors EXIF orientation, then applies
// grayscale, contrast and sharpening and re-encodes it as JPEG.
func (p *Preprocessor) Prepare(image []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, p.config.Contrast)
	img = imaging.Sharpen(img, p.config.Sharpen)

	bounds := img.Bounds()
	if bounds.Dx() > p.config.MaxDimension || bounds.Dy() > p.config.MaxDimension {
		img = imaging.Fit(img, p.config.MaxDimension, p.config.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.config.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
