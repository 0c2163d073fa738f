package script

import (
	"fmt"
	"os"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Metrics measures text for layout. All values are in scroll-offset units.
type Metrics interface {
	Advance(s string) float64
	SpaceWidth() float64
	LineHeight() float64
}

// CellMetrics measures text in terminal cells. Every row is Rows offset
// units tall (1 when zero).
type CellMetrics struct {
	Rows float64
}

func (c CellMetrics) Advance(s string) float64 { return float64(runewidth.StringWidth(s)) }
func (c CellMetrics) SpaceWidth() float64      { return 1 }

func (c CellMetrics) LineHeight() float64 {
	if c.Rows <= 0 {
		return 1
	}
	return c.Rows
}

const DefaultLineSpacing = 1.2

// FaceMetrics measures text with a rasterizer font face, in pixels.
type FaceMetrics struct {
	face    font.Face
	spacing float64
	space   float64
	height  float64
}

// NewFaceMetrics wraps face. lineSpacing scales the font's natural line
// height; values <= 0 use DefaultLineSpacing.
func NewFaceMetrics(face font.Face, lineSpacing float64) *FaceMetrics {
	if lineSpacing <= 0 {
		lineSpacing = DefaultLineSpacing
	}
	m := &FaceMetrics{face: face, spacing: lineSpacing}
	m.space = m.Advance(" ")
	m.height = float64(face.Metrics().Height) / 64 * lineSpacing
	if m.height < 1 {
		m.height = 1
	}
	return m
}

func (m *FaceMetrics) Advance(s string) float64 {
	return float64(font.MeasureString(m.face, s)) / 64
}

func (m *FaceMetrics) SpaceWidth() float64 { return m.space }
func (m *FaceMetrics) LineHeight() float64 { return m.height }

// LoadFace opens a TrueType/OpenType font at the given size. An empty path
// selects the built-in 7x13 bitmap face.
func LoadFace(path string, size, dpi float64) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", path, err)
	}
	if dpi <= 0 {
		dpi = 72
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating face: %w", err)
	}
	return face, nil
}
