package types

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
)

//DefaultQuality is used when a StreamSource is created without a quality label.
const DefaultQuality = "best"

//StreamSource is the human facing stream locator and the rendition we want out of it.
type StreamSource struct {
	URL     string
	Quality string
}

func NewStreamSource(url, quality string) StreamSource {
	if quality == "" {
		quality = DefaultQuality
	}
	return StreamSource{URL: url, Quality: quality}
}

func (s StreamSource) String() string {
	return fmt.Sprintf("%s@%s", s.URL, s.Quality)
}

//StreamMetadata describes the first video stream of a playback URL.
type StreamMetadata struct {
	Width       int
	Height      int
	PixelFormat string
	CodecName   string
}

func (m StreamMetadata) Valid() bool {
	return m.Width > 0 && m.Height > 0
}

func (m StreamMetadata) Resolution() string {
	return fmt.Sprintf("%vx%v", m.Width, m.Height)
}

//FrameSize is the number of bytes in one BGR24 frame.
func FrameSize(width, height int) int {
	return width * height * 3
}

type BGR struct {
	B, G, R uint8
}

//Frame is a raw BGR24 bitmap laid out row-major as (height, width, 3).
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

//NewFrame wraps buf without copying. buf must hold exactly FrameSize(width, height) bytes.
func NewFrame(width, height int, buf []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid frame dimensions %vx%v", width, height)
	}
	if len(buf) != FrameSize(width, height) {
		return nil, errors.Errorf("frame %vx%v needs %v bytes, got %v", width, height, FrameSize(width, height), len(buf))
	}
	return &Frame{Width: width, Height: height, Pix: buf}, nil
}

func (f *Frame) Stride() int { return f.Width * 3 }

func (f *Frame) Row(row int) []byte {
	off := row * f.Stride()
	return f.Pix[off : off+f.Stride()]
}

func (f *Frame) Pixel(row, col int) BGR {
	off := row*f.Stride() + col*3
	return BGR{B: f.Pix[off], G: f.Pix[off+1], R: f.Pix[off+2]}
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

//At lets a Frame be used wherever an image.Image is expected. Note x is the column.
func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(f.Bounds()) {
		return color.RGBA{}
	}
	p := f.Pixel(y, x)
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}
