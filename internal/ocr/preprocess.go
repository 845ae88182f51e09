package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PreprocessOptions tunes the image cleanup that runs before recognition.
type PreprocessOptions struct {
	// MinLongSide is the length the longer side is scaled up to.
	MinLongSide int
	// MaxScale caps the upscaling factor.
	MaxScale float64
	// BlockSize is the side of the adaptive threshold window; it is forced odd.
	BlockSize int
	// Offset is subtracted from the local mean before comparing.
	Offset int
	// Dilate thickens dark strokes after denoising.
	Dilate bool
}

func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		MinLongSide: 1800,
		MaxScale:    3,
		BlockSize:   31,
		Offset:      10,
		Dilate:      false,
	}
}

// Preprocess decodes a JPEG, PNG or WebP image and returns a binarized PNG:
// grayscale, upscaled, adaptively thresholded, median-filtered and
// optionally dilated.
func Preprocess(data []byte, opts PreprocessOptions) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := upscale(toGray(src), opts)
	bin := adaptiveThreshold(gray, opts.BlockSize, opts.Offset)
	bin = median3(bin)
	if opts.Dilate {
		bin = dilate3(bin)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, bin); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func upscale(g *image.Gray, opts PreprocessOptions) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	long := max(w, h)
	if long == 0 || long >= opts.MinLongSide {
		return g
	}
	scale := float64(opts.MinLongSide) / float64(long)
	if opts.MaxScale > 0 && scale > opts.MaxScale {
		scale = opts.MaxScale
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), g, g.Bounds(), draw.Src, nil)
	return dst
}

// adaptiveThreshold marks a pixel black when it is darker than the mean of
// its block minus offset. Sums come from an integral image so the cost does
// not depend on the block size.
func adaptiveThreshold(g *image.Gray, block, offset int) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	r := block / 2

	// integral has a zero row and column so lookups need no bounds checks.
	stride := w + 1
	integral := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(g.Pix[y*g.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			sum := integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]
			count := int64((y1 - y0) * (x1 - x0))
			v := int64(g.Pix[y*g.Stride+x])
			if v*count < sum-int64(offset)*count {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// median3 is a 3x3 median on a binary image: a pixel is black when most of
// its neighbourhood is.
func median3(g *image.Gray) *image.Gray {
	return neighbourhood(g, func(black, total int) bool { return black*2 > total })
}

// dilate3 grows dark strokes by one pixel.
func dilate3(g *image.Gray) *image.Gray {
	return neighbourhood(g, func(black, _ int) bool { return black > 0 })
}

func neighbourhood(g *image.Gray, isBlack func(black, total int) bool) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			black, total := 0, 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					total++
					if g.Pix[ny*g.Stride+nx] < 128 {
						black++
					}
				}
			}
			c := color.Gray{Y: 255}
			if isBlack(black, total) {
				c.Y = 0
			}
			out.SetGray(x, y, c)
		}
	}
	return out
}
