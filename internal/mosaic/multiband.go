package mosaic

import (
	"math"

	"github.com/stephenfox/image2qtree/internal/raster"
)

// Multi-band blending after Burt and Adelson. Each source is split into
// a Laplacian pyramid, the levels of overlapping sources are averaged
// under grassfire weights, and the blended pyramid collapses into one
// buffer. Low frequencies mix over wide areas while detail keeps the
// weighting of its own source, so seams between neighboring inputs
// disappear without ghosting.

const (
	minPyramidDim    = 8
	maxPyramidLevels = 12
)

// flattenBlended renders every source over the composite footprint,
// blends them level by level and stores the result for readBlended.
func (c *Composite) flattenBlended() error {
	region := c.bbox
	cols, rows := region.Width(), region.Height()
	bands := c.Bands()
	levels := pyramidLevels(cols, rows)

	accs := make([]*raster.PixelBuffer, levels)
	wsums := make([][]float32, levels)
	for l, lc, lr := 0, cols, rows; l < levels; l++ {
		accs[l] = raster.NewPixelBuffer(lc, lr, bands)
		wsums[l] = make([]float32, lc*lr)
		lc, lr = (lc+1)/2, (lr+1)/2
	}

	for _, e := range c.entries {
		buf, err := e.view.Read(e.bbox.Translate(-e.dx, -e.dy))
		if err != nil {
			return err
		}
		canvas := raster.NewPixelBuffer(cols, rows, bands)
		canvas.Compose(buf, e.bbox.MinX-region.MinX, e.bbox.MinY-region.MinY)

		weights := grassfire(canvas)
		gauss := canvas
		for l := 0; l < levels; l++ {
			var next *raster.PixelBuffer
			lap := gauss
			if l+1 < levels {
				next = gauss.BoxReduce2()
				lap = subtract(gauss, expand(next, gauss.Cols, gauss.Rows))
			}
			accumulate(accs[l], wsums[l], lap, weights)
			if next != nil {
				weights = reduceWeights(weights, gauss.Cols, gauss.Rows)
				gauss = next
			}
		}
	}

	for l := range accs {
		normalizeByWeight(accs[l], wsums[l])
	}

	out := accs[levels-1]
	for l := levels - 2; l >= 0; l-- {
		out = add(accs[l], expand(out, accs[l].Cols, accs[l].Rows))
	}
	clearUncovered(out, wsums[0])

	c.flat = out
	c.flatBBox = region
	return nil
}

// pyramidLevels is the pyramid depth for a footprint: halve until the
// short side drops under the minimum, within the level cap.
func pyramidLevels(cols, rows int) int {
	levels := 1
	for min(cols, rows) >= 2*minPyramidDim && levels < maxPyramidLevels {
		cols, rows = (cols+1)/2, (rows+1)/2
		levels++
	}
	return levels
}

// grassfire is the city block distance from each covered pixel to the
// nearest transparent pixel or buffer edge. Uncovered pixels get zero.
func grassfire(p *raster.PixelBuffer) []float32 {
	cols, rows := p.Cols, p.Rows
	const far = float32(1 << 24)
	d := make([]float32, cols*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			if p.Alpha(x, y) <= 0 {
				continue
			}
			d[i] = far
			left, up := float32(0), float32(0)
			if x > 0 {
				left = d[i-1]
			}
			if y > 0 {
				up = d[i-cols]
			}
			if m := min(left, up) + 1; m < d[i] {
				d[i] = m
			}
		}
	}
	for y := rows - 1; y >= 0; y-- {
		for x := cols - 1; x >= 0; x-- {
			i := y*cols + x
			if d[i] == 0 {
				continue
			}
			right, down := float32(0), float32(0)
			if x < cols-1 {
				right = d[i+1]
			}
			if y < rows-1 {
				down = d[i+cols]
			}
			if m := min(right, down) + 1; m < d[i] {
				d[i] = m
			}
		}
	}
	return d
}

// reduceWeights downsamples a weight plane by two with a box filter,
// mirroring BoxReduce2 on pixel data.
func reduceWeights(w []float32, cols, rows int) []float32 {
	oc, or := (cols+1)/2, (rows+1)/2
	out := make([]float32, oc*or)
	for y := 0; y < or; y++ {
		for x := 0; x < oc; x++ {
			var sum float32
			n := 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sx, sy := 2*x+dx, 2*y+dy
					if sx >= cols || sy >= rows {
						continue
					}
					sum += w[sy*cols+sx]
					n++
				}
			}
			out[y*oc+x] = sum / float32(n)
		}
	}
	return out
}

// expand upsamples a pyramid level to the given dimensions with bilinear
// weights aligned to the 2x2 box reduction.
func expand(p *raster.PixelBuffer, cols, rows int) *raster.PixelBuffer {
	out := raster.NewPixelBuffer(cols, rows, p.Bands)
	stride := p.Stride()
	for y := 0; y < rows; y++ {
		y0, y1, wy := expandAxis(y, p.Rows)
		for x := 0; x < cols; x++ {
			x0, x1, wx := expandAxis(x, p.Cols)
			for c := 0; c < stride; c++ {
				top := (1-wx)*p.At(x0, y0, c) + wx*p.At(x1, y0, c)
				bot := (1-wx)*p.At(x0, y1, c) + wx*p.At(x1, y1, c)
				out.Set(x, y, c, (1-wy)*top+wy*bot)
			}
		}
	}
	return out
}

// expandAxis maps an output pixel center onto the coarse grid: the two
// source indices bracketing it and the weight of the second.
func expandAxis(i, srcLen int) (i0, i1 int, w1 float32) {
	pos := (float32(i)+0.5)/2 - 0.5
	i0 = int(math.Floor(float64(pos)))
	w1 = pos - float32(i0)
	i1 = i0 + 1
	if i0 < 0 {
		i0 = 0
	}
	if i1 > srcLen-1 {
		i1 = srcLen - 1
	}
	return
}

func subtract(a, b *raster.PixelBuffer) *raster.PixelBuffer {
	out := raster.NewPixelBuffer(a.Cols, a.Rows, a.Bands)
	for i := range a.Data {
		out.Data[i] = a.Data[i] - b.Data[i]
	}
	return out
}

func add(a, b *raster.PixelBuffer) *raster.PixelBuffer {
	out := raster.NewPixelBuffer(a.Cols, a.Rows, a.Bands)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out
}

// accumulate folds one source's pyramid level into the weighted sum.
func accumulate(acc *raster.PixelBuffer, wsum []float32, lap *raster.PixelBuffer, w []float32) {
	stride := acc.Stride()
	for i, wi := range w {
		if wi <= 0 {
			continue
		}
		off := i * stride
		for c := 0; c < stride; c++ {
			acc.Data[off+c] += wi * lap.Data[off+c]
		}
		wsum[i] += wi
	}
}

func normalizeByWeight(acc *raster.PixelBuffer, wsum []float32) {
	stride := acc.Stride()
	for i, wi := range wsum {
		if wi <= 0 {
			continue
		}
		off := i * stride
		for c := 0; c < stride; c++ {
			acc.Data[off+c] /= wi
		}
	}
}

// clearUncovered zeroes pixels no source covered and clamps the alpha
// overshoot the band recombination can produce.
func clearUncovered(p *raster.PixelBuffer, w0 []float32) {
	stride := p.Stride()
	for i, wi := range w0 {
		off := i * stride
		if wi <= 0 {
			for c := 0; c < stride; c++ {
				p.Data[off+c] = 0
			}
			continue
		}
		a := p.Data[off+stride-1]
		if a < 0 {
			a = 0
		}
		if a > 1 {
			a = 1
		}
		p.Data[off+stride-1] = a
	}
}
