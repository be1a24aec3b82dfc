package raster

import (
	"testing"

	"github.com/stephenfox/image2qtree/internal/geometry"
)

func solidBuffer(cols, rows, bands int, value float32) *PixelBuffer {
	buf := NewPixelBuffer(cols, rows, bands)
	px := make([]float32, bands+1)
	for c := 0; c < bands; c++ {
		px[c] = value
	}
	px[bands] = 1
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			buf.SetPixel(x, y, px)
		}
	}
	return buf
}

func TestParseChannelType(t *testing.T) {
	cases := []struct {
		in   string
		want ChannelType
		ok   bool
	}{
		{"UINT8", ChannelU8, true},
		{"uint16", ChannelU16, true},
		{"INT16", ChannelI16, true},
		{"float", ChannelF32, true},
		{"", ChannelNone, true},
		{"DOUBLE", ChannelNone, false},
	}
	for _, c := range cases {
		got, ok := ParseChannelType(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseChannelType(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
	if ChannelI16.String() != "INT16" || ChannelF32.String() != "FLOAT" {
		t.Error("channel type names should round trip through String")
	}
}

func TestOpacityScan(t *testing.T) {
	buf := solidBuffer(4, 4, 1, 0.5)
	if !buf.IsOpaque() || buf.IsTransparent() {
		t.Fatal("solid buffer should be opaque")
	}
	buf.SetAlpha(2, 3, 0.5)
	if buf.IsOpaque() {
		t.Fatal("buffer with a translucent pixel should not be opaque")
	}
	if !NewPixelBuffer(3, 3, 3).IsTransparent() {
		t.Fatal("fresh buffer should be transparent")
	}
}

func TestCropPadsOutside(t *testing.T) {
	buf := solidBuffer(4, 4, 1, 1)
	out := buf.Crop(geometry.NewBBox2i(2, 2, 4, 4))
	if out.Cols != 4 || out.Rows != 4 {
		t.Fatalf("crop dims = %dx%d, want 4x4", out.Cols, out.Rows)
	}
	if out.Alpha(0, 0) != 1 {
		t.Fatal("in-range corner should keep its alpha")
	}
	if out.Alpha(3, 3) != 0 {
		t.Fatal("out-of-range corner should be transparent")
	}
}

func TestComposeOverwrites(t *testing.T) {
	dst := solidBuffer(4, 4, 1, 0.25)
	src := solidBuffer(2, 2, 1, 1)
	dst.Compose(src, 1, 1)
	if dst.At(1, 1, 0) != 1 || dst.At(2, 2, 0) != 1 {
		t.Fatal("composed region should take the source values")
	}
	if dst.At(0, 0, 0) != 0.25 || dst.At(3, 3, 0) != 0.25 {
		t.Fatal("pixels outside the composed region should be untouched")
	}
}

func TestBlendOver(t *testing.T) {
	dst := solidBuffer(2, 2, 1, 0.2)
	src := NewPixelBuffer(2, 2, 1)
	// Premultiplied half-transparent white.
	src.SetPixel(0, 0, []float32{0.5, 0.5})

	dst.BlendOver(src, 0, 0)
	if got := dst.At(0, 0, 0); got < 0.599 || got > 0.601 {
		t.Fatalf("blended value = %v, want 0.6", got)
	}
	if got := dst.Alpha(0, 0); got != 1 {
		t.Fatalf("blended alpha = %v, want 1", got)
	}
	// Fully transparent source pixels leave the destination alone.
	if dst.At(1, 1, 0) != 0.2 {
		t.Fatal("transparent source pixel should not disturb the destination")
	}
}

func TestBoxReduce2(t *testing.T) {
	buf := NewPixelBuffer(4, 4, 1)
	// One quadrant holds 1.0, the rest stays transparent black.
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			buf.SetPixel(x, y, []float32{1, 1})
		}
	}
	out := buf.BoxReduce2()
	if out.Cols != 2 || out.Rows != 2 {
		t.Fatalf("reduced dims = %dx%d, want 2x2", out.Cols, out.Rows)
	}
	if out.At(0, 0, 0) != 1 || out.Alpha(0, 0) != 1 {
		t.Fatal("solid quadrant should reduce to a solid pixel")
	}
	if out.Alpha(1, 1) != 0 {
		t.Fatal("empty quadrant should reduce to a transparent pixel")
	}
}

func TestBoxReduce2OddSize(t *testing.T) {
	buf := solidBuffer(3, 3, 1, 1)
	out := buf.BoxReduce2()
	if out.Cols != 2 || out.Rows != 2 {
		t.Fatalf("reduced dims = %dx%d, want 2x2", out.Cols, out.Rows)
	}
	// The ragged edge averages over the samples that exist.
	if out.At(1, 1, 0) != 1 || out.Alpha(1, 1) != 1 {
		t.Fatal("single-sample cell should keep its value")
	}
}

func TestChannelNormalized(t *testing.T) {
	cases := []struct {
		ct   ChannelType
		in   float64
		want float64
	}{
		{ChannelU8, 255, 1},
		{ChannelU8, 0, 0},
		{ChannelU16, 65535, 1},
		{ChannelI16, 32767, 1},
		{ChannelI16, -32768, float64(float32(-32768) / 32767.0)},
		{ChannelF32, -9999, -9999},
		{ChannelNone, 3.5, 3.5},
	}
	for _, c := range cases {
		if got := c.ct.Normalized(c.in); got != c.want {
			t.Errorf("%s.Normalized(%g) = %g, want %g", c.ct, c.in, got, c.want)
		}
	}
}
