package pkg

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/mosaic"
	"github.com/stephenfox/image2qtree/internal/qtree"
	"github.com/stephenfox/image2qtree/internal/raster"
	"github.com/stephenfox/image2qtree/internal/tiler"
)

func compositeWithBBox(bbox geometry.BBox2i) *mosaic.Composite {
	buf := raster.NewPixelBuffer(bbox.Width(), bbox.Height(), 1)
	c := &mosaic.Composite{}
	c.Insert(mosaic.SourceView{Src: &raster.MemorySource{Name: "m", Buf: buf}},
		bbox.MinX, bbox.MinY, geometry.NewBBox2i(0, 0, bbox.Width(), bbox.Height()))
	return c
}

func TestPlanBBoxesKML(t *testing.T) {
	opts := &tiler.TilerOptions{Mode: tiler.ModeKML, TileSize: 256}
	profile := &qtree.KMLProfile{}
	c := compositeWithBBox(geometry.BBox2i{MinX: 100, MinY: 100, MaxX: 300, MaxY: 300})

	total, data := planBBoxes(opts, profile, c, nil, 1024, 1024, 1024)

	// The region snaps to a power-of-two cell and grows away from the
	// interior until it covers the data.
	want := geometry.BBox2i{MinX: 0, MinY: 0, MaxX: 512, MaxY: 512}
	if total != want {
		t.Fatalf("total = %+v, want %+v", total, want)
	}
	if data != (geometry.BBox2i{MinX: 100, MinY: 100, MaxX: 300, MaxY: 300}) {
		t.Fatalf("data = %+v", data)
	}
	if profile.XRes != 1024 || profile.OriginX != 0 || profile.OriginY != 0 {
		t.Fatalf("profile placement = origin(%d,%d) res %d", profile.OriginX, profile.OriginY, profile.XRes)
	}
}

func TestPlanBBoxesKMLGrowsTowardInteriorAtBorder(t *testing.T) {
	opts := &tiler.TilerOptions{Mode: tiler.ModeKML, TileSize: 256}
	profile := &qtree.KMLProfile{}
	c := compositeWithBBox(geometry.BBox2i{MinX: 300, MinY: 200, MaxX: 500, MaxY: 450})

	total, _ := planBBoxes(opts, profile, c, nil, 512, 512, 512)

	// The snap cell ends at the right edge of the world, so the region
	// grows west; vertically there is room, so it grows south.
	want := geometry.BBox2i{MinX: 0, MinY: 0, MaxX: 512, MaxY: 512}
	if total != want {
		t.Fatalf("total = %+v, want %+v", total, want)
	}
}

func TestPlanBBoxesDefaultAlignsToTiles(t *testing.T) {
	opts := &tiler.TilerOptions{Mode: tiler.ModeTMS, TileSize: 256}
	c := compositeWithBBox(geometry.BBox2i{MinX: 100, MinY: 100, MaxX: 300, MaxY: 300})

	total, data := planBBoxes(opts, qtree.TMSProfile{}, c, nil, 1024, 1024, 1024)

	if total != (geometry.BBox2i{MaxX: 1024, MaxY: 1024}) {
		t.Fatalf("total = %+v, want the full canvas", total)
	}
	want := geometry.BBox2i{MinX: 0, MinY: 0, MaxX: 512, MaxY: 512}
	if data != want {
		t.Fatalf("data = %+v, want %+v", data, want)
	}
}

func TestPlanBBoxesGigapanKeepsUncroppedTotal(t *testing.T) {
	opts := &tiler.TilerOptions{Mode: tiler.ModeGigapan, TileSize: 256}
	profile := &qtree.GigapanProfile{}
	// Footprint pokes past the south edge of the canvas.
	c := compositeWithBBox(geometry.BBox2i{MinX: 0, MinY: 512, MaxX: 512, MaxY: 1200})

	total, data := planBBoxes(opts, profile, c, nil, 1024, 1024, 1024)

	if total != (geometry.BBox2i{MinX: 0, MinY: 512, MaxX: 512, MaxY: 1200}) {
		t.Fatalf("total = %+v, want the uncropped footprint", total)
	}
	if data != (geometry.BBox2i{MinX: 0, MinY: 0, MaxX: 512, MaxY: 512}) {
		t.Fatalf("data = %+v", data)
	}
	if profile.LonLatBBox.Left() != -180 {
		t.Fatalf("manifest west = %g, want -180", profile.LonLatBBox.Left())
	}
}

func TestMakeProfile(t *testing.T) {
	cases := map[tiler.Mode]string{
		tiler.ModeKML:      "kml",
		tiler.ModeTMS:      "tms",
		tiler.ModeGMap:     "gmap",
		tiler.ModeUniview:  "uniview",
		tiler.ModeCelestia: "celestia",
		tiler.ModeGigapan:  "gigapan",
	}
	for mode, want := range cases {
		p, err := makeProfile(&tiler.TilerOptions{Mode: mode})
		if err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
		if p.Name() != want {
			t.Errorf("mode %s profile = %q", mode, p.Name())
		}
	}
	if _, err := makeProfile(&tiler.TilerOptions{Mode: tiler.ModeNone}); err == nil {
		t.Fatal("mode NONE should have no georeferenced profile")
	}
}

func TestRunPlainBuildsPyramid(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	f, err := os.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	opts := &tiler.TilerOptions{
		InputFiles: []string{input},
		OutputName: filepath.Join(dir, "out"),
		Mode:       tiler.ModeNone,
		FileType:   "png",
		TileSize:   4,
		Workers:    1,
		Silent:     true,
	}
	if err := NewTiler().RunTiler(opts); err != nil {
		t.Fatal(err)
	}

	for _, rel := range []string{"0/0/0.png", "1/0/0.png", "1/1/1.png"} {
		p := filepath.Join(dir, "out", rel)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing tile %s: %v", rel, err)
		}
	}
}

func TestMaskViewScalesNodataToChannelRange(t *testing.T) {
	buf := raster.NewPixelBuffer(2, 1, 1)
	buf.SetPixel(0, 0, []float32{1, 1})   // native 255 after decode
	buf.SetPixel(1, 0, []float32{0.5, 1}) // kept
	src := &raster.MemorySource{Name: "m", Buf: buf, CType: raster.ChannelU8}

	opts := &tiler.TilerOptions{NodataSet: true, Nodata: 255}
	view := maskView(opts, src)
	out, err := view.Read(geometry.NewBBox2i(0, 0, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if a := out.Alpha(0, 0); a != 0 {
		t.Fatalf("nodata pixel alpha = %v, want 0", a)
	}
	if a := out.Alpha(1, 0); a != 1 {
		t.Fatalf("data pixel alpha = %v, want 1", a)
	}
}

func TestMaskViewUsesFileNodata(t *testing.T) {
	buf := raster.NewPixelBuffer(1, 1, 1)
	buf.SetPixel(0, 0, []float32{1, 1})
	nd := 255.0
	src := &raster.MemorySource{Name: "m", Buf: buf, CType: raster.ChannelU8, Nodata: &nd}

	view := maskView(&tiler.TilerOptions{}, src)
	out, err := view.Read(geometry.NewBBox2i(0, 0, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if a := out.Alpha(0, 0); a != 0 {
		t.Fatalf("file nodata pixel alpha = %v, want 0", a)
	}
}

func TestNormalizeRangeSkipsNodata(t *testing.T) {
	buf := raster.NewPixelBuffer(2, 1, 1)
	buf.SetPixel(0, 0, []float32{0, 1})
	buf.SetPixel(1, 0, []float32{0.5, 1})
	nd := 0.0
	src := &raster.MemorySource{Name: "m", Buf: buf, CType: raster.ChannelU8, Nodata: &nd}

	lo, hi, err := mosaic.ValueRange(maskView(&tiler.TilerOptions{}, src))
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0.5 || hi != 0.5 {
		t.Fatalf("normalization range = [%g %g], want [0.5 0.5]", lo, hi)
	}
}

func TestNewEncoderTerrainForcesPNG(t *testing.T) {
	e := newEncoder(&tiler.TilerOptions{Terrain: true, FileType: "jpg"}, raster.ChannelU16)
	if e.FileType != "png" {
		t.Fatalf("terrain encoder file type = %q, want png", e.FileType)
	}
	e = newEncoder(&tiler.TilerOptions{FileType: "jpg"}, raster.ChannelU8)
	if e.FileType != "jpg" {
		t.Fatalf("encoder file type = %q, want jpg", e.FileType)
	}
}
