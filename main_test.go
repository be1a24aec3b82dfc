package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stephenfox/image2qtree/internal/tiler"
	"github.com/stephenfox/image2qtree/tools"
)

func defaultFlags(inputs ...string) tools.FlagsImage2Qtree {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	fl := func(f float64) *float64 { return &f }
	b := func(v bool) *bool { return &v }

	return tools.FlagsImage2Qtree{
		OutputName:      str(""),
		Help:            b(false),
		Version:         b(false),
		ForceDatum:      str("NONE"),
		DatumRadius:     fl(0),
		PixelScale:      fl(1),
		PixelOffset:     fl(0),
		Normalize:       b(false),
		Nodata:          fl(0),
		Mode:            str("KML"),
		FileType:        str("png"),
		ChannelType:     str(""),
		ModuleName:      str(""),
		Terrain:         b(false),
		JpegQuality:     fl(0.75),
		PNGCompression:  num(3),
		TileSize:        num(256),
		MaxLODPixels:    num(1024),
		DrawOrderOffset: num(0),
		Multiband:       b(false),
		AspectRatio:     num(1),
		GlobalRes:       num(0),
		North:           fl(0),
		South:           fl(0),
		East:            fl(0),
		West:            fl(0),
		Global:          b(false),
		Projection:      str("NONE"),
		UTMZone:         num(0),
		ProjLat:         fl(0),
		ProjLon:         fl(0),
		ProjScale:       fl(1),
		P1:              fl(0),
		P2:              fl(0),
		NudgeX:          fl(0),
		NudgeY:          fl(0),
		Workers:         num(0),
		Silent:          b(true),
		LogTimestamp:    b(false),
		Set:             map[string]bool{},
		Inputs:          inputs,
	}
}

func tempInput(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scene.tif")
	if err := os.WriteFile(p, []byte("stub"), 0666); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOptionsDefaultOutputName(t *testing.T) {
	flags := defaultFlags("/data/mars_mola.tif")
	opts := optionsFromFlags(&flags)
	if opts.OutputName != "mars_mola" {
		t.Fatalf("output name = %q, want mars_mola", opts.OutputName)
	}
}

func TestOptionsGlobalBBox(t *testing.T) {
	flags := defaultFlags("in.tif")
	*flags.Global = true
	opts := optionsFromFlags(&flags)
	mb := opts.ManualBBox
	if !mb.Set || mb.North != 90 || mb.South != -90 || mb.East != 180 || mb.West != -180 {
		t.Fatalf("global bbox = %+v", mb)
	}
}

func TestOptionsNodataSetTracking(t *testing.T) {
	flags := defaultFlags("in.tif")
	opts := optionsFromFlags(&flags)
	if opts.NodataSet {
		t.Fatal("nodata should not be marked set by default")
	}
	flags.Set["nodata"] = true
	*flags.Nodata = -9999
	opts = optionsFromFlags(&flags)
	if !opts.NodataSet || opts.Nodata != -9999 {
		t.Fatalf("nodata tracking = %v %g", opts.NodataSet, opts.Nodata)
	}
}

func TestValidateRequiresInput(t *testing.T) {
	flags := defaultFlags()
	opts := optionsFromFlags(&flags)
	if msg, ok := validateOptions(opts, &flags); ok || msg == "" {
		t.Fatal("missing inputs should fail validation")
	}
}

func TestValidateModuleModes(t *testing.T) {
	for _, mode := range []string{"UNIVIEW", "CELESTIA"} {
		flags := defaultFlags(tempInput(t))
		*flags.Mode = mode
		opts := optionsFromFlags(&flags)
		if _, ok := validateOptions(opts, &flags); ok {
			t.Errorf("%s without module-name should fail", mode)
		}
		*flags.ModuleName = "marsds"
		opts = optionsFromFlags(&flags)
		if msg, ok := validateOptions(opts, &flags); !ok {
			t.Errorf("%s with module-name failed: %s", mode, msg)
		}
	}
}

func TestValidateManualBBox(t *testing.T) {
	in := tempInput(t)

	flags := defaultFlags(in)
	flags.Set["north"] = true
	*flags.North = 50
	opts := optionsFromFlags(&flags)
	if _, ok := validateOptions(opts, &flags); ok {
		t.Fatal("partial bbox should fail")
	}

	flags = defaultFlags(in)
	for _, edge := range []string{"north", "south", "east", "west"} {
		flags.Set[edge] = true
	}
	*flags.North, *flags.South, *flags.East, *flags.West = 50, 40, 20, 10
	opts = optionsFromFlags(&flags)
	if msg, ok := validateOptions(opts, &flags); !ok {
		t.Fatalf("complete bbox failed: %s", msg)
	}

	*flags.South = 60 // north below south
	opts = optionsFromFlags(&flags)
	if _, ok := validateOptions(opts, &flags); ok {
		t.Fatal("inverted latitudes should fail")
	}
}

func TestValidateSingleInputModes(t *testing.T) {
	a, b := tempInput(t), tempInput(t)
	flags := defaultFlags(a, b)
	*flags.Mode = "NONE"
	opts := optionsFromFlags(&flags)
	if _, ok := validateOptions(opts, &flags); ok {
		t.Fatal("mode NONE with two inputs should fail")
	}
}

func TestValidateSphereDatum(t *testing.T) {
	flags := defaultFlags(tempInput(t))
	*flags.ForceDatum = "SPHERE"
	opts := optionsFromFlags(&flags)
	if _, ok := validateOptions(opts, &flags); ok {
		t.Fatal("SPHERE without a radius should fail")
	}
	*flags.DatumRadius = 1737400
	opts = optionsFromFlags(&flags)
	if msg, ok := validateOptions(opts, &flags); !ok {
		t.Fatalf("SPHERE with radius failed: %s", msg)
	}
}

func TestValidateTileSizePowerOfTwo(t *testing.T) {
	flags := defaultFlags(tempInput(t))
	*flags.TileSize = 300
	opts := optionsFromFlags(&flags)
	if _, ok := validateOptions(opts, &flags); ok {
		t.Fatal("non power-of-two tile size should fail")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	flags := defaultFlags(tempInput(t))
	*flags.Mode = "WMS"
	opts := optionsFromFlags(&flags)
	if opts.Mode != tiler.Mode("") {
		t.Fatalf("unknown mode parsed as %q", opts.Mode)
	}
	if _, ok := validateOptions(opts, &flags); ok {
		t.Fatal("unknown mode should fail validation")
	}
}
