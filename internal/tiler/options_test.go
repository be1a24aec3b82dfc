package tiler

import "testing"

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"kml":            ModeKML,
		" TMS ":          ModeTMS,
		"uniview":        ModeUniview,
		"GIGAPAN_NOPROJ": ModeGigapanNoProj,
		"bogus":          "",
	}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModeGeoReferenced(t *testing.T) {
	for _, m := range []Mode{ModeKML, ModeTMS, ModeUniview, ModeGMap, ModeCelestia, ModeGigapan} {
		if !m.GeoReferenced() {
			t.Errorf("%s should be georeferenced", m)
		}
	}
	for _, m := range []Mode{ModeNone, ModeGigapanNoProj} {
		if m.GeoReferenced() {
			t.Errorf("%s should not be georeferenced", m)
		}
	}
}

func TestParseDatumOverride(t *testing.T) {
	if got := ParseDatumOverride(""); got != DatumNone {
		t.Errorf("empty datum = %q, want NONE", got)
	}
	if got := ParseDatumOverride("mars"); got != DatumMars {
		t.Errorf("mars = %q", got)
	}
	if got := ParseDatumOverride("venus"); got != "" {
		t.Errorf("unknown datum = %q, want empty", got)
	}
}

func TestParseProjection(t *testing.T) {
	if got := ParseProjection("utm"); got != ProjectionUTM {
		t.Errorf("utm = %q", got)
	}
	if got := ParseProjection("plate_carree"); got != ProjectionPlateCarree {
		t.Errorf("plate_carree = %q", got)
	}
	if got := ParseProjection(""); got != ProjectionNone {
		t.Errorf("empty projection = %q, want NONE", got)
	}
	if got := ParseProjection("robinson"); got != "" {
		t.Errorf("unknown projection = %q, want empty", got)
	}
}

func TestValidChannelType(t *testing.T) {
	for _, s := range []string{"UINT8", "uint16", "INT16", "FLOAT", ""} {
		if !ValidChannelType(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	if ValidChannelType("DOUBLE") {
		t.Error("DOUBLE should be invalid")
	}
}

func TestOptionsCopy(t *testing.T) {
	opts := &TilerOptions{InputFiles: []string{"a.tif", "b.tif"}, TileSize: 256}
	dup := opts.Copy()
	dup.InputFiles[0] = "c.tif"
	dup.TileSize = 512
	if opts.InputFiles[0] != "a.tif" {
		t.Fatal("copy should not share the input slice")
	}
	if opts.TileSize != 256 {
		t.Fatal("copy should not share scalar fields")
	}
}
