package georef

import (
	"strings"
	"testing"
)

func TestDatumShapes(t *testing.T) {
	if WGS84Datum().IsSpherical() {
		t.Fatal("WGS84 is an ellipsoid")
	}
	if !LunarDatum().IsSpherical() {
		t.Fatal("the lunar datum is a sphere")
	}
	if !SphereDatum(1000).IsSpherical() {
		t.Fatal("user sphere datum should be spherical")
	}
}

func TestSphericalMercatorDatum(t *testing.T) {
	d := WGS84Datum().SphericalMercatorDatum()
	if !d.IsSpherical() {
		t.Fatal("mercator datum should be a sphere")
	}
	if d.SemiMajor != WGS84Datum().SemiMajor {
		t.Fatal("mercator sphere should keep the semi-major axis")
	}
}

func TestProjFragment(t *testing.T) {
	frag := SphereDatum(1737400).ProjFragment()
	if !strings.Contains(frag, "+a=1737400") || !strings.Contains(frag, "+b=1737400") {
		t.Fatalf("fragment = %q", frag)
	}
}
