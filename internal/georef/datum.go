package georef

import "fmt"

// Datum describes the reference body: a name plus semi-major and semi-minor
// axes in meters.
type Datum struct {
	Name      string
	SemiMajor float64
	SemiMinor float64
}

const (
	wgs84SemiMajor = 6378137.0
	wgs84SemiMinor = 6356752.3142
	lunarRadius    = 1737400.0
	marsSemiMajor  = 3396190.0
	marsSemiMinor  = 3376200.0
)

func WGS84Datum() Datum {
	return Datum{Name: "WGS84", SemiMajor: wgs84SemiMajor, SemiMinor: wgs84SemiMinor}
}

// LunarDatum is the spherical D_MOON datum.
func LunarDatum() Datum {
	return Datum{Name: "D_MOON", SemiMajor: lunarRadius, SemiMinor: lunarRadius}
}

// MarsDatum is the D_MARS datum.
func MarsDatum() Datum {
	return Datum{Name: "D_MARS", SemiMajor: marsSemiMajor, SemiMinor: marsSemiMinor}
}

// SphereDatum is a user-supplied spherical datum of the given radius.
func SphereDatum(radius float64) Datum {
	return Datum{Name: "USER SUPPLIED DATUM", SemiMajor: radius, SemiMinor: radius}
}

// SphericalMercatorDatum projects onto a sphere of the datum's semi-major
// axis, which is what the TMS and Google Maps conventions expect.
func (d Datum) SphericalMercatorDatum() Datum {
	return Datum{Name: d.Name, SemiMajor: d.SemiMajor, SemiMinor: d.SemiMajor}
}

// ProjFragment returns the proj4 ellipsoid parameters for the datum.
func (d Datum) ProjFragment() string {
	return fmt.Sprintf("+a=%f +b=%f", d.SemiMajor, d.SemiMinor)
}

func (d Datum) IsSpherical() bool {
	return d.SemiMajor == d.SemiMinor
}
