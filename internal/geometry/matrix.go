package geometry

import (
	"errors"
	"math"
)

// Matrix3 is a row-major 3x3 affine transform between pixel space and
// projected space. Georeference affines keep the bottom row at (0, 0, 1).
type Matrix3 [9]float64

// IdentityMatrix3 returns the identity transform.
func IdentityMatrix3() Matrix3 {
	return Matrix3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// NewAffine builds an affine from pixel scale and origin:
//
//	x' = sx*x + tx
//	y' = sy*y + ty
func NewAffine(sx, sy, tx, ty float64) Matrix3 {
	return Matrix3{
		sx, 0, tx,
		0, sy, ty,
		0, 0, 1,
	}
}

func (m Matrix3) At(row, col int) float64 {
	return m[row*3+col]
}

func (m *Matrix3) Set(row, col int, v float64) {
	m[row*3+col] = v
}

// Apply transforms the point through the affine.
func (m Matrix3) Apply(v Vector2) Vector2 {
	return Vector2{
		X: m[0]*v.X + m[1]*v.Y + m[2],
		Y: m[3]*v.X + m[4]*v.Y + m[5],
	}
}

// Translate adds (dx, dy) to the translation column.
func (m Matrix3) Translate(dx, dy float64) Matrix3 {
	out := m
	out[2] += dx
	out[5] += dy
	return out
}

var errSingularMatrix = errors.New("geometry: affine transform is not invertible")

// Inverse returns the inverse affine. Fails on singular transforms, which a
// valid georeference never produces.
func (m Matrix3) Inverse() (Matrix3, error) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]

	det := a*e - b*d
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Matrix3{}, errSingularMatrix
	}
	inv := 1.0 / det
	return Matrix3{
		e * inv, -b * inv, (b*f - c*e) * inv,
		-d * inv, a * inv, (c*d - a*f) * inv,
		0, 0, 1,
	}, nil
}

// IsAffine reports whether the bottom row is (0, 0, 1).
func (m Matrix3) IsAffine() bool {
	return m[6] == 0 && m[7] == 0 && m[8] == 1
}
