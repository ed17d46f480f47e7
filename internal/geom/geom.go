// Package geom provides the small amount of 2-D/3-D vector math the tracker and
// gesture matcher need on top of golang/geo.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Lift returns p as a 3-D vector lying on the z=0 plane.
func Lift(p r2.Point) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: 0}
}

// Distance returns the Euclidean distance between two 2-D points.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// Centroid returns the arithmetic mean of the given points.
// It returns the zero point when called without arguments.
func Centroid(points ...r2.Point) r2.Point {
	if len(points) == 0 {
		return r2.Point{}
	}
	var sum r2.Point
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// Angle returns the unsigned angle in radians between a and b, in [0, π].
// Zero-length inputs normalize to the zero vector, which yields π/2.
func Angle(a, b r3.Vector) float64 {
	return math.Acos(clamp(a.Normalize().Dot(b.Normalize()), -1, 1))
}

// ProjectOntoPlane removes the component of v along the unit vector normal.
func ProjectOntoPlane(v, normal r3.Vector) r3.Vector {
	return v.Sub(normal.Mul(v.Dot(normal)))
}

// PlaneNormal returns the unit normal of the plane spanned by (a - origin) and
// (b - origin), oriented by the right-hand rule.
func PlaneNormal(origin, a, b r3.Vector) r3.Vector {
	return a.Sub(origin).Cross(b.Sub(origin)).Normalize()
}

// clamp keeps floating point noise from pushing a cosine outside acos' domain.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
