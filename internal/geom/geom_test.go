package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const epsilon = 1e-9

func TestDistance(t *testing.T) {
	got := Distance(r2.Point{X: 1, Y: 2}, r2.Point{X: 4, Y: 6})
	if math.Abs(got-5) > epsilon {
		t.Errorf("Distance() = %f, want 5", got)
	}
}

func TestCentroid(t *testing.T) {
	t.Run("mean of three points", func(t *testing.T) {
		got := Centroid(r2.Point{X: 0, Y: 0}, r2.Point{X: 3, Y: 0}, r2.Point{X: 0, Y: 3})
		if math.Abs(got.X-1) > epsilon || math.Abs(got.Y-1) > epsilon {
			t.Errorf("Centroid() = %v, want (1, 1)", got)
		}
	})

	t.Run("no points", func(t *testing.T) {
		if got := Centroid(); got != (r2.Point{}) {
			t.Errorf("Centroid() = %v, want zero point", got)
		}
	})
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name string
		a, b r3.Vector
		want float64
	}{
		{"same direction", r3.Vector{X: 1}, r3.Vector{X: 2}, 0},
		{"opposite", r3.Vector{X: 1}, r3.Vector{X: -3}, math.Pi},
		{"orthogonal", r3.Vector{X: 1}, r3.Vector{Y: 1}, math.Pi / 2},
		{"zero vector", r3.Vector{}, r3.Vector{Y: 1}, math.Pi / 2},
		{"nearly parallel", r3.Vector{X: 1, Y: 1e-17}, r3.Vector{X: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b)
			if math.IsNaN(got) {
				t.Fatal("Angle() returned NaN")
			}
			if math.Abs(got-tt.want) > 1e-7 {
				t.Errorf("Angle() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestLiftAndPlane(t *testing.T) {
	a := Lift(r2.Point{X: 1, Y: 0})
	b := Lift(r2.Point{X: 0, Y: 1})

	if a.Z != 0 || b.Z != 0 {
		t.Fatalf("Lift() should put points on z=0, got %v %v", a, b)
	}

	n := PlaneNormal(r3.Vector{}, a, b)
	if math.Abs(n.Z-1) > epsilon {
		t.Errorf("PlaneNormal() = %v, want +Z", n)
	}

	p := ProjectOntoPlane(r3.Vector{X: 1, Y: 2, Z: 3}, n)
	if math.Abs(p.Z) > epsilon || p.X != 1 || p.Y != 2 {
		t.Errorf("ProjectOntoPlane() = %v, want (1, 2, 0)", p)
	}
}
