// Package gesture describes hand shapes as joint angle signatures and matches
// them against a library of named signatures.
package gesture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/geom"
)

const (
	numFingers = 5
	numJoints  = 3
	numSpreads = numFingers - 1

	flexionRange = math.Pi / 2
	spreadRange  = math.Pi
)

// Config controls signature comparison.
type Config struct {
	// IncludeSpread adds the inter-finger spread angles to the distance.
	IncludeSpread bool `json:"include_spread" mapstructure:"include_spread"`
}

// DefaultConfig returns the default comparison settings.
func DefaultConfig() Config {
	return Config{}
}

// Angle is one measured angle of a signature.
type Angle struct {
	Name string `json:"name"`
	// Value is in radians.
	Value float64 `json:"value"`
	// Range is the semantic span of the angle used to normalize differences.
	Range float64 `json:"range"`
	// CaredAbout marks whether the angle contributes to distances.
	CaredAbout bool    `json:"caredAbout"`
	Tolerance  float64 `json:"tolerance"`
}

func newAngle(name string, value, rng float64) Angle {
	return Angle{Name: name, Value: value, Range: rng, CaredAbout: true, Tolerance: 1}
}

// Signature is a rotation and scale invariant description of a hand shape.
type Signature struct {
	// Fingers holds the flexion angle of each joint, thumb first, from the
	// knuckle outward.
	Fingers [numFingers][numJoints]Angle `json:"fingers"`
	// Spread holds the signed angle between each pair of adjacent fingers.
	Spread [numSpreads]Angle `json:"spread"`
}

// FromHandPose computes the signature of a hand from its 3-D keypoints.
func FromHandPose(hand *detector.HandPose) Signature {
	var sig Signature
	kp := &hand.Keypoints3D
	wrist := kp[detector.Wrist]

	for finger := 0; finger < numFingers; finger++ {
		for joint := 0; joint < numJoints; joint++ {
			base := wrist
			if joint > 0 {
				base = kp[finger*4+joint]
			}
			mid := finger*4 + joint + 1
			middle := kp[mid]
			target := kp[mid+1]

			value := geom.Angle(base.Sub(middle), target.Sub(middle))
			sig.Fingers[finger][joint] = newAngle(detector.LandmarkNames[mid], value, flexionRange)
		}
	}

	normal := geom.PlaneNormal(wrist, kp[detector.IndexMCP], kp[detector.PinkyMCP])
	for i := 0; i < numSpreads; i++ {
		left, leftTip := kp[i*4+1], kp[i*4+4]
		right, rightTip := kp[i*4+5], kp[i*4+8]

		middle := left.Add(right).Mul(0.5)
		toLeft := geom.ProjectOntoPlane(leftTip.Sub(middle), normal)
		toRight := geom.ProjectOntoPlane(rightTip.Sub(middle), normal)

		value := geom.Angle(toLeft, toRight)
		// Antiparallel vectors stay at +π.
		if value < math.Pi && toLeft.Normalize().Cross(toRight.Normalize()).Dot(normal) < 0 {
			value = -value
		}
		sig.Spread[i] = newAngle(fmt.Sprintf("between_%d", i+1), value, spreadRange)
	}

	return sig
}

// Distance returns the tolerance weighted distance from s to other. Only the
// angles s cares about are compared. Spread angles count only when
// includeSpread is set.
func (s *Signature) Distance(other *Signature, includeSpread bool) float64 {
	terms := make([]float64, 0, numFingers*numJoints+numSpreads)

	for finger := range s.Fingers {
		for joint := range s.Fingers[finger] {
			terms = appendTerm(terms, s.Fingers[finger][joint], other.Fingers[finger][joint])
		}
	}
	if includeSpread {
		for i := range s.Spread {
			terms = appendTerm(terms, s.Spread[i], other.Spread[i])
		}
	}

	if len(terms) == 0 {
		return 0
	}
	return floats.Norm(terms, 2)
}

func appendTerm(terms []float64, a, b Angle) []float64 {
	if !a.CaredAbout {
		return terms
	}
	return append(terms, (a.Value-b.Value)/(a.Tolerance*a.Range))
}
