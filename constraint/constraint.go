// Package constraint turns narrow-phase contacts into a boxed LCP: one
// normal row plus two friction rows per contact point, with bounds and
// friction coupling set the way the lcp package's solvers expect.
package constraint

import (
	"math"

	"github.com/lindqvist/diffphys/skeleton"
)

func ComputeRestitution(matA, matB skeleton.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

func ComputeStaticFriction(matA, matB skeleton.Material) float64 {
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB skeleton.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

const velocityThreshold = 1e-5

// clampSmallVelocities zeroes any generalized velocity below
// velocityThreshold, a resting-contact jitter guard applied across the
// whole flat qdot vector.
func clampSmallVelocities(qdot []float64) {
	for i, v := range qdot {
		if math.Abs(v) < velocityThreshold {
			qdot[i] = 0
		}
	}
}
