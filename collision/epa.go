package collision

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/skeleton"
)

const (
	epaMaxIterations             = 32
	epaConvergenceTolerance      = 0.001
	epaMinFaceDistance           = 0.0001
	degeneratePenetrationEstimate = 0.01
)

// EPA computes penetration depth and a contact manifold for two bodies
// known (from a prior GJK query) to overlap, expanding a polytope seeded by
// GJK's final simplex toward the Minkowski-difference origin.
func EPA(a, b *skeleton.Body, simplex *Simplex) (Contact, error) {
	if simplex.Count < 4 {
		return handleDegenerateSimplex(a, b, simplex), nil
	}

	faces := buildInitialFaces(simplex.Points)

	for i := 0; i < epaMaxIterations; i++ {
		if len(faces) == 0 {
			break
		}

		closestIndex := findClosestFaceIndex(faces)
		closest := faces[closestIndex]

		if closest.Distance < epaMinFaceDistance {
			faces[closestIndex] = faces[len(faces)-1]
			faces = faces[:len(faces)-1]
			continue
		}

		support := MinkowskiSupport(a, b, closest.Normal)
		distance := support.Dot(closest.Normal)

		if distance-closest.Distance < epaConvergenceTolerance {
			return buildContact(a, b, closest.Normal, closest.Distance), nil
		}

		faces = addPointAndRebuildFaces(faces, support, closestIndex)
	}

	return Contact{}, fmt.Errorf("EPA failed to converge after %d iterations", epaMaxIterations)
}

func buildContact(a, b *skeleton.Body, normal mgl64.Vec3, depth float64) Contact {
	points, contactType, edgeInfo := GenerateManifold(a, b, normal, depth)
	return Contact{
		BodyA:      a,
		BodyB:      b,
		Points:     points,
		Normal:     normal,
		Type:       contactType,
		EdgeAPoint: edgeInfo.EdgeAPoint,
		EdgeADir:   edgeInfo.EdgeADir,
		EdgeBPoint: edgeInfo.EdgeBPoint,
		EdgeBDir:   edgeInfo.EdgeBDir,
	}
}

func handleDegenerateSimplex(bodyA, bodyB *skeleton.Body, simplex *Simplex) Contact {
	if simplex.Count >= 2 {
		a := simplex.Points[0]
		b := simplex.Points[1]

		distA := math.Sqrt(a.Dot(a))
		distB := math.Sqrt(b.Dot(b))

		var penetration float64
		var normal mgl64.Vec3
		if distA < distB {
			penetration, normal = distA, a.Normalize()
		} else {
			penetration, normal = distB, b.Normalize()
		}

		return buildContact(bodyA, bodyB, normal, penetration)
	}

	normal := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	normalLen := normal.Len()
	if normalLen < normalSnapThreshold {
		normal = mgl64.Vec3{0, 1, 0}
	} else {
		normal = normal.Mul(1.0 / normalLen)
	}

	return buildContact(bodyA, bodyB, normal, degeneratePenetrationEstimate)
}
