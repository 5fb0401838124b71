package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/skeleton"
)

// GenerateManifold builds contact points and a geometric type tag for a
// collision between bodyA and bodyB using Sutherland-Hodgman clipping of
// their contact features (vertex/edge/face).
func GenerateManifold(bodyA, bodyB *skeleton.Body, normal mgl64.Vec3, depth float64) ([]ContactPoint, ContactType, Contact) {
	localNormalA := bodyA.Transform.Rotation.Conjugate().Rotate(normal)
	localNormalB := bodyB.Transform.Rotation.Conjugate().Rotate(normal.Mul(-1))

	featureA := bodyA.Shape.GetContactFeature(localNormalA)
	featureB := bodyB.Shape.GetContactFeature(localNormalB)

	worldFeatureA := transformFeature(featureA, bodyA.Transform, bodyA.Shape)
	worldFeatureB := transformFeature(featureB, bodyB.Transform, bodyB.Shape)

	edgeInfo := classify(worldFeatureA, worldFeatureB)

	var incident, reference []mgl64.Vec3
	if len(worldFeatureB) <= len(worldFeatureA) {
		incident, reference = worldFeatureB, worldFeatureA
	} else {
		incident, reference = worldFeatureA, worldFeatureB
	}

	if len(incident) == 1 {
		return []ContactPoint{{Position: incident[0], Penetration: depth}}, edgeInfo.Type, edgeInfo
	}

	clipped := clipIncidentAgainstReference(incident, reference, normal)

	var contactPoints []ContactPoint
	if len(clipped) > 0 && len(reference) > 0 {
		edge1 := reference[1].Sub(reference[0])
		edge2 := reference[2%len(reference)].Sub(reference[0])
		refNormal := edge1.Cross(edge2).Normalize()
		if refNormal.Dot(normal) < 0 {
			refNormal = refNormal.Mul(-1)
		}

		refPoint := reference[0]
		offset := refPoint.Dot(refNormal)

		for _, point := range clipped {
			distance := point.Dot(refNormal) - offset
			if distance <= 0.0 {
				contactPoints = append(contactPoints, ContactPoint{Position: point, Penetration: depth})
			}
		}
	}

	if len(contactPoints) == 0 {
		deepest := bodyB.SupportWorld(normal.Mul(-1))
		contactPoints = append(contactPoints, ContactPoint{Position: deepest, Penetration: depth})
	}

	if len(contactPoints) > 4 {
		contactPoints = reduceTo4Points(contactPoints, normal)
	}

	return contactPoints, edgeInfo.Type, edgeInfo
}

// classify decides the geometric contact type from feature arities and,
// for the edge-edge case, extracts the two supporting lines the
// differentiator needs.
func classify(featureA, featureB []mgl64.Vec3) Contact {
	switch {
	case len(featureA) == 1 && len(featureB) >= 3:
		return Contact{Type: ContactVertexFace}
	case len(featureA) >= 3 && len(featureB) == 1:
		return Contact{Type: ContactFaceVertex}
	case len(featureA) == 2 && len(featureB) == 2:
		return Contact{
			Type:       ContactEdgeEdge,
			EdgeAPoint: featureA[0],
			EdgeADir:   featureA[1].Sub(featureA[0]).Normalize(),
			EdgeBPoint: featureB[0],
			EdgeBDir:   featureB[1].Sub(featureB[0]).Normalize(),
		}
	default:
		return Contact{Type: ContactUnsupported}
	}
}

func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if isLargePlane(reference) {
		return incident
	}
	if len(reference) < 2 {
		return incident
	}

	output := incident

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		edge := v2.Sub(v1)
		clipNormal := edge.Cross(normal).Normalize()

		center := computeCenter(reference)
		toCenter := center.Sub(v1)
		if toCenter.Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}

	return output
}

func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 0 {
		return polygon
	}

	var output []mgl64.Vec3
	const tolerance = 1e-6

	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	dist := p1.Sub(planePoint).Dot(planeNormal)
	denom := dir.Dot(planeNormal)

	if math.Abs(denom) < 1e-10 {
		return p1
	}

	t := -dist / denom
	t = math.Max(0, math.Min(1, t))
	return p1.Add(dir.Mul(t))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

func isLargePlane(feature []mgl64.Vec3) bool {
	if len(feature) != 4 {
		return false
	}
	for i := 0; i < len(feature); i++ {
		for j := i + 1; j < len(feature); j++ {
			if feature[i].Sub(feature[j]).Len() > 100 {
				return true
			}
		}
	}
	return false
}

func transformFeature(feature []mgl64.Vec3, transform skeleton.Transform, shape skeleton.Shape) []mgl64.Vec3 {
	if plane, ok := shape.(*skeleton.Plane); ok {
		tangent1, tangent2 := tangentBasis(plane.Normal)
		center := plane.Normal.Mul(-plane.Distance)
		const size = 1000.0

		local := []mgl64.Vec3{
			center.Add(tangent1.Mul(-size)).Add(tangent2.Mul(-size)),
			center.Add(tangent1.Mul(-size)).Add(tangent2.Mul(size)),
			center.Add(tangent1.Mul(size)).Add(tangent2.Mul(size)),
			center.Add(tangent1.Mul(size)).Add(tangent2.Mul(-size)),
		}
		result := make([]mgl64.Vec3, len(local))
		for i, p := range local {
			result[i] = transform.Position.Add(transform.Rotation.Rotate(p))
		}
		return result
	}

	result := make([]mgl64.Vec3, len(feature))
	for i, point := range feature {
		result[i] = transform.Position.Add(transform.Rotation.Rotate(point))
	}
	return result
}

func tangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	}
	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()
	return tangent1, tangent2
}

func reduceTo4Points(points []ContactPoint, normal mgl64.Vec3) []ContactPoint {
	tangent1, tangent2 := tangentBasis(normal)

	minX, maxX, minY, maxY := 0, 0, 0, 0
	minXval, maxXval := math.Inf(1), math.Inf(-1)
	minYval, maxYval := math.Inf(1), math.Inf(-1)

	for i, p := range points {
		x := p.Position.Dot(tangent1)
		y := p.Position.Dot(tangent2)

		if x < minXval {
			minXval, minX = x, i
		}
		if x > maxXval {
			maxXval, maxX = x, i
		}
		if y < minYval {
			minYval, minY = y, i
		}
		if y > maxYval {
			maxYval, maxY = y, i
		}
	}

	indices := map[int]bool{minX: true, maxX: true, minY: true, maxY: true}

	result := make([]ContactPoint, 0, 4)
	for idx := range indices {
		result = append(result, points[idx])
	}
	return result
}
