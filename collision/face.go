package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const normalSnapThreshold = 1e-8

// face is one triangular facet of an EPA polytope: its three world-space
// vertices, outward unit normal, and distance from the Minkowski-difference
// origin to its supporting plane.
type face struct {
	Points   [3]mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

func createFaceOutward(a, b, c, oppositePoint mgl64.Vec3) face {
	f := face{Points: [3]mgl64.Vec3{a, b, c}}

	ab := b.Sub(a)
	ac := c.Sub(a)
	normal := ab.Cross(ac)

	normalLength := math.Sqrt(normal.Dot(normal))
	if normalLength < 1e-8 {
		f.Normal = mgl64.Vec3{0, 1, 0}
		f.Distance = 0.0001
		return f
	}
	normal = normal.Normalize()

	toOpposite := oppositePoint.Sub(a)
	if normal.Dot(toOpposite) > 0 {
		normal = normal.Mul(-1)
	}

	distance := a.Dot(normal)
	if distance < 0 {
		normal = normal.Mul(-1)
		distance = -distance
	}
	if distance < 0.0001 {
		distance = 0.0001
	}

	f.Normal = snapNormalToAxis(normal)
	f.Distance = distance
	return f
}

func buildInitialFaces(simplex [4]mgl64.Vec3) []face {
	a, b, c, d := simplex[0], simplex[1], simplex[2], simplex[3]

	candidates := []face{
		createFaceOutward(a, b, c, d),
		createFaceOutward(a, c, d, b),
		createFaceOutward(a, d, b, c),
		createFaceOutward(b, d, c, a),
	}

	var faces []face
	for _, f := range candidates {
		if f.Distance >= 0.0001 {
			faces = append(faces, f)
		}
	}

	if len(faces) < 3 {
		return candidates
	}
	return faces
}

func findClosestFaceIndex(faces []face) int {
	closestIndex := 0
	minDistance := faces[0].Distance
	for i := 1; i < len(faces); i++ {
		if faces[i].Distance < minDistance {
			closestIndex = i
			minDistance = faces[i].Distance
		}
	}
	return closestIndex
}

type polytopeEdge struct {
	A, B mgl64.Vec3
}

func addPointAndRebuildFaces(faces []face, support mgl64.Vec3, closestIndex int) []face {
	pointSet := make(map[mgl64.Vec3]bool)
	for _, f := range faces {
		for _, p := range f.Points {
			pointSet[p] = true
		}
	}

	var centroid mgl64.Vec3
	count := 0
	for point := range pointSet {
		centroid = centroid.Add(point)
		count++
	}
	if count > 0 {
		centroid = centroid.Mul(1.0 / float64(count))
	}

	var visibleFaces []int
	for i, f := range faces {
		toSupport := support.Sub(f.Points[0])
		if toSupport.Dot(f.Normal) > 0 {
			visibleFaces = append(visibleFaces, i)
		}
	}

	if len(visibleFaces) >= len(faces) {
		visibleFaces = []int{closestIndex}
	}

	edges := findBoundaryEdges(faces, visibleFaces)

	for i := len(visibleFaces) - 1; i >= 0; i-- {
		index := visibleFaces[i]
		faces = append(faces[:index], faces[index+1:]...)
	}

	for _, edge := range edges {
		faces = append(faces, createFaceOutward(edge.A, edge.B, support, centroid))
	}

	if len(faces) == 0 {
		faces = []face{{
			Points:   [3]mgl64.Vec3{support, support, support},
			Normal:   mgl64.Vec3{0, 1, 0},
			Distance: 0.0001,
		}}
	}

	return faces
}

func findBoundaryEdges(faces []face, visibleIndices []int) []polytopeEdge {
	edgeCount := make(map[polytopeEdge]int)

	for _, idx := range visibleIndices {
		f := faces[idx]
		edges := [3]polytopeEdge{
			{f.Points[0], f.Points[1]},
			{f.Points[1], f.Points[2]},
			{f.Points[2], f.Points[0]},
		}
		for _, e := range edges {
			edgeCount[normalizeEdge(e)]++
		}
	}

	var boundary []polytopeEdge
	for edge, count := range edgeCount {
		if count == 1 {
			boundary = append(boundary, edge)
		}
	}
	return boundary
}

func normalizeEdge(edge polytopeEdge) polytopeEdge {
	if compareVec3(edge.A, edge.B) > 0 {
		return polytopeEdge{edge.B, edge.A}
	}
	return edge
}

func compareVec3(a, b mgl64.Vec3) int {
	if a[0] != b[0] {
		if a[0] < b[0] {
			return -1
		}
		return 1
	}
	if a[1] != b[1] {
		if a[1] < b[1] {
			return -1
		}
		return 1
	}
	if a[2] != b[2] {
		if a[2] < b[2] {
			return -1
		}
		return 1
	}
	return 0
}

// snapNormalToAxis clamps near-zero components of a normal to exactly zero
// and renormalizes, avoiding float jitter on axis-aligned contacts.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	x, y, z := normal[0], normal[1], normal[2]
	if math.Abs(x) < normalSnapThreshold {
		x = 0
	}
	if math.Abs(y) < normalSnapThreshold {
		y = 0
	}
	if math.Abs(z) < normalSnapThreshold {
		z = 0
	}

	clamped := mgl64.Vec3{x, y, z}
	length := math.Sqrt(clamped.Dot(clamped))
	if length > 1e-8 {
		return clamped.Mul(1.0 / length)
	}
	return mgl64.Vec3{0, 1, 0}
}
