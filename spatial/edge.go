package spatial

import "github.com/go-gl/mathgl/mgl64"

// ClosestPointBetweenLines finds the midpoint of the shortest segment
// between two infinite lines, each given as a fixed point and a (not
// necessarily unit) direction. This is the closed-form skew-line
// intersection used to locate an edge-edge contact point.
func ClosestPointBetweenLines(pointA, dirA, pointB, dirB mgl64.Vec3) mgl64.Vec3 {
	r := pointA.Sub(pointB)
	a := dirA.Dot(dirA)
	b := dirA.Dot(dirB)
	c := dirB.Dot(dirB)
	d := dirA.Dot(r)
	e := dirB.Dot(r)

	denom := a*c - b*b
	var s, t float64
	if denom > 1e-12 {
		s = (b*e - c*d) / denom
		t = (a*e - b*d) / denom
	}

	onA := pointA.Add(dirA.Mul(s))
	onB := pointB.Add(dirB.Mul(t))
	return onA.Add(onB).Mul(0.5)
}

// ContactPointGradient differentiates ClosestPointBetweenLines with respect
// to a single DOF, given the gradients of each edge's fixed point and
// direction under that DOF. Pass zero vectors for the side of the contact
// that the DOF does not move (e.g. all of edge B's gradients are zero when
// only edge A depends on the DOF).
func ContactPointGradient(
	pointA, dPointA, dirA, dDirA mgl64.Vec3,
	pointB, dPointB, dirB, dDirB mgl64.Vec3,
) mgl64.Vec3 {
	r := pointA.Sub(pointB)
	dr := dPointA.Sub(dPointB)

	a := dirA.Dot(dirA)
	da := 2 * dirA.Dot(dDirA)
	b := dirA.Dot(dirB)
	db := dDirA.Dot(dirB) + dirA.Dot(dDirB)
	c := dirB.Dot(dirB)
	dc := 2 * dirB.Dot(dDirB)
	d := dirA.Dot(r)
	dd := dDirA.Dot(r) + dirA.Dot(dr)
	e := dirB.Dot(r)
	de := dDirB.Dot(r) + dirB.Dot(dr)

	denom := a*c - b*b
	ddenom := da*c + a*dc - 2*b*db

	var s, t, ds, dt float64
	if denom > 1e-12 {
		s = (b*e - c*d) / denom
		t = (a*e - b*d) / denom

		numS := b*e - c*d
		dNumS := db*e + b*de - dc*d - c*dd
		ds = (dNumS*denom - numS*ddenom) / (denom * denom)

		numT := a*e - b*d
		dNumT := da*e + a*de - db*d - b*dd
		dt = (dNumT*denom - numT*ddenom) / (denom * denom)
	}

	dOnA := dPointA.Add(dirA.Mul(ds)).Add(dDirA.Mul(s))
	dOnB := dPointB.Add(dirB.Mul(dt)).Add(dDirB.Mul(t))
	return dOnA.Add(dOnB).Mul(0.5)
}
