package collision

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/skeleton"
)

// ContactType classifies a contact by which geometric feature of each body
// produced it. The neural package combines this with a per-dof ancestor
// test to decide how a contact's position/normal gradient is computed.
type ContactType int

const (
	ContactVertexFace ContactType = iota // vertex of A against a face of B
	ContactFaceVertex                    // face of A against a vertex of B
	ContactEdgeEdge                      // edge of A against an edge of B
	ContactUnsupported                   // arity combination with no clean geometric interpretation
)

func (t ContactType) String() string {
	switch t {
	case ContactVertexFace:
		return "VertexFace"
	case ContactFaceVertex:
		return "FaceVertex"
	case ContactEdgeEdge:
		return "EdgeEdge"
	default:
		return "Unsupported"
	}
}

// ContactPoint is a single point of a contact manifold.
type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64
}

// Contact is a full narrow-phase result between two bodies: a manifold of
// contact points sharing one normal, tagged with the geometric feature pair
// that produced it. EdgeA*/EdgeB* are populated only when Type is
// ContactEdgeEdge, giving the differentiator the two line parameters it
// needs for the closest-point-between-skew-lines gradient.
type Contact struct {
	BodyA, BodyB *skeleton.Body
	Points       []ContactPoint
	Normal       mgl64.Vec3
	Type         ContactType

	EdgeAPoint, EdgeADir mgl64.Vec3
	EdgeBPoint, EdgeBDir mgl64.Vec3
}
