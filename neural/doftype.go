// Package neural turns a narrow-phase collision.Contact into an analytical
// gradient machine: for every degree of freedom in the world, how does the
// contact point, normal, and resulting generalized force change with that
// dof's generalized coordinate. The package also assembles, per step, the
// bundle of step-to-step Jacobians (BackpropSnapshot) that a trajectory
// optimizer differentiates through.
package neural

import (
	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/skeleton"
)

// DofContactType classifies how a single degree of freedom relates to a
// contact: which body feature it rigidly carries, if any. This is the
// central dispatch key for every gradient in the package — it decides which
// terms are identically zero and which are screw-axis expressions.
type DofContactType int

const (
	ContactTypeNone DofContactType = iota
	ContactTypeFace
	ContactTypeVertex
	ContactTypeEdgeA
	ContactTypeEdgeB
	ContactTypeVertexFaceSelfCollision
	ContactTypeEdgeEdgeSelfCollision
	ContactTypeUnsupported
)

func (t DofContactType) String() string {
	switch t {
	case ContactTypeNone:
		return "None"
	case ContactTypeFace:
		return "Face"
	case ContactTypeVertex:
		return "Vertex"
	case ContactTypeEdgeA:
		return "EdgeA"
	case ContactTypeEdgeB:
		return "EdgeB"
	case ContactTypeVertexFaceSelfCollision:
		return "VertexFaceSelfCollision"
	case ContactTypeEdgeEdgeSelfCollision:
		return "EdgeEdgeSelfCollision"
	default:
		return "Unsupported"
	}
}

// isAncestorOfBody reports whether dof's own joint lies on the path from
// body up to the root of dof's skeleton. A dof can only be an ancestor of a
// body that belongs to its own skeleton; bodies from another skeleton are
// trivially unrelated, which is the cross-skeleton case the classifier below
// relies on to return NONE without any special-casing.
func isAncestorOfBody(dof *skeleton.DegreeOfFreedom, body *skeleton.Body) bool {
	skel := dof.Skel
	if body.Index < 0 || body.Index >= len(skel.Bodies) || skel.Bodies[body.Index] != body {
		return false
	}
	return skel.IsAncestorOfBody(skel.Joints[dof.JointIndex].ChildBodyIndex(), body.Index)
}

// Classify returns dof's DofContactType against contact, combining the two
// ancestor tests (is dof an ancestor of BodyA, of BodyB) with the contact's
// geometric feature type. The EDGE_A/EDGE_B assignment for the
// single-ancestor cases is intentionally crossed: when dof is only an
// ancestor of A, the type is EDGE_B (not EDGE_A), and symmetrically for B.
// Every downstream gradient dispatches on this same crossed labeling, so the
// two stay consistent; flipping one without the other would silently zero
// half of every edge-edge Jacobian.
func Classify(dof *skeleton.DegreeOfFreedom, contact *collision.Contact) DofContactType {
	ancestorA := isAncestorOfBody(dof, contact.BodyA)
	ancestorB := isAncestorOfBody(dof, contact.BodyB)

	switch {
	case ancestorA && ancestorB:
		switch contact.Type {
		case collision.ContactVertexFace, collision.ContactFaceVertex:
			return ContactTypeVertexFaceSelfCollision
		case collision.ContactEdgeEdge:
			return ContactTypeEdgeEdgeSelfCollision
		default:
			return ContactTypeUnsupported
		}
	case !ancestorA && !ancestorB:
		return ContactTypeNone
	case ancestorA:
		switch contact.Type {
		case collision.ContactFaceVertex:
			return ContactTypeFace
		case collision.ContactVertexFace:
			return ContactTypeVertex
		case collision.ContactEdgeEdge:
			return ContactTypeEdgeB
		default:
			return ContactTypeUnsupported
		}
	default: // ancestorB
		switch contact.Type {
		case collision.ContactVertexFace:
			return ContactTypeFace
		case collision.ContactFaceVertex:
			return ContactTypeVertex
		case collision.ContactEdgeEdge:
			return ContactTypeEdgeA
		default:
			return ContactTypeUnsupported
		}
	}
}
