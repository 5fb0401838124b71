package skeleton

// DegreeOfFreedom names one scalar entry of the skeleton's flat Q/QDot
// arrays: which joint it belongs to, and which of that joint's local
// columns it is. Gradient code addresses generalized coordinates through
// this handle rather than raw integer indices so ancestor tests read
// naturally.
type DegreeOfFreedom struct {
	Skel         *Skeleton
	Index        int // position in skeleton's flat Q/QDot arrays
	JointIndex   int // index into Skel.Joints
	IndexInJoint int // which local dof of that joint this is
}

func (d *DegreeOfFreedom) Joint() Joint {
	return d.Skel.Joints[d.JointIndex]
}

func (d *DegreeOfFreedom) ChildBodyIndex() int {
	return d.Joint().ChildBodyIndex()
}

func (d *DegreeOfFreedom) ParentBodyIndex() int {
	return d.Joint().ParentBodyIndex()
}
