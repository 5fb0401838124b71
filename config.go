package diffphys

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/skeleton"
)

const (
	DefaultDeltaT       = 1.0 / 60.0
	DefaultGridCellSize = 2.0
	DefaultGridCells    = 1024
)

// SceneConfig is the on-disk description of a scene: one or more skeletons,
// each with its own bodies and joints, plus the stepping parameters to run
// the whole world with. Grounded on san-kum-dynsim's Config/DefaultConfig/
// Load pattern: Load always starts from DefaultConfig and lets the YAML
// document overlay only the fields it sets.
type SceneConfig struct {
	DeltaT    float64          `yaml:"dt"`
	Workers   int              `yaml:"workers"`
	Grid      GridConfig       `yaml:"grid"`
	Skeletons []SkeletonConfig `yaml:"skeletons"`
}

// SkeletonConfig describes one skeleton: its bodies, its joints and the
// gravity vector it falls under. Every skeleton in a scene is registered
// with the world's Group in declaration order, which fixes the world's
// flat coordinate vector q.
type SkeletonConfig struct {
	Name    string        `yaml:"name"`
	Gravity [3]float64    `yaml:"gravity"`
	Bodies  []BodyConfig  `yaml:"bodies"`
	Joints  []JointConfig `yaml:"joints"`
}

type GridConfig struct {
	CellSize float64 `yaml:"cell_size"`
	Cells    int     `yaml:"cells"`
}

// BodyConfig describes one skeleton body. Static is set explicitly rather
// than inferred from Mass, since YAML has no literal spelling of +Inf.
type BodyConfig struct {
	Name     string         `yaml:"name"`
	Static   bool           `yaml:"static"`
	Mass     float64        `yaml:"mass"`
	Shape    ShapeConfig    `yaml:"shape"`
	Material MaterialConfig `yaml:"material"`
}

type ShapeConfig struct {
	Type        string     `yaml:"type"` // "sphere" | "box" | "plane"
	Radius      float64    `yaml:"radius,omitempty"`
	HalfExtents [3]float64 `yaml:"half_extents,omitempty"`
	Normal      [3]float64 `yaml:"normal,omitempty"`
	Distance    float64    `yaml:"distance,omitempty"`
}

type MaterialConfig struct {
	Restitution     float64 `yaml:"restitution"`
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
	LinearDamping   float64 `yaml:"linear_damping"`
	AngularDamping  float64 `yaml:"angular_damping"`
}

// JointConfig describes one edge of a skeleton's kinematic tree. Q seeds
// the joint's slice of the skeleton's generalized coordinates; a nil Q
// leaves those dofs at zero.
type JointConfig struct {
	Type         string     `yaml:"type"` // "free" | "revolute" | "prismatic"
	Name         string     `yaml:"name"`
	Parent       string     `yaml:"parent"`
	Child        string     `yaml:"child"`
	Axis         [3]float64 `yaml:"axis,omitempty"`
	ParentOffset [3]float64 `yaml:"parent_offset,omitempty"`
	ChildOffset  [3]float64 `yaml:"child_offset,omitempty"`
	Q            []float64  `yaml:"q,omitempty"`
}

func DefaultConfig() *SceneConfig {
	return &SceneConfig{
		DeltaT:  DefaultDeltaT,
		Workers: DefaultWorkers,
		Grid:    GridConfig{CellSize: DefaultGridCellSize, Cells: DefaultGridCells},
		Skeletons: []SkeletonConfig{
			{Name: "scene", Gravity: [3]float64{0, -9.8, 0}},
		},
	}
}

// LoadScene reads a YAML scene file, overlaying it onto DefaultConfig.
func LoadScene(path string) (*SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveScene marshals cfg back to a YAML file, the write-side counterpart of
// LoadScene kept for round-tripping scenes a caller built in code.
func SaveScene(path string, cfg *SceneConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build deserializes cfg into a running World: one skeleton per entry in
// cfg.Skeletons, each with every body and joint constructed in declaration
// order and an initial Q seeded from each joint's Q list, all registered
// with a single Group in skeleton-declaration order, plus a spatial grid
// sized per cfg.Grid.
func (cfg *SceneConfig) Build() (*World, error) {
	skels := make([]*skeleton.Skeleton, 0, len(cfg.Skeletons))
	for _, sc := range cfg.Skeletons {
		skel, err := sc.build()
		if err != nil {
			return nil, err
		}
		skels = append(skels, skel)
	}

	cellSize := cfg.Grid.CellSize
	if cellSize <= 0 {
		cellSize = DefaultGridCellSize
	}
	cells := cfg.Grid.Cells
	if cells <= 0 {
		cells = DefaultGridCells
	}
	grid := collision.NewGrid(cellSize, cells)

	world := NewWorld(skels, grid)
	if cfg.Workers > 0 {
		world.Workers = cfg.Workers
	}
	return world, nil
}

// build constructs one skeleton: every body and joint in declaration
// order, with each joint's Q list seeding its slice of the skeleton's
// generalized coordinates.
func (sc *SkeletonConfig) build() (*skeleton.Skeleton, error) {
	skel := skeleton.NewSkeleton(sc.Name, mgl64.Vec3{sc.Gravity[0], sc.Gravity[1], sc.Gravity[2]})

	bodyIndex := make(map[string]int, len(sc.Bodies))
	for _, bc := range sc.Bodies {
		shape, err := bc.Shape.build()
		if err != nil {
			return nil, fmt.Errorf("diffphys: skeleton %q: body %q: %w", sc.Name, bc.Name, err)
		}
		mass := bc.Mass
		if bc.Static {
			mass = math.Inf(1)
		}
		body := skeleton.NewBody(bc.Name, shape, mass, bc.Material.build())
		bodyIndex[bc.Name] = skel.AddBody(body)
	}

	for _, jc := range sc.Joints {
		parentIdx, ok := bodyIndex[jc.Parent]
		if !ok {
			return nil, fmt.Errorf("diffphys: skeleton %q: joint %q: unknown parent body %q", sc.Name, jc.Name, jc.Parent)
		}
		childIdx, ok := bodyIndex[jc.Child]
		if !ok {
			return nil, fmt.Errorf("diffphys: skeleton %q: joint %q: unknown child body %q", sc.Name, jc.Name, jc.Child)
		}

		joint, err := jc.build(parentIdx, childIdx)
		if err != nil {
			return nil, fmt.Errorf("diffphys: skeleton %q: joint %q: %w", sc.Name, jc.Name, err)
		}
		jointIndex := skel.AddJoint(joint)

		if len(jc.Q) > 0 {
			offset := skel.DofOffsetForJoint(jointIndex)
			for i, q := range jc.Q {
				if i >= joint.NumDofs() {
					break
				}
				skel.Q[offset+i] = q
			}
		}
	}

	skel.ForwardKinematics()
	return skel, nil
}

func vec3(v [3]float64) mgl64.Vec3 { return mgl64.Vec3{v[0], v[1], v[2]} }

func (sc ShapeConfig) build() (skeleton.Shape, error) {
	switch sc.Type {
	case "sphere":
		return &skeleton.Sphere{Radius: sc.Radius}, nil
	case "box":
		return &skeleton.Box{HalfExtents: vec3(sc.HalfExtents)}, nil
	case "plane":
		return &skeleton.Plane{Normal: vec3(sc.Normal), Distance: sc.Distance}, nil
	default:
		return nil, fmt.Errorf("diffphys: unknown shape type %q", sc.Type)
	}
}

func (mc MaterialConfig) build() skeleton.Material {
	return skeleton.Material{
		Restitution:     mc.Restitution,
		StaticFriction:  mc.StaticFriction,
		DynamicFriction: mc.DynamicFriction,
		LinearDamping:   mc.LinearDamping,
		AngularDamping:  mc.AngularDamping,
	}
}

func (jc JointConfig) build(parentIdx, childIdx int) (skeleton.Joint, error) {
	switch jc.Type {
	case "free":
		return skeleton.NewFreeJoint(jc.Name, parentIdx, childIdx), nil
	case "revolute":
		return skeleton.NewRevoluteJoint(jc.Name, parentIdx, childIdx, vec3(jc.Axis), vec3(jc.ParentOffset), vec3(jc.ChildOffset)), nil
	case "prismatic":
		return skeleton.NewPrismaticJoint(jc.Name, parentIdx, childIdx, vec3(jc.Axis), vec3(jc.ParentOffset), vec3(jc.ChildOffset)), nil
	default:
		return nil, fmt.Errorf("diffphys: unknown joint type %q", jc.Type)
	}
}
