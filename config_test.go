package diffphys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DeltaT <= 0 {
		t.Error("DeltaT should be positive")
	}
	if cfg.Grid.CellSize <= 0 || cfg.Grid.Cells <= 0 {
		t.Error("Grid should have a positive cell size and cell count")
	}
	if len(cfg.Skeletons) != 1 {
		t.Fatalf("got %d skeletons, want 1", len(cfg.Skeletons))
	}
	if cfg.Skeletons[0].Gravity[1] >= 0 {
		t.Errorf("Gravity.y = %v, want negative", cfg.Skeletons[0].Gravity[1])
	}
}

func TestLoadSceneOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	doc := `
dt: 0.02
skeletons:
  - name: two-body
    bodies:
      - name: ground
        static: true
        shape: {type: plane, normal: [0, 1, 0], distance: 0}
      - name: ball
        mass: 2
        shape: {type: sphere, radius: 0.5}
        material: {restitution: 0.3}
    joints:
      - {type: free, name: ball_joint, parent: ground, child: ball, q: [0, 0, 0, 0, 3, 0]}
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadScene(path)
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}

	if cfg.DeltaT != 0.02 {
		t.Errorf("DeltaT = %v, want 0.02", cfg.DeltaT)
	}
	if cfg.Grid.CellSize != DefaultGridCellSize {
		t.Errorf("Grid.CellSize = %v, want default %v carried over from DefaultConfig", cfg.Grid.CellSize, DefaultGridCellSize)
	}
	if len(cfg.Skeletons) != 1 {
		t.Fatalf("got %d skeletons, want 1", len(cfg.Skeletons))
	}
	sc := cfg.Skeletons[0]
	if sc.Name != "two-body" {
		t.Errorf("Name = %q, want two-body", sc.Name)
	}
	if len(sc.Bodies) != 2 || len(sc.Joints) != 1 {
		t.Fatalf("got %d bodies and %d joints, want 2 and 1", len(sc.Bodies), len(sc.Joints))
	}
}

func TestSceneConfigBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Skeletons[0].Bodies = []BodyConfig{
		{Name: "ground", Static: true, Shape: ShapeConfig{Type: "plane", Normal: [3]float64{0, 1, 0}}},
		{Name: "ball", Mass: 1, Shape: ShapeConfig{Type: "sphere", Radius: 1}, Material: MaterialConfig{Restitution: 0.5}},
	}
	cfg.Skeletons[0].Joints = []JointConfig{
		{Type: "free", Name: "ball_joint", Parent: "ground", Child: "ball", Q: []float64{0, 0, 0, 0, 4, 0}},
	}

	world, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(world.Skels) != 1 {
		t.Fatalf("got %d skeletons, want 1", len(world.Skels))
	}
	skel := world.Skels[0]
	if len(skel.Bodies) != 2 {
		t.Fatalf("got %d bodies, want 2", len(skel.Bodies))
	}
	if !skel.Bodies[0].IsStatic() {
		t.Error("ground body should be static")
	}
	if got := skel.Q[4]; got != 4 {
		t.Errorf("seeded Q[4] = %v, want 4", got)
	}
	if got := world.Group.Q()[4]; got != 4 {
		t.Errorf("group Q[4] = %v, want 4", got)
	}
	if world.Grid == nil {
		t.Error("Build did not construct a Grid")
	}
}

// TestSceneConfigBuildMultipleSkeletons confirms Build registers every
// skeleton in cfg.Skeletons with the world's Group, concatenating their
// dofs in declaration order.
func TestSceneConfigBuildMultipleSkeletons(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Skeletons = []SkeletonConfig{
		{
			Name:    "left",
			Gravity: [3]float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "ground", Static: true, Shape: ShapeConfig{Type: "plane", Normal: [3]float64{0, 1, 0}}},
				{Name: "ball", Mass: 1, Shape: ShapeConfig{Type: "sphere", Radius: 1}},
			},
			Joints: []JointConfig{
				{Type: "free", Name: "ball_joint", Parent: "ground", Child: "ball", Q: []float64{0, 0, 0, 0, 4, 0}},
			},
		},
		{
			Name:    "right",
			Gravity: [3]float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "ground2", Static: true, Shape: ShapeConfig{Type: "plane", Normal: [3]float64{0, 1, 0}}},
				{Name: "ball2", Mass: 1, Shape: ShapeConfig{Type: "sphere", Radius: 1}},
			},
			Joints: []JointConfig{
				{Type: "free", Name: "ball2_joint", Parent: "ground2", Child: "ball2", Q: []float64{0, 0, 0, 0, 8, 0}},
			},
		},
	}

	world, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(world.Skels) != 2 {
		t.Fatalf("got %d skeletons, want 2", len(world.Skels))
	}
	if world.Skels[0].Name != "left" || world.Skels[1].Name != "right" {
		t.Errorf("skeleton order = [%q, %q], want [left, right]", world.Skels[0].Name, world.Skels[1].Name)
	}

	wantDofs := len(world.Skels[0].Dofs) + len(world.Skels[1].Dofs)
	if got := world.Group.NumDofs(); got != wantDofs {
		t.Errorf("Group.NumDofs() = %d, want %d", got, wantDofs)
	}

	offset := len(world.Skels[0].Dofs)
	q := world.Group.Q()
	if got := q[4]; got != 4 {
		t.Errorf("left skeleton Q[4] via group = %v, want 4", got)
	}
	if got := q[offset+4]; got != 8 {
		t.Errorf("right skeleton Q[4] via group = %v, want 8", got)
	}
}

func TestSceneConfigBuildUnknownBody(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Skeletons[0].Bodies = []BodyConfig{{Name: "ball", Mass: 1, Shape: ShapeConfig{Type: "sphere", Radius: 1}}}
	cfg.Skeletons[0].Joints = []JointConfig{{Type: "free", Name: "j", Parent: "missing", Child: "ball"}}

	if _, err := cfg.Build(); err == nil {
		t.Error("expected an error for a joint referencing an unknown parent body")
	}
}

func TestSceneConfigBuildUnknownShapeType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Skeletons[0].Bodies = []BodyConfig{{Name: "ball", Mass: 1, Shape: ShapeConfig{Type: "cylinder"}}}

	if _, err := cfg.Build(); err == nil {
		t.Error("expected an error for an unknown shape type")
	}
}

func TestSaveAndLoadSceneRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.yaml")
	cfg := DefaultConfig()
	cfg.Skeletons[0].Name = "roundtrip"
	cfg.Skeletons[0].Bodies = []BodyConfig{{Name: "ball", Mass: 1, Shape: ShapeConfig{Type: "sphere", Radius: 1}}}

	if err := SaveScene(path, cfg); err != nil {
		t.Fatalf("SaveScene: %v", err)
	}

	loaded, err := LoadScene(path)
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if len(loaded.Skeletons) != 1 || loaded.Skeletons[0].Name != cfg.Skeletons[0].Name {
		t.Fatalf("Skeletons = %+v, want one named %q", loaded.Skeletons, cfg.Skeletons[0].Name)
	}
	if len(loaded.Skeletons[0].Bodies) != 1 || loaded.Skeletons[0].Bodies[0].Shape.Radius != 1 {
		t.Errorf("loaded bodies = %+v, want one sphere of radius 1", loaded.Skeletons[0].Bodies)
	}
}

func TestShapeConfigBuildAllTypes(t *testing.T) {
	cases := []ShapeConfig{
		{Type: "sphere", Radius: 2},
		{Type: "box", HalfExtents: [3]float64{1, 2, 3}},
		{Type: "plane", Normal: [3]float64{0, 1, 0}, Distance: 1},
	}
	for _, sc := range cases {
		shape, err := sc.build()
		if err != nil {
			t.Errorf("build(%+v): %v", sc, err)
		}
		if shape == nil {
			t.Errorf("build(%+v) returned a nil shape", sc)
		}
	}
}
