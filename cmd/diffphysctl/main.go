// Command diffphysctl loads a YAML scene, steps the world, and prints the
// resulting state or one of the step's backprop Jacobians.
package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lindqvist/diffphys"
	"github.com/lindqvist/diffphys/neural"
)

var (
	steps int
	kind  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "diffphysctl",
		Short: "step a differentiable rigid-body scene and inspect the result",
	}

	stepCmd := &cobra.Command{
		Use:   "step [scene.yaml]",
		Short: "step the world and print the final generalized coordinates and velocities",
		Args:  cobra.ExactArgs(1),
		RunE:  runStep,
	}
	stepCmd.Flags().IntVar(&steps, "steps", 1, "number of steps to run")

	jacobianCmd := &cobra.Command{
		Use:   "jacobian [scene.yaml]",
		Short: "step the world and print one of the final step's backprop Jacobians",
		Args:  cobra.ExactArgs(1),
		RunE:  runJacobian,
	}
	jacobianCmd.Flags().IntVar(&steps, "steps", 1, "number of steps to run before reporting the Jacobian")
	jacobianCmd.Flags().StringVar(&kind, "kind", "velvel", "which Jacobian to print: velvel|forcevel|velpos|pospos|posvel")

	rootCmd.AddCommand(stepCmd, jacobianCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadWorld(path string) (*diffphys.World, *diffphys.SceneConfig, error) {
	cfg, err := diffphys.LoadScene(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading scene: %w", err)
	}
	world, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building scene: %w", err)
	}
	return world, cfg, nil
}

func runStep(cmd *cobra.Command, args []string) error {
	world, cfg, err := loadWorld(args[0])
	if err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if _, err := world.Step(cfg.DeltaT, nil); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "dof\tq\tqdot")
	q, qdot := world.Group.Q(), world.Group.QDot()
	for i := range q {
		fmt.Fprintf(w, "%d\t%.6f\t%.6f\n", i, q[i], qdot[i])
	}
	return w.Flush()
}

func runJacobian(cmd *cobra.Command, args []string) error {
	world, cfg, err := loadWorld(args[0])
	if err != nil {
		return err
	}

	var snap *neural.BackpropSnapshot
	for i := 0; i < steps; i++ {
		s, err := world.Step(cfg.DeltaT, nil)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		snap = s
	}
	if snap == nil {
		return fmt.Errorf("--steps must be at least 1")
	}

	var (
		jac [][]float64
		jerr error
	)
	switch kind {
	case "velvel":
		jac, jerr = snap.VelVelJacobian()
	case "forcevel":
		jac, jerr = snap.ForceVelJacobian()
	case "velpos":
		jac, jerr = snap.VelPosJacobian()
	case "pospos":
		jac, jerr = snap.PosPosJacobian()
	case "posvel":
		jac, jerr = snap.PosVelJacobian()
	default:
		return fmt.Errorf("unknown --kind %q: want velvel|forcevel|velpos|pospos|posvel", kind)
	}
	if jerr != nil {
		return fmt.Errorf("computing %s Jacobian: %w", kind, jerr)
	}

	printMatrix(jac)
	return nil
}

func printMatrix(m [][]float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	for _, row := range m {
		for j, v := range row {
			if j > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprintf(w, "%.6f", v)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}
