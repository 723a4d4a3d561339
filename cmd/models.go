package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check that the face models are loaded",
	Long: `Ask the detector backend which models it has loaded and report
whether everything needed for analysis and comparison is available.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Checking %s detector backend...\n", cfg.Detector.Backend)
	waitErr := a.controller.WaitForModels(ctx)
	status := a.controller.Models()

	for _, m := range status.Models {
		mark := "missing"
		if m.Loaded {
			mark = "loaded"
		}
		fmt.Printf("  %-20s %s\n", m.Name, mark)
	}

	if waitErr != nil {
		return fmt.Errorf("models not ready: %s", status.Error)
	}
	fmt.Println("All required models are loaded.")
	return nil
}
