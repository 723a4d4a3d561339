package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <photo1> <photo2>",
	Short: "Compare the faces of two photos",
	Long: `Compare every face in the first photo with every face in the second.
Two faces belong to the same person when the Euclidean distance of their
descriptors is below 0.6.

Examples:
  # Compare two photos
  facelens compare a.jpg b.jpg

  # Also write both annotated images
  facelens compare a.jpg b.jpg --output-dir ./out`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().String("output-dir", "", "Write annotated photo1.png and photo2.png into this directory")
	compareCmd.Flags().Bool("json", false, "Output as JSON")
	compareCmd.Flags().Float64("confidence", 0.5, "Minimum detection confidence (clamped into [0,1])")
}

func runCompare(cmd *cobra.Command, args []string) error {
	outputDir := mustGetString(cmd, "output-dir")
	jsonOutput := mustGetBool(cmd, "json")

	photo1, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	photo2, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("confidence") {
		cfg.Analysis.ConfidenceThreshold = mustGetFloat64(cmd, "confidence")
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.controller.ComparePhotos(ctx, photo1, photo2)
	if err != nil {
		return userError(err)
	}

	if outputDir != "" {
		if err := writeComparisonImages(outputDir, res); err != nil {
			return err
		}
	}

	if jsonOutput {
		return outputJSON(res)
	}

	fmt.Printf("Photo 1: %d face(s), Photo 2: %d face(s)\n\n", res.Photo1.Len(), res.Photo2.Len())
	printVerdicts(res.Results)
	if outputDir != "" {
		fmt.Printf("\nAnnotated images written to %s\n", outputDir)
	}
	return nil
}

func printVerdicts(results []controller.Verdict) {
	for _, v := range results {
		fmt.Printf("Face %d vs Face %d: %s (distance %s)\n",
			v.ProbeIndex+1, v.CandidateIndex+1, v.Verdict, v.DistanceText)
	}
}

func writeComparisonImages(dir string, res *controller.PhotoComparison) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	files := map[string][]byte{
		"photo1.png": res.Image1,
		"photo2.png": res.Image2,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
