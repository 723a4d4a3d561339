package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/faceerr"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <photo>",
	Short: "Analyze every face in a photo",
	Long: `Detect every face in a photo and report its age, gender, dominant
expression and smile probability. All sub-analyses run regardless of the
live analysis toggles; only the confidence threshold applies.

Examples:
  # Print the people found in a photo
  facelens analyze family.jpg

  # Save the annotated image and print JSON
  facelens analyze family.jpg --output annotated.png --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("output", "o", "", "Write the annotated PNG to this path")
	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
	addAnalysisFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	outputPath := mustGetString(cmd, "output")
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalysisFlags(cmd, cfg)

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.controller.AnalyzePhoto(ctx, data)
	if err != nil {
		return userError(err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, res.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write annotated image: %w", err)
		}
	}

	if jsonOutput {
		return outputJSON(res)
	}

	printPeople(res.People)
	if outputPath != "" {
		fmt.Printf("\nAnnotated image written to %s\n", outputPath)
	}
	return nil
}

func printPeople(people []controller.Person) {
	fmt.Printf("Found %d face(s)\n\n", len(people))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tAGE\tGENDER\tEMOTION\tSMILE\tSCORE")
	for _, p := range people {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\n", p.Index, p.Age, p.Gender, p.Emotion, p.SmileProbability, p.Score)
	}
	w.Flush()
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// userError replaces precondition and setup failures with their user message.
func userError(err error) error {
	switch faceerr.KindOf(err) {
	case faceerr.KindPrecondition, faceerr.KindSetup:
		return errors.New(faceerr.UserMessage(err))
	}
	return err
}
