package cmd

import (
	"fmt"
	"time"

	"github.com/kozaktomas/facelens/internal/config"
	"github.com/spf13/cobra"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetDuration gets a duration flag value or panics if the flag doesn't exist.
func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// applyAnalysisFlags overrides analysis toggles with the flags the user set explicitly.
func applyAnalysisFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("confidence") {
		cfg.Analysis.ConfidenceThreshold = mustGetFloat64(cmd, "confidence")
	}
	if flags.Changed("landmarks") {
		cfg.Analysis.Landmarks = mustGetBool(cmd, "landmarks")
	}
	if flags.Changed("age-gender") {
		cfg.Analysis.AgeGender = mustGetBool(cmd, "age-gender")
	}
	if flags.Changed("emotions") {
		cfg.Analysis.Emotions = mustGetBool(cmd, "emotions")
	}
}

// addAnalysisFlags registers the analysis toggles on cmd.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("confidence", 0.5, "Minimum detection confidence (clamped into [0,1])")
	cmd.Flags().Bool("landmarks", false, "Detect facial landmarks")
	cmd.Flags().Bool("age-gender", false, "Estimate age and gender")
	cmd.Flags().Bool("emotions", false, "Classify expressions")
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
