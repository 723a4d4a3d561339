package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/kozaktomas/facelens/internal/compare"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var compareDirCmd = &cobra.Command{
	Use:   "compare-dir <probe> <dir>",
	Short: "Find a person across a directory of photos",
	Long: `Compare every face in the probe photo with every face in each image
of a directory. Every probe/candidate pair is reported, files in name order.

Examples:
  # Search a directory
  facelens compare-dir me.jpg ~/Pictures/party

  # Only list files containing a match, using 8 workers
  facelens compare-dir me.jpg ~/Pictures/party --matches-only --concurrency 8`,
	Args: cobra.ExactArgs(2),
	RunE: runCompareDir,
}

func init() {
	rootCmd.AddCommand(compareDirCmd)

	compareDirCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel workers")
	compareDirCmd.Flags().Bool("matches-only", false, "Only list matching pairs")
	compareDirCmd.Flags().Bool("json", false, "Output as JSON")
	compareDirCmd.Flags().Float64("confidence", 0.5, "Minimum detection confidence (clamped into [0,1])")
}

// dirPair is one probe/candidate outcome for a file.
type dirPair struct {
	Path      string  `json:"path"`
	ProbeFace int     `json:"probe_face"`
	Face      int     `json:"face"`
	Distance  float64 `json:"distance"`
	Match     bool    `json:"match"`
}

// dirResult holds every pair of one file, probe-major then candidate-minor.
type dirResult struct {
	Path  string    `json:"path"`
	Faces int       `json:"faces"`
	Pairs []dirPair `json:"pairs"`
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

func runCompareDir(cmd *cobra.Command, args []string) error {
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	matchesOnly := mustGetBool(cmd, "matches-only")
	jsonOutput := mustGetBool(cmd, "json")

	probeData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read probe: %w", err)
	}
	files, err := listImages(args[1])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", args[1])
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

	probe, err := a.controller.Describe(ctx, probeData)
	if err != nil {
		return userError(err)
	}
	if _, err := compare.Descriptors(probe.Results, "the probe photo"); err != nil {
		return userError(err)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Comparing faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	results, errs := compareFilesConcurrently(ctx, a.controller, probe, files, concurrency, bar)
	slices.SortFunc(results, func(a, b dirResult) int { return strings.Compare(a.Path, b.Path) })
	if matchesOnly {
		results = onlyMatches(results)
	}

	if jsonOutput {
		return outputJSON(results)
	}

	fmt.Println()
	printDirResults(results)
	if len(errs) > 0 {
		fmt.Printf("\nErrors: %d\n", len(errs))
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
	}
	return nil
}

// listImages returns the image files directly inside dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// compareFile compares every probe face with every face in path.
func compareFile(ctx context.Context, ctrl *controller.Controller, probe *face.AnalysisFrame, path string) (dirResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dirResult{}, fmt.Errorf("%s: %w", path, err)
	}
	frame, err := ctrl.Describe(ctx, data)
	if err != nil {
		return dirResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return pairsForFile(path, probe, frame)
}

// pairsForFile reports the full cross product of probe and frame faces.
// A file without faces yields a result with no pairs.
func pairsForFile(path string, probe, frame *face.AnalysisFrame) (dirResult, error) {
	res := dirResult{Path: path, Faces: frame.Len(), Pairs: []dirPair{}}
	if frame.Len() == 0 {
		return res, nil
	}
	outcomes, err := compare.Faces(probe.Results, frame.Results, "the probe photo", path)
	if err != nil {
		return dirResult{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, o := range outcomes {
		res.Pairs = append(res.Pairs, dirPair{
			Path:      path,
			ProbeFace: o.ProbeIndex + 1,
			Face:      o.CandidateIndex + 1,
			Distance:  o.Distance,
			Match:     o.Match,
		})
	}
	return res, nil
}

// onlyMatches keeps the matching pairs and drops files left without any.
func onlyMatches(results []dirResult) []dirResult {
	var out []dirResult
	for _, r := range results {
		r.Pairs = slices.DeleteFunc(slices.Clone(r.Pairs), func(p dirPair) bool { return !p.Match })
		if len(r.Pairs) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// compareFilesConcurrently compares files with workers and returns results and errors.
func compareFilesConcurrently(ctx context.Context, ctrl *controller.Controller, probe *face.AnalysisFrame, files []string, concurrency int, bar *progressbar.ProgressBar) ([]dirResult, []error) {
	var results []dirResult
	var errs []error
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := compareFile(ctx, ctrl, probe, path)
			mu.Lock()
			if err != nil {
				errs = append(errs, err)
			} else {
				results = append(results, res)
			}
			mu.Unlock()

			if bar != nil {
				bar.Add(1)
			}
		}(path)
	}
	wg.Wait()
	return results, errs
}

func printDirResults(results []dirResult) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tPROBE FACE\tFACE\tDISTANCE\tVERDICT")
	for _, r := range results {
		if r.Faces == 0 {
			fmt.Fprintf(w, "%s\t-\t-\t-\tno faces\n", r.Path)
			continue
		}
		for _, p := range r.Pairs {
			verdict := controller.VerdictPhotoNoMatch
			if p.Match {
				verdict = controller.VerdictPhotoMatch
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\t%s\n", p.Path, p.ProbeFace, p.Face, p.Distance, verdict)
		}
	}
	w.Flush()
}
