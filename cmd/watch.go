package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/render"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run live analysis and print results to stdout",
	Long: `Start live analysis on the configured camera and print the results of
every pass until interrupted.

Examples:
  # Watch with age, gender and expressions
  facelens watch --age-gender --emotions

  # Sample every second for one minute
  facelens watch --interval 1s --duration 1m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "Delay between analysis passes (overrides ANALYSIS_INTERVAL)")
	watchCmd.Flags().Duration("duration", 0, "Stop after this long (0 = until Ctrl+C)")
	watchCmd.Flags().String("camera", "", "Live source: camera or snapshot (overrides CAMERA_SOURCE)")
	addAnalysisFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalysisFlags(cmd, cfg)
	if interval := mustGetDuration(cmd, "interval"); interval > 0 {
		cfg.Analysis.Interval = interval
	}
	if source := mustGetString(cmd, "camera"); source != "" {
		cfg.Camera.Source = source
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := mustGetDuration(cmd, "duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	frames := make(chan *face.AnalysisFrame, 1)
	unsubscribe := a.controller.Analyzer().Subscribe(func(frame *face.AnalysisFrame) {
		select {
		case frames <- frame:
		default:
		}
	})
	defer unsubscribe()

	fmt.Println("Loading models...")
	if err := a.controller.Start(ctx); err != nil {
		return userError(err)
	}
	fmt.Printf("Watching every %s. Press Ctrl+C to stop\n", a.controller.Analyzer().Interval())

	for {
		select {
		case <-ctx.Done():
			a.controller.Stop()
			stats := a.controller.Analyzer().Stats()
			fmt.Printf("\nStopped after %d passes (%d dropped, %d failed)\n", stats.Passes, stats.Dropped, stats.Failed)
			return nil
		case frame := <-frames:
			printFrame(frame)
		}
	}
}

func printFrame(frame *face.AnalysisFrame) {
	ts := frame.CapturedAt.Format("15:04:05.000")
	if frame.Err != "" {
		fmt.Printf("[%s] error: %s\n", ts, frame.Err)
		return
	}
	lines := render.ResultsList(frame, frame.Config)
	fmt.Printf("[%s] %s\n", ts, strings.Join(lines, " | "))
}
