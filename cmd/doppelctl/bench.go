package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/doppel/internal/loadgen"
	"github.com/okian/doppel/pkg/logger"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load test a running doppel service",
	Long: `Generate synthetic detection pairs and send them to a running service.

By default pairs go to POST /compare and every verdict is checked against the
generator's intent (same person or not). With --async they go to
POST /comparisons instead.

Examples:
  doppelctl bench --url http://localhost:9080 --pairs 5000 --workers 16
  doppelctl bench --async --pairs 100000 --output json`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().String("url", loadgen.DefaultBaseURL, "Base URL of the service")
	benchCmd.Flags().Int("pairs", loadgen.DefaultPairs, "Number of pairs to send")
	benchCmd.Flags().Int("workers", 0, "Concurrent senders (default CPU cores * 2)")
	benchCmd.Flags().Duration("timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	benchCmd.Flags().Uint64("seed", 1, "Random seed")
	benchCmd.Flags().Bool("async", false, "Submit to /comparisons instead of /compare")
	benchCmd.Flags().Int("dim", loadgen.DefaultEmbeddingDim, "Embedding length")
	benchCmd.Flags().Float64("jitter", loadgen.DefaultJitter, "Landmark noise relative to face size")
	benchCmd.Flags().Float64("match-ratio", loadgen.DefaultMatchRatio, "Share of pairs showing the same person")
	benchCmd.Flags().String("output", "text", "Output format (text, json, yaml)")
	benchCmd.Flags().Bool("quiet", false, "Hide the progress bar")
}

func runBench(cmd *cobra.Command, _ []string) error {
	cfg := loadgen.Config{
		BaseURL: mustGetString(cmd, "url"),
		Pairs:   mustGetInt(cmd, "pairs"),
		Workers: mustGetInt(cmd, "workers"),
		Timeout: mustGetDuration(cmd, "timeout"),
		Seed:    mustGetUint64(cmd, "seed"),
		Async:   mustGetBool(cmd, "async"),
		Generator: []loadgen.GeneratorOption{
			loadgen.WithEmbeddingDim(mustGetInt(cmd, "dim")),
			loadgen.WithJitter(mustGetFloat64(cmd, "jitter")),
			loadgen.WithMatchRatio(mustGetFloat64(cmd, "match-ratio")),
		},
	}

	bar := newBenchProgressBar(cfg.Pairs, mustGetBool(cmd, "quiet"))
	stats, err := loadgen.Run(cmd.Context(), cfg,
		loadgen.WithLogger(logger.Named("bench")),
		loadgen.WithProgress(func() { _ = bar.Add(1) }),
	)
	_ = bar.Finish()
	if err != nil {
		return err
	}
	return writeStats(cmd.OutOrStdout(), mustGetString(cmd, "output"), stats, cfg.Async)
}

func newBenchProgressBar(count int, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return progressbar.DefaultSilent(int64(count))
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Comparing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pairs"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func writeStats(w io.Writer, format string, s loadgen.Stats, async bool) error { //nolint:gocritic // hugeParam: printable value
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Sent:\t%d\n", s.Sent)
		fmt.Fprintf(tw, "Succeeded:\t%d\n", s.Succeeded)
		fmt.Fprintf(tw, "Failed:\t%d\n", s.Failed)
		fmt.Fprintf(tw, "Backpressured:\t%d\n", s.Backpressured)
		if !async {
			fmt.Fprintf(tw, "Matches:\t%d\n", s.Matches)
			fmt.Fprintf(tw, "Possible doppelgangers:\t%d\n", s.Doppelgangers)
			fmt.Fprintf(tw, "Verdict accuracy:\t%.2f%%\n", s.Accuracy()*100)
		}
		fmt.Fprintf(tw, "Duration:\t%s\n", s.Duration)
		fmt.Fprintf(tw, "Throughput:\t%.1f pairs/s\n", s.PairsPerSecond)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
