package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/doppel/internal/config"
	"github.com/okian/doppel/internal/domain/comparison"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two detection files locally",
	Long: `Compare two detections and print the similarity verdict.

Each file holds one detection as JSON:
  {"confidence": 0.98, "landmarks": [{"x": 10, "y": 20}, ...68 points], "embedding": [...]}
A file containing null means the detector found no face.

Scoring settings come from the same defaults, DOPPEL_CONFIG file and DOPPEL_*
environment variables as the server.

Examples:
  doppelctl compare --first a.json --second b.json
  doppelctl compare --first a.json --second b.json --threshold 0.6 --output yaml`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().String("first", "", "First detection file (required)")
	compareCmd.Flags().String("second", "", "Second detection file (required)")
	compareCmd.Flags().Float64("threshold", 0, "Match threshold in [0,1] (unset uses the configured default)")
	compareCmd.Flags().String("output", "text", "Output format (text, json, yaml)")
	_ = compareCmd.MarkFlagRequired("first")
	_ = compareCmd.MarkFlagRequired("second")
}

// verdict is the printable outcome of one comparison.
type verdict struct {
	OverallScore           float64 `json:"overall_score" yaml:"overall_score"`
	DescriptorScore        float64 `json:"descriptor_score" yaml:"descriptor_score"`
	LandmarkScore          float64 `json:"landmark_score" yaml:"landmark_score"`
	IsMatch                bool    `json:"is_match" yaml:"is_match"`
	Threshold              float64 `json:"threshold" yaml:"threshold"`
	Confidence1            float64 `json:"confidence1" yaml:"confidence1"`
	Confidence2            float64 `json:"confidence2" yaml:"confidence2"`
	Margin                 float64 `json:"margin" yaml:"margin"`
	Landmarks1             int     `json:"landmarks1" yaml:"landmarks1"`
	Landmarks2             int     `json:"landmarks2" yaml:"landmarks2"`
	IsPossibleDoppelganger bool    `json:"is_possible_doppelganger" yaml:"is_possible_doppelganger"`
	EmbeddingDistance      float64 `json:"embedding_distance" yaml:"embedding_distance"`
	LandmarkDistance       float64 `json:"landmark_distance" yaml:"landmark_distance"`
	Reflection             bool    `json:"reflection" yaml:"reflection"`
}

func newVerdict(o comparison.Outcome) verdict { //nolint:gocritic // hugeParam: outcome value
	r := o.Result
	return verdict{
		OverallScore:           r.OverallScore,
		DescriptorScore:        r.DescriptorScore,
		LandmarkScore:          r.LandmarkScore,
		IsMatch:                r.IsMatch,
		Threshold:              r.Threshold,
		Confidence1:            r.Confidence1,
		Confidence2:            r.Confidence2,
		Margin:                 r.Margin,
		Landmarks1:             r.Landmarks1,
		Landmarks2:             r.Landmarks2,
		IsPossibleDoppelganger: r.IsPossibleDoppelganger,
		EmbeddingDistance:      o.EmbeddingDistance,
		LandmarkDistance:       o.LandmarkDistance,
		Reflection:             o.Reflection,
	}
}

func runCompare(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	first, err := readDetection(mustGetString(cmd, "first"))
	if err != nil {
		return err
	}
	second, err := readDetection(mustGetString(cmd, "second"))
	if err != nil {
		return err
	}

	req := model.Comparison{ID: "cli", First: first, Second: second}
	if cmd.Flags().Changed("threshold") {
		t := mustGetFloat64(cmd, "threshold")
		req.Threshold = &t
	}

	c := comparison.New(
		comparison.WithScorer(scoring.NewScorer(cfg.ScorerOptions()...)),
		comparison.WithDefaultThreshold(cfg.DefaultThreshold),
		comparison.WithEmbeddingDim(cfg.EmbeddingDim),
	)
	o, err := c.Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("compare: %s: %w", model.ErrorKind(err), err)
	}
	return writeVerdict(cmd.OutOrStdout(), mustGetString(cmd, "output"), newVerdict(o))
}

// readDetection loads one detection file. A JSON null yields a nil detection.
func readDetection(path string) (*model.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detection: %w", err)
	}
	var d *model.Detection
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse detection %s: %w", path, err)
	}
	return d, nil
}

func writeVerdict(w io.Writer, format string, v verdict) error { //nolint:gocritic // hugeParam: printable value
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Overall score:\t%.2f%%\n", v.OverallScore)
		fmt.Fprintf(tw, "Descriptor score:\t%.2f%%\n", v.DescriptorScore)
		fmt.Fprintf(tw, "Landmark score:\t%.2f%%\n", v.LandmarkScore)
		fmt.Fprintf(tw, "Match:\t%t (threshold %.2f%%)\n", v.IsMatch, v.Threshold)
		fmt.Fprintf(tw, "Possible doppelganger:\t%t\n", v.IsPossibleDoppelganger)
		fmt.Fprintf(tw, "Confidence:\t%.2f%% / %.2f%% (margin %.2f)\n", v.Confidence1, v.Confidence2, v.Margin)
		fmt.Fprintf(tw, "Embedding distance:\t%.4f\n", v.EmbeddingDistance)
		fmt.Fprintf(tw, "Landmark distance:\t%.4f\n", v.LandmarkDistance)
		if v.Reflection {
			fmt.Fprintf(tw, "Note:\tlandmark fit used a reflection\n")
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
