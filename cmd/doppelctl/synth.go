package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/doppel/internal/loadgen"
	"github.com/okian/doppel/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write synthetic detection files",
	Long: `Write synthetic detections: several photos of several made-up people.
Each photo gets a random pose, size and position plus landmark jitter, so
photos of one person should match and photos of different people should not.

Files are named person-<i>-photo-<j>.json and can be fed to 'doppelctl compare'.

Examples:
  doppelctl synth --out ./testdata --people 3 --photos 2
  doppelctl synth --out ./testdata --seed 42 --dim 512 --jitter 0.02`,
	Args: cobra.NoArgs,
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().String("out", ".", "Output directory")
	synthCmd.Flags().Int("people", 2, "Number of identities")
	synthCmd.Flags().Int("photos", 2, "Detections per identity")
	synthCmd.Flags().Uint64("seed", 1, "Random seed")
	synthCmd.Flags().Int("dim", loadgen.DefaultEmbeddingDim, "Embedding length")
	synthCmd.Flags().Float64("jitter", loadgen.DefaultJitter, "Landmark noise relative to face size")
}

func runSynth(cmd *cobra.Command, _ []string) error {
	out := mustGetString(cmd, "out")
	people := mustGetInt(cmd, "people")
	photos := mustGetInt(cmd, "photos")
	if people < 1 || photos < 1 {
		return fmt.Errorf("--people and --photos must be positive")
	}

	if err := os.MkdirAll(out, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	g := loadgen.NewGenerator(mustGetUint64(cmd, "seed"),
		loadgen.WithEmbeddingDim(mustGetInt(cmd, "dim")),
		loadgen.WithJitter(mustGetFloat64(cmd, "jitter")),
	)

	for i := range people {
		id := g.Identity()
		for j := range photos {
			data, err := json.MarshalIndent(g.Detection(id), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal detection: %w", err)
			}
			name := filepath.Join(out, fmt.Sprintf("person-%d-photo-%d.json", i, j))
			if err := os.WriteFile(name, data, filePermission); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
	}

	logger.Get().Info(cmd.Context(), "synthetic detections written",
		logger.String("dir", out),
		logger.Int("files", people*photos),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d detections to %s\n", people*photos, out)
	return nil
}
