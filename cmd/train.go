package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/trainer"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the recognition model from enrollment images",
	Long: `Train the face recognition model from the enrollment dataset.
The dataset directory contains one subfolder per person; the folder name
becomes the person's display name. The trained model and its label map are
written to the model directory, replacing any previous run.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("dataset", "", "Enrollment dataset directory (default from DATASET_DIR)")
	trainCmd.Flags().Bool("no-fallback", false, "Skip images where no face is detected instead of using the whole image")
	trainCmd.Flags().Bool("verify-roster", false, "Check trained names against the roster file")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dataset := mustGetString(cmd, "dataset")
	if dataset == "" {
		dataset = cfg.Model.DatasetDir
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	t := trainer.New(engine, trainer.Options{
		ModelDir:           cfg.Model.Dir,
		Detect:             cfg.Detect.Options(),
		WholeImageFallback: !mustGetBool(cmd, "no-fallback"),
		ShowProgress:       true,
	})

	result, err := t.Train(cmd.Context(), dataset)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Training complete: %d people, %d samples\n", result.People, result.Samples)
	if result.SkippedImages > 0 {
		fmt.Printf("  Skipped images: %d\n", result.SkippedImages)
	}
	if result.FallbackUsed > 0 {
		fmt.Printf("  Whole-image fallbacks: %d\n", result.FallbackUsed)
	}
	fmt.Printf("Model written to %s\n", cfg.Model.Dir)

	if mustGetBool(cmd, "verify-roster") {
		entries, err := roster.Load(cfg.Roster.Path)
		if err != nil {
			return fmt.Errorf("loading roster: %w", err)
		}
		if err := verifyAgainstRoster(result.Registry, entries); err != nil {
			return err
		}
		fmt.Println("Roster check passed")
	}
	return nil
}

// verifyAgainstRoster cross-checks trained labels with the roster file.
func verifyAgainstRoster(reg *registry.Registry, entries []roster.Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("roster is empty, nothing to verify against")
	}
	return reg.VerifyRoster(entries)
}
