package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [image-file]",
	Short: "Recognize faces in an image and mark attendance",
	Long: `Recognize faces in a single image against the trained model.
Known faces are marked present in the attendance ledger; unknown faces are
saved to the unknown captures directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Match distance threshold (default from RECOGNIZE_THRESHOLD)")
	recognizeCmd.Flags().Bool("no-mark", false, "Classify only, do not touch the attendance ledger")
	recognizeCmd.Flags().Bool("no-capture", false, "Do not save unknown face crops")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold == 0 {
		threshold = cfg.Recognize.Threshold
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	rec, err := recognizer.Load(engine, cfg.Model.Dir, threshold)
	if err != nil {
		return err
	}

	var store ledger.Store
	if !mustGetBool(cmd, "no-mark") {
		store, err = newStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var saver pipeline.Capturer
	if !mustGetBool(cmd, "no-capture") {
		saver = capture.New(cfg.Model.UnknownDir)
	}

	img, err := vision.ReadGray(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	pipe := pipeline.New(rec, store, saver, cfg.Detect.Options())
	report, err := pipe.Process(cmd.Context(), img)
	if err != nil {
		return err
	}

	if report.NoFaces {
		fmt.Println("No faces detected")
		return nil
	}

	for _, d := range report.Detections {
		if d.Known {
			fmt.Printf("  %s (distance %.1f)\n", d.Name, d.Distance)
		} else {
			fmt.Printf("  Unknown face (distance %.1f)\n", d.Distance)
		}
	}
	for _, path := range report.Captured {
		fmt.Printf("  Unknown face saved to %s\n", path)
	}
	return nil
}
