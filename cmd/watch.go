package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [spool-dir]",
	Short: "Watch a spool directory and mark attendance from dropped frames",
	Long: `Watch a spool directory for captured frames and process them as they
arrive. A camera adapter or any other producer writes image files into the
directory; each file is classified once, known faces are marked present, and
unknown faces are saved for audit.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Int("poll", 500, "Poll interval in milliseconds")
	watchCmd.Flags().Bool("remove", false, "Delete frames after processing")
	watchCmd.Flags().Bool("once", false, "Process current directory contents and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	rec, err := recognizer.Load(engine, cfg.Model.Dir, cfg.Recognize.Threshold)
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipe := pipeline.New(rec, store, capture.New(cfg.Model.UnknownDir), cfg.Detect.Options())

	src := &pipeline.DirSource{
		Dir:    args[0],
		Poll:   time.Duration(mustGetInt(cmd, "poll")) * time.Millisecond,
		Remove: mustGetBool(cmd, "remove"),
		Once:   mustGetBool(cmd, "once"),
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping...")
		cancel()
	}()

	fmt.Printf("Watching %s for frames (Ctrl+C to stop)\n", args[0])
	return pipe.Watch(ctx, src)
}
