package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// FrameSource yields grayscale frames for the live loop. Next blocks until a
// frame is available and returns io.EOF when the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (*image.Gray, error)
}

// Watch runs the blocking capture loop: read a frame, process it, repeat.
// It stops when the context is cancelled or the source reports io.EOF.
// Unreadable frames are skipped with a warning, they never stop the loop.
func (p *Pipeline) Watch(ctx context.Context, src FrameSource) error {
	for {
		img, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to read frame: %v\n", err)
			continue
		}

		if _, err := p.Process(ctx, img); err != nil {
			// Ledger failures are fatal to the loop; everything else was
			// already handled per-frame inside Process.
			return err
		}
	}
}

// DirSource feeds frames from a spool directory: image files dropped into the
// directory are picked up in name order, processed once, and optionally
// removed. A camera adapter or any other producer only has to write files.
type DirSource struct {
	Dir    string
	Poll   time.Duration // poll interval, default 500ms
	Remove bool          // delete frames after processing
	Once   bool          // process current contents and stop instead of tailing

	seen map[string]bool
}

// Next returns the next unprocessed frame, polling until one shows up.
func (s *DirSource) Next(ctx context.Context) (*image.Gray, error) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	poll := s.Poll
	if poll == 0 {
		poll = 500 * time.Millisecond
	}

	for {
		path, err := s.nextFile()
		if err != nil {
			return nil, err
		}
		if path != "" {
			s.seen[path] = true
			img, err := vision.ReadGray(path)
			if s.Remove {
				os.Remove(path)
			}
			if err != nil {
				return nil, fmt.Errorf("reading frame %s: %w", path, err)
			}
			return img, nil
		}

		if s.Once {
			return nil, io.EOF
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}

// nextFile returns the first unseen image file in the spool, or "" if none.
func (s *DirSource) nextFile() (string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", fmt.Errorf("reading spool directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(s.Dir, name)
		if !s.seen[path] {
			return path, nil
		}
	}
	return "", nil
}
