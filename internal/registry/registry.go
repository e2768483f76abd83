// Package registry maintains the label to name mapping produced by training.
// The mapping is built once per training run, persisted next to the model
// state, and replaced wholesale on retraining; it is never mutated in place.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

// LabelsFile is the label map artifact name inside the model directory.
const LabelsFile = "labels.yml"

// ErrNoLabels indicates the label map artifact does not exist. Recognition
// must be refused until training has run.
var ErrNoLabels = errors.New("no label map found, run training first")

// Registry is a bidirectional mapping between labels and person names.
type Registry struct {
	byLabel map[int]string
	byName  map[string]int
}

// New creates a registry from a label -> name map.
func New(labels map[int]string) *Registry {
	r := &Registry{
		byLabel: make(map[int]string, len(labels)),
		byName:  make(map[string]int, len(labels)),
	}
	for label, name := range labels {
		r.byLabel[label] = name
		r.byName[name] = label
	}
	return r
}

// Name returns the name for a label. Unknown labels get a synthetic name so
// attendance rows are never blank, matching recognizer output for stale maps.
func (r *Registry) Name(label int) string {
	if name, ok := r.byLabel[label]; ok {
		return name
	}
	return fmt.Sprintf("ID_%d", label)
}

// Label returns the label for a name, with ok reporting whether it exists.
func (r *Registry) Label(name string) (int, bool) {
	label, ok := r.byName[name]
	return label, ok
}

// Len returns the number of registered people.
func (r *Registry) Len() int {
	return len(r.byLabel)
}

// Labels returns all labels in ascending order.
func (r *Registry) Labels() []int {
	labels := make([]int, 0, len(r.byLabel))
	for label := range r.byLabel {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// labelMapFile is the on-disk shape of the label map artifact.
type labelMapFile struct {
	Labels map[int]string `yaml:"labels"`
}

// Save writes the label map to dir atomically (temp file + rename), so a
// concurrent reader sees either the previous map or the new one, never a
// partial write.
func (r *Registry) Save(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	data, err := yaml.Marshal(labelMapFile{Labels: r.byLabel})
	if err != nil {
		return fmt.Errorf("marshal label map: %w", err)
	}

	return WriteFileAtomic(filepath.Join(dir, LabelsFile), data)
}

// Load reads the label map artifact from dir. A missing file returns
// ErrNoLabels; a corrupt or empty file is a hard error, recognition must not
// silently run against a broken map.
func Load(dir string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Join(dir, LabelsFile)) //nolint:gosec // dir comes from config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoLabels
		}
		return nil, fmt.Errorf("reading label map: %w", err)
	}

	var file labelMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("label map is corrupt: %w", err)
	}
	if len(file.Labels) == 0 {
		return nil, errors.New("label map is empty")
	}
	return New(file.Labels), nil
}

// WriteFileAtomic writes data to path via a temp file and rename, so readers
// never observe a partially written artifact.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// NormalizeName normalizes a person name for comparison: lowercase, no
// diacritics, dashes and underscores become spaces (e.g. "Jiří" and "jiri"
// compare equal, as do "jan-novak" and "Jan Novák").
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, name)
	result = strings.ToLower(result)
	result = strings.ReplaceAll(result, "-", " ")
	result = strings.ReplaceAll(result, "_", " ")
	return strings.TrimSpace(result)
}

// VerifyRoster checks that every roster entry whose id matches a trained
// label also matches it by normalized name. The roster id to label coupling
// is implicit in the data, so divergence must fail loudly instead of quietly
// misattributing attendance.
func (r *Registry) VerifyRoster(entries []roster.Entry) error {
	var problems []string
	for _, e := range entries {
		trained, ok := r.byLabel[e.ID]
		if !ok {
			problems = append(problems, fmt.Sprintf("roster id %d (%s) has no trained label", e.ID, e.Name))
			continue
		}
		if NormalizeName(trained) != NormalizeName(e.Name) {
			problems = append(problems,
				fmt.Sprintf("roster id %d is %q but label %d was trained as %q", e.ID, e.Name, e.ID, trained))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("roster does not match trained labels:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
