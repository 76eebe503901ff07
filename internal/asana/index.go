package asana

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Index resolves an asana label to the reference files that demonstrate it.
type Index interface {
	// Match returns the paths of the reference files for label.
	Match(label string) ([]string, error)

	// ModTime returns a timestamp that changes whenever Match results may change.
	ModTime() (time.Time, error)
}

// SubstringIndex matches every file in Dir whose name contains the label,
// compared case-insensitively. A file named warrior_pose_1.mp4 matches "warrior".
type SubstringIndex struct {
	Dir string
}

// NewSubstringIndex creates a SubstringIndex over dir.
func NewSubstringIndex(dir string) *SubstringIndex {
	return &SubstringIndex{Dir: dir}
}

// Match lists Dir and returns the files whose names contain label.
// Results follow directory listing order and are not deduplicated.
func (x *SubstringIndex) Match(label string) ([]string, error) {
	entries, err := os.ReadDir(x.Dir)
	if err != nil {
		return nil, fmt.Errorf("list dataset %s: %w", x.Dir, err)
	}

	needle := strings.ToLower(label)
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Name()), needle) {
			paths = append(paths, filepath.Join(x.Dir, entry.Name()))
		}
	}
	return paths, nil
}

// ModTime returns the modification time of the dataset directory.
func (x *SubstringIndex) ModTime() (time.Time, error) {
	info, err := os.Stat(x.Dir)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// manifestFile is the on-disk layout of a dataset manifest.
//
//	asanas:
//	  tree:
//	    - tree_pose_a.mp4
//	    - clips/tree_side.gif
type manifestFile struct {
	Asanas map[string][]string `yaml:"asanas"`
}

// ManifestIndex resolves labels through an explicit label -> files manifest.
// Labels are compared case-insensitively and must match exactly. The manifest
// is re-read whenever its modification time changes.
type ManifestIndex struct {
	path    string
	mu      sync.Mutex
	labels  map[string][]string
	modTime time.Time
}

// LoadManifest reads and parses a YAML dataset manifest.
// Relative file paths are resolved against the manifest's directory.
func LoadManifest(path string) (*ManifestIndex, error) {
	x := &ManifestIndex{path: path}
	if err := x.reload(); err != nil {
		return nil, err
	}
	return x, nil
}

// reload parses the manifest file into x. The caller must hold x.mu or own x
// exclusively.
func (x *ManifestIndex) reload() error {
	info, err := os.Stat(x.path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	data, err := os.ReadFile(x.path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	base := filepath.Dir(x.path)
	labels := make(map[string][]string, len(mf.Asanas))
	for label, files := range mf.Asanas {
		key := strings.ToLower(strings.TrimSpace(label))
		for _, f := range files {
			if !filepath.IsAbs(f) {
				f = filepath.Join(base, f)
			}
			labels[key] = append(labels[key], f)
		}
	}

	x.labels = labels
	x.modTime = info.ModTime()
	return nil
}

// Match returns the files listed for label, or nil if the label is unknown.
// A manifest edited since the last read is parsed again first.
func (x *ManifestIndex) Match(label string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	modTime, err := x.ModTime()
	if err != nil {
		return nil, err
	}
	if !modTime.Equal(x.modTime) {
		if err := x.reload(); err != nil {
			return nil, err
		}
	}

	files := x.labels[strings.ToLower(strings.TrimSpace(label))]
	return append([]string(nil), files...), nil
}

// ModTime returns the modification time of the manifest file.
func (x *ManifestIndex) ModTime() (time.Time, error) {
	info, err := os.Stat(x.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Labels returns the labels defined by the manifest.
func (x *ManifestIndex) Labels() []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	labels := make([]string, 0, len(x.labels))
	for label := range x.labels {
		labels = append(labels, label)
	}
	return labels
}
