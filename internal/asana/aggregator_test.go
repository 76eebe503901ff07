package asana

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ayusman/asana/internal/pose"
)

const epsilon = 1e-12

// fakeExtractor returns canned sequences keyed by path.
type fakeExtractor struct {
	sequences map[string]pose.Sequence
	calls     []string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{sequences: make(map[string]pose.Sequence)}
}

func (f *fakeExtractor) Extract(path string) pose.Extraction {
	f.calls = append(f.calls, path)
	seq, ok := f.sequences[path]
	if !ok {
		return pose.Extraction{Path: path, Stats: pose.Stats{OpenFailed: true}}
	}
	return pose.Extraction{
		Path:     path,
		Sequence: seq,
		Stats:    pose.Stats{FramesRead: len(seq), FramesDetected: len(seq)},
	}
}

// newDataset creates empty files with the given names in a temp directory.
func newDataset(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return dir
}

func assertVector(t *testing.T, got, want pose.Vector) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("vector length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("vector[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestAggregator_NoMatchingFiles(t *testing.T) {
	dir := newDataset(t, "tree_pose_a.mp4", "warrior_1.gif")
	ex := newFakeExtractor()
	agg := NewAggregator(NewSubstringIndex(dir), ex)

	ref, report := agg.AverageForAsana("lotus")

	if ref != nil {
		t.Errorf("expected no reference, got %v", ref)
	}
	if report.Matched() != 0 {
		t.Errorf("expected 0 matched files, got %d", report.Matched())
	}
	if len(ex.calls) != 0 {
		t.Errorf("expected no extraction, got %v", ex.calls)
	}
}

func TestAggregator_OnlyEmptySequences(t *testing.T) {
	dir := newDataset(t, "tree_pose_a.mp4")
	ex := newFakeExtractor()
	ex.sequences[filepath.Join(dir, "tree_pose_a.mp4")] = pose.Sequence{}
	agg := NewAggregator(NewSubstringIndex(dir), ex)

	ref, report := agg.AverageForAsana("tree")

	if ref != nil {
		t.Errorf("expected no reference (not a zero vector), got %v", ref.Vector)
	}
	if report.Matched() != 1 || report.FilesUsed != 0 {
		t.Errorf("unexpected report: matched=%d used=%d", report.Matched(), report.FilesUsed)
	}
	if report.Files[0].Used {
		t.Error("empty file should not be marked used")
	}
}

func TestAggregator_UnreadableFilesOnly(t *testing.T) {
	dir := newDataset(t, "tree_a.mp4", "tree_b.mp4")
	ex := newFakeExtractor() // every path reports OpenFailed
	agg := NewAggregator(NewSubstringIndex(dir), ex)

	ref, report := agg.AverageForAsana("tree")

	if ref != nil {
		t.Error("expected no reference when every file fails extraction")
	}
	for _, f := range report.Files {
		if !f.Stats.OpenFailed {
			t.Errorf("expected OpenFailed for %s", f.Path)
		}
	}
}

func TestAggregator_MeanOfMeans(t *testing.T) {
	dir := newDataset(t, "tree_pose_a.mp4", "tree_pose_b.mp4", "mountain.mp4")
	ex := newFakeExtractor()

	// File a has three frames, file b one. Mean-of-means weights them equally.
	ex.sequences[filepath.Join(dir, "tree_pose_a.mp4")] = pose.Sequence{
		{0.0, 1.0},
		{0.0, 1.0},
		{0.0, 1.0},
	}
	ex.sequences[filepath.Join(dir, "tree_pose_b.mp4")] = pose.Sequence{
		{1.0, 0.0},
	}
	ex.sequences[filepath.Join(dir, "mountain.mp4")] = pose.Sequence{
		{9.0, 9.0},
	}

	agg := NewAggregator(NewSubstringIndex(dir), ex)
	ref, report := agg.AverageForAsana("tree")

	if ref == nil {
		t.Fatal("expected a reference")
	}
	assertVector(t, ref.Vector, pose.Vector{0.5, 0.5})

	if ref.Files != 2 || report.FilesUsed != 2 {
		t.Errorf("expected 2 contributing files, got ref=%d report=%d", ref.Files, report.FilesUsed)
	}
	if len(ex.calls) != 2 {
		t.Errorf("expected 2 extractions, got %v", ex.calls)
	}
}

func TestAggregator_SkipsEmptyButKeepsOthers(t *testing.T) {
	dir := newDataset(t, "tree_1.mp4", "tree_2.mp4")
	ex := newFakeExtractor()
	ex.sequences[filepath.Join(dir, "tree_1.mp4")] = pose.Sequence{{0.2, 0.4}, {0.4, 0.6}}
	ex.sequences[filepath.Join(dir, "tree_2.mp4")] = nil

	ref, report := NewAggregator(NewSubstringIndex(dir), ex).AverageForAsana("tree")

	if ref == nil {
		t.Fatal("expected a reference")
	}
	assertVector(t, ref.Vector, pose.Vector{0.3, 0.5})
	if report.FilesUsed != 1 || report.Matched() != 2 {
		t.Errorf("unexpected report: used=%d matched=%d", report.FilesUsed, report.Matched())
	}
}

func TestAggregator_MissingDataset(t *testing.T) {
	agg := NewAggregator(NewSubstringIndex(filepath.Join(t.TempDir(), "missing")), newFakeExtractor())

	ref, report := agg.AverageForAsana("tree")

	if ref != nil {
		t.Error("expected no reference for a missing dataset directory")
	}
	if report.IndexError == "" {
		t.Error("expected IndexError to be recorded")
	}
}

func TestSubstringIndex_Match(t *testing.T) {
	dir := newDataset(t,
		"Tree_Pose_A.mp4",
		"tree_pose_b.GIF",
		"warrior_pose_1.mp4",
		"warrior2_side.mp4",
		"notes.txt",
	)
	if err := os.Mkdir(filepath.Join(dir, "tree_extra"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	idx := NewSubstringIndex(dir)

	tests := []struct {
		label string
		want  []string
	}{
		{label: "tree", want: []string{"Tree_Pose_A.mp4", "tree_pose_b.GIF"}},
		{label: "TREE", want: []string{"Tree_Pose_A.mp4", "tree_pose_b.GIF"}},
		// Substring matching has no word boundaries: warrior also matches warrior2.
		{label: "warrior", want: []string{"warrior2_side.mp4", "warrior_pose_1.mp4"}},
		{label: "warrior2", want: []string{"warrior2_side.mp4"}},
		{label: "lotus", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			paths, err := idx.Match(tt.label)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}

			var got []string
			for _, p := range paths {
				got = append(got, filepath.Base(p))
			}
			sort.Strings(got)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)

			if len(got) != len(want) {
				t.Fatalf("Match(%q) = %v, want %v", tt.label, got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("Match(%q) = %v, want %v", tt.label, got, want)
					break
				}
			}
		})
	}
}

func TestSubstringIndex_ModTime(t *testing.T) {
	dir := newDataset(t)
	idx := NewSubstringIndex(dir)

	if _, err := idx.ModTime(); err != nil {
		t.Errorf("ModTime() error = %v", err)
	}

	missing := NewSubstringIndex(filepath.Join(dir, "missing"))
	if _, err := missing.ModTime(); err == nil {
		t.Error("expected error for missing directory")
	}
}
