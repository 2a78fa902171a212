// Package patchlog stores committed crop rectangles in a YAML file that the
// batch cropper reads back.
//
// The file holds one list, crop_patches, with one entry per saved rectangle:
//
//	crop_patches:
//	  - img_idx: 12
//	    img_paths: [out/m0/000012.png, out/m1/000012.png]
//	    crop_box: [40, 32, 168, 96]
//
// The log is append-only. Every Append rewrites the whole file through a
// temporary file and a rename, so readers never see a partial document.
package patchlog

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPatch is returned by Append for a patch that could never be
// cropped.
var ErrInvalidPatch = errors.New("invalid patch")

// Patch is one committed rectangle for one frame.
type Patch struct {
	Frame int      `yaml:"img_idx" json:"frame_id"`
	Paths []string `yaml:"img_paths" json:"image_paths"`
	// Box is x1, y1, x2, y2 with the bottom-right corner exclusive.
	Box [4]int `yaml:"crop_box,flow" json:"crop_box"`
}

// Validate checks the box is non-empty and that at least one image is named.
func (p Patch) Validate() error {
	if p.Box[0] >= p.Box[2] || p.Box[1] >= p.Box[3] {
		return errors.Wrapf(ErrInvalidPatch, "crop box %v must have x1 < x2 and y1 < y2", p.Box)
	}
	if p.Box[0] < 0 || p.Box[1] < 0 {
		return errors.Wrapf(ErrInvalidPatch, "crop box %v has a negative corner", p.Box)
	}
	if len(p.Paths) == 0 {
		return errors.Wrap(ErrInvalidPatch, "no image paths")
	}
	return nil
}

type document struct {
	Patches []Patch `yaml:"crop_patches"`
}

// Log is an open patch file. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	path    string
	patches []Patch
}

// Open loads the patch file at path. A missing or empty file yields an empty
// log; the file is created by the first Append.
func Open(path string) (*Log, error) {
	l := &Log{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read patch log %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return l, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse patch log %s", path)
	}
	for i, p := range doc.Patches {
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "patch log %s entry %d", path, i)
		}
	}
	l.patches = doc.Patches
	return l, nil
}

// Path returns the file backing the log.
func (l *Log) Path() string { return l.path }

// Append validates p, adds it to the log and persists the log. On a write
// failure the in-memory log is left unchanged.
func (l *Log) Append(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Paths = append([]string(nil), p.Paths...)

	l.mu.Lock()
	defer l.mu.Unlock()

	next := append(l.patches[:len(l.patches):len(l.patches)], p)
	if err := writeAtomic(l.path, document{Patches: next}); err != nil {
		return err
	}
	l.patches = next
	return nil
}

// All returns a copy of every patch in insertion order.
func (l *Log) All() []Patch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clonePatches(l.patches)
}

// ByFrame returns the patches saved for frame, sorted by x1 the way the batch
// cropper numbers its output files.
func (l *Log) ByFrame(frame int) []Patch {
	l.mu.Lock()
	var out []Patch
	for _, p := range l.patches {
		if p.Frame == frame {
			out = append(out, p)
		}
	}
	l.mu.Unlock()

	out = clonePatches(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Box[0] < out[j].Box[0] })
	return out
}

// Frames returns the distinct frame ids that have patches, ascending.
func (l *Log) Frames() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[int]struct{})
	var frames []int
	for _, p := range l.patches {
		if _, ok := seen[p.Frame]; ok {
			continue
		}
		seen[p.Frame] = struct{}{}
		frames = append(frames, p.Frame)
	}
	sort.Ints(frames)
	return frames
}

// Len returns the number of patches.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.patches)
}

func clonePatches(in []Patch) []Patch {
	if len(in) == 0 {
		return nil
	}
	out := make([]Patch, len(in))
	for i, p := range in {
		p.Paths = append([]string(nil), p.Paths...)
		out[i] = p
	}
	return out
}

func writeAtomic(path string, doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode patch log")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp patch log")
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp patch log")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp patch log")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp patch log")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "replace patch log %s", path)
	}
	return nil
}
