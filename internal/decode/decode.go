// Package decode turns scene files into asset.Documents. glTF 2.0 files are
// read with qmuntal/gltf; YAML scene documents are a plain-text format for
// hand-authored fixtures.
package decode

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l1jgo/assetstage/internal/asset"
	"golang.org/x/crypto/blake2b"
)

var ErrUnsupportedFormat = errors.New("unsupported scene format")

// DecodeError wraps any failure to turn a file into a Document. A ticket
// failing with a DecodeError is terminal until reloaded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder dispatches on file extension. It implements asset.Decoder.
type Decoder struct{}

func New() *Decoder { return &Decoder{} }

func (d *Decoder) Decode(path string) (*asset.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	var doc *asset.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		doc, err = decodeGLTF(path)
	case ".yaml", ".yml":
		doc, err = decodeYAML(raw)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if err := validate(doc); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	doc.Path = path
	doc.Digest = Digest(raw)
	return doc, nil
}

// Digest returns the hex blake2b-256 digest of raw.
func Digest(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// validate checks every index in doc points into its tables.
func validate(doc *asset.Document) error {
	n := len(doc.Nodes)
	for i, node := range doc.Nodes {
		for _, c := range node.Children {
			if c < 0 || c >= n {
				return fmt.Errorf("node %d: child %d out of range", i, c)
			}
		}
	}
	for i, s := range doc.Scenes {
		for _, r := range s.Roots {
			if r < 0 || r >= n {
				return fmt.Errorf("scene %d: root %d out of range", i, r)
			}
		}
	}
	if doc.DefaultScene >= len(doc.Scenes) {
		return fmt.Errorf("default scene %d out of range", doc.DefaultScene)
	}
	for i, c := range doc.Clips {
		for j, t := range c.Tracks {
			if t.Node < 0 || t.Node >= n {
				return fmt.Errorf("animation %d track %d: node %d out of range", i, j, t.Node)
			}
			if len(t.Times) != len(t.Values) {
				return fmt.Errorf("animation %d track %d: %d times, %d values", i, j, len(t.Times), len(t.Values))
			}
			for k := 1; k < len(t.Times); k++ {
				if t.Times[k] < t.Times[k-1] {
					return fmt.Errorf("animation %d track %d: times not ascending", i, j)
				}
			}
		}
	}
	return nil
}

// clipDuration is the latest keyframe time across all tracks.
func clipDuration(tracks []asset.Track) float64 {
	var d float64
	for _, t := range tracks {
		if len(t.Times) > 0 && t.Times[len(t.Times)-1] > d {
			d = t.Times[len(t.Times)-1]
		}
	}
	return d
}
