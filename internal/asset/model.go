package asset

import (
	"sort"

	"github.com/l1jgo/assetstage/internal/mathx"
)

// Document is the in-memory result of decoding one scene file: a flat node
// table, the scenes that root into it, and the animation clips it carries.
type Document struct {
	Path   string
	Digest string // hex blake2b-256 of the raw file bytes
	Nodes  []Node
	Scenes []Scene
	Clips  []Clip

	// DefaultScene is the file's own preferred scene index, or -1.
	DefaultScene int
}

// Node is one entry of the decoded node table.
type Node struct {
	Name       string
	Transform  mathx.Transform
	Children   []int
	Components []string // marker component names carried in node extras
}

// Scene is a named list of root node indices.
type Scene struct {
	Name  string
	Roots []int
}

// Property is the transform channel an animation track drives.
type Property uint8

const (
	PropertyTranslation Property = iota
	PropertyScale
)

func (p Property) String() string {
	switch p {
	case PropertyTranslation:
		return "translation"
	case PropertyScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Track is a keyframed curve for one property of one node.
type Track struct {
	Node     int
	Property Property
	Times    []float64 // seconds, ascending
	Values   []mathx.Vec3
	Step     bool // step interpolation instead of linear
}

// Clip is a named set of tracks.
type Clip struct {
	Name     string
	Duration float64 // seconds
	Tracks   []Track
}

// NamedScenes returns scene name -> index for every named scene.
func (d *Document) NamedScenes() map[string]int {
	out := make(map[string]int, len(d.Scenes))
	for i, s := range d.Scenes {
		if s.Name != "" {
			if _, dup := out[s.Name]; !dup {
				out[s.Name] = i
			}
		}
	}
	return out
}

// SceneByName returns the index of the first scene with the given name.
func (d *Document) SceneByName(name string) (int, bool) {
	idx, ok := d.NamedScenes()[name]
	return idx, ok
}

// ClipByName returns the first clip with the given name.
func (d *Document) ClipByName(name string) (*Clip, bool) {
	for i := range d.Clips {
		if d.Clips[i].Name == name {
			return &d.Clips[i], true
		}
	}
	return nil, false
}

// Subtree returns the node indices reachable from roots, in depth-first
// pre-order. Cycles in a malformed node table are visited once.
func (d *Document) Subtree(roots []int) []int {
	seen := make(map[int]bool, len(d.Nodes))
	var out []int
	var walk func(int)
	walk = func(i int) {
		if i < 0 || i >= len(d.Nodes) || seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, c := range d.Nodes[i].Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

// AnimatedNodes returns the sorted set of node indices targeted by any clip.
func (d *Document) AnimatedNodes() []int {
	set := make(map[int]struct{})
	for _, c := range d.Clips {
		for _, t := range c.Tracks {
			set[t.Node] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Decoded is the payload of a resolved ticket. Document is always set; Clip
// is set for animation-clip tickets.
type Decoded struct {
	Document *Document
	Clip     *Clip
}
