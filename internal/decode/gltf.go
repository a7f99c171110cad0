package decode

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/mathx"
	"github.com/qmuntal/gltf"
)

func decodeGLTF(path string) (*asset.Document, error) {
	src, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}

	doc := &asset.Document{DefaultScene: -1}
	if i, ok := index(src.Scene); ok {
		doc.DefaultScene = i
	}
	for _, s := range src.Scenes {
		doc.Scenes = append(doc.Scenes, asset.Scene{Name: s.Name, Roots: ints(s.Nodes)})
	}
	for _, n := range src.Nodes {
		doc.Nodes = append(doc.Nodes, asset.Node{
			Name: n.Name,
			Transform: mathx.Transform{
				Translation: vec3(n.TranslationOrDefault()),
				Rotation:    quat(n.RotationOrDefault()),
				Scale:       vec3(n.ScaleOrDefault()),
			},
			Children:   ints(n.Children),
			Components: extrasComponents(n.Extras),
		})
	}
	for i, a := range src.Animations {
		clip := asset.Clip{Name: a.Name}
		for j, ch := range a.Channels {
			var prop asset.Property
			switch ch.Target.Path {
			case gltf.TRSTranslation:
				prop = asset.PropertyTranslation
			case gltf.TRSScale:
				prop = asset.PropertyScale
			default:
				continue // rotation and morph weights do not drive the transform readout
			}
			node, ok := index(ch.Target.Node)
			if !ok {
				continue
			}
			si, ok := index(ch.Sampler)
			if !ok || si >= len(a.Samplers) {
				return nil, fmt.Errorf("animation %d channel %d: bad sampler", i, j)
			}
			track, err := readTrack(src, a.Samplers[si])
			if err != nil {
				return nil, fmt.Errorf("animation %d channel %d: %w", i, j, err)
			}
			track.Node = node
			track.Property = prop
			clip.Tracks = append(clip.Tracks, track)
		}
		clip.Duration = clipDuration(clip.Tracks)
		doc.Clips = append(doc.Clips, clip)
	}
	return doc, nil
}

func readTrack(src *gltf.Document, s *gltf.AnimationSampler) (asset.Track, error) {
	in, ok := index(s.Input)
	if !ok {
		return asset.Track{}, fmt.Errorf("sampler has no input")
	}
	out, ok := index(s.Output)
	if !ok {
		return asset.Track{}, fmt.Errorf("sampler has no output")
	}
	times, err := readFloats(src, in, 1)
	if err != nil {
		return asset.Track{}, fmt.Errorf("input: %w", err)
	}
	flat, err := readFloats(src, out, 3)
	if err != nil {
		return asset.Track{}, fmt.Errorf("output: %w", err)
	}

	stride := 1
	offset := 0
	if s.Interpolation == gltf.InterpolationCubicSpline {
		// in-tangent, value, out-tangent per key; keep the value
		stride, offset = 3, 1
	}
	values := make([]mathx.Vec3, 0, len(times))
	for k := range times {
		base := (k*stride + offset) * 3
		if base+3 > len(flat) {
			return asset.Track{}, fmt.Errorf("output has %d floats for %d keys", len(flat), len(times))
		}
		values = append(values, mathx.Vec3{flat[base], flat[base+1], flat[base+2]})
	}
	return asset.Track{
		Times:  times,
		Values: values,
		Step:   s.Interpolation == gltf.InterpolationStep,
	}, nil
}

// readFloats reads a dense float accessor of the given component count.
func readFloats(src *gltf.Document, ai int, comps int) ([]float64, error) {
	if ai < 0 || ai >= len(src.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", ai)
	}
	acc := src.Accessors[ai]
	if acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("accessor %d: component type %v, want float", ai, acc.ComponentType)
	}
	want := gltf.AccessorScalar
	if comps == 3 {
		want = gltf.AccessorVec3
	}
	if acc.Type != want {
		return nil, fmt.Errorf("accessor %d: type %v, want %v", ai, acc.Type, want)
	}
	bvi, ok := index(acc.BufferView)
	if !ok || bvi >= len(src.BufferViews) {
		return nil, fmt.Errorf("accessor %d: no buffer view", ai)
	}
	view := src.BufferViews[bvi]
	bi, _ := index(view.Buffer)
	if bi >= len(src.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer out of range", bvi)
	}
	data := src.Buffers[bi].Data

	count, _ := index(acc.Count)
	elem := 4 * comps
	stride, _ := index(view.ByteStride)
	if stride == 0 {
		stride = elem
	}
	viewOff, _ := index(view.ByteOffset)
	accOff, _ := index(acc.ByteOffset)
	start := viewOff + accOff
	if count > 0 && int64(start)+int64(count-1)*int64(stride)+int64(elem) > int64(len(data)) {
		return nil, fmt.Errorf("accessor %d: %d elements from offset %d overrun %d-byte buffer", ai, count, start, len(data))
	}

	out := make([]float64, 0, count*comps)
	for i := 0; i < count; i++ {
		at := start + i*stride
		if at+elem > len(data) {
			return nil, fmt.Errorf("accessor %d: element %d beyond buffer", ai, i)
		}
		for c := 0; c < comps; c++ {
			bits := binary.LittleEndian.Uint32(data[at+4*c:])
			out = append(out, float64(math.Float32frombits(bits)))
		}
	}
	return out, nil
}

func ints(src []uint32) []int {
	if len(src) == 0 {
		return nil
	}
	out := make([]int, len(src))
	for i, v := range src {
		out[i] = int(v)
	}
	return out
}

func vec3(v [3]float32) mathx.Vec3 {
	return mathx.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func quat(q [4]float32) mathx.Quat {
	return mathx.Quat{float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])}
}

// extrasComponents reads marker component names from node extras. Both
// {"components": ["A", "B"]} and {"A": ..., "B": ...} are accepted.
func extrasComponents(extras any) []string {
	if raw, ok := extras.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil
		}
		extras = decoded
	}
	m, ok := extras.(map[string]any)
	if !ok {
		return nil
	}
	var out []string
	for k, v := range m {
		if k != "components" {
			out = append(out, k)
			continue
		}
		list, _ := v.([]any)
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// index normalises glTF index and size fields, which are plain integers
// when required and pointers when optional.
func index(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case *int:
		if x == nil {
			return 0, false
		}
		return *x, true
	case uint32:
		return int(x), true
	case *uint32:
		if x == nil {
			return 0, false
		}
		return int(*x), true
	}
	return 0, false
}
