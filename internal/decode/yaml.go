package decode

import (
	"fmt"
	"strings"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/mathx"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Scene      *int            `yaml:"scene"`
	Scenes     []yamlScene     `yaml:"scenes"`
	Nodes      []yamlNode      `yaml:"nodes"`
	Animations []yamlAnimation `yaml:"animations"`
}

type yamlScene struct {
	Name  string `yaml:"name"`
	Roots []int  `yaml:"roots"`
}

type yamlNode struct {
	Name        string      `yaml:"name"`
	Translation *mathx.Vec3 `yaml:"translation"`
	Rotation    *mathx.Quat `yaml:"rotation"`
	Scale       *mathx.Vec3 `yaml:"scale"`
	Children    []int       `yaml:"children"`
	Components  []string    `yaml:"components"`
}

type yamlAnimation struct {
	Name   string      `yaml:"name"`
	Tracks []yamlTrack `yaml:"tracks"`
}

type yamlTrack struct {
	Node          int          `yaml:"node"`
	Property      string       `yaml:"property"`      // "translation" or "scale"
	Interpolation string       `yaml:"interpolation"` // "linear" (default) or "step"
	Times         []float64    `yaml:"times"`
	Values        []mathx.Vec3 `yaml:"values"`
}

func decodeYAML(raw []byte) (*asset.Document, error) {
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	doc := &asset.Document{DefaultScene: -1}
	if f.Scene != nil {
		doc.DefaultScene = *f.Scene
	}
	for _, s := range f.Scenes {
		doc.Scenes = append(doc.Scenes, asset.Scene{Name: s.Name, Roots: s.Roots})
	}
	for _, n := range f.Nodes {
		tr := mathx.Identity()
		if n.Translation != nil {
			tr.Translation = *n.Translation
		}
		if n.Rotation != nil {
			tr.Rotation = *n.Rotation
		}
		if n.Scale != nil {
			tr.Scale = *n.Scale
		}
		doc.Nodes = append(doc.Nodes, asset.Node{
			Name:       n.Name,
			Transform:  tr,
			Children:   n.Children,
			Components: n.Components,
		})
	}
	for i, a := range f.Animations {
		clip := asset.Clip{Name: a.Name}
		for j, t := range a.Tracks {
			prop, err := parseProperty(t.Property)
			if err != nil {
				return nil, fmt.Errorf("animation %d track %d: %w", i, j, err)
			}
			step := false
			switch strings.ToLower(t.Interpolation) {
			case "", "linear":
			case "step":
				step = true
			default:
				return nil, fmt.Errorf("animation %d track %d: unknown interpolation %q", i, j, t.Interpolation)
			}
			clip.Tracks = append(clip.Tracks, asset.Track{
				Node:     t.Node,
				Property: prop,
				Times:    t.Times,
				Values:   t.Values,
				Step:     step,
			})
		}
		clip.Duration = clipDuration(clip.Tracks)
		doc.Clips = append(doc.Clips, clip)
	}
	return doc, nil
}

func parseProperty(s string) (asset.Property, error) {
	switch strings.ToLower(s) {
	case "translation":
		return asset.PropertyTranslation, nil
	case "scale":
		return asset.PropertyScale, nil
	}
	return 0, fmt.Errorf("unknown property %q", s)
}
