package asset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies what a ticket resolves to.
type Kind uint8

const (
	KindSceneGraph Kind = iota
	KindAnimationClip
)

func (k Kind) String() string {
	switch k {
	case KindSceneGraph:
		return "scene-graph"
	case KindAnimationClip:
		return "animation-clip"
	default:
		return "unknown"
	}
}

// ParseKind accepts "scene", "scene-graph", "animation", "animation-clip".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scene", "scene-graph", "gltf":
		return KindSceneGraph, nil
	case "animation", "animation-clip", "clip":
		return KindAnimationClip, nil
	}
	return 0, fmt.Errorf("unknown asset kind %q", s)
}

// Status is the resolution state of a ticket. Loading may move to Resolved or
// Failed. Resolved is terminal. Failed is terminal unless the owner reloads.
type Status uint8

const (
	StatusLoading Status = iota
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Ticket is the handle issued by Registry.Request. Only the Registry writes
// its fields, and only from the cycle goroutine inside Poll.
type Ticket struct {
	id    string
	kind  Kind
	path  string // file path without label
	label Label

	status      Status
	err         error
	payload     Decoded
	requestedAt time.Time
	settledAt   time.Time
	attempts    int
}

func (t *Ticket) ID() string     { return t.id }
func (t *Ticket) Kind() Kind     { return t.kind }
func (t *Ticket) Path() string   { return t.path }
func (t *Ticket) Label() Label   { return t.label }
func (t *Ticket) Status() Status { return t.status }

// Err returns the failure cause of a failed ticket.
func (t *Ticket) Err() error { return t.err }

// Attempts returns how many decodes were dispatched for this ticket.
func (t *Ticket) Attempts() int { return t.attempts }

// LoadTime returns the time between the last dispatch and settlement, or 0
// while loading.
func (t *Ticket) LoadTime() time.Duration {
	if t.status == StatusLoading {
		return 0
	}
	return t.settledAt.Sub(t.requestedAt)
}

func (t *Ticket) String() string {
	return fmt.Sprintf("%s(%s %s)", t.id, t.kind, t.status)
}

// Label selects a sub-asset inside a decoded file, written after '#'.
// Accepted forms: Scene<N>, Animation<N>, Scene:<name>, Animation:<name>.
type Label struct {
	Kind  Kind
	Index int    // -1 when Name is set
	Name  string // empty when selecting by index
	set   bool
}

// IsZero reports whether no label was given.
func (l Label) IsZero() bool { return !l.set }

func (l Label) String() string {
	if !l.set {
		return ""
	}
	prefix := "Scene"
	if l.Kind == KindAnimationClip {
		prefix = "Animation"
	}
	if l.Name != "" {
		return prefix + ":" + l.Name
	}
	return prefix + strconv.Itoa(l.Index)
}

// SplitPath separates "file.gltf#Animation0" into its file path and label.
func SplitPath(raw string) (string, Label, error) {
	path, frag, found := strings.Cut(raw, "#")
	if !found {
		return raw, Label{}, nil
	}
	if path == "" {
		return "", Label{}, fmt.Errorf("asset path %q: empty file path", raw)
	}
	l, err := parseLabel(frag)
	if err != nil {
		return "", Label{}, fmt.Errorf("asset path %q: %w", raw, err)
	}
	return path, l, nil
}

func parseLabel(s string) (Label, error) {
	var kind Kind
	var rest string
	switch {
	case strings.HasPrefix(s, "Animation"):
		kind, rest = KindAnimationClip, strings.TrimPrefix(s, "Animation")
	case strings.HasPrefix(s, "Scene"):
		kind, rest = KindSceneGraph, strings.TrimPrefix(s, "Scene")
	default:
		return Label{}, fmt.Errorf("unknown label %q", s)
	}
	if name, ok := strings.CutPrefix(rest, ":"); ok {
		if name == "" {
			return Label{}, fmt.Errorf("label %q: empty name", s)
		}
		return Label{Kind: kind, Index: -1, Name: name, set: true}, nil
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return Label{}, fmt.Errorf("label %q: bad index", s)
	}
	return Label{Kind: kind, Index: idx, set: true}, nil
}
