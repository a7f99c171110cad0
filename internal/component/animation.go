package component

import (
	"fmt"
	"strings"

	"github.com/l1jgo/assetstage/internal/asset"
	"github.com/l1jgo/assetstage/internal/core/ecs"
)

// Repeat is the playback policy of an animation binding.
type Repeat uint8

const (
	RepeatNone Repeat = iota
	RepeatLoop
)

func (r Repeat) String() string {
	if r == RepeatLoop {
		return "loop"
	}
	return "none"
}

func ParseRepeat(s string) (Repeat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "loop", "forever":
		return RepeatLoop, nil
	case "none", "once":
		return RepeatNone, nil
	}
	return 0, fmt.Errorf("unknown repeat policy %q", s)
}

// AnimationPlayer is the animation-capable component. The scene instancer
// attaches it with Targets filled; the animation driver binds a clip to it
// exactly once.
type AnimationPlayer struct {
	Targets map[int]ecs.EntityID // document node index -> entity

	Ticket   string // bound clip ticket id; empty until bound
	Clip     *asset.Clip
	Repeat   Repeat
	Speed    float64
	Elapsed  float64 // seconds into the clip
	Playing  bool
	Finished bool
	Starts   int // number of play calls, for diagnostics
}
