package event

import (
	"time"

	"github.com/l1jgo/assetstage/internal/asset"
)

// AssetResolved is emitted when a ticket resolves.
type AssetResolved struct {
	Ticket  string
	Kind    asset.Kind
	Path    string
	Digest  string
	Elapsed time.Duration
	Attempt int
}

// AssetFailed is emitted when a ticket fails.
type AssetFailed struct {
	Ticket  string
	Kind    asset.Kind
	Path    string
	Err     error
	Elapsed time.Duration
	Attempt int
}

// StateEntered is emitted on the Loading -> Loaded edge.
type StateEntered struct {
	Collection string
	Cycle      uint64
	After      time.Duration
}
