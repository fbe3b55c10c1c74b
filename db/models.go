package db

import (
	"time"

	"gorm.io/gorm"
)

// PendingMutation is a catalog write that could not be applied to the remote
// store synchronously. Rows are only ever deleted after a confirmed remote
// apply or by cap-based eviction of the oldest entries.
type PendingMutation struct {
	gorm.Model
	Kind       string  `gorm:"index"` // play_increment or rating_update
	TargetID   int     // Game ID the mutation applies to
	Amount     int     // Play-count delta (play_increment)
	Value      float64 // New rating (rating_update)
	EnqueuedAt time.Time
}

// Snapshot stores a last-known-good serialized dataset, used when the remote
// store is unreachable at startup.
type Snapshot struct {
	gorm.Model
	Key       string `gorm:"uniqueIndex"` // e.g. "catalog"
	Data      []byte // JSON payload
	FetchedAt time.Time
}
