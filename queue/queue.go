package queue

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"minigameshub-edge/backend"
	"minigameshub-edge/db"
)

// Queue is a durable FIFO of catalog mutations that could not be applied
// synchronously. Entries survive restarts (sqlite-backed) and are only ever
// removed by a confirmed apply during Drain or by cap-based eviction of the
// oldest entries of a kind. There is no other deletion path.
type Queue struct {
	gdb *gorm.DB
	cap int // max entries per mutation kind

	mu       sync.Mutex
	draining bool
}

// New returns a queue backed by the given database. cap bounds the number of
// retained entries per mutation kind; non-positive means 50.
func New(gdb *gorm.DB, cap int) *Queue {
	if cap <= 0 {
		cap = 50
	}
	return &Queue{gdb: gdb, cap: cap}
}

// Enqueue appends a mutation. When the per-kind cap is exceeded the oldest
// entries of that kind are evicted first.
func (q *Queue) Enqueue(m backend.Mutation) error {
	rec := db.PendingMutation{
		Kind:       m.Kind,
		TargetID:   m.TargetID,
		Amount:     m.Amount,
		Value:      m.Value,
		EnqueuedAt: time.Now(),
	}
	if err := q.gdb.Create(&rec).Error; err != nil {
		return err
	}

	var count int64
	if err := q.gdb.Model(&db.PendingMutation{}).Where("kind = ?", m.Kind).Count(&count).Error; err != nil {
		return err
	}
	if over := count - int64(q.cap); over > 0 {
		var oldest []db.PendingMutation
		if err := q.gdb.Where("kind = ?", m.Kind).Order("id asc").Limit(int(over)).Find(&oldest).Error; err != nil {
			return err
		}
		for _, old := range oldest {
			if err := q.gdb.Unscoped().Delete(&db.PendingMutation{}, old.ID).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Pending returns all queued mutations in insertion order.
func (q *Queue) Pending() ([]db.PendingMutation, error) {
	var recs []db.PendingMutation
	err := q.gdb.Order("id asc").Find(&recs).Error
	return recs, err
}

// Len reports the number of queued mutations, across all kinds.
func (q *Queue) Len() (int64, error) {
	var count int64
	err := q.gdb.Model(&db.PendingMutation{}).Count(&count).Error
	return count, err
}

// Drain walks the entries queued at the time of the call in insertion order
// and applies fn to each. Entries for which fn returns nil are removed;
// entries that fail are retained in their original order for the next pass.
// Entries enqueued while a drain is running are untouched until the next
// pass, and a drain that starts while another is in flight is a no-op.
func (q *Queue) Drain(fn func(db.PendingMutation) error) (removed, kept int, err error) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return 0, 0, nil
	}
	q.draining = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	// Snapshot the entries present at entry; rows created mid-drain carry
	// higher IDs and stay out of this pass.
	snapshot, err := q.Pending()
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range snapshot {
		if applyErr := fn(rec); applyErr != nil {
			kept++
			continue
		}
		if delErr := q.gdb.Unscoped().Delete(&db.PendingMutation{}, rec.ID).Error; delErr != nil {
			return removed, kept, delErr
		}
		removed++
	}
	return removed, kept, nil
}

// ToMutation converts a stored record back into the wire mutation shape.
func ToMutation(rec db.PendingMutation) backend.Mutation {
	return backend.Mutation{
		Kind:     rec.Kind,
		TargetID: rec.TargetID,
		Amount:   rec.Amount,
		Value:    rec.Value,
	}
}
