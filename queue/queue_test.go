package queue

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"minigameshub-edge/backend"
	"minigameshub-edge/db"
)

func testQueue(t *testing.T, cap int) *Queue {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return New(gdb, cap)
}

func playMutation(id int) backend.Mutation {
	return backend.Mutation{Kind: backend.KindPlayIncrement, TargetID: id, Amount: 1}
}

func TestDrainRoundTrip(t *testing.T) {
	q := testQueue(t, 50)

	if err := q.Enqueue(playMutation(1)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	removed, kept, err := q.Drain(func(db.PendingMutation) error { return nil })
	if err != nil || removed != 1 || kept != 0 {
		t.Fatalf("Drain = (%d, %d, %v), want (1, 0, nil)", removed, kept, err)
	}

	// A later drain must never observe the applied entry again.
	var seen int
	_, _, err = q.Drain(func(db.PendingMutation) error { seen++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if seen != 0 {
		t.Errorf("applied mutation observed again in a later drain (%d times)", seen)
	}
}

func TestDrainRetainsFailuresInOrder(t *testing.T) {
	q := testQueue(t, 50)
	for i := 1; i <= 4; i++ {
		if err := q.Enqueue(playMutation(i)); err != nil {
			t.Fatal(err)
		}
	}

	// Fail the two middle entries.
	_, kept, err := q.Drain(func(rec db.PendingMutation) error {
		if rec.TargetID == 2 || rec.TargetID == 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if kept != 2 {
		t.Fatalf("kept = %d, want 2", kept)
	}

	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].TargetID != 2 || pending[1].TargetID != 3 {
		t.Errorf("retained entries out of order: %v", targetIDs(pending))
	}

	// A later succeeding drain removes exactly the outstanding entries.
	removed, kept, err := q.Drain(func(db.PendingMutation) error { return nil })
	if err != nil || removed != 2 || kept != 0 {
		t.Errorf("second drain = (%d, %d, %v), want (2, 0, nil)", removed, kept, err)
	}
}

func TestEnqueueDuringDrainIsNotReplayed(t *testing.T) {
	q := testQueue(t, 50)
	if err := q.Enqueue(playMutation(1)); err != nil {
		t.Fatal(err)
	}

	var observed []int
	_, _, err := q.Drain(func(rec db.PendingMutation) error {
		observed = append(observed, rec.TargetID)
		// Simulate a new user action arriving mid-drain.
		if rec.TargetID == 1 {
			if err := q.Enqueue(playMutation(99)); err != nil {
				t.Errorf("mid-drain enqueue failed: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(observed) != 1 || observed[0] != 1 {
		t.Errorf("drain observed %v, want only the snapshot entry [1]", observed)
	}

	// The mid-drain entry is preserved for the next pass, after the rest.
	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].TargetID != 99 {
		t.Errorf("pending after drain = %v, want [99]", targetIDs(pending))
	}
}

func TestReentrantDrainIsNoOp(t *testing.T) {
	q := testQueue(t, 50)
	if err := q.Enqueue(playMutation(1)); err != nil {
		t.Fatal(err)
	}

	var inner struct{ removed, kept int }
	removed, _, err := q.Drain(func(db.PendingMutation) error {
		// A connectivity event firing mid-drain must coalesce, not start a
		// second concurrent pass.
		r, k, innerErr := q.Drain(func(db.PendingMutation) error {
			t.Error("nested drain processed an entry")
			return nil
		})
		if innerErr != nil {
			t.Errorf("nested drain errored: %v", innerErr)
		}
		inner.removed, inner.kept = r, k
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("outer drain removed %d, want 1", removed)
	}
	if inner.removed != 0 || inner.kept != 0 {
		t.Errorf("nested drain = (%d, %d), want (0, 0)", inner.removed, inner.kept)
	}
}

func TestCapEvictsOldestPerKind(t *testing.T) {
	q := testQueue(t, 3)

	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(playMutation(i)); err != nil {
			t.Fatal(err)
		}
	}
	// A different kind must not be affected by the play-increment cap.
	if err := q.Enqueue(backend.Mutation{Kind: backend.KindRatingUpdate, TargetID: 7, Value: 4}); err != nil {
		t.Fatal(err)
	}

	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}

	var plays, ratings []int
	for _, rec := range pending {
		switch rec.Kind {
		case backend.KindPlayIncrement:
			plays = append(plays, rec.TargetID)
		case backend.KindRatingUpdate:
			ratings = append(ratings, rec.TargetID)
		}
	}
	if fmt.Sprint(plays) != "[3 4 5]" {
		t.Errorf("play entries after eviction = %v, want the newest [3 4 5]", plays)
	}
	if fmt.Sprint(ratings) != "[7]" {
		t.Errorf("rating entries = %v, want [7]", ratings)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")

	gdb, err := db.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	q := New(gdb, 50)
	if err := q.Enqueue(playMutation(42)); err != nil {
		t.Fatal(err)
	}

	// A fresh handle over the same file sees the entry.
	gdb2, err := db.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	q2 := New(gdb2, 50)
	pending, err := q2.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].TargetID != 42 {
		t.Errorf("reopened queue pending = %v, want [42]", targetIDs(pending))
	}
}

func targetIDs(recs []db.PendingMutation) []int {
	out := make([]int, len(recs))
	for i, rec := range recs {
		out[i] = rec.TargetID
	}
	return out
}
