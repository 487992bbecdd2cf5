package intake

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()

	a := store.Create()
	b := store.Create()
	if a.ID == b.ID {
		t.Fatalf("sessions must have distinct IDs")
	}

	got, err := store.Get(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != a {
		t.Fatalf("get returned a different session")
	}

	if _, err := store.Get(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionTurnsSnapshot(t *testing.T) {
	sess := NewStore().Create()
	sess.Append(Turn{Role: RolePatient, Text: "one"})

	snap := sess.Turns()
	sess.Append(Turn{Role: RoleAgent, Text: "two"})

	if len(snap) != 1 {
		t.Fatalf("snapshot should be independent of later appends, len %d", len(snap))
	}
	if sess.Len() != 2 {
		t.Fatalf("session len: %d", sess.Len())
	}
	if sess.Turns()[0].Timestamp.IsZero() {
		t.Fatalf("append should stamp turns")
	}
}
