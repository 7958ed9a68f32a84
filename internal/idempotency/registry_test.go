package idempotency

import (
	"testing"

	"github.com/google/uuid"
)

func TestKeyIsStableForSameID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	if key(id) != key(id) {
		t.Fatal("key() is not stable for the same correlation id")
	}
}

func TestKeyDiffersAcrossIDs(t *testing.T) {
	t.Parallel()

	if key(uuid.New()) == key(uuid.New()) {
		t.Fatal("key() collided for two distinct correlation ids")
	}
}

func TestKeyCarriesClaimPrefix(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	want := "paid:" + id.String()
	if got := key(id); got != want {
		t.Fatalf("key() = %q, want %q", got, want)
	}
}
