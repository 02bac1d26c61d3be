package storage

import (
	"context"
	"testing"
)

func TestNoopLockerAlwaysAcquires(t *testing.T) {
	t.Parallel()

	release, acquired, err := NoopLocker{}.TryAcquire(context.Background())
	if err != nil {
		t.Fatalf("TryAcquire returned error: %v", err)
	}
	if !acquired {
		t.Fatal("NoopLocker must always acquire")
	}
	release()
}
