package checkpoint

import (
	"context"
	"testing"
	"time"
)

func TestFileStoreCheckpointRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	// no checkpoint yet
	cp, err := s.LoadCheckpoint(ctx, "0xAbC")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cp != nil {
		t.Fatal("expected nil checkpoint")
	}

	in := Checkpoint{
		WalletAddress: "0xAbC",
		XHandle:       "alice",
		TxHash:        "0xdeadbeef",
		ConfirmedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveCheckpoint(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	// lookups are case-insensitive on address
	cp, err = s.LoadCheckpoint(ctx, "0xABC")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cp == nil || cp.XHandle != "alice" || cp.TxHash != "0xdeadbeef" {
		t.Fatalf("checkpoint = %+v", cp)
	}

	if err := s.ClearCheckpoint(ctx, "0xabc"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cp, _ = s.LoadCheckpoint(ctx, "0xabc"); cp != nil {
		t.Fatal("checkpoint survived clear")
	}
	// clearing twice is fine
	if err := s.ClearCheckpoint(ctx, "0xabc"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestFileStoreCelebrationFlag(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	ok, err := s.HasCelebrated(ctx, "0x123")
	if err != nil || ok {
		t.Fatalf("fresh address: ok=%v err=%v", ok, err)
	}

	if err := s.MarkCelebrated(ctx, "0x123"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	ok, err = s.HasCelebrated(ctx, "0x123")
	if err != nil || !ok {
		t.Fatalf("after mark: ok=%v err=%v", ok, err)
	}
}
