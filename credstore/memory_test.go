package credstore

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if rec, err := store.Load(ctx); rec != nil || err != nil {
		t.Fatalf("expected empty store, got %+v %v", rec, err)
	}

	rec := testRecord(t, `{"sub":"alice","exp":2000}`, "r-1")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertRecordEqual(t, rec, got)

	for i := 0; i < 2; i++ {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("clear %d: %v", i, err)
		}
	}
	if store.Fields() != nil {
		t.Fatal("expected no fields after clear")
	}
}

func TestMemoryStoreFieldsIsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, testRecord(t, `{"exp":10}`, "r")); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Fields()[FieldRefreshToken] = "tampered"
	rec, _ := store.Load(ctx)
	if rec.RefreshToken != "r" {
		t.Fatal("Fields leaked internal map")
	}
}

// Readers must see either the old record or the new one, never a mix.
func TestMemoryStoreSaveIsAtomicForReaders(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a := testRecord(t, `{"sub":"a","exp":10}`, "r-a")
	b := testRecord(t, `{"sub":"b","exp":20}`, "r-b")
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			next := a
			if i%2 == 0 {
				next = b
			}
			_ = store.Save(ctx, next)
		}
	}()

	for i := 0; i < 2000; i++ {
		rec, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		switch rec.RefreshToken {
		case "r-a":
			if rec.Claims.Subject != "a" {
				t.Fatalf("torn read: %+v", rec.Claims)
			}
		case "r-b":
			if rec.Claims.Subject != "b" {
				t.Fatalf("torn read: %+v", rec.Claims)
			}
		default:
			t.Fatalf("unexpected refresh token %q", rec.RefreshToken)
		}
	}
	close(stop)
	wg.Wait()
}
