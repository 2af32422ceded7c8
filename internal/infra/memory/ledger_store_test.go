package memory

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"vocab-tiers-service/internal/domain"
)

func TestLedgerStoreLoadUnknownUser(t *testing.T) {
	store := NewLedgerStore()
	l, err := store.Load(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.UserID != "ghost" || l.TotalPoints != 0 || l.CompletedWordIDs == nil {
		t.Fatalf("expected fresh ledger, got %+v", l)
	}
	ids, _ := store.UserIDs(context.Background())
	if len(ids) != 0 {
		t.Fatalf("load must not create users, got %v", ids)
	}
}

func TestLedgerStoreUpdateSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "u1", func(l domain.Ledger) (domain.Ledger, error) {
				l.TotalPoints++
				return l, nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	l, _ := store.Load(ctx, "u1")
	if l.TotalPoints != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", l.TotalPoints)
	}
}

func TestLedgerStoreUpdateErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	_, _ = store.Update(ctx, "u1", func(l domain.Ledger) (domain.Ledger, error) {
		l.CompletedWordIDs.Add("word_1")
		return l, nil
	})
	before, _ := store.Load(ctx, "u1")

	boom := errors.New("boom")
	if _, err := store.Update(ctx, "u1", func(l domain.Ledger) (domain.Ledger, error) {
		l.CompletedWordIDs.Add("word_2")
		return l, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	after, _ := store.Load(ctx, "u1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed update leaked: %v", after.CompletedWordIDs.Sorted())
	}
}

func TestLedgerStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	_, _ = store.Update(ctx, "u1", func(l domain.Ledger) (domain.Ledger, error) { return l, nil })

	l, _ := store.Load(ctx, "u1")
	l.FavoriteWordIDs.Add("word_1")
	again, _ := store.Load(ctx, "u1")
	if again.FavoriteWordIDs.Len() != 0 {
		t.Fatalf("caller mutation reached the store")
	}
}
