package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"vocab-tiers-service/internal/domain"
)

// maxTxRetries bounds optimistic retries when another writer touched the
// same ledger between WATCH and EXEC.
const maxTxRetries = 50

// ErrContention is returned when an update kept losing the optimistic race.
var ErrContention = errors.New("ledger update contention")

// LedgerStore keeps each ledger as JSON under vocab:ledger:{userID} and the
// user index in the vocab:ledgers set. Update uses WATCH/MULTI so concurrent
// writers across instances serialize per user.
type LedgerStore struct {
	client *redis.Client
}

func NewLedgerStore(client *redis.Client) *LedgerStore {
	return &LedgerStore{client: client}
}

func (s *LedgerStore) Load(ctx context.Context, userID string) (domain.Ledger, error) {
	return load(ctx, s.client, userID)
}

func (s *LedgerStore) Update(ctx context.Context, userID string, fn func(domain.Ledger) (domain.Ledger, error)) (domain.Ledger, error) {
	key := ledgerKey(userID)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var current, next domain.Ledger
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var err error
			current, err = load(ctx, tx, userID)
			if err != nil {
				return err
			}
			next, err = fn(current.Clone())
			if err != nil {
				return err
			}
			next.UserID = userID
			data, err := json.Marshal(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				pipe.SAdd(ctx, usersKey, userID)
				return nil
			})
			return err
		}, key)
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return current, err
		}
	}
	return domain.Ledger{}, fmt.Errorf("%w: user %s", ErrContention, userID)
}

func (s *LedgerStore) UserIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// getter is the read side shared by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, userID string) (domain.Ledger, error) {
	data, err := c.Get(ctx, ledgerKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewLedger(userID), nil
	}
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load ledger %s: %w", userID, err)
	}
	var l domain.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.Ledger{}, fmt.Errorf("decode ledger %s: %w", userID, err)
	}
	l.Normalize()
	return l, nil
}

const usersKey = "vocab:ledgers"

func ledgerKey(userID string) string {
	return "vocab:ledger:" + userID
}
