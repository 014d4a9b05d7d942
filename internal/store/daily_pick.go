package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/citievents/internal/model"
)

const dailyPickKey = "motivationData"

// DailyPickStore persists the motivation of the day as one JSON value
// {date, motivation, shown} in the KV table.
type DailyPickStore struct {
	kv *KVStore
}

func NewDailyPickStore(kv *KVStore) *DailyPickStore {
	return &DailyPickStore{kv: kv}
}

// Load returns the stored pick with its raw value in Stored. A value that
// does not decode is removed and reported as absent.
func (s *DailyPickStore) Load(ctx context.Context) (model.DailyPick, bool, error) {
	raw, ok, err := s.kv.Get(ctx, dailyPickKey)
	if err != nil {
		return model.DailyPick{}, false, fmt.Errorf("load daily pick: %w", err)
	}
	if !ok {
		return model.DailyPick{}, false, nil
	}
	var pick model.DailyPick
	if err := json.Unmarshal([]byte(raw), &pick); err != nil {
		if err := s.kv.Delete(ctx, dailyPickKey); err != nil {
			return model.DailyPick{}, false, fmt.Errorf("discard daily pick: %w", err)
		}
		return model.DailyPick{}, false, nil
	}
	pick.Stored = raw
	return pick, true, nil
}

// Save replaces prev with next. prev must be what Load returned (the zero
// value when nothing was stored); ErrConflict means the stored value is no
// longer prev.Stored.
func (s *DailyPickStore) Save(ctx context.Context, prev, next model.DailyPick) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal daily pick: %w", err)
	}

	var prevRaw *string
	if prev.Stored != "" {
		prevRaw = &prev.Stored
	}
	if err := s.kv.CompareAndSwap(ctx, dailyPickKey, prevRaw, string(data)); err != nil {
		return fmt.Errorf("save daily pick: %w", err)
	}
	return nil
}
