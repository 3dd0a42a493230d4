package service

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "roomslots/internal/reservations/errors"
	apperrors "roomslots/pkg/errors"
	"roomslots/pkg/model"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const lockReleaseTimeout = 5 * time.Second

// slotLockKeys returns the sorted, deduplicated lock keys covering a batch.
// Each item is locked by coordinate and, when it names one, by slot id.
// Sorting gives every request the same acquisition order.
func slotLockKeys(items []model.ReservationItem) []string {
	seen := make(map[string]struct{}, len(items)*2)
	keys := make([]string, 0, len(items)*2)

	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for _, item := range items {
		start := item.StartTime.UTC().Truncate(time.Millisecond)
		add(fmt.Sprintf("slot_lock_%s_%s", item.RoomID, strconv.FormatInt(start.UnixMilli(), 10)))
		if item.SlotID != "" {
			add("slot_lock_id_" + item.SlotID)
		}
	}

	sort.Strings(keys)
	return keys
}

// acquireSlotLocks takes every lock for the batch or none. The returned
// release func must be called once the batch is done.
func (s *reservationService) acquireSlotLocks(ctx context.Context, items []model.ReservationItem) (func(), error) {
	keys := slotLockKeys(items)
	token := uuid.NewString()
	acquired := make([]string, 0, len(keys))

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
		defer cancel()

		for i := len(acquired) - 1; i >= 0; i-- {
			if err := s.lockRepo.Release(releaseCtx, acquired[i], token); err != nil {
				s.cfg.Log.Warn("Failed to release slot lock", "key", acquired[i], "error", err)
			}
		}
	}

	for _, key := range keys {
		if err := s.lockRepo.Acquire(ctx, key, token, s.cfg.SlotLockTTL); err != nil {
			release()
			if errors.Is(err, reservationserrors.ErrLockHeld) {
				s.cfg.Log.Debug("Slot lock held by another request", "key", key)
				return nil, apperrors.Conflict("Slot is being reserved by another request").WithDetails(map[string]any{
					"lock": key,
				})
			}
			return nil, apperrors.Internal("Failed to acquire slot lock", err)
		}
		acquired = append(acquired, key)
	}

	return release, nil
}

func itemRef(i int) string {
	return "items[" + strconv.Itoa(i) + "]"
}
