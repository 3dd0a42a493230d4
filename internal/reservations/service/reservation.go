package service

import (
	"context"
	"errors"
	catalogerrors "roomslots/internal/catalog/errors"
	catalogrepo "roomslots/internal/catalog/repository"
	reservationserrors "roomslots/internal/reservations/errors"
	"roomslots/internal/reservations/repository"
	"roomslots/internal/reservations/validator"
	"roomslots/pkg/config"
	apperrors "roomslots/pkg/errors"
	"roomslots/pkg/model"
	"roomslots/pkg/sanitizer"
	"sync"
)

type ReservationService interface {
	Reserve(ctx context.Context, userName string, items []model.ReservationItem) (*model.Reservation, error)
	Free(ctx context.Context, slotIDs []string) error
	Modify(ctx context.Context, reservationID string, items []model.ReservationItem) (bool, error)
	SlotsByRoom(ctx context.Context, roomID string) ([]*model.Slot, error)
	SlotsByOwner(ctx context.Context, userName string) ([]*model.Slot, error)
	SlotsByReservation(ctx context.Context, reservationID string, requestingUserName string) ([]*model.Slot, error)
	AllSlots(ctx context.Context, limit int, offset int64) ([]*model.Slot, int64, error)
	Rooms(ctx context.Context) ([]*model.Room, error)
}

type reservationService struct {
	slotRepo        repository.SlotRepository
	reservationRepo repository.ReservationRepository
	lockRepo        repository.SlotLockRepository
	roomRepo        catalogrepo.RoomRepository
	userRepo        catalogrepo.UserRepository
	validator       *validator.ReservationValidator
	publisher       EventPublisher
	cfg             *config.Config
}

func NewReservationService(
	slotRepo repository.SlotRepository,
	reservationRepo repository.ReservationRepository,
	lockRepo repository.SlotLockRepository,
	roomRepo catalogrepo.RoomRepository,
	userRepo catalogrepo.UserRepository,
	validator *validator.ReservationValidator,
	publisher EventPublisher,
	cfg *config.Config,
) ReservationService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &reservationService{
		slotRepo:        slotRepo,
		reservationRepo: reservationRepo,
		lockRepo:        lockRepo,
		roomRepo:        roomRepo,
		userRepo:        userRepo,
		validator:       validator,
		publisher:       publisher,
		cfg:             cfg,
	}
}

// candidate is one batch member resolved against the store.
type candidate struct {
	item     model.ReservationItem
	slot     *model.Slot
	existing bool
}

func (s *reservationService) Reserve(ctx context.Context, userName string, items []model.ReservationItem) (*model.Reservation, error) {
	userName = sanitizer.NormalizeUserName(userName)
	if userName == "" {
		return nil, apperrors.InvalidInput("User name cannot be empty")
	}
	if err := s.prepareItems(items); err != nil {
		return nil, err
	}

	requester, err := s.lookupUserByName(ctx, userName)
	if err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, items); err != nil {
		return nil, err
	}

	release, err := s.acquireSlotLocks(ctx, items)
	if err != nil {
		return nil, err
	}
	defer release()

	var reservation *model.Reservation
	var claimed []*model.Slot
	err = s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		candidates, err := s.loadCandidates(txCtx, items)
		if err != nil {
			return err
		}
		if err := checkAvailability(candidates, ""); err != nil {
			return err
		}

		reservation = &model.Reservation{}
		if err := s.reservationRepo.Create(txCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}

		claimed, err = s.commitClaims(txCtx, candidates, requester.ID, reservation.ID, "")
		return err
	})
	if err != nil {
		s.logFailure("Failed to reserve slots", err, "user_name", userName, "items", len(items))
		return nil, err
	}

	s.cfg.Log.Info("Slots reserved successfully",
		"reservation_id", reservation.ID,
		"owner_id", requester.ID,
		"slots", len(claimed),
	)
	s.publish(ctx, newSlotEvent(EventSlotsReserved, reservation.ID, requester.ID, claimed))
	return reservation, nil
}

func (s *reservationService) Free(ctx context.Context, slotIDs []string) error {
	slotIDs = sanitizer.NormalizeIDs(slotIDs)
	if len(slotIDs) == 0 {
		return apperrors.InvalidInput("At least one slot ID is required")
	}
	if err := s.validator.ValidateSlotIDs(slotIDs); err != nil {
		return s.validationError("Invalid slot IDs", err)
	}

	var freed []*model.Slot
	err := s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		freed = freed[:0]
		for _, id := range slotIDs {
			slot, err := s.slotRepo.FindByID(txCtx, id)
			if err != nil {
				return s.mapSlotError(err, id, "Failed to load slot")
			}

			slot.Release()
			if err := s.slotRepo.Release(txCtx, id); err != nil {
				return s.mapSlotError(err, id, "Failed to free slot")
			}
			freed = append(freed, slot)
		}
		return nil
	})
	if err != nil {
		s.logFailure("Failed to free slots", err, "slot_ids", slotIDs)
		return err
	}

	s.cfg.Log.Info("Slots freed successfully", "slot_ids", slotIDs)
	s.publish(ctx, newSlotEvent(EventSlotsFreed, "", "", freed))
	return nil
}

func (s *reservationService) Modify(ctx context.Context, reservationID string, items []model.ReservationItem) (bool, error) {
	reservationID = sanitizer.NormalizeID(reservationID)
	if err := s.validator.ValidateID("reservation_id", reservationID); err != nil {
		return false, s.validationError("Invalid reservation ID", err)
	}
	if err := s.prepareItems(items); err != nil {
		return false, err
	}

	if _, err := s.reservationRepo.FindByID(ctx, reservationID); err != nil {
		return false, s.mapReservationError(err, reservationID)
	}

	bound, err := s.slotRepo.FindByReservation(ctx, reservationID)
	if err != nil {
		return false, apperrors.Internal("Failed to load reservation slots", err)
	}
	if len(bound) == 0 || bound[0].OwnerID == "" {
		s.cfg.Log.Warn("Reservation has no slots to infer an owner from", "reservation_id", reservationID)
		return false, nil
	}
	ownerID := bound[0].OwnerID

	if err := s.resolveReferences(ctx, items); err != nil {
		return false, err
	}

	release, err := s.acquireSlotLocks(ctx, items)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.cfg.Log.Warn("Reservation modification rejected", "reservation_id", reservationID, "error", err)
			return false, nil
		}
		return false, err
	}
	defer release()

	var claimed []*model.Slot
	err = s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		candidates, err := s.loadCandidates(txCtx, items)
		if err != nil {
			return err
		}
		if err := checkAvailability(candidates, reservationID); err != nil {
			return err
		}

		claimed, err = s.commitClaims(txCtx, candidates, ownerID, reservationID, reservationID)
		return err
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.cfg.Log.Warn("Reservation modification rejected", "reservation_id", reservationID, "error", err)
			return false, nil
		}
		s.logFailure("Failed to modify reservation", err, "reservation_id", reservationID)
		return false, err
	}

	s.cfg.Log.Info("Reservation modified successfully",
		"reservation_id", reservationID,
		"owner_id", ownerID,
		"slots", len(claimed),
	)
	s.publish(ctx, newSlotEvent(EventReservationModified, reservationID, ownerID, claimed))
	return true, nil
}

func (s *reservationService) SlotsByRoom(ctx context.Context, roomID string) ([]*model.Slot, error) {
	roomID = sanitizer.NormalizeID(roomID)
	if err := s.validator.ValidateID("room_id", roomID); err != nil {
		return nil, s.validationError("Invalid room ID", err)
	}
	if _, err := s.lookupRoom(ctx, roomID); err != nil {
		return nil, err
	}

	slots, err := s.slotRepo.FindByRoom(ctx, roomID)
	if err != nil {
		s.cfg.Log.Error("Failed to list room slots", "room_id", roomID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	s.cfg.Log.Debug("Room slots listed", "room_id", roomID, "count", len(slots))
	return slots, nil
}

func (s *reservationService) SlotsByOwner(ctx context.Context, userName string) ([]*model.Slot, error) {
	userName = sanitizer.NormalizeUserName(userName)
	if userName == "" {
		return nil, apperrors.InvalidInput("User name cannot be empty")
	}

	owner, err := s.lookupUserByName(ctx, userName)
	if err != nil {
		return nil, err
	}

	slots, err := s.slotRepo.FindByOwner(ctx, owner.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to list owner slots", "user_name", userName, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	s.cfg.Log.Debug("Owner slots listed", "user_name", userName, "count", len(slots))
	return slots, nil
}

// SlotsByReservation gates by role: an admin sees only their own slots in the
// reservation, any other user sees every slot in it.
func (s *reservationService) SlotsByReservation(ctx context.Context, reservationID string, requestingUserName string) ([]*model.Slot, error) {
	reservationID = sanitizer.NormalizeID(reservationID)
	if err := s.validator.ValidateID("reservation_id", reservationID); err != nil {
		return nil, s.validationError("Invalid reservation ID", err)
	}
	requestingUserName = sanitizer.NormalizeUserName(requestingUserName)
	if requestingUserName == "" {
		return nil, apperrors.InvalidInput("User name cannot be empty")
	}

	requester, err := s.lookupUserByName(ctx, requestingUserName)
	if err != nil {
		return nil, err
	}
	if _, err := s.reservationRepo.FindByID(ctx, reservationID); err != nil {
		return nil, s.mapReservationError(err, reservationID)
	}

	var slots []*model.Slot
	if requester.IsAdmin() {
		slots, err = s.slotRepo.FindByReservationAndOwner(ctx, reservationID, requester.ID)
	} else {
		slots, err = s.slotRepo.FindByReservation(ctx, reservationID)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to list reservation slots", "reservation_id", reservationID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	s.cfg.Log.Debug("Reservation slots listed",
		"reservation_id", reservationID,
		"role", requester.Role,
		"count", len(slots),
	)
	return slots, nil
}

func (s *reservationService) AllSlots(ctx context.Context, limit int, offset int64) ([]*model.Slot, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var slots []*model.Slot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.slotRepo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count slots", "error", errCount)
			errCount = apperrors.Internal("Failed to count slots", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.slotRepo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list slots", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve slots", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return slots, count, nil
}

func (s *reservationService) Rooms(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.roomRepo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}
	return rooms, nil
}

// --- Helpers ---

func (s *reservationService) prepareItems(items []model.ReservationItem) error {
	if len(items) == 0 {
		return apperrors.InvalidInput("At least one slot is required")
	}
	for i := range items {
		items[i].SlotID = sanitizer.NormalizeID(items[i].SlotID)
		items[i].RoomID = sanitizer.NormalizeID(items[i].RoomID)
		items[i].UserID = sanitizer.NormalizeID(items[i].UserID)
	}
	if err := s.validator.ValidateItems(items); err != nil {
		return s.validationError("Reservation validation failed", err)
	}
	return nil
}

// resolveReferences checks that every room and user named by the batch exists.
func (s *reservationService) resolveReferences(ctx context.Context, items []model.ReservationItem) error {
	rooms := make(map[string]struct{}, len(items))
	users := make(map[string]struct{}, len(items))

	for _, item := range items {
		if _, ok := rooms[item.RoomID]; !ok {
			if _, err := s.lookupRoom(ctx, item.RoomID); err != nil {
				return err
			}
			rooms[item.RoomID] = struct{}{}
		}
		if _, ok := users[item.UserID]; !ok {
			if _, err := s.lookupUser(ctx, item.UserID); err != nil {
				return err
			}
			users[item.UserID] = struct{}{}
		}
	}
	return nil
}

// loadCandidates maps each item to a stored slot, by id first and then by
// (room, start time), or to a fresh slot when neither exists.
func (s *reservationService) loadCandidates(ctx context.Context, items []model.ReservationItem) ([]*candidate, error) {
	candidates := make([]*candidate, 0, len(items))
	seen := make(map[string]int, len(items))

	for i, item := range items {
		var slot *model.Slot
		var err error

		if item.SlotID != "" {
			slot, err = s.slotRepo.FindByID(ctx, item.SlotID)
			if err != nil && !errors.Is(err, reservationserrors.ErrSlotNotFound) {
				return nil, s.mapSlotError(err, item.SlotID, "Failed to load slot")
			}
		}
		if slot == nil {
			slot, err = s.slotRepo.FindByCoordinate(ctx, item.RoomID, item.StartTime)
			if err != nil && !errors.Is(err, reservationserrors.ErrSlotNotFound) {
				return nil, apperrors.Internal("Failed to load slot", err)
			}
		}

		if slot == nil {
			candidates = append(candidates, &candidate{
				item: item,
				slot: &model.Slot{RoomID: item.RoomID},
			})
			continue
		}

		if first, ok := seen[slot.ID]; ok {
			return nil, apperrors.InvalidInput("Items " + itemRef(first) + " and " + itemRef(i) + " resolve to the same slot")
		}
		seen[slot.ID] = i
		candidates = append(candidates, &candidate{item: item, slot: slot, existing: true})
	}

	return candidates, nil
}

// checkAvailability is the check phase: any reserved member rejects the
// whole batch. Slots already bound to allowReservationID pass.
func checkAvailability(candidates []*candidate, allowReservationID string) error {
	for _, c := range candidates {
		if !c.existing || !c.slot.Reserved {
			continue
		}
		if allowReservationID != "" && c.slot.ReservationID == allowReservationID {
			continue
		}
		return apperrors.Conflict("Slot is already reserved").WithDetails(map[string]any{
			"slot_id":    c.slot.ID,
			"room_id":    c.slot.RoomID,
			"start_time": c.slot.StartTime,
		})
	}
	return nil
}

// commitClaims is the commit phase. Only call it after checkAvailability
// passed for every candidate.
func (s *reservationService) commitClaims(ctx context.Context, candidates []*candidate, ownerID, reservationID, allowReservationID string) ([]*model.Slot, error) {
	claimed := make([]*model.Slot, 0, len(candidates))

	for _, c := range candidates {
		slot := c.slot
		slot.RoomID = c.item.RoomID
		slot.Claim(ownerID, reservationID, c.item.StartTime)

		var err error
		if c.existing {
			err = s.slotRepo.Claim(ctx, slot, allowReservationID)
		} else {
			err = s.slotRepo.Create(ctx, slot)
		}
		if err != nil {
			if errors.Is(err, reservationserrors.ErrSlotTaken) {
				return nil, apperrors.Conflict("Slot was taken by a concurrent reservation").WithDetails(map[string]any{
					"room_id":    slot.RoomID,
					"start_time": slot.StartTime,
				})
			}
			return nil, apperrors.Internal("Failed to save slot", err)
		}
		claimed = append(claimed, slot)
	}

	return claimed, nil
}

func (s *reservationService) lookupUserByName(ctx context.Context, userName string) (*model.User, error) {
	user, err := s.userRepo.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrUserNotFound) {
			return nil, apperrors.NotFoundWithID("User", userName)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *reservationService) lookupUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrUserNotFound) || errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *reservationService) lookupRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrRoomNotFound) || errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}
	return room, nil
}

func (s *reservationService) mapSlotError(err error, id string, message string) error {
	switch {
	case errors.Is(err, reservationserrors.ErrSlotNotFound):
		return apperrors.NotFoundWithID("Slot", id)
	case errors.Is(err, reservationserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid slot ID format")
	default:
		return apperrors.Internal(message, err)
	}
}

func (s *reservationService) mapReservationError(err error, id string) error {
	switch {
	case errors.Is(err, reservationserrors.ErrReservationNotFound):
		return apperrors.NotFoundWithID("Reservation", id)
	case errors.Is(err, reservationserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation ID format")
	default:
		return apperrors.Internal("Failed to retrieve reservation", err)
	}
}

func (s *reservationService) validationError(message string, err error) error {
	s.cfg.Log.Warn(message, "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

// logFailure logs expected rejections at warn and everything else at error.
func (s *reservationService) logFailure(message string, err error, args ...any) {
	args = append(args, "error", err)
	if appErr := apperrors.AsAppError(err); appErr != nil && appErr.Code != apperrors.CodeInternal {
		s.cfg.Log.Warn(message, args...)
		return
	}
	s.cfg.Log.Error(message, args...)
}
