package service

import (
	"context"
	"sort"
	"sync"
	"time"

	catalogerrors "roomslots/internal/catalog/errors"
	reservationserrors "roomslots/internal/reservations/errors"
	mongotx "roomslots/pkg/db/mongo"
	"roomslots/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryStore backs every fake repository. Transactions are serialized and
// roll back slots and reservations on error.
type memoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	slots        map[string]*model.Slot
	reservations map[string]*model.Reservation
	rooms        map[string]*model.Room
	users        map[string]*model.User
	locks        map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		slots:        make(map[string]*model.Slot),
		reservations: make(map[string]*model.Reservation),
		rooms:        make(map[string]*model.Room),
		users:        make(map[string]*model.User),
		locks:        make(map[string]string),
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func (m *memoryStore) addRoom(name string) *model.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	room := &model.Room{ID: newID(), Name: name, Capacity: 70}
	m.rooms[room.ID] = room
	return room
}

func (m *memoryStore) addUser(userName, role string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &model.User{ID: newID(), UserName: userName, Role: role}
	m.users[user.ID] = user
	return user
}

func (m *memoryStore) addSlot(slot *model.Slot) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot.ID = newID()
	m.slots[slot.ID] = cloneSlot(slot)
	return slot
}

func (m *memoryStore) slot(id string) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		return cloneSlot(s)
	}
	return nil
}

func (m *memoryStore) slotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *memoryStore) reservationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memoryStore) lockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func cloneSlot(s *model.Slot) *model.Slot {
	c := *s
	return &c
}

func sortSlots(slots []*model.Slot) []*model.Slot {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].RoomID < slots[j].RoomID
	})
	return slots
}

// --- SlotRepository ---

type fakeSlotRepository struct {
	store *memoryStore

	// failWriteAt makes the nth Claim or Create fail, counting from 1.
	failWriteAt int
	writes      int
}

func (r *fakeSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.injectFailure(); err != nil {
		return err
	}
	for _, s := range r.store.slots {
		if s.RoomID == slot.RoomID && s.StartTime.Equal(slot.StartTime) {
			return reservationserrors.ErrSlotTaken
		}
	}
	slot.ID = newID()
	slot.CreatedAt = time.Now().UTC()
	r.store.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (r *fakeSlotRepository) injectFailure() error {
	r.writes++
	if r.failWriteAt > 0 && r.writes == r.failWriteAt {
		return reservationserrors.ErrSlotTaken
	}
	return nil
}

func (r *fakeSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, reservationserrors.ErrInvalidID
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if s, ok := r.store.slots[id]; ok {
		return cloneSlot(s), nil
	}
	return nil, reservationserrors.ErrSlotNotFound
}

func (r *fakeSlotRepository) FindByCoordinate(ctx context.Context, roomID string, startTime time.Time) (*model.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	start := startTime.UTC().Truncate(time.Millisecond)
	for _, s := range r.store.slots {
		if s.RoomID == roomID && s.StartTime.Equal(start) {
			return cloneSlot(s), nil
		}
	}
	return nil, reservationserrors.ErrSlotNotFound
}

func (r *fakeSlotRepository) Claim(ctx context.Context, slot *model.Slot, allowReservationID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.injectFailure(); err != nil {
		return err
	}
	stored, ok := r.store.slots[slot.ID]
	if !ok {
		return reservationserrors.ErrSlotTaken
	}
	if stored.Reserved && (allowReservationID == "" || stored.ReservationID != allowReservationID) {
		return reservationserrors.ErrSlotTaken
	}
	stored.RoomID = slot.RoomID
	stored.Reserved = slot.Reserved
	stored.OwnerID = slot.OwnerID
	stored.ReservationID = slot.ReservationID
	stored.StartTime = slot.StartTime
	stored.EndTime = slot.EndTime
	return nil
}

func (r *fakeSlotRepository) Release(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.slots[id]
	if !ok {
		return reservationserrors.ErrSlotNotFound
	}
	stored.Reserved = false
	return nil
}

func (r *fakeSlotRepository) filter(match func(*model.Slot) bool) []*model.Slot {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slots := []*model.Slot{}
	for _, s := range r.store.slots {
		if match(s) {
			slots = append(slots, cloneSlot(s))
		}
	}
	return sortSlots(slots)
}

func (r *fakeSlotRepository) FindByRoom(ctx context.Context, roomID string) ([]*model.Slot, error) {
	return r.filter(func(s *model.Slot) bool { return s.RoomID == roomID }), nil
}

func (r *fakeSlotRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	return r.filter(func(s *model.Slot) bool { return s.OwnerID == ownerID }), nil
}

func (r *fakeSlotRepository) FindByReservation(ctx context.Context, reservationID string) ([]*model.Slot, error) {
	return r.filter(func(s *model.Slot) bool { return s.ReservationID == reservationID }), nil
}

func (r *fakeSlotRepository) FindByReservationAndOwner(ctx context.Context, reservationID string, ownerID string) ([]*model.Slot, error) {
	return r.filter(func(s *model.Slot) bool {
		return s.ReservationID == reservationID && s.OwnerID == ownerID
	}), nil
}

func (r *fakeSlotRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Slot, error) {
	all := r.filter(func(*model.Slot) bool { return true })
	if offset >= int64(len(all)) {
		return []*model.Slot{}, nil
	}
	end := int(offset) + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeSlotRepository) Count(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.slots)), nil
}

func (r *fakeSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	r.store.mu.Lock()
	slots := make(map[string]*model.Slot, len(r.store.slots))
	for id, s := range r.store.slots {
		slots[id] = cloneSlot(s)
	}
	reservations := make(map[string]*model.Reservation, len(r.store.reservations))
	for id, res := range r.store.reservations {
		reservations[id] = res
	}
	r.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.store.mu.Lock()
		r.store.slots = slots
		r.store.reservations = reservations
		r.store.mu.Unlock()
		return err
	}
	return nil
}

// --- ReservationRepository ---

type fakeReservationRepository struct {
	store *memoryStore
}

func (r *fakeReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reservation.ID = newID()
	reservation.ReservationDate = time.Now().UTC()
	c := *reservation
	r.store.reservations[reservation.ID] = &c
	return nil
}

func (r *fakeReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, reservationserrors.ErrInvalidID
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if res, ok := r.store.reservations[id]; ok {
		c := *res
		return &c, nil
	}
	return nil, reservationserrors.ErrReservationNotFound
}

// --- SlotLockRepository ---

type fakeSlotLockRepository struct {
	store *memoryStore
}

func (r *fakeSlotLockRepository) Acquire(ctx context.Context, key string, token string, ttl time.Duration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, held := r.store.locks[key]; held {
		return reservationserrors.ErrLockHeld
	}
	r.store.locks[key] = token
	return nil
}

func (r *fakeSlotLockRepository) Release(ctx context.Context, key string, token string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.locks[key] == token {
		delete(r.store.locks, key)
	}
	return nil
}

// --- Catalog ---

type fakeRoomRepository struct {
	store *memoryStore
}

func (r *fakeRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if room, ok := r.store.rooms[id]; ok {
		return room, nil
	}
	return nil, catalogerrors.ErrRoomNotFound
}

func (r *fakeRoomRepository) FindAll(ctx context.Context) ([]*model.Room, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rooms := make([]*model.Room, 0, len(r.store.rooms))
	for _, room := range r.store.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

func (r *fakeRoomRepository) Count(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.rooms)), nil
}

func (r *fakeRoomRepository) CreateMany(ctx context.Context, rooms []*model.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, room := range rooms {
		room.ID = newID()
		r.store.rooms[room.ID] = room
	}
	return nil
}

type fakeUserRepository struct {
	store *memoryStore
}

func (r *fakeUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if user, ok := r.store.users[id]; ok {
		return user, nil
	}
	return nil, catalogerrors.ErrUserNotFound
}

func (r *fakeUserRepository) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.UserName == userName {
			return user, nil
		}
	}
	return nil, catalogerrors.ErrUserNotFound
}

// --- EventPublisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []SlotEvent
	err    error
}

func (p *recordingPublisher) PublishSlotEvent(ctx context.Context, event SlotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}
