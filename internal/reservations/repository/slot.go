package repository

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "roomslots/internal/reservations/errors"
	"roomslots/pkg/config"
	mongotx "roomslots/pkg/db/mongo"
	"roomslots/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SlotsCollection = "Slots"
)

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByCoordinate(ctx context.Context, roomID string, startTime time.Time) (*model.Slot, error)
	// Claim writes the claimed state of slot only if the stored slot is free
	// or, when allowReservationID is set, already bound to that reservation.
	Claim(ctx context.Context, slot *model.Slot, allowReservationID string) error
	Release(ctx context.Context, id string) error
	FindByRoom(ctx context.Context, roomID string) ([]*model.Slot, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error)
	FindByReservation(ctx context.Context, reservationID string) ([]*model.Slot, error)
	FindByReservationAndOwner(ctx context.Context, reservationID string, ownerID string) ([]*model.Slot, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Slot, error)
	Count(ctx context.Context) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(SlotsCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	slot.ID = ""
	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: room %s at %s", reservationserrors.ErrSlotTaken, slot.RoomID, slot.StartTime.Format(time.RFC3339))
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoSlotRepository) FindByCoordinate(ctx context.Context, roomID string, startTime time.Time) (*model.Slot, error) {
	return r.findOne(ctx, bson.M{
		"room_id":    roomID,
		"start_time": startTime.UTC().Truncate(time.Millisecond),
	})
}

func (r *mongoSlotRepository) findOne(ctx context.Context, filter bson.M) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.Slot
	err := r.collection.FindOne(ctx, filter).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) Claim(ctx context.Context, slot *model.Slot, allowReservationID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(slot.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, slot.ID)
	}

	filter := bson.M{"_id": objectID, "reserved": false}
	if allowReservationID != "" {
		filter = bson.M{
			"_id": objectID,
			"$or": []bson.M{
				{"reserved": false},
				{"reservation_id": allowReservationID},
			},
		}
	}

	update := bson.M{
		"$set": bson.M{
			"room_id":        slot.RoomID,
			"reserved":       slot.Reserved,
			"owner_id":       slot.OwnerID,
			"reservation_id": slot.ReservationID,
			"start_time":     slot.StartTime,
			"end_time":       slot.EndTime,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", reservationserrors.ErrSlotTaken, slot.ID)
		}
		return fmt.Errorf("failed to claim slot: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", reservationserrors.ErrSlotTaken, slot.ID)
	}

	return nil
}

func (r *mongoSlotRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"reserved": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}

	if result.MatchedCount == 0 {
		return reservationserrors.ErrSlotNotFound
	}

	return nil
}

func (r *mongoSlotRepository) FindByRoom(ctx context.Context, roomID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"room_id": roomID}, options.Find())
}

func (r *mongoSlotRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, options.Find())
}

func (r *mongoSlotRepository) FindByReservation(ctx context.Context, reservationID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"reservation_id": reservationID}, options.Find())
}

func (r *mongoSlotRepository) FindByReservationAndOwner(ctx context.Context, reservationID string, ownerID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"reservation_id": reservationID, "owner_id": ownerID}, options.Find())
}

func (r *mongoSlotRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Slot, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts.SetSort(bson.D{
		{Key: "start_time", Value: 1},
		{Key: "room_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.Slot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}

	return count, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
