package mongo

import (
	"context"
	"errors"
	"fmt"
	catalogerrors "roomslots/internal/catalog/errors"
	"roomslots/internal/catalog/repository"
	apperrors "roomslots/pkg/errors"
	"roomslots/pkg/logger"
	"roomslots/pkg/model"
)

const (
	roomsPerBuilding = 12
	roomCapacity     = 70
)

var buildings = []string{"A", "B", "C"}

// RoomCatalog returns the fixed room set: A1..A12, B1..B12, C1..C12.
func RoomCatalog() []*model.Room {
	rooms := make([]*model.Room, 0, len(buildings)*roomsPerBuilding)
	for _, letter := range buildings {
		for number := 1; number <= roomsPerBuilding; number++ {
			rooms = append(rooms, &model.Room{
				Name:     fmt.Sprintf("%s%d", letter, number),
				Letter:   letter,
				Number:   number,
				Capacity: roomCapacity,
				Location: "Batiment " + letter,
			})
		}
	}
	return rooms
}

// SeedRooms inserts the room catalog when the Rooms collection is empty and
// returns how many rooms it inserted.
func SeedRooms(ctx context.Context, rooms repository.RoomRepository, log *logger.Logger) (int, error) {
	count, err := rooms.Count(ctx)
	if err != nil {
		return 0, apperrors.Internal("Failed to count rooms", err)
	}
	if count > 0 {
		log.Info("Room catalog already seeded, skipping", "rooms", count)
		return 0, nil
	}

	catalog := RoomCatalog()
	if err := rooms.CreateMany(ctx, catalog); err != nil {
		if errors.Is(err, catalogerrors.ErrDuplicateRoom) {
			return 0, apperrors.AlreadyExists("Room", "name")
		}
		return 0, apperrors.Internal("Failed to seed rooms", err)
	}

	log.Info("Room catalog seeded", "rooms", len(catalog))
	return len(catalog), nil
}
