package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	catalogerrors "roomslots/internal/catalog/errors"
	apperrors "roomslots/pkg/errors"
	"roomslots/pkg/logger"
	"roomslots/pkg/model"
)

type mockRoomRepository struct {
	countFunc      func(ctx context.Context) (int64, error)
	createManyFunc func(ctx context.Context, rooms []*model.Room) error
}

func (m *mockRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	return nil, catalogerrors.ErrRoomNotFound
}

func (m *mockRoomRepository) FindAll(ctx context.Context) ([]*model.Room, error) {
	return []*model.Room{}, nil
}

func (m *mockRoomRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockRoomRepository) CreateMany(ctx context.Context, rooms []*model.Room) error {
	if m.createManyFunc != nil {
		return m.createManyFunc(ctx, rooms)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func TestRoomCatalog(t *testing.T) {
	rooms := RoomCatalog()
	if len(rooms) != 36 {
		t.Fatalf("expected 36 rooms, got %d", len(rooms))
	}

	names := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		if names[room.Name] {
			t.Errorf("duplicate room name %s", room.Name)
		}
		names[room.Name] = true

		if room.Capacity != 70 {
			t.Errorf("room %s: expected capacity 70, got %d", room.Name, room.Capacity)
		}
		if want := "Batiment " + room.Letter; room.Location != want {
			t.Errorf("room %s: expected location %q, got %q", room.Name, want, room.Location)
		}
		if want := fmt.Sprintf("%s%d", room.Letter, room.Number); room.Name != want {
			t.Errorf("expected name %q, got %q", want, room.Name)
		}
	}

	for _, name := range []string{"A1", "A12", "B7", "C12"} {
		if !names[name] {
			t.Errorf("missing room %s", name)
		}
	}
}

func TestSeedRooms(t *testing.T) {
	tests := []struct {
		name         string
		existing     int64
		createErr    error
		wantInserted int
		wantCode     string
	}{
		{name: "empty catalog is seeded", existing: 0, wantInserted: 36},
		{name: "populated catalog is left alone", existing: 5, wantInserted: 0},
		{name: "duplicate names", existing: 0, createErr: fmt.Errorf("%w: E11000", catalogerrors.ErrDuplicateRoom), wantCode: apperrors.CodeAlreadyExists},
		{name: "store failure", existing: 0, createErr: errors.New("connection reset"), wantCode: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := 0
			repo := &mockRoomRepository{
				countFunc: func(ctx context.Context) (int64, error) {
					return tt.existing, nil
				},
				createManyFunc: func(ctx context.Context, rooms []*model.Room) error {
					if tt.createErr != nil {
						return tt.createErr
					}
					created += len(rooms)
					return nil
				},
			}

			inserted, err := SeedRooms(context.Background(), repo, testLogger())
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected code %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inserted != tt.wantInserted || created != tt.wantInserted {
				t.Errorf("expected %d inserted, got %d (repo saw %d)", tt.wantInserted, inserted, created)
			}
		})
	}
}
