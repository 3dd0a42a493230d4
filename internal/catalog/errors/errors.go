package errors

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")

	ErrUserNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid catalog ID format")

	ErrDuplicateRoom = errors.New("room name already exists")
)
