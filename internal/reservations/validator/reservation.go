package validator

import (
	"errors"
	"fmt"
	"reflect"
	"roomslots/pkg/logger"
	"roomslots/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultMaxBatchSize = 50

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the shape returned to API callers.
func (v ValidationErrors) Details() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return map[string]any{"fields": fields}
}

type ReservationValidator struct {
	validate     *validator.Validate
	logger       *logger.Logger
	maxBatchSize int
}

func NewReservationValidator(log *logger.Logger, maxBatchSize int) *ReservationValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}

	log.Info("Reservation validator initialized successfully", "max_batch_size", maxBatchSize)

	return &ReservationValidator{
		validate:     v,
		logger:       log,
		maxBatchSize: maxBatchSize,
	}
}

// ValidateItems checks a reservation batch: size bounds, per-item fields and
// no item requested twice in the same batch.
func (v *ReservationValidator) ValidateItems(items []model.ReservationItem) error {
	if len(items) == 0 {
		return ValidationErrors{{Field: "items", Message: "at least one slot is required"}}
	}
	if len(items) > v.maxBatchSize {
		return ValidationErrors{{
			Field:   "items",
			Message: fmt.Sprintf("at most %d slots can be reserved at once, got %d", v.maxBatchSize, len(items)),
		}}
	}

	var validationErrors ValidationErrors
	for i := range items {
		if err := v.validate.Struct(&items[i]); err != nil {
			var validationErrs validator.ValidationErrors
			if !errors.As(err, &validationErrs) {
				return err
			}
			validationErrors = append(validationErrors, v.translateValidationErrors(fmt.Sprintf("items[%d].", i), validationErrs)...)
		}
	}
	if len(validationErrors) > 0 {
		return validationErrors
	}

	return v.checkDuplicates(items)
}

func (v *ReservationValidator) checkDuplicates(items []model.ReservationItem) error {
	seenSlots := make(map[string]int, len(items))
	seenCoordinates := make(map[string]int, len(items))

	for i, item := range items {
		if item.SlotID != "" {
			if first, ok := seenSlots[item.SlotID]; ok {
				return ValidationErrors{{
					Field:   fmt.Sprintf("items[%d].slot_id", i),
					Message: fmt.Sprintf("duplicates items[%d]", first),
				}}
			}
			seenSlots[item.SlotID] = i
		}

		coordinate := item.RoomID + "|" + item.StartTime.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
		if first, ok := seenCoordinates[coordinate]; ok {
			return ValidationErrors{{
				Field:   fmt.Sprintf("items[%d].start_time", i),
				Message: fmt.Sprintf("same room and start time as items[%d]", first),
			}}
		}
		seenCoordinates[coordinate] = i
	}

	return nil
}

// ValidateSlotIDs checks that every id is a well-formed object id.
func (v *ReservationValidator) ValidateSlotIDs(ids []string) error {
	if len(ids) == 0 {
		return ValidationErrors{{Field: "slot_ids", Message: "at least one slot id is required"}}
	}

	var validationErrors ValidationErrors
	for i, id := range ids {
		if err := v.validate.Var(id, "required,mongodb"); err != nil {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fmt.Sprintf("slot_ids[%d]", i),
				Message: fmt.Sprintf("%q must be a valid MongoDB ObjectID", id),
			})
		}
	}
	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func (v *ReservationValidator) ValidateID(field, id string) error {
	if err := v.validate.Var(id, "required,mongodb"); err != nil {
		return ValidationErrors{{Field: field, Message: "must be a valid MongoDB ObjectID"}}
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(prefix string, errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   prefix + err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
