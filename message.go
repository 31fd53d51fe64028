package integration

import (
	"reflect"

	"github.com/goliatone/go-errors"
)

// Message is the interface outbound messages must implement
type Message interface {
	Type() string
	Validate() error
}

func IsNilMessage(msg any) bool {
	if msg == nil {
		return true
	}

	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Ptr {
		return false
	}

	return v.IsNil()
}

// ValidateMessage runs the nil check and the message's own validation.
func ValidateMessage(msg any) error {
	if IsNilMessage(msg) {
		return errors.New("nil message pointer", errors.CategoryValidation).
			WithTextCode("INVALID_MESSAGE")
	}

	if m, ok := msg.(Message); ok {
		if err := m.Validate(); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "message validation failed").
				WithTextCode("VALIDATION_FAILED")
		}
	}

	return nil
}
