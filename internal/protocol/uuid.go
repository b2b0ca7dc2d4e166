package protocol

import (
	"encoding/hex"
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// EventID is a 128-bit event identifier. On the wire it is a 32 character
// lowercase hexadecimal string without dashes, e.g.
// "ecce513737d441b78b66c84ace35a281".
type EventID uuid.UUID

// GenerateEventID returns a new random (version 4) EventID.
func GenerateEventID() EventID {
	return EventID(uuid.New())
}

// ParseEventID parses the hexadecimal wire form of an EventID.
//
// Dashes are reinserted after bytes 4, 6, 8 and 10 and the result must be a
// valid UUID.
func ParseEventID(s string) (EventID, error) {
	if len(s) != 32 {
		return EventID{}, invalidEventIDError(s)
	}
	dashed := s[:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
	id, err := uuid.Parse(dashed)
	if err != nil {
		return EventID{}, invalidEventIDError(s)
	}
	return EventID(id), nil
}

// String returns the hexadecimal wire form of id.
func (id EventID) String() string {
	return hex.EncodeToString(id[:])
}

// UUID returns id in the conventional dash separated form.
func (id EventID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

// IsZero reports whether id is the zero identifier.
func (id EventID) IsZero() bool {
	return id == EventID{}
}

func (id EventID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *EventID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &json.UnmarshalTypeError{
			Value: "non-string",
			Type:  reflect.TypeOf(id).Elem(),
		}
	}
	parsed, err := ParseEventID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func invalidEventIDError(s string) error {
	return &json.UnmarshalTypeError{
		Value: "string " + strconv.Quote(s),
		Type:  reflect.TypeOf(EventID{}),
	}
}
