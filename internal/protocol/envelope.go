package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTooManyPrimaryItems is returned when an envelope holds more than
	// one event or transaction item.
	ErrTooManyPrimaryItems = errors.New("envelope may contain at most one event or transaction item")
	// ErrMissingEventID is returned when an envelope carries items that
	// require an event ID but its header has none.
	ErrMissingEventID = errors.New("event id required but not present in envelope header")
	// ErrEnvelopeTooLarge is returned when the serialized envelope exceeds its ceiling.
	ErrEnvelopeTooLarge = errors.New("envelope too large")
	// ErrAttachmentsTooLarge is returned when all attachments of an envelope
	// combined exceed their ceiling.
	ErrAttachmentsTooLarge = errors.New("attachments too large")
	// ErrAttachmentTooLarge is returned when a single attachment item exceeds its hard ceiling.
	ErrAttachmentTooLarge = errors.New("attachment too large")
	// ErrPayloadTooLarge is returned when an event or transaction item exceeds its ceiling.
	ErrPayloadTooLarge = errors.New("event or transaction payload too large")
	// ErrSizeMismatch is returned when an item's declared length differs from its payload length.
	ErrSizeMismatch = errors.New("item length does not match payload length")
)

// EnvelopeError reports an envelope or envelope item that violates one of
// the ingestion constraints. Err is one of the sentinel errors of this
// package and can be matched with errors.Is.
type EnvelopeError struct {
	Err error
	// Observed is the offending count or size in bytes.
	Observed int
	// Limit is the ceiling that was exceeded, or the declared length for
	// ErrSizeMismatch.
	Limit int
}

func (e *EnvelopeError) Error() string {
	switch e.Err {
	case ErrTooManyPrimaryItems:
		return fmt.Sprintf("envelope: %v (found %d)", e.Err, e.Observed)
	case ErrMissingEventID:
		return fmt.Sprintf("envelope: %v", e.Err)
	case ErrSizeMismatch:
		return fmt.Sprintf("envelope: %v (declared %d, actual %d)", e.Err, e.Limit, e.Observed)
	default:
		return fmt.Sprintf("envelope: %v (%d bytes, limit %d bytes)", e.Err, e.Observed, e.Limit)
	}
}

func (e *EnvelopeError) Unwrap() error {
	return e.Err
}

// SdkInfo describes the SDK that produced a payload.
type SdkInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Envelope represents a Sentry envelope containing headers and items.
type Envelope struct {
	Header *EnvelopeHeader `json:"-"`
	Items  []*EnvelopeItem `json:"-"`
}

// EnvelopeHeader represents the header of a Sentry envelope.
type EnvelopeHeader struct {
	// EventID is the unique identifier of the event the items belong to.
	EventID *EventID `json:"event_id,omitempty"`

	// Dsn can be used for self-authenticated envelopes.
	// This means that the envelope has all the information necessary to be sent to sentry.
	// In this case the full DSN must be stored in this key.
	Dsn string `json:"dsn,omitempty"`

	// Sdk carries the same payload as the sdk interface in the event payload but can be carried for all events.
	Sdk *SdkInfo `json:"sdk,omitempty"`
}

// EnvelopeItemType represents the type of envelope item.
type EnvelopeItemType string

// Constants for envelope item types as defined in the Sentry documentation.
const (
	EnvelopeItemTypeEvent        EnvelopeItemType = "event"
	EnvelopeItemTypeTransaction  EnvelopeItemType = "transaction"
	EnvelopeItemTypeAttachment   EnvelopeItemType = "attachment"
	EnvelopeItemTypeSession      EnvelopeItemType = "session"
	EnvelopeItemTypeSessions     EnvelopeItemType = "sessions"
	EnvelopeItemTypeUserReport   EnvelopeItemType = "user_report"
	EnvelopeItemTypeClientReport EnvelopeItemType = "client_report"
	EnvelopeItemTypeCheckIn      EnvelopeItemType = "check_in"
	EnvelopeItemTypeLog          EnvelopeItemType = "log"
)

// isPrimary reports whether at most one item of this type may be sent per envelope.
func (t EnvelopeItemType) isPrimary() bool {
	return t == EnvelopeItemTypeEvent || t == EnvelopeItemTypeTransaction
}

// requiresEventID reports whether this item type needs the envelope event ID.
func (t EnvelopeItemType) requiresEventID() bool {
	return t.isPrimary() || t == EnvelopeItemTypeAttachment || t == EnvelopeItemTypeUserReport
}

// EnvelopeItemHeader represents the header of an envelope item.
type EnvelopeItemHeader struct {
	// Type specifies the type of this Item and its contents.
	Type EnvelopeItemType `json:"type"`

	// Length is the length of the payload in bytes.
	Length int `json:"length"`

	// Filename is the name of the attachment file (used for attachments)
	Filename string `json:"filename,omitempty"`

	// ContentType is the MIME type of the item payload (used for attachments and some other item types)
	ContentType string `json:"content_type,omitempty"`
}

// EnvelopeItem represents a single item within an envelope.
type EnvelopeItem struct {
	Header  *EnvelopeItemHeader `json:"-"`
	Payload []byte              `json:"-"`
}

// NewItem creates an envelope item from a header declaring the payload
// length. It fails with ErrSizeMismatch when header.Length differs from
// len(payload), and with ErrAttachmentTooLarge or ErrPayloadTooLarge when the
// payload exceeds the ceiling of its type.
func NewItem(header EnvelopeItemHeader, payload []byte, limits Limits) (*EnvelopeItem, error) {
	if header.Length != len(payload) {
		return nil, &EnvelopeError{Err: ErrSizeMismatch, Observed: len(payload), Limit: header.Length}
	}
	if err := checkItemSize(header.Type, len(payload), limits.WithDefaults()); err != nil {
		return nil, err
	}
	return &EnvelopeItem{Header: &header, Payload: payload}, nil
}

// NewEnvelopeItem creates a new envelope item with the specified type and payload.
func NewEnvelopeItem(itemType EnvelopeItemType, payload []byte, limits Limits) (*EnvelopeItem, error) {
	return NewItem(EnvelopeItemHeader{Type: itemType, Length: len(payload)}, payload, limits)
}

// NewAttachmentItem creates a new envelope item for an attachment.
func NewAttachmentItem(filename, contentType string, payload []byte, limits Limits) (*EnvelopeItem, error) {
	return NewItem(EnvelopeItemHeader{
		Type:        EnvelopeItemTypeAttachment,
		Length:      len(payload),
		Filename:    filename,
		ContentType: contentType,
	}, payload, limits)
}

func checkItemSize(itemType EnvelopeItemType, size int, limits Limits) error {
	switch {
	case itemType == EnvelopeItemTypeAttachment && size > limits.MaxEachAttachmentSize:
		return &EnvelopeError{Err: ErrAttachmentTooLarge, Observed: size, Limit: limits.MaxEachAttachmentSize}
	case itemType.isPrimary() && size > limits.MaxEventSize:
		return &EnvelopeError{Err: ErrPayloadTooLarge, Observed: size, Limit: limits.MaxEventSize}
	}
	return nil
}

// NewEnvelope creates a new envelope with the given header.
func NewEnvelope(header *EnvelopeHeader) *Envelope {
	if header == nil {
		header = &EnvelopeHeader{}
	}
	return &Envelope{
		Header: header,
		Items:  make([]*EnvelopeItem, 0),
	}
}

// AddItem adds an item to the envelope.
func (e *Envelope) AddItem(item *EnvelopeItem) {
	e.Items = append(e.Items, item)
}

// EventCount returns the number of event and transaction items.
func (e *Envelope) EventCount() int {
	var n int
	for _, item := range e.Items {
		if item.Header.Type.isPrimary() {
			n++
		}
	}
	return n
}

// header returns the envelope header, or an empty one when none is set.
func (e *Envelope) header() *EnvelopeHeader {
	if e.Header == nil {
		return &EnvelopeHeader{}
	}
	return e.Header
}

// Validate checks the ceilings of each item and the envelope level
// constraints: at most one event or transaction item, an event ID whenever
// an item requires it, and the combined attachment ceiling.
func (e *Envelope) Validate(limits Limits) error {
	limits = limits.WithDefaults()

	var primary, requiringID, attachments int
	for _, item := range e.Items {
		if item == nil || item.Header == nil {
			return fmt.Errorf("envelope: item without header")
		}
		if item.Header.Length != len(item.Payload) {
			return &EnvelopeError{Err: ErrSizeMismatch, Observed: len(item.Payload), Limit: item.Header.Length}
		}
		if err := checkItemSize(item.Header.Type, len(item.Payload), limits); err != nil {
			return err
		}
		if item.Header.Type.isPrimary() {
			primary++
		}
		if item.Header.Type.requiresEventID() {
			requiringID++
		}
		if item.Header.Type == EnvelopeItemTypeAttachment {
			attachments += len(item.Payload)
		}
	}

	if primary >= 2 {
		return &EnvelopeError{Err: ErrTooManyPrimaryItems, Observed: primary, Limit: 1}
	}
	if id := e.header().EventID; requiringID > 0 && (id == nil || id.IsZero()) {
		return &EnvelopeError{Err: ErrMissingEventID}
	}
	if attachments > limits.MaxAllAttachmentsSize {
		return &EnvelopeError{Err: ErrAttachmentsTooLarge, Observed: attachments, Limit: limits.MaxAllAttachmentsSize}
	}
	return nil
}

// Serialize validates the envelope and serializes it to the Sentry envelope format.
//
// Format: Headers "\n" { Item }
// Item: Headers "\n" Payload "\n".
func (e *Envelope) Serialize(limits Limits) ([]byte, error) {
	limits = limits.WithDefaults()
	if err := e.Validate(limits); err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	headerBytes, err := json.Marshal(e.header())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope header: %w", err)
	}
	buf.Write(headerBytes)
	buf.WriteByte('\n')

	for _, item := range e.Items {
		if err := writeItem(&buf, item); err != nil {
			return nil, fmt.Errorf("failed to write envelope item: %w", err)
		}
	}

	if buf.Len() > limits.MaxEnvelopeUncompressedSize {
		return nil, &EnvelopeError{Err: ErrEnvelopeTooLarge, Observed: buf.Len(), Limit: limits.MaxEnvelopeUncompressedSize}
	}

	return buf.Bytes(), nil
}

func writeItem(buf *bytes.Buffer, item *EnvelopeItem) error {
	headerBytes, err := json.Marshal(item.Header)
	if err != nil {
		return fmt.Errorf("failed to marshal item header: %w", err)
	}
	buf.Write(headerBytes)
	buf.WriteByte('\n')
	buf.Write(item.Payload)
	buf.WriteByte('\n')
	return nil
}

// MarshalJSON converts the EnvelopeHeader to JSON. sent_at is the time of
// the call, in RFC 3339 format and UTC, used for clock drift correction.
func (h *EnvelopeHeader) MarshalJSON() ([]byte, error) {
	type header EnvelopeHeader
	return json.Marshal(struct {
		*header
		SentAt string `json:"sent_at"`
	}{
		header: (*header)(h),
		SentAt: now().UTC().Format(time.RFC3339),
	})
}
