package sentry

import "github.com/crashdesk/sentry-go/internal/protocol"

// Envelope is a multi-item container sent to the envelope endpoint.
type Envelope = protocol.Envelope

// EnvelopeHeader is the header line of an Envelope.
type EnvelopeHeader = protocol.EnvelopeHeader

// EnvelopeItem is a single item of an Envelope.
type EnvelopeItem = protocol.EnvelopeItem

// EnvelopeItemHeader is the header line of an EnvelopeItem.
type EnvelopeItemHeader = protocol.EnvelopeItemHeader

// EnvelopeItemType is the type of an EnvelopeItem.
type EnvelopeItemType = protocol.EnvelopeItemType

// EnvelopeError reports an envelope that violates an ingestion constraint.
type EnvelopeError = protocol.EnvelopeError

// Limits holds the size ceilings enforced while assembling envelopes.
type Limits = protocol.Limits

// Envelope item types.
const (
	EnvelopeItemTypeEvent        = protocol.EnvelopeItemTypeEvent
	EnvelopeItemTypeTransaction  = protocol.EnvelopeItemTypeTransaction
	EnvelopeItemTypeAttachment   = protocol.EnvelopeItemTypeAttachment
	EnvelopeItemTypeUserReport   = protocol.EnvelopeItemTypeUserReport
	EnvelopeItemTypeSession      = protocol.EnvelopeItemTypeSession
	EnvelopeItemTypeClientReport = protocol.EnvelopeItemTypeClientReport
)

// Envelope validation errors, matched with errors.Is.
var (
	ErrTooManyPrimaryItems = protocol.ErrTooManyPrimaryItems
	ErrMissingEventID      = protocol.ErrMissingEventID
	ErrEnvelopeTooLarge    = protocol.ErrEnvelopeTooLarge
	ErrAttachmentsTooLarge = protocol.ErrAttachmentsTooLarge
	ErrAttachmentTooLarge  = protocol.ErrAttachmentTooLarge
	ErrPayloadTooLarge     = protocol.ErrPayloadTooLarge
	ErrSizeMismatch        = protocol.ErrSizeMismatch
)

// DefaultLimits returns the limits documented by the ingestion API.
func DefaultLimits() Limits {
	return protocol.DefaultLimits()
}

// NewEnvelope creates an empty envelope with the given header.
func NewEnvelope(header *EnvelopeHeader) *Envelope {
	return protocol.NewEnvelope(header)
}

// NewEnvelopeItem creates an envelope item, enforcing the size ceilings of its type.
func NewEnvelopeItem(itemType EnvelopeItemType, payload []byte, limits Limits) (*EnvelopeItem, error) {
	return protocol.NewEnvelopeItem(itemType, payload, limits)
}
