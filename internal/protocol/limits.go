package protocol

const (
	mebibyte = 1024 * 1024

	// DefaultMaxAttachmentSize is the soft per-attachment ceiling. Larger
	// attachments are sent with an empty payload instead of failing the event.
	DefaultMaxAttachmentSize = 20 * mebibyte
	// DefaultMaxEnvelopeCompressedSize is the ceiling of a compressed envelope body.
	DefaultMaxEnvelopeCompressedSize = 20 * mebibyte
	// DefaultMaxEnvelopeUncompressedSize is the ceiling of a serialized envelope.
	DefaultMaxEnvelopeUncompressedSize = 100 * mebibyte
	// DefaultMaxAllAttachmentsSize is the ceiling of all attachments of one envelope combined.
	DefaultMaxAllAttachmentsSize = 100 * mebibyte
	// DefaultMaxEachAttachmentSize is the hard per-attachment ceiling.
	DefaultMaxEachAttachmentSize = 100 * mebibyte
	// DefaultMaxEventSize is the ceiling of a single event or transaction payload.
	DefaultMaxEventSize = 1 * mebibyte
)

// Limits holds the size ceilings, in bytes, enforced while assembling
// envelopes. A zero field means the corresponding default applies.
type Limits struct {
	MaxAttachmentSize           int
	MaxEnvelopeCompressedSize   int
	MaxEnvelopeUncompressedSize int
	MaxAllAttachmentsSize       int
	MaxEachAttachmentSize       int
	MaxEventSize                int
}

// DefaultLimits returns the limits documented by the ingestion API.
func DefaultLimits() Limits {
	return Limits{
		MaxAttachmentSize:           DefaultMaxAttachmentSize,
		MaxEnvelopeCompressedSize:   DefaultMaxEnvelopeCompressedSize,
		MaxEnvelopeUncompressedSize: DefaultMaxEnvelopeUncompressedSize,
		MaxAllAttachmentsSize:       DefaultMaxAllAttachmentsSize,
		MaxEachAttachmentSize:       DefaultMaxEachAttachmentSize,
		MaxEventSize:                DefaultMaxEventSize,
	}
}

// WithDefaults returns a copy of l where every zero field holds its default.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxAttachmentSize == 0 {
		l.MaxAttachmentSize = d.MaxAttachmentSize
	}
	if l.MaxEnvelopeCompressedSize == 0 {
		l.MaxEnvelopeCompressedSize = d.MaxEnvelopeCompressedSize
	}
	if l.MaxEnvelopeUncompressedSize == 0 {
		l.MaxEnvelopeUncompressedSize = d.MaxEnvelopeUncompressedSize
	}
	if l.MaxAllAttachmentsSize == 0 {
		l.MaxAllAttachmentsSize = d.MaxAllAttachmentsSize
	}
	if l.MaxEachAttachmentSize == 0 {
		l.MaxEachAttachmentSize = d.MaxEachAttachmentSize
	}
	if l.MaxEventSize == 0 {
		l.MaxEventSize = d.MaxEventSize
	}
	return l
}
