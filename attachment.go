package sentry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const defaultAttachmentContentType = "application/octet-stream"

// ErrFileReadFailed is returned when the file backing an attachment cannot be read.
var ErrFileReadFailed = errors.New("sentry: attachment file cannot be read")

// attachmentPayload is the source of the bytes of an Attachment.
type attachmentPayload interface {
	load() ([]byte, error)
}

type bytesPayload []byte

func (p bytesPayload) load() ([]byte, error) {
	return p, nil
}

type filePayload string

func (p filePayload) load() ([]byte, error) {
	b, err := os.ReadFile(string(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileReadFailed, err)
	}
	return b, nil
}

// Attachment is a file sent along with an event in an envelope.
//
// https://develop.sentry.dev/sdk/envelopes/#attachment
type Attachment struct {
	Filename    string
	ContentType string

	payload attachmentPayload

	once sync.Once
	data []byte
	err  error
}

// NewAttachment returns an attachment holding data in memory.
func NewAttachment(filename string, data []byte, contentType string) *Attachment {
	return &Attachment{
		Filename:    filename,
		ContentType: contentTypeOrDefault(contentType),
		payload:     bytesPayload(data),
	}
}

// NewFileAttachment returns an attachment whose content is read from path
// the first time it is resolved. An empty filename defaults to the base name
// of path.
func NewFileAttachment(path, filename, contentType string) *Attachment {
	if filename == "" {
		filename = filepath.Base(path)
	}
	return &Attachment{
		Filename:    filename,
		ContentType: contentTypeOrDefault(contentType),
		payload:     filePayload(path),
	}
}

// Resolve returns the content of the attachment. The content is loaded once;
// later calls return the same bytes or error. Read failures wrap
// ErrFileReadFailed.
func (a *Attachment) Resolve() ([]byte, error) {
	a.once.Do(func() {
		if a.payload == nil {
			return
		}
		a.data, a.err = a.payload.load()
	})
	return a.data, a.err
}

// Payload resolves the attachment and returns an empty payload when its
// content exceeds maxSize bytes. A maxSize of zero or less disables the limit.
func (a *Attachment) Payload(maxSize int) ([]byte, error) {
	data, err := a.Resolve()
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && len(data) > maxSize {
		return []byte{}, nil
	}
	return data, nil
}

func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return defaultAttachmentContentType
	}
	return contentType
}
