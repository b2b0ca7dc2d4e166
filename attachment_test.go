package sentry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewAttachment(t *testing.T) {
	a := NewAttachment("hello.txt", []byte("hello"), "")

	assertEqual(t, a.Filename, "hello.txt")
	assertEqual(t, a.ContentType, "application/octet-stream")

	data, err := a.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, string(data), "hello")
}

func TestNewFileAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.log")
	if err := os.WriteFile(path, []byte("log line"), 0o600); err != nil {
		t.Fatal(err)
	}

	a := NewFileAttachment(path, "", "text/plain")
	assertEqual(t, a.Filename, "report.log")
	assertEqual(t, a.ContentType, "text/plain")

	data, err := a.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, string(data), "log line")
}

func TestFileAttachmentIsResolvedOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.log")
	if err := os.WriteFile(path, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}

	a := NewFileAttachment(path, "once.log", "")
	first, err := a.Resolve()
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	second, err := a.Resolve()
	if err != nil {
		t.Fatal(err)
	}

	assertEqual(t, string(first), "first")
	assertEqual(t, string(second), "first")
}

func TestFileAttachmentMissing(t *testing.T) {
	a := NewFileAttachment(filepath.Join(t.TempDir(), "missing.log"), "", "")

	_, err := a.Resolve()
	if !errors.Is(err, ErrFileReadFailed) {
		t.Errorf("got %v, want ErrFileReadFailed", err)
	}

	_, err = a.Payload(10)
	if !errors.Is(err, ErrFileReadFailed) {
		t.Errorf("got %v, want ErrFileReadFailed", err)
	}
}

func TestAttachmentPayload(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		maxSize int
		want    []byte
	}{
		{"under limit", []byte("12345"), 10, []byte("12345")},
		{"at limit", []byte("12345"), 5, []byte("12345")},
		{"over limit", []byte("123456"), 5, []byte{}},
		{"no limit", []byte("123456"), 0, []byte("123456")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAttachment("a", tt.data, "").Payload(tt.maxSize)
			if err != nil {
				t.Fatal(err)
			}
			assertEqual(t, got, tt.want)
		})
	}
}
