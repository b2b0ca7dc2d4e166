package sentry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/crashdesk/sentry-go/internal/debuglog"
	"github.com/crashdesk/sentry-go/internal/traceparser"
)

const fatalErrorType = "FatalError"

// FileSystem is the file access used to read and truncate crash logs.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type osFileSystem struct{}

func (osFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// CaptureCrashReport parses content as a crash log and sends one fatal event
// per crash record. Records are sent concurrently and a failed send does not
// stop the others. The results are in record order; the returned error joins
// the errors of all failed sends.
func (client *Client) CaptureCrashReport(ctx context.Context, content string) ([]SendResult, error) {
	records := traceparser.Parse(content)
	if len(records) == 0 {
		return nil, nil
	}

	futures := make([]*Future, len(records))
	for i, record := range records {
		event := eventFromFatalError(record)
		futures[i] = client.Go(func() (EventID, error) {
			return client.CaptureEvent(ctx, event)
		})
	}

	results := make([]SendResult, len(futures))
	var errs []error
	for i, future := range futures {
		id, err := future.Wait()
		results[i] = SendResult{EventID: id, Err: err}
		if err != nil {
			errs = append(errs, fmt.Errorf("crash record %d: %w", i, err))
		}
	}

	return results, errors.Join(errs...)
}

// UploadCrashLog reads the crash log at path, truncates it and sends its
// records with CaptureCrashReport. A missing file is not an error and yields
// no results.
func (client *Client) UploadCrashLog(ctx context.Context, path string) ([]SendResult, error) {
	content, err := client.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		debuglog.Printf("No crash log found at %s", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sentry: reading crash log: %w", err)
	}

	// The log is emptied before sending so a crash during upload does not
	// report the same records twice.
	if err := client.fs.WriteFile(path, []byte{}, 0o644); err != nil {
		return nil, fmt.Errorf("sentry: truncating crash log: %w", err)
	}

	return client.CaptureCrashReport(ctx, string(content))
}

func eventFromFatalError(record traceparser.FatalError) *Event {
	exception := Exception{
		Type:  fatalErrorType,
		Value: record.Message,
	}
	if len(record.Frames) > 0 {
		frames := make([]Frame, len(record.Frames))
		for i, f := range record.Frames {
			frames[i] = Frame{
				Function:        f.Function,
				AbsPath:         f.AbsPath,
				Lineno:          f.Lineno,
				InstructionAddr: f.InstructionAddr,
			}
		}
		exception.Stacktrace = &Stacktrace{Frames: frames}
	}

	return &Event{
		Level:     LevelFatal,
		Message:   &Message{Message: record.Message},
		Exception: []Exception{exception},
	}
}
