package sentry

import (
	"path/filepath"
	"runtime"
	"strings"

	goErrors "github.com/go-errors/errors"
	pingcapErrors "github.com/pingcap/errors"
	pkgErrors "github.com/pkg/errors"
)

const unknown string = "unknown"

// sdkModule is the import path prefix of frames that belong to this SDK.
const sdkModule = "github.com/crashdesk/sentry-go"

// The maximum number of frames recorded by NewStacktrace.
const maxStackDepth = 100

// https://develop.sentry.dev/sdk/event-payloads/stacktrace/
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// https://develop.sentry.dev/sdk/event-payloads/stacktrace/#frame-attributes
type Frame struct {
	Function        string `json:"function,omitempty"`
	RawFunction     string `json:"raw_function,omitempty"`
	Module          string `json:"module,omitempty"`
	Filename        string `json:"filename,omitempty"`
	AbsPath         string `json:"abs_path,omitempty"`
	Lineno          int    `json:"lineno,omitempty"`
	Colno           int    `json:"colno,omitempty"`
	InstructionAddr string `json:"instruction_addr,omitempty"`
	InApp           bool   `json:"in_app,omitempty"`
}

// NewStacktrace creates a stacktrace using runtime.Callers. Frames of this
// SDK and of the Go runtime are left out. It returns nil when no frame
// remains.
func NewStacktrace() *Stacktrace {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(1, pcs)
	if n == 0 {
		return nil
	}
	return stacktraceFromPCs(pcs[:n])
}

// ExtractStacktrace creates a new Stacktrace based on the given error. It
// understands the stack traces recorded by github.com/pkg/errors,
// github.com/pingcap/errors and github.com/go-errors/errors, and returns nil
// for any other error.
func ExtractStacktrace(err error) *Stacktrace {
	pcs := extractPcs(err)
	if len(pcs) == 0 {
		return nil
	}
	return stacktraceFromPCs(pcs)
}

func extractPcs(err error) []uintptr {
	var pcs []uintptr
	switch e := err.(type) {
	case interface{ StackTrace() pkgErrors.StackTrace }:
		for _, f := range e.StackTrace() {
			pcs = append(pcs, uintptr(f))
		}
	case interface {
		StackTrace() pingcapErrors.StackTrace
	}:
		for _, f := range e.StackTrace() {
			pcs = append(pcs, uintptr(f))
		}
	case interface{ StackFrames() []goErrors.StackFrame }:
		for _, f := range e.StackFrames() {
			pcs = append(pcs, f.ProgramCounter)
		}
	}
	return pcs
}

func stacktraceFromPCs(pcs []uintptr) *Stacktrace {
	frames := filterFrames(extractFrames(pcs))
	if len(frames) == 0 {
		return nil
	}
	return &Stacktrace{Frames: frames}
}

// NewFrame assembles a stacktrace frame out of runtime.Frame.
func NewFrame(f runtime.Frame) Frame {
	function := f.Function
	if function == "" {
		function = unknown
	}

	frame := Frame{
		AbsPath:  f.File,
		Filename: filepath.Base(f.File),
		Lineno:   f.Line,
	}
	if f.File == "" {
		frame.AbsPath = unknown
		frame.Filename = unknown
	}

	frame.Module, frame.Function = splitQualifiedFunctionName(function)
	frame.InApp = isInAppFrame(frame)

	return frame
}

// extractFrames returns the frames of pcs ordered oldest to youngest.
func extractFrames(pcs []uintptr) []Frame {
	var frames = make([]Frame, 0, len(pcs))
	callersFrames := runtime.CallersFrames(pcs)

	for {
		callerFrame, more := callersFrames.Next()
		frames = append(frames, NewFrame(callerFrame))
		if !more {
			break
		}
	}

	// runtime.CallersFrames yields the youngest frame first.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}

	return frames
}

// filterFrames drops frames that are of no interest to the reader of an event.
func filterFrames(frames []Frame) []Frame {
	filtered := make([]Frame, 0, len(frames))
	for _, frame := range frames {
		switch {
		// Skip Go internal frames.
		case frame.Module == "runtime" || frame.Module == "testing":
			continue
		// Skip frames of the SDK, but keep its tests and examples.
		case isSDKModule(frame.Module):
			continue
		}
		filtered = append(filtered, frame)
	}
	return filtered
}

func isSDKModule(module string) bool {
	if module != sdkModule && !strings.HasPrefix(module, sdkModule+"/") {
		return false
	}
	return !strings.HasSuffix(module, "_test") && !strings.Contains(module, "/example")
}

func isInAppFrame(frame Frame) bool {
	if strings.HasPrefix(frame.AbsPath, runtime.GOROOT()) ||
		strings.Contains(frame.Module, "vendor") ||
		strings.Contains(frame.Module, "third_party") {
		return false
	}

	return true
}

// splitQualifiedFunctionName splits a package path-qualified function name into
// package name and function name. Such qualified names are found in
// runtime.Frame.Function values.
func splitQualifiedFunctionName(name string) (pkg string, fun string) {
	pkg = packageName(name)
	if len(pkg) > 0 {
		fun = name[len(pkg)+1:]
	} else {
		fun = name
	}
	return
}

func packageName(name string) string {
	// A prefix of "type." and "go." is a compiler-generated symbol that doesn't belong to any package.
	// See variable reservedimports in cmd/compile/internal/gc/subr.go
	if strings.HasPrefix(name, "go.") || strings.HasPrefix(name, "type.") {
		return ""
	}

	pathend := strings.LastIndex(name, "/")
	if pathend < 0 {
		pathend = 0
	}

	if i := strings.Index(name[pathend:], "."); i != -1 {
		return name[:pathend+i]
	}
	return ""
}
