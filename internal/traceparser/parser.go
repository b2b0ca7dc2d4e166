package traceparser

import (
	"strconv"
	"strings"
)

const (
	addressPrefix = "0x"
	pathInfix     = " at /"
)

// FatalError is a single crash record: the header lines preceding a
// stacktrace block and the frames of that block.
type FatalError struct {
	// Message holds the header lines joined by "\n".
	Message string
	// Frames are ordered oldest to youngest, the reverse of the log order.
	Frames []Frame
}

// Frame is a single line of a stacktrace block. Function, AbsPath and Lineno
// are only set when the line has the form "<addr>, <function> at <path>:<line>".
type Frame struct {
	Function        string
	AbsPath         string
	Lineno          int
	InstructionAddr string
}

// Parse splits a crash log holding any number of fatal errors, each made of
// header lines followed by a block of "0x" prefixed stacktrace lines.
//
// Lines are trimmed and blank lines are skipped. A header line that follows a
// stacktrace block starts a new record. Blank input yields no records.
func Parse(text string) []FatalError {
	var (
		result          []FatalError
		stacktraceFound bool
		frames          []Frame
		header          []string
	)

	flush := func() {
		result = append(result, FatalError{
			Message: strings.Join(header, "\n"),
			Frames:  frames,
		})
	}

	for _, l := range strings.Split(text, "\n") {
		line := strings.TrimSpace(l)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, addressPrefix):
			stacktraceFound = true
			// Frames are logged youngest first.
			frames = append([]Frame{parseFrame(line)}, frames...)
		case !stacktraceFound:
			header = append(header, line)
		default:
			flush()
			stacktraceFound = false
			frames = nil
			header = []string{line}
		}
	}

	if len(frames) > 0 || len(header) > 0 {
		flush()
	}

	return result
}

// parseFrame falls back to an address-only frame holding the whole line
// when the line does not match the symbolicated pattern.
func parseFrame(line string) Frame {
	comma := strings.IndexByte(line, ',')
	at := strings.Index(line, pathInfix)
	colon := strings.LastIndexByte(line, ':')
	if comma < 0 || at < 0 || colon < 0 || comma+2 > at || colon < at+len(pathInfix) {
		return Frame{InstructionAddr: line}
	}

	lineno, _ := strconv.Atoi(line[colon+1:])
	return Frame{
		Function:        line[comma+2 : at],
		AbsPath:         line[at+len(pathInfix)-1 : colon],
		Lineno:          lineno,
		InstructionAddr: line[:comma],
	}
}
