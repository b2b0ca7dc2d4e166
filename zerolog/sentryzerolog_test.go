package sentryzerolog

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashdesk/sentry-go"
)

// A large portion of this implementation has been taken from https://github.com/archdx/zerolog-sentry/blob/master/writer_test.go

var logEventJSON = []byte(`{"level":"error","requestId":"bee07485-2485-4f64-99e1-d10165884ca7","error":"dial timeout","time":"2020-06-25T17:19:00+03:00","caller":"/app/main.go:27","message":"test \"quoted\" message"}`)

func newTestWriter(t *testing.T) (*Writer, *sentry.MockTransport) {
	t.Helper()
	transport := &sentry.MockTransport{}
	w, err := New(Config{
		ClientOptions: sentry.ClientOptions{
			Dsn:       "https://public@example.com/1",
			Transport: transport,
		},
	})
	require.NoError(t, err)
	return w, transport
}

func lastEvent(t *testing.T, w *Writer, transport *sentry.MockTransport) map[string]interface{} {
	t.Helper()
	require.NoError(t, w.Close())
	request := transport.LastRequest()
	require.NotNil(t, request)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(request.Body, &event))
	return event
}

func TestParseLogRecord(t *testing.T) {
	record, ok := parseLogRecord(logEventJSON)
	require.True(t, ok)

	assert.Equal(t, `test "quoted" message`, record.Message)
	assert.True(t, record.Time.Equal(time.Date(2020, 6, 25, 14, 19, 0, 0, time.UTC)))
	assert.Equal(t, sentry.LogSource{File: "/app/main.go", Line: 27}, record.Source)
	assert.Equal(t, map[string]interface{}{
		"requestId": "bee07485-2485-4f64-99e1-d10165884ca7",
		"error":     "dial timeout",
	}, record.Metadata)
}

func TestParseLogRecordDefaultTime(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return ts }
	defer func() { now = time.Now }()

	record, ok := parseLogRecord([]byte(`{"message":"no time","go_version":"go1.22"}`))
	require.True(t, ok)
	assert.Equal(t, ts, record.Time)
	assert.Empty(t, record.Metadata)
}

func TestParseLogRecordInvalid(t *testing.T) {
	_, ok := parseLogRecord([]byte(`not json`))
	assert.False(t, ok)
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel(logEventJSON)
	require.Nil(t, err)
	assert.Equal(t, zerolog.ErrorLevel, level)

	level, err = parseLogLevel([]byte(`{"message":"no level"}`))
	require.Nil(t, err)
	assert.Equal(t, zerolog.Disabled, level)
}

func TestParseCaller(t *testing.T) {
	assert.Equal(t, sentry.LogSource{File: "/a/b.go", Line: 3}, parseCaller("/a/b.go:3"))
	assert.Equal(t, sentry.LogSource{File: "b.go"}, parseCaller("b.go"))
	assert.Equal(t, sentry.LogSource{File: "b.go:x"}, parseCaller("b.go:x"))
}

func TestFailedClientCreation(t *testing.T) {
	_, err := New(Config{ClientOptions: sentry.ClientOptions{Dsn: "invalid"}})
	require.NotNil(t, err)
}

func TestNewWithHandler(t *testing.T) {
	_, err := NewWithHandler(nil, Options{})
	require.NotNil(t, err)
}

func TestWrite(t *testing.T) {
	w, transport := newTestWriter(t)

	_, err := w.Write(logEventJSON)
	require.NoError(t, err)

	event := lastEvent(t, w, transport)
	assert.Equal(t, "error", event["level"])
	assert.Equal(t, "zerolog", event["logger"])
	assert.Equal(t, map[string]interface{}{"message": `test "quoted" message`}, event["message"])
	assert.Equal(t, map[string]interface{}{
		"requestId": "bee07485-2485-4f64-99e1-d10165884ca7",
		"error":     "dial timeout",
	}, event["tags"])
}

func TestWriteLevelBreadcrumbs(t *testing.T) {
	w, transport := newTestWriter(t)

	logger := zerolog.New(w)
	logger.Info().Str("category", "auth").Msg("logged in")
	logger.Error().Msg("boom")

	event := lastEvent(t, w, transport)
	breadcrumbs := event["breadcrumbs"].(map[string]interface{})["values"].([]interface{})
	require.Len(t, breadcrumbs, 1)
	assert.Equal(t, "logged in", breadcrumbs[0].(map[string]interface{})["message"])
	assert.Len(t, transport.Requests(), 1)
}

func TestWriteInvalidLevel(t *testing.T) {
	w, transport := newTestWriter(t)

	n, err := w.Write([]byte(`{"level":"loud","message":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.Empty(t, transport.Requests())
}

func TestWriterImplementsLevelWriter(t *testing.T) {
	var _ zerolog.LevelWriter = (*Writer)(nil)
	var _ io.Writer = (*Writer)(nil)
}
