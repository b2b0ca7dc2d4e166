// Package testutils holds helpers shared by the tests of all packages.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// FlushTimeout is how long tests wait for asynchronous sends.
func FlushTimeout() time.Duration {
	if os.Getenv("CI") != "" {
		// CI is very overloaded so we need to allow for a long wait time.
		return 5 * time.Second
	}
	return time.Second
}

// AssertEqual reports the difference between got and want as a test error.
func AssertEqual(t *testing.T, got, want interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// WriteFile writes content to a file named name in a temporary directory
// removed at the end of the test, and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
