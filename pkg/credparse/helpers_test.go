// SPDX-License-Identifier: MPL-2.0

package credparse

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	exampleSID = "S-1-5-21-1004336348-1177238915-682003330"
	corpSID    = "S-1-5-21-2222-3333-4444"
	krbtgtHash = "9d765b482771505cbe97411065964d5f"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}
