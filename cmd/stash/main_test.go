package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/stash/internal/config"
	"github.com/sakif/stash/internal/notify"
	"github.com/sakif/stash/internal/server"
	"github.com/sakif/stash/internal/repository/memory"
	"github.com/sakif/stash/pkg/logging"
)

// run executes one CLI invocation and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, closeApp := newRootCmd()
	defer closeApp()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestLocalWorkflow(t *testing.T) {
	t.Chdir(t.TempDir())
	db := "--db=" + filepath.Join(t.TempDir(), "stash.db")

	out := mustRun(t, db, "seed")
	assert.Contains(t, out, "Created")

	out = mustRun(t, db, "items", "list", "-q", "toaster")
	assert.Contains(t, out, "All items")
	assert.Contains(t, out, "Toaster")

	out = mustRun(t, db, "addresses", "add", "Boat", "--city", "Kiel")
	assert.Contains(t, out, "Created Boat")
	boatID := strings.TrimSuffix(strings.Fields(out)[2], ")")
	boatID = strings.TrimPrefix(boatID, "(")

	out = mustRun(t, db, "items", "add", "Life jacket", "--address", boatID, "--price", "49.90", "--tags", "safety, water")
	assert.Contains(t, out, "Created Life jacket")

	out = mustRun(t, db, "items", "list", "--address", boatID, "--view", "grid")
	assert.Contains(t, out, "Boat")
	assert.Contains(t, out, "Life jacket")
	assert.Contains(t, out, "€49.90")

	// the view mode persisted as a preference
	out = mustRun(t, db, "items", "list", "--address", boatID)
	assert.Contains(t, out, "+-----")

	out = mustRun(t, db, "items", "rm", "--visible", "--address", boatID)
	assert.Contains(t, out, "Deleted 1 items")

	_, err := run(t, db, "items", "list", "--address", boatID, "--unlocated")
	assert.Error(t, err)

	_, err = run(t, db, "items", "add", " ")
	assert.Error(t, err)
	assert.Contains(t, describeError(err), "name")
}

func TestRemoteNeedsFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "--ephemeral", "login", "ann@example.com", "--password", "x")
	assert.ErrorContains(t, err, "--remote")

	out := mustRun(t, "--ephemeral", "whoami")
	assert.Contains(t, out, "guest")
}

func TestRemoteSession(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Auth:    config.AuthConfig{JWTSecret: "cli-test-secret-0123456789", TokenTTL: time.Hour, AllowGuest: true},
	}
	s, err := server.NewWithBackend(cfg, memory.New(), notify.Discard{}, logging.Discard())
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	remote := []string{"--remote", "--server", srv.URL + "/api", "--session-file", filepath.Join(t.TempDir(), "session")}
	with := func(args ...string) []string { return append(append([]string{}, remote...), args...) }

	out := mustRun(t, with("signup", "ann@example.com", "--password", "password1")...)
	assert.Contains(t, out, "Signed in as ann@example.com")

	out = mustRun(t, with("whoami")...)
	assert.Contains(t, out, "ann@example.com")

	mustRun(t, with("items", "add", "Bike")...)
	out = mustRun(t, with("items", "list")...)
	assert.Contains(t, out, "Bike")

	out = mustRun(t, with("logout")...)
	assert.Contains(t, out, "Signed out")

	out = mustRun(t, with("whoami")...)
	assert.Contains(t, out, "not signed in")

	out = mustRun(t, with("items", "list")...)
	assert.NotContains(t, out, "Bike", "guest does not see the account's items")
}
