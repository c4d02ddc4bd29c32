package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand shadows a binary with a shell script so a self-test can be
// driven without the real daemon behind it.
func stubCommand(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
}

func stubPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

func TestRedisSelfTestRequiresPong(t *testing.T) {
	dir := stubPath(t)
	ctx := context.Background()

	stubCommand(t, dir, "redis-cli", "echo PONG")
	passed, summary := testRedis(ctx)
	assert.True(t, passed, summary)

	// redis-cli exits zero even when it only printed an error
	stubCommand(t, dir, "redis-cli", "echo 'ERR unknown command'")
	passed, summary = testRedis(ctx)
	assert.False(t, passed)
	assert.Contains(t, summary, "PONG")
}

func TestFirewallSelfTestRequiresActiveStatus(t *testing.T) {
	dir := stubPath(t)
	ctx := context.Background()

	stubCommand(t, dir, "ufw", "echo 'Status: active'")
	passed, summary := testFirewall(ctx)
	assert.True(t, passed, summary)

	// clean exit with the firewall disabled still fails
	stubCommand(t, dir, "ufw", "echo 'Status: inactive'")
	passed, summary = testFirewall(ctx)
	assert.False(t, passed)
	assert.Contains(t, summary, "not active")

	stubCommand(t, dir, "ufw", "exit 1")
	passed, _ = testFirewall(ctx)
	assert.False(t, passed)
}

func TestBackupRepoSelfTest(t *testing.T) {
	ctx := context.Background()
	repo := t.TempDir()

	passed, _ := testBackupRepo(repo)(ctx)
	assert.True(t, passed)

	passed, summary := testBackupRepo(filepath.Join(repo, "missing"))(ctx)
	assert.False(t, passed)
	assert.Contains(t, summary, "unreachable")
}
