package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPlantsList(t *testing.T) {
	cfg := writeConfig(t, `{"plants": {"file": "../../storage/plants.json"}}`)
	out, err := run(t, "plants", "list", "--config", cfg, "--env-file", "")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "Fern")
	assert.Contains(t, lines[1], "Nephrolepis exaltata")
}

func TestTokenCommand(t *testing.T) {
	cfg := writeConfig(t, `{"server": {"jwt_secret": "s3cret"}}`)
	out, err := run(t, "token", "--subject", "alice", "--ttl", "1h", "--config", cfg, "--env-file", "")
	require.NoError(t, err)

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	_, err = run(t, "token", "--config", writeConfig(t, `{}`), "--env-file", "")
	assert.Error(t, err)
}

func TestReplayRequiresTrace(t *testing.T) {
	_, err := run(t, "replay", "--config", writeConfig(t, `{}`), "--env-file", "")
	assert.ErrorContains(t, err, "trace capture is disabled")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := run(t, "plants", "list", "--config", writeConfig(t, `{"planner": {"invocation_error_policy": "retry"}}`), "--env-file", "")
	assert.Error(t, err)
}

func TestEnvFileOverridesConfig(t *testing.T) {
	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("CARIE_SERVER_JWT_SECRET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CARIE_SERVER_JWT_SECRET") })

	out, err := run(t, "token", "--config", writeConfig(t, `{}`), "--env-file", env)
	require.NoError(t, err)
	_, err = jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (interface{}, error) { return []byte("from-dotenv"), nil })
	assert.NoError(t, err)
}

func finished(value string) react.Result {
	state := react.StateFromEntries([]react.Entry{
		{Name: "task", Value: "t"},
		{Name: "Thought_1", Value: "done"},
		{Name: "Action_1", Value: "Finish[" + value + "]"},
	})
	return react.Result{RunID: "r1", Status: react.StatusFinished, Value: value, State: state}
}

func TestWriteOutcomes(t *testing.T) {
	outcomes := []batch.Outcome{
		{Index: 0, Task: react.Task{"task": "a"}, Result: finished("Fern is fine"), Duration: time.Second},
		{Index: 1, Task: react.Task{"task": "b"}, Err: errors.New("model unavailable")},
	}
	var buf bytes.Buffer
	require.NoError(t, writeOutcomes(&buf, outcomes))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "finished")
	assert.Contains(t, lines[1], "Fern is fine")
	assert.Contains(t, lines[2], "error")
	assert.Contains(t, lines[2], "model unavailable")

	buf.Reset()
	require.NoError(t, writeOutcomesJSON(&buf, outcomes))
	assert.Contains(t, buf.String(), `"duration_ms": 1000`)
	assert.Contains(t, buf.String(), `"error": "model unavailable"`)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, finished("Fern is fine"), true)
	assert.Equal(t, "task: t\nThought_1: done\nAction_1: Finish[Fern is fine]\n\nFern is fine\n", buf.String())

	buf.Reset()
	exhausted := finished("")
	exhausted.Status = react.StatusExhausted
	printResult(&buf, exhausted, false)
	assert.Equal(t, "no answer after 1 hops (run r1)\n", buf.String())
}
