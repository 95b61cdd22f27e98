package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_API_URL", "TELEGRAM_PARSE_MODE", "MAILPROBE_WORKERS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	clearEnv(t)

	code, _, stderr := runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")

	code, _, _ = runCLI(t, "-email", "a@b.test", "emails.txt")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "-h")
	assert.Equal(t, 0, code)
}

func TestRun_JSONSingleAddress(t *testing.T) {
	clearEnv(t)
	cfg := writeFile(t, "mailprobe.yaml", "verifier: {}\n")

	code, stdout, _ := runCLI(t, "-config", cfg, "-json", "-email", "not-an-email")
	require.Equal(t, 0, code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "not-an-email", results[0]["email"])
	assert.Equal(t, "invalid_format", results[0]["verdict"])
}

func TestRun_FileListing(t *testing.T) {
	clearEnv(t)
	cfg := writeFile(t, "mailprobe.yaml", "verifier: {}\n")
	list := writeFile(t, "emails.txt", "first\n\nsecond\n")

	code, stdout, _ := runCLI(t, "-config", cfg, "-workers", "2", list)
	require.Equal(t, 0, code)

	assert.Contains(t, stdout, "EMAIL VERIFICATION")
	assert.Contains(t, stdout, "[1] Email: first\n  Status: invalid email format\n  Details: invalid email format\n")
	assert.Contains(t, stdout, "[2] Email: second\n")
	assert.NotContains(t, stdout, "[3]")
}

func TestRun_InputErrors(t *testing.T) {
	clearEnv(t)
	cfg := writeFile(t, "mailprobe.yaml", "verifier: {}\n")

	code, _, stderr := runCLI(t, "-config", cfg, filepath.Join(t.TempDir(), "absent.txt"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "absent.txt")

	code, _, stderr = runCLI(t, "-config", cfg, writeFile(t, "empty.txt", "\n \n"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "address list is empty")
}

func TestRun_ConfigError(t *testing.T) {
	clearEnv(t)

	code, _, _ := runCLI(t, "-config", filepath.Join(t.TempDir(), "absent.yaml"), "-email", "x")
	assert.Equal(t, 1, code)
}

func TestRun_NotifyWithoutCredentials(t *testing.T) {
	clearEnv(t)
	cfg := writeFile(t, "mailprobe.yaml", "verifier: {}\n")

	code, stdout, stderr := runCLI(t, "-config", cfg, "-notify", "-email", "x")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout, "nothing verified")
	assert.Contains(t, stderr, "TELEGRAM_BOT_TOKEN")
}

func TestRun_Notify(t *testing.T) {
	clearEnv(t)

	var got struct {
		path string
		body map[string]any
	}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer api.Close()

	cfg := writeFile(t, "mailprobe.yaml", `
telegram:
  token: "42:secret"
  chat_id: "-100"
  api_url: `+api.URL+`
`)
	list := writeFile(t, "emails.txt", "one\ntwo\n")

	code, _, stderr := runCLI(t, "-config", cfg, "-notify", list)
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, "/bot42:secret/sendMessage", got.path)
	assert.Equal(t, "-100", got.body["chat_id"])
	assert.NotContains(t, got.body, "parse_mode")
	assert.Contains(t, got.body["text"], "Email verification: 2 address(es)")
	assert.Contains(t, got.body["text"], "2. two: invalid email format")
}

func TestRun_NotifyFailure(t *testing.T) {
	clearEnv(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer api.Close()

	cfg := writeFile(t, "mailprobe.yaml", `
telegram:
  token: t
  chat_id: "1"
  api_url: `+api.URL+`
`)

	code, _, stderr := runCLI(t, "-config", cfg, "-notify", "-email", "bad")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "bot was blocked")
}

func TestRun_NotifyParseMode(t *testing.T) {
	clearEnv(t)

	var body map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer api.Close()

	cfg := writeFile(t, "mailprobe.yaml", `
telegram:
  token: t
  chat_id: "1"
  parse_mode: HTML
  api_url: `+api.URL+`
`)

	code, _, stderr := runCLI(t, "-config", cfg, "-notify", "-email", "bad")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "HTML", body["parse_mode"])
}

func TestRun_InterruptedRunSkipsNotify(t *testing.T) {
	clearEnv(t)

	called := false
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer api.Close()

	cfg := writeFile(t, "mailprobe.yaml", `
telegram:
  token: t
  chat_id: "1"
  api_url: `+api.URL+`
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-config", cfg, "-notify", "-email", "user@example.test"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "interrupted after 0 of 1")
	assert.NotContains(t, stdout.String(), "[1] Email:")
	assert.False(t, called)
}
