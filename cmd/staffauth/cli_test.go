package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/authentication/MODERATOR/login":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"token":"tok","user":{"id":3,"name":"Mona","email":"mona@example.com"}}}`))
		case "/authentication/first-login/request":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"sent"}`))
		case "/authentication/first-login/set-password":
			if body["otp"] != "4821" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Invalid OTP"}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := "api:\n  base_url: " + baseURL + "\nsession:\n  file: " + filepath.Join(dir, "session.json") + "\nlog:\n  level: error\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cli{stdin: strings.NewReader(stdin), stdout: &stdout, stderr: &stderr}
	code := c.run(context.Background(), append([]string{"-env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestLoginWhoamiLogout(t *testing.T) {
	cfg := writeConfig(t, newBackend(t).URL)

	res := runCLI(t, "secret\n", "-config", cfg, "login", "-email", "mona@example.com")
	if res.code != exitOK {
		t.Fatalf("login failed: %d %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "signed in as Mona (MODERATOR)") || !strings.Contains(res.stdout, "/en/moderator/dashboard") {
		t.Fatalf("unexpected login output: %q", res.stdout)
	}

	res = runCLI(t, "", "-config", cfg, "whoami")
	if res.code != exitOK || !strings.Contains(res.stdout, "role: MODERATOR") {
		t.Fatalf("unexpected whoami: %d %q %q", res.code, res.stdout, res.stderr)
	}

	res = runCLI(t, "", "-config", cfg, "perms")
	if res.code != exitOK || strings.Contains(res.stdout, "moderators.create") || !strings.Contains(res.stdout, "users.view") {
		t.Fatalf("unexpected perms: %q", res.stdout)
	}

	res = runCLI(t, "", "-config", cfg, "logout")
	if res.code != exitOK {
		t.Fatalf("logout failed: %s", res.stderr)
	}
	res = runCLI(t, "", "-config", cfg, "whoami")
	if res.code != exitError || !strings.Contains(res.stderr, "no session") {
		t.Fatalf("expected no session after logout, got %d %q", res.code, res.stderr)
	}
}

func TestLoginRejected(t *testing.T) {
	cfg := writeConfig(t, newBackend(t).URL)

	res := runCLI(t, "wrong\n", "-config", cfg, "login", "-email", "mona@example.com")
	if res.code != exitError || !strings.Contains(res.stderr, "invalid credentials") {
		t.Fatalf("expected invalid credentials, got %d %q", res.code, res.stderr)
	}
}

func TestActivateAndSetPassword(t *testing.T) {
	cfg := writeConfig(t, newBackend(t).URL)

	res := runCLI(t, "", "-config", cfg, "-locale", "ar", "activate", "-email", "new@example.com")
	if res.code != exitOK || !strings.Contains(res.stdout, "/ar/auth/verify-otp?email=new%40example.com") {
		t.Fatalf("unexpected activate output: %d %q %q", res.code, res.stdout, res.stderr)
	}

	res = runCLI(t, "Secret1!\nSecret2!\n", "-config", cfg, "set-password", "-email", "new@example.com", "-otp", "4821")
	if res.code != exitError || !strings.Contains(res.stderr, "passwords do not match") {
		t.Fatalf("expected mismatch, got %d %q", res.code, res.stderr)
	}

	res = runCLI(t, "Secret1!\nSecret1!\n", "-config", cfg, "set-password", "-email", "new@example.com", "-otp", "1111")
	if res.code != exitError || !strings.Contains(res.stderr, "Invalid OTP") {
		t.Fatalf("expected server message, got %d %q", res.code, res.stderr)
	}

	res = runCLI(t, "Secret1!\nSecret1!\n", "-config", cfg, "set-password", "-email", "new@example.com", "-otp", "4821")
	if res.code != exitOK || !strings.Contains(res.stdout, "sign in at /en/auth/login") {
		t.Fatalf("unexpected set-password output: %d %q %q", res.code, res.stdout, res.stderr)
	}
}

func TestUsage(t *testing.T) {
	if res := runCLI(t, ""); res.code != exitUsage || !strings.Contains(res.stderr, "commands:") {
		t.Fatalf("expected usage, got %d %q", res.code, res.stderr)
	}
	if res := runCLI(t, "", "bogus"); res.code != exitUsage {
		t.Fatalf("expected usage exit for unknown command, got %d", res.code)
	}
}
