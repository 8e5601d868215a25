package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/api/", UserAgent: "staffauth-test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://example.com", "://nope"} {
		if _, err := New(Options{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestLoginSendsCredentialsAndDecodesUser(t *testing.T) {
	var gotPath, gotRequestID, gotUA string
	var body map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get(RequestIDHeader)
		gotUA = r.Header.Get("User-Agent")
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"data":{"token":"tok","user":{"id":7,"name":"Sara","email":"sara@example.com","type":"ADMIN","password":"hash","roleId":3,"permissions":["a","b"],"deletedAt":null}}}`))
	})

	payload, err := c.Login(context.Background(), "ADMIN", "sara@example.com", "pw", "req-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotPath != "/api/authentication/ADMIN/login" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotRequestID != "req-1" || gotUA != "staffauth-test" {
		t.Fatalf("unexpected headers: request id %q, ua %q", gotRequestID, gotUA)
	}
	if body["email"] != "sara@example.com" || body["password"] != "pw" {
		t.Fatalf("unexpected body: %v", body)
	}

	if payload.Token != "tok" || payload.UserType != "ADMIN" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	u := payload.User
	if u.ID != "7" || u.Name != "Sara" || u.Email != "sara@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Profile["roleId"] != "3" || u.Profile["permissions"] != `["a","b"]` {
		t.Fatalf("unexpected profile: %v", u.Profile)
	}
	if _, ok := u.Profile["password"]; ok {
		t.Fatal("password hash must not be kept")
	}
	if _, ok := u.Profile["deletedAt"]; ok {
		t.Fatal("null fields must be dropped")
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	var gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusCreated)
	})
	if err := c.RequestFirstLogin(context.Background(), "a@example.com", ""); err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(gotRequestID) != 36 {
		t.Fatalf("expected generated uuid, got %q", gotRequestID)
	}
}

func TestErrorCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"OTP expired"}`))
	})

	err := c.VerifyFirstLoginOTP(context.Background(), "a@example.com", "0000", "")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "OTP expired" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if MessageOf(err) != "OTP expired" || StatusOf(err) != http.StatusBadRequest {
		t.Fatal("helpers did not extract message/status")
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.Fatal("400 must not match ErrPermissionDenied")
	}
}

func TestErrorMessageList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":["password too short","password must contain a digit"]}`))
	})

	_, err := c.SetFirstLoginPassword(context.Background(), "a@example.com", "1111", "x", "")
	if got := MessageOf(err); got != "password too short, password must contain a digit" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestForbiddenMatchesPermissionDenied(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`not json`))
	})

	err := c.Do(context.Background(), Request{Path: "/admin/users", Token: "tok"}, &struct{}{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if MessageOf(err) != "" {
		t.Fatalf("expected empty message for non-json body, got %q", MessageOf(err))
	}
}

func TestSetPasswordWithoutSessionPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"message":"ok"}}`))
	})

	payload, err := c.SetFirstLoginPassword(context.Background(), "a@example.com", "1111", "secret", "")
	if err != nil {
		t.Fatalf("set password: %v", err)
	}
	if payload != nil {
		t.Fatalf("expected nil payload, got %+v", payload)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	srv.Close()

	if _, err := c.Login(context.Background(), "ADMIN", "a", "b", ""); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestMalformedSuccessBodyIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":`))
	})
	if _, err := c.Login(context.Background(), "ADMIN", "a", "b", ""); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestTimeoutReturnsContextError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = c.RequestFirstLogin(context.Background(), "a@example.com", "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRawDecodesWholeBody(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":[{"id":1}],"totalPages":3,"totalData":21}`))
	})

	var out struct {
		Data       []map[string]any `json:"data"`
		TotalPages int              `json:"totalPages"`
	}
	err := c.Do(context.Background(), Request{
		Path:  "/admin/users",
		Query: map[string][]string{"page": {"2"}},
		Raw:   true,
	}, &out)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotQuery != "page=2" || out.TotalPages != 3 || len(out.Data) != 1 {
		t.Fatalf("unexpected decode: query %q out %+v", gotQuery, out)
	}
}
