package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/skvrent/staffauth/session"
)

// Authentication endpoints.
const (
	PathFirstLoginRequest     = "/authentication/first-login/request"
	PathFirstLoginVerifyOTP   = "/authentication/first-login/verify-otp"
	PathFirstLoginSetPassword = "/authentication/first-login/set-password"
)

// LoginPath returns the login endpoint for a wire role name.
func LoginPath(role string) string {
	return "/authentication/" + role + "/login"
}

// AuthPayload is the {user, token} body returned by login.
type AuthPayload struct {
	User     session.User
	UserType string
	Token    string
}

type authData struct {
	User  map[string]any `json:"user"`
	Token string         `json:"token"`
}

// Login posts credentials to the role's login endpoint.
func (c *Client) Login(ctx context.Context, role, email, password, requestID string) (*AuthPayload, error) {
	var data authData
	err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      LoginPath(role),
		RequestID: requestID,
		Body:      map[string]string{"email": email, "password": password},
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.payload(), nil
}

// RequestFirstLogin asks the backend to send a one-time code to email.
func (c *Client) RequestFirstLogin(ctx context.Context, email, requestID string) error {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathFirstLoginRequest,
		RequestID: requestID,
		Body:      map[string]string{"email": email},
	}, nil)
}

// VerifyFirstLoginOTP checks the code without setting a password.
func (c *Client) VerifyFirstLoginOTP(ctx context.Context, email, otp, requestID string) error {
	return c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathFirstLoginVerifyOTP,
		RequestID: requestID,
		Body:      map[string]string{"email": email, "otp": otp},
	}, nil)
}

// SetFirstLoginPassword completes activation. The returned payload is nil
// unless the backend answered with {user, token}.
func (c *Client) SetFirstLoginPassword(ctx context.Context, email, otp, password, requestID string) (*AuthPayload, error) {
	var data authData
	err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathFirstLoginSetPassword,
		RequestID: requestID,
		Body:      map[string]string{"email": email, "otp": otp, "password": password},
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Token == "" || data.User == nil {
		return nil, nil
	}
	return data.payload(), nil
}

func (d authData) payload() *AuthPayload {
	user, userType := DecodeUser(d.User)
	return &AuthPayload{User: user, UserType: userType, Token: d.Token}
}

// DecodeUser maps a backend user object onto session.User. Fields without
// a dedicated slot are kept in Profile; the raw "type" is returned
// separately and never trusted as a role.
func DecodeUser(raw map[string]any) (session.User, string) {
	var (
		user     session.User
		userType string
	)
	for k, v := range raw {
		s, ok := scalar(v)
		switch k {
		case "id", "_id":
			if ok && user.ID == "" {
				user.ID = s
			}
		case "name":
			user.Name = s
		case "email":
			user.Email = s
		case "phone":
			user.Phone = s
		case "image":
			user.Image = s
		case "type":
			userType = s
		case "password":
		default:
			if v == nil {
				continue
			}
			if !ok {
				b, err := json.Marshal(v)
				if err != nil {
					continue
				}
				s = string(b)
			}
			if user.Profile == nil {
				user.Profile = make(map[string]string)
			}
			user.Profile[k] = s
		}
	}
	return user, userType
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}
