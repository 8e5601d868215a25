package console

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID accepts numeric and string identifiers from the backend.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// LocalizedName is a name the backend stores per locale.
type LocalizedName struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// UnmarshalJSON also accepts a plain string, used for both locales.
func (n *LocalizedName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n.En, n.Ar = s, s
		return nil
	}
	type plain LocalizedName
	return json.Unmarshal(b, (*plain)(n))
}

// In returns the name for locale, falling back to English.
func (n LocalizedName) In(locale string) string {
	if strings.EqualFold(locale, "ar") && n.Ar != "" {
		return n.Ar
	}
	return n.En
}

// UserKind selects a users listing.
type UserKind string

const (
	KindProvider  UserKind = "PROVIDER"
	KindUser      UserKind = "USER"
	KindModerator UserKind = "MODERATOR"
)

// Valid reports whether k is a listing the backend serves.
func (k UserKind) Valid() bool {
	return k == KindProvider || k == KindUser || k == KindModerator
}

// User is one row of a users listing.
type User struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Image     string `json:"image"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// DisplayStatus is Status, or PENDING when the backend sent none.
func (u User) DisplayStatus() string {
	if u.Status == "" {
		return StatusPending
	}
	return u.Status
}

// Approvable reports whether u is a provider waiting for approval.
func (u User) Approvable() bool {
	return strings.EqualFold(u.Type, string(KindProvider)) && u.DisplayStatus() == StatusPending
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	TotalCount int
}

// Facility status values.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Ref is a nested id/name pair.
type Ref struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Facility is a rentable facility.
type Facility struct {
	ID        ID            `json:"id"`
	Name      LocalizedName `json:"name"`
	Status    string        `json:"status"`
	CreatedAt string        `json:"createdAt"`
	Provider  *Ref          `json:"provider"`
}

// FacilityCards are the dashboard facility counters.
type FacilityCards struct {
	Approved int `json:"approvedCount"`
	Pending  int `json:"pendingCount"`
}

// Total is approved plus pending.
func (c FacilityCards) Total() int {
	return c.Approved + c.Pending
}

// Feedback is a customer review of a reservation.
type Feedback struct {
	User     Ref `json:"user"`
	Facility struct {
		ID   ID            `json:"id"`
		Name LocalizedName `json:"name"`
	} `json:"facility"`
	Reservation struct {
		ID        ID     `json:"id"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"reservation"`
	Rate    float64 `json:"rate"`
	Comment string  `json:"comment"`
}

// NewModerator is the create-moderator form.
type NewModerator struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	RoleID int    `json:"roleId"`
}
