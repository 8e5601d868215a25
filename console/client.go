package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/internal/api"
)

var (
	// ErrInvalidPhone is returned when a moderator phone lacks the
	// international prefix or is too short.
	ErrInvalidPhone = errors.New("phone must start with + and have at least 10 characters")
	// ErrInvalidStatus is returned for a facility status other than
	// APPROVED or REJECTED.
	ErrInvalidStatus = errors.New("facility status must be APPROVED or REJECTED")
	// ErrInvalidKind is returned for an unknown users listing.
	ErrInvalidKind = errors.New("unknown user kind")
	// ErrMissingID is returned when an action has no target id.
	ErrMissingID = errors.New("id required")
)

const (
	// DefaultPageSize is the users listing page size of the dashboards.
	DefaultPageSize = 10
	// DefaultPreviewLimit bounds the dashboard preview lists.
	DefaultPreviewLimit = 5

	minPhoneLength = 10
)

const (
	pathUsers             = "/admin/users"
	pathApproveProvider   = "/moderator-providers/%s/approve"
	pathCreateModerator   = "/moderator/create"
	pathFacilityCards     = "/dashboard-facility/cards"
	pathPendingFacilities = "/dashboard-dashboard/need-approval-facilities"
	pathFeedbacks         = "/dashboard-dashboard/feedbacks"
	pathGuestFacilities   = "/guest-facility"
	pathFacilityStatus    = "/moderator-facility/%s/status"
)

// Auth is the part of the engine the client needs. *staffauth.Engine
// satisfies it.
type Auth interface {
	Current(ctx context.Context) (*staffauth.Session, error)
	Require(ctx context.Context, perm string) error
	Backend(ctx context.Context) *api.Client
}

// Client calls the console endpoints as the slot's signed-in user.
type Client struct {
	auth Auth
}

// New returns a client over auth.
func New(auth Auth) *Client {
	return &Client{auth: auth}
}

// call checks perm, then sends req with the session token.
func (c *Client) call(ctx context.Context, perm string, req api.Request, out any) error {
	if c == nil || c.auth == nil {
		return staffauth.ErrEngineNotReady
	}
	sess, err := c.auth.Current(ctx)
	if err != nil {
		return err
	}
	if err := c.auth.Require(ctx, perm); err != nil {
		return err
	}
	req.Token = sess.Token
	req.RequestID = staffauth.RequestIDFromContext(ctx)
	return c.auth.Backend(ctx).Do(ctx, req, out)
}

// Users lists one page of users of kind. page starts at 1.
func (c *Client) Users(ctx context.Context, kind UserKind, page, limit int) (*Page[User], error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	var body struct {
		Data       []User `json:"data"`
		TotalPages int    `json:"totalPages"`
		TotalData  int    `json:"totalData"`
	}
	err := c.call(ctx, staffauth.PermUsersView, api.Request{
		Method: http.MethodGet,
		Path:   pathUsers,
		Query: url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(limit)},
			"type":  {string(kind)},
		},
		Raw: true,
	}, &body)
	if err != nil {
		return nil, err
	}

	out := &Page[User]{
		Items:      body.Data,
		Page:       page,
		TotalPages: body.TotalPages,
		TotalCount: body.TotalData,
	}
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	return out, nil
}

// ApproveProvider activates a pending provider account.
func (c *Client) ApproveProvider(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	return c.call(ctx, staffauth.PermProvidersApprove, api.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf(pathApproveProvider, url.PathEscape(id)),
	}, nil)
}

// CreateModerator registers a moderator. The phone is checked before any
// request is made.
func (c *Client) CreateModerator(ctx context.Context, m NewModerator) error {
	m.Phone = strings.TrimSpace(m.Phone)
	if !strings.HasPrefix(m.Phone, "+") || len(m.Phone) < minPhoneLength {
		return ErrInvalidPhone
	}
	if m.RoleID == 0 {
		m.RoleID = 1
	}
	return c.call(ctx, staffauth.PermModeratorsCreate, api.Request{
		Method: http.MethodPost,
		Path:   pathCreateModerator,
		Body:   m,
	}, nil)
}

// FacilityCards returns the approved and pending facility counters.
func (c *Client) FacilityCards(ctx context.Context) (FacilityCards, error) {
	var cards FacilityCards
	err := c.call(ctx, staffauth.PermFacilitiesView, api.Request{
		Method: http.MethodGet,
		Path:   pathFacilityCards,
	}, &cards)
	return cards, err
}

// PendingFacilities returns up to limit facilities awaiting approval.
func (c *Client) PendingFacilities(ctx context.Context, limit int) ([]Facility, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	var list struct {
		Data []Facility `json:"data"`
	}
	err := c.call(ctx, staffauth.PermFacilitiesView, api.Request{
		Method: http.MethodGet,
		Path:   pathPendingFacilities,
		Query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}, &list)
	if err != nil {
		return nil, err
	}
	return filterStatus(list.Data, StatusPending), nil
}

// ApprovedFacilities returns the published facilities.
func (c *Client) ApprovedFacilities(ctx context.Context) ([]Facility, error) {
	var list []Facility
	err := c.call(ctx, staffauth.PermFacilitiesView, api.Request{
		Method: http.MethodGet,
		Path:   pathGuestFacilities,
	}, &list)
	if err != nil {
		return nil, err
	}
	return filterStatus(list, StatusApproved), nil
}

// Feedbacks returns up to limit recent reviews.
func (c *Client) Feedbacks(ctx context.Context, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	var list struct {
		Data []Feedback `json:"data"`
	}
	err := c.call(ctx, staffauth.PermStatisticsView, api.Request{
		Method: http.MethodGet,
		Path:   pathFeedbacks,
		Query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}, &list)
	return list.Data, err
}

// UpdateFacilityStatus approves or rejects a facility.
func (c *Client) UpdateFacilityStatus(ctx context.Context, id, status string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != StatusApproved && status != StatusRejected {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return c.call(ctx, staffauth.PermFacilitiesApprove, api.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf(pathFacilityStatus, url.PathEscape(id)),
		Body:   map[string]string{"status": status},
	}, nil)
}

func filterStatus(in []Facility, status string) []Facility {
	out := in[:0]
	for _, f := range in {
		if strings.EqualFold(f.Status, status) {
			out = append(out, f)
		}
	}
	return out
}
