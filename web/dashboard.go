package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/console"
	"github.com/skvrent/staffauth/i18n"
	"github.com/skvrent/staffauth/middleware"
)

// section is one dashboard listing with its panel state.
type section struct {
	Panel   console.Panel
	Message string
}

func (s section) Ready() bool { return s.Panel == console.PanelReady }

type pageLink struct {
	Label   string
	Href    string
	Gap     bool
	Current bool
}

type dashboardView struct {
	UserName string
	Role     string
	Base     string

	Cards        console.FacilityCards
	CardsSection section

	Pending        []facilityRow
	PendingSection section

	Feedbacks        []console.Feedback
	FeedbacksSection section

	Kind         console.UserKind
	Users        []console.User
	UsersSection section
	Pages        []pageLink

	CanApprove         bool
	CanCreateModerator bool
}

type facilityRow struct {
	ID       string
	Name     string
	Provider string
}

func (s *Server) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	sess, _ := middleware.SessionFromContext(c)
	locale, mobile := middleware.Locale(c), middleware.Mobile(c)

	titleKey := i18n.KeyModeratorDashboard
	if sess.Role == staffauth.RoleAdmin {
		titleKey = i18n.KeyAdminDashboard
	}
	p := s.newPage(c, titleKey)
	p.Notice = c.Query("notice")
	p.Error = c.Query("error")

	view := &dashboardView{
		UserName: sess.User.Name,
		Role:     sess.Role.String(),
		Base:     "/" + locale + mobilePrefix(mobile) + "/" + sess.Role.Segment(),
	}
	if view.UserName == "" {
		view.UserName = sess.User.Email
	}
	view.CanApprove, _ = s.engine.RoleCan(sess.Role, staffauth.PermProvidersApprove)
	view.CanCreateModerator, _ = s.engine.RoleCan(sess.Role, staffauth.PermModeratorsCreate)

	cards, err := s.console.FacilityCards(ctx)
	view.Cards = cards
	view.CardsSection = s.section(p, err, cards.Total())

	pending, err := s.console.PendingFacilities(ctx, console.DefaultPreviewLimit)
	for _, f := range pending {
		row := facilityRow{ID: string(f.ID), Name: f.Name.In(locale)}
		if f.Provider != nil {
			row.Provider = f.Provider.Name
		}
		view.Pending = append(view.Pending, row)
	}
	view.PendingSection = s.section(p, err, len(pending))

	feedbacks, err := s.console.Feedbacks(ctx, console.DefaultPreviewLimit)
	view.Feedbacks = feedbacks
	view.FeedbacksSection = s.section(p, err, len(feedbacks))

	view.Kind = console.UserKind(c.DefaultQuery("kind", string(console.KindProvider)))
	if !view.Kind.Valid() {
		view.Kind = console.KindProvider
	}
	current, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	users, err := s.console.Users(ctx, view.Kind, current, console.DefaultPageSize)
	count := 0
	if users != nil {
		view.Users = users.Items
		count = len(users.Items)
		for _, link := range console.PaginationRange(users.Page, users.TotalPages) {
			pl := pageLink{Label: link.String(), Gap: link.Gap, Current: link.Number == users.Page}
			if !link.Gap {
				q := url.Values{"kind": {string(view.Kind)}, "page": {strconv.Itoa(link.Number)}}
				pl.Href = c.Request.URL.Path + "?" + q.Encode()
			}
			view.Pages = append(view.Pages, pl)
		}
	}
	view.UsersSection = s.section(p, err, count)

	p.Dashboard = view
	s.render(c, http.StatusOK, "dashboard", p)
}

func (s *Server) section(p *page, err error, count int) section {
	panel := console.Describe(err, count)
	if panel == console.PanelError {
		s.logger.Warn("dashboard section failed", "error", err)
	}
	sec := section{Panel: panel}
	if key := panel.MessageKey(); key != "" {
		sec.Message = p.T(key)
	}
	return sec
}

func (s *Server) approveProvider(c *gin.Context) {
	err := s.console.ApproveProvider(c.Request.Context(), c.Param("id"))
	s.afterAction(c, err)
}

func (s *Server) updateFacilityStatus(c *gin.Context) {
	err := s.console.UpdateFacilityStatus(c.Request.Context(), c.Param("id"), c.PostForm("status"))
	s.afterAction(c, err)
}

func (s *Server) createModerator(c *gin.Context) {
	err := s.console.CreateModerator(c.Request.Context(), console.NewModerator{
		Name:  c.PostForm("name"),
		Email: c.PostForm("email"),
		Phone: c.PostForm("phone"),
	})
	s.afterAction(c, err)
}

// afterAction sends the browser back to its dashboard with the outcome in
// the query string.
func (s *Server) afterAction(c *gin.Context, err error) {
	sess, ok := middleware.SessionFromContext(c)
	locale, mobile := middleware.Locale(c), middleware.Mobile(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, staffauth.LoginPath(locale, mobile))
		return
	}
	p := i18n.NewPrinter(locale)
	q := url.Values{}
	if err != nil {
		q.Set("error", staffauth.UserMessage(err, p.T(i18n.KeyFailed)))
	} else {
		q.Set("notice", p.T(i18n.KeySaved))
	}
	c.Redirect(http.StatusSeeOther, staffauth.DashboardPath(locale, mobile, sess.Role)+"?"+q.Encode())
}

func mobilePrefix(mobile bool) string {
	if mobile {
		return "/mobile"
	}
	return ""
}
