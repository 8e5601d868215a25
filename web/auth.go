package web

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/i18n"
	"github.com/skvrent/staffauth/middleware"
)

const (
	stepOTP      = "otp"
	stepPassword = "password"
	stepDone     = "done"
)

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "login", s.newPage(c, i18n.KeyLoginTitle))
}

func (s *Server) login(c *gin.Context) {
	email := c.PostForm("email")
	res, err := s.engine.Login(c.Request.Context(), email, c.PostForm("password"))
	if err == nil {
		c.Redirect(http.StatusSeeOther, res.RedirectTo)
		return
	}

	p := s.newPage(c, i18n.KeyLoginTitle)
	p.Email = email
	p.Error = s.errorMessage(p, err, i18n.KeyInvalidCredentials)
	s.render(c, statusOf(err), "login", p)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.engine.Logout(c.Request.Context()); err != nil {
		s.logger.WarnContext(c.Request.Context(), "logout failed", "error", err)
	}
	c.Redirect(http.StatusSeeOther, staffauth.LoginPath(middleware.Locale(c), middleware.Mobile(c)))
}

func (s *Server) firstLoginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "first_login", s.newPage(c, i18n.KeyFirstLoginTitle))
}

func (s *Server) firstLogin(c *gin.Context) {
	email := c.PostForm("email")
	next, err := s.engine.RequestActivation(c.Request.Context(), email)
	if err == nil {
		c.Redirect(http.StatusSeeOther, next)
		return
	}

	p := s.newPage(c, i18n.KeyFirstLoginTitle)
	p.Email = email
	p.Error = s.errorMessage(p, err, i18n.KeyFailed)
	s.render(c, statusOf(err), "first_login", p)
}

func (s *Server) verifyOTPPage(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.Redirect(http.StatusSeeOther, staffauth.FirstLoginPath(middleware.Locale(c), middleware.Mobile(c)))
		return
	}
	p := s.newPage(c, i18n.KeyVerifyTitle)
	p.Email = email
	p.Step = stepOTP
	p.Notice = p.T(i18n.KeyActivationSent, email)
	s.render(c, http.StatusOK, "verify_otp", p)
}

// verifyOTP handles both steps of the form. The password step carries the
// accepted code in a hidden field.
func (s *Server) verifyOTP(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.PostForm("email")
	if email == "" {
		email = c.Query("email")
	}
	p := s.newPage(c, i18n.KeyVerifyTitle)
	p.Email = email

	if c.PostForm("step") == stepPassword {
		p.Title = p.T(i18n.KeySetPasswordTitle)
		p.Step = stepPassword
		p.OTP = c.PostForm("otp")

		act, err := s.engine.ResumeActivation(ctx, email, p.OTP)
		if err == nil {
			err = act.SubmitPassword(ctx, c.PostForm("password"), c.PostForm("confirm"))
		}
		if err != nil {
			p.Error = s.errorMessage(p, err, i18n.KeyFailed)
			s.render(c, statusOf(err), "verify_otp", p)
			return
		}
		p.Step = stepDone
		p.Notice = p.T(i18n.KeySuccess)
		p.RedirectTo = act.RedirectTo()
		p.RefreshSeconds = refreshSeconds(time.Until(act.RedirectAt()))
		s.render(c, http.StatusOK, "verify_otp", p)
		return
	}

	p.Step = stepOTP
	act, err := s.engine.StartActivation(ctx, email)
	if err == nil {
		if code := c.PostForm("otp"); code != "" {
			act.PasteCode(code)
		} else {
			for i := 0; i < staffauth.OTPLength; i++ {
				act.EnterDigit(i, c.PostForm("otp"+strconv.Itoa(i)))
			}
		}
		in := act.Input()
		for i := range p.OTPCells {
			p.OTPCells[i] = in.Cell(i)
		}
		err = act.SubmitOTP(ctx)
	}
	if err != nil {
		p.Error = s.errorMessage(p, err, i18n.KeyInvalidOTP)
		s.render(c, statusOf(err), "verify_otp", p)
		return
	}

	p.Title = p.T(i18n.KeySetPasswordTitle)
	p.Step = stepPassword
	p.OTP = act.OTP()
	s.render(c, http.StatusOK, "verify_otp", p)
}

// errorMessage prefers the backend's own message, then a catalogue entry
// for the local error, then fallbackKey.
func (s *Server) errorMessage(p *page, err error, fallbackKey string) string {
	switch {
	case errors.Is(err, staffauth.ErrRequestInFlight):
		return p.T(i18n.KeyRequestInFlight)
	case errors.Is(err, staffauth.ErrLoginThrottled):
		return p.T(i18n.KeyLoginThrottled)
	case errors.Is(err, staffauth.ErrPasswordMismatch):
		return p.T(i18n.KeyPasswordsMismatch)
	case errors.Is(err, staffauth.ErrOTPMalformed):
		return p.T(i18n.KeyInvalidOTP)
	case errors.Is(err, staffauth.ErrInvalidCredentials):
		return p.T(i18n.KeyInvalidCredentials)
	case errors.Is(err, staffauth.ErrPermissionDenied):
		return p.T(i18n.KeyForbidden)
	}
	return staffauth.UserMessage(err, p.T(fallbackKey))
}

func statusOf(err error) int {
	var apiErr *staffauth.APIError
	switch {
	case errors.Is(err, staffauth.ErrRequestInFlight):
		return http.StatusConflict
	case errors.Is(err, staffauth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, staffauth.ErrLoginThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, staffauth.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, staffauth.ErrTransport), errors.Is(err, staffauth.ErrSessionStoreUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &apiErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func refreshSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
