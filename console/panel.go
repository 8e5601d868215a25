package console

import (
	"errors"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/i18n"
)

// Panel is what a dashboard listing renders.
type Panel uint8

const (
	PanelReady Panel = iota
	PanelEmpty
	PanelForbidden
	PanelError
)

func (p Panel) String() string {
	switch p {
	case PanelReady:
		return "ready"
	case PanelEmpty:
		return "empty"
	case PanelForbidden:
		return "forbidden"
	case PanelError:
		return "error"
	default:
		return "unknown"
	}
}

// MessageKey is the catalogue key of the panel's message, or "" when the
// panel shows data.
func (p Panel) MessageKey() string {
	switch p {
	case PanelEmpty:
		return i18n.KeyEmpty
	case PanelForbidden:
		return i18n.KeyForbidden
	case PanelError:
		return i18n.KeyError
	default:
		return ""
	}
}

// Describe classifies a listing result. A permission failure is never
// shown as an empty list.
func Describe(err error, count int) Panel {
	switch {
	case errors.Is(err, staffauth.ErrPermissionDenied):
		return PanelForbidden
	case err != nil:
		return PanelError
	case count == 0:
		return PanelEmpty
	default:
		return PanelReady
	}
}
