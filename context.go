package staffauth

import "context"

type slotContextKey struct{}
type localeContextKey struct{}
type mobileContextKey struct{}
type requestIDContextKey struct{}

// WithSlot selects the session slot that Login, Logout and Current act on.
// The web front uses one slot per browser cookie; without a slot the
// configured default is used.
func WithSlot(ctx context.Context, slot string) context.Context {
	return context.WithValue(ctx, slotContextKey{}, slot)
}

// WithLocale sets the route locale ("en", "ar") for returned redirects.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// WithMobile marks the request as coming from the mobile layout. Redirects
// then stay under /{locale}/mobile and the mobile backend URL is used.
func WithMobile(ctx context.Context, mobile bool) context.Context {
	return context.WithValue(ctx, mobileContextKey{}, mobile)
}

// WithRequestID propagates a request id to backend calls and audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func slotFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	slot, _ := ctx.Value(slotContextKey{}).(string)
	return slot
}

func localeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	locale, _ := ctx.Value(localeContextKey{}).(string)
	return locale
}

func mobileFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	mobile, _ := ctx.Value(mobileContextKey{}).(bool)
	return mobile
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// SlotFromContext returns the slot set by WithSlot, or "".
func SlotFromContext(ctx context.Context) string {
	return slotFromContext(ctx)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return requestIDFromContext(ctx)
}
