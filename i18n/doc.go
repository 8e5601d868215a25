// Package i18n holds the console message catalogue and locale
// negotiation.
//
// Locales are "en" (default, left to right) and "ar" (right to left).
// [Match] picks the locale from the route segment first, then from the
// Accept-Language header. [Printer] formats catalogue keys through
// golang.org/x/text/message.
package i18n
