package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Arabic  = "ar"

	// Default is used when negotiation finds nothing better.
	Default = English
)

var (
	supported = []language.Tag{language.English, language.Arabic}
	matcher   = language.NewMatcher(supported)
)

// Locales lists the supported locale codes, default first.
func Locales() []string {
	return []string{English, Arabic}
}

// Supported reports whether locale is served.
func Supported(locale string) bool {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case English, Arabic:
		return true
	}
	return false
}

// Match returns the locale for a request: the route segment when it names
// a supported locale, otherwise the best Accept-Language match.
func Match(segment, acceptLanguage string) string {
	if s := strings.ToLower(strings.TrimSpace(segment)); Supported(s) {
		return s
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// Dir returns the text direction of locale for the html dir attribute.
func Dir(locale string) string {
	if strings.EqualFold(strings.TrimSpace(locale), Arabic) {
		return "rtl"
	}
	return "ltr"
}

func tagOf(locale string) language.Tag {
	if strings.EqualFold(strings.TrimSpace(locale), Arabic) {
		return language.Arabic
	}
	return language.English
}
