package tenant

// Platform-wide locale support. Organizations and events may narrow this
// set but never extend it.
var SupportedLocales = []string{"ko", "en", "es"}

// DefaultLocale is the platform default locale
const DefaultLocale = "ko"

// LocaleCurrencies maps each locale to its default currency
var LocaleCurrencies = map[string]string{
	"ko": "KRW",
	"en": "USD",
	"es": "EUR",
}

// LocaleTimezones maps each locale to its default timezone
var LocaleTimezones = map[string]string{
	"ko": "Asia/Seoul",
	"en": "America/New_York",
	"es": "Europe/Madrid",
}

// IsSupportedLocale reports whether the locale is in the platform set
func IsSupportedLocale(locale string) bool {
	for _, l := range SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// ResolveLocale determines the active locale for a request. Resolution
// order, first match wins:
//
//  1. the explicit locale, when it is platform-supported
//  2. the tenant default, when it is platform-supported and within the
//     tenant's own supported set
//  3. the platform default
//
// The function is total: an unrecognized explicit locale is silently
// discarded so locale never blocks rendering.
func ResolveLocale(explicit, tenantDefault string, tenantSupported []string) string {
	if explicit != "" && IsSupportedLocale(explicit) {
		return explicit
	}

	if tenantDefault != "" && IsSupportedLocale(tenantDefault) {
		if len(tenantSupported) == 0 {
			return tenantDefault
		}
		for _, l := range tenantSupported {
			if l == tenantDefault {
				return tenantDefault
			}
		}
	}

	return DefaultLocale
}
