package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLocale(t *testing.T) {
	tests := []struct {
		name            string
		explicit        string
		tenantDefault   string
		tenantSupported []string
		expected        string
	}{
		{"explicit supported", "en", "ko", nil, "en"},
		{"explicit unsupported falls to tenant default", "fr", "en", nil, "en"},
		{"explicit unsupported and no tenant default", "fr", "", nil, "ko"},
		{"tenant default only", "", "es", nil, "es"},
		{"tenant default unsupported by platform", "", "ja", nil, "ko"},
		{"tenant default outside tenant set", "", "es", []string{"ko", "en"}, "ko"},
		{"tenant default within tenant set", "", "en", []string{"ko", "en"}, "en"},
		{"empty everything", "", "", nil, "ko"},
		{"explicit wins over narrowed tenant set", "es", "ko", []string{"ko"}, "es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolveLocale(tt.explicit, tt.tenantDefault, tt.tenantSupported)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsSupportedLocale(t *testing.T) {
	assert.True(t, IsSupportedLocale("ko"))
	assert.True(t, IsSupportedLocale("en"))
	assert.True(t, IsSupportedLocale("es"))
	assert.False(t, IsSupportedLocale("fr"))
	assert.False(t, IsSupportedLocale(""))
	assert.False(t, IsSupportedLocale("KO"))
}

func TestLocaleDefaultsCoverSupportedSet(t *testing.T) {
	for _, l := range SupportedLocales {
		assert.Contains(t, LocaleCurrencies, l)
		assert.Contains(t, LocaleTimezones, l)
	}
}
