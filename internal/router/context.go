package router

import (
	"context"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/tenant"
)

type contextKey string

const (
	claimsKey contextKey = "router.claims"
	tenantKey contextKey = "router.tenant"
	localeKey contextKey = "router.locale"
)

// ClaimsFrom returns the authenticated claims attached by the pipeline
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// TenantFrom returns the resolved tenant attached by the pipeline. The
// value is advisory: handlers must re-resolve through the tenant
// directory for any security-relevant decision.
func TenantFrom(ctx context.Context) (*tenant.Ref, bool) {
	ref, ok := ctx.Value(tenantKey).(*tenant.Ref)
	return ref, ok
}

// LocaleFrom returns the resolved locale, falling back to the platform
// default when the pipeline did not run
func LocaleFrom(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey).(string); ok {
		return locale
	}
	return tenant.DefaultLocale
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func withTenant(ctx context.Context, ref *tenant.Ref) context.Context {
	return context.WithValue(ctx, tenantKey, ref)
}

func withLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}
