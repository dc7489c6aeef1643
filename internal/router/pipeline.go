package router

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/eventreg/eventreg-server/internal/auth"
	"github.com/eventreg/eventreg-server/internal/config"
	"github.com/eventreg/eventreg-server/internal/tenant"
	"github.com/eventreg/eventreg-server/pkg/crypto"
)

// Context headers attached for downstream handlers. They are a
// same-process hint only; the signature lets handlers reject values
// injected by an external caller, and authoritative tenant state is
// always re-read from the directory.
const (
	HeaderCustomDomain   = "x-custom-domain"
	HeaderOrgID          = "x-org-id"
	HeaderEventID        = "x-event-id"
	HeaderCustomBranding = "x-custom-branding"
	HeaderSignature      = "x-tenant-signature"
)

// Termination ends the pipeline with a response instead of dispatching
type Termination struct {
	Status   int
	Redirect string
	Message  string
}

// Result is the outcome of one pipeline stage: continue (zero value) or
// terminate with a response.
type Result struct {
	Terminate *Termination
}

func continueStage() Result {
	return Result{}
}

func terminate(t Termination) Result {
	return Result{Terminate: &t}
}

// state carries per-request data between stages. It doubles as the
// request-scoped cache: a tenant resolved once is not looked up again
// within the same request, and nothing survives the request.
type state struct {
	host    string
	path    string
	tenant  *tenant.Ref
	locale  string
	claims  *auth.Claims
	rewrote bool
}

// Pipeline resolves tenant, rewrites the path, resolves locale and
// authorizes the request before it reaches a handler. Stages run in a
// fixed order; any stage may terminate the request.
type Pipeline struct {
	directory *tenant.Directory
	jwt       *auth.JWTManager
	platform  *config.PlatformConfig
	secret    []byte
}

// NewPipeline creates the request pipeline
func NewPipeline(directory *tenant.Directory, jwt *auth.JWTManager, cfg *config.Config) *Pipeline {
	return &Pipeline{
		directory: directory,
		jwt:       jwt,
		platform:  &cfg.Platform,
		secret:    []byte(cfg.JWT.Secret),
	}
}

// Middleware wires the pipeline into an http handler chain
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API and asset requests bypass tenant routing entirely
		if bypassPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		st := &state{
			host: tenant.NormalizeHost(r.Host),
			path: r.URL.Path,
		}

		stages := []func(*http.Request, *state) Result{
			p.resolveDomain,
			p.rewritePath,
			p.resolveLocale,
			p.authorize,
		}

		for _, stage := range stages {
			if res := stage(r, st); res.Terminate != nil {
				p.respond(w, r, res.Terminate)
				return
			}
		}

		p.dispatch(w, r, st, next)
	})
}

// bypassPath reports whether the path skips the pipeline: API routes,
// internal endpoints, and anything with a file extension.
func bypassPath(path string) bool {
	if strings.HasPrefix(path, "/api/") {
		return true
	}
	if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/assets/") {
		return true
	}
	// favicon.ico and friends
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".")
}

// resolveDomain attempts custom-domain tenant resolution from the host
// header. Storage failures terminate with 500: an error is never read as
// "no tenant" and never as permission.
func (p *Pipeline) resolveDomain(r *http.Request, st *state) Result {
	ref, err := p.directory.ResolveByHost(r.Context(), st.host)
	if err != nil {
		log.Error().Err(err).Str("host", st.host).Msg("Tenant resolution failed")
		return terminate(Termination{Status: http.StatusInternalServerError, Message: "internal error"})
	}

	if ref == nil && !p.directory.IsPlatformHost(st.host) {
		// Unknown or unverified custom domain
		return terminate(Termination{Status: http.StatusNotFound, Message: "not found"})
	}

	st.tenant = ref
	return continueStage()
}

// rewritePath maps a custom-domain request onto the canonical path-based
// route space, and strips a leading locale segment into the explicit
// locale slot for the next stage.
func (p *Pipeline) rewritePath(r *http.Request, st *state) Result {
	path := st.path

	// A leading platform locale segment is consumed here; the locale
	// stage treats it as the explicit choice.
	if seg, rest := splitFirstSegment(path); tenant.IsSupportedLocale(seg) {
		if q := r.URL.Query().Get("locale"); q == "" {
			st.locale = seg
		}
		path = rest
	}

	if st.tenant != nil && st.tenant.CustomDomain != nil {
		prefix := tenant.CanonicalPathFor(st.tenant)
		if !strings.HasPrefix(path, prefix+"/") && path != prefix {
			if path == "/" {
				path = prefix
			} else {
				path = prefix + path
			}
		}
		st.rewrote = true
	}

	st.path = path
	return continueStage()
}

// resolveLocale picks the active locale: explicit query/path choice,
// then the tenant default, then the platform default. This stage never
// terminates.
func (p *Pipeline) resolveLocale(r *http.Request, st *state) Result {
	explicit := r.URL.Query().Get("locale")
	if explicit == "" {
		explicit = st.locale
	}

	var tenantDefault string
	var tenantSupported []string
	if st.tenant != nil {
		if st.tenant.Event != nil {
			tenantDefault = st.tenant.Event.DefaultLocale
			tenantSupported = st.tenant.Event.SupportedLocales
		} else {
			tenantDefault = st.tenant.Org.DefaultLocale
		}
	}

	st.locale = tenant.ResolveLocale(explicit, tenantDefault, tenantSupported)
	return continueStage()
}

// authorize gates protected paths. Anonymous users are redirected to
// sign-in; authenticated-but-forbidden users land on the unauthorized
// page. The two outcomes are never conflated.
func (p *Pipeline) authorize(r *http.Request, st *state) Result {
	st.claims = p.extractClaims(r)

	// The dashboard only needs a signed-in user; roles are applied by
	// the org- and platform-admin areas below.
	if st.path == "/dashboard" || strings.HasPrefix(st.path, "/dashboard/") {
		if st.claims == nil {
			return terminate(Termination{
				Status:   http.StatusFound,
				Redirect: p.platform.SignInPath + "?next=" + st.path,
			})
		}
		return continueStage()
	}

	target, action, protected, err := p.targetForPath(r, st)
	if err != nil {
		log.Error().Err(err).Str("path", st.path).Msg("Target resolution failed")
		return terminate(Termination{Status: http.StatusInternalServerError, Message: "internal error"})
	}

	if !protected {
		return continueStage()
	}

	if st.claims == nil {
		return terminate(Termination{
			Status:   http.StatusFound,
			Redirect: p.platform.SignInPath + "?next=" + st.path,
		})
	}

	decision := auth.Authorize(st.claims.Principal(), action, target)
	if !decision.Allowed {
		log.Debug().
			Str("path", st.path).
			Str("user_id", st.claims.UserID.String()).
			Str("reason", decision.Reason).
			Msg("Request denied")
		return terminate(Termination{
			Status:   http.StatusFound,
			Redirect: p.platform.ForbiddenPath,
		})
	}

	return continueStage()
}

// targetForPath infers the authorization target from the rewritten path.
// The organization id comes from the tenant directory, not from anything
// the client sent.
func (p *Pipeline) targetForPath(r *http.Request, st *state) (auth.Target, auth.Action, bool, error) {
	path := st.path

	// Platform admin area
	if path == "/admin" || strings.HasPrefix(path, "/admin/") {
		return auth.PlatformTarget(), auth.ActionManagePlatform, true, nil
	}

	// Organization admin area: /{orgSlug}/admin/... An event-scoped
	// custom domain rewrites /admin to /{orgSlug}/{eventSlug}/admin, so
	// the event-level admin path is gated against the same organization.
	seg, rest := splitFirstSegment(path)
	if seg == "" {
		return auth.Target{}, "", false, nil
	}
	if sub, subRest := splitFirstSegment(rest); sub != "admin" {
		if sub2, _ := splitFirstSegment(subRest); sub2 != "admin" {
			return auth.Target{}, "", false, nil
		}
	}

	// The authorization target must come from an authoritative
	// resolution of the slug, evaluated against the organization the
	// request is actually scoped to.
	ref := st.tenant
	if ref == nil || ref.Org.Slug != seg {
		var err error
		ref, err = p.directory.ResolveByPath(r.Context(), seg, "")
		if err != nil {
			return auth.Target{}, "", true, err
		}
	}
	if ref == nil {
		// Unknown org admin path: let dispatch 404 it
		return auth.Target{}, "", false, nil
	}

	return auth.OrgTarget(ref.Org.ID), auth.ActionViewOrganization, true, nil
}

// extractClaims parses the principal from the Authorization header or the
// session cookie. Invalid tokens yield an anonymous request.
func (p *Pipeline) extractClaims(r *http.Request) *auth.Claims {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie("access_token"); err == nil {
		token = c.Value
	}

	if token == "" {
		return nil
	}

	claims, err := p.jwt.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// dispatch forwards the request with the rewritten path, request-scoped
// context and signed advisory headers.
func (p *Pipeline) dispatch(w http.ResponseWriter, r *http.Request, st *state, next http.Handler) {
	r2 := r.Clone(r.Context())
	r2.URL.Path = st.path

	ctx := withLocale(r2.Context(), st.locale)
	if st.claims != nil {
		ctx = withClaims(ctx, st.claims)
	}
	if st.tenant != nil {
		ctx = withTenant(ctx, st.tenant)
	}
	r2 = r2.WithContext(ctx)

	if st.tenant != nil && st.tenant.CustomDomain != nil {
		cd := st.tenant.CustomDomain
		r2.Header.Set(HeaderCustomDomain, cd.Domain)
		r2.Header.Set(HeaderOrgID, cd.OrgID.String())
		if cd.EventID != nil {
			r2.Header.Set(HeaderEventID, cd.EventID.String())
		}
		if cd.CustomBranding != nil {
			if branding, err := json.Marshal(cd.CustomBranding); err == nil {
				r2.Header.Set(HeaderCustomBranding, string(branding))
			}
		}
		r2.Header.Set(HeaderSignature, p.SignContext(cd.Domain, cd.OrgID.String()))
	}

	next.ServeHTTP(w, r2)
}

// SignContext signs the advisory tenant headers
func (p *Pipeline) SignContext(domain, orgID string) string {
	return crypto.SignMessage(p.secret, domain+"|"+orgID)
}

// VerifyContext verifies a tenant-header signature
func (p *Pipeline) VerifyContext(domain, orgID, signature string) bool {
	return crypto.VerifySignature(p.secret, domain+"|"+orgID, signature)
}

// respond writes a termination
func (p *Pipeline) respond(w http.ResponseWriter, r *http.Request, t *Termination) {
	if t.Redirect != "" {
		http.Redirect(w, r, t.Redirect, t.Status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(t.Status)
	json.NewEncoder(w).Encode(map[string]string{"error": t.Message})
}

// splitFirstSegment returns the first path segment and the remainder
// (with leading slash)
func splitFirstSegment(path string) (string, string) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", "/"
	}
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i], "/" + path[i+1:]
	}
	return path, "/"
}
