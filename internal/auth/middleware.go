package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-registration/internal/logger"
	"ms-registration/internal/utils"
)

type contextKey string

const adminEmailKey contextKey = "admin_email"

// Identity is what the middleware needs from a verified token.
type Identity struct {
	Subject string
	Email   string
}

type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// AdminDirectory answers whether an e-mail belongs to the admin allow-list.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// OIDCVerifier checks ID tokens issued by the hosted identity provider.
type OIDCVerifier struct {
	verifier   *oidc.IDTokenVerifier
	emailClaim string
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID, emailClaim string) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, errors.New("OIDC issuer is not set")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	if emailClaim == "" {
		emailClaim = "email"
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          clientID,
			SkipClientIDCheck: clientID == "",
		}),
		emailClaim: emailClaim,
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, err
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	email, _ := claims[v.emailClaim].(string)
	return Identity{Subject: idToken.Subject, Email: email}, nil
}

// Middleware admits requests carrying a valid bearer token whose e-mail is on the admin
// allow-list.
func Middleware(v Verifier, admins AdminDirectory, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", err.Error()))
				return
			}

			identity, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "invalid token"))
				return
			}

			email := strings.ToLower(strings.TrimSpace(identity.Email))
			if email == "" {
				log.LogSecurity("MISSING_EMAIL", fmt.Sprintf("token for subject %s has no e-mail", identity.Subject))
				utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "token carries no e-mail"))
				return
			}

			ok, err := admins.IsAdmin(r.Context(), email)
			if err != nil {
				log.Error("AUTH", fmt.Sprintf("admin lookup for %s failed: %v", email, err))
				utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Service unavailable", "could not verify administrator"))
				return
			}
			if !ok {
				log.LogSecurity("NOT_ADMIN", fmt.Sprintf("%s tried %s %s", email, r.Method, r.URL.Path))
				utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "not an administrator"))
				return
			}

			ctx := context.WithValue(r.Context(), adminEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminEmail returns the e-mail of the authenticated administrator, if any.
func AdminEmail(ctx context.Context) string {
	if email, ok := ctx.Value(adminEmailKey).(string); ok {
		return email
	}
	return ""
}

// WithAdminEmail is used by tests and internal callers that act on behalf of an administrator.
func WithAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminEmailKey, email)
}
