package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/airaware/airaware/internal/api/models"
	"github.com/airaware/airaware/internal/auth"
)

type subjectKey struct{}

// TokenValidator validates an admin bearer token and returns its subject.
type TokenValidator interface {
	ValidateAdminToken(token string) (string, error)
}

var (
	errNoAuthorization = errors.New("missing authorization header")
	errNotBearer       = errors.New("invalid authorization header format")
	errEmptyBearer     = errors.New("missing bearer token")
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoAuthorization
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyBearer
	}
	return token, nil
}

// rejection maps a validator error to the detail shown to the caller.
func rejection(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessTokenExpired):
		return "access token has expired"
	case errors.Is(err, auth.ErrInsufficientScope):
		return "token scope does not allow this operation"
	case errors.Is(err, auth.ErrInvalidAccessToken):
		return "invalid access token"
	default:
		return "authentication failed"
	}
}

// Auth guards the admin routes. Only tokens minted by the worker's token
// command with the admin scope pass.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeUnauthorized(w, r, err.Error())
				return
			}

			subject, err := validator.ValidateAdminToken(token)
			if err != nil {
				writeUnauthorized(w, r, rejection(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
		})
	}
}

// writeUnauthorized is local because response imports this package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	w.Header().Set("WWW-Authenticate", `Bearer realm="airaware-admin"`)
	problem.Write(w)
}

// GetSubject returns the admin token subject, or "" outside the admin routes.
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}
