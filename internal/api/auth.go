package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// bearerPrefix is the Authorization scheme accepted by authMiddleware.
const bearerPrefix = "Bearer "

// authMiddleware requires a valid HS256 bearer token signed with the
// configured secret. With no secret configured it passes every request
// through.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	if s.secCfg.JWT.Secret == "" {
		return next
	}

	secret := []byte(s.secCfg.JWT.Secret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.secCfg.JWT.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.secCfg.JWT.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearer(r)
		if tokenStr == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			s.logger.Debug("bearer token rejected",
				"path", r.URL.Path,
				"request_id", requestIDFrom(r.Context()),
				"error", err,
			)
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySubject, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearer returns the token from an "Authorization: Bearer" header.
func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// subjectFrom returns the token subject set by authMiddleware, or "" when
// the request was not authenticated.
func subjectFrom(ctx context.Context) string {
	sub, _ := ctx.Value(ctxKeySubject).(string) //nolint:errcheck // absent value yields ""
	return sub
}
