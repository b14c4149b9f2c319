package middleware

import (
	"net/http"

	"distromart-be/internal/auth"
	"distromart-be/internal/logger"
	"distromart-be/internal/utils"

	"go.uber.org/zap"
)

// Authenticate resolves the access token into an auth.Actor on the request
// context. Requests without a token pass through anonymously and the core
// operations reject them; a token that fails verification is a 401.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := auth.ParseToken(tokenStr, secret)
			if err != nil {
				logger.FromCtx(r.Context()).Info("rejected access token", zap.Error(err))
				utils.WriteJSONError(w, http.StatusUnauthorized, utils.ErrorBody{
					Code:    "invalid_token",
					Message: "invalid or expired access token",
				})
				return
			}

			ctx := auth.WithActor(r.Context(), actor)
			ctx = logger.WithFields(ctx, zap.String("actor", actor.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
