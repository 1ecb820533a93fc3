package middleware

import (
	"net/http"

	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"go.uber.org/zap"
)

func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.Stack("stack"),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
					response.Error(w, http.StatusInternalServerError,
						"INTERNAL_ERROR", "An unexpected error occurred", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
