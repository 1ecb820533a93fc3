package middleware

import (
	"context"
	"net"
	"net/http"
)

type contextKey string

const keyPrefixKey contextKey = "key_prefix"

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

// GetKeyPrefix returns the authenticated API key prefix, if any.
func GetKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// clientID identifies the caller for rate limiting: the API key prefix when
// authenticated, otherwise the remote IP.
func clientID(r *http.Request) string {
	if prefix, ok := GetKeyPrefix(r); ok {
		return "key:" + prefix
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
