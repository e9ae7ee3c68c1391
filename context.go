package siteguard

import "context"

type clientIPContextKey struct{}
type routeContextKey struct{}

type routeInfo struct {
	method string
	path   string
}

// WithClientIP attaches the caller's IP address to ctx. The Engine records it on
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRoute attaches the request method and path to ctx for audit events.
func WithRoute(ctx context.Context, method, path string) context.Context {
	return context.WithValue(ctx, routeContextKey{}, routeInfo{method: method, path: path})
}

// ClientIPFromContext returns the IP set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func routeFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}

	ri, _ := ctx.Value(routeContextKey{}).(routeInfo)
	return ri.method, ri.path
}
