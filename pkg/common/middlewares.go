package common

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"maps"

	"github.com/justinas/alice"
)

var (
	errPathArgEmpty = errors.New("path argument is empty")
	epoch           = time.Unix(0, 0).UTC().Format(http.TimeFormat)
	// taken from chi, which took it from nginx
	NoCacheHeaders = map[string][]string{
		http.CanonicalHeaderKey("Expires"):         {epoch},
		http.CanonicalHeaderKey("Cache-Control"):   {"no-cache, no-store, no-transform, must-revalidate, private, max-age=0"},
		http.CanonicalHeaderKey("Pragma"):          {"no-cache"},
		http.CanonicalHeaderKey("X-Accel-Expires"): {"0"},
	}
	SecurityHeaders = map[string][]string{
		http.CanonicalHeaderKey("X-Frame-Options"):        {"DENY"},
		http.CanonicalHeaderKey("X-Content-Type-Options"): {"nosniff"},
	}
	CorsAllowAllHeaders = map[string][]string{
		HeaderAccessControlOrigin: {"*"},
	}
	JSONContentHeaders = map[string][]string{
		HeaderContentType: {ContentTypeJSON},
	}
	RobotsNoIndexHeaders = map[string][]string{
		HeaderRobotsTag: {"noindex, nofollow"},
	}
)

func NoopMiddleware(next http.Handler) http.Handler {
	return next
}

func Recovered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				slog.ErrorContext(r.Context(), "Crash", "panic", rvr, "stack", string(debug.Stack()))

				if r.Header.Get("Connection") != "Upgrade" {
					w.WriteHeader(http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func ServiceMiddleware(svc string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), ServiceContextKey, svc))
			next.ServeHTTP(w, r)
		})
	}
}

func TimeoutHandler(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer func() {
				cancel()
				if ctx.Err() == context.DeadlineExceeded {
					w.WriteHeader(http.StatusGatewayTimeout)
				}
			}()

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(h)
	}
}

func WriteHeaders(w http.ResponseWriter, headers map[string][]string) {
	maps.Copy(w.Header(), headers)
}

func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteHeaders(w, NoCacheHeaders)
		next.ServeHTTP(w, r)
	})
}

func HttpStatus(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func StrPathArg(r *http.Request, name string) (string, error) {
	value := r.PathValue(name)

	if len(value) == 0 {
		return "", errPathArgEmpty
	}

	return value, nil
}

func CatchAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.WarnContext(ctx, "Inside catchall handler", "path", r.URL.Path, "method", r.Method, "host", r.Host)

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		slog.WarnContext(ctx, "Failed to handle the request", "path", r.URL.Path)

		return
	}
}

type RouteAndHandler struct {
	pattern string
	chain   alice.Chain
	handler http.Handler
}

// RouteGenerator's point is to passthrough the path correctly to the std.Handler() of slok/go-http-metrics
type RouteGenerator struct {
	Prefix string
	Path   string
	routes []*RouteAndHandler
}

func (rg *RouteGenerator) Route(method string, parts ...string) string {
	rg.Path = strings.Join(parts, "/")
	return method + " " + rg.Prefix + rg.Path
}

func (rg *RouteGenerator) Get(parts ...string) string {
	return rg.Route(http.MethodGet, parts...)
}

func (rg *RouteGenerator) LastPath() string {
	result := rg.Path
	rg.Path = ""
	return result
}

func (rg *RouteGenerator) Handler(pattern string) (*RouteAndHandler, bool) {
	for _, route := range rg.routes {
		if route.pattern == pattern {
			return route, true
		}
	}

	return nil, false
}

func (rg *RouteGenerator) Handle(pattern string, chain alice.Chain, handler http.Handler) {
	if route, ok := rg.Handler(pattern); ok {
		route.chain = chain
		route.handler = handler
		return
	}

	rg.routes = append(rg.routes, &RouteAndHandler{
		pattern: pattern,
		chain:   chain,
		handler: handler,
	})
}

func (rg *RouteGenerator) Register(router *http.ServeMux) {
	for _, route := range rg.routes {
		router.Handle(route.pattern, route.chain.Then(route.handler))
	}
}
