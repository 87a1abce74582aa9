// Package api serves the public, read-only snapshot of the tracked fleet:
// a JSON instances listing and two CSV history projections, unauthenticated
// and CORS-open, composed the same way the teacher wires its public routes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/config"
	"github.com/0xpr03/nitter-status/pkg/monitoring"
	"github.com/0xpr03/nitter-status/pkg/ranking"
	"github.com/0xpr03/nitter-status/pkg/store"
	"github.com/justinas/alice"
	"github.com/rs/cors"
)

const (
	instancesEndpoint = "/api/v1/instances"
	healthEndpoint    = "/api/v1/graph/health/{" + common.ParamDomain + "}"
	statsEndpoint     = "/api/v1/graph/stats/{" + common.ParamDomain + "}"

	// defaultInstanceMaxAge is the Cache-Control fallback if the health-check
	// interval config value is missing or malformed.
	defaultInstanceMaxAge = 5 * time.Minute
)

// Server holds every dependency the read API needs: the store for on-demand
// history, the ranking builder for the published snapshot, and metrics/CORS.
type Server struct {
	store   *store.Store
	ranking *ranking.Builder
	metrics *monitoring.Service
	cfg     common.ConfigStore
	cors    *cors.Cors
}

func NewServer(s *store.Store, rb *ranking.Builder, metrics *monitoring.Service, cfg common.ConfigStore) *Server {
	return &Server{
		store:   s,
		ranking: rb,
		metrics: metrics,
		cfg:     cfg,
		cors: cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}),
	}
}

// Setup registers every C9 route onto router, wrapped in the standard public
// chain: panic recovery, trace-id injection, CORS, then per-route metrics.
func (s *Server) Setup(router *http.ServeMux) {
	publicChain := alice.New(common.Recovered, monitoring.Traced, s.cors.Handler, s.metrics.Handler)

	router.Handle(http.MethodGet+" "+instancesEndpoint, publicChain.ThenFunc(s.instancesHandler))
	router.Handle(http.MethodGet+" "+healthEndpoint, publicChain.ThenFunc(s.healthGraphHandler))
	router.Handle(http.MethodGet+" "+statsEndpoint, publicChain.ThenFunc(s.statsGraphHandler))
}

// instancesHandler serves the current ranking snapshot, grounded on the
// original instances handler: take the snapshot under the ranking builder's
// read lock, serialize, and stamp a cache-control header derived from the
// health-check interval.
func (s *Server) instancesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.ranking.Current()

	maxAge := int(config.AsSeconds(ctx, s.cfg.Get(common.InstanceCheckIntervalKey), defaultInstanceMaxAge).Seconds())

	common.SendJSONResponse(ctx, w, newInstancesResponse(snap), instanceCacheHeaders(maxAge))
}

func slogWriteFailed(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "failed to write CSV response", common.ErrAttr(err))
}
