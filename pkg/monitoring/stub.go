package monitoring

import (
	"net/http"

	"github.com/0xpr03/nitter-status/pkg/common"
)

type stubMetrics struct{}

func NewStub() *stubMetrics {
	return &stubMetrics{}
}

var _ common.PlatformMetrics = (*stubMetrics)(nil)
var _ common.APIMetrics = (*stubMetrics)(nil)

func (sm *stubMetrics) Handler(h http.Handler) http.Handler {
	return h
}

func (sm *stubMetrics) ObserveHealth(sqliteUp bool)        {}
func (sm *stubMetrics) ObserveCacheHitRatio(ratio float64) {}
