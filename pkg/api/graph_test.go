package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeRangeDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/graph/health/example.com", nil)

	before := time.Now()
	from, to := timeRange(r)
	after := time.Now()

	if to < before.Unix() || to > after.Unix() {
		t.Errorf("to = %d, want within [%d, %d]", to, before.Unix(), after.Unix())
	}
	if got, want := to-from, int64(defaultGraphWindow/time.Second); got != want {
		t.Errorf("to-from = %d, want %d", got, want)
	}
}

func TestTimeRangeExplicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/graph/health/example.com?from=100&to=200", nil)

	from, to := timeRange(r)
	if from != 100 || to != 200 {
		t.Errorf("timeRange = (%d, %d), want (100, 200)", from, to)
	}
}

func TestTimeRangeIgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/graph/health/example.com?from=notanumber&to=200", nil)

	from, to := timeRange(r)
	if to != 200 {
		t.Errorf("to = %d, want 200", to)
	}
	wantFrom := time.Now().Add(-defaultGraphWindow).Unix()
	if from < wantFrom-5 || from > wantFrom+5 {
		t.Errorf("from = %d, want close to default %d", from, wantFrom)
	}
}
