package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/0xpr03/nitter-status/pkg/common"
	"github.com/0xpr03/nitter-status/pkg/store"
)

// defaultGraphWindow bounds an unranged graph query to the trailing year, so
// a forgotten from/to pair on a long-lived host doesn't pull its entire
// history into one response.
const defaultGraphWindow = 365 * 24 * time.Hour

func (s *Server) resolveHost(w http.ResponseWriter, r *http.Request) (store.Host, bool) {
	ctx := r.Context()
	domain, err := common.StrPathArg(r, common.ParamDomain)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return store.Host{}, false
	}

	host, err := s.store.GetHostByDomain(ctx, domain)
	if err == sql.ErrNoRows {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return store.Host{}, false
	}
	if err != nil {
		s.metrics.ObserveApiError("graph", r.Method, http.StatusInternalServerError)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return store.Host{}, false
	}

	return host, true
}

// timeRange reads optional from/to unix-seconds query parameters, defaulting
// to [now-defaultGraphWindow, now].
func timeRange(r *http.Request) (int64, int64) {
	now := time.Now()
	from := now.Add(-defaultGraphWindow).Unix()
	to := now.Unix()

	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			from = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			to = parsed
		}
	}

	return from, to
}

// healthGraphHandler serves the dygraph-ready CSV projection of a host's
// health_check history, grounded on the original admin stats view's
// "Date,Healthy Rsp Time,Dead Rsp Time" format: the column matching the
// check's outcome carries its response time (or -1 when none was recorded)
// and the other column is 0, so the client can plot both series without gaps.
func (s *Server) healthGraphHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host, ok := s.resolveHost(w, r)
	if !ok {
		return
	}
	from, to := timeRange(r)

	rows, err := s.store.HealthSeries(ctx, host.ID, from, to)
	if err != nil {
		s.metrics.ObserveApiError("graph_health", r.Method, http.StatusInternalServerError)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("Date,Healthy Rsp Time,Dead Rsp Time\n")
	for _, row := range rows {
		healthyRsp, deadRsp := int64(-1), int64(-1)
		switch {
		case row.HasRespTime && row.Healthy:
			healthyRsp, deadRsp = row.RespTime, 0
		case row.HasRespTime && !row.Healthy:
			healthyRsp, deadRsp = 0, row.RespTime
		case row.Healthy:
			healthyRsp, deadRsp = -1, 0
		default:
			healthyRsp, deadRsp = 0, -1
		}
		fmt.Fprintf(&b, "%s,%d,%d\n", csvTime(row.Time), healthyRsp, deadRsp)
	}

	common.WriteHeaders(w, csvHeaders)
	if _, err := w.Write([]byte(b.String())); err != nil {
		slogWriteFailed(ctx, err)
	}
}

// statsGraphHandler serves the dygraph-ready CSV projection of a host's
// instance_stats history, grounded on the original "Date,Tokens AVG,Limited
// Tokens AVG,Requests AVG" admin export format.
func (s *Server) statsGraphHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host, ok := s.resolveHost(w, r)
	if !ok {
		return
	}
	from, to := timeRange(r)

	rows, err := s.store.StatsSeries(ctx, host.ID, from, to)
	if err != nil {
		s.metrics.ObserveApiError("graph_stats", r.Method, http.StatusInternalServerError)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("Date,Tokens AVG,Limited Tokens AVG,Requests AVG\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%s,%d,%d,%d\n", csvTime(row.Time), row.TotalAccs, row.LimitedAccs, row.TotalRequests)
	}

	common.WriteHeaders(w, csvHeaders)
	if _, err := w.Write([]byte(b.String())); err != nil {
		slogWriteFailed(ctx, err)
	}
}
