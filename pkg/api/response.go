package api

import (
	"time"

	"github.com/0xpr03/nitter-status/pkg/ranking"
)

// instancesResponse is the public snapshot served by GET /api/v1/instances,
// grounded on the original Cache/CacheHost shape but carrying every field
// the ranking builder now publishes.
type instancesResponse struct {
	Hosts        []hostDTO `json:"hosts"`
	LastUpdate   int64     `json:"last_update"`
	LatestCommit string    `json:"latest_commit,omitempty"`
}

type recentCheckDTO struct {
	Time    string `json:"time"`
	Healthy bool   `json:"healthy"`
}

type hostDTO struct {
	Domain                   string           `json:"domain"`
	URL                      string           `json:"url"`
	Country                  string           `json:"country,omitempty"`
	RSS                      bool             `json:"rss"`
	Version                  string           `json:"version,omitempty"`
	VersionURL               string           `json:"version_url,omitempty"`
	VersionState             string           `json:"version_state"`
	Healthy                  *bool            `json:"healthy,omitempty"`
	LastHealthy              *int64           `json:"last_healthy,omitempty"`
	PingAvg                  *int64           `json:"ping_avg,omitempty"`
	PingMin                  *int64           `json:"ping_min,omitempty"`
	PingMax                  *int64           `json:"ping_max,omitempty"`
	RecentPings              []*int64         `json:"recent_pings,omitempty"`
	RecentChecks             []recentCheckDTO `json:"recent_checks,omitempty"`
	Points                   int              `json:"points"`
	HealthyPercentageOverall int64            `json:"healthy_percentage_overall"`
	ShowLastSeen             bool             `json:"__show_last_seen"`
	IsBadHost                bool             `json:"is_bad_host,omitempty"`
}

func newInstancesResponse(snap *ranking.Snapshot) instancesResponse {
	hosts := make([]hostDTO, len(snap.Hosts))
	for i, h := range snap.Hosts {
		hosts[i] = newHostDTO(h)
	}

	return instancesResponse{
		Hosts:        hosts,
		LastUpdate:   snap.LastUpdate.Unix(),
		LatestCommit: snap.LatestCommit,
	}
}

func newHostDTO(h ranking.Host) hostDTO {
	dto := hostDTO{
		Domain:                   h.Domain,
		URL:                      h.URL,
		Country:                  h.Country,
		RSS:                      h.RSS,
		VersionState:             h.VersionState.String(),
		Points:                   h.Points,
		HealthyPercentageOverall: h.HealthyPercentageOverall,
		ShowLastSeen:             h.ShowLastSeen,
		IsBadHost:                h.IsBadHost,
	}

	if h.HasVersion {
		dto.Version = h.Version
	}
	if len(h.VersionURL) > 0 {
		dto.VersionURL = h.VersionURL
	}
	if h.HasHealthy {
		dto.Healthy = &h.Healthy
	}
	if h.HasLastHealthy {
		dto.LastHealthy = &h.LastHealthy
	}
	if h.HasPing {
		dto.PingAvg = &h.PingAvg
		dto.PingMin = &h.PingMin
		dto.PingMax = &h.PingMax
	}
	if len(h.RecentPings) > 0 {
		dto.RecentPings = h.RecentPings
	}
	if len(h.RecentChecks) > 0 {
		dto.RecentChecks = make([]recentCheckDTO, len(h.RecentChecks))
		for i, c := range h.RecentChecks {
			dto.RecentChecks[i] = recentCheckDTO{Time: c.Time, Healthy: c.Healthy}
		}
	}

	return dto
}

// csvTime formats a unix timestamp the way the graph endpoints need: UTC,
// RFC 3339, whole seconds.
func csvTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02T15:04:05Z")
}
