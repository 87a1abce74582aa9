package api

import (
	"testing"
	"time"

	"github.com/0xpr03/nitter-status/pkg/ranking"
	"github.com/0xpr03/nitter-status/pkg/versioncheck"
)

func TestNewHostDTOOptionalFields(t *testing.T) {
	testCases := []struct {
		name       string
		host       ranking.Host
		wantHealth bool
		wantPing   bool
		wantLast   bool
	}{
		{
			name: "bare host with nothing observed yet",
			host: ranking.Host{Domain: "a.example", VersionState: versioncheck.UnknownCommit},
		},
		{
			name: "healthy host with ping stats",
			host: ranking.Host{
				Domain: "b.example", HasHealthy: true, Healthy: true,
				HasPing: true, PingAvg: 10, PingMin: 5, PingMax: 20,
				HasLastHealthy: true, LastHealthy: 1000,
				VersionState: versioncheck.Current,
			},
			wantHealth: true,
			wantPing:   true,
			wantLast:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dto := newHostDTO(tc.host)

			if (dto.Healthy != nil) != tc.wantHealth {
				t.Errorf("Healthy pointer presence = %v, want %v", dto.Healthy != nil, tc.wantHealth)
			}
			if (dto.PingAvg != nil) != tc.wantPing {
				t.Errorf("PingAvg pointer presence = %v, want %v", dto.PingAvg != nil, tc.wantPing)
			}
			if (dto.LastHealthy != nil) != tc.wantLast {
				t.Errorf("LastHealthy pointer presence = %v, want %v", dto.LastHealthy != nil, tc.wantLast)
			}
			if dto.Domain != tc.host.Domain {
				t.Errorf("Domain = %q, want %q", dto.Domain, tc.host.Domain)
			}
			if dto.VersionState != tc.host.VersionState.String() {
				t.Errorf("VersionState = %q, want %q", dto.VersionState, tc.host.VersionState.String())
			}
		})
	}
}

func TestNewHostDTOVersionOmittedWhenUnset(t *testing.T) {
	dto := newHostDTO(ranking.Host{Domain: "c.example", HasVersion: false, Version: "leftover"})
	if dto.Version != "" {
		t.Errorf("Version = %q, want empty when HasVersion is false", dto.Version)
	}
}

func TestNewInstancesResponseCarriesSnapshotMetadata(t *testing.T) {
	now := time.Unix(1700000000, 0)
	snap := &ranking.Snapshot{
		Hosts:        []ranking.Host{{Domain: "one.example"}, {Domain: "two.example"}},
		LastUpdate:   now,
		LatestCommit: "abc123",
	}

	resp := newInstancesResponse(snap)

	if len(resp.Hosts) != 2 {
		t.Fatalf("len(Hosts) = %d, want 2", len(resp.Hosts))
	}
	if resp.LastUpdate != now.Unix() {
		t.Errorf("LastUpdate = %d, want %d", resp.LastUpdate, now.Unix())
	}
	if resp.LatestCommit != "abc123" {
		t.Errorf("LatestCommit = %q, want %q", resp.LatestCommit, "abc123")
	}
}

func TestCsvTime(t *testing.T) {
	testCases := []struct {
		unix int64
		want string
	}{
		{0, "1970-01-01T00:00:00Z"},
		{1700000000, "2023-11-14T22:13:20Z"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			if got := csvTime(tc.unix); got != tc.want {
				t.Errorf("csvTime(%d) = %q, want %q", tc.unix, got, tc.want)
			}
		})
	}
}
