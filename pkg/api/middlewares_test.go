package api

import (
	"testing"

	"github.com/0xpr03/nitter-status/pkg/common"
)

func TestInstanceCacheHeaders(t *testing.T) {
	testCases := []struct {
		maxAge int
		want   string
	}{
		{0, "public, max-age=0"},
		{300, "public, max-age=300"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			headers := instanceCacheHeaders(tc.maxAge)

			got := headers[common.HeaderCacheControl]
			if len(got) != 1 || got[0] != tc.want {
				t.Errorf("Cache-Control = %v, want [%q]", got, tc.want)
			}
			if robots := headers[common.HeaderRobotsTag]; len(robots) != 1 || robots[0] != "noindex, nofollow" {
				t.Errorf("X-Robots-Tag = %v, want [noindex, nofollow]", robots)
			}
		})
	}
}

func TestCsvHeaders(t *testing.T) {
	ct := csvHeaders[common.HeaderContentType]
	if len(ct) != 1 || ct[0] != common.ContentTypeCSV {
		t.Errorf("Content-Type = %v, want [%q]", ct, common.ContentTypeCSV)
	}
}
