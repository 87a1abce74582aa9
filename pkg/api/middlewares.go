package api

import (
	"strconv"

	"github.com/0xpr03/nitter-status/pkg/common"
)

// instanceCacheHeaders builds the Cache-Control header for the instances
// endpoint from the configured health-check interval, so cached responses
// never outlive the next scheduled rebuild by more than one interval.
func instanceCacheHeaders(maxAgeSeconds int) map[string][]string {
	return map[string][]string{
		common.HeaderCacheControl: {"public, max-age=" + strconv.Itoa(maxAgeSeconds)},
		common.HeaderRobotsTag:    {"noindex, nofollow"},
	}
}

var csvHeaders = map[string][]string{
	common.HeaderContentType: {common.ContentTypeCSV},
	common.HeaderRobotsTag:   {"noindex, nofollow"},
}
