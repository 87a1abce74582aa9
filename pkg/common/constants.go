package common

import "net/http"

const (
	AppName          = "nitter-status"
	StageDev         = "dev"
	StageStaging     = "staging"
	StageTest        = "test"
	ContentTypePlain = "text/plain"
	ContentTypeJSON  = "application/json"
	ContentTypeCSV   = "text/csv"
	ParamDomain      = "domain"
	ParamID          = "id"
	LiveEndpoint     = "livez"
	ReadyEndpoint    = "readyz"
)

var (
	HeaderContentType         = http.CanonicalHeaderKey("Content-Type")
	HeaderAuthorization       = http.CanonicalHeaderKey("Authorization")
	HeaderAccessControlOrigin = http.CanonicalHeaderKey("Access-Control-Allow-Origin")
	HeaderTraceID             = http.CanonicalHeaderKey("X-Trace-ID")
	HeaderCacheControl        = http.CanonicalHeaderKey("Cache-Control")
	HeaderRobotsTag           = http.CanonicalHeaderKey("X-Robots-Tag")
)
