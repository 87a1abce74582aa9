package scanner

import "github.com/0xpr03/nitter-status/pkg/fetcher"

// classifyFetchError extracts an HTTP status code (when the error carries
// one) and a log-friendly message from any fetcher error.
func classifyFetchError(err error) (code int64, hasCode bool, message string) {
	if err == nil {
		return 0, false, ""
	}
	if status, ok := fetcher.HTTPStatus(err); ok {
		return int64(status), true, err.Error()
	}
	return 0, false, err.Error()
}

// hostError turns a fetch error into the message/status/body triple
// recorded on a check_error row: known failure modes (captcha, known bad
// statuses, transport/body-read failures) suppress the body, while an
// unrecognized non-2xx status keeps the full body for diagnosis.
func hostError(err error) (message string, status int64, hasStatus bool, body string, hasBody bool) {
	switch e := err.(type) {
	case *fetcher.CaptchaError:
		return e.Error(), 0, false, "", false
	case *fetcher.KnownHttpResponseStatusError:
		return e.Error(), int64(e.Status), true, "", false
	case *fetcher.HttpResponseStatusError:
		return e.Error(), int64(e.Status), true, e.Body, true
	default:
		return err.Error(), 0, false, "", false
	}
}
