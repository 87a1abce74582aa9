package common

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

var (
	HeaderValueContentTypeJSON = []string{ContentTypeJSON}
)

func SendJSONResponse(ctx context.Context, w http.ResponseWriter, data interface{}, headers ...map[string][]string) {
	response, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to serialise response", ErrAttr(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	wHeader := w.Header()
	wHeader[HeaderContentType] = HeaderValueContentTypeJSON
	for _, hh := range headers {
		for key, value := range hh {
			wHeader[key] = value
		}
	}

	n, err := w.Write(response)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to send response", ErrAttr(err))
	} else {
		slog.DebugContext(ctx, "Sent response", "serialized", len(response), "sent", n)
	}
}

func EnvToBool(value string) bool {
	switch value {
	case "1", "Y", "y", "yes", "true", "YES", "TRUE":
		return true
	default:
		return false
	}
}

// ParseDomainName extracts a bare host[:port]-free domain from a URL or a raw host string.
func ParseDomainName(input string) (string, error) {
	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", err
	}

	domain := parsedURL.Host
	if domain == "" {
		domain = input
	}

	if slashIndex := strings.LastIndex(domain, "/"); slashIndex != -1 {
		domain = domain[:slashIndex]
	}

	if colonIndex := strings.LastIndex(domain, ":"); colonIndex != -1 {
		domain = domain[:colonIndex]
	}

	return domain, nil
}

// ChunkedCleanup repeatedly invokes deleter with a backoff that resets whenever rows are
// actually deleted, scaling the chunk size up while deletions keep succeeding.
func ChunkedCleanup(ctx context.Context, minInterval, maxInterval time.Duration, defaultChunkSize int, deleter func(context.Context, time.Time, int) int) {
	b := &backoff.Backoff{
		Min:    minInterval,
		Max:    maxInterval,
		Factor: 2,
		Jitter: true,
	}

	slog.DebugContext(ctx, "Starting chunked clean up", "maxInterval", maxInterval.String(), "size", defaultChunkSize)

	deleteChunk := defaultChunkSize

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-time.After(b.Duration()):
			deleted := deleter(ctx, time.Now(), deleteChunk)
			if deleted == 0 {
				deleteChunk = defaultChunkSize
				continue
			}

			slog.DebugContext(ctx, "Deleted records", "count", deleted)

			b.Reset()

			if deleted == deleteChunk {
				deleteChunk += deleteChunk / 2
			}
		}
	}

	slog.DebugContext(ctx, "Finished cleaning up")
}

// RetriableError is a wrapper for errors that should be retried.
type RetriableError struct {
	err error
}

func NewRetriableError(err error) RetriableError {
	return RetriableError{err}
}

func (e RetriableError) Error() string {
	return e.err.Error()
}

func (e RetriableError) Unwrap() error {
	return e.err
}
