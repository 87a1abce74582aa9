package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"
)

const (
	captchaStatus = http.StatusForbidden
	captchaText   = "Enable JavaScript and cookies to continue"
	blockedText   = "You have been blocked"
	rateLimitText = "Instance has been rate limited"

	connectTimeout = 5 * time.Second
	totalTimeout   = 10 * time.Second
)

var acceptHeader = strings.Join([]string{
	"text/html", "application/xhtml+xml", "application/xml;q=0.9",
	"image/avif", "image/webp", "*/*;q=0.8",
}, ",")

// fixedHeaders is reproduced bit-for-bit on every outgoing request, so every
// probe carries the same browser-like header profile; the User-Agent set
// next to it still names the monitor.
var fixedHeaders = [][2]string{
	{"Accept", acceptHeader},
	{"Accept-Language", "de,en-US;q=0.7,en;q=0.3"},
	{"Sec-Fetch-Dest", "document"},
	{"Sec-Fetch-Mode", "navigate"},
	{"Sec-Fetch-Site", "none"},
	{"Sec-Fetch-User", "?1"},
	{"TE", "trailers"},
}

// LocalAddressKind selects which local interface address a Client binds to;
// used by the connectivity probe to force an IPv4 or IPv6 path.
type LocalAddressKind int

const (
	LocalAddressDefault LocalAddressKind = iota
	LocalAddressIPv4
	LocalAddressIPv6
)

type Client struct {
	http      *http.Client
	userAgent string
}

func New(kind LocalAddressKind, websiteURL string) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: connectTimeout}

	switch kind {
	case LocalAddressIPv4:
		dialer.LocalAddr = &net.TCPAddr{IP: net.IPv4zero}
	case LocalAddressIPv6:
		dialer.LocalAddr = &net.TCPAddr{IP: net.IPv6unspecified}
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: totalTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   totalTimeout,
		},
		userAgent: fmt.Sprintf("nitter-status (+%s/about)", strings.TrimRight(websiteURL, "/")),
	}, nil
}

// Fetch performs a GET against url, attaching bearer as an Authorization
// header when non-empty, and classifies the response per the documented
// status/body rules.
func (c *Client) Fetch(ctx context.Context, url string, bearer string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", &TransportError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br, deflate")
	for _, h := range fixedHeaders {
		req.Header.Set(h[0], h[1])
	}
	if len(bearer) > 0 {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	code := resp.StatusCode

	reader, err := decodingReader(resp)
	if err != nil {
		return code, "", &BodyReadError{URL: url, Err: err}
	}
	bodyBytes, readErr := io.ReadAll(reader)
	if readErr != nil && code >= 200 && code < 300 {
		return code, "", &BodyReadError{URL: url, Err: readErr}
	}
	body := string(bodyBytes)

	if code >= 200 && code < 300 {
		return code, body, nil
	}

	message := http.StatusText(code)

	if code == captchaStatus && strings.Contains(body, captchaText) {
		return code, body, &CaptchaError{}
	}

	if code == http.StatusForbidden && strings.Contains(body, blockedText) {
		return code, body, &KnownHttpResponseStatusError{Status: code, Message: message}
	}

	if code == http.StatusTooManyRequests && strings.Contains(body, rateLimitText) {
		return code, body, &KnownHttpResponseStatusError{Status: code, Message: message}
	}

	if code == http.StatusNotFound {
		return code, body, &KnownHttpResponseStatusError{Status: code, Message: message}
	}

	if code >= 502 && code <= 504 {
		return code, body, &KnownHttpResponseStatusError{Status: code, Message: message}
	}

	if code >= 520 && code <= 527 {
		return code, body, &KnownHttpResponseStatusError{Status: code, Message: message}
	}

	return code, body, &HttpResponseStatusError{Status: code, Message: message, Body: body}
}

// decodingReader picks apart Content-Encoding since we set Accept-Encoding
// ourselves, which disables net/http's automatic transparent gzip handling.
func decodingReader(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "deflate":
		return flate.NewReader(bufio.NewReader(resp.Body)), nil
	default:
		return resp.Body, nil
	}
}
