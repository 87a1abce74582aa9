package fetcher

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchClassification(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantErrNil bool
		checkErr   func(t *testing.T, err error)
	}{
		{
			name:       "success",
			status:     http.StatusOK,
			body:       "hello",
			wantErrNil: true,
		},
		{
			name:   "captcha",
			status: http.StatusForbidden,
			body:   "Enable JavaScript and cookies to continue",
			checkErr: func(t *testing.T, err error) {
				if _, ok := err.(*CaptchaError); !ok {
					t.Fatalf("expected *CaptchaError, got %T", err)
				}
			},
		},
		{
			name:   "cloudflare blocked",
			status: http.StatusForbidden,
			body:   "You have been blocked",
			checkErr: func(t *testing.T, err error) {
				if _, ok := err.(*KnownHttpResponseStatusError); !ok {
					t.Fatalf("expected *KnownHttpResponseStatusError, got %T", err)
				}
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   "Instance has been rate limited",
			checkErr: func(t *testing.T, err error) {
				if _, ok := err.(*KnownHttpResponseStatusError); !ok {
					t.Fatalf("expected *KnownHttpResponseStatusError, got %T", err)
				}
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   "nope",
			checkErr: func(t *testing.T, err error) {
				if _, ok := err.(*KnownHttpResponseStatusError); !ok {
					t.Fatalf("expected *KnownHttpResponseStatusError, got %T", err)
				}
			},
		},
		{
			name:   "bad gateway",
			status: http.StatusBadGateway,
			body:   "",
			checkErr: func(t *testing.T, err error) {
				if _, ok := err.(*KnownHttpResponseStatusError); !ok {
					t.Fatalf("expected *KnownHttpResponseStatusError, got %T", err)
				}
			},
		},
		{
			name:   "cloudflare error",
			status: 522,
			body:   "",
			checkErr: func(t *testing.T, err error) {
				if _, ok := err.(*KnownHttpResponseStatusError); !ok {
					t.Fatalf("expected *KnownHttpResponseStatusError, got %T", err)
				}
			},
		},
		{
			name:   "generic failure",
			status: http.StatusInternalServerError,
			body:   "boom",
			checkErr: func(t *testing.T, err error) {
				he, ok := err.(*HttpResponseStatusError)
				if !ok {
					t.Fatalf("expected *HttpResponseStatusError, got %T", err)
				}
				if he.Body != "boom" {
					t.Errorf("expected body to be retained, got %q", he.Body)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := New(LocalAddressDefault, "https://example.com")
			if err != nil {
				t.Fatal(err)
			}

			_, _, fetchErr := client.Fetch(context.Background(), srv.URL, "")
			if tc.wantErrNil {
				if fetchErr != nil {
					t.Fatalf("expected no error, got %v", fetchErr)
				}
				return
			}

			if fetchErr == nil {
				t.Fatal("expected an error")
			}
			tc.checkErr(t, fetchErr)
		})
	}
}

func TestFetchDecodesGzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		gz := gzip.NewWriter(w)
		gz.Write([]byte("hello compressed world"))
		gz.Close()
	}))
	defer srv.Close()

	client, err := New(LocalAddressDefault, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}

	_, body, fetchErr := client.Fetch(context.Background(), srv.URL, "")
	if fetchErr != nil {
		t.Fatalf("unexpected error: %v", fetchErr)
	}
	if body != "hello compressed world" {
		t.Fatalf("expected decoded body, got %q", body)
	}
}

func TestHTTPStatus(t *testing.T) {
	if status, ok := HTTPStatus(&KnownHttpResponseStatusError{Status: 404}); !ok || status != 404 {
		t.Errorf("expected (404, true), got (%v, %v)", status, ok)
	}

	if _, ok := HTTPStatus(&CaptchaError{}); ok {
		t.Errorf("expected CaptchaError to carry no status")
	}
}
