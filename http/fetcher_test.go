package http_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/doccrawl"
	dchttp "github.com/fwojciec/doccrawl/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body, content type and user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
		}))
		defer server.Close()

		fetcher := dchttp.NewFetcher()
		defer fetcher.Close()

		resp, err := fetcher.Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "<html><body>Hello World</body></html>", string(resp.Body))
		assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, dchttp.DefaultUserAgent, gotUA)
	})

	t.Run("reports final URL after redirects", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moved"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		resp, err := dchttp.NewFetcher().Fetch(context.Background(), server.URL+"/old")

		require.NoError(t, err)
		assert.Equal(t, server.URL+"/new", resp.URL)
	})

	t.Run("classifies non-2xx status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := dchttp.NewFetcher().Fetch(context.Background(), server.URL)

		var fetchErr *doccrawl.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, doccrawl.FetchBadStatus, fetchErr.Kind)
		assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
		assert.False(t, doccrawl.IsTransient(err))
	})

	t.Run("server errors are transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := dchttp.NewFetcher().Fetch(context.Background(), server.URL)

		require.Error(t, err)
		assert.True(t, doccrawl.IsTransient(err))
	})

	t.Run("classifies timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		}))
		defer server.Close()

		fetcher := dchttp.NewFetcher(dchttp.WithTimeout(20 * time.Millisecond))
		defer fetcher.Close()

		_, err := fetcher.Fetch(context.Background(), server.URL)

		assert.Equal(t, doccrawl.FetchTimeout, doccrawl.FetchErrorKindOf(err))
	})

	t.Run("classifies context deadline as timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := dchttp.NewFetcher().Fetch(ctx, server.URL)

		assert.Equal(t, doccrawl.FetchTimeout, doccrawl.FetchErrorKindOf(err))
	})

	t.Run("classifies connection refused", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		_, err = dchttp.NewFetcher().Fetch(context.Background(), "http://"+addr+"/")

		assert.Equal(t, doccrawl.FetchConnectionRefused, doccrawl.FetchErrorKindOf(err))
		assert.True(t, doccrawl.IsTransient(err))
	})

	t.Run("classifies DNS failure", func(t *testing.T) {
		t.Parallel()

		fetcher := dchttp.NewFetcher(dchttp.WithTimeout(2 * time.Second))

		_, err := fetcher.Fetch(context.Background(), "http://non-existent-host.invalid/page")

		kind := doccrawl.FetchErrorKindOf(err)
		assert.Contains(t, []doccrawl.FetchErrorKind{doccrawl.FetchDNSFailure, doccrawl.FetchTimeout}, kind)
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		}))
		defer server.Close()

		_, err := dchttp.NewFetcher(dchttp.WithMaxBodyBytes(1024)).Fetch(context.Background(), server.URL)

		assert.Equal(t, doccrawl.FetchTooLarge, doccrawl.FetchErrorKindOf(err))
	})

	t.Run("sends custom user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
		}))
		defer server.Close()

		_, err := dchttp.NewFetcher(dchttp.WithUserAgent("TestBot/2.0")).Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "TestBot/2.0", gotUA)
	})
}

var _ doccrawl.Fetcher = (*dchttp.Fetcher)(nil)
