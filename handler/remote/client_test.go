package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/manifest"
	"github.com/inlay-dev/inlay-core/handler/values"
	"github.com/inlay-dev/inlay-core/netutil"
)

const sampleCode = manifest.Magic + `
name: slashdot
kind: acquisition
version: "1.3"
protocol: "1.0"
engine: http-get
produces: html
params:
  url: "https://slashdot.example/headlines"
`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithHTTPClient(srv.Client()))
}

func TestQueryType(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathType, r.URL.Path)
		assert.Equal(t, "slashdot", r.URL.Query().Get("name"))
		w.Write([]byte("acquisition\n"))
	})

	kind, err := c.QueryType(context.Background(), values.MustNewName("Slashdot"))
	require.NoError(t, err)
	assert.Equal(t, entities.KindAcquisition, kind)
}

func TestQueryTypeNotFound(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not found"))
	})

	_, err := c.QueryType(context.Background(), values.MustNewName("nobody"))
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrHandlerNotFound)
}

func TestQueryTypeGarbage(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("teapot"))
	})

	_, err := c.QueryType(context.Background(), values.MustNewName("x"))
	var contentErr *ContentError
	require.ErrorAs(t, err, &contentErr)
}

func TestQueryLatestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{
			name: "functional update",
			body: "1.5 functional",
		},
		{
			name: "no update",
			body: "no update",
		},
		{
			name: "not found",
			body: "not found",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, pathVersion, r.URL.Path)
				assert.Equal(t, "1.0", r.URL.Query().Get("protocol"))
				w.Write([]byte(tt.body))
			})

			info, err := c.QueryLatestVersion(
				context.Background(),
				values.MustNewName("slashdot"),
				values.MustParseVersion("1.0"),
				false,
				values.MustParseVersion("1.2"),
			)
			require.NoError(t, err)

			switch tt.body {
			case "not found":
				assert.False(t, info.Found)
				assert.False(t, info.Update)
			case "no update":
				assert.True(t, info.Found)
				assert.False(t, info.Update)
			default:
				assert.True(t, info.Found)
				assert.True(t, info.Update)
				assert.Equal(t, "1.5", info.Version.String())
				assert.Equal(t, values.UpdateFunctional, info.Kind)
			}
		})
	}
}

func TestQueryLatestVersionBugfixOnly(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("bugfix_only"))
		assert.Equal(t, "1.2", r.URL.Query().Get("local"))
		w.Write([]byte("1.3 bugfix"))
	})

	info, err := c.QueryLatestVersion(
		context.Background(),
		values.MustNewName("slashdot"),
		values.MustParseVersion("1.0"),
		true,
		values.MustParseVersion("1.2"),
	)
	require.NoError(t, err)
	assert.Equal(t, "1.3", info.Version.String())
	assert.Equal(t, values.UpdateBugfix, info.Kind)
}

func TestQueryLatestVersionGarbage(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("one point five maybe"))
	})

	_, err := c.QueryLatestVersion(
		context.Background(),
		values.MustNewName("x"),
		values.MustParseVersion("1.0"),
		false,
		values.Version{},
	)
	var contentErr *ContentError
	require.ErrorAs(t, err, &contentErr)
}

func TestFetchCode(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathCode, r.URL.Path)
		assert.Equal(t, "slashdot", r.URL.Query().Get("name"))
		assert.Equal(t, "1.3", r.URL.Query().Get("version"))
		w.Write([]byte(sampleCode))
	})

	code, err := c.FetchCode(context.Background(), values.MustNewName("slashdot"), values.MustParseVersion("1.3"))
	require.NoError(t, err)
	assert.True(t, manifest.Sniff(code))
}

func TestFetchCodeRejectsUnmarkedBody(t *testing.T) {
	t.Parallel()

	// An HTML error page from a confused server must be a content failure,
	// never a clean not-found.
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>500 oops</body></html>"))
	})

	_, err := c.FetchCode(context.Background(), values.MustNewName("slashdot"), values.MustParseVersion("1.3"))
	var contentErr *ContentError
	require.ErrorAs(t, err, &contentErr)
	assert.False(t, errors.Is(err, entities.ErrHandlerNotFound))
}

func TestFetchCodeNotFound(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not found"))
	})

	_, err := c.FetchCode(context.Background(), values.MustNewName("ghost"), values.MustParseVersion("1.0"))
	assert.ErrorIs(t, err, entities.ErrHandlerNotFound)
}

func TestFetchCodeSizeBound(t *testing.T) {
	t.Parallel()

	big := make([]byte, 256)
	copy(big, []byte(sampleCode))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithMaxCodeBytes(64))
	_, err := c.FetchCode(context.Background(), values.MustNewName("huge"), values.MustParseVersion("1.0"))
	var contentErr *ContentError
	require.ErrorAs(t, err, &contentErr)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.QueryType(context.Background(), values.MustNewName("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "500 is not retryable")
}

func TestRetriesBoundedOnRetryableStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: &netutil.RetryTransport{
		Base:           srv.Client().Transport,
		Attempts:       2,
		InitialBackoff: time.Millisecond,
	}}
	c := NewClient(srv.URL, WithHTTPClient(hc))

	_, err := c.QueryType(context.Background(), values.MustNewName("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "attempts are bounded")
}
