package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/util/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCheck(name string, status int, message string, err error) health.Check {
	return health.Check{
		Name: name,
		Check: func(context.Context, bool) (int, string, error) {
			return status, message, err
		},
	}
}

type healthDoc struct {
	Status       string `json:"status"`
	Dependencies []struct {
		Resource     string            `json:"resource"`
		Status       string            `json:"status"`
		Error        string            `json:"error"`
		Message      string            `json:"message"`
		Dependencies []json.RawMessage `json:"dependencies"`
	} `json:"dependencies"`
}

func TestCheckAll(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		status, body, err := health.CheckAll(context.Background(), false, []health.Check{
			staticCheck("a", http.StatusOK, "fine", nil),
			staticCheck("b", http.StatusOK, `say "hi"`, nil),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		var doc healthDoc
		require.NoError(t, json.Unmarshal([]byte(body), &doc))

		assert.Equal(t, "200", doc.Status)
		require.Len(t, doc.Dependencies, 2)
		assert.Equal(t, "a", doc.Dependencies[0].Resource)
		assert.Equal(t, `say "hi"`, doc.Dependencies[1].Message)
		assert.Equal(t, "<nil>", doc.Dependencies[1].Error)
	})

	t.Run("one failing", func(t *testing.T) {
		status, body, err := health.CheckAll(context.Background(), false, []health.Check{
			staticCheck("a", http.StatusOK, "fine", nil),
			staticCheck("b", http.StatusOK, "", errors.NewServiceError("down")),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, status)

		var doc healthDoc
		require.NoError(t, json.Unmarshal([]byte(body), &doc))

		assert.Equal(t, "503", doc.Status)
		assert.Contains(t, doc.Dependencies[1].Error, "down")
	})

	t.Run("nested document", func(t *testing.T) {
		_, inner, err := health.CheckAll(context.Background(), false, []health.Check{
			staticCheck("inner", http.StatusOK, "ok", nil),
		})
		require.NoError(t, err)

		_, body, err := health.CheckAll(context.Background(), false, []health.Check{
			staticCheck("outer", http.StatusOK, inner, nil),
		})
		require.NoError(t, err)

		var doc healthDoc
		require.NoError(t, json.Unmarshal([]byte(body), &doc))

		require.Len(t, doc.Dependencies[0].Dependencies, 1)
		assert.Empty(t, doc.Dependencies[0].Message)
		assert.JSONEq(t, inner, string(doc.Dependencies[0].Dependencies[0]))
	})

	t.Run("no checks", func(t *testing.T) {
		status, body, err := health.CheckAll(context.Background(), true, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"status":"200","dependencies":[]}`, body)
	})
}

func TestCheckHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/alive" {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	status, _, err := health.CheckHTTPServer(srv.URL+"/", "/alive")(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, msg, err := health.CheckHTTPServer(srv.URL, "health")(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, msg, "returned status 503")
}

func TestCheckHTTPServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	status, _, err := health.CheckHTTPServer(addr, "/alive")(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
