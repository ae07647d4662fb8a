package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_DecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"name":"crowd"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	err := Do(context.Background(), srv.Client(), http.MethodGet, srv.URL, map[string]string{"Authorization": "Bearer key"}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "crowd", out.Name)
}

func TestDo_StatusError(t *testing.T) {
	cases := []struct {
		body    string
		typ     string
		message string
	}{
		{`{"error":{"type":"INVALID_REQUEST_UNKNOWN","message":"bad field"}}`, "INVALID_REQUEST_UNKNOWN", "bad field"},
		{`{"error":"NOT_FOUND"}`, "NOT_FOUND", ""},
		{`oops`, "", "oops"},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(c.body))
		}))

		err := Do(context.Background(), srv.Client(), http.MethodPatch, srv.URL, nil, []byte(`{}`), nil)
		srv.Close()

		var serr *StatusError
		require.True(t, errors.As(err, &serr), c.body)
		assert.Equal(t, http.StatusUnprocessableEntity, serr.StatusCode)
		assert.Equal(t, c.typ, serr.Type)
		assert.Equal(t, c.message, serr.Message)
	}
}
