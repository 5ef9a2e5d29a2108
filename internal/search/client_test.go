package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jane doe", req["query"])
		assert.Equal(t, float64(5), req["numResults"])
		assert.Equal(t, true, req["text"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "https://a.example.com", "title": "A", "text": "body a", "summary": "sum a", "score": 0.91},
				{"url": "https://b.example.com", "title": "B", "text": "body b", "score": 0.42},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second, zap.NewNop())
	docs, err := client.Query(context.Background(), "jane doe", 5)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "https://a.example.com", docs[0].URL)
	assert.Equal(t, "sum a", docs[0].Summary)
	assert.InDelta(t, 0.91, docs[0].Score, 1e-9)
}

func TestClientQuery_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second, zap.NewNop())
	_, err := client.Query(context.Background(), "jane doe", 5)
	assert.Error(t, err)
}

func TestClientQuery_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second, zap.NewNop())
	docs, err := client.Query(context.Background(), "jane doe", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
