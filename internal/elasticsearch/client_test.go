package elasticsearch_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/elasticsearch"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeES answers like an Elasticsearch node; the product header is required
// by the v8 client.
func fakeES(t *testing.T, respond func(r *http.Request) string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(r)))
	}))
	t.Cleanup(server.Close)
	return server, &reqs
}

func TestIndexArticle(t *testing.T) {
	server, reqs := fakeES(t, func(r *http.Request) string { return `{"result":"created"}` })
	client, err := elasticsearch.New(server.URL, "news_analysis", nil)
	require.NoError(t, err)

	doc := models.ArchivedArticle{ID: "abc123", Title: "Budget vote", Bias: "Center", Timestamp: time.Now().UTC()}
	require.NoError(t, client.IndexArticle(context.Background(), doc))

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	require.Equal(t, http.MethodPut, got.method)
	require.Equal(t, "/news_analysis/_doc/abc123", got.path)

	var sent models.ArchivedArticle
	require.NoError(t, json.Unmarshal([]byte(got.body), &sent))
	require.Equal(t, "Budget vote", sent.Title)
}

func TestSearchArchive(t *testing.T) {
	server, reqs := fakeES(t, func(r *http.Request) string {
		return `{"hits":{"total":{"value":7},"hits":[{"_source":{"id":"1","title":"A","bias":"Left"}},{"_source":{"id":"2","title":"B","bias":"Left"}}]}}`
	})
	client, err := elasticsearch.New(server.URL, "news_analysis", nil)
	require.NoError(t, err)

	res, err := client.SearchArchive(context.Background(), elasticsearch.SearchParams{Query: "tax", Bias: "Left"})
	require.NoError(t, err)
	require.Equal(t, int64(7), res.Total)
	require.Len(t, res.Items, 2)
	require.Equal(t, "B", res.Items[1].Title)
	require.True(t, strings.HasSuffix((*reqs)[0].path, "/news_analysis/_search"))
}

func TestDeleteOlderThanLoopsUntilShortBatch(t *testing.T) {
	calls := 0
	server, _ := fakeES(t, func(r *http.Request) string {
		calls++
		if calls == 1 {
			return `{"deleted":10}`
		}
		return `{"deleted":3}`
	})
	client, err := elasticsearch.New(server.URL, "news_analysis", nil)
	require.NoError(t, err)

	deleted, err := client.DeleteOlderThan(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)
	require.Equal(t, int64(13), deleted)
	require.Equal(t, 2, calls)
}

func TestBuildSearchBodyDefaults(t *testing.T) {
	body := elasticsearch.BuildSearchBody(elasticsearch.SearchParams{Size: 500, From: -3})

	require.Equal(t, 200, body["size"])
	require.Equal(t, 0, body["from"])
	query := body["query"].(map[string]any)["bool"].(map[string]any)
	require.Contains(t, query, "must")
	require.NotContains(t, query, "filter")
	require.Equal(t, []map[string]any{{"timestamp": map[string]any{"order": "desc"}}}, body["sort"])
}

func TestBuildSearchBodyFilters(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	body := elasticsearch.BuildSearchBody(elasticsearch.SearchParams{
		Query:  "election",
		Bias:   "Right",
		Topic:  "geopolitics",
		Start:  &start,
		Sort:   "sentiment:asc",
		Size:   5,
		Source: "",
	})

	query := body["query"].(map[string]any)["bool"].(map[string]any)
	filters := query["filter"].([]map[string]any)
	require.Len(t, filters, 3)
	require.Contains(t, filters, map[string]any{"term": map[string]any{"bias": "Right"}})
	require.Contains(t, filters, map[string]any{"term": map[string]any{"topic": "geopolitics"}})
	require.Contains(t, filters, map[string]any{"range": map[string]any{"timestamp": map[string]any{"gte": "2026-01-01T00:00:00Z"}}})
	require.Equal(t, []map[string]any{{"sentiment": map[string]any{"order": "asc"}}}, body["sort"])
}

func indexServer(t *testing.T, exists bool, createStatus int, createBody string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && exists:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(createStatus)
			_, _ = w.Write([]byte(createBody))
		}
	}))
	t.Cleanup(server.Close)
	return server, &reqs
}

func TestEnsureIndexCreatesKeywordMapping(t *testing.T) {
	server, reqs := indexServer(t, false, http.StatusOK, `{"acknowledged":true}`)
	client, err := elasticsearch.New(server.URL, "news_analysis", nil)
	require.NoError(t, err)

	require.NoError(t, client.EnsureIndex(context.Background()))
	require.Len(t, *reqs, 2)

	create := (*reqs)[1]
	require.Equal(t, http.MethodPut, create.method)
	require.Equal(t, "/news_analysis", create.path)

	var body struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(create.body), &body))
	for _, field := range []string{"bias", "source", "topic"} {
		require.Equal(t, "keyword", body.Mappings.Properties[field].Type, field)
	}
	require.Equal(t, "date", body.Mappings.Properties["timestamp"].Type)
}

func TestEnsureIndexExisting(t *testing.T) {
	server, reqs := indexServer(t, true, http.StatusInternalServerError, "")
	client, err := elasticsearch.New(server.URL, "news_analysis", nil)
	require.NoError(t, err)

	require.NoError(t, client.EnsureIndex(context.Background()))
	require.Len(t, *reqs, 1)
}

func TestEnsureIndexLostCreateRace(t *testing.T) {
	server, _ := indexServer(t, false, http.StatusBadRequest,
		`{"error":{"type":"resource_already_exists_exception"},"status":400}`)
	client, err := elasticsearch.New(server.URL, "news_analysis", nil)
	require.NoError(t, err)

	require.NoError(t, client.EnsureIndex(context.Background()))
}
