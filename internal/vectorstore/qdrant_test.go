package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"semantic-qa-platform/utils"
)

func collectionInfoBody(size int) map[string]any {
	return map[string]any{
		"result": map[string]any{
			"config": map[string]any{
				"params": map[string]any{
					"vectors": map[string]any{"size": size},
				},
			},
		},
	}
}

func TestEnsureCollectionValidation(t *testing.T) {
	store := NewStore(Config{URL: "http://unused"})

	if err := store.EnsureCollection(context.Background(), "", 768, DistanceCosine); !utils.IsKind(err, utils.KindInputValidation) {
		t.Errorf("empty name should be an input validation failure, got %v", err)
	}
	if err := store.EnsureCollection(context.Background(), "docs", 0, DistanceCosine); !utils.IsKind(err, utils.KindInputValidation) {
		t.Errorf("zero vector size should be an input validation failure, got %v", err)
	}
}

func TestEnsureCollectionExistingMatch(t *testing.T) {
	var createCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
			json.NewEncoder(w).Encode(collectionInfoBody(768))
		case r.Method == http.MethodPut:
			createCalled = true
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	if err := store.EnsureCollection(context.Background(), "docs", 768, DistanceCosine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createCalled {
		t.Error("existing collection must not be recreated")
	}
}

func TestEnsureCollectionDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(collectionInfoBody(1536))
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	err := store.EnsureCollection(context.Background(), "docs", 768, DistanceCosine)
	if !utils.IsKind(err, utils.KindStore) {
		t.Fatalf("dimension mismatch should be a store failure, got %v", err)
	}
}

func TestEnsureCollectionCreatesMissing(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if r.URL.Path != "/collections/docs" {
				t.Errorf("unexpected create path %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	if err := store.EnsureCollection(context.Background(), "docs", 768, DistanceCosine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vectors, ok := created["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("create request missing vectors config: %v", created)
	}
	if vectors["size"].(float64) != 768 {
		t.Errorf("created with size %v", vectors["size"])
	}
	if vectors["distance"] != "Cosine" {
		t.Errorf("created with distance %v", vectors["distance"])
	}
}

func TestUpsertLengthMismatch(t *testing.T) {
	var backendCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalled = true
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	err := store.Upsert(context.Background(), "docs", [][]float32{{1, 2}}, []Payload{})
	if !utils.IsKind(err, utils.KindInputValidation) {
		t.Fatalf("length mismatch should be an input validation failure, got %v", err)
	}
	if backendCalled {
		t.Error("validation failures must not reach the backend")
	}
}

func TestUpsertEmptyIsNoOp(t *testing.T) {
	var backendCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalled = true
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	if err := store.Upsert(context.Background(), "docs", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backendCalled {
		t.Error("empty upsert must not reach the backend")
	}
}

func TestUpsertWritesPoints(t *testing.T) {
	var gotPath, gotQuery string
	var body struct {
		Points []struct {
			ID      string    `json:"id"`
			Vector  []float32 `json:"vector"`
			Payload Payload   `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	payloads := []Payload{
		{Text: "first", PageNumber: 1, SequenceIndex: 0, DocumentID: "d", Title: "t.pdf"},
		{Text: "second", PageNumber: 2, SequenceIndex: 1, DocumentID: "d", Title: "t.pdf"},
	}
	if err := store.Upsert(context.Background(), "docs", vectors, payloads); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/collections/docs/points" {
		t.Errorf("unexpected upsert path %s", gotPath)
	}
	if gotQuery != "wait=true" {
		t.Errorf("upsert must wait for durability, got query %q", gotQuery)
	}
	if len(body.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(body.Points))
	}
	seen := map[string]bool{}
	for i, p := range body.Points {
		if p.ID == "" || seen[p.ID] {
			t.Errorf("point %d has missing or duplicate ID %q", i, p.ID)
		}
		seen[p.ID] = true
		if p.Payload.SequenceIndex != i {
			t.Errorf("point %d carries sequence index %d", i, p.Payload.SequenceIndex)
		}
	}
}

func TestSearchValidation(t *testing.T) {
	store := NewStore(Config{URL: "http://unused"})
	_, err := store.Search(context.Background(), "docs", []float32{1}, 0, nil)
	if !utils.IsKind(err, utils.KindInputValidation) {
		t.Errorf("non-positive top_k should be an input validation failure, got %v", err)
	}
}

func TestSearchParsesHits(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Errorf("unexpected search path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"id":    "aaaa-bbbb",
					"score": 0.93,
					"payload": map[string]any{
						"text":           "chunk text",
						"page_number":    4,
						"sequence_index": 2,
						"document_id":    "doc-1",
						"title":          "report.pdf",
					},
				},
			},
		})
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	threshold := float32(0.7)
	hits, err := store.Search(context.Background(), "docs", []float32{0.1, 0.2}, 3, &threshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req["limit"].(float64) != 3 {
		t.Errorf("search limit not forwarded: %v", req["limit"])
	}
	if req["with_payload"] != true {
		t.Error("search must request payloads")
	}
	if req["score_threshold"].(float64) != float64(threshold) {
		t.Errorf("score threshold not forwarded: %v", req["score_threshold"])
	}

	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.ID != "aaaa-bbbb" || h.Score != 0.93 {
		t.Errorf("hit identity mismatch: %+v", h)
	}
	if h.Payload.Text != "chunk text" || h.Payload.PageNumber != 4 || h.Payload.DocumentID != "doc-1" {
		t.Errorf("hit payload mismatch: %+v", h.Payload)
	}
}

func TestSearchOmitsThresholdWhenUnset(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	hits, err := store.Search(context.Background(), "docs", []float32{0.1}, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
	if _, present := req["score_threshold"]; present {
		t.Error("score_threshold must be omitted when unset")
	}
}

func TestBackendErrorIsStoreFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"wrong input"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL})
	_, err := store.Search(context.Background(), "docs", []float32{0.1}, 5, nil)
	if !utils.IsKind(err, utils.KindStore) {
		t.Errorf("backend rejection should be a store failure, got %v", err)
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		json.NewEncoder(w).Encode(collectionInfoBody(8))
	}))
	defer srv.Close()

	store := NewStore(Config{URL: srv.URL, APIKey: "secret"})
	if err := store.EnsureCollection(context.Background(), "docs", 8, DistanceCosine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("api-key header not sent, got %q", gotKey)
	}
}
