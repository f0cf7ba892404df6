package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/utils"
)

// DistanceCosine is the only distance metric this deployment uses; scores are
// similarities where higher is more relevant, nominally in [0,1].
const DistanceCosine = "Cosine"

// Payload is the structured payload stored alongside each point. Fields with
// no value are omitted from the JSON rather than stored as null, since the
// index engine rejects null-typed payload fields.
type Payload struct {
	Text          string `json:"text"`
	PageNumber    int    `json:"page_number"`
	SequenceIndex int    `json:"sequence_index"`
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
}

// Hit is one scored search result.
type Hit struct {
	ID      string
	Score   float32
	Payload Payload
}

// Store is a minimal REST client to Qdrant. Safe for concurrent use: it holds
// no per-call mutable state.
type Store struct {
	url    string
	apiKey string
	client *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist. When the
// collection already exists, its vector size must match vectorSize: a
// reconfigured embedding backend against an old collection is a deployment
// error, never auto-resized.
func (s *Store) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	if name == "" {
		return utils.NewValidationError("collection name must not be empty")
	}
	if vectorSize <= 0 {
		return utils.NewValidationError("vector size must be positive, got %d", vectorSize)
	}

	existing, found, err := s.getCollectionSize(ctx, name)
	if err != nil {
		return err
	}
	if found {
		if existing != vectorSize {
			return utils.NewStoreError("collection %q has vector size %d but %d is configured", name, existing, vectorSize)
		}
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": distance,
		},
	}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, name), body, nil); err != nil {
		return err
	}
	logger.Info("Created vector collection", "collection", name, "vector_size", vectorSize, "distance", distance)
	return nil
}

// Upsert writes one point per (vector, payload) pair and waits for the backend
// to acknowledge durability before returning. Point IDs are freshly generated.
// Empty input is a no-op; mismatched slice lengths are a caller error reported
// before any backend call.
func (s *Store) Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []Payload) error {
	if len(vectors) != len(payloads) {
		return utils.NewValidationError("vectors (%d) and payloads (%d) must have the same length", len(vectors), len(payloads))
	}
	if len(vectors) == 0 {
		return nil
	}

	points := make([]map[string]any, len(vectors))
	for i := range vectors {
		points[i] = map[string]any{
			"id":      uuid.NewString(),
			"vector":  vectors[i],
			"payload": payloads[i],
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, collection)
	if err := s.putJSON(ctx, url, body, nil); err != nil {
		return err
	}
	logger.Debug("Upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search returns at most topK hits ordered by descending similarity. When
// scoreThreshold is non-nil only hits meeting it are returned; fewer than
// topK, or zero, is a valid result.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, topK int, scoreThreshold *float32) ([]Hit, error) {
	if topK <= 0 {
		return nil, utils.NewValidationError("top_k must be positive, got %d", topK)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if scoreThreshold != nil {
		req["score_threshold"] = *scoreThreshold
	}

	var resp struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float32 `json:"score"`
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// getCollectionSize reports the vector size of an existing collection, or
// found=false when the collection does not exist.
func (s *Store) getCollectionSize(ctx context.Context, name string) (size int, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", s.url, name), nil)
	if err != nil {
		return 0, false, utils.NewStoreError("build collection request: %v", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, false, utils.NewStoreError("get collection %q: %v", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode >= 300 {
		return 0, false, utils.NewStoreError("get collection %q: unexpected status %s", name, resp.Status)
	}

	var out struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, false, utils.NewStoreError("decode collection %q info: %v", name, err)
	}
	return out.Result.Config.Params.Vectors.Size, true, nil
}

func (s *Store) putJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, out)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Store) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return utils.NewStoreError("marshal request body: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return utils.NewStoreError("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return utils.NewStoreError("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return utils.NewStoreError("%s %s: %s: %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return utils.NewStoreError("decode response from %s: %v", url, err)
		}
	}
	return nil
}

func (s *Store) setHeaders(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}
