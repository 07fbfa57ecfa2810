package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"logscope/core"
	"logscope/search"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// Bucket is one entry of a terms aggregation.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

// ExecuteResult is the engine response distilled to what the service
// layer consumes.
type ExecuteResult struct {
	Total        int64
	Hits         []core.Hit
	Aggregations map[string][]Bucket
}

// Elasticsearch executes built queries against an Elasticsearch index.
type Elasticsearch struct {
	client *elasticsearch.Client
	index  string
	logger *zap.SugaredLogger
}

// NewElasticsearch creates an Elasticsearch executor and verifies the
// connection.
func NewElasticsearch(addresses []string, index string, timeout time.Duration, logger *zap.SugaredLogger) (*Elasticsearch, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrEngineError, res.Status())
	}

	logger.Infow("Connected to Elasticsearch", "index", index)

	return &Elasticsearch{
		client: client,
		index:  index,
		logger: logger,
	}, nil
}

// esResponse mirrors the parts of the engine response we read.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string                 `json:"_id"`
			Score     *float64               `json:"_score"`
			Source    map[string]interface{} `json:"_source"`
			Highlight map[string][]string    `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      interface{} `json:"key"`
			DocCount int64       `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

// Execute runs a built query against the index. Engine, transport, and
// timeout failures are returned to the caller; this layer never degrades
// them to empty results.
func (es *Elasticsearch) Execute(ctx context.Context, query *search.BuiltQuery) (*ExecuteResult, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query.Body()); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(&body),
		es.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("%w: %s: %s", ErrEngineError, res.Status(), detail)
	}

	var parsed esResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &ExecuteResult{
		Total: parsed.Hits.Total.Value,
		Hits:  make([]core.Hit, 0, len(parsed.Hits.Hits)),
	}

	for _, h := range parsed.Hits.Hits {
		hit := core.Hit{
			ID:        h.ID,
			Source:    h.Source,
			Highlight: h.Highlight,
		}
		// _score is null when results are sorted by field
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}

	if len(parsed.Aggregations) > 0 {
		result.Aggregations = make(map[string][]Bucket, len(parsed.Aggregations))
		for name, agg := range parsed.Aggregations {
			buckets := make([]Bucket, 0, len(agg.Buckets))
			for _, b := range agg.Buckets {
				buckets = append(buckets, Bucket{
					Key:      fmt.Sprintf("%v", b.Key),
					DocCount: b.DocCount,
				})
			}
			result.Aggregations[name] = buckets
		}
	}

	return result, nil
}
