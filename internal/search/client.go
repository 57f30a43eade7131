package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/telemetry"
	"go.uber.org/zap"
)

// Client wraps the Elasticsearch client with the three directory indices
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to url and verifies the cluster answers
func NewClient(url string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: telemetry.NewInstrumentedTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: [%s]", res.Status())
	}
	return &Client{es: es}, nil
}

// Ping checks that the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reach Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: [%s]", res.Status())
	}
	return nil
}

// InitializeIndices creates any missing index with its mapping
func (c *Client) InitializeIndices(ctx context.Context) error {
	for _, index := range []string{IndexUsers, IndexGroups, IndexPages} {
		if err := c.createIndex(ctx, index); err != nil {
			return fmt.Errorf("failed to create %s index: %w", index, err)
		}
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(object{"mappings": indexMappings[index]})
	if err != nil {
		return err
	}
	res, err = c.es.Indices.Create(index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res, "create index")
}

// DeleteIndices drops all three indices; missing ones are ignored
func (c *Client) DeleteIndices(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{IndexUsers, IndexGroups, IndexPages},
		c.es.Indices.Delete.WithContext(ctx),
		c.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res, "delete indices")
}

// IndexDocument upserts doc under id
func (c *Client) IndexDocument(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", index, err)
	}
	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		metrics.ElasticsearchIndexOperationsTotal.WithLabelValues(index, "index", "error").Inc()
		return fmt.Errorf("failed to index %s: %w", index, err)
	}
	defer res.Body.Close()
	if err := responseError(res, "index "+index); err != nil {
		metrics.ElasticsearchIndexOperationsTotal.WithLabelValues(index, "index", "error").Inc()
		return err
	}
	metrics.ElasticsearchIndexOperationsTotal.WithLabelValues(index, "index", "success").Inc()
	return nil
}

// DeleteDocument removes id from index; a missing document is not an error
func (c *Client) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "delete "+index)
}

// bulkItem is one document of a bulk index request
type bulkItem struct {
	ID  string
	Doc interface{}
}

// Bulk indexes items into index in one request and refreshes it
func (c *Client) Bulk(ctx context.Context, index string, items []bulkItem) error {
	if len(items) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(object{"index": object{"_index": index, "_id": item.ID}}); err != nil {
			return err
		}
		if err := enc.Encode(item.Doc); err != nil {
			return err
		}
	}

	res, err := c.es.Bulk(&buf,
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk %s: %w", index, err)
	}
	defer res.Body.Close()
	if err := responseError(res, "bulk "+index); err != nil {
		return err
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	status := "success"
	if out.Errors {
		status = "partial"
		logger.Log.Warn("Bulk index reported item errors", zap.String("index", index))
	}
	metrics.ElasticsearchIndexOperationsTotal.WithLabelValues(index, "bulk", status).Inc()
	return nil
}

// SearchIDs runs the fuzzy query against index and returns matching ids by score
func (c *Client) SearchIDs(ctx context.Context, index, q string, size int) ([]string, error) {
	body, err := json.Marshal(buildQuery(index, q, size))
	if err != nil {
		return nil, err
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res, "search "+index); err != nil {
		return nil, err
	}
	return decodeHitIDs(res.Body)
}

func decodeHitIDs(r io.Reader) ([]string, error) {
	var resp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	var errResp map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("%s: error response [%s]", op, res.Status())
	}
	return fmt.Errorf("%s: [%s] %v", op, res.Status(), errResp["error"])
}
