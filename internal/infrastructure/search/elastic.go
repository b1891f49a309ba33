// Package search implements the search mirror: Elasticsearch for real
// deployments and an in-process index for development and tests.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/store/backend/internal/domain/shared"
)

// MaxResultWindow is the index.max_result_window Elasticsearch applies by default
const MaxResultWindow = 10000

// ErrResultWindowExceeded rejects pages reaching past MaxResultWindow hits
var ErrResultWindowExceeded = shared.NewDomainError(shared.CodeInvalidInput,
	fmt.Sprintf("Search results are limited to the first %d hits", MaxResultWindow))

// ElasticMirror mirrors one entity type into an Elasticsearch index
type ElasticMirror[T any, P shared.Record[T]] struct {
	client  *elasticsearch.Client
	index   string
	refresh bool
}

// NewElasticMirror creates a mirror writing into prefix+IndexName()
func NewElasticMirror[T any, P shared.Record[T]](client *elasticsearch.Client, prefix string, refresh bool) *ElasticMirror[T, P] {
	return &ElasticMirror[T, P]{
		client:  client,
		index:   prefix + P(new(T)).IndexName(),
		refresh: refresh,
	}
}

// IndexName returns the physical index name
func (m *ElasticMirror[T, P]) IndexName() string {
	return m.index
}

// Index upserts the document keyed by the record identity
func (m *ElasticMirror[T, P]) Index(ctx context.Context, entity *T) error {
	id := P(entity).GetID()
	if id == 0 {
		return shared.ErrIdentityMissing
	}
	body, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", m.index, err)
	}

	opts := []func(*esapi.IndexRequest){
		m.client.Index.WithContext(ctx),
		m.client.Index.WithDocumentID(strconv.FormatInt(id, 10)),
	}
	if m.refresh {
		opts = append(opts, m.client.Index.WithRefresh("true"))
	}
	res, err := m.client.Index(m.index, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("index %s/%d: %w", m.index, id, err)
	}
	defer res.Body.Close()
	return responseError(res, "index "+m.index)
}

// DeleteByID removes the document; a missing document is not an error
func (m *ElasticMirror[T, P]) DeleteByID(ctx context.Context, id int64) error {
	opts := []func(*esapi.DeleteRequest){m.client.Delete.WithContext(ctx)}
	if m.refresh {
		opts = append(opts, m.client.Delete.WithRefresh("true"))
	}
	res, err := m.client.Delete(m.index, strconv.FormatInt(id, 10), opts...)
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", m.index, id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "delete "+m.index)
}

type searchResponse[T any] struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source T `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a query_string query, most relevant first
func (m *ElasticMirror[T, P]) Search(ctx context.Context, query string, page shared.PageRequest) (shared.Page[T], error) {
	page = page.Normalize()
	if page.Offset()+page.Size > MaxResultWindow {
		return shared.Page[T]{}, ErrResultWindowExceeded
	}
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{"query": query},
		},
		"from": page.Offset(),
		"size": page.Size,
	})
	if err != nil {
		return shared.Page[T]{}, err
	}

	res, err := m.client.Search(
		m.client.Search.WithContext(ctx),
		m.client.Search.WithIndex(m.index),
		m.client.Search.WithBody(bytes.NewReader(body)),
		m.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return shared.Page[T]{}, fmt.Errorf("search %s: %w", m.index, err)
	}
	defer res.Body.Close()
	// searching an index that was never written behaves like an empty index
	if res.StatusCode == http.StatusNotFound {
		return shared.NewPage[T](nil, 0, page), nil
	}
	if err := responseError(res, "search "+m.index); err != nil {
		return shared.Page[T]{}, err
	}

	var parsed searchResponse[T]
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return shared.Page[T]{}, fmt.Errorf("decode %s search response: %w", m.index, err)
	}
	items := make([]T, len(parsed.Hits.Hits))
	for i, h := range parsed.Hits.Hits {
		items[i] = h.Source
	}
	return shared.NewPage(items, parsed.Hits.Total.Value, page), nil
}

// EnsureIndex creates the index when it does not exist yet
func (m *ElasticMirror[T, P]) EnsureIndex(ctx context.Context) error {
	res, err := m.client.Indices.Exists([]string{m.index}, m.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", m.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = m.client.Indices.Create(m.index, m.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", m.index, err)
	}
	defer res.Body.Close()
	// another replica may have created it in the meantime
	if res.StatusCode == http.StatusBadRequest {
		return nil
	}
	return responseError(res, "create index "+m.index)
}

// DeleteIndex drops the index and every document in it
func (m *ElasticMirror[T, P]) DeleteIndex(ctx context.Context) error {
	res, err := m.client.Indices.Delete([]string{m.index},
		m.client.Indices.Delete.WithContext(ctx),
		m.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", m.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "delete index "+m.index)
}

// ErrBackend wraps error responses returned by Elasticsearch
var ErrBackend = errors.New("search backend error")

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %w: status %d: %s", op, ErrBackend, res.StatusCode, bytes.TrimSpace(body))
}
