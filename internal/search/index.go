package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Document struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Price         string `json:"price"`
	InStock       bool   `json:"in_stock"`
	CategoryID    uint   `json:"category_id"`
	SubcategoryID uint   `json:"subcategory_id"`
	Active        bool   `json:"active"`
}

func NewDocument(p models.Product) Document {
	doc := Document{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price.StringFixed(2),
		InStock:       p.Stock > 0,
		CategoryID:    p.CategoryID,
		SubcategoryID: p.SubcategoryID,
		Active:        p.Active,
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	return doc
}

type Index interface {
	IndexProducts(ctx context.Context, products []models.Product) error
	DeleteProducts(ctx context.Context, ids []uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []Document, error)
}

type ESIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewESIndex(es *elasticsearch.Client, index string) *ESIndex {
	return &ESIndex{ES: es, Index: index}
}

func (x *ESIndex) IndexProducts(ctx context.Context, products []models.Product) error {
	for _, p := range products {
		body, err := json.Marshal(NewDocument(p))
		if err != nil {
			return fmt.Errorf("index product %d: %w", p.ID, err)
		}

		res, err := x.ES.Index(
			x.Index,
			bytes.NewReader(body),
			x.ES.Index.WithContext(ctx),
			x.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		)
		if err != nil {
			return fmt.Errorf("index product %d: %w", p.ID, err)
		}
		if err := responseError(res.StatusCode, res.IsError(), res.Body); err != nil {
			return fmt.Errorf("index product %d: %w", p.ID, err)
		}
	}
	return nil
}

func (x *ESIndex) DeleteProducts(ctx context.Context, ids []uint) error {
	for _, id := range ids {
		res, err := x.ES.Delete(
			x.Index,
			strconv.FormatUint(uint64(id), 10),
			x.ES.Delete.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		if res.StatusCode == http.StatusNotFound {
			res.Body.Close()
			continue
		}
		if err := responseError(res.StatusCode, res.IsError(), res.Body); err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
	}
	return nil
}

func QueryBody(query string, from, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"active": true}},
				},
			},
		},
		"from": from,
		"size": size,
	}
}

// Search only ever returns active products.
func (x *ESIndex) Search(ctx context.Context, query string, from, size int) (int64, []Document, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(QueryBody(query, from, size)); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode: %w", err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

func responseError(status int, isError bool, body io.ReadCloser) error {
	defer body.Close()
	if !isError {
		return nil
	}
	msg, _ := io.ReadAll(body)
	return fmt.Errorf("elasticsearch status %d: %s", status, msg)
}

type Nop struct{}

func (Nop) IndexProducts(context.Context, []models.Product) error { return nil }
func (Nop) DeleteProducts(context.Context, []uint) error          { return nil }
func (Nop) Search(context.Context, string, int, int) (int64, []Document, error) {
	return 0, []Document{}, nil
}
