package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/pkg/helpers"
)

const esTimeout = 3 * time.Second

// BookIndex keeps the Elasticsearch books index in step with the store.
// A nil *BookIndex, or one without a client, indexes nothing.
type BookIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewBookIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *BookIndex {
	return &BookIndex{ES: es, Index: index, Logger: logger}
}

func (x *BookIndex) Enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

const booksIndexBody = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "title":            {"type": "text"},
      "author":           {"type": "text"},
      "isbn":             {"type": "keyword"},
      "year":             {"type": "integer"},
      "description":      {"type": "text"},
      "total_copies":     {"type": "integer"},
      "available_copies": {"type": "integer"},
      "cover_url":        {"type": "keyword", "index": false},
      "updated_at":       {"type": "date"}
    }
  }
}`

func bookDocument(b *entity.Book) map[string]any {
	doc := map[string]any{
		"id":               b.ID,
		"title":            b.Title,
		"author":           b.Author,
		"total_copies":     b.TotalCopies,
		"available_copies": b.AvailableCopies,
		"cover_url":        b.CoverURL,
		"updated_at":       b.UpdatedAt.Format(time.RFC3339Nano),
	}
	if b.ISBN != nil {
		doc["isbn"] = *b.ISBN
	}
	if b.Year != nil {
		doc["year"] = *b.Year
	}
	if b.Description != nil {
		doc["description"] = *b.Description
	}
	return doc
}

// Ensure creates the index with its mapping when it does not exist.
func (x *BookIndex) Ensure(ctx context.Context) error {
	if !x.Enabled() {
		return fmt.Errorf("%w: search is not configured", apperr.ErrUnavailable)
	}
	if err := helpers.EnsureIndex(ctx, x.ES, x.Index, booksIndexBody); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	return nil
}

// Put indexes b and logs failures; the store stays the source of truth.
func (x *BookIndex) Put(ctx context.Context, b *entity.Book) {
	if !x.Enabled() || b == nil {
		return
	}
	if err := x.put(ctx, b); err != nil {
		x.log().WithError(err).WithField("book_id", b.ID).Warn("es index failed")
	}
}

func (x *BookIndex) put(ctx context.Context, b *entity.Book) error {
	body, err := json.Marshal(bookDocument(b))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: b.ID, Body: strings.NewReader(string(body)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index %s: %s", b.ID, res.Status())
	}
	return nil
}

func (x *BookIndex) Remove(ctx context.Context, id string) {
	if !x.Enabled() {
		return
	}
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		x.log().WithError(err).WithField("book_id", id).Warn("es delete failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		x.log().WithField("status", res.Status()).WithField("book_id", id).Warn("es delete response error")
	}
}

// Search runs a multi_match on title, author and isbn and returns the
// stored documents.
func (x *BookIndex) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "author", "isbn"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", apperr.ErrUnavailable, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", apperr.ErrUnavailable, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (x *BookIndex) log() *logrus.Logger {
	if x.Logger == nil {
		return logrus.StandardLogger()
	}
	return x.Logger
}
