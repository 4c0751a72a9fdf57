package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

const DefaultUserIndex = "users"

type userDoc struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// UserDirectory keeps a searchable copy of user profiles. The database stays
// the source of truth; search only yields ids.
type UserDirectory struct {
	es    *elasticsearch.Client
	index string
}

func NewUserDirectory(es *elasticsearch.Client, index string) *UserDirectory {
	if index == "" {
		index = DefaultUserIndex
	}
	return &UserDirectory{es: es, index: index}
}

func (d *UserDirectory) EnsureIndex(ctx context.Context) error {
	res, err := d.es.Indices.Exists([]string{d.index}, d.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"email": map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
				"name":  map[string]any{"type": "text"},
				"role":  map[string]any{"type": "keyword"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(mapping); err != nil {
		return err
	}
	res, err = d.es.Indices.Create(d.index,
		d.es.Indices.Create.WithContext(ctx),
		d.es.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return checkResponse("create index", res)
}

func (d *UserDirectory) Index(ctx context.Context, u *models.User) error {
	doc := userDoc{Email: u.Email, Role: u.Role}
	if u.Name != nil {
		doc.Name = *u.Name
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}
	res, err := d.es.Index(d.index, &buf,
		d.es.Index.WithContext(ctx),
		d.es.Index.WithDocumentID(strconv.FormatUint(uint64(u.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index user %d: %w", u.ID, err)
	}
	return checkResponse("index user", res)
}

func (d *UserDirectory) Delete(ctx context.Context, id uint) error {
	res, err := d.es.Delete(d.index, strconv.FormatUint(uint64(id), 10),
		d.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse("delete user", res)
}

// Search runs a fuzzy multi_match over email and name and returns matching
// user ids in relevance order.
func (d *UserDirectory) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"email^2", "name"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": false,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := d.es.Search(
		d.es.Search.WithContext(ctx),
		d.es.Search.WithIndex(d.index),
		d.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search users: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search users: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return r.Hits.Total.Value, ids, nil
}

func checkResponse(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s: %s: %s", op, res.Status(), msg)
	}
	return nil
}
