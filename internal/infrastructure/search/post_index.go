// Package search keeps an Elasticsearch index of posts for substring search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// PostIndex indexes and queries posts. Every post is indexed regardless of
// status; publication is filtered at query time so scheduled posts appear on time.
type PostIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewPostIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *PostIndex {
	return &PostIndex{ES: es, Index: index, Logger: logger}
}

// Enabled reports whether a client and index are configured.
func (x *PostIndex) Enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

type postDoc struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	AuthorID        string    `json:"author_id"`
	AuthorUsername  string    `json:"author_username"`
	Summary         string    `json:"summary"`
	Content         string    `json:"content"`
	FeaturedImage   string    `json:"featured_image"`
	PublishedDate   time.Time `json:"published_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Status          string    `json:"status"`
	MetaDescription string    `json:"meta_description"`
	Keywords        string    `json:"keywords"`
}

func toDoc(p *entity.Post) postDoc {
	return postDoc{
		ID: p.ID, Title: p.Title, Slug: p.Slug, AuthorID: p.AuthorID, AuthorUsername: p.AuthorUsername,
		Summary: p.Summary, Content: p.Content, FeaturedImage: p.FeaturedImage,
		PublishedDate: p.PublishedDate, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
		Status: string(p.Status), MetaDescription: p.MetaDescription, Keywords: p.Keywords,
	}
}

func (d postDoc) toPost() entity.Post {
	return entity.Post{
		ID: d.ID, Title: d.Title, Slug: d.Slug, AuthorID: d.AuthorID, AuthorUsername: d.AuthorUsername,
		Summary: d.Summary, Content: d.Content, FeaturedImage: d.FeaturedImage,
		PublishedDate: d.PublishedDate, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
		Status: entity.PostStatus(d.Status), MetaDescription: d.MetaDescription, Keywords: d.Keywords,
	}
}

// searchable fields use the wildcard type so "*term*" queries behave like SQL ILIKE.
var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":               map[string]any{"type": "keyword"},
			"slug":             map[string]any{"type": "keyword"},
			"author_id":        map[string]any{"type": "keyword"},
			"status":           map[string]any{"type": "keyword"},
			"title":            map[string]any{"type": "wildcard"},
			"summary":          map[string]any{"type": "wildcard"},
			"content":          map[string]any{"type": "wildcard"},
			"author_username":  map[string]any{"type": "wildcard"},
			"published_date":   map[string]any{"type": "date"},
			"created_at":       map[string]any{"type": "date"},
			"updated_at":       map[string]any{"type": "date"},
			"featured_image":   map[string]any{"type": "keyword", "index": false},
			"meta_description": map[string]any{"type": "text"},
			"keywords":         map[string]any{"type": "text"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *PostIndex) EnsureIndex(ctx context.Context) error {
	if !x.Enabled() {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Indices.Exists([]string{x.Index}, x.ES.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	b, _ := json.Marshal(indexMapping)
	res, err = x.ES.Indices.Create(x.Index, x.ES.Indices.Create.WithContext(c), x.ES.Indices.Create.WithBody(bytes.NewReader(b)))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", x.Index, res.Status())
	}
	return nil
}

func (x *PostIndex) IndexPost(ctx context.Context, p *entity.Post) error {
	if !x.Enabled() {
		return nil
	}
	b, err := json.Marshal(toDoc(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		x.log().WithError(err).WithField("post_id", p.ID).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		x.log().WithField("status", res.Status()).WithField("post_id", p.ID).Warn("es index response error")
		return fmt.Errorf("index post %s: %s", p.ID, res.Status())
	}
	return nil
}

func (x *PostIndex) DeletePost(ctx context.Context, id string) error {
	if !x.Enabled() {
		return nil
	}
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete post %s: %s", id, res.Status())
	}
	return nil
}

func escapeWildcard(q string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(q)
}

func buildSearchQuery(q string, now time.Time, limit, offset int) map[string]any {
	pattern := "*" + escapeWildcard(q) + "*"
	should := make([]any, 0, 4)
	for _, f := range []string{"title", "summary", "content", "author_username"} {
		should = append(should, map[string]any{
			"wildcard": map[string]any{f: map[string]any{"value": pattern, "case_insensitive": true}},
		})
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"status": string(entity.StatusPublished)}},
					map[string]any{"range": map[string]any{"published_date": map[string]any{"lte": now.UTC().Format(time.RFC3339Nano)}}},
				},
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"sort":             []any{map[string]any{"published_date": "desc"}},
		"from":             offset,
		"size":             limit,
		"track_total_hits": true,
	}
}

// Search returns published posts whose title, summary, content or author
// username contains q, newest first, plus the total hit count.
func (x *PostIndex) Search(ctx context.Context, q string, now time.Time, limit, offset int) ([]entity.Post, int, error) {
	if !x.Enabled() {
		return nil, 0, fmt.Errorf("search not configured")
	}
	b, _ := json.Marshal(buildSearchQuery(q, now, limit, offset))

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search posts: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source postDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, err
	}

	out := make([]entity.Post, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source.toPost())
	}
	return out, parsed.Hits.Total.Value, nil
}

func (x *PostIndex) log() *logrus.Entry {
	if x.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		return l.WithField("component", "search")
	}
	return x.Logger.WithField("component", "search")
}
