package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/oksasatya/go-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-blog/internal/domain/repository"
)

// MemoryStore is an ObjectStore keeping objects in memory.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}, Types: map[string]string{}}
}

var _ repo.ObjectStore = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = buf.Bytes()
	s.Types[key] = contentType
	return key, nil
}

func (s *MemoryStore) URLFor(key string) string { return "https://media.test/" + key }

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	delete(s.Types, key)
	return nil
}

func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// Publisher records published messages as raw JSON.
type Publisher struct {
	mu       sync.Mutex
	Messages []json.RawMessage
	Err      error
}

func (p *Publisher) PublishJSON(_ context.Context, body any) error {
	if p.Err != nil {
		return p.Err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, b)
	return nil
}

// Types returns the "type" field of every recorded message.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		var v struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(m, &v)
		out = append(out, v.Type)
	}
	return out
}

// Indexer records index and delete calls.
type Indexer struct {
	mu      sync.Mutex
	Indexed []string
	Deleted []string
}

func (x *Indexer) IndexPost(_ context.Context, p *entity.Post) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Indexed = append(x.Indexed, p.ID)
	return nil
}

func (x *Indexer) DeletePost(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Deleted = append(x.Deleted, id)
	return nil
}
