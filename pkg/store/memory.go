package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryVectorStore is the in-process VectorStore used by tests and by
// services running without a MongoDB address.
type MemoryVectorStore struct {
	mu           sync.Mutex
	videos       map[string]*VideoRecord
	cards        map[string]*CardRecord
	cardOrder    []string
	products     map[string]*ProductRecord
	productCards map[string]*ProductCardRecord
	pcOrder      []string
}

// NewMemoryVectorStore creates an empty in-memory vector store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		videos:       make(map[string]*VideoRecord),
		cards:        make(map[string]*CardRecord),
		products:     make(map[string]*ProductRecord),
		productCards: make(map[string]*ProductCardRecord),
	}
}

func (s *MemoryVectorStore) UpsertVideo(_ context.Context, v *VideoRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[v.UUID]; ok {
		return false, nil
	}
	cp := *v
	s.videos[v.UUID] = &cp
	return true, nil
}

func (s *MemoryVectorStore) InsertCardIfAbsent(_ context.Context, c *CardRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.UUID]; ok {
		return false, nil
	}
	cp := *c
	s.cards[c.UUID] = &cp
	s.cardOrder = append(s.cardOrder, c.UUID)
	return true, nil
}

func (s *MemoryVectorStore) UpsertProduct(_ context.Context, p *ProductRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.UUID]; ok {
		return false, nil
	}
	cp := *p
	s.products[p.UUID] = &cp
	return true, nil
}

func (s *MemoryVectorStore) InsertProductCardIfAbsent(_ context.Context, c *ProductCardRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.productCards[c.UUID]; ok {
		return false, nil
	}
	cp := *c
	s.productCards[c.UUID] = &cp
	s.pcOrder = append(s.pcOrder, c.UUID)
	return true, nil
}

func (s *MemoryVectorStore) SearchCards(_ context.Context, query, destination string, limit int) ([]CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := Tokenize(query)
	var candidates []scored[CardRecord]
	for i, id := range s.cardOrder {
		c := s.cards[id]
		if destination != "" && c.Destination != "" && !strings.EqualFold(c.Destination, destination) {
			continue
		}
		candidates = append(candidates, scored[CardRecord]{
			item:  *c,
			score: ContainmentScore(tokens, cardText(c)),
			order: i,
		})
	}
	return rankByScore(candidates, limit), nil
}

func (s *MemoryVectorStore) SearchProductCards(_ context.Context, signature, destination, market string, limit int) ([]ProductCardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := Tokenize(signature)
	var candidates []scored[ProductCardRecord]
	for i, id := range s.pcOrder {
		c := s.productCards[id]
		if destination != "" && c.Destination != "" && !strings.EqualFold(c.Destination, destination) {
			continue
		}
		if market != "" && c.Market != "" && !strings.EqualFold(c.Market, market) {
			continue
		}
		candidates = append(candidates, scored[ProductCardRecord]{
			item:  *c,
			score: ContainmentScore(tokens, productCardText(c)),
			order: i,
		})
	}
	return rankByScore(candidates, limit), nil
}

// MemoryGraphStore is the in-process GraphStore.
type MemoryGraphStore struct {
	mu        sync.Mutex
	nodes     map[string]*NodeRecord
	nodeOrder []string
	edges     []*EdgeRecord
	edgeKeys  map[string]bool
}

// NewMemoryGraphStore creates an empty in-memory graph store.
func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{
		nodes:    make(map[string]*NodeRecord),
		edgeKeys: make(map[string]bool),
	}
}

func (s *MemoryGraphStore) UpsertNode(_ context.Context, n *NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; !ok {
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}
	cp := *n
	s.nodes[n.ID] = &cp
	return nil
}

func (s *MemoryGraphStore) UpsertEdge(_ context.Context, e *EdgeRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(e)
	if s.edgeKeys[key] {
		return false, nil
	}
	s.edgeKeys[key] = true
	cp := *e
	s.edges = append(s.edges, &cp)
	return true, nil
}

func (s *MemoryGraphStore) FindNodes(_ context.Context, query string, limit int) ([]NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := Tokenize(query)
	var candidates []scored[NodeRecord]
	for i, id := range s.nodeOrder {
		n := s.nodes[id]
		text := n.Name + " " + n.ID
		for _, a := range n.Aliases {
			text += " " + a
		}
		candidates = append(candidates, scored[NodeRecord]{
			item:  *n,
			score: ContainmentScore(tokens, text),
			order: i,
		})
	}
	return rankByScore(candidates, limit), nil
}

func (s *MemoryGraphStore) EdgesAmong(_ context.Context, nodeIDs []string) ([]EdgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		ids[id] = true
	}
	var out []EdgeRecord
	for _, e := range s.edges {
		if ids[e.Source] && ids[e.Target] {
			out = append(out, *e)
		}
	}
	return out, nil
}

func edgeKey(e *EdgeRecord) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", e.Type, e.Source, e.Target, e.StartSec, e.EndSec)
}
