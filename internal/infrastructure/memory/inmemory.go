// Package memory provides Memory Port implementations: in-memory and
// file-backed JSON, per §4.6/§6. Grounded on the teacher's
// persistence.MemoryMessageRepository (map + per-conversation id index).
package memory

import (
	"context"
	"sync"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

// InMemoryPort is the default, always-available Memory Port
// implementation. Each conversation key has its own mutex so writes are
// serialized per key without serializing unrelated conversations (§5).
type InMemoryPort struct {
	mu            sync.RWMutex
	byConversation map[string][]*entity.Message
	keyLocks      map[string]*sync.Mutex
}

func NewInMemoryPort() *InMemoryPort {
	return &InMemoryPort{
		byConversation: make(map[string][]*entity.Message),
		keyLocks:       make(map[string]*sync.Mutex),
	}
}

func (p *InMemoryPort) lockFor(conversationID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.keyLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		p.keyLocks[conversationID] = l
	}
	return l
}

func (p *InMemoryPort) Append(_ context.Context, conversationID string, messages []*entity.Message) error {
	keyLock := p.lockFor(conversationID)
	keyLock.Lock()
	defer keyLock.Unlock()

	p.mu.Lock()
	p.byConversation[conversationID] = append(p.byConversation[conversationID], messages...)
	p.mu.Unlock()
	return nil
}

func (p *InMemoryPort) Get(_ context.Context, conversationID string) ([]*entity.Message, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*entity.Message(nil), p.byConversation[conversationID]...), nil
}

func (p *InMemoryPort) Clear(_ context.Context, conversationID string) error {
	keyLock := p.lockFor(conversationID)
	keyLock.Lock()
	defer keyLock.Unlock()

	p.mu.Lock()
	delete(p.byConversation, conversationID)
	p.mu.Unlock()
	return nil
}
