// Package memory defines the Memory Port (§4.6): a keyed append-only
// message log. Grounded on domain/repository.MessageRepository and its
// in-memory implementation — NOT on the teacher's other memory.go, which
// is a vector/embedding store (a Non-goal; see DESIGN.md).
package memory

import (
	"context"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

// Port is the Memory Port contract. Ordering is insertion order; writes
// are serialized per key; concurrent readers observe a prefix of the
// write order (§4.6, §5).
type Port interface {
	Append(ctx context.Context, conversationID string, messages []*entity.Message) error
	Get(ctx context.Context, conversationID string) ([]*entity.Message, error)
	Clear(ctx context.Context, conversationID string) error
}
