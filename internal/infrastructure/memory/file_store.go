package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

// fileMessage is the on-disk shape of a Message — entity.Message keeps its
// fields unexported, so the file store round-trips through this record.
type fileMessage struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversationId"`
	Role           entity.Role        `json:"role"`
	Content        string             `json:"content"`
	ToolCalls      []entity.ToolCall  `json:"toolCalls,omitempty"`
	ToolCallID     string             `json:"toolCallId,omitempty"`
	ToolName       string             `json:"toolName,omitempty"`
	ToolStatus     entity.ToolStatus  `json:"toolStatus,omitempty"`
	Aborted        bool               `json:"aborted,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
	Usage          *entity.Usage      `json:"usage,omitempty"`
}

func toFileMessage(m *entity.Message) fileMessage {
	return fileMessage{
		ID:             m.ID(),
		ConversationID: m.ConversationID(),
		Role:           m.Role(),
		Content:        m.Content(),
		ToolCalls:      m.ToolCalls(),
		ToolCallID:     m.ToolCallID(),
		ToolName:       m.ToolName(),
		ToolStatus:     m.ToolStatus(),
		Aborted:        m.Aborted(),
		Timestamp:      m.Timestamp(),
		Usage:          m.Usage(),
	}
}

func fromFileMessage(fm fileMessage) *entity.Message {
	return entity.ReconstructMessage(fm.ID, fm.ConversationID, fm.Role, fm.Content, fm.ToolCalls,
		fm.ToolCallID, fm.ToolName, fm.ToolStatus, fm.Aborted, fm.Timestamp, fm.Usage)
}

// FilePort is a file-backed JSON Memory Port: a single file holding
// `conversationId → [Message]` (§6). Durable writes are atomic
// (write-then-rename); writers are serialized per conversation key, and
// the whole-file read/modify/write is itself serialized by a single
// mutex since every key lives in one file.
type FilePort struct {
	path string
	mu   sync.Mutex
}

func NewFilePort(path string) *FilePort {
	return &FilePort{path: path}
}

func (p *FilePort) Append(_ context.Context, conversationID string, messages []*entity.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.readAll()
	if err != nil {
		return err
	}
	for _, m := range messages {
		all[conversationID] = append(all[conversationID], toFileMessage(m))
	}
	return p.writeAll(all)
}

func (p *FilePort) Get(_ context.Context, conversationID string) ([]*entity.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Message, 0, len(all[conversationID]))
	for _, fm := range all[conversationID] {
		out = append(out, fromFileMessage(fm))
	}
	return out, nil
}

func (p *FilePort) Clear(_ context.Context, conversationID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.readAll()
	if err != nil {
		return err
	}
	delete(all, conversationID)
	return p.writeAll(all)
}

func (p *FilePort) readAll() (map[string][]fileMessage, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]fileMessage), nil
		}
		return nil, fmt.Errorf("read memory file: %w", err)
	}
	if len(data) == 0 {
		return make(map[string][]fileMessage), nil
	}
	var all map[string][]fileMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode memory file: %w", err)
	}
	return all, nil
}

// writeAll performs an atomic write-then-rename: marshal to a sibling
// temp file, fsync, then rename over the target (§6).
func (p *FilePort) writeAll(all map[string][]fileMessage) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory file: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".memory-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp memory file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp memory file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp memory file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("rename memory file: %w", err)
	}
	return nil
}
