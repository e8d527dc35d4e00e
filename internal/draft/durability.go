package draft

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roach88/quotedesk/internal/ledger"
)

// DefaultKeyPrefix is prepended to request IDs to form draft keys.
const DefaultKeyPrefix = "sentBackDraft_"

// KV is the durable key-value backend for drafts.
// LoadDraft returns (nil, nil) when nothing is stored under key.
type KV interface {
	LoadDraft(ctx context.Context, key string) ([]byte, error)
	SaveDraft(ctx context.Context, key string, data []byte) error
	ClearDraft(ctx context.Context, key string) error
}

// Key returns the durable key of a request's draft.
func Key(prefix string, id ledger.RequestID) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + string(id)
}

// Load reads a draft from kv. Missing, unreadable or corrupt data yields an
// empty draft; the failure is logged at warn level and never returned.
func Load(ctx context.Context, kv KV, key string, logger *slog.Logger) ledger.RFQ {
	if logger == nil {
		logger = discardLogger()
	}
	data, err := kv.LoadDraft(ctx, key)
	if err != nil {
		logger.Warn("draft unreadable, starting empty", "key", key, "error", err)
		return ledger.NewRFQ()
	}
	if len(data) == 0 {
		return ledger.NewRFQ()
	}
	var rfq ledger.RFQ
	if err := json.Unmarshal(data, &rfq); err != nil {
		logger.Warn("draft corrupt, starting empty", "key", key, "error", err)
		return ledger.NewRFQ()
	}
	return rfq.Clone()
}

// Save writes a draft to kv.
func Save(ctx context.Context, kv KV, key string, rfq ledger.RFQ) error {
	data, err := json.Marshal(rfq)
	if err != nil {
		return err
	}
	return kv.SaveDraft(ctx, key, data)
}

// MemoryKV is an in-process KV backend.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

var _ KV = (*MemoryKV)(nil)

func (m *MemoryKV) LoadDraft(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) SaveDraft(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(data))
	copy(v, data)
	m.data[key] = v
	return nil
}

func (m *MemoryKV) ClearDraft(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Has reports whether a draft is stored under key.
func (m *MemoryKV) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}
