package restoration

import (
	"context"
	"fmt"
	"sync"
)

// KV is a durable key-value store.
type KV interface {
	// Get returns the values of the present keys.
	Get(ctx context.Context, keys []string) (map[string]string, error)
	// Apply sets or deletes (nil value) every key in one atomic write.
	Apply(ctx context.Context, values map[string]*string) error
}

// Environment loads and saves the snapshot.
//
// Load returns (nil, nil) on a fresh install and a *Error for an
// inconsistent snapshot.
type Environment struct {
	Load func(ctx context.Context) (*StorageState, error)
	Save func(ctx context.Context, s StorageState) error
}

// KVEnvironment implements Environment on top of kv.
//
// Saves are serialized and a save whose context is already done is not
// applied, so cancelling an in-flight save before starting the next one
// makes the last started save win.
func KVEnvironment(kv KV) Environment {
	var mu sync.Mutex
	return Environment{
		Load: func(ctx context.Context) (*StorageState, error) {
			raw, err := kv.Get(ctx, Keys)
			if err != nil {
				return nil, fmt.Errorf("load state: %w", err)
			}
			var f Fields
			for k, v := range raw {
				f.set(k, &v)
			}
			return Decode(f)
		},
		Save: func(ctx context.Context, s StorageState) error {
			values, err := Encode(s)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := kv.Apply(ctx, values); err != nil {
				return fmt.Errorf("save state: %w", err)
			}
			return nil
		},
	}
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Apply implements KV.
func (m *MemoryKV) Apply(_ context.Context, values map[string]*string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		if v == nil {
			delete(m.values, k)
			continue
		}
		m.values[k] = *v
	}
	return nil
}

// Set stores a raw value. Used to seed legacy snapshots.
func (m *MemoryKV) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}
