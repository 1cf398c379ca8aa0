// Package store is the key-value persistence injected into the runtime and
// reporter. Keys are plain strings; scoping by artifact is the caller's job
// (see config.StoreKey).
package store

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("store: key not found")

// Op is a single mutation applied as part of an atomic batch.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Put returns an Op that writes value under key.
func Put(key string, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Del returns an Op that removes key.
func Del(key string) Op {
	return Op{Key: key, Delete: true}
}

// Store is the persistence contract. Apply must be all-or-nothing.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Apply(ctx context.Context, ops ...Op) error
}

func applyTo(data map[string][]byte, ops []Op) {
	for _, op := range ops {
		if op.Delete {
			delete(data, op.Key)
			continue
		}
		v := make([]byte, len(op.Value))
		copy(v, op.Value)
		data[op.Key] = v
	}
}

func listFrom(data map[string][]byte, prefix string) []string {
	keys := make([]string, 0)
	for k := range data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}
