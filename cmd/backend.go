package cmd

import (
	"context"
	"encoding/json"

	"github.com/illarion/microkv/internal/server"
	"github.com/illarion/microkv/pkg/microkv"
)

// backend is what the data commands run against: the local store file, or a
// server given by --server.
type backend interface {
	Put(ctx context.Context, ns, key string, value json.RawMessage) error
	Get(ctx context.Context, ns, key string) (json.RawMessage, error)
	Delete(ctx context.Context, ns, key string) (bool, error)
	Keys(ctx context.Context, ns string, sorted bool) ([]string, error)
	Clear(ctx context.Context, ns string) error
	Namespaces(ctx context.Context) ([]string, error)
	Close() error
}

func openBackend() (backend, error) {
	if addr := remoteAddr(); addr != "" {
		logger.Debug("using remote store", "addr", addr)
		return remoteBackend{server.NewClient(addr)}, nil
	}

	path, err := storePath()
	if err != nil {
		return nil, err
	}
	db, err := openStore(path)
	if err != nil {
		return nil, err
	}
	return localBackend{db}, nil
}

type localBackend struct {
	db *microkv.MicroKV
}

func (b localBackend) Put(_ context.Context, ns, key string, value json.RawMessage) error {
	return b.db.Namespace(ns).Put(key, value)
}

func (b localBackend) Get(_ context.Context, ns, key string) (json.RawMessage, error) {
	return microkv.Get[json.RawMessage](b.db.Namespace(ns), key)
}

func (b localBackend) Delete(_ context.Context, ns, key string) (bool, error) {
	return b.db.Namespace(ns).Delete(key)
}

func (b localBackend) Keys(_ context.Context, ns string, sorted bool) ([]string, error) {
	if sorted {
		return b.db.Namespace(ns).SortedKeys()
	}
	return b.db.Namespace(ns).Keys()
}

func (b localBackend) Clear(_ context.Context, ns string) error {
	return b.db.Namespace(ns).Clear()
}

func (b localBackend) Namespaces(context.Context) ([]string, error) {
	return b.db.Namespaces()
}

func (b localBackend) Close() error {
	return b.db.Close()
}

type remoteBackend struct {
	*server.Client
}

func (remoteBackend) Close() error {
	return nil
}

// printValue writes a JSON string unquoted and anything else as JSON.
func printValue(value json.RawMessage, raw bool) string {
	if !raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s
		}
	}
	return string(value)
}
