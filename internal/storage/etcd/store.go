// Package etcd stores rosters under a key prefix in etcd. Each cycle runs in
// a software transaction with serializable isolation; a concurrent write to
// the same key makes the transaction retry with fresh state, so the mutator
// may run more than once.
package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/storage"
)

const driver = "etcd"

type Store struct {
	cli    *clientv3.Client
	prefix string
	owned  bool
}

var _ core.RosterStore = (*Store)(nil)

// Dial connects to endpoints and returns a store that closes the client on Close.
func Dial(endpoints []string, dialTimeout time.Duration, prefix string) (*Store, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("etcd store: no endpoints")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		DialOptions: []grpc.DialOption{grpc.WithBlock()},
		Logger:      zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("etcd store: dial: %w", err)
	}
	s := New(cli, prefix)
	s.owned = true
	return s, nil
}

// New wraps an existing client. The caller keeps ownership of cli.
func New(cli *clientv3.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "/rota"
	}
	return &Store{cli: cli, prefix: path.Join(prefix, "rosters") + "/"}
}

func (s *Store) keyOf(key domain.Key) string {
	return s.prefix + key.String()
}

// decode treats an absent or unreadable value as an empty roster.
func decode(key domain.Key, raw string) domain.Roster {
	var r domain.Roster
	if raw == "" {
		return r
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		storage.Corrupt(driver, key.String(), err)
		return domain.Roster{}
	}
	return r
}

func encode(r domain.Roster) (string, error) {
	if r.Members == nil {
		r.Members = []domain.Member{}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode roster: %w", err)
	}
	return string(raw), nil
}

func (s *Store) stm(ctx context.Context, apply func(concurrency.STM) error) error {
	_, err := concurrency.NewSTM(s.cli, apply,
		concurrency.WithAbortContext(ctx),
		concurrency.WithIsolation(concurrency.SerializableSnapshot),
	)
	return err
}

func (s *Store) Get(ctx context.Context, key domain.Key) (domain.Roster, error) {
	k := s.keyOf(key)
	var out domain.Roster
	err := s.stm(ctx, func(stm concurrency.STM) error {
		raw := stm.Get(k)
		out = decode(key, raw)
		if raw != "" {
			return nil
		}
		val, err := encode(out)
		if err != nil {
			return err
		}
		stm.Put(k, val)
		return nil
	})
	if err != nil {
		return domain.Roster{}, fmt.Errorf("etcd get %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, key domain.Key, fn core.Mutator) error {
	k := s.keyOf(key)
	err := s.stm(ctx, func(stm concurrency.STM) error {
		cur := decode(key, stm.Get(k))
		next, commit, err := storage.Apply(key, cur, fn)
		if err != nil || !commit {
			return err
		}
		val, err := encode(next)
		if err != nil {
			return err
		}
		stm.Put(k, val)
		return nil
	})
	if err != nil {
		return fmt.Errorf("etcd update %s: %w", key, err)
	}
	return nil
}

func (s *Store) Groups(ctx context.Context) ([]domain.GroupID, error) {
	resp, err := s.cli.Get(ctx, s.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd list groups: %w", err)
	}
	seen := make(map[domain.GroupID]struct{})
	var out []domain.GroupID
	for _, kv := range resp.Kvs {
		key, err := domain.ParseKey(strings.TrimPrefix(string(kv.Key), s.prefix))
		if err != nil {
			continue
		}
		var r domain.Roster
		if json.Unmarshal(kv.Value, &r) != nil || r.Empty() {
			continue
		}
		if _, ok := seen[key.Group]; !ok {
			seen[key.Group] = struct{}{}
			out = append(out, key.Group)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Close() error {
	if s.owned {
		return s.cli.Close()
	}
	return nil
}
