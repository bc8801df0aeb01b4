package lobbylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
)

const (
	DefaultBucket = "racelink_lobby"
	keyPrefix     = "room."
)

// keyValue is the subset of jetstream.KeyValue the store uses
type keyValue interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
	ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error)
}

type record struct {
	Instance string           `json:"instance"`
	Entry    model.LobbyEntry `json:"entry"`
}

// KVStore keeps one key per room in a JetStream key value bucket. Keys
// expire with the bucket TTL, so rooms of vanished instances disappear.
type KVStore struct {
	kv       keyValue
	instance string
	mu       sync.Mutex
	own      map[string]struct{}
	log      *log.Logger
}

var _ Store = (*KVStore)(nil)

// NewKVStore creates (or updates) the bucket and returns a store for it
func NewKVStore(ctx context.Context, nc *nats.Conn, bucket, instance string) (*KVStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "racelink room browser",
		TTL:         model.RoomTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("lobby bucket %s: %w", bucket, err)
	}
	return newKVStore(kv, instance), nil
}

func newKVStore(kv keyValue, instance string) *KVStore {
	return &KVStore{
		kv:       kv,
		instance: instance,
		own:      map[string]struct{}{},
		log:      log.Default().Named("lobbylist.nats"),
	}
}

func (s *KVStore) Publish(ctx context.Context, entries []model.LobbyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := make(map[string]struct{}, len(entries))
	var errs []error
	for i := range entries {
		key := keyPrefix + entries[i].ID
		data, err := json.Marshal(record{Instance: s.instance, Entry: entries[i]})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.kv.Put(ctx, key, data); err != nil {
			errs = append(errs, err)
			continue
		}
		current[key] = struct{}{}
	}
	for key := range s.own {
		if _, ok := current[key]; ok {
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			errs = append(errs, err)
			// retry with the next publish
			current[key] = struct{}{}
		}
	}
	s.own = current
	return errors.Join(errs...)
}

func (s *KVStore) List(ctx context.Context) ([]model.LobbyEntry, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []model.LobbyEntry{}, nil
		}
		return nil, err
	}
	//nolint:errcheck // by design
	defer lister.Stop()
	ret := []model.LobbyEntry{}
	for key := range lister.Keys() {
		kve, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		var r record
		if err := json.Unmarshal(kve.Value(), &r); err != nil {
			s.log.Warn("skipping invalid lobby entry",
				log.String("key", key), log.ErrorField(err))
			continue
		}
		ret = append(ret, r.Entry)
	}
	sortEntries(ret)
	return ret, nil
}
