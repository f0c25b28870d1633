package natscache

import (
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/nats-io/nats.go"
)

// stubKeyValue is an in-memory KeyValue used for unit tests.
type stubKeyValue struct {
	bucket string
	rev    uint64

	entries map[string]*stubEntry

	getErr    error
	putErr    error
	deleteErr error
	purgeErr  error
	listErr   error
}

func newStubKeyValue(bucket string) *stubKeyValue {
	return &stubKeyValue{
		bucket:  bucket,
		entries: make(map[string]*stubEntry),
	}
}

func (s *stubKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	if entry.op == nats.KeyValueDelete || entry.op == nats.KeyValuePurge {
		return nil, nats.ErrKeyDeleted
	}
	return entry.clone(), nil
}

func (s *stubKeyValue) Put(key string, value []byte) (uint64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	s.rev++
	s.entries[key] = &stubEntry{
		bucket:   s.bucket,
		key:      key,
		value:    cachecore.CloneBytes(value),
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValuePut,
	}
	return s.rev, nil
}

func (s *stubKeyValue) Delete(key string, _ ...nats.DeleteOpt) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.rev++
	s.entries[key] = &stubEntry{
		bucket:   s.bucket,
		key:      key,
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValueDelete,
	}
	return nil
}

func (s *stubKeyValue) Purge(key string, _ ...nats.DeleteOpt) error {
	if s.purgeErr != nil {
		return s.purgeErr
	}
	delete(s.entries, key)
	return nil
}

func (s *stubKeyValue) ListKeys(_ ...nats.WatchOpt) (nats.KeyLister, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return newStubKeyLister(keys), nil
}

type stubEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
	delta    uint64
	op       nats.KeyValueOp
}

func (e *stubEntry) clone() *stubEntry {
	cp := *e
	cp.value = cachecore.CloneBytes(e.value)
	return &cp
}

func (e *stubEntry) Bucket() string             { return e.bucket }
func (e *stubEntry) Key() string                { return e.key }
func (e *stubEntry) Value() []byte              { return cachecore.CloneBytes(e.value) }
func (e *stubEntry) Revision() uint64           { return e.revision }
func (e *stubEntry) Created() time.Time         { return e.created }
func (e *stubEntry) Delta() uint64              { return e.delta }
func (e *stubEntry) Operation() nats.KeyValueOp { return e.op }

type stubKeyLister struct {
	keysCh chan string
	errCh  chan error
}

func newStubKeyLister(keys []string) *stubKeyLister {
	keysCh := make(chan string, len(keys))
	errCh := make(chan error)
	for _, key := range keys {
		keysCh <- key
	}
	close(keysCh)
	close(errCh)
	return &stubKeyLister{keysCh: keysCh, errCh: errCh}
}

func (l *stubKeyLister) Keys() <-chan string { return l.keysCh }
func (l *stubKeyLister) Error() <-chan error { return l.errCh }
func (l *stubKeyLister) Stop() error         { return nil }
