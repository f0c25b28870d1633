// Package natscache provides a NATS JetStream KeyValue-backed cachecore.Store.
//
// Keys are stored as "p.<namespace>.k.<key>" with both parts base64url
// encoded, so arbitrary cache keys map onto valid KeyValue keys. Unless the
// bucket enforces TTL itself, values carry an expiry header checked on read.
package natscache

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
	"github.com/nats-io/nats.go"
)

const (
	defaultTTL    = 5 * time.Minute
	defaultPrefix = "app"
	defaultBucket = "cache"
	headerSize    = 12
)

var (
	envelopeMagic = []byte("NCV1")
	errNoKeyValue = errors.New("nats cache key-value unavailable")
)

// KeyValue captures the subset of nats.KeyValue used by the store.
type KeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
	Purge(key string, opts ...nats.DeleteOpt) error
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
}

// Config configures a NATS JetStream KeyValue-backed cache store.
type Config struct {
	cachecore.BaseConfig
	KeyValue KeyValue

	// BucketTTL leaves expiry to the bucket's own TTL instead of per-value
	// envelopes.
	BucketTTL bool
}

type store struct {
	kv          KeyValue
	conn        *nats.Conn
	defaultTTL  time.Duration
	prefix      string
	scopePrefix string
	bucketTTL   bool
}

// New builds a NATS-backed cachecore.Store.
//
// Defaults:
// - DefaultTTL: 5*time.Minute when zero
// - Prefix: "app" when empty
// - BucketTTL: false (TTL enforced in value envelope metadata)
// - KeyValue: required for real operations (nil allowed, operations return errors)
//
// Example: inject NATS key-value bucket via explicit driver config
//
//	var kv natscache.KeyValue // provided by your NATS setup
//	store := natscache.New(natscache.Config{
//		BaseConfig: cachecore.BaseConfig{
//			DefaultTTL: 5 * time.Minute,
//			Prefix:     "app",
//		},
//		KeyValue:  kv,
//		BucketTTL: false,
//	})
//	fmt.Println(store.Driver()) // nats
func New(cfg Config) cachecore.Store {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	s := &store{
		kv:         cfg.KeyValue,
		defaultTTL: ttl,
		bucketTTL:  cfg.BucketTTL,
	}
	s.SetNamespace(prefix)
	return s
}

// DialConfig describes a NATS server and bucket for Dial.
type DialConfig struct {
	Config

	URL    string
	Bucket string
}

// Dial connects to a NATS server, opens (or creates) the JetStream KeyValue
// bucket and returns a store owning the connection. Close releases it.
// ctx is checked before setup only; the store's operations do not inherit it.
//
// Defaults:
// - URL: nats.DefaultURL when empty
// - Bucket: "cache" when empty
func Dial(ctx context.Context, cfg DialConfig) (cachecore.Store, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nc, err := nats.Connect(url, nats.Name("cacheprovider"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kvCfg := &nats.KeyValueConfig{Bucket: bucket}
		if cfg.BucketTTL {
			kvCfg.TTL = cfg.DefaultTTL
			if kvCfg.TTL <= 0 {
				kvCfg.TTL = defaultTTL
			}
		}
		kv, err = js.CreateKeyValue(kvCfg)
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open key-value bucket %q: %w", bucket, err)
	}
	cfg.KeyValue = kv
	s := New(cfg.Config).(*store)
	s.conn = nc
	return s, nil
}

func (s *store) Driver() cachecore.Driver { return cachecore.DriverNATS }

func (s *store) SetNamespace(namespace string) {
	s.prefix = namespace
	s.scopePrefix = "p." + encodeKeyPart(namespace) + ".k."
}

func (s *store) Namespace() string { return s.prefix }

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errNoKeyValue
	}
	cacheKey := s.cacheKey(key)
	entry, err := s.kv.Get(cacheKey)
	if isMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() == nats.KeyValueDelete || entry.Operation() == nats.KeyValuePurge {
		return nil, false, nil
	}
	if s.bucketTTL {
		return cachecore.CloneBytes(entry.Value()), true, nil
	}
	expiresAt, value, wrapped := decodeEnvelope(entry.Value())
	if !wrapped {
		return cachecore.CloneBytes(entry.Value()), true, nil
	}
	if expiresAt > 0 && time.Now().UnixMilli() > expiresAt {
		_ = s.kv.Purge(cacheKey)
		return nil, false, nil
	}
	return cachecore.CloneBytes(value), true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	body := cachecore.CloneBytes(value)
	if !s.bucketTTL {
		body = s.encodeEnvelope(value, ttl)
	}
	_, err := s.kv.Put(s.cacheKey(key), body)
	return err
}

func (s *store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *store) Delete(_ context.Context, key string) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	err := s.kv.Delete(s.cacheKey(key))
	if isMiss(err) {
		return nil
	}
	return err
}

// Flush purges the keys of this store's namespace.
func (s *store) Flush(_ context.Context) error {
	if s.kv == nil {
		return errNoKeyValue
	}
	lister, err := s.kv.ListKeys(nats.IgnoreDeletes())
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return err
	}
	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		if !strings.HasPrefix(key, s.scopePrefix) {
			continue
		}
		if err := s.kv.Purge(key); err != nil && !isMiss(err) {
			return err
		}
	}
	for err := range lister.Error() {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close drains the connection opened by Dial. Stores built with New do not
// own their connection and Close is a no-op.
func (s *store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

func (s *store) cacheKey(key string) string {
	return s.scopePrefix + encodeKeyPart(key)
}

func (s *store) encodeEnvelope(value []byte, ttl time.Duration) []byte {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := time.Now().Add(ttl).UnixMilli()
	body := make([]byte, headerSize+len(value))
	copy(body[:4], envelopeMagic)
	binary.BigEndian.PutUint64(body[4:headerSize], uint64(expiresAt))
	copy(body[headerSize:], value)
	return body
}

func decodeEnvelope(body []byte) (int64, []byte, bool) {
	if len(body) < headerSize || !bytes.Equal(body[:4], envelopeMagic) {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(body[4:headerSize])), body[headerSize:], true
}

func isMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

func encodeKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}
