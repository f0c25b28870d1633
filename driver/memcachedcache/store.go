// Package memcachedcache provides a Memcached-backed cachecore.Store speaking
// the text protocol over pooled TCP connections.
//
// Keys are distributed across servers by CRC32 hash. Flush issues flush_all
// on every server, so it clears other namespaces sharing the cluster.
package memcachedcache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
)

const (
	defaultTTL    = 5 * time.Minute
	defaultPrefix = "app"
	poolSize      = 16
)

var dialMemcached = func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: 3 * time.Second}
	return d.DialContext(ctx, network, addr)
}

// Config configures a Memcached-backed cache store.
type Config struct {
	cachecore.BaseConfig
	Addresses []string
}

type store struct {
	addrs      []string
	defaultTTL time.Duration
	prefix     string

	mu     sync.Mutex
	pools  map[string]chan *memcachedConn
	closed bool
}

type memcachedConn struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
}

// New builds a Memcached-backed cachecore.Store.
//
// Defaults:
// - Addresses: []string{"127.0.0.1:11211"} when empty
// - DefaultTTL: 5*time.Minute when zero
// - Prefix: "app" when empty
//
// Example: memcached cluster via explicit driver config
//
//	store := memcachedcache.New(memcachedcache.Config{
//		BaseConfig: cachecore.BaseConfig{
//			DefaultTTL: 5 * time.Minute,
//			Prefix:     "app",
//		},
//		Addresses: []string{"10.0.0.1:11211", "10.0.0.2:11211"},
//	})
//	fmt.Println(store.Driver()) // memcached
func New(cfg Config) cachecore.Store {
	addrs := cfg.Addresses
	if len(addrs) == 0 {
		addrs = []string{"127.0.0.1:11211"}
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	pools := make(map[string]chan *memcachedConn, len(addrs))
	for _, addr := range addrs {
		pools[addr] = make(chan *memcachedConn, poolSize)
	}
	return &store{addrs: addrs, defaultTTL: ttl, prefix: prefix, pools: pools}
}

func (s *store) Driver() cachecore.Driver { return cachecore.DriverMemcached }

func (s *store) SetNamespace(namespace string) { s.prefix = namespace }

func (s *store) Namespace() string { return s.prefix }

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	full := s.cacheKey(key)
	var (
		value []byte
		found bool
	)
	err := s.do(ctx, s.server(full), func(mc *memcachedConn) error {
		if _, err := fmt.Fprintf(mc.conn, "get %s\r\n", full); err != nil {
			return err
		}
		line, err := mc.reader.ReadString('\n')
		if err != nil {
			return err
		}
		if line == "END\r\n" {
			return nil
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 4 || fields[0] != "VALUE" {
			return fmt.Errorf("unexpected response: %s", strings.TrimSpace(line))
		}
		n, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("parse length: %w", err)
		}
		// data block, trailing CRLF, END
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(mc.reader, buf); err != nil {
			return err
		}
		if _, err := mc.reader.ReadString('\n'); err != nil {
			return err
		}
		value, found = buf[:n], true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	full := s.cacheKey(key)
	return s.do(ctx, s.server(full), func(mc *memcachedConn) error {
		if _, err := fmt.Fprintf(mc.conn, "set %s 0 %d %d\r\n%s\r\n", full, expireSeconds(ttl), len(value), value); err != nil {
			return err
		}
		line, err := mc.reader.ReadString('\n')
		if err != nil {
			return err
		}
		if !strings.HasPrefix(line, "STORED") {
			return fmt.Errorf("memcached set failed: %s", strings.TrimSpace(line))
		}
		return nil
	})
}

func (s *store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *store) Delete(ctx context.Context, key string) error {
	full := s.cacheKey(key)
	return s.do(ctx, s.server(full), func(mc *memcachedConn) error {
		if _, err := fmt.Fprintf(mc.conn, "delete %s\r\n", full); err != nil {
			return err
		}
		line, err := mc.reader.ReadString('\n')
		if err != nil {
			return err
		}
		if !strings.HasPrefix(line, "DELETED") && !strings.HasPrefix(line, "NOT_FOUND") {
			return fmt.Errorf("memcached delete failed: %s", strings.TrimSpace(line))
		}
		return nil
	})
}

func (s *store) Flush(ctx context.Context) error {
	var errs []error
	for _, addr := range s.addrs {
		err := s.do(ctx, addr, func(mc *memcachedConn) error {
			if _, err := fmt.Fprintf(mc.conn, "flush_all\r\n"); err != nil {
				return err
			}
			line, err := mc.reader.ReadString('\n')
			if err != nil {
				return err
			}
			if !strings.HasPrefix(line, "OK") {
				return fmt.Errorf("memcached flush failed: %s", strings.TrimSpace(line))
			}
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every pooled connection. Later operations fail.
func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, pool := range s.pools {
		close(pool)
		for mc := range pool {
			_ = mc.conn.Close()
		}
	}
	return nil
}

// do runs fn on a pooled connection to addr. A connection is discarded when
// fn fails, since the stream position is then unknown.
func (s *store) do(ctx context.Context, addr string, fn func(mc *memcachedConn) error) error {
	mc, err := s.acquire(ctx, addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = mc.conn.SetDeadline(deadline)
	} else {
		_ = mc.conn.SetDeadline(time.Time{})
	}
	err = fn(mc)
	s.release(mc, err != nil)
	return err
}

func (s *store) server(fullKey string) string {
	if len(s.addrs) == 1 {
		return s.addrs[0]
	}
	return s.addrs[crc32.ChecksumIEEE([]byte(fullKey))%uint32(len(s.addrs))]
}

func (s *store) acquire(ctx context.Context, addr string) (*memcachedConn, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("memcached: store closed")
	}
	pool := s.pools[addr]
	s.mu.Unlock()

	select {
	case mc := <-pool:
		if mc != nil {
			return mc, nil
		}
	default:
	}
	conn, err := dialMemcached(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("memcached dial %s: %w", addr, err)
	}
	return &memcachedConn{addr: addr, conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (s *store) release(mc *memcachedConn, bad bool) {
	if bad {
		_ = mc.conn.Close()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = mc.conn.Close()
		return
	}
	select {
	case s.pools[mc.addr] <- mc:
	default:
		_ = mc.conn.Close()
	}
}

func (s *store) cacheKey(key string) string {
	return cachecore.NamespacedKey(s.prefix, key)
}

func expireSeconds(ttl time.Duration) int {
	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
