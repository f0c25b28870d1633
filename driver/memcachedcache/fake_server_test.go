package memcachedcache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeEntry struct {
	value     []byte
	expiresAt time.Time
}

// fakeMemcached is an in-process text-protocol server reached through
// net.Pipe. It supports get/set/delete/flush_all with second-level expiry.
type fakeMemcached struct {
	mu    sync.Mutex
	data  map[string]fakeEntry
	dials int
}

func startFakeMemcached(t *testing.T) *fakeMemcached {
	t.Helper()
	srv := &fakeMemcached{data: make(map[string]fakeEntry)}
	orig := dialMemcached
	dialMemcached = func(context.Context, string, string) (net.Conn, error) {
		server, client := net.Pipe()
		srv.mu.Lock()
		srv.dials++
		srv.mu.Unlock()
		go srv.serve(server)
		return client, nil
	}
	t.Cleanup(func() { dialMemcached = orig })
	return srv
}

func (f *fakeMemcached) lookup(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(f.data, key)
		return nil, false
	}
	return e.value, true
}

func (f *fakeMemcached) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "get":
			if v, ok := f.lookup(parts[1]); ok {
				fmt.Fprintf(w, "VALUE %s 0 %d\r\n", parts[1], len(v))
				w.Write(v)
				w.WriteString("\r\n")
			}
			w.WriteString("END\r\n")
		case "set":
			// set <key> <flags> <exptime> <bytes>
			exp, _ := strconv.Atoi(parts[3])
			n, _ := strconv.Atoi(parts[4])
			buf := make([]byte, n+2)
			if _, err := io.ReadFull(r, buf); err != nil {
				return
			}
			e := fakeEntry{value: buf[:n]}
			if exp > 0 {
				e.expiresAt = time.Now().Add(time.Duration(exp) * time.Second)
			}
			f.mu.Lock()
			f.data[parts[1]] = e
			f.mu.Unlock()
			w.WriteString("STORED\r\n")
		case "delete":
			f.mu.Lock()
			_, ok := f.data[parts[1]]
			delete(f.data, parts[1])
			f.mu.Unlock()
			if ok {
				w.WriteString("DELETED\r\n")
			} else {
				w.WriteString("NOT_FOUND\r\n")
			}
		case "flush_all":
			f.mu.Lock()
			f.data = make(map[string]fakeEntry)
			f.mu.Unlock()
			w.WriteString("OK\r\n")
		default:
			w.WriteString("ERROR\r\n")
		}
		w.Flush()
	}
}
