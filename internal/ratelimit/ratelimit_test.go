package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sqliteStore, err := OpenSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		_ = fileStore.Close()
		_ = sqliteStore.Close()
	})
	return map[string]Store{"file": fileStore, "sqlite": sqliteStore}
}

func newTestLimiter(t *testing.T, store Store, clock *fakeClock, cfg Config) *Limiter {
	t.Helper()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.Window == 0 {
		cfg.Window = time.Hour
	}
	l, err := New(store, cfg, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestLimiter_Check(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			clock := newFakeClock()
			l := newTestLimiter(t, store, clock, Config{MaxRequests: 3, Window: time.Hour})
			start := clock.Now()

			for i, wantRemaining := range []int{2, 1, 0} {
				res, err := l.Check(ctx, "203.0.113.7")
				if err != nil {
					t.Fatalf("Check %d: %v", i, err)
				}
				if !res.Allowed {
					t.Fatalf("expected request %d to be allowed", i)
				}
				if res.Remaining != wantRemaining {
					t.Errorf("request %d: expected remaining %d, got %d", i, wantRemaining, res.Remaining)
				}
				if want := start.Add(time.Hour); !res.Reset.Equal(want) {
					t.Errorf("request %d: expected reset %v, got %v", i, want, res.Reset)
				}
				clock.Advance(10 * time.Minute)
			}

			res, err := l.Check(ctx, "203.0.113.7")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if res.Allowed {
				t.Fatal("expected fourth request to be denied")
			}
			if res.Remaining != 0 {
				t.Errorf("expected remaining 0, got %d", res.Remaining)
			}
			if res.RetryAfter != 30*time.Minute {
				t.Errorf("expected retry after 30m, got %s", res.RetryAfter)
			}

			// Another client has its own window.
			other, err := l.Check(ctx, "198.51.100.1")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if !other.Allowed || other.Remaining != 2 {
				t.Errorf("expected independent window, got %+v", other)
			}

			// Once the first request slides out, one slot opens.
			clock.Advance(30 * time.Minute)
			res, err = l.Check(ctx, "203.0.113.7")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if !res.Allowed {
				t.Fatal("expected request to be allowed after the window slid")
			}
			if res.Remaining != 0 {
				t.Errorf("expected remaining 0, got %d", res.Remaining)
			}
		})
	}
}

func TestLimiter_DeniedRequestsAreNotRecorded(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	clock := newFakeClock()
	l := newTestLimiter(t, store, clock, Config{MaxRequests: 1, Window: time.Minute})

	if res, _ := l.Check(ctx, "192.0.2.1"); !res.Allowed {
		t.Fatal("expected first request to be allowed")
	}
	for range 5 {
		if res, _ := l.Check(ctx, "192.0.2.1"); res.Allowed {
			t.Fatal("expected request to be denied")
		}
	}

	clock.Advance(time.Minute)
	res, err := l.Check(ctx, "192.0.2.1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Error("expected denied requests not to extend the window")
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	clock := newFakeClock()
	l := newTestLimiter(t, store, clock, Config{
		MaxRequests: 1,
		Whitelist:   []string{"10.0.0.0/8", "192.168.1.0", "127.0.0.1"},
	})

	for _, ip := range []string{"10.20.30.40", "192.168.1.77", "127.0.0.1"} {
		for range 3 {
			res, err := l.Check(context.Background(), ip)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Allowed || !res.Whitelisted {
				t.Fatalf("expected %s to be whitelisted, got %+v", ip, res)
			}
			if res.Remaining != -1 || res.ResetUnix() != 0 {
				t.Errorf("expected remaining -1 and reset 0, got %d and %d", res.Remaining, res.ResetUnix())
			}
		}
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no windows stored for whitelisted clients, got %d files", len(entries))
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			clock := newFakeClock()
			l := newTestLimiter(t, store, clock, Config{MaxRequests: 5, Window: time.Hour})

			for _, ip := range []string{"192.0.2.1", "192.0.2.2"} {
				if _, err := l.Check(ctx, ip); err != nil {
					t.Fatal(err)
				}
			}
			clock.Advance(90 * time.Minute)
			if _, err := l.Check(ctx, "192.0.2.3"); err != nil {
				t.Fatal(err)
			}

			n, err := l.Cleanup(ctx)
			if err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if n != 2 {
				t.Errorf("expected 2 idle windows deleted, got %d", n)
			}

			n, err = l.Cleanup(ctx)
			if err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if n != 0 {
				t.Errorf("expected nothing left to delete, got %d", n)
			}

			res, err := l.Check(ctx, "192.0.2.3")
			if err != nil {
				t.Fatal(err)
			}
			if res.Remaining != 3 {
				t.Errorf("expected active window to survive cleanup, remaining %d", res.Remaining)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "zero requests", cfg: Config{MaxRequests: 0, Window: time.Hour}, wantErr: ErrInvalidLimit},
		{name: "sub-second window", cfg: Config{MaxRequests: 1, Window: time.Millisecond}, wantErr: ErrInvalidLimit},
		{name: "bad whitelist", cfg: Config{MaxRequests: 1, Window: time.Hour, Whitelist: []string{"not-an-ip"}}, wantErr: ErrInvalidWhitelistEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(store, tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLimiter_KeyHidesIP(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(store, Config{MaxRequests: 1, Window: time.Hour, HashKey: "secret-a"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(store, Config{MaxRequests: 1, Window: time.Hour, HashKey: strings.Repeat("k", 100)})
	if err != nil {
		t.Fatal(err)
	}

	key := a.Key("203.0.113.7")
	if len(key) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(key))
	}
	if strings.Contains(key, "203.0.113.7") {
		t.Errorf("expected key not to contain the IP, got %s", key)
	}
	if key != a.Key("203.0.113.7") {
		t.Error("expected key to be stable")
	}
	if key == b.Key("203.0.113.7") {
		t.Error("expected different hash keys to give different storage keys")
	}

	if _, err := a.Check(context.Background(), "203.0.113.7"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), key+".json")); err != nil {
		t.Errorf("expected window file named by key: %v", err)
	}
}

func TestFileStore_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "k", func(w *Window) bool {
				w.Requests = append(w.Requests, int64(i))
				return true
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	var got int
	_ = store.Update(ctx, "k", func(w *Window) bool {
		got = len(w.Requests)
		return false
	})
	if got != workers {
		t.Errorf("expected %d requests recorded, got %d", workers, got)
	}
}

func TestFileStore_LockTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir, WithLockTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "k.lock"), nil, 0600); err != nil {
		t.Fatal(err)
	}

	err = store.Update(context.Background(), "k", func(*Window) bool { return true })
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}
}

func TestFileStore_RemovesStaleLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir, WithLockTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	lockPath := filepath.Join(dir, "k.lock")
	if err := os.WriteFile(lockPath, nil, 0600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatal(err)
	}

	if err := store.Update(context.Background(), "k", func(*Window) bool { return true }); err != nil {
		t.Errorf("expected stale lock to be taken over, got %v", err)
	}
}

func TestReclaimStale_KeepsFreshLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lockPath := filepath.Join(dir, "k.lock")

	// Another process replaced the stale lock after this one checked its age.
	if err := os.WriteFile(lockPath, []byte("other-holder"), 0600); err != nil {
		t.Fatal(err)
	}
	reclaimStale(lockPath)

	data, err := os.ReadFile(lockPath) //nolint:gosec // test path
	if err != nil {
		t.Fatalf("expected fresh lock to survive reclaim, got %v", err)
	}
	if string(data) != "other-holder" {
		t.Errorf("expected lock of other holder, got %q", data)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the lock file, got %d entries", len(entries))
	}
}

func TestReclaimStale_RemovesStaleLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lockPath := filepath.Join(dir, "k.lock")
	if err := os.WriteFile(lockPath, []byte("crashed"), 0600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatal(err)
	}

	reclaimStale(lockPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected stale lock and its moved copy to be gone, got %d entries", len(entries))
	}
}

func TestReleaseLock_OnlyRemovesOwnLock(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "k.lock")
	if err := os.WriteFile(lockPath, []byte("other-holder"), 0600); err != nil {
		t.Fatal(err)
	}

	releaseLock(lockPath, "me")
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("expected lock of another holder to stay, got %v", err)
	}

	releaseLock(lockPath, "other-holder")
	if _, err := os.Stat(lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected own lock to be removed, got %v", err)
	}
}

func TestFileStore_CorruptWindowStartsOver(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "k.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	var got int
	err = store.Update(context.Background(), "k", func(w *Window) bool {
		got = len(w.Requests)
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("expected empty window, got %d requests", got)
	}
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"file", "sqlite"} {
		dir := t.TempDir()
		s, err := OpenStore(kind, dir)
		if err != nil {
			t.Fatalf("OpenStore(%q): %v", kind, err)
		}
		switch store := s.(type) {
		case *FileStore:
			if store.Dir() != dir {
				t.Errorf("expected file store in %s, got %s", dir, store.Dir())
			}
		case *SQLiteStore:
			if store.Path() != filepath.Join(dir, SQLiteFileName) {
				t.Errorf("expected database in %s, got %s", dir, store.Path())
			}
		default:
			t.Errorf("unexpected store type %T for %q", s, kind)
		}
		_ = s.Close()
	}

	if _, err := OpenStore("redis", t.TempDir()); !errors.Is(err, ErrUnknownStore) {
		t.Errorf("expected ErrUnknownStore, got %v", err)
	}
}

func TestParseWhitelistEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entry   string
		want    string
		wantErr bool
	}{
		{entry: "192.168.1.0", want: "192.168.1.0/24"},
		{entry: "192.168.1.5", want: "192.168.1.5/32"},
		{entry: "10.1.2.3/8", want: "10.0.0.0/8"},
		{entry: " 172.16.0.0/12 ", want: "172.16.0.0/12"},
		{entry: "2001:db8::1", want: "2001:db8::1/128"},
		{entry: "2001:db8::/32", want: "2001:db8::/32"},
		{entry: "example.com", wantErr: true},
		{entry: "10.0.0.0/40", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			t.Parallel()

			got, err := ParseWhitelistEntry(tt.entry)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWhitelistEntry) {
					t.Errorf("expected ErrInvalidWhitelistEntry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestWhitelist_Contains(t *testing.T) {
	t.Parallel()

	w, err := NewWhitelist([]string{"192.168.1.0", "10.0.0.5", ""})
	if err != nil {
		t.Fatal(err)
	}
	if w.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", w.Len())
	}

	tests := map[string]bool{
		"192.168.1.200":   true,
		"192.168.2.1":     false,
		"10.0.0.5":        true,
		"10.0.0.6":        false,
		"::ffff:10.0.0.5": true,
		"garbage":         false,
	}
	for ip, want := range tests {
		if got := w.Contains(ip); got != want {
			t.Errorf("Contains(%q): expected %v, got %v", ip, want, got)
		}
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "cloudflare header wins",
			headers:    map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Real-IP": "203.0.113.2"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "real ip before forwarded",
			headers:    map[string]string{"X-Real-IP": "203.0.113.2", "X-Forwarded-For": "203.0.113.3"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.2",
		},
		{
			name:       "first forwarded hop",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.3, 10.0.0.2, 10.0.0.3"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.3",
		},
		{
			name:       "invalid header falls through",
			headers:    map[string]string{"CF-Connecting-IP": "unknown"},
			remoteAddr: "198.51.100.4:5678",
			want:       "198.51.100.4",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "nothing valid",
			remoteAddr: "pipe",
			want:       "0.0.0.0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
