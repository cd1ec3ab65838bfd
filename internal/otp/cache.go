// ABOUTME: Thread-safe TTL cache of pending one-time signup codes keyed by email.
// ABOUTME: Codes are consumed on successful verification and dropped after too many wrong guesses.

package otp

import (
	"container/list"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// MaxAttempts is the number of wrong codes accepted before a pending code is dropped.
const MaxAttempts = 5

var (
	// ErrNoPendingCode is returned when no unexpired code exists for the email.
	ErrNoPendingCode = errors.New("no pending code")
	// ErrCodeMismatch is returned when the submitted code is wrong.
	ErrCodeMismatch = errors.New("code mismatch")
)

// cacheEntry stores one issued code and its place in the eviction order.
type cacheEntry struct {
	code     string
	issued   time.Time
	attempts int
	element  *list.Element
}

// Cache holds pending codes with a TTL and a maximum size. The oldest code
// is evicted when the cache is full. Uses a doubly-linked list to keep
// issue order for O(1) eviction.
type Cache struct {
	mu      sync.Mutex
	pending map[string]*cacheEntry
	order   *list.List // emails in issue order (oldest at front)
	ttl     time.Duration
	length  int
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a code cache issuing codes of length digits valid for ttl.
// A background goroutine periodically removes expired codes.
func New(ttl time.Duration, length, maxSize int) *Cache {
	c := &Cache{
		pending: make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		length:  length,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue generates a fresh code for email, replacing any pending one.
func (c *Cache) Issue(email string) (string, error) {
	code, err := randomDigits(c.length)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := normalize(email)
	if entry, exists := c.pending[key]; exists {
		c.removeLocked(key, entry)
	}
	if len(c.pending) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.pending[key] = &cacheEntry{code: code, issued: time.Now(), element: elem}
	return code, nil
}

// Verify checks code against the pending code for email. A matching code is
// consumed. After MaxAttempts mismatches the pending code is dropped.
func (c *Cache) Verify(email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := normalize(email)
	entry, ok := c.pending[key]
	if !ok || time.Since(entry.issued) >= c.ttl {
		return ErrNoPendingCode
	}

	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		entry.attempts++
		if entry.attempts >= MaxAttempts {
			c.removeLocked(key, entry)
		}
		return ErrCodeMismatch
	}

	c.removeLocked(key, entry)
	return nil
}

// Pending reports whether email has an unexpired code.
func (c *Cache) Pending(email string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pending[normalize(email)]
	return ok && time.Since(entry.issued) < c.ttl
}

// removeLocked deletes an entry. Must be called with mu held.
func (c *Cache) removeLocked(key string, entry *cacheEntry) {
	c.order.Remove(entry.element)
	delete(c.pending, key)
}

// evictOldest removes the oldest entry from the cache.
// Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.pending, key)
}

// cleanup runs in a background goroutine, periodically removing expired codes.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired codes from the cache.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.pending {
		if now.Sub(entry.issued) >= c.ttl {
			c.removeLocked(key, entry)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generating code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
