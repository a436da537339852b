// Package session remembers SSH passwords for the lifetime of one
// interactive run. Nothing is written to disk.
package session

import "sync"

// PasswordCache maps a connection key such as "root@203.0.113.2:22" to the
// password that last worked for it.
type PasswordCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewPasswordCache() *PasswordCache {
	return &PasswordCache{m: map[string]string{}}
}

func (c *PasswordCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *PasswordCache) Set(key, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = password
}

// Forget drops key, typically after a failed login.
func (c *PasswordCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

func (c *PasswordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *PasswordCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = map[string]string{}
}
