package applescript

import "sync"

// PermissionCache remembers which capabilities have passed an automation
// permission probe this session. Once a capability is marked verified it is
// never re-probed until Clear is called — stale state is possible if the
// user revokes the permission mid-session, but every invocation saves a
// probe round-trip. The cache is never persisted across restarts.
type PermissionCache struct {
	mu       sync.Mutex
	verified map[string]bool
}

// NewPermissionCache returns an empty cache.
func NewPermissionCache() *PermissionCache {
	return &PermissionCache{verified: make(map[string]bool)}
}

// Verified reports whether capability passed a probe this session.
func (c *PermissionCache) Verified(capability string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verified[capability]
}

// MarkVerified records a successful probe for capability.
func (c *PermissionCache) MarkVerified(capability string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified[capability] = true
}

// Clear forgets all verifications. Probes run again on next use.
func (c *PermissionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified = make(map[string]bool)
}
