package testutil

import (
	"context"
	"sync"
)

// Capabilities is an in-memory capability checker.
// A user granted with an empty community id may manage every community.
type Capabilities struct {
	mu     sync.RWMutex
	grants map[string]map[string]bool
}

// NewCapabilities grants global management capability to userIDs.
func NewCapabilities(userIDs ...string) *Capabilities {
	c := &Capabilities{grants: map[string]map[string]bool{}}
	for _, id := range userIDs {
		c.Grant(id, "")
	}
	return c
}

// Grant lets userID manage communityID ("" for all communities).
func (c *Capabilities) Grant(userID, communityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.grants[userID] == nil {
		c.grants[userID] = map[string]bool{}
	}
	c.grants[userID][communityID] = true
}

// Revoke removes every grant for userID.
func (c *Capabilities) Revoke(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, userID)
}

// CanManage reports whether userID may manage communityID.
func (c *Capabilities) CanManage(_ context.Context, communityID, userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g := c.grants[userID]
	return g[""] || g[communityID]
}
