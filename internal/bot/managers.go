package bot

import (
	"context"

	"github.com/roach88/joincode/internal/codestore"
)

// ManagerList is a CapabilityChecker backed by a fixed set of user ids that
// may manage every community, regardless of their platform permissions.
type ManagerList struct {
	users map[string]struct{}
}

// NewManagerList builds a ManagerList. Blank ids are ignored.
func NewManagerList(userIDs []string) *ManagerList {
	m := &ManagerList{users: make(map[string]struct{}, len(userIDs))}
	for _, id := range userIDs {
		id = codestore.NormalizeID(id)
		if id == "" {
			continue
		}
		m.users[id] = struct{}{}
	}
	return m
}

// CanManage reports whether userID is on the list.
func (m *ManagerList) CanManage(_ context.Context, _ string, userID string) bool {
	_, ok := m.users[codestore.NormalizeID(userID)]
	return ok
}

// Len returns the number of listed users.
func (m *ManagerList) Len() int { return len(m.users) }
