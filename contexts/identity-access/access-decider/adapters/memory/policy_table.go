package memory

import (
	"strings"
	"sync"

	"evoting/contexts/identity-access/access-decider/domain/entities"
	domainerrors "evoting/contexts/identity-access/access-decider/domain/errors"
	"evoting/contexts/identity-access/access-decider/ports"
)

// PolicyTable is the route policy registry filled at server start.
type PolicyTable struct {
	mu       sync.RWMutex
	policies map[string]entities.RoleSet
}

func NewPolicyTable() *PolicyTable {
	return &PolicyTable{policies: make(map[string]entities.RoleSet)}
}

func (t *PolicyTable) Declare(route string, allowed entities.RoleSet) error {
	key := strings.TrimSpace(route)
	if key == "" {
		return domainerrors.ErrInvalidRoute
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.policies[key]; exists {
		return domainerrors.ErrPolicyAlreadyDeclared
	}
	t.policies[key] = allowed
	return nil
}

func (t *PolicyTable) PolicyFor(route string) (entities.RoleSet, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	allowed, ok := t.policies[strings.TrimSpace(route)]
	return allowed, ok
}

// Routes lists every declared route.
func (t *PolicyTable) Routes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	items := make([]string, 0, len(t.policies))
	for route := range t.policies {
		items = append(items, route)
	}
	return items
}

var _ ports.PolicyRegistry = (*PolicyTable)(nil)
