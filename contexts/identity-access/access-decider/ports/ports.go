package ports

import "evoting/contexts/identity-access/access-decider/domain/entities"

// PolicyRegistry holds the allowed role set each route declares.
type PolicyRegistry interface {
	Declare(route string, allowed entities.RoleSet) error
	PolicyFor(route string) (entities.RoleSet, bool)
}

type Metrics interface {
	CountAuthorization(outcome string)
}
