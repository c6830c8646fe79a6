package entities

import "time"

type District struct {
	ID         int64
	Name       string
	VoterCount int
	CreatedAt  time.Time
}
