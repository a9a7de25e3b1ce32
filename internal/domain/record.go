package domain

import "time"

// Record is the single persisted name/message entry.
type Record struct {
	ID        string
	Name      string
	Message   string
	CreatedAt time.Time
}
