package stores

import "time"

// Store is a stock location. Code is system-generated (ST-001,
// ST-002, ...) and never supplied by callers.
type Store struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Zones     []string  `json:"zones"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries store fields for create and update.
type Input struct {
	Name  string
	Zones []string
}
