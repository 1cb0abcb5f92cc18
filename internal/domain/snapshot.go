package domain

import "time"

// Snapshot is the exact shape serialized to the data file. The write
// batcher captures one of these per flush so a flush always persists a
// consistent view of the store.
type Snapshot struct {
	Tasks    []*Task    `json:"tasks"`
	Projects []*Project `json:"projects"`
	SavedAt  time.Time  `json:"savedAt"`
}
