package domain

// Task is a single to-do entry. IDs are creation timestamps in unix
// milliseconds, unique within a server process.
type Task struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"`
	// Removing is set while the task waits out its removal delay. It is not
	// persisted; a restart forgets pending removals.
	Removing bool `json:"-"`
}

// TaskStats is derived from the current list on every mutation.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}
