package store

import "time"

type Todo struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Done      bool       `json:"done"`
	SortOrder int        `json:"sort_order"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (t Todo) RowID() string { return t.ID }

type Habit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"` // daily, weekdays, weekly
	Streak    int       `json:"streak"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h Habit) RowID() string { return h.ID }

type Priority struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Rank      int       `json:"rank"`
	Quarter   string    `json:"quarter"` // e.g. "2026-Q3"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p Priority) RowID() string { return p.ID }

type KeyResult struct {
	ID        string    `json:"id"`
	Objective string    `json:"objective"`
	Title     string    `json:"title"`
	Target    float64   `json:"target"`
	Current   float64   `json:"current"`
	Unit      string    `json:"unit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (k KeyResult) RowID() string { return k.ID }

// Allotment configures one reward item: Quota × Multiplier redemptions are
// permitted per cadence window.
type Allotment struct {
	ID         string    `json:"id"`
	ItemType   string    `json:"item_type"`
	Quota      int       `json:"quota"`
	Cadence    string    `json:"cadence"` // weekly, monthly, quarterly, yearly
	Multiplier int       `json:"multiplier"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a Allotment) RowID() string { return a.ID }

type Setting struct {
	Key   string
	Value string
}
