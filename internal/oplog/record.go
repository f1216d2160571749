package oplog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one completed relocation.
type Record struct {
	Original string
	New      string
}

// MarshalJSON encodes the record as a two element array [original, new].
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{r.Original, r.New})
}

// UnmarshalJSON decodes the two element array form.
func (r *Record) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("move record: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("move record: expected [original, new], got %d entries", len(pair))
	}
	if pair[0] == "" || pair[1] == "" {
		return fmt.Errorf("move record: empty path in %q", pair)
	}
	r.Original, r.New = pair[0], pair[1]
	return nil
}

// Log is the persisted snapshot of one organize run.
type Log struct {
	Moved        []Record  `json:"moved"`
	RunID        string    `json:"run_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	Source       string    `json:"source,omitempty"`
	Dest         string    `json:"dest,omitempty"`
	UndoFailures int       `json:"undo_failures,omitempty"`
}

// Empty reports whether the log has nothing to undo.
func (l Log) Empty() bool {
	return len(l.Moved) == 0
}
