package data

import (
	"database/sql"
	"fmt"
)

var stateQueries = map[string]string{
	"runs":     "SELECT COUNT(*) FROM run",
	"records":  "SELECT COUNT(*) FROM run_student",
	"students": "SELECT COUNT(DISTINCT pid) FROM run_student",
	"sections": "SELECT COUNT(DISTINCT section) FROM run_student",
}

// GetDataState returns row counts of the store.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64, len(stateQueries))
	for k, q := range stateQueries {
		var n int64
		if err := db.QueryRow(q).Scan(&n); err != nil {
			return nil, fmt.Errorf("error querying %s count: %w", k, err)
		}
		state[k] = n
	}
	return state, nil
}
