package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/gradepulse/pkg/grade"
	"github.com/mchmarny/gradepulse/pkg/report"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

const (
	insertRun = `INSERT INTO run (id, created_at, source, students, proportion_improved,
		most_improved, policy, summary) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertRunStudent = `INSERT INTO run_student (run_id, pid, section, redemption,
		midterm_pre, midterm_post, replaced, pre_total, post_total, pre_letter, post_letter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRuns = `SELECT id, created_at, source, students, proportion_improved, most_improved
		FROM run ORDER BY created_at DESC, id LIMIT ?`

	selectRun = `SELECT id, created_at, source, students, proportion_improved, most_improved,
		policy, summary FROM run WHERE id = ?`

	selectRunStudents = `SELECT s.run_id, r.created_at, s.pid, s.section, s.redemption,
		s.midterm_pre, s.midterm_post, s.replaced, s.pre_total, s.post_total, s.pre_letter,
		s.post_letter FROM run_student s JOIN run r ON r.id = s.run_id WHERE s.run_id = ? ORDER BY s.pid`

	selectStudentHistory = `SELECT s.run_id, r.created_at, s.pid, s.section, s.redemption,
		s.midterm_pre, s.midterm_post, s.replaced, s.pre_total, s.post_total, s.pre_letter,
		s.post_letter FROM run_student s JOIN run r ON r.id = s.run_id WHERE s.pid = ?
		ORDER BY r.created_at, s.run_id`

	deleteRunStudents = `DELETE FROM run_student WHERE run_id = ?`
	deleteRun         = `DELETE FROM run WHERE id = ?`
)

// Run is one persisted grading run.
type Run struct {
	ID                 string           `json:"id" yaml:"id"`
	CreatedAt          time.Time        `json:"created_at" yaml:"createdAt"`
	Source             string           `json:"source" yaml:"source"`
	Students           int              `json:"students" yaml:"students"`
	ProportionImproved float64          `json:"proportion_improved" yaml:"proportionImproved"`
	MostImproved       string           `json:"most_improved" yaml:"mostImproved"`
	Policy             *grade.Policy    `json:"policy,omitempty" yaml:"policy,omitempty"`
	Summary            *report.Summary  `json:"summary,omitempty" yaml:"summary,omitempty"`
	Records            []*StudentRecord `json:"records,omitempty" yaml:"records,omitempty"`
}

// StudentRecord is one student's grades within a run.
type StudentRecord struct {
	RunID       string       `json:"run_id" yaml:"runId"`
	CreatedAt   time.Time    `json:"created_at" yaml:"createdAt"`
	PID         string       `json:"pid" yaml:"pid"`
	Section     string       `json:"section" yaml:"section"`
	Redemption  float64      `json:"redemption" yaml:"redemption"`
	MidtermPre  float64      `json:"midterm_pre" yaml:"midtermPre"`
	MidtermPost float64      `json:"midterm_post" yaml:"midtermPost"`
	Replaced    bool         `json:"replaced" yaml:"replaced"`
	PreTotal    float64      `json:"pre_total" yaml:"preTotal"`
	PostTotal   float64      `json:"post_total" yaml:"postTotal"`
	PreLetter   grade.Letter `json:"pre_letter" yaml:"preLetter"`
	PostLetter  grade.Letter `json:"post_letter" yaml:"postLetter"`
}

// NewRun captures a computed result and its summary under a new id.
func NewRun(source string, res *grade.Result, s *report.Summary) *Run {
	r := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Summary:   s,
	}
	if s != nil {
		r.Students = s.Students
		r.ProportionImproved = s.ProportionImproved
		r.MostImproved = s.MostImproved
	}
	if res == nil {
		return r
	}

	p := res.Policy
	r.Policy = &p
	r.Students = len(res.Students)
	r.Records = make([]*StudentRecord, 0, len(res.Students))
	for _, st := range res.Students {
		r.Records = append(r.Records, &StudentRecord{
			RunID:       r.ID,
			CreatedAt:   r.CreatedAt,
			PID:         st.ID,
			Section:     st.Section,
			Redemption:  st.Redemption,
			MidtermPre:  st.MidtermPre,
			MidtermPost: st.MidtermPost,
			Replaced:    st.Replaced,
			PreTotal:    st.PreTotal,
			PostTotal:   st.PostTotal,
			PreLetter:   st.PreLetter,
			PostLetter:  st.PostLetter,
		})
	}
	return r
}

// SaveRun stores a run and its student records in one transaction.
func SaveRun(db *sql.DB, r *Run) error {
	if db == nil {
		return errDBNotInitialized
	}
	if r == nil || r.ID == "" {
		return errors.New("run with an id is required")
	}

	policy, err := json.Marshal(r.Policy)
	if err != nil {
		return fmt.Errorf("error encoding policy: %w", err)
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("error encoding summary: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(rebind(db, insertRun), r.ID, r.CreatedAt.Format(timeFormat), r.Source,
		r.Students, r.ProportionImproved, r.MostImproved, string(policy), string(summary)); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.Prepare(rebind(db, insertRunStudent))
	if err != nil {
		return fmt.Errorf("failed to prepare student insert statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range r.Records {
		if _, err := stmt.Exec(r.ID, s.PID, s.Section, s.Redemption, s.MidtermPre, s.MidtermPost,
			boolToInt(s.Replaced), s.PreTotal, s.PostTotal, string(s.PreLetter), string(s.PostLetter)); err != nil {
			return fmt.Errorf("failed to insert student %s: %w", s.PID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, without their
// policy, summary or records.
func ListRuns(db *sql.DB, limit int) ([]*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(rebind(db, selectRuns), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r := &Run{}
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Source, &r.Students,
			&r.ProportionImproved, &r.MostImproved); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return list, nil
}

// GetRun returns a run with its policy, summary and records.
func GetRun(db *sql.DB, id string) (*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	r := &Run{}
	var created, policy, summary string
	err := db.QueryRow(rebind(db, selectRun), id).Scan(&r.ID, &created, &r.Source, &r.Students,
		&r.ProportionImproved, &r.MostImproved, &policy, &summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(policy), &r.Policy); err != nil {
		return nil, fmt.Errorf("error decoding policy of run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
		return nil, fmt.Errorf("error decoding summary of run %s: %w", id, err)
	}

	if r.Records, err = queryRecords(db, selectRunStudents, id); err != nil {
		return nil, err
	}
	return r, nil
}

// GetStudentHistory returns a student's records across runs, oldest first.
func GetStudentHistory(db *sql.DB, pid string) ([]*StudentRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if pid == "" {
		return nil, errors.New("student id is required")
	}
	return queryRecords(db, selectStudentHistory, pid)
}

// DeleteRun removes a run and its records.
func DeleteRun(db *sql.DB, id string) error {
	if db == nil {
		return errDBNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(rebind(db, deleteRunStudents), id); err != nil {
		return fmt.Errorf("failed to delete records of run %s: %w", id, err)
	}
	res, err := tx.Exec(rebind(db, deleteRun), id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted runs: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func queryRecords(db *sql.DB, query, arg string) ([]*StudentRecord, error) {
	rows, err := db.Query(rebind(db, query), arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query student records: %w", err)
	}
	defer rows.Close()

	list := make([]*StudentRecord, 0)
	for rows.Next() {
		s := &StudentRecord{}
		var created, pre, post string
		var replaced int
		if err := rows.Scan(&s.RunID, &created, &s.PID, &s.Section, &s.Redemption, &s.MidtermPre,
			&s.MidtermPost, &replaced, &s.PreTotal, &s.PostTotal, &pre, &post); err != nil {
			return nil, fmt.Errorf("failed to scan student record: %w", err)
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		s.Replaced = replaced != 0
		s.PreLetter = grade.Letter(pre)
		s.PostLetter = grade.Letter(post)
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate student records: %w", err)
	}
	return list, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DeleteAll removes every run and record, keeping the schema.
func DeleteAll(db *sql.DB) error {
	if db == nil {
		return errDBNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"run_student", "run"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
