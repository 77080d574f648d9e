package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-invigilation-api/internal/models"
)

const rosterColumns = `id, name, level, status, fingerprint, policy, stats, assignment_count, shortage_count, created_by, created_at, updated_at, published_at`

// RosterRepository persists saved invigilation rosters.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Create stores a roster with its assignment and shortage rows in one transaction.
func (r *RosterRepository) Create(ctx context.Context, roster *models.Roster, assignments []models.RosterAssignment, shortages []models.RosterShortage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.createTx(ctx, tx, roster, assignments, shortages); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}

func (r *RosterRepository) createTx(ctx context.Context, tx *sqlx.Tx, roster *models.Roster, assignments []models.RosterAssignment, shortages []models.RosterShortage) error {
	if roster.ID == "" {
		roster.ID = uuid.NewString()
	}
	if roster.Status == "" {
		roster.Status = models.RosterStatusDraft
	}
	now := time.Now().UTC()
	if roster.CreatedAt.IsZero() {
		roster.CreatedAt = now
	}
	roster.UpdatedAt = now
	roster.AssignmentCount = len(assignments)
	roster.ShortageCount = len(shortages)

	const insertRoster = `INSERT INTO rosters (id, name, level, status, fingerprint, policy, stats, assignment_count, shortage_count, created_by, created_at, updated_at, published_at)
VALUES (:id, :name, :level, :status, :fingerprint, :policy, :stats, :assignment_count, :shortage_count, :created_by, :created_at, :updated_at, :published_at)`
	if _, err := tx.NamedExecContext(ctx, insertRoster, roster); err != nil {
		return fmt.Errorf("insert roster: %w", err)
	}

	const insertAssignment = `INSERT INTO roster_assignments (roster_id, session_id, exam_date, start_time, end_time, subject, grade, section, period, slot_index, supervisor_name, pool, specialty, different_specialty)
VALUES (:roster_id, :session_id, :exam_date, :start_time, :end_time, :subject, :grade, :section, :period, :slot_index, :supervisor_name, :pool, :specialty, :different_specialty)`
	for i := range assignments {
		assignments[i].RosterID = roster.ID
		if _, err := tx.NamedExecContext(ctx, insertAssignment, assignments[i]); err != nil {
			return fmt.Errorf("insert roster assignment: %w", err)
		}
	}

	const insertShortage = `INSERT INTO roster_shortages (roster_id, session_id, exam_date, start_time, end_time, subject, grade, section, period, required, filled)
VALUES (:roster_id, :session_id, :exam_date, :start_time, :end_time, :subject, :grade, :section, :period, :required, :filled)`
	for i := range shortages {
		shortages[i].RosterID = roster.ID
		if _, err := tx.NamedExecContext(ctx, insertShortage, shortages[i]); err != nil {
			return fmt.Errorf("insert roster shortage: %w", err)
		}
	}
	return nil
}

// FindByID returns a roster header. sql.ErrNoRows is returned unwrapped.
func (r *RosterRepository) FindByID(ctx context.Context, id string) (*models.Roster, error) {
	query := `SELECT ` + rosterColumns + ` FROM rosters WHERE id = $1`
	var roster models.Roster
	if err := r.db.GetContext(ctx, &roster, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find roster: %w", err)
	}
	return &roster, nil
}

// List returns roster headers matching the filter plus the total count.
func (r *RosterRepository) List(ctx context.Context, filter models.RosterFilter) ([]models.Roster, int, error) {
	baseQuery := `FROM rosters WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":           true,
		"created_at":     true,
		"updated_at":     true,
		"shortage_count": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", rosterColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var rosters []models.Roster
	if err := r.db.SelectContext(ctx, &rosters, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list rosters: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rosters: %w", err)
	}

	return rosters, total, nil
}

// ListAssignments returns the roster's rows in run order.
func (r *RosterRepository) ListAssignments(ctx context.Context, rosterID string) ([]models.RosterAssignment, error) {
	const query = `SELECT roster_id, session_id, exam_date, start_time, end_time, subject, grade, section, period, slot_index, supervisor_name, pool, specialty, different_specialty
FROM roster_assignments WHERE roster_id = $1 ORDER BY exam_date ASC, session_id ASC, slot_index ASC`
	var rows []models.RosterAssignment
	if err := r.db.SelectContext(ctx, &rows, query, rosterID); err != nil {
		return nil, fmt.Errorf("list roster assignments: %w", err)
	}
	return rows, nil
}

// ListShortages returns the roster's under-staffed sessions.
func (r *RosterRepository) ListShortages(ctx context.Context, rosterID string) ([]models.RosterShortage, error) {
	const query = `SELECT roster_id, session_id, exam_date, start_time, end_time, subject, grade, section, period, required, filled
FROM roster_shortages WHERE roster_id = $1 ORDER BY exam_date ASC, session_id ASC`
	var rows []models.RosterShortage
	if err := r.db.SelectContext(ctx, &rows, query, rosterID); err != nil {
		return nil, fmt.Errorf("list roster shortages: %w", err)
	}
	return rows, nil
}

// Publish moves a draft roster to PUBLISHED. sql.ErrNoRows means no draft
// with that id exists.
func (r *RosterRepository) Publish(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE rosters SET status = 'PUBLISHED', published_at = $2, updated_at = $2 WHERE id = $1 AND status = 'DRAFT'`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("publish roster: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("roster rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a draft roster; rows cascade.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM rosters WHERE id = $1 AND status = 'DRAFT'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete roster: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("roster rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
