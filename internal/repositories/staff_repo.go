package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/untime"
)

// StaffRepository owns the staff table, including the flattened untime
// exception columns the authorization engine transitions under row locks.
type StaffRepository struct {
	db *sql.DB
}

func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// RunLocked opens a transaction and takes an exclusive lock on the staff row
// before handing control to fn, so all untime transitions for one staff
// member are serialized.
func (r *StaffRepository) RunLocked(ctx context.Context, staffID string, fn func(tx untime.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM staff WHERE id = $1 FOR UPDATE`, staffID).Scan(&locked)
	if err == sql.ErrNoRows {
		return fmt.Errorf("staff %s not found", staffID)
	}
	if err != nil {
		return err
	}

	if err := fn(&staffTx{ctx: ctx, tx: tx, staffID: staffID}); err != nil {
		return err
	}
	return tx.Commit()
}

// ActiveExceptionStaff lists staff ids with an active untime exception.
func (r *StaffRepository) ActiveExceptionStaff(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM staff WHERE untime_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActiveExceptions returns the active exceptions keyed by staff id.
func (r *StaffRepository) ActiveExceptions(ctx context.Context) (map[string]models.UnTimeException, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, untime_reason, untime_start, untime_duration_min, untime_approved
		FROM staff WHERE untime_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.UnTimeException)
	for rows.Next() {
		var id string
		var exc models.UnTimeException
		if err := rows.Scan(&id, &exc.Reason, &exc.Start, &exc.DurationMinutes, &exc.Approved); err != nil {
			return nil, err
		}
		out[id] = exc
	}
	return out, rows.Err()
}

type staffTx struct {
	ctx     context.Context
	tx      *sql.Tx
	staffID string
}

func (t *staffTx) Exception() (*models.UnTimeException, error) {
	var active bool
	var reason sql.NullString
	var start sql.NullTime
	var duration sql.NullInt64
	var approved bool
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT untime_active, untime_reason, untime_start, untime_duration_min, untime_approved
		FROM staff WHERE id = $1`, t.staffID).
		Scan(&active, &reason, &start, &duration, &approved)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, nil
	}
	return &models.UnTimeException{
		Reason:          models.UnTimeReason(reason.String),
		Start:           start.Time,
		DurationMinutes: int(duration.Int64),
		Approved:        approved,
	}, nil
}

func (t *staffTx) SaveException(e *models.UnTimeException) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE staff SET untime_active = TRUE, untime_reason = $2, untime_start = $3,
			untime_duration_min = $4, untime_approved = $5
		WHERE id = $1`,
		t.staffID, string(e.Reason), e.Start, e.DurationMinutes, e.Approved)
	return err
}

func (t *staffTx) ClearException() error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE staff SET untime_active = FALSE, untime_reason = NULL, untime_start = NULL,
			untime_duration_min = NULL, untime_approved = FALSE
		WHERE id = $1`, t.staffID)
	return err
}

func (t *staffTx) Blocked() (bool, error) {
	var blocked bool
	err := t.tx.QueryRowContext(t.ctx, `SELECT is_blocked FROM staff WHERE id = $1`, t.staffID).Scan(&blocked)
	return blocked, err
}

func (t *staffTx) SetBlocked(blocked bool) error {
	_, err := t.tx.ExecContext(t.ctx, `UPDATE staff SET is_blocked = $2 WHERE id = $1`, t.staffID, blocked)
	return err
}

// ShiftEndedToday checks the ledger row: the day is over once time_out is set
// and no overtime session remains open.
func (t *staffTx) ShiftEndedToday(date string) (bool, error) {
	var ended bool
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE staff_id = $1 AND attendance_date = $2
			  AND time_out IS NOT NULL
			  AND (overtime_in IS NULL OR overtime_out IS NOT NULL)
		)`, t.staffID, date).Scan(&ended)
	return ended, err
}

// AppendSession upserts the day's ledger row and appends the closed session
// to its jsonb array.
func (t *staffTx) AppendSession(date string, s models.UnTimeSession) error {
	payload, err := json.Marshal([]models.UnTimeSession{s})
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO attendance_records (id, staff_id, attendance_date, untime_sessions, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3::jsonb, now())
		ON CONFLICT (staff_id, attendance_date)
		DO UPDATE SET untime_sessions = attendance_records.untime_sessions || EXCLUDED.untime_sessions`,
		t.staffID, date, string(payload))
	return err
}

const staffColumns = `id, username, first_name, last_name, email, role, is_blocked,
	leave_balance, leave_entitlement, created_at,
	untime_active, untime_reason, untime_start, untime_duration_min, untime_approved`

func scanStaff(row interface{ Scan(dest ...any) error }) (*models.Staff, error) {
	var s models.Staff
	var active bool
	var reason sql.NullString
	var start sql.NullTime
	var duration sql.NullInt64
	var approved bool
	err := row.Scan(&s.ID, &s.Username, &s.FirstName, &s.LastName, &s.Email, &s.Role, &s.IsBlocked,
		&s.LeaveBalance, &s.LeaveEntitlement, &s.CreatedAt,
		&active, &reason, &start, &duration, &approved)
	if err != nil {
		return nil, err
	}
	if active {
		s.UnTime = &models.UnTimeException{
			Reason:          models.UnTimeReason(reason.String),
			Start:           start.Time,
			DurationMinutes: int(duration.Int64),
			Approved:        approved,
		}
	}
	return &s, nil
}

func (r *StaffRepository) ByID(ctx context.Context, id string) (*models.Staff, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	s, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *StaffRepository) ByUsername(ctx context.Context, username string) (*models.Staff, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE username = $1`, username)
	s, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *StaffRepository) Create(ctx context.Context, s *models.Staff) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staff (id, username, first_name, last_name, email, role, leave_balance, leave_entitlement, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.Username, s.FirstName, s.LastName, s.Email, s.Role, s.LeaveBalance, s.LeaveEntitlement, s.CreatedAt)
	return err
}

// SetBlocked is the administrative block/unblock outside any untime flow.
func (r *StaffRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE staff SET is_blocked = $2 WHERE id = $1`, id, blocked)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("staff %s not found", id)
	}
	return nil
}

var _ untime.Store = (*StaffRepository)(nil)
