package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/evn/attendance_backendl/internal/attendance"
	"github.com/evn/attendance_backendl/internal/models"
)

type AttendanceRepository struct {
	db *sql.DB
}

func NewAttendanceRepository(db *sql.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// RunLocked locks the staff row, not the ledger row: the ledger row may not
// exist yet, and the staff lock serializes its creation as well.
func (r *AttendanceRepository) RunLocked(ctx context.Context, staffID, date string, fn func(tx attendance.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM staff WHERE id = $1 FOR UPDATE`, staffID).Scan(&locked); err != nil {
		return err
	}

	if err := fn(&attendanceTx{ctx: ctx, tx: tx, staffID: staffID, date: date}); err != nil {
		return err
	}
	return tx.Commit()
}

type attendanceTx struct {
	ctx     context.Context
	tx      *sql.Tx
	staffID string
	date    string
}

const attendanceColumns = `id, staff_id, to_char(attendance_date, 'YYYY-MM-DD'),
	time_in, time_out, overtime_in, overtime_out, is_forced_out,
	untime_sessions, updated_by, updated_at, created_at`

func scanAttendance(row interface{ Scan(dest ...any) error }) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	var sessions []byte
	var updatedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.StaffID, &rec.Date,
		&rec.TimeIn, &rec.TimeOut, &rec.OvertimeIn, &rec.OvertimeOut, &rec.IsForcedOut,
		&sessions, &rec.UpdatedBy, &updatedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		rec.UpdatedAt = &updatedAt.Time
	}
	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &rec.UnTimeSessions); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (t *attendanceTx) Record() (*models.AttendanceRecord, error) {
	row := t.tx.QueryRowContext(t.ctx, `
		SELECT `+attendanceColumns+` FROM attendance_records
		WHERE staff_id = $1 AND attendance_date = $2`, t.staffID, t.date)
	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (t *attendanceTx) Save(rec *models.AttendanceRecord) error {
	sessions, err := json.Marshal(rec.UnTimeSessions)
	if err != nil {
		return err
	}
	if rec.UnTimeSessions == nil {
		sessions = []byte("[]")
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO attendance_records (id, staff_id, attendance_date, time_in, time_out,
			overtime_in, overtime_out, is_forced_out, untime_sessions, updated_by, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
		ON CONFLICT (staff_id, attendance_date)
		DO UPDATE SET time_in = EXCLUDED.time_in, time_out = EXCLUDED.time_out,
			overtime_in = EXCLUDED.overtime_in, overtime_out = EXCLUDED.overtime_out,
			is_forced_out = EXCLUDED.is_forced_out, untime_sessions = EXCLUDED.untime_sessions,
			updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.StaffID, rec.Date, rec.TimeIn, rec.TimeOut,
		rec.OvertimeIn, rec.OvertimeOut, rec.IsForcedOut, string(sessions),
		rec.UpdatedBy, rec.UpdatedAt, rec.CreatedAt)
	return err
}

func (r *AttendanceRepository) query(ctx context.Context, where string, args ...any) ([]models.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+` FROM attendance_records `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *AttendanceRepository) OpenOn(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return r.query(ctx, `WHERE attendance_date = $1 AND time_in IS NOT NULL AND time_out IS NULL`, date)
}

func (r *AttendanceRepository) ByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return r.query(ctx, `WHERE attendance_date = $1 ORDER BY staff_id`, date)
}

func (r *AttendanceRepository) ByStaff(ctx context.Context, staffID, fromDate, toDate string) ([]models.AttendanceRecord, error) {
	return r.query(ctx, `WHERE staff_id = $1 AND attendance_date BETWEEN $2 AND $3 ORDER BY attendance_date`,
		staffID, fromDate, toDate)
}

var _ attendance.Store = (*AttendanceRepository)(nil)
