package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/evn/attendance_backendl/internal/leave"
	"github.com/evn/attendance_backendl/internal/models"
)

type LeaveRepository struct {
	db *sql.DB
}

func NewLeaveRepository(db *sql.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) Insert(ctx context.Context, req *models.LeaveRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leave_requests (id, staff_id, start_date, end_date, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		req.ID, req.StaffID, req.StartDate, req.EndDate, req.Reason, string(req.Status), req.CreatedAt)
	return err
}

const leaveColumns = `id, staff_id, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	reason, status, created_at, updated_at`

func scanLeave(row interface{ Scan(dest ...any) error }) (*models.LeaveRequest, error) {
	var req models.LeaveRequest
	err := row.Scan(&req.ID, &req.StaffID, &req.StartDate, &req.EndDate,
		&req.Reason, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *LeaveRepository) List(ctx context.Context) ([]models.LeaveRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+leaveColumns+` FROM leave_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaveRequest
	for rows.Next() {
		req, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (r *LeaveRepository) ApprovedOn(ctx context.Context, staffID, date string) (bool, error) {
	var on bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leave_requests
			WHERE staff_id = $1 AND status = 'approved'
			  AND start_date <= $2 AND end_date >= $2
		)`, staffID, date).Scan(&on)
	return on, err
}

// RunLocked locks the request row and its owning staff row, so concurrent
// approvals cannot double-deduct the balance.
func (r *LeaveRepository) RunLocked(ctx context.Context, requestID string, fn func(tx leave.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var staffID string
	err = tx.QueryRowContext(ctx, `SELECT staff_id FROM leave_requests WHERE id = $1 FOR UPDATE`, requestID).Scan(&staffID)
	if err == sql.ErrNoRows {
		return leave.ErrNotFound
	}
	if err != nil {
		return err
	}
	var locked string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM staff WHERE id = $1 FOR UPDATE`, staffID).Scan(&locked); err != nil {
		return err
	}

	if err := fn(&leaveTx{ctx: ctx, tx: tx, requestID: requestID, staffID: staffID}); err != nil {
		return err
	}
	return tx.Commit()
}

type leaveTx struct {
	ctx       context.Context
	tx        *sql.Tx
	requestID string
	staffID   string
}

func (t *leaveTx) Request() (*models.LeaveRequest, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+leaveColumns+` FROM leave_requests WHERE id = $1`, t.requestID)
	req, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	return req, err
}

func (t *leaveTx) SetStatus(status models.LeaveStatus) error {
	_, err := t.tx.ExecContext(t.ctx, `UPDATE leave_requests SET status = $2, updated_at = $3 WHERE id = $1`,
		t.requestID, string(status), time.Now().UTC())
	return err
}

func (t *leaveTx) Balance() (int, int, error) {
	var balance, entitlement int
	err := t.tx.QueryRowContext(t.ctx, `SELECT leave_balance, leave_entitlement FROM staff WHERE id = $1`, t.staffID).
		Scan(&balance, &entitlement)
	return balance, entitlement, err
}

func (t *leaveTx) SetBalance(balance int) error {
	_, err := t.tx.ExecContext(t.ctx, `UPDATE staff SET leave_balance = $2 WHERE id = $1`, t.staffID, balance)
	return err
}

func (t *leaveTx) Delete() error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM leave_requests WHERE id = $1`, t.requestID)
	return err
}

var _ leave.Store = (*LeaveRepository)(nil)
