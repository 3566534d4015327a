package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/qr"
)

type QRRepository struct {
	db *sql.DB
}

func NewQRRepository(db *sql.DB) *QRRepository {
	return &QRRepository{db: db}
}

func (r *QRRepository) DeactivateActive(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE qr_sessions SET active = FALSE WHERE active`)
	return err
}

func (r *QRRepository) DeactivateExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE qr_sessions SET active = FALSE WHERE active AND expires_at <= $1`, now)
	return err
}

func (r *QRRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE qr_sessions SET active = FALSE WHERE id = $1`, id)
	return err
}

func (r *QRRepository) Insert(ctx context.Context, s *models.QRSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_sessions (id, session_code, created_by, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Code, s.CreatedBy, s.CreatedAt, s.ExpiresAt, s.Active)
	return err
}

const qrColumns = `id, session_code, created_by, created_at, expires_at, active`

func (r *QRRepository) scanOne(row *sql.Row) (*models.QRSession, error) {
	var s models.QRSession
	err := row.Scan(&s.ID, &s.Code, &s.CreatedBy, &s.CreatedAt, &s.ExpiresAt, &s.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *QRRepository) Active(ctx context.Context) (*models.QRSession, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT `+qrColumns+` FROM qr_sessions WHERE active ORDER BY created_at DESC LIMIT 1`))
}

func (r *QRRepository) ByCode(ctx context.Context, code string) (*models.QRSession, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT `+qrColumns+` FROM qr_sessions WHERE session_code = $1`, code))
}

var _ qr.Store = (*QRRepository)(nil)
