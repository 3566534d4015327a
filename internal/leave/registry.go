// Package leave holds approved date ranges that unconditionally block
// attendance, plus the balance accounting around approval.
package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
)

var (
	ErrNotFound        = errors.New("leave request not found")
	ErrBalanceExceeded = errors.New("leave balance exceeded")
	ErrNotPending      = errors.New("leave request is not pending")
)

type Store interface {
	Insert(ctx context.Context, req *models.LeaveRequest) error
	List(ctx context.Context) ([]models.LeaveRequest, error)
	// ApprovedOn reports whether the staff member has an approved request
	// covering the given "YYYY-MM-DD" date.
	ApprovedOn(ctx context.Context, staffID, date string) (bool, error)
	// RunLocked executes fn holding row locks on the request and on the
	// owning staff row, so concurrent approvals cannot double-deduct.
	RunLocked(ctx context.Context, requestID string, fn func(tx Tx) error) error
}

type Tx interface {
	Request() (*models.LeaveRequest, error)
	SetStatus(status models.LeaveStatus) error
	Balance() (balance, entitlement int, err error)
	SetBalance(balance int) error
	Delete() error
}

type Registry struct {
	store Store
	clock *clockutil.Clock
}

func NewRegistry(store Store, clock *clockutil.Clock) *Registry {
	return &Registry{store: store, clock: clock}
}

// Request files a new pending leave request.
func (r *Registry) Request(ctx context.Context, staffID, startDate, endDate, reason string) (*models.LeaveRequest, error) {
	req := &models.LeaveRequest{
		ID:        uuid.NewString(),
		StaffID:   staffID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    reason,
		Status:    models.LeavePending,
		CreatedAt: r.clock.Now(),
	}
	if req.Days() == 0 {
		return nil, fmt.Errorf("invalid leave range %s..%s", startDate, endDate)
	}
	if err := r.store.Insert(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Registry) List(ctx context.Context) ([]models.LeaveRequest, error) {
	return r.store.List(ctx)
}

// Approve deducts the inclusive day count from the staff balance. The
// balance can never go below zero; exceeding it rejects the approval.
func (r *Registry) Approve(ctx context.Context, requestID string) error {
	return r.store.RunLocked(ctx, requestID, func(tx Tx) error {
		req, err := tx.Request()
		if err != nil {
			return err
		}
		if req.Status != models.LeavePending {
			return ErrNotPending
		}
		balance, _, err := tx.Balance()
		if err != nil {
			return err
		}
		days := req.Days()
		if days > balance {
			return ErrBalanceExceeded
		}
		if err := tx.SetBalance(balance - days); err != nil {
			return err
		}
		return tx.SetStatus(models.LeaveApproved)
	})
}

func (r *Registry) Reject(ctx context.Context, requestID string) error {
	return r.store.RunLocked(ctx, requestID, func(tx Tx) error {
		req, err := tx.Request()
		if err != nil {
			return err
		}
		if req.Status != models.LeavePending {
			return ErrNotPending
		}
		return tx.SetStatus(models.LeaveRejected)
	})
}

// Delete removes a request. Deleting an approved request before it starts
// reverses the deduction, capped at the staff entitlement.
func (r *Registry) Delete(ctx context.Context, requestID string) error {
	today := r.clock.Today()
	return r.store.RunLocked(ctx, requestID, func(tx Tx) error {
		req, err := tx.Request()
		if err != nil {
			return err
		}
		if req.Status == models.LeaveApproved && today < req.StartDate {
			balance, entitlement, err := tx.Balance()
			if err != nil {
				return err
			}
			restored := balance + req.Days()
			if restored > entitlement {
				restored = entitlement
			}
			if err := tx.SetBalance(restored); err != nil {
				return err
			}
		}
		return tx.Delete()
	})
}

// OnLeave reports whether the staff member is on approved leave on the date.
func (r *Registry) OnLeave(ctx context.Context, staffID, date string) (bool, error) {
	return r.store.ApprovedOn(ctx, staffID, date)
}
