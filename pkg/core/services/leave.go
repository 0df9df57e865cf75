package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// LeaveInput is an employee's request for time off. Both dates are inclusive.
type LeaveInput struct {
	EmployeeID string `validate:"required"`
	StartDate  string `validate:"required,datetime=2006-01-02"`
	EndDate    string `validate:"required,datetime=2006-01-02"`
}

// RequestLeave records a leave request in the requested state.
// Approval happens outside this module; only approved leave affects employee state.
func RequestLeave(ctx context.Context, store db.LeaveRequestStore, logger *zap.Logger, input LeaveInput) (*model.LeaveRequest, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationErrorFrom(err)
	}

	start, err := model.ParseDate(input.StartDate)
	if err != nil {
		return nil, &ValidationError{Field: "StartDate", Reason: err.Error()}
	}
	end, err := model.ParseDate(input.EndDate)
	if err != nil {
		return nil, &ValidationError{Field: "EndDate", Reason: err.Error()}
	}
	if end.Before(start) {
		return nil, &ValidationError{Field: "EndDate", Reason: "leave ends before it starts"}
	}

	employee, err := store.GetEmployee(ctx, input.EmployeeID)
	if err != nil {
		return nil, notFoundOr(err, "employee", input.EmployeeID)
	}
	if employee.State == model.EmployeeTerminated {
		return nil, &StateError{Kind: "employee", ID: employee.ID, State: string(employee.State)}
	}

	leave := &model.LeaveRequest{
		ID:         uuid.New().String(),
		EmployeeID: employee.ID,
		StartDate:  start,
		EndDate:    end,
		State:      model.LeaveRequested,
	}

	if err := store.InsertLeaveRequest(ctx, leave); err != nil {
		return nil, fmt.Errorf("failed to insert leave request: %w", err)
	}

	logger.Info("Leave requested",
		zap.String("leave_id", leave.ID),
		zap.String("employee_id", employee.ID),
		zap.String("start", input.StartDate),
		zap.String("end", input.EndDate))

	return leave, nil
}
