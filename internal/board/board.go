// Package board groups rental applications into status columns and moves
// them between columns.
package board

import (
	"errors"
	"fmt"

	"rentpilot/internal/models"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidStatus       = errors.New("invalid application status")
)

// Columns are the statuses rendered on the board, in display order.
// Rejected applications are reachable but have no column.
var Columns = []models.ApplicationStatus{
	models.ApplicationNew,
	models.ApplicationReviewed,
	models.ApplicationApproved,
}

// StatusChangeFunc is told about every accepted move
type StatusChangeFunc func(applicationID string, status models.ApplicationStatus)

type Board struct {
	onStatusChange StatusChangeFunc
}

func New(onStatusChange StatusChangeFunc) *Board {
	return &Board{onStatusChange: onStatusChange}
}

type Column struct {
	Status       models.ApplicationStatus `json:"status"`
	Applications []models.Application     `json:"applications"`
}

// Group filters applications into one column per rendered status. Order
// within a column follows the input.
func (b *Board) Group(applications []models.Application) []Column {
	columns := make([]Column, len(Columns))
	index := make(map[models.ApplicationStatus]int, len(Columns))
	for i, status := range Columns {
		columns[i] = Column{Status: status, Applications: []models.Application{}}
		index[status] = i
	}

	for _, a := range applications {
		if i, ok := index[a.Status]; ok {
			columns[i].Applications = append(columns[i].Applications, a)
		}
	}
	return columns
}

// Move returns a copy of applications with the given one set to status and
// notifies the status change handler once. The input slice is left as is.
// Any transition between known statuses is accepted.
func (b *Board) Move(applications []models.Application, id string, status models.ApplicationStatus) ([]models.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	moved := make([]models.Application, len(applications))
	copy(moved, applications)

	found := false
	for i := range moved {
		if moved[i].ID == id {
			moved[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, id)
	}

	if b.onStatusChange != nil {
		b.onStatusChange(id, status)
	}
	return moved, nil
}
