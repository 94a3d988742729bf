package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssignStore is the slice of storage Assign needs. Sales pass their
// transaction so participations commit or roll back with the sale.
type AssignStore interface {
	GetWorker(ctx context.Context, id string) (Worker, error)
	InsertParticipation(ctx context.Context, p Participation) error
}

// AssignRequest names the staff who worked a sale.
type AssignRequest struct {
	SaleID     string
	CookID     string
	DeliveryID string
	Units      int
	At         time.Time
}

// Assign records a participation for the cook and the delivery worker of a
// sale. Each earns payment_per_sale for every unit sold.
func Assign(ctx context.Context, tx AssignStore, req AssignRequest) ([]Participation, error) {
	units := req.Units
	if units <= 0 {
		units = 1
	}
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	slots := []struct {
		workerID string
		role     Role
	}{
		{req.CookID, RoleCook},
		{req.DeliveryID, RoleDelivery},
	}
	var out []Participation
	for _, slot := range slots {
		if slot.workerID == "" {
			continue
		}
		worker, err := tx.GetWorker(ctx, slot.workerID)
		if err != nil {
			return nil, err
		}
		if !worker.Active {
			return nil, fmt.Errorf("%w: %s", ErrWorkerInactive, worker.Name)
		}
		p := Participation{
			ID:         uuid.NewString(),
			SaleID:     req.SaleID,
			WorkerID:   worker.ID,
			WorkerName: worker.Name,
			Role:       slot.role,
			Payment:    worker.PaymentPerSale * float64(units),
			Date:       at,
		}
		if err := tx.InsertParticipation(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
