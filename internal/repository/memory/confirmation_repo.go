package memory

import (
	"context"
	"sync"

	"vapi/internal/domain/entities"
)

type ConfirmationRepository struct {
	mu            sync.RWMutex
	confirmations map[string][]*entities.Confirmation // reportID → confirmations
}

func NewConfirmationRepository() *ConfirmationRepository {
	return &ConfirmationRepository{
		confirmations: make(map[string][]*entities.Confirmation),
	}
}

func (r *ConfirmationRepository) Create(ctx context.Context, confirmation *entities.Confirmation) error {
	stored := *confirmation

	r.mu.Lock()
	defer r.mu.Unlock()

	r.confirmations[stored.ReportID] = append(r.confirmations[stored.ReportID], &stored)
	return nil
}

func (r *ConfirmationRepository) ListByReport(ctx context.Context, reportID string) ([]*entities.Confirmation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.confirmations[reportID]
	out := make([]*entities.Confirmation, 0, len(list))
	for _, c := range list {
		cc := *c
		out = append(out, &cc)
	}
	return out, nil
}
