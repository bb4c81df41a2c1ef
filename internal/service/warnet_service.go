package service

import (
	"context"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
)

// WarnetService serves the public venue catalogue.
type WarnetService struct {
	warnets WarnetStore
	pcs     PCStore
}

func NewWarnetService(warnets WarnetStore, pcs PCStore) *WarnetService {
	return &WarnetService{warnets: warnets, pcs: pcs}
}

// WarnetDetail is a venue with every PC slot and its house rules.
type WarnetDetail struct {
	model.Warnet
	PCs   []model.PC         `json:"pcs"`
	Rules []model.WarnetRule `json:"rules"`
}

func (s *WarnetService) List(ctx context.Context, search string) ([]repository.WarnetSummary, error) {
	return s.warnets.List(ctx, search)
}

func (s *WarnetService) active(ctx context.Context, id uint64) (*model.Warnet, error) {
	w, err := s.warnets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, ErrNotFound
	}
	return w, nil
}

// Detail lists PCs 1..TotalPCs; numbers without a stored row are reported
// available.
func (s *WarnetService) Detail(ctx context.Context, id uint64) (*WarnetDetail, error) {
	w, err := s.active(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.pcs.ListByWarnet(ctx, id)
	if err != nil {
		return nil, err
	}
	rules, err := s.warnets.Rules(ctx, id)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[uint32]model.PC, len(stored))
	for _, p := range stored {
		byNumber[p.PCNumber] = p
	}
	pcs := make([]model.PC, 0, w.TotalPCs)
	for n := uint32(1); n <= w.TotalPCs; n++ {
		if p, ok := byNumber[n]; ok {
			pcs = append(pcs, p)
			continue
		}
		pcs = append(pcs, model.PC{WarnetID: id, PCNumber: n, Status: model.PCAvailable})
	}
	return &WarnetDetail{Warnet: *w, PCs: pcs, Rules: rules}, nil
}

func (s *WarnetService) Rules(ctx context.Context, id uint64) ([]model.WarnetRule, error) {
	if _, err := s.active(ctx, id); err != nil {
		return nil, err
	}
	return s.warnets.Rules(ctx, id)
}
