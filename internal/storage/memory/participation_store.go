package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// ParticipationStore is an in-memory storage.ParticipationStore.
type ParticipationStore struct {
	mu   sync.RWMutex
	rows []*domain.Participation
}

// NewParticipationStore creates an empty in-memory participation store.
func NewParticipationStore() *ParticipationStore {
	return &ParticipationStore{}
}

func (s *ParticipationStore) Insert(_ context.Context, p *domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.CampaignID == p.CampaignID && row.Wallet == p.Wallet {
			return storage.ErrDuplicateKey
		}
	}
	clone := *p
	s.rows = append(s.rows, &clone)
	return nil
}

func (s *ParticipationStore) MaxProcessedSlot(context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return 0, false, nil
	}
	var maxSlot int64
	for _, row := range s.rows {
		if row.LastProcessedSlot > maxSlot {
			maxSlot = row.LastProcessedSlot
		}
	}
	return maxSlot, true, nil
}

func (s *ParticipationStore) ListByCampaign(_ context.Context, campaignID string, offset, limit int) ([]*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Participation
	for _, row := range s.rows {
		if row.CampaignID == campaignID {
			clone := *row
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Wallet < matched[j].Wallet })

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *ParticipationStore) List(_ context.Context, filter storage.ParticipationFilter, offset, limit int) ([]*domain.Participation, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Participation
	for _, row := range s.rows {
		if filter.CampaignID != "" && row.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Wallet != "" && row.Wallet != filter.Wallet {
			continue
		}
		clone := *row
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *ParticipationStore) UpdatePositions(_ context.Context, campaignID string, positions map[string]uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.CampaignID != campaignID {
			continue
		}
		if pos, ok := positions[row.Wallet]; ok {
			row.DistributionPosition = pos
		}
	}
	return nil
}

var _ storage.ParticipationStore = (*ParticipationStore)(nil)
