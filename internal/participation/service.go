package participation

import (
	"context"

	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/storage"
)

// DefaultPageSize bounds participation listing pages.
const DefaultPageSize = 10

// Page is the paging envelope returned by list queries.
type Page struct {
	TotalItems int64    `json:"totalItems"`
	Page       PageData `json:"page"`
}

// PageData carries one zero-indexed page of rows.
type PageData struct {
	Index int                     `json:"index"`
	Size  int                     `json:"size"`
	Data  []*domain.Participation `json:"data"`
}

// Service answers participation queries.
type Service struct {
	store storage.ParticipationStore
}

// NewService builds the participation query service.
func NewService(store storage.ParticipationStore) *Service {
	return &Service{store: store}
}

// List returns one page of participations matching the filter, newest
// first. pageIndex is zero-based; a non-positive pageSize falls back to the
// default.
func (s *Service) List(ctx context.Context, filter storage.ParticipationFilter, pageIndex, pageSize int) (*Page, error) {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	rows, total, err := s.store.List(ctx, filter, pageIndex*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	return &Page{
		TotalItems: total,
		Page: PageData{
			Index: pageIndex,
			Size:  len(rows),
			Data:  rows,
		},
	}, nil
}
