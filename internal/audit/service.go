package audit

import (
	"context"
	"fmt"
	"strings"
)

// Repository reads audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error)
	TimelineAll(ctx context.Context, q Query) ([]TimelineRow, error)
}

// Result wraps a timeline page with paging info.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService builds the audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.TimelineWindow(ctx, WindowParams{
		Query:  toQuery(filters),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching entry without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.TimelineAll(ctx, toQuery(filters))
}

func toQuery(f TimelineFilters) Query {
	return Query{
		From:   f.From,
		To:     f.To,
		Actor:  strings.TrimSpace(f.Actor),
		Entity: strings.TrimSpace(f.Entity),
		Action: strings.TrimSpace(f.Action),
	}
}
