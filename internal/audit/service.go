// Package audit reads the audit trail written by the access core.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// WindowParams are the query arguments of the repository. Null fields do not
// filter.
type WindowParams struct {
	FromAt     pgtype.Timestamptz
	ToAt       pgtype.Timestamptz
	Actor      pgtype.Text
	Entity     pgtype.Text
	Action     pgtype.Text
	OffsetRows int32
	LimitRows  int32
}

// Record is a raw audit_logs row.
type Record struct {
	At       pgtype.Timestamptz
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     []byte
}

// Repository provides the audit_logs queries.
type Repository interface {
	TimelineWindow(ctx context.Context, arg WindowParams) ([]Record, error)
	TimelineAll(ctx context.Context, arg WindowParams) ([]Record, error)
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}

// Service coordinates audit trail reads.
type Service struct {
	repo Repository
}

// NewService creates an audit trail service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries, newest first.
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
	params := baseParams(filters)
	params.OffsetRows = int32((page - 1) * pageSize)
	params.LimitRows = int32(pageSize + 1)

	records, err := s.repo.TimelineWindow(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(records) > pageSize
	if hasNext {
		records = records[:pageSize]
	}
	rows := make([]TimelineRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, mapRecord(rec))
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

// Export returns every entry matching filters without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	records, err := s.repo.TimelineAll(ctx, baseParams(filters))
	if err != nil {
		return nil, err
	}
	rows := make([]TimelineRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, mapRecord(rec))
	}
	return rows, nil
}

func baseParams(filters TimelineFilters) WindowParams {
	to := filters.To
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	return WindowParams{
		FromAt: toPgTime(filters.From),
		ToAt:   toPgTime(to),
		Actor:  optionalText(filters.Actor),
		Entity: optionalText(filters.Entity),
		Action: optionalText(filters.Action),
	}
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func mapRecord(rec Record) TimelineRow {
	row := TimelineRow{
		Actor:    rec.Actor,
		Action:   rec.Action,
		Entity:   rec.Entity,
		EntityID: rec.EntityID,
	}
	if rec.At.Valid {
		row.At = rec.At.Time
	}
	if len(rec.Meta) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(rec.Meta, &meta); err == nil && len(meta) > 0 {
			row.Meta = meta
		}
	}
	return row
}
