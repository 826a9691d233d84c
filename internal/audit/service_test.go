package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	windowRows     []Record
	allRows        []Record
	lastWindowCall WindowParams
	lastAllCall    WindowParams
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, arg WindowParams) ([]Record, error) {
	s.lastWindowCall = arg
	return s.windowRows, nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, arg WindowParams) ([]Record, error) {
	s.lastAllCall = arg
	return s.allRows, nil
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		windowRows: []Record{
			mockRecord("2024-03-10T10:00:00Z", "ana@example.com", "login", "account", "u1", `{"ip":"10.0.0.1"}`),
			mockRecord("2024-03-09T09:00:00Z", "ana@example.com", "role_change_rejected", "profile", "u1", `{"requested":"admin"}`),
			mockRecord("2024-03-08T08:00:00Z", "bia@example.com", "register", "account", "u2", ""),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.EqualValues(t, 3, repo.lastWindowCall.LimitRows)
	assert.EqualValues(t, 0, repo.lastWindowCall.OffsetRows)
	assert.Equal(t, "admin", result.Rows[1].Meta["requested"])
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), repo.lastWindowCall.ToAt.Time, "to is inclusive")
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	_, err := NewService(repo).Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.EqualValues(t, 51, repo.lastWindowCall.LimitRows)
	assert.EqualValues(t, 100, repo.lastWindowCall.OffsetRows)
	assert.False(t, repo.lastWindowCall.FromAt.Valid)
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubTimelineRepo{
		allRows: []Record{
			mockRecord("2024-03-10T10:00:00Z", "actor", "logout", "session", "s1", ""),
			mockRecord("2024-03-09T09:00:00Z", "actor", "login", "account", "u1", ""),
		},
	}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Action: " login "})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, pgtype.Text{}, repo.lastAllCall.Actor, "expected actor filter empty")
	assert.Equal(t, pgtype.Text{String: "login", Valid: true}, repo.lastAllCall.Action)
}

func TestServiceWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	out, err := NewExporter(nil).WriteCSV([]TimelineRow{{
		At:     time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		Actor:  "ana@example.com",
		Action: "login",
		Entity: "account",
		Meta:   map[string]any{"ip": "10.0.0.1"},
	}})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "at,actor,action,entity,entity_id,meta", lines[0])
	assert.Equal(t, `2024-03-10T10:00:00Z,ana@example.com,login,account,,"{""ip"":""10.0.0.1""}"`, lines[1])
}

func mockRecord(ts, actor, action, entity, entityID, meta string) Record {
	tval, _ := time.Parse(time.RFC3339, ts)
	rec := Record{
		At:       pgtype.Timestamptz{Time: tval, Valid: true},
		Actor:    actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if meta != "" {
		rec.Meta = []byte(meta)
	}
	return rec
}

type capturePDF struct{ html string }

func (c *capturePDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	c.html = html
	return []byte("%PDF"), nil
}

func TestRenderPDF(t *testing.T) {
	_, err := NewExporter(nil).RenderPDF(context.Background(), ViewModel{})
	assert.ErrorIs(t, err, ErrPDFUnavailable)

	pdf := &capturePDF{}
	out, err := NewExporter(pdf).RenderPDF(context.Background(), ViewModel{
		Filters: FiltersViewModel{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		Rows:    []TimelineRow{{Actor: "<script>", Action: "login"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out))
	assert.Contains(t, pdf.html, "01/03/2024 a 15/03/2024")
	assert.Contains(t, pdf.html, "&lt;script&gt;")
}
