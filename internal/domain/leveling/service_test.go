package leveling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"devcycle/internal/domain/workflow"
	"devcycle/internal/requestctx"
)

type recordingEmitter struct{ events []workflow.Event }

func (r *recordingEmitter) Emit(_ context.Context, evt workflow.Event) {
	r.events = append(r.events, evt)
}

// updateItemQuery pins the item write: each parameter feeds exactly one
// column, and the score arrives precomputed in hundredths.
const updateItemQuery = `^\s*UPDATE cl_items\s+SET assigned_level = \$1, weight = \$2, justification = \$3, score = \$4::numeric / 100, updated_at = now\(\)\s+WHERE id = \$5 AND cl_header_id = \$6\s*$`

var fixedTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) (*Service, pgxmock.PgxPoolIface, *recordingEmitter) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	events := &recordingEmitter{}
	return NewService(mock, events, nil, opts), mock, events
}

func headerRows(id int64, status string, version int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "employee_id", "supervisor_id", "department_id", "cycle_id", "status", "requires_am_approval", "version", "created_at", "updated_at"}).
		AddRow(id, int64(10), int64(2), int64(1), int64(2024), status, false, version, fixedTime, fixedTime)
}

func itemColumns() []string {
	return []string{"id", "cl_header_id", "competency_id", "name", "mplr_level", "assigned_level", "weight", "justification", "score", "supporting_document_path", "created_at", "updated_at"}
}

func expectLock(mock pgxmock.PgxPoolIface, id int64, version int64, status string) {
	mock.ExpectQuery("SELECT version, status FROM cl_headers").WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"version", "status"}).AddRow(version, status))
}

func expected(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePreloadsPositionCompetencies(t *testing.T) {
	svc, mock, events := newTestService(t, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cl_headers").WithArgs(int64(10), int64(2), int64(1), int64(2024), "DRAFT").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("FROM users").WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"position_id"}).AddRow(int64(4)))
	mock.ExpectQuery("FROM position_competencies").WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"competency_id", "required_level"}).AddRow(int64(5), 3))
	mock.ExpectExec("INSERT INTO cl_items").WithArgs(int64(1), int64(5), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ctx := requestctx.WithActorID(requestctx.WithRequestID(context.Background(), "req-1"), 2)
	id, err := svc.Create(ctx, CreateInput{EmployeeID: 10, SupervisorID: 2, DepartmentID: 1, CycleID: 2024})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	expected(t, mock)

	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	evt := events.events[0]
	if evt.Action != workflow.ActionLevelingCreated || evt.EntityID != 1 || evt.EmployeeID != 10 || evt.ActorID != 2 || evt.RequestID != "req-1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestCreateWithoutPositionHasNoItems(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cl_headers").WithArgs(int64(11), int64(2), int64(1), int64(2024), "DRAFT").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("FROM users").WithArgs(int64(11)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	id, err := svc.Create(context.Background(), CreateInput{EmployeeID: 11, SupervisorID: 2, DepartmentID: 1, CycleID: 2024})
	if err != nil || id != 3 {
		t.Fatalf("expected header 3 without error, got %d / %v", id, err)
	}
	expected(t, mock)
}

func TestCreateRollsBackWhenItemInsertFails(t *testing.T) {
	svc, mock, events := newTestService(t, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cl_headers").WithArgs(int64(10), int64(2), int64(1), int64(2024), "DRAFT").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("FROM users").WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"position_id"}).AddRow(int64(4)))
	mock.ExpectQuery("FROM position_competencies").WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"competency_id", "required_level"}).
			AddRow(int64(5), 3).
			AddRow(int64(6), 5))
	mock.ExpectExec("INSERT INTO cl_items").WithArgs(int64(1), int64(5), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO cl_items").WithArgs(int64(1), int64(6), 5).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := svc.Create(context.Background(), CreateInput{EmployeeID: 10, SupervisorID: 2, DepartmentID: 1, CycleID: 2024}); err == nil {
		t.Fatal("expected failure")
	}
	expected(t, mock)
	if len(events.events) != 0 {
		t.Fatalf("expected no events after rollback, got %+v", events.events)
	}
}

func TestCreateDuplicateCycle(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cl_headers").WithArgs(int64(10), int64(2), int64(1), int64(2024), "DRAFT").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreateInput{EmployeeID: 10, SupervisorID: 2, DepartmentID: 1, CycleID: 2024})
	if !errors.Is(err, ErrDuplicate) || !errors.Is(err, workflow.ErrConflict) {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}
	expected(t, mock)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	_, err := svc.Create(context.Background(), CreateInput{EmployeeID: 10, SupervisorID: 2, CycleID: 2024})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	expected(t, mock)
}

func TestGetReturnsItemsAndTotals(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "DRAFT", 1))
	mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()).
		AddRow(int64(70), int64(7), int64(5), "Communication", 3, 4, 50, "clear", int64(200), "", fixedTime, fixedTime).
		AddRow(int64(71), int64(7), int64(6), "Ownership", 2, 2, 25, "", int64(50), "docs/71.pdf", fixedTime, fixedTime))

	lv, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lv.Status != workflow.StatusDraft || len(lv.Items) != 2 {
		t.Fatalf("unexpected leveling: %+v", lv)
	}
	if lv.Items[0].CompetencyName != "Communication" || lv.Items[0].Score.String() != "2.00" {
		t.Fatalf("unexpected first item: %+v", lv.Items[0])
	}
	if lv.TotalWeight != 75 || lv.TotalScore.String() != "2.50" {
		t.Fatalf("unexpected totals %d / %s", lv.TotalWeight, lv.TotalScore)
	}
	expected(t, mock)
}

func TestGetNotFound(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})
	mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	expected(t, mock)
}

func TestGetPreservesUnknownStatus(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})
	mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "APPROVED_BY_HR", 5))
	mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()))

	lv, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lv.Status != "APPROVED_BY_HR" || lv.Status.Known() {
		t.Fatalf("expected verbatim unknown status, got %q", lv.Status)
	}
	if lv.Items == nil {
		t.Fatal("expected empty, non-nil items")
	}
}

func TestUpdateWritesScoreAtomicallyAndSkipsUnmatched(t *testing.T) {
	svc, mock, events := newTestService(t, Options{})

	mock.ExpectBegin()
	expectLock(mock, 7, 1, "DRAFT")
	mock.ExpectExec(updateItemQuery).WithArgs(4, 50, "solid delivery", int64(200), int64(70), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(updateItemQuery).WithArgs(2, 10, "", int64(20), int64(999), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE cl_headers SET updated_at").WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "DRAFT", 2))
	mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()).
		AddRow(int64(70), int64(7), int64(5), "Communication", 3, 4, 50, "solid delivery", int64(200), "", fixedTime, fixedTime).
		AddRow(int64(71), int64(7), int64(6), "Ownership", 2, 2, 0, "", int64(0), "", fixedTime, fixedTime))
	mock.ExpectCommit()

	lv, err := svc.Update(context.Background(), 7, UpdateInput{Items: []ItemUpdate{
		{ID: 70, AssignedLevel: 4, Weight: 50, Justification: "solid delivery"},
		{ID: 999, AssignedLevel: 2, Weight: 10},
	}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if lv.Version != 2 || lv.Items[1].Weight != 0 {
		t.Fatalf("unexpected result: %+v", lv)
	}
	expected(t, mock)

	if len(events.events) != 1 || events.events[0].Details["matched"] != 1 {
		t.Fatalf("expected one update event with one match, got %+v", events.events)
	}
}

func TestUpdateStrictRejectsUnmatchedItem(t *testing.T) {
	svc, mock, events := newTestService(t, Options{StrictItemMatch: true})

	mock.ExpectBegin()
	expectLock(mock, 7, 1, "DRAFT")
	mock.ExpectExec(updateItemQuery).WithArgs(4, 50, "", int64(200), int64(70), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(updateItemQuery).WithArgs(1, 1, "", int64(1), int64(999), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 7, UpdateInput{Items: []ItemUpdate{
		{ID: 70, AssignedLevel: 4, Weight: 50},
		{ID: 999, AssignedLevel: 1, Weight: 1},
	}})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	expected(t, mock)
	if len(events.events) != 0 {
		t.Fatal("expected no events")
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectBegin()
	expectLock(mock, 7, 3, "DRAFT")
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 7, UpdateInput{ExpectedVersion: 2, Items: []ItemUpdate{{ID: 70, AssignedLevel: 1, Weight: 1}}})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	expected(t, mock)
}

func TestUpdateMissingHeader(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version, status FROM cl_headers").WithArgs(int64(8)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	if _, err := svc.Update(context.Background(), 8, UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	expected(t, mock)
}

func TestUpdateRollsBackOnWriteFailure(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectBegin()
	expectLock(mock, 7, 1, "DRAFT")
	mock.ExpectExec(updateItemQuery).WithArgs(4, 50, "", int64(200), int64(70), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(updateItemQuery).WithArgs(3, 50, "", int64(150), int64(71), int64(7)).
		WillReturnError(errors.New("check constraint violated"))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 7, UpdateInput{Items: []ItemUpdate{
		{ID: 70, AssignedLevel: 4, Weight: 50},
		{ID: 71, AssignedLevel: 3, Weight: 50},
	}})
	if err == nil {
		t.Fatal("expected failure")
	}
	expected(t, mock)
}

func TestUpdateValidatesRanges(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})
	tests := []ItemUpdate{
		{ID: 0, Weight: 10, AssignedLevel: 1},
		{ID: 1, Weight: 101, AssignedLevel: 1},
		{ID: 1, Weight: -1, AssignedLevel: 1},
		{ID: 1, Weight: 10, AssignedLevel: 256},
	}
	for _, item := range tests {
		if _, err := svc.Update(context.Background(), 7, UpdateInput{Items: []ItemUpdate{item}}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%+v: expected invalid input, got %v", item, err)
		}
	}
	expected(t, mock)
}

func TestSubmitTransitionsOnceAndIsIdempotent(t *testing.T) {
	svc, mock, events := newTestService(t, Options{})

	mock.ExpectBegin()
	expectLock(mock, 7, 2, "DRAFT")
	mock.ExpectExec("UPDATE cl_headers SET status").WithArgs("PENDING_AM", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "PENDING_AM", 3))
	mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()))
	mock.ExpectCommit()

	mock.ExpectBegin()
	expectLock(mock, 7, 3, "PENDING_AM")
	mock.ExpectExec("UPDATE cl_headers SET status").WithArgs("PENDING_AM", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "PENDING_AM", 4))
	mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()))
	mock.ExpectCommit()

	first, err := svc.Submit(context.Background(), 7, 0)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := svc.Submit(context.Background(), 7, 0)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.Status != workflow.StatusPendingAM || second.Status != workflow.StatusPendingAM {
		t.Fatalf("expected PENDING_AM twice, got %s / %s", first.Status, second.Status)
	}
	expected(t, mock)

	if len(events.events) != 1 || events.events[0].Action != workflow.ActionLevelingSubmitted {
		t.Fatalf("expected exactly one submitted event, got %+v", events.events)
	}
}

func TestSubmitRequiresBalancedWeights(t *testing.T) {
	tests := []struct {
		name    string
		count   int64
		total   int64
		wantErr bool
	}{
		{name: "balanced", count: 2, total: 100},
		{name: "short", count: 2, total: 90, wantErr: true},
		{name: "no items", count: 0, total: 0, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock, _ := newTestService(t, Options{RequireBalancedWeights: true})

			mock.ExpectBegin()
			expectLock(mock, 7, 1, "DRAFT")
			mock.ExpectQuery("SUM\\(weight\\)").WithArgs(int64(7)).
				WillReturnRows(pgxmock.NewRows([]string{"count", "sum"}).AddRow(tc.count, tc.total))
			if tc.wantErr {
				mock.ExpectRollback()
			} else {
				mock.ExpectExec("UPDATE cl_headers SET status").WithArgs("PENDING_AM", int64(7)).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "PENDING_AM", 2))
				mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()))
				mock.ExpectCommit()
			}

			_, err := svc.Submit(context.Background(), 7, 0)
			if tc.wantErr != errors.Is(err, ErrWeightsUnbalanced) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			expected(t, mock)
		})
	}
}

func TestListAppliesFilters(t *testing.T) {
	svc, mock, _ := newTestService(t, Options{})

	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM cl_headers WHERE 1=1 AND employee_id = \\$1 AND status = \\$2").
		WithArgs(int64(10), "DRAFT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM cl_headers WHERE 1=1 AND employee_id = \\$1 AND status = \\$2 ORDER BY").
		WithArgs(int64(10), "DRAFT", 20, 0).
		WillReturnRows(headerRows(7, "DRAFT", 1))

	res, err := svc.List(context.Background(), ListFilter{EmployeeID: 10, Status: "DRAFT", Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || len(res.Headers) != 1 || res.Headers[0].ID != 7 {
		t.Fatalf("unexpected list result: %+v", res)
	}
	expected(t, mock)
}

func TestUpdateBindsScoreForEveryLevelAndWeight(t *testing.T) {
	tests := []struct {
		name   string
		level  int
		weight int
		want   int64
	}{
		{"zero weight", 5, 0, 0},
		{"full weight", 3, 100, 300},
		{"fractional", 3, 33, 99},
		{"max level", MaxLevel, MaxWeight, 25500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _ := newTestService(t, Options{})

			mock.ExpectBegin()
			expectLock(mock, 7, 1, "DRAFT")
			mock.ExpectExec(updateItemQuery).WithArgs(tt.level, tt.weight, "", tt.want, int64(70), int64(7)).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			mock.ExpectExec("UPDATE cl_headers SET updated_at").WithArgs(int64(7)).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			mock.ExpectQuery("FROM cl_headers WHERE id").WithArgs(int64(7)).WillReturnRows(headerRows(7, "DRAFT", 2))
			mock.ExpectQuery("FROM cl_items i").WithArgs(int64(7)).WillReturnRows(pgxmock.NewRows(itemColumns()).
				AddRow(int64(70), int64(7), int64(5), "Communication", 3, tt.level, tt.weight, "", tt.want, "", fixedTime, fixedTime))
			mock.ExpectCommit()

			lv, err := svc.Update(context.Background(), 7, UpdateInput{Items: []ItemUpdate{
				{ID: 70, AssignedLevel: tt.level, Weight: tt.weight},
			}})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if lv.TotalScore.Hundredths() != tt.want {
				t.Fatalf("expected total %d hundredths, got %s", tt.want, lv.TotalScore)
			}
			expected(t, mock)
		})
	}
}
