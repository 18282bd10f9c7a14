/*
handlers_test.go - HTTP tests for API handlers

Tests run the full chi router over the in-memory store:
- Leases, tariffs and continuity
- Provisions, amount due and exit statement
- Revision preview and application
- Regularization run, history and payment
- Loan schedule and capital remaining
- Building summary
- Error-to-status mapping and the continuity auditor
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lease-engine/api"
	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var fixedNow = time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

type testServer struct {
	store  *memory.Memory
	router http.Handler
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	h := api.NewHandler(store, zerolog.Nop())
	h.Now = func() time.Time { return fixedNow }
	h.Settlement.Now = func() time.Time { return fixedNow }
	return &testServer{store: store, router: api.NewRouter(h, nil)}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// seedLease creates lease L1 on local apt-3 of building B1 from 2023-01-01
// with an open tariff (rent 1000, charges 100, index 100).
func (s *testServer) seedLease(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/leases", api.CreateLeaseRequest{
		ID: "L1", LocalID: "apt-3", BuildingID: "B1", Start: "2023-01-01", Deposit: dec("1000"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	index := dec("100")
	rec = s.do(t, http.MethodPost, "/api/leases/L1/tariffs", api.CreateTariffRequest{
		Start: "2023-01-01", Rent: dec("1000"), Charges: dec("100"), Index: &index,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// LEASES AND TARIFFS
// =============================================================================

func TestLeaseAndTariffs(t *testing.T) {
	// GIVEN: a lease with one open tariff
	s := newServer(t)
	s.seedLease(t)

	// WHEN: listing its tariffs
	rec := s.do(t, http.MethodGet, "/api/leases/L1/tariffs", nil)

	// THEN: one open period with a generated ID
	require.Equal(t, http.StatusOK, rec.Code)
	tariffs := decodeBody[[]api.TariffDTO](t, rec)
	require.Len(t, tariffs, 1)
	assert.NotEmpty(t, tariffs[0].ID)
	assert.Nil(t, tariffs[0].End)
	assert.True(t, tariffs[0].Rent.Equal(dec("1000")))
	assert.Equal(t, fixedNow.Format(time.RFC3339), tariffs[0].CreatedAt)

	l := decodeBody[api.LeaseDTO](t, s.do(t, http.MethodGet, "/api/leases/L1", nil))
	assert.Equal(t, "MONTHLY", l.Frequency)
	assert.Equal(t, "PROVISION", l.ChargeMode)
}

func TestCreateTariff_OverlapConflict(t *testing.T) {
	// GIVEN: an open tariff from 2023-01-01
	s := newServer(t)
	s.seedLease(t)

	// WHEN: adding a second open tariff inside it
	rec := s.do(t, http.MethodPost, "/api/leases/L1/tariffs", api.CreateTariffRequest{
		Start: "2023-06-01", Rent: dec("1100"), Charges: dec("100"),
	})

	// THEN: 409 and nothing stored
	assert.Equal(t, http.StatusConflict, rec.Code)
	tariffs := decodeBody[[]api.TariffDTO](t, s.do(t, http.MethodGet, "/api/leases/L1/tariffs", nil))
	assert.Len(t, tariffs, 1)
}

func TestCreateTariff_Validation(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"bad date", "/api/leases/L1/tariffs", api.CreateTariffRequest{Start: "01/02/2024"}, http.StatusBadRequest},
		{"end before start", "/api/leases/L1/tariffs", api.CreateTariffRequest{Start: "2022-06-01", End: strPtr("2022-05-01")}, http.StatusBadRequest},
		{"unknown lease", "/api/leases/L9/tariffs", api.CreateTariffRequest{Start: "2024-01-01"}, http.StatusNotFound},
		{"malformed body", "/api/leases/L1/tariffs", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestGetTariffAt(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)

	rec := s.do(t, http.MethodGet, "/api/leases/L1/tariffs/at?date=2023-05-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[api.TariffDTO](t, rec).Rent.Equal(dec("1000")))

	// Before the first tariff: never defaulted
	rec = s.do(t, http.MethodGet, "/api/leases/L1/tariffs/at?date=2022-05-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/leases/L1/tariffs/at", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/leases/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetContinuity(t *testing.T) {
	// GIVEN: tariffs covering Q1 and from May onward, April uncovered
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/api/leases", api.CreateLeaseRequest{
		ID: "L2", LocalID: "apt-1", BuildingID: "B1", Start: "2023-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	for _, req := range []api.CreateTariffRequest{
		{Start: "2023-01-01", End: strPtr("2023-03-31"), Rent: dec("900")},
		{Start: "2023-05-01", Rent: dec("900")},
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/leases/L2/tariffs", req).Code)
	}

	// WHEN
	rec = s.do(t, http.MethodGet, "/api/leases/L2/continuity", nil)

	// THEN: the gap is reported with 200, it is advisory
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[api.ContinuityDTO](t, rec)
	assert.False(t, got.Continuous)
	require.Len(t, got.Gaps, 1)
	assert.Equal(t, api.GapDTO{Start: "2023-04-01", End: "2023-04-30", Days: 30}, got.Gaps[0])

	// And a provision over the gap fails
	rec = s.do(t, http.MethodGet, "/api/leases/L2/provisions?start=2023-04-01&end=2023-04-30", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// =============================================================================
// PROVISIONS AND BILLING
// =============================================================================

func TestGetProvisions(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)

	rec := s.do(t, http.MethodGet, "/api/leases/L1/provisions?start=2023-01-01&end=2023-03-31", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[api.ProvisionDTO](t, rec)
	assert.True(t, got.Total.Equal(dec("300")), "total = %s", got.Total)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, "2023-02", got.Lines[1].Month)
	assert.Equal(t, 28, got.Lines[1].DaysInMonth)
}

func TestGetAmountDueAndExit(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)

	rec := s.do(t, http.MethodGet, "/api/leases/L1/due?start=2023-02-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	due := decodeBody[api.DueDTO](t, rec)
	assert.Equal(t, "2023-02-28", due.End)
	assert.True(t, due.Total.Equal(dec("1100")))
	assert.True(t, due.VAT.IsZero())

	// Leaving mid-June with June's rent paid: 15 of 30 days refunded
	rec = s.do(t, http.MethodPost, "/api/leases/L1/exit", api.ExitRequest{
		ExitDate: "2023-06-15", RentPaid: true, Deductions: dec("50"),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	exit := decodeBody[api.ExitDTO](t, rec)
	assert.Equal(t, 15, exit.DaysPresent)
	assert.True(t, exit.Prorata.Equal(dec("500")))
	assert.True(t, exit.RentImpact.Equal(dec("500")))
	assert.True(t, exit.Final.Equal(dec("1450")))
}

// =============================================================================
// REVISIONS
// =============================================================================

func TestRevision_PreviewThenApply(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)
	req := api.RevisionRequest{AsOf: "2024-01-01", NewIndex: dec("104"), IndexPeriod: "T3 2023", Reason: "annual revision"}

	// WHEN: previewing
	rec := s.do(t, http.MethodPost, "/api/leases/L1/revisions/preview", req)

	// THEN: 1000 x 104 / 100, nothing written
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decodeBody[api.RevisionDTO](t, rec)
	assert.True(t, preview.NewRent.Equal(dec("1040")))
	assert.True(t, preview.VariationPct.Equal(dec("4")))
	assert.Nil(t, preview.Applied)
	assert.Len(t, decodeBody[[]api.TariffDTO](t, s.do(t, http.MethodGet, "/api/leases/L1/tariffs", nil)), 1)

	// WHEN: applying
	rec = s.do(t, http.MethodPost, "/api/leases/L1/revisions", req)

	// THEN: the open tariff is closed the day before and a new one opens
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	applied := decodeBody[api.RevisionDTO](t, rec)
	require.NotNil(t, applied.Applied)
	assert.Equal(t, "2024-01-01", applied.Applied.Start)
	assert.Equal(t, "T3 2023", applied.Applied.IndexPeriod)

	tariffs := decodeBody[[]api.TariffDTO](t, s.do(t, http.MethodGet, "/api/leases/L1/tariffs", nil))
	require.Len(t, tariffs, 2)
	require.NotNil(t, tariffs[0].End)
	assert.Equal(t, "2023-12-31", *tariffs[0].End)
	assert.True(t, tariffs[1].Rent.Equal(dec("1040")))
	require.NotNil(t, tariffs[1].Index)
	assert.True(t, tariffs[1].Index.Equal(dec("104")))
}

func TestRevision_MissingIndex(t *testing.T) {
	// GIVEN: a tariff without reference index
	s := newServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/leases", api.CreateLeaseRequest{
		ID: "L2", LocalID: "apt-1", BuildingID: "B1", Start: "2023-01-01",
	}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/leases/L2/tariffs", api.CreateTariffRequest{
		Start: "2023-01-01", Rent: dec("900"),
	}).Code)

	// WHEN
	rec := s.do(t, http.MethodPost, "/api/leases/L2/revisions/preview", api.RevisionRequest{AsOf: "2024-01-01", NewIndex: dec("104")})

	// THEN
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody[api.ErrorResponse](t, rec).Details, "missing_index")
}

// =============================================================================
// REGULARIZATIONS
// =============================================================================

func TestRegularization_SettleListPay(t *testing.T) {
	// GIVEN: a 400 yearly expense split 1/4 to apt-3
	s := newServer(t)
	s.seedLease(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/buildings/B1/keys", api.KeyRequest{ID: "general", Name: "General", Mode: "SHARES"}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/buildings/B1/shares", api.ShareRequest{KeyID: "general", LocalID: "apt-3", Weight: dec("1")}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/buildings/B1/shares", api.ShareRequest{KeyID: "general", LocalID: "apt-1", Weight: dec("3")}).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/buildings/B1/shares", api.ShareRequest{KeyID: "general", LocalID: "apt-1", Weight: dec("2")}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/buildings/B1/expenses", api.ExpenseRequest{
		Label: "Insurance", Amount: dec("400"), Date: "2023-03-01",
		ServiceStart: strPtr("2023-01-01"), ServiceEnd: strPtr("2023-12-31"), KeyID: strPtr("general"),
	}).Code)

	// WHEN: settling 2023 with history
	rec := s.do(t, http.MethodPost, "/api/leases/L1/regularizations", api.SettleRequest{Start: "2023-01-01", End: "2023-12-31", Record: true})

	// THEN: 100 real against 1200 provisions
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	settled := decodeBody[api.SettlementDTO](t, rec)
	assert.True(t, settled.Recorded)
	assert.True(t, settled.Record.RealTotal.Equal(dec("100")))
	assert.True(t, settled.Record.ProvisionsTotal.Equal(dec("1200")))
	assert.True(t, settled.Record.Balance.Equal(dec("-1100")))
	assert.False(t, settled.Record.TenantOwes)
	require.Len(t, settled.Trail, 1)
	assert.Equal(t, 365, settled.Trail[0].Days)
	assert.Len(t, settled.Provisions, 12)

	history := decodeBody[[]api.RecordDTO](t, s.do(t, http.MethodGet, "/api/leases/L1/regularizations", nil))
	require.Len(t, history, 1)
	id := history[0].ID

	// Paying before the record was created is rejected
	rec = s.do(t, http.MethodPost, "/api/regularizations/"+id+"/payment", api.PaymentRequest{PaidOn: "2024-01-15"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/regularizations/"+id+"/payment", api.PaymentRequest{PaidOn: "2024-02-10", Notes: "refund sent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeBody[api.RecordDTO](t, rec)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidOn)
	assert.Equal(t, "2024-02-10", *paid.PaidOn)

	rec = s.do(t, http.MethodPost, "/api/regularizations/unknown/payment", api.PaymentRequest{PaidOn: "2024-02-10"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegularization_PreviewDoesNotRecord(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/leases/L1/adjustments", api.AdjustmentRequest{
		Date: "2023-05-01", Label: "broken lock", Amount: dec("35"),
	}).Code)

	rec := s.do(t, http.MethodPost, "/api/leases/L1/regularizations", api.SettleRequest{Start: "2023-01-01", End: "2023-03-31"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[api.SettlementDTO](t, rec).Recorded)

	rec = s.do(t, http.MethodPost, "/api/leases/L1/regularizations", api.SettleRequest{Start: "2023-04-01", End: "2023-06-30"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[api.SettlementDTO](t, rec)
	assert.True(t, got.AdjustmentsTotal.Equal(dec("35")))
	assert.True(t, got.Record.Balance.Equal(dec("-265")))

	history := decodeBody[[]api.RecordDTO](t, s.do(t, http.MethodGet, "/api/leases/L1/regularizations", nil))
	assert.Empty(t, history)

	rec = s.do(t, http.MethodPost, "/api/leases/L1/regularizations", api.SettleRequest{Start: "2023-06-30", End: "2023-04-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LOANS
// =============================================================================

func TestLoanSchedule(t *testing.T) {
	// GIVEN: 200000 at 3% over 240 months
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/api/loans", api.CreateLoanRequest{
		ID: "loan-1", BuildingID: "B1", Principal: dec("200000"), Rate: dec("3"), Term: 240, Start: "2020-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[api.LoanDTO](t, rec).MonthlyPayment.Equal(dec("1109.20")))

	// Nothing stored until regenerated
	assert.Empty(t, decodeBody[[]api.InstallmentDTO](t, s.do(t, http.MethodGet, "/api/loans/loan-1/schedule", nil)))

	// WHEN
	rec = s.do(t, http.MethodPost, "/api/loans/loan-1/schedule", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	schedule := decodeBody[[]api.InstallmentDTO](t, rec)
	require.Len(t, schedule, 240)
	assert.Equal(t, "2020-02-01", schedule[0].Date)
	assert.True(t, schedule[0].Interest.Equal(dec("500")))
	assert.True(t, schedule[0].Capital.Equal(dec("609.20")))
	assert.Len(t, decodeBody[[]api.InstallmentDTO](t, s.do(t, http.MethodGet, "/api/loans/loan-1/schedule", nil)), 240)

	rec = s.do(t, http.MethodGet, "/api/loans/loan-1/capital-remaining?at=2025-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[api.CapitalRemainingDTO](t, rec).CapitalRemaining.Equal(dec("160617.53")))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/loans/loan-1/capital-remaining", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/loans/nope/schedule", nil).Code)
}

func TestCreateLoan_Invalid(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/loans", api.CreateLoanRequest{
		ID: "loan-2", BuildingID: "B1", Principal: dec("1000"), Rate: dec("2"), Term: 0, Start: "2020-01-01",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/loans/loan-2", nil).Code)
}

// =============================================================================
// BUILDINGS
// =============================================================================

func TestBuildingSummary(t *testing.T) {
	s := newServer(t)
	s.seedLease(t)
	rec := s.do(t, http.MethodPost, "/api/buildings", api.CreateBuildingRequest{
		ID: "B1", Name: "Rue des Lilas", PurchasePrice: dec("150000"), AcquisitionCosts: dec("10000"),
		PurchaseDate: "2020-01-01", Locals: []string{"apt-3"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/buildings/B1/summary?year=2023", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[api.SummaryDTO](t, rec)
	assert.Equal(t, "2023-12-31", got.AsOf)
	assert.True(t, got.AnnualRent.Equal(dec("12000")))
	assert.True(t, got.Value.Equal(dec("150000")), "purchase price without estimate")
	require.NotNil(t, got.GrossYield)
	assert.True(t, got.GrossYield.Equal(dec("7.5")))
	assert.True(t, got.VacancyRate.IsZero())
	assert.True(t, got.MonthlyRent.Equal(dec("1000")))
	assert.True(t, got.CashFlow.Equal(dec("1000")), "no loan on the building")
	require.NotNil(t, got.DebtRatio)
	assert.True(t, got.DebtRatio.IsZero())

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/buildings/B1/summary?year=abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/buildings/B9/summary?year=2023", nil).Code)
}

// =============================================================================
// INFRASTRUCTURE
// =============================================================================

func TestErrorStatusMapping(t *testing.T) {
	// Each domain error surfaces with its own status through a real endpoint.
	s := newServer(t)
	s.seedLease(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"not found", http.MethodGet, "/api/leases/L9/continuity", nil, http.StatusNotFound},
		{"overlap", http.MethodPost, "/api/leases/L1/tariffs", api.CreateTariffRequest{Start: "2023-02-01"}, http.StatusConflict},
		{"missing tariff", http.MethodGet, "/api/leases/L1/due?start=2022-12-01", nil, http.StatusUnprocessableEntity},
		{"invalid period", http.MethodPost, "/api/leases/L1/regularizations", api.SettleRequest{Start: "2023-02-01", End: "2023-01-01"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContinuityAuditor_RunNow(t *testing.T) {
	// GIVEN: one continuous lease, one with a gap, one without tariff
	ctx := context.Background()
	store := memory.New()
	start := generic.MustDate("2023-01-01")
	end := generic.MustDate("2023-03-31")
	for i, periods := range [][]lease.TariffPeriod{
		{{ID: "a", Start: start, Rent: dec("500")}},
		{{ID: "b", Start: start, End: &end, Rent: dec("500")}, {ID: "c", Start: generic.MustDate("2023-05-01"), Rent: dec("500")}},
		nil,
	} {
		id := lease.ID(fmt.Sprintf("L%d", i+1))
		require.NoError(t, store.SaveLease(ctx, lease.Lease{ID: id, LocalID: lease.LocalID(id), BuildingID: "B1", Start: start}))
		for _, p := range periods {
			p.LeaseID = id
			require.NoError(t, store.InsertTariff(ctx, p))
		}
	}
	auditor := api.NewContinuityAuditor(store, zerolog.Nop())

	// WHEN
	warnings := auditor.RunNow(ctx)

	// THEN
	require.Len(t, warnings, 2)
	assert.Equal(t, lease.ID("L2"), warnings[0].LeaseID)
	require.Len(t, warnings[0].Gaps, 1)
	assert.Equal(t, 30, warnings[0].Gaps[0].Days)
	assert.True(t, warnings[1].NoTariff)
}

func TestContinuityAuditor_StartStop(t *testing.T) {
	store := memory.New()
	auditor := api.NewContinuityAuditor(store, zerolog.Nop())
	auditor.Interval = time.Millisecond

	auditor.Start()
	auditor.Start() // second start is a no-op
	time.Sleep(5 * time.Millisecond)
	auditor.Stop()
	auditor.Stop()

	disabled := api.NewContinuityAuditor(store, zerolog.Nop())
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()
}

func TestStatusForWrappedErrors(t *testing.T) {
	// Wrapping keeps the classification.
	err := fmt.Errorf("loading: %w", &generic.NotFoundError{Kind: "lease", ID: "L1"})
	assert.True(t, generic.IsNotFound(err))
	assert.True(t, errors.Is(fmt.Errorf("x: %w", generic.ErrDuplicate), generic.ErrDuplicate))
}
