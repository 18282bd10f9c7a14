/*
handlers.go - HTTP API handlers for the lease engine

PURPOSE:
  Exposes the lease engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates every computation to the domain
  packages (lease, charges, loan, portfolio).

ENDPOINTS:
  Leases:
    GET    /api/leases                          List leases
    POST   /api/leases                          Create or replace a lease
    GET    /api/leases/{id}                     Lease details
    GET    /api/leases/{id}/tariffs             Tariff history
    POST   /api/leases/{id}/tariffs             Append a tariff period
    GET    /api/leases/{id}/tariffs/at?date=    Tariff in force on a date
    GET    /api/leases/{id}/continuity          Gap audit
    GET    /api/leases/{id}/provisions?start=&end=
    GET    /api/leases/{id}/due?start=          Amount due for a billing period
    POST   /api/leases/{id}/exit                End-of-lease statement
    POST   /api/leases/{id}/revisions/preview   Compute an index revision
    POST   /api/leases/{id}/revisions           Apply an index revision
    POST   /api/leases/{id}/adjustments         Record a settlement adjustment

  Regularizations:
    POST   /api/leases/{id}/regularizations     Run a settlement
    GET    /api/leases/{id}/regularizations     Settlement history
    POST   /api/regularizations/{id}/payment    Mark a settlement paid

  Charges reference data:
    POST   /api/buildings/{id}/keys             Apportionment key
    POST   /api/buildings/{id}/shares           Share of a local
    POST   /api/buildings/{id}/expenses         Building expense
    POST   /api/readings                        Meter reading

  Loans:
    POST   /api/loans                           Create or replace a loan
    GET    /api/loans/{id}                      Loan details
    GET    /api/loans/{id}/schedule             Stored schedule
    POST   /api/loans/{id}/schedule             Regenerate the schedule
    GET    /api/loans/{id}/capital-remaining?at=

  Buildings:
    POST   /api/buildings                       Create or replace a building
    GET    /api/buildings/{id}/summary?year=&as_of=

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status derived from the
  domain error (see statusFor):
  - 400: Validation errors, invalid input
  - 404: Lease, loan, building or record not found
  - 409: Overlapping tariff, duplicate record
  - 422: Missing tariff or reference data configuration error
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - auditor.go: Background continuity audit
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/lease-engine/charges"
	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/loan"
	"github.com/warp/lease-engine/portfolio"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API reads and writes. Both store/memory and
// store/sqlite implement it.
type Store interface {
	lease.TxStore
	charges.RecordStore
	charges.Source
	loan.Store
	portfolio.Store

	SaveKey(ctx context.Context, k charges.Key) error
	SaveShare(ctx context.Context, sh charges.Share) error
	SaveExpense(ctx context.Context, e charges.Expense) error
	SaveReading(ctx context.Context, r charges.MeterReading) error
	SaveAdjustment(ctx context.Context, a charges.Adjustment) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Store
	Provisions *lease.ProvisionCalculator
	Settlement *charges.Engine
	Schedules  *loan.Scheduler
	Reporter   *portfolio.Reporter
	Log        zerolog.Logger
	Now        func() time.Time
}

// NewHandler creates a new handler over store.
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:      store,
		Provisions: lease.NewProvisionCalculator(log),
		Settlement: charges.NewEngine(store, log),
		Schedules:  loan.NewScheduler(store, log),
		Reporter:   portfolio.NewReporter(store, store, store, log),
		Log:        log,
		Now:        time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

// =============================================================================
// LEASE HANDLERS
// =============================================================================

// ListLeases returns all leases.
func (h *Handler) ListLeases(w http.ResponseWriter, r *http.Request) {
	leases, err := h.Store.Leases(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list leases", err)
		return
	}
	dtos := make([]LeaseDTO, len(leases))
	for i, l := range leases {
		dtos[i] = toLeaseDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLease returns one lease.
func (h *Handler) GetLease(w http.ResponseWriter, r *http.Request) {
	l, err := h.Store.Lease(r.Context(), leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get lease", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaseDTO(l))
}

// CreateLease creates or replaces a lease.
func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaseRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := req.toLease()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lease", err)
		return
	}
	if err := h.Store.SaveLease(r.Context(), l); err != nil {
		h.writeDomainError(w, r, "Failed to save lease", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaseDTO(l))
}

// =============================================================================
// TARIFF HANDLERS
// =============================================================================

// ListTariffs returns the tariff history of a lease, ordered by start.
func (h *Handler) ListTariffs(w http.ResponseWriter, r *http.Request) {
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return
	}
	periods := tl.Periods()
	dtos := make([]TariffDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toTariffDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTariff appends a tariff period after validating it against the
// stored timeline.
func (h *Handler) CreateTariff(w http.ResponseWriter, r *http.Request) {
	var req CreateTariffRequest
	if !decode(w, r, &req) {
		return
	}
	candidate, err := req.toTariff(leaseID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tariff", err)
		return
	}
	added, err := lease.AddTariff(r.Context(), h.Store, candidate, h.now())
	if err != nil {
		h.writeDomainError(w, r, "Failed to add tariff", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTariffDTO(added))
}

// GetTariffAt returns the tariff in force on ?date=.
func (h *Handler) GetTariffAt(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return
	}
	t, err := tl.MustTariffAt(date)
	if err != nil {
		h.writeDomainError(w, r, "No tariff in force", err)
		return
	}
	writeJSON(w, http.StatusOK, toTariffDTO(t))
}

// GetContinuity audits the tariff timeline of a lease for gaps. Gaps are
// reported with 200: they are advisory.
func (h *Handler) GetContinuity(w http.ResponseWriter, r *http.Request) {
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return
	}
	writeJSON(w, http.StatusOK, toContinuityDTO(tl.Lease.ID, tl.Audit()))
}

// =============================================================================
// PROVISION AND BILLING HANDLERS
// =============================================================================

// GetProvisions returns the provisions due over [?start, ?end].
func (h *Handler) GetProvisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseDate("start", q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	end, err := parseDate("end", q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return
	}
	res, err := h.Provisions.Due(tl, start, end)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute provisions", err)
		return
	}
	writeJSON(w, http.StatusOK, ProvisionDTO{
		LeaseID: string(tl.Lease.ID),
		Start:   start.String(),
		End:     end.String(),
		Total:   res.Rounded(),
		Lines:   toProvisionLines(res.Lines),
		Note:    res.Note,
	})
}

// GetAmountDue returns the amounts of the billing period starting at ?start.
func (h *Handler) GetAmountDue(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate("start", r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return
	}
	due, err := lease.AmountDue(tl, start)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute amount due", err)
		return
	}
	writeJSON(w, http.StatusOK, DueDTO{
		Start:   due.Period.Start.String(),
		End:     due.Period.End.String(),
		Rent:    due.Rent,
		Charges: due.Charges,
		Taxes:   due.Taxes,
		VAT:     due.VAT,
		Total:   money(due.Total),
	})
}

// GetExitStatement computes the end-of-lease statement.
func (h *Handler) GetExitStatement(w http.ResponseWriter, r *http.Request) {
	var req ExitRequest
	if !decode(w, r, &req) {
		return
	}
	exit, err := parseDate("exit_date", req.ExitDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exit date", err)
		return
	}
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return
	}
	st, err := lease.FinalSettlement(tl, exit, req.RentPaid, req.Deductions)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute exit statement", err)
		return
	}
	writeJSON(w, http.StatusOK, ExitDTO{
		ExitDate:     st.ExitDate.String(),
		DaysPresent:  st.Prorata.DaysPresent,
		DaysInPeriod: st.Prorata.DaysInPeriod,
		Prorata:      st.Prorata.Amount,
		Deposit:      st.Deposit,
		RentImpact:   money(st.RentImpact),
		Deductions:   st.Deductions,
		Final:        money(st.Final),
	})
}

// =============================================================================
// REVISION HANDLERS
// =============================================================================

// PreviewRevision computes an index revision without touching the lease.
func (h *Handler) PreviewRevision(w http.ResponseWriter, r *http.Request) {
	rev, _, ok := h.revise(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRevisionDTO(rev))
}

// ApplyRevision computes an index revision, closes the current tariff the
// day before apply_on and opens the revised one, atomically.
func (h *Handler) ApplyRevision(w http.ResponseWriter, r *http.Request) {
	rev, req, ok := h.revise(w, r)
	if !ok {
		return
	}
	applyOn := rev.AsOf
	if req.ApplyOn != "" {
		d, err := parseDate("apply_on", req.ApplyOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid apply_on", err)
			return
		}
		applyOn = d
	}
	next, err := rev.Change(applyOn, req.IndexPeriod, req.Reason).Apply(r.Context(), h.Store, h.now())
	if err != nil {
		h.writeDomainError(w, r, "Failed to apply revision", err)
		return
	}
	h.requestLog(r).Info().
		Str("lease_id", string(rev.LeaseID)).
		Str("old_rent", rev.OldRent.StringFixed(2)).
		Str("new_rent", rev.NewRent.StringFixed(2)).
		Str("apply_on", applyOn.String()).
		Msg("rent revision applied")

	dto := toRevisionDTO(rev)
	applied := toTariffDTO(next)
	dto.Applied = &applied
	writeJSON(w, http.StatusCreated, dto)
}

func (h *Handler) revise(w http.ResponseWriter, r *http.Request) (lease.Revision, RevisionRequest, bool) {
	var req RevisionRequest
	if !decode(w, r, &req) {
		return lease.Revision{}, req, false
	}
	asOf, err := parseDate("as_of", req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return lease.Revision{}, req, false
	}
	tl, err := lease.LoadTimeline(r.Context(), h.Store, leaseID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load tariffs", err)
		return lease.Revision{}, req, false
	}
	rev, err := lease.Revise(tl, asOf, req.NewIndex, req.OldIndex)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute revision", err)
		return lease.Revision{}, req, false
	}
	return rev, req, true
}

// =============================================================================
// REGULARIZATION HANDLERS
// =============================================================================

// SettleLease runs a regularization over [start, end]. With record set, the
// result is appended to the lease's history.
func (h *Handler) SettleLease(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if !decode(w, r, &req) {
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	s, err := h.Settlement.SettleLease(r.Context(), h.Store, h.Store, leaseID(r), start, end, req.Record)
	if err != nil {
		h.writeDomainError(w, r, "Failed to run regularization", err)
		return
	}
	status := http.StatusOK
	if s.Recorded {
		status = http.StatusCreated
	}
	writeJSON(w, status, toSettlementDTO(s))
}

// ListRegularizations returns the settlement history of a lease.
func (h *Handler) ListRegularizations(w http.ResponseWriter, r *http.Request) {
	id := leaseID(r)
	if _, err := h.Store.Lease(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get lease", err)
		return
	}
	records, err := h.Store.Records(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list regularizations", err)
		return
	}
	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PayRegularization marks a settlement paid.
func (h *Handler) PayRegularization(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decode(w, r, &req) {
		return
	}
	on, err := parseDate("paid_on", req.PaidOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid_on", err)
		return
	}
	rec, err := h.Store.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get regularization", err)
		return
	}
	paid, err := rec.MarkPaid(on, req.Notes)
	if err != nil {
		h.writeDomainError(w, r, "Invalid payment", err)
		return
	}
	if err := h.Store.SavePayment(r.Context(), paid); err != nil {
		h.writeDomainError(w, r, "Failed to save payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(paid))
}

// =============================================================================
// CHARGES REFERENCE DATA
// =============================================================================

// CreateKey declares an apportionment key of a building.
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if !decode(w, r, &req) {
		return
	}
	k, err := req.toKey(buildingID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid key", err)
		return
	}
	if err := h.Store.SaveKey(r.Context(), k); err != nil {
		h.writeDomainError(w, r, "Failed to save key", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateShare sets the weight of a local under a key.
func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if !decode(w, r, &req) {
		return
	}
	if req.KeyID == "" || req.LocalID == "" {
		writeError(w, http.StatusBadRequest, "Invalid share", errors.New("key_id and local_id are required"))
		return
	}
	if req.Weight.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid share", errors.New("weight must not be negative"))
		return
	}
	sh := charges.Share{KeyID: charges.KeyID(req.KeyID), LocalID: lease.LocalID(req.LocalID), Weight: req.Weight}
	if err := h.Store.SaveShare(r.Context(), sh); err != nil {
		h.writeDomainError(w, r, "Failed to save share", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateExpense records a building expense.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := req.toExpense(buildingID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expense", err)
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
		req.ID = e.ID
	}
	if err := h.Store.SaveExpense(r.Context(), e); err != nil {
		h.writeDomainError(w, r, "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateReading records a meter reading.
func (h *Handler) CreateReading(w http.ResponseWriter, r *http.Request) {
	var req ReadingRequest
	if !decode(w, r, &req) {
		return
	}
	reading, err := req.toReading()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reading", err)
		return
	}
	if reading.ID == "" {
		reading.ID = uuid.NewString()
		req.ID = reading.ID
	}
	if err := h.Store.SaveReading(r.Context(), reading); err != nil {
		h.writeDomainError(w, r, "Failed to save reading", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateAdjustment records a signed amount for a lease's next settlement.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid adjustment", err)
		return
	}
	id := leaseID(r)
	if _, err := h.Store.Lease(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get lease", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	a := charges.Adjustment{ID: req.ID, LeaseID: id, Date: date, Label: req.Label, Amount: req.Amount}
	if err := h.Store.SaveAdjustment(r.Context(), a); err != nil {
		h.writeDomainError(w, r, "Failed to save adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// CreateLoan creates or replaces a loan. The stored schedule is not touched;
// regenerate it explicitly.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := req.toLoan()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid loan", err)
		return
	}
	if err := h.Store.SaveLoan(r.Context(), l); err != nil {
		h.writeDomainError(w, r, "Failed to save loan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// GetLoan returns one loan.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.Store.Loan(r.Context(), loanID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get loan", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// GetSchedule returns the stored installments of a loan.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := loanID(r)
	if _, err := h.Store.Loan(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get loan", err)
		return
	}
	schedule, err := h.Store.Installments(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTOs(schedule))
}

// RegenerateSchedule recomputes the schedule and replaces the stored one.
func (h *Handler) RegenerateSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.Schedules.Regenerate(r.Context(), loanID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to regenerate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTOs(schedule))
}

// GetCapitalRemaining returns the outstanding capital at ?at=.
func (h *Handler) GetCapitalRemaining(w http.ResponseWriter, r *http.Request) {
	at, err := parseDate("at", r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	l, err := h.Store.Loan(r.Context(), loanID(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get loan", err)
		return
	}
	writeJSON(w, http.StatusOK, CapitalRemainingDTO{
		LoanID:           string(l.ID),
		At:               at.String(),
		CapitalRemaining: money(loan.CapitalRemainingAt(l, at)),
	})
}

// =============================================================================
// BUILDING HANDLERS
// =============================================================================

// CreateBuilding creates or replaces a building.
func (h *Handler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req CreateBuildingRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := req.toBuilding()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid building", err)
		return
	}
	if err := h.Store.SaveBuilding(r.Context(), b); err != nil {
		h.writeDomainError(w, r, "Failed to save building", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// GetBuildingSummary returns the yearly figures of a building. year
// defaults to the current year and as_of to the end of that year.
func (h *Handler) GetBuildingSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := h.now().Year()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}
	asOf := generic.EndOfYear(year)
	if v := q.Get("as_of"); v != "" {
		d, err := parseDate("as_of", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of", err)
			return
		}
		asOf = d
	}
	s, err := h.Reporter.Summary(r.Context(), buildingID(r), year, asOf)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// =============================================================================
// HELPERS
// =============================================================================

func leaseID(r *http.Request) lease.ID { return lease.ID(chi.URLParam(r, "id")) }
func loanID(r *http.Request) loan.ID { return loan.ID(chi.URLParam(r, "id")) }
func buildingID(r *http.Request) lease.BuildingID { return lease.BuildingID(chi.URLParam(r, "id")) }

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrOverlap), errors.Is(err, generic.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, generic.ErrTariffNotFound), errors.Is(err, generic.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status statusFor picks. Server
// errors are logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.requestLog(r).Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}
	writeError(w, status, message, err)
}

func (h *Handler) requestLog(r *http.Request) *zerolog.Logger {
	l := h.Log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	return &l
}
