/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract: dates travel as
  "YYYY-MM-DD" strings and amounts as decimal strings, never floats.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Leases:          LeaseDTO, CreateLeaseRequest, TariffDTO, CreateTariffRequest
  Continuity:      ContinuityDTO, GapDTO
  Provisions:      ProvisionDTO, ProvisionLineDTO
  Billing:         DueDTO, ExitRequest, ExitDTO
  Revisions:       RevisionRequest, RevisionDTO
  Regularizations: SettleRequest, SettlementDTO, TrailLineDTO, RecordDTO, PaymentRequest
  Charges data:    KeyRequest, ShareRequest, ExpenseRequest, ReadingRequest, AdjustmentRequest
  Loans:           CreateLoanRequest, LoanDTO, InstallmentDTO, CapitalRemainingDTO
  Buildings:       CreateBuildingRequest, SummaryDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/charges"
	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/loan"
	"github.com/warp/lease-engine/portfolio"
)

// =============================================================================
// LEASES AND TARIFFS
// =============================================================================

// LeaseDTO represents a lease in API responses.
type LeaseDTO struct {
	ID         string          `json:"id"`
	LocalID    string          `json:"local_id"`
	BuildingID string          `json:"building_id"`
	Start      string          `json:"start"`
	End        *string         `json:"end,omitempty"`
	ChargeMode string          `json:"charge_mode"`
	Frequency  string          `json:"frequency"`
	SubjectVAT bool            `json:"subject_vat"`
	VATRate    decimal.Decimal `json:"vat_rate"`
	Deposit    decimal.Decimal `json:"deposit"`
}

// CreateLeaseRequest is the request to create or replace a lease.
type CreateLeaseRequest struct {
	ID         string          `json:"id"`
	LocalID    string          `json:"local_id"`
	BuildingID string          `json:"building_id"`
	Start      string          `json:"start"`
	End        *string         `json:"end,omitempty"`
	ChargeMode string          `json:"charge_mode"`
	Frequency  string          `json:"frequency"`
	SubjectVAT bool            `json:"subject_vat"`
	VATRate    decimal.Decimal `json:"vat_rate"`
	Deposit    decimal.Decimal `json:"deposit"`
}

// TariffDTO represents a tariff period.
type TariffDTO struct {
	ID          string           `json:"id"`
	LeaseID     string           `json:"lease_id"`
	Start       string           `json:"start"`
	End         *string          `json:"end,omitempty"`
	Rent        decimal.Decimal  `json:"rent"`
	Charges     decimal.Decimal  `json:"charges"`
	Taxes       decimal.Decimal  `json:"taxes"`
	Index       *decimal.Decimal `json:"index,omitempty"`
	IndexPeriod string           `json:"index_period,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   string           `json:"created_at,omitempty"`
}

// CreateTariffRequest appends a tariff period to a lease.
type CreateTariffRequest struct {
	Start       string           `json:"start"`
	End         *string          `json:"end,omitempty"`
	Rent        decimal.Decimal  `json:"rent"`
	Charges     decimal.Decimal  `json:"charges"`
	Taxes       decimal.Decimal  `json:"taxes"`
	Index       *decimal.Decimal `json:"index,omitempty"`
	IndexPeriod string           `json:"index_period,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// GapDTO is an uncovered run of days.
type GapDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// ContinuityDTO is the result of a continuity audit.
type ContinuityDTO struct {
	LeaseID    string   `json:"lease_id"`
	Continuous bool     `json:"continuous"`
	NoTariff   bool     `json:"no_tariff,omitempty"`
	Gaps       []GapDTO `json:"gaps"`
}

// =============================================================================
// PROVISIONS AND BILLING
// =============================================================================

// ProvisionLineDTO is the audit line of one month.
type ProvisionLineDTO struct {
	Month       string          `json:"month"`
	DaysPresent int             `json:"days_present"`
	DaysInMonth int             `json:"days_in_month"`
	TariffID    string          `json:"tariff_id"`
	Provision   decimal.Decimal `json:"provision"`
	Amount      decimal.Decimal `json:"amount"`
	Detail      string          `json:"detail"`
}

// ProvisionDTO is the provision total due over a range.
type ProvisionDTO struct {
	LeaseID string             `json:"lease_id"`
	Start   string             `json:"start"`
	End     string             `json:"end"`
	Total   decimal.Decimal    `json:"total"`
	Lines   []ProvisionLineDTO `json:"lines"`
	Note    string             `json:"note,omitempty"`
}

// DueDTO is the amount billed for one billing period.
type DueDTO struct {
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Rent    decimal.Decimal `json:"rent"`
	Charges decimal.Decimal `json:"charges"`
	Taxes   decimal.Decimal `json:"taxes"`
	VAT     decimal.Decimal `json:"vat"`
	Total   decimal.Decimal `json:"total"`
}

// ExitRequest is the request for an end-of-lease statement.
type ExitRequest struct {
	ExitDate   string          `json:"exit_date"`
	RentPaid   bool            `json:"rent_paid"`
	Deductions decimal.Decimal `json:"deductions"`
}

// ExitDTO is the end-of-lease statement.
type ExitDTO struct {
	ExitDate     string          `json:"exit_date"`
	DaysPresent  int             `json:"days_present"`
	DaysInPeriod int             `json:"days_in_period"`
	Prorata      decimal.Decimal `json:"prorata"`
	Deposit      decimal.Decimal `json:"deposit"`
	RentImpact   decimal.Decimal `json:"rent_impact"`
	Deductions   decimal.Decimal `json:"deductions"`
	Final        decimal.Decimal `json:"final"`
}

// =============================================================================
// REVISIONS
// =============================================================================

// RevisionRequest previews or applies an index revision. ApplyOn,
// IndexPeriod and Reason are only read when applying; ApplyOn defaults to
// AsOf.
type RevisionRequest struct {
	AsOf        string           `json:"as_of"`
	NewIndex    decimal.Decimal  `json:"new_index"`
	OldIndex    *decimal.Decimal `json:"old_index,omitempty"`
	ApplyOn     string           `json:"apply_on,omitempty"`
	IndexPeriod string           `json:"index_period,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// RevisionDTO is a computed revision, with the new tariff when applied.
type RevisionDTO struct {
	LeaseID      string          `json:"lease_id"`
	BaseTariffID string          `json:"base_tariff_id"`
	OldRent      decimal.Decimal `json:"old_rent"`
	NewRent      decimal.Decimal `json:"new_rent"`
	VariationPct decimal.Decimal `json:"variation_pct"`
	OldIndex     decimal.Decimal `json:"old_index"`
	NewIndex     decimal.Decimal `json:"new_index"`
	Applied      *TariffDTO      `json:"applied,omitempty"`
}

// =============================================================================
// REGULARIZATIONS
// =============================================================================

// SettleRequest runs a regularization over [start, end].
type SettleRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Record bool   `json:"record"`
}

// TrailLineDTO is one line of the settlement audit trail.
type TrailLineDTO struct {
	Kind   string          `json:"kind"`
	Ref    string          `json:"ref"`
	Label  string          `json:"label,omitempty"`
	Base   decimal.Decimal `json:"base"`
	Days   int             `json:"days,omitempty"`
	OfDays int             `json:"of_days,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Detail string          `json:"detail,omitempty"`
}

// SettlementDTO is the outcome of a regularization run.
type SettlementDTO struct {
	Record           RecordDTO          `json:"record"`
	DaysInPeriod     int                `json:"days_in_period"`
	DaysPresent      int                `json:"days_present"`
	PresenceRatio    decimal.Decimal    `json:"presence_ratio"`
	ExpensesTotal    decimal.Decimal    `json:"expenses_total"`
	ConsumptionTotal decimal.Decimal    `json:"consumption_total"`
	AdjustmentsTotal decimal.Decimal    `json:"adjustments_total"`
	Provisions       []ProvisionLineDTO `json:"provisions"`
	Trail            []TrailLineDTO     `json:"trail"`
	Recorded         bool               `json:"recorded"`
}

// RecordDTO is a stored regularization.
type RecordDTO struct {
	ID              string          `json:"id,omitempty"`
	LeaseID         string          `json:"lease_id"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	RealTotal       decimal.Decimal `json:"real_total"`
	ProvisionsTotal decimal.Decimal `json:"provisions_total"`
	Balance         decimal.Decimal `json:"balance"`
	TenantOwes      bool            `json:"tenant_owes"`
	CreatedAt       string          `json:"created_at"`
	Paid            bool            `json:"paid"`
	PaidOn          *string         `json:"paid_on,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// PaymentRequest marks a regularization paid.
type PaymentRequest struct {
	PaidOn string `json:"paid_on"`
	Notes  string `json:"notes,omitempty"`
}

// KeyRequest declares an apportionment key of a building.
type KeyRequest struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Mode      string           `json:"mode"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// ShareRequest sets the weight of a local under a key.
type ShareRequest struct {
	KeyID   string          `json:"key_id"`
	LocalID string          `json:"local_id"`
	Weight  decimal.Decimal `json:"weight"`
}

// ExpenseRequest records a building expense.
type ExpenseRequest struct {
	ID           string          `json:"id,omitempty"`
	Label        string          `json:"label"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	ServiceStart *string         `json:"service_start,omitempty"`
	ServiceEnd   *string         `json:"service_end,omitempty"`
	KeyID        *string         `json:"key_id,omitempty"`
}

// ReadingRequest records a meter reading of a local.
type ReadingRequest struct {
	ID            string          `json:"id,omitempty"`
	LocalID       string          `json:"local_id"`
	KeyID         string          `json:"key_id"`
	Label         string          `json:"label,omitempty"`
	PreviousIndex decimal.Decimal `json:"previous_index"`
	NewIndex      decimal.Decimal `json:"new_index"`
	ReadingDate   string          `json:"reading_date"`
	ServiceStart  *string         `json:"service_start,omitempty"`
}

// AdjustmentRequest records a signed amount added to a lease's settlement.
type AdjustmentRequest struct {
	ID     string          `json:"id,omitempty"`
	Date   string          `json:"date"`
	Label  string          `json:"label,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// LOANS
// =============================================================================

// CreateLoanRequest is the request to create or replace a loan.
type CreateLoanRequest struct {
	ID         string          `json:"id"`
	BuildingID string          `json:"building_id"`
	Label      string          `json:"label,omitempty"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	Term       int             `json:"term"`
	Start      string          `json:"start"`
	Type       string          `json:"type"`
	Insurance  decimal.Decimal `json:"insurance"`
}

// LoanDTO represents a loan with its computed monthly payment.
type LoanDTO struct {
	ID             string          `json:"id"`
	BuildingID     string          `json:"building_id"`
	Label          string          `json:"label,omitempty"`
	Principal      decimal.Decimal `json:"principal"`
	Rate           decimal.Decimal `json:"rate"`
	Term           int             `json:"term"`
	Start          string          `json:"start"`
	Type           string          `json:"type"`
	Insurance      decimal.Decimal `json:"insurance"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
}

// InstallmentDTO is one row of a schedule.
type InstallmentDTO struct {
	Number           int             `json:"number"`
	Date             string          `json:"date"`
	Capital          decimal.Decimal `json:"capital"`
	Interest         decimal.Decimal `json:"interest"`
	Insurance        decimal.Decimal `json:"insurance"`
	Total            decimal.Decimal `json:"total"`
	CapitalRemaining decimal.Decimal `json:"capital_remaining"`
	Paid             bool            `json:"paid"`
	PaidOn           *string         `json:"paid_on,omitempty"`
}

// CapitalRemainingDTO is the outstanding capital of a loan at a date.
type CapitalRemainingDTO struct {
	LoanID           string          `json:"loan_id"`
	At               string          `json:"at"`
	CapitalRemaining decimal.Decimal `json:"capital_remaining"`
}

// =============================================================================
// BUILDINGS
// =============================================================================

// CreateBuildingRequest is the request to create or replace a building.
type CreateBuildingRequest struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	AcquisitionCosts decimal.Decimal `json:"acquisition_costs"`
	PurchaseDate     string          `json:"purchase_date"`
	Locals           []string        `json:"locals"`
}

// SummaryDTO is the yearly summary of a building.
type SummaryDTO struct {
	BuildingID      string           `json:"building_id"`
	Year            int              `json:"year"`
	AsOf            string           `json:"as_of"`
	Value           decimal.Decimal  `json:"value"`
	OutstandingDebt decimal.Decimal  `json:"outstanding_debt"`
	NetValue        decimal.Decimal  `json:"net_value"`
	AcquisitionCost decimal.Decimal  `json:"acquisition_cost"`
	UnrealizedGain  decimal.Decimal  `json:"unrealized_gain"`
	AnnualRent      decimal.Decimal  `json:"annual_rent"`
	GrossYield      *decimal.Decimal `json:"gross_yield,omitempty"`
	NetYield        *decimal.Decimal `json:"net_yield,omitempty"`
	ChargesTotal    decimal.Decimal  `json:"charges_total"`
	LoanInterest    decimal.Decimal  `json:"loan_interest"`
	LoanInsurance   decimal.Decimal  `json:"loan_insurance"`
	FiscalResult    decimal.Decimal  `json:"fiscal_result"`
	Deficit         decimal.Decimal  `json:"deficit"`
	VacancyRate     decimal.Decimal  `json:"vacancy_rate"`
	MonthlyRent     decimal.Decimal  `json:"monthly_rent"`
	DebtService     decimal.Decimal  `json:"monthly_debt_service"`
	CashFlow        decimal.Decimal  `json:"monthly_cash_flow"`
	DebtRatio       *decimal.Decimal `json:"debt_ratio,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func datePtrString(d *generic.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func money(d decimal.Decimal) decimal.Decimal { return generic.RoundMoney(d) }

func toLeaseDTO(l lease.Lease) LeaseDTO {
	return LeaseDTO{
		ID:         string(l.ID),
		LocalID:    string(l.LocalID),
		BuildingID: string(l.BuildingID),
		Start:      l.Start.String(),
		End:        datePtrString(l.End),
		ChargeMode: string(l.ChargeMode),
		Frequency:  string(l.Frequency),
		SubjectVAT: l.SubjectVAT,
		VATRate:    l.VATRate,
		Deposit:    l.Deposit,
	}
}

func toTariffDTO(t lease.TariffPeriod) TariffDTO {
	dto := TariffDTO{
		ID:          string(t.ID),
		LeaseID:     string(t.LeaseID),
		Start:       t.Start.String(),
		End:         datePtrString(t.End),
		Rent:        t.Rent,
		Charges:     t.Charges,
		Taxes:       t.Taxes,
		Index:       t.Index,
		IndexPeriod: t.IndexPeriod,
		Reason:      t.Reason,
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toContinuityDTO(id lease.ID, w *lease.ContinuityWarning) ContinuityDTO {
	dto := ContinuityDTO{LeaseID: string(id), Continuous: w == nil, Gaps: []GapDTO{}}
	if w == nil {
		return dto
	}
	dto.NoTariff = w.NoTariff
	for _, g := range w.Gaps {
		dto.Gaps = append(dto.Gaps, GapDTO{Start: g.Start.String(), End: g.End.String(), Days: g.Days})
	}
	return dto
}

func toProvisionLines(lines []lease.ProvisionLine) []ProvisionLineDTO {
	dtos := make([]ProvisionLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = ProvisionLineDTO{
			Month:       l.Month.Time.Format("2006-01"),
			DaysPresent: l.DaysPresent,
			DaysInMonth: l.DaysInMonth,
			TariffID:    string(l.TariffID),
			Provision:   l.Provision,
			Amount:      money(l.Amount),
			Detail:      l.String(),
		}
	}
	return dtos
}

func toRecordDTO(r charges.Record) RecordDTO {
	return RecordDTO{
		ID:              r.ID,
		LeaseID:         string(r.LeaseID),
		PeriodStart:     r.PeriodStart.String(),
		PeriodEnd:       r.PeriodEnd.String(),
		RealTotal:       r.RealTotal,
		ProvisionsTotal: r.ProvisionsTotal,
		Balance:         r.Balance,
		TenantOwes:      r.TenantOwes(),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		Paid:            r.Paid,
		PaidOn:          datePtrString(r.PaidOn),
		Notes:           r.Notes,
	}
}

func toSettlementDTO(s charges.Settlement) SettlementDTO {
	trail := make([]TrailLineDTO, len(s.Trail))
	for i, l := range s.Trail {
		trail[i] = TrailLineDTO{
			Kind:   string(l.Kind),
			Ref:    l.Ref,
			Label:  l.Label,
			Base:   l.Base,
			Days:   l.Days,
			OfDays: l.OfDays,
			Amount: money(l.Amount),
			Detail: l.Detail,
		}
	}
	return SettlementDTO{
		Record:           toRecordDTO(s.Record),
		DaysInPeriod:     s.DaysInPeriod,
		DaysPresent:      s.DaysPresent,
		PresenceRatio:    s.PresenceRatio.Round(6),
		ExpensesTotal:    money(s.ExpensesTotal),
		ConsumptionTotal: money(s.ConsumptionTotal),
		AdjustmentsTotal: money(s.AdjustmentsTotal),
		Provisions:       toProvisionLines(s.Provisions.Lines),
		Trail:            trail,
		Recorded:         s.Recorded,
	}
}

func toRevisionDTO(r lease.Revision) RevisionDTO {
	return RevisionDTO{
		LeaseID:      string(r.LeaseID),
		BaseTariffID: string(r.Base.ID),
		OldRent:      r.OldRent,
		NewRent:      r.NewRent,
		VariationPct: r.VariationPct,
		OldIndex:     r.OldIndex,
		NewIndex:     r.NewIndex,
	}
}

func toLoanDTO(l loan.Loan) LoanDTO {
	return LoanDTO{
		ID:             string(l.ID),
		BuildingID:     string(l.BuildingID),
		Label:          l.Label,
		Principal:      l.Principal,
		Rate:           l.Rate,
		Term:           l.Term,
		Start:          l.Start.String(),
		Type:           string(l.Type),
		Insurance:      l.Insurance,
		MonthlyPayment: money(loan.MonthlyPaymentWithInsurance(l)),
	}
}

func toInstallmentDTOs(schedule []loan.Installment) []InstallmentDTO {
	dtos := make([]InstallmentDTO, len(schedule))
	for i, in := range schedule {
		dtos[i] = InstallmentDTO{
			Number:           in.Number,
			Date:             in.Date.String(),
			Capital:          in.Capital,
			Interest:         in.Interest,
			Insurance:        in.Insurance,
			Total:            in.Total(),
			CapitalRemaining: in.CapitalRemaining,
			Paid:             in.Paid,
			PaidOn:           datePtrString(in.PaidOn),
		}
	}
	return dtos
}

func toSummaryDTO(s portfolio.Summary) SummaryDTO {
	return SummaryDTO{
		BuildingID:      string(s.Valuation.BuildingID),
		Year:            s.Year,
		AsOf:            s.Valuation.AsOf.String(),
		Value:           s.Valuation.Value,
		OutstandingDebt: s.Valuation.OutstandingDebt,
		NetValue:        s.Valuation.NetValue,
		AcquisitionCost: s.Valuation.AcquisitionCost,
		UnrealizedGain:  s.Valuation.UnrealizedGain,
		AnnualRent:      s.AnnualRent,
		GrossYield:      s.Yield.Gross,
		NetYield:        s.Yield.Net,
		ChargesTotal:    money(s.Fiscal.ChargesTotal),
		LoanInterest:    money(s.Fiscal.LoanInterest),
		LoanInsurance:   money(s.Fiscal.LoanInsurance),
		FiscalResult:    money(s.Fiscal.Result),
		Deficit:         money(s.Fiscal.Deficit),
		VacancyRate:     s.VacancyRate,
		MonthlyRent:     s.CashFlow.Rent,
		DebtService:     s.CashFlow.DebtService,
		CashFlow:        s.CashFlow.Net,
		DebtRatio:       s.CashFlow.DebtRatio,
	}
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func parseDate(field, value string) (generic.Date, error) {
	if value == "" {
		return generic.Date{}, fmt.Errorf("%s is required", field)
	}
	d, err := generic.ParseDate(value)
	if err != nil {
		return generic.Date{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", field, value)
	}
	return d, nil
}

func parseOptionalDate(field string, value *string) (*generic.Date, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (req CreateLeaseRequest) toLease() (lease.Lease, error) {
	if req.ID == "" || req.LocalID == "" || req.BuildingID == "" {
		return lease.Lease{}, fmt.Errorf("id, local_id and building_id are required")
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		return lease.Lease{}, err
	}
	end, err := parseOptionalDate("end", req.End)
	if err != nil {
		return lease.Lease{}, err
	}
	if end != nil && end.Before(start) {
		return lease.Lease{}, fmt.Errorf("end %s is before start %s", end, start)
	}

	mode := lease.ChargeMode(req.ChargeMode)
	switch mode {
	case "":
		mode = lease.ChargesProvision
	case lease.ChargesProvision, lease.ChargesFlat:
	default:
		return lease.Lease{}, fmt.Errorf("unknown charge_mode %q", req.ChargeMode)
	}
	freq := lease.Frequency(req.Frequency)
	switch freq {
	case "":
		freq = lease.Monthly
	case lease.Monthly, lease.Quarterly:
	default:
		return lease.Lease{}, fmt.Errorf("unknown frequency %q", req.Frequency)
	}

	return lease.Lease{
		ID:         lease.ID(req.ID),
		LocalID:    lease.LocalID(req.LocalID),
		BuildingID: lease.BuildingID(req.BuildingID),
		Start:      start,
		End:        end,
		ChargeMode: mode,
		Frequency:  freq,
		SubjectVAT: req.SubjectVAT,
		VATRate:    req.VATRate,
		Deposit:    req.Deposit,
	}, nil
}

func (req CreateTariffRequest) toTariff(id lease.ID) (lease.TariffPeriod, error) {
	start, err := parseDate("start", req.Start)
	if err != nil {
		return lease.TariffPeriod{}, err
	}
	end, err := parseOptionalDate("end", req.End)
	if err != nil {
		return lease.TariffPeriod{}, err
	}
	return lease.TariffPeriod{
		LeaseID:     id,
		Start:       start,
		End:         end,
		Rent:        req.Rent,
		Charges:     req.Charges,
		Taxes:       req.Taxes,
		Index:       req.Index,
		IndexPeriod: req.IndexPeriod,
		Reason:      req.Reason,
	}, nil
}

func (req CreateLoanRequest) toLoan() (loan.Loan, error) {
	if req.ID == "" || req.BuildingID == "" {
		return loan.Loan{}, fmt.Errorf("id and building_id are required")
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		return loan.Loan{}, err
	}
	typ := loan.Type(req.Type)
	switch typ {
	case "":
		typ = loan.Amortizing
	case loan.Amortizing, loan.InterestOnly:
	default:
		return loan.Loan{}, fmt.Errorf("unknown loan type %q", req.Type)
	}
	l := loan.Loan{
		ID:         loan.ID(req.ID),
		BuildingID: lease.BuildingID(req.BuildingID),
		Label:      req.Label,
		Principal:  req.Principal,
		Rate:       req.Rate,
		Term:       req.Term,
		Start:      start,
		Type:       typ,
		Insurance:  req.Insurance,
	}
	return l, l.Validate()
}

func (req CreateBuildingRequest) toBuilding() (portfolio.Building, error) {
	if req.ID == "" {
		return portfolio.Building{}, fmt.Errorf("id is required")
	}
	purchased, err := parseDate("purchase_date", req.PurchaseDate)
	if err != nil {
		return portfolio.Building{}, err
	}
	locals := make([]lease.LocalID, len(req.Locals))
	for i, l := range req.Locals {
		locals[i] = lease.LocalID(l)
	}
	return portfolio.Building{
		ID:               lease.BuildingID(req.ID),
		Name:             req.Name,
		PurchasePrice:    req.PurchasePrice,
		AcquisitionCosts: req.AcquisitionCosts,
		PurchaseDate:     purchased,
		Locals:           locals,
	}, nil
}

func (req KeyRequest) toKey(building lease.BuildingID) (charges.Key, error) {
	if req.ID == "" {
		return charges.Key{}, fmt.Errorf("id is required")
	}
	mode := charges.KeyMode(req.Mode)
	switch mode {
	case "":
		mode = charges.ModeShares
	case charges.ModeShares, charges.ModeMeter:
	default:
		return charges.Key{}, fmt.Errorf("unknown key mode %q", req.Mode)
	}
	return charges.Key{
		ID:         charges.KeyID(req.ID),
		BuildingID: building,
		Name:       req.Name,
		Mode:       mode,
		UnitPrice:  req.UnitPrice,
	}, nil
}

func (req ExpenseRequest) toExpense(building lease.BuildingID) (charges.Expense, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return charges.Expense{}, err
	}
	e := charges.Expense{
		ID:         req.ID,
		BuildingID: building,
		Label:      req.Label,
		Amount:     req.Amount,
		Date:       date,
	}
	start, err := parseOptionalDate("service_start", req.ServiceStart)
	if err != nil {
		return charges.Expense{}, err
	}
	end, err := parseOptionalDate("service_end", req.ServiceEnd)
	if err != nil {
		return charges.Expense{}, err
	}
	if (start == nil) != (end == nil) {
		return charges.Expense{}, fmt.Errorf("service_start and service_end go together")
	}
	if start != nil {
		e.Service = &generic.Period{Start: *start, End: *end}
	}
	if req.KeyID != nil && *req.KeyID != "" {
		key := charges.KeyID(*req.KeyID)
		e.KeyID = &key
	}
	return e, nil
}

func (req ReadingRequest) toReading() (charges.MeterReading, error) {
	if req.LocalID == "" || req.KeyID == "" {
		return charges.MeterReading{}, fmt.Errorf("local_id and key_id are required")
	}
	date, err := parseDate("reading_date", req.ReadingDate)
	if err != nil {
		return charges.MeterReading{}, err
	}
	start, err := parseOptionalDate("service_start", req.ServiceStart)
	if err != nil {
		return charges.MeterReading{}, err
	}
	return charges.MeterReading{
		ID:            req.ID,
		LocalID:       lease.LocalID(req.LocalID),
		KeyID:         charges.KeyID(req.KeyID),
		Label:         req.Label,
		PreviousIndex: req.PreviousIndex,
		NewIndex:      req.NewIndex,
		ReadingDate:   date,
		ServiceStart:  start,
	}, nil
}
