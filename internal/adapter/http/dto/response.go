package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID                  string          `json:"id"`
	Code                string          `json:"code"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	AccountClass        string          `json:"account_class"`
	IsSystem            bool            `json:"is_system"`
	AllowManualJournals bool            `json:"allow_manual_journals"`
	CurrentBalance      decimal.Decimal `json:"current_balance"`
	ParentID            *string         `json:"parent_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:                  a.ID,
		Code:                a.Code,
		Name:                a.Name,
		Type:                string(a.Type),
		AccountClass:        a.AccountClass,
		IsSystem:            a.IsSystem,
		AllowManualJournals: a.AllowManualJournals,
		CurrentBalance:      a.CurrentBalance,
		ParentID:            a.ParentID,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	return mapAll(accounts, AccountFromDomain)
}

// JournalLineResponse is one line of a journal.
type JournalLineResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	EntityID    *string         `json:"entity_id,omitempty"`
}

// JournalResponse represents a journal in API responses.
type JournalResponse struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	TransactionDate Date                  `json:"transaction_date"`
	PostingDate     Date                  `json:"posting_date"`
	Description     string                `json:"description"`
	Source          string                `json:"source"`
	SourceID        *string               `json:"source_id,omitempty"`
	Status          string                `json:"status"`
	TotalDebits     decimal.Decimal       `json:"total_debits"`
	TotalCredits    decimal.Decimal       `json:"total_credits"`
	CreatedBy       string                `json:"created_by"`
	PostedBy        *string               `json:"posted_by,omitempty"`
	PostedAt        *time.Time            `json:"posted_at,omitempty"`
	Lines           []JournalLineResponse `json:"lines"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// JournalFromDomain converts a domain journal to response.
func JournalFromDomain(j *domain.Journal) *JournalResponse {
	lines := make([]JournalLineResponse, len(j.Lines))
	for i, l := range j.Lines {
		lines[i] = JournalLineResponse{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			EntityID:    l.EntityID,
		}
	}
	return &JournalResponse{
		ID:              j.ID,
		Number:          j.Number,
		TransactionDate: NewDate(j.TransactionDate),
		PostingDate:     NewDate(j.PostingDate),
		Description:     j.Description,
		Source:          string(j.Source),
		SourceID:        j.SourceID,
		Status:          string(j.Status),
		TotalDebits:     j.TotalDebits,
		TotalCredits:    j.TotalCredits,
		CreatedBy:       j.CreatedBy,
		PostedBy:        j.PostedBy,
		PostedAt:        j.PostedAt,
		Lines:           lines,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func JournalsFromDomain(journals []*domain.Journal) []*JournalResponse {
	return mapAll(journals, JournalFromDomain)
}

// PeriodResponse represents an accounting period.
type PeriodResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate Date      `json:"start_date"`
	EndDate   Date      `json:"end_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func PeriodFromDomain(p *domain.Period) *PeriodResponse {
	return &PeriodResponse{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: NewDate(p.StartDate),
		EndDate:   NewDate(p.EndDate),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func PeriodsFromDomain(periods []*domain.Period) []*PeriodResponse {
	return mapAll(periods, PeriodFromDomain)
}

// LineItemResponse is one document line.
type LineItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	AccountID   *string         `json:"account_id,omitempty"`
	Position    int             `json:"position"`
}

// TaxResponse is one tax row.
type TaxResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// DocumentResponse carries the fields bills and invoices share.
type DocumentResponse struct {
	ID             string             `json:"id"`
	Number         string             `json:"number"`
	CounterpartyID string             `json:"counterparty_id"`
	CurrencyID     string             `json:"currency_id"`
	IssueDate      Date               `json:"issue_date"`
	DueDate        *Date              `json:"due_date,omitempty"`
	Status         string             `json:"status"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	Total          decimal.Decimal    `json:"total"`
	AmountPaid     decimal.Decimal    `json:"amount_paid"`
	AmountDue      decimal.Decimal    `json:"amount_due"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	LineItems      []LineItemResponse `json:"line_items"`
	Taxes          []TaxResponse      `json:"taxes"`
	CreatedBy      string             `json:"created_by"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// DocumentFromDomain converts the shared document part.
func DocumentFromDomain(d *domain.Document) DocumentResponse {
	items := make([]LineItemResponse, len(d.LineItems))
	for i, item := range d.LineItems {
		items[i] = LineItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
			AccountID:   item.AccountID,
			Position:    item.Position,
		}
	}
	taxRows := make([]TaxResponse, len(d.Taxes))
	for i, t := range d.Taxes {
		taxRows[i] = TaxResponse{ID: t.ID, Name: t.Name, Percentage: t.Percentage, Amount: t.Amount}
	}

	return DocumentResponse{
		ID:             d.ID,
		Number:         d.Number,
		CounterpartyID: d.CounterpartyID,
		CurrencyID:     d.CurrencyID,
		IssueDate:      NewDate(d.IssueDate),
		DueDate:        DatePtr(d.DueDate),
		Status:         string(d.Status),
		Subtotal:       d.Subtotal,
		TaxAmount:      d.TaxAmount,
		Total:          d.Total,
		AmountPaid:     d.AmountPaid,
		AmountDue:      d.AmountDue,
		PaidAt:         d.PaidAt,
		Notes:          d.Notes,
		LineItems:      items,
		Taxes:          taxRows,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// LedgerPostingResponse reports the outcome of a GL posting attempt.
type LedgerPostingResponse struct {
	Status    string `json:"status"`
	JournalID string `json:"journal_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func LedgerPostingFromDomain(p *domain.LedgerPosting) *LedgerPostingResponse {
	if p == nil {
		return nil
	}
	return &LedgerPostingResponse{
		Status:    string(p.Status),
		JournalID: p.JournalID,
		Error:     p.Error,
		Retryable: p.Retryable,
	}
}

// DuplicateMatchResponse is one bill resembling the checked one.
type DuplicateMatchResponse struct {
	BillID              string          `json:"bill_id"`
	Number              string          `json:"number"`
	VendorInvoiceNumber string          `json:"vendor_invoice_number,omitempty"`
	Total               decimal.Decimal `json:"total"`
	IssueDate           Date            `json:"issue_date"`
	Status              string          `json:"status"`
	Reason              string          `json:"reason"`
	Score               float64         `json:"score"`
}

// DuplicateCheckResponse reports possible duplicate bills.
type DuplicateCheckResponse struct {
	IsDuplicate bool                     `json:"is_duplicate"`
	Confidence  string                   `json:"confidence"`
	Matches     []DuplicateMatchResponse `json:"matches"`
}

func DuplicateCheckFromDomain(r *domain.DuplicateCheckResult) *DuplicateCheckResponse {
	if r == nil {
		return nil
	}
	matches := make([]DuplicateMatchResponse, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = DuplicateMatchResponse{
			BillID:              m.BillID,
			Number:              m.Number,
			VendorInvoiceNumber: m.VendorInvoiceNumber,
			Total:               m.Total,
			IssueDate:           NewDate(m.IssueDate),
			Status:              string(m.Status),
			Reason:              string(m.Reason),
			Score:               m.Score,
		}
	}
	return &DuplicateCheckResponse{
		IsDuplicate: r.IsDuplicate,
		Confidence:  string(r.Confidence),
		Matches:     matches,
	}
}

// BillResponse represents a bill in API responses.
type BillResponse struct {
	DocumentResponse
	VendorInvoiceNumber string     `json:"vendor_invoice_number,omitempty"`
	ReceivedDate        *Date      `json:"received_date,omitempty"`
	PurchaseOrderID     *string    `json:"purchase_order_id,omitempty"`
	ApprovedBy          *string    `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`

	Ledger    *LedgerPostingResponse  `json:"ledger,omitempty"`
	Duplicate *DuplicateCheckResponse `json:"duplicate_warning,omitempty"`
}

func BillFromDomain(b *domain.Bill) *BillResponse {
	return &BillResponse{
		DocumentResponse:    DocumentFromDomain(&b.Document),
		VendorInvoiceNumber: b.VendorInvoiceNumber,
		ReceivedDate:        DatePtr(b.ReceivedDate),
		PurchaseOrderID:     b.PurchaseOrderID,
		ApprovedBy:          b.ApprovedBy,
		ApprovedAt:          b.ApprovedAt,
	}
}

// BillFromResult adds the ledger outcome and any duplicate warning.
func BillFromResult(r *usecase.BillResult) *BillResponse {
	resp := BillFromDomain(r.Bill)
	resp.Ledger = LedgerPostingFromDomain(r.Ledger)
	resp.Duplicate = DuplicateCheckFromDomain(r.Duplicate)
	return resp
}

func BillsFromDomain(bills []*domain.Bill) []*BillResponse {
	return mapAll(bills, BillFromDomain)
}

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	DocumentResponse
	SentAt         *time.Time `json:"sent_at,omitempty"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`

	Ledger *LedgerPostingResponse `json:"ledger,omitempty"`
}

func InvoiceFromDomain(i *domain.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		DocumentResponse: DocumentFromDomain(&i.Document),
		SentAt:           i.SentAt,
		LastRemindedAt:   i.LastRemindedAt,
	}
}

func InvoiceFromResult(r *usecase.InvoiceResult) *InvoiceResponse {
	resp := InvoiceFromDomain(r.Invoice)
	resp.Ledger = LedgerPostingFromDomain(r.Ledger)
	return resp
}

func InvoicesFromDomain(invoices []*domain.Invoice) []*InvoiceResponse {
	return mapAll(invoices, InvoiceFromDomain)
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID              string          `json:"id"`
	DocumentID      string          `json:"document_id"`
	DocumentKind    string          `json:"document_kind"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     Date            `json:"payment_date"`
	Method          string          `json:"method,omitempty"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:              p.ID,
		DocumentID:      p.DocumentID,
		DocumentKind:    string(p.DocumentKind),
		Amount:          p.Amount,
		PaymentDate:     NewDate(p.PaymentDate),
		Method:          p.Method,
		ReferenceNumber: p.ReferenceNumber,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func PaymentsFromDomain(payments []*domain.Payment) []*PaymentResponse {
	return mapAll(payments, PaymentFromDomain)
}

// DocumentBalanceResponse is the settlement state of a document after a
// payment change.
type DocumentBalanceResponse struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

func DocumentBalanceFromDomain(d *domain.Document) *DocumentBalanceResponse {
	return &DocumentBalanceResponse{
		ID:         d.ID,
		Status:     string(d.Status),
		AmountPaid: d.AmountPaid,
		AmountDue:  d.AmountDue,
		PaidAt:     d.PaidAt,
	}
}

// PaymentResultResponse pairs a payment with the document it settled.
type PaymentResultResponse struct {
	Payment  *PaymentResponse         `json:"payment"`
	Document *DocumentBalanceResponse `json:"document"`
}

func PaymentResultFromUseCase(r *usecase.PaymentResult) *PaymentResultResponse {
	return &PaymentResultResponse{
		Payment:  PaymentFromDomain(r.Payment),
		Document: DocumentBalanceFromDomain(r.Document),
	}
}

// TrialBalanceLineResponse is one account row of a trial balance.
type TrialBalanceLineResponse struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Debits    decimal.Decimal `json:"debits"`
	Credits   decimal.Decimal `json:"credits"`
	Net       decimal.Decimal `json:"net"`
}

// TrialBalanceResponse represents a trial balance.
type TrialBalanceResponse struct {
	StartDate    *Date                      `json:"start_date,omitempty"`
	EndDate      *Date                      `json:"end_date,omitempty"`
	Lines        []TrialBalanceLineResponse `json:"lines"`
	TotalDebits  decimal.Decimal            `json:"total_debits"`
	TotalCredits decimal.Decimal            `json:"total_credits"`
	IsBalanced   bool                       `json:"is_balanced"`
}

func TrialBalanceFromDomain(tb *domain.TrialBalance) *TrialBalanceResponse {
	lines := make([]TrialBalanceLineResponse, len(tb.Lines))
	for i, l := range tb.Lines {
		lines[i] = TrialBalanceLineResponse{
			AccountID: l.AccountID,
			Code:      l.Code,
			Name:      l.Name,
			Type:      string(l.Type),
			Debits:    l.Debits,
			Credits:   l.Credits,
			Net:       l.Net,
		}
	}
	return &TrialBalanceResponse{
		StartDate:    DatePtr(tb.StartDate),
		EndDate:      DatePtr(tb.EndDate),
		Lines:        lines,
		TotalDebits:  tb.TotalDebits,
		TotalCredits: tb.TotalCredits,
		IsBalanced:   tb.TotalDebits.Sub(tb.TotalCredits).Abs().LessThanOrEqual(domain.BalanceTolerance),
	}
}

// StatementLineResponse is one account row of a financial statement.
type StatementLineResponse struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

func statementLines(lines []domain.StatementLine) []StatementLineResponse {
	out := make([]StatementLineResponse, len(lines))
	for i, l := range lines {
		out[i] = StatementLineResponse{AccountID: l.AccountID, Code: l.Code, Name: l.Name, Amount: l.Amount}
	}
	return out
}

// IncomeStatementResponse represents an income statement.
type IncomeStatementResponse struct {
	StartDate     *Date                   `json:"start_date,omitempty"`
	EndDate       *Date                   `json:"end_date,omitempty"`
	Revenue       []StatementLineResponse `json:"revenue"`
	Expenses      []StatementLineResponse `json:"expenses"`
	TotalRevenue  decimal.Decimal         `json:"total_revenue"`
	TotalExpenses decimal.Decimal         `json:"total_expenses"`
	NetIncome     decimal.Decimal         `json:"net_income"`
}

func IncomeStatementFromDomain(is *domain.IncomeStatement) *IncomeStatementResponse {
	return &IncomeStatementResponse{
		StartDate:     DatePtr(is.StartDate),
		EndDate:       DatePtr(is.EndDate),
		Revenue:       statementLines(is.Revenue),
		Expenses:      statementLines(is.Expenses),
		TotalRevenue:  is.TotalRevenue,
		TotalExpenses: is.TotalExpenses,
		NetIncome:     is.NetIncome,
	}
}

// BalanceSheetResponse represents a balance sheet.
type BalanceSheetResponse struct {
	AsOf             Date                    `json:"as_of"`
	Assets           []StatementLineResponse `json:"assets"`
	Liabilities      []StatementLineResponse `json:"liabilities"`
	Equity           []StatementLineResponse `json:"equity"`
	TotalAssets      decimal.Decimal         `json:"total_assets"`
	TotalLiabilities decimal.Decimal         `json:"total_liabilities"`
	RetainedEarnings decimal.Decimal         `json:"retained_earnings"`
	TotalEquity      decimal.Decimal         `json:"total_equity"`
	Check            decimal.Decimal         `json:"check"`
	IsBalanced       bool                    `json:"is_balanced"`
}

func BalanceSheetFromDomain(bs *domain.BalanceSheet) *BalanceSheetResponse {
	return &BalanceSheetResponse{
		AsOf:             NewDate(bs.AsOf),
		Assets:           statementLines(bs.Assets),
		Liabilities:      statementLines(bs.Liabilities),
		Equity:           statementLines(bs.Equity),
		TotalAssets:      bs.TotalAssets,
		TotalLiabilities: bs.TotalLiabilities,
		RetainedEarnings: bs.RetainedEarnings,
		TotalEquity:      bs.TotalEquity,
		Check:            bs.Check,
		IsBalanced:       bs.IsBalanced(),
	}
}

// AgingLineResponse is one open document in an aging report.
type AgingLineResponse struct {
	DocumentID     string          `json:"document_id"`
	Number         string          `json:"number"`
	CounterpartyID string          `json:"counterparty_id"`
	DueDate        *Date           `json:"due_date,omitempty"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	DaysPastDue    int             `json:"days_past_due"`
	Bucket         string          `json:"bucket"`
}

// AgingReportResponse represents a receivables or payables aging report.
type AgingReportResponse struct {
	Kind    string                     `json:"kind"`
	AsOf    Date                       `json:"as_of"`
	Lines   []AgingLineResponse        `json:"lines"`
	Buckets map[string]decimal.Decimal `json:"buckets"`
	Total   decimal.Decimal            `json:"total"`
}

func AgingReportFromDomain(r *domain.AgingReport) *AgingReportResponse {
	lines := make([]AgingLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = AgingLineResponse{
			DocumentID:     l.DocumentID,
			Number:         l.Number,
			CounterpartyID: l.CounterpartyID,
			DueDate:        DatePtr(l.DueDate),
			AmountDue:      l.AmountDue,
			DaysPastDue:    l.DaysPastDue,
			Bucket:         string(l.Bucket),
		}
	}
	buckets := make(map[string]decimal.Decimal, len(r.Buckets))
	for b, amount := range r.Buckets {
		buckets[string(b)] = amount
	}
	return &AgingReportResponse{
		Kind:    string(r.Kind),
		AsOf:    NewDate(r.AsOf),
		Lines:   lines,
		Buckets: buckets,
		Total:   r.Total,
	}
}

// ReconciliationResultResponse compares a cached balance with its ledger.
type ReconciliationResultResponse struct {
	AccountID         string          `json:"account_id"`
	Code              string          `json:"code"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

func ReconciliationResultFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResultResponse {
	return &ReconciliationResultResponse{
		AccountID:         r.AccountID,
		Code:              r.Code,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// UnpostedDocumentResponse is a recognized document missing its journal.
type UnpostedDocumentResponse struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	Number    string          `json:"number"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	IssueDate Date            `json:"issue_date"`
}

func UnpostedDocumentsFromUseCase(docs []usecase.UnpostedDocument) []UnpostedDocumentResponse {
	out := make([]UnpostedDocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = UnpostedDocumentResponse{
			Kind:      string(d.Kind),
			ID:        d.ID,
			Number:    d.Number,
			Status:    string(d.Status),
			Total:     d.Total,
			IssueDate: NewDate(d.IssueDate),
		}
	}
	return out
}

// ReconciliationReportResponse summarizes ledger health for an organization.
type ReconciliationReportResponse struct {
	TotalAccounts      int                             `json:"total_accounts"`
	ReconciledAccounts int                             `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResultResponse `json:"discrepancies"`
	LedgerConsistent   bool                            `json:"ledger_consistent"`
	UnpostedDocuments  []UnpostedDocumentResponse      `json:"unposted_documents"`
	CheckedAt          time.Time                       `json:"checked_at"`
}

func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      mapAll(r.Discrepancies, ReconciliationResultFromUseCase),
		LedgerConsistent:   r.LedgerConsistent,
		UnpostedDocuments:  UnpostedDocumentsFromUseCase(r.UnpostedDocuments),
		CheckedAt:          r.CheckedAt,
	}
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func ActivityFromDomain(e *domain.ActivityLogEntry) *ActivityResponse {
	return &ActivityResponse{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     string(e.Action),
		ActorID:    e.ActorID,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}

func ActivitiesFromDomain(entries []*domain.ActivityLogEntry) []*ActivityResponse {
	return mapAll(entries, ActivityFromDomain)
}

// SequenceResponse is a freshly issued document number.
type SequenceResponse struct {
	Kind   string `json:"kind"`
	Number string `json:"number"`
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func mapAll[S any, T any](in []S, fn func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
