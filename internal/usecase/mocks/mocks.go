package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// memDB is the shared state behind the in-memory repositories. Every read
// returns a copy so callers cannot mutate stored rows without a write.
type memDB struct {
	mu        sync.RWMutex
	accounts  map[string]*domain.Account
	journals  map[string]*domain.Journal
	periods   map[string]*domain.Period
	bills     map[string]*domain.Bill
	invoices  map[string]*domain.Invoice
	payments  map[string]*domain.Payment
	sequences map[string]int64
	activity  []*domain.ActivityLogEntry
	outbox    []*domain.OutboxEvent
	poBilled  map[string]decimal.Decimal
}

func newMemDB() *memDB {
	return &memDB{
		accounts:  make(map[string]*domain.Account),
		journals:  make(map[string]*domain.Journal),
		periods:   make(map[string]*domain.Period),
		bills:     make(map[string]*domain.Bill),
		invoices:  make(map[string]*domain.Invoice),
		payments:  make(map[string]*domain.Payment),
		sequences: make(map[string]int64),
		poBilled:  make(map[string]decimal.Decimal),
	}
}

// snapshot copies the state written inside transactions. Accounts and
// periods are only written outside them.
func (db *memDB) snapshot() *memDB {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s := newMemDB()
	for k, v := range db.journals {
		s.journals[k] = cloneJournal(v)
	}
	for k, v := range db.bills {
		s.bills[k] = cloneBill(v)
	}
	for k, v := range db.invoices {
		s.invoices[k] = cloneInvoice(v)
	}
	for k, v := range db.payments {
		p := *v
		s.payments[k] = &p
	}
	for k, v := range db.sequences {
		s.sequences[k] = v
	}
	for k, v := range db.poBilled {
		s.poBilled[k] = v
	}
	s.activity = append(s.activity, db.activity...)
	for _, e := range db.outbox {
		c := *e
		s.outbox = append(s.outbox, &c)
	}
	return s
}

func (db *memDB) restore(s *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.journals = s.journals
	db.bills = s.bills
	db.invoices = s.invoices
	db.payments = s.payments
	db.sequences = s.sequences
	db.poBilled = s.poBilled
	db.activity = s.activity
	db.outbox = s.outbox
}

// Repos wires every in-memory repository over one shared state.
type Repos struct {
	TxManager *MockTransactionManager
	IDGen     *MockIDGenerator
	Accounts  *MockAccountRepository
	Journals  *MockJournalRepository
	Periods   *MockPeriodRepository
	Bills     *MockBillRepository
	Invoices  *MockInvoiceRepository
	Payments  *MockPaymentRepository
	Sequences *MockSequenceRepository
	Activity  *MockActivityRepository
	Outbox    *MockOutboxRepository
	Directory *StaticDirectory
}

// NewRepos creates an empty in-memory store.
func NewRepos() *Repos {
	db := newMemDB()
	return &Repos{
		TxManager: &MockTransactionManager{db: db},
		IDGen:     NewMockIDGenerator(),
		Accounts:  &MockAccountRepository{db: db},
		Journals:  &MockJournalRepository{db: db},
		Periods:   &MockPeriodRepository{db: db},
		Bills:     &MockBillRepository{db: db},
		Invoices:  &MockInvoiceRepository{db: db},
		Payments:  &MockPaymentRepository{db: db},
		Sequences: &MockSequenceRepository{db: db},
		Activity:  &MockActivityRepository{db: db},
		Outbox:    &MockOutboxRepository{db: db},
		Directory: NewStaticDirectory(),
	}
}

// Store returns the bundle expected by the use cases.
func (r *Repos) Store() usecase.Store {
	return usecase.Store{
		TxManager: r.TxManager,
		IDGen:     r.IDGen,
		Accounts:  r.Accounts,
		Journals:  r.Journals,
		Periods:   r.Periods,
		Bills:     r.Bills,
		Invoices:  r.Invoices,
		Payments:  r.Payments,
		Sequences: r.Sequences,
		Activity:  r.Activity,
		Outbox:    r.Outbox,
		Directory: r.Directory,
	}
}

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	db *memDB

	CreateFunc        func(ctx context.Context, account *domain.Account) error
	GetByCodeFunc     func(ctx context.Context, orgID, code string) (*domain.Account, error)
	UpdateBalanceFunc func(ctx context.Context, orgID, id string, balance decimal.Decimal, updatedAt time.Time) error
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.codeTaken(account.OrganizationID, account.Code, account.ID) {
		return domain.ErrDuplicateAccountCode
	}
	m.db.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (m *MockAccountRepository) InsertIfAbsent(_ context.Context, account *domain.Account) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.codeTaken(account.OrganizationID, account.Code, "") {
		return false, nil
	}
	m.db.accounts[account.ID] = cloneAccount(account)
	return true, nil
}

func (m *MockAccountRepository) Update(_ context.Context, account *domain.Account) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.accounts[account.ID]
	if !ok || existing.OrganizationID != account.OrganizationID {
		return domain.ErrAccountNotFound
	}
	if m.codeTaken(account.OrganizationID, account.Code, account.ID) {
		return domain.ErrDuplicateAccountCode
	}
	m.db.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (m *MockAccountRepository) Delete(_ context.Context, orgID, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.accounts[id]
	if !ok || existing.OrganizationID != orgID {
		return domain.ErrAccountNotFound
	}
	delete(m.db.accounts, id)
	return nil
}

func (m *MockAccountRepository) GetByID(_ context.Context, orgID, id string) (*domain.Account, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	if acc, ok := m.db.accounts[id]; ok && acc.OrganizationID == orgID {
		return cloneAccount(acc), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByCode(ctx context.Context, orgID, code string) (*domain.Account, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, orgID, code)
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	for _, acc := range m.db.accounts {
		if acc.OrganizationID == orgID && acc.Code == code {
			return cloneAccount(acc), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDs(_ context.Context, orgID string, ids []string) ([]*domain.Account, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.db.accounts[id]; ok && acc.OrganizationID == orgID {
			accounts = append(accounts, cloneAccount(acc))
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) List(_ context.Context, orgID string) ([]*domain.Account, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.db.accounts {
		if acc.OrganizationID == orgID {
			accounts = append(accounts, cloneAccount(acc))
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, orgID, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, orgID, id, balance, updatedAt)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	acc, ok := m.db.accounts[id]
	if !ok || acc.OrganizationID != orgID {
		return domain.ErrAccountNotFound
	}
	acc.CurrentBalance = balance
	acc.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) HasJournalLines(_ context.Context, orgID, id string) (bool, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	for _, j := range m.db.journals {
		if j.OrganizationID != orgID {
			continue
		}
		for _, l := range j.Lines {
			if l.AccountID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// SetBalance overwrites a cached balance to simulate drift.
func (m *MockAccountRepository) SetBalance(id string, balance decimal.Decimal) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if acc, ok := m.db.accounts[id]; ok {
		acc.CurrentBalance = balance
	}
}

// Count returns the number of stored accounts across all organizations.
func (m *MockAccountRepository) Count() int {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	return len(m.db.accounts)
}

func (m *MockAccountRepository) codeTaken(orgID, code, selfID string) bool {
	for _, acc := range m.db.accounts {
		if acc.OrganizationID == orgID && acc.Code == code && acc.ID != selfID {
			return true
		}
	}
	return false
}

// MockJournalRepository is an in-memory JournalRepository that enforces the
// (organization, source, source id) uniqueness of the database.
type MockJournalRepository struct {
	db *memDB

	CreateFunc    func(ctx context.Context, tx usecase.Transaction, journal *domain.Journal) error
	SumPostedFunc func(ctx context.Context, orgID, accountID string) (domain.AccountActivity, error)
}

func (m *MockJournalRepository) Create(ctx context.Context, tx usecase.Transaction, journal *domain.Journal) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, journal)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if journal.SourceID != nil {
		for _, j := range m.db.journals {
			if j.OrganizationID == journal.OrganizationID && j.Source == journal.Source &&
				j.SourceID != nil && *j.SourceID == *journal.SourceID {
				return domain.ErrJournalAlreadyExists
			}
		}
	}
	m.db.journals[journal.ID] = cloneJournal(journal)
	return nil
}

func (m *MockJournalRepository) Update(_ context.Context, _ usecase.Transaction, journal *domain.Journal) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.journals[journal.ID]; !ok || existing.OrganizationID != journal.OrganizationID {
		return domain.ErrJournalNotFound
	}
	m.db.journals[journal.ID] = cloneJournal(journal)
	return nil
}

func (m *MockJournalRepository) UpdateStatus(_ context.Context, _ usecase.Transaction, journal *domain.Journal) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.journals[journal.ID]
	if !ok || existing.OrganizationID != journal.OrganizationID {
		return domain.ErrJournalNotFound
	}
	existing.Status = journal.Status
	existing.PostedBy = journal.PostedBy
	existing.PostedAt = journal.PostedAt
	existing.UpdatedAt = journal.UpdatedAt
	return nil
}

func (m *MockJournalRepository) Delete(_ context.Context, _ usecase.Transaction, orgID, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.journals[id]; !ok || existing.OrganizationID != orgID {
		return domain.ErrJournalNotFound
	}
	delete(m.db.journals, id)
	return nil
}

func (m *MockJournalRepository) GetByID(_ context.Context, orgID, id string) (*domain.Journal, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	if j, ok := m.db.journals[id]; ok && j.OrganizationID == orgID {
		return cloneJournal(j), nil
	}
	return nil, domain.ErrJournalNotFound
}

func (m *MockJournalRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, orgID, id string) (*domain.Journal, error) {
	return m.GetByID(ctx, orgID, id)
}

func (m *MockJournalRepository) FindBySource(_ context.Context, _ usecase.Transaction, orgID string, source domain.JournalSource, sourceID string) (*domain.Journal, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	for _, j := range m.db.journals {
		if j.OrganizationID == orgID && j.Source == source && j.SourceID != nil && *j.SourceID == sourceID {
			return cloneJournal(j), nil
		}
	}
	return nil, domain.ErrJournalNotFound
}

func (m *MockJournalRepository) ExistingSourceIDs(_ context.Context, orgID string, source domain.JournalSource, sourceIDs []string) (map[string]bool, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	wanted := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[id] = true
	}
	found := make(map[string]bool)
	for _, j := range m.db.journals {
		if j.OrganizationID == orgID && j.Source == source && j.SourceID != nil && wanted[*j.SourceID] {
			found[*j.SourceID] = true
		}
	}
	return found, nil
}

func (m *MockJournalRepository) List(_ context.Context, filter usecase.JournalFilter) ([]*domain.Journal, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var journals []*domain.Journal
	for _, j := range m.db.journals {
		if j.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Source != "" && j.Source != filter.Source {
			continue
		}
		journals = append(journals, cloneJournal(j))
	}
	sort.Slice(journals, func(i, j int) bool { return journals[i].Number > journals[j].Number })
	return paginate(journals, filter.Limit, filter.Offset), nil
}

func (m *MockJournalRepository) SumPosted(ctx context.Context, orgID, accountID string) (domain.AccountActivity, error) {
	if m.SumPostedFunc != nil {
		return m.SumPostedFunc(ctx, orgID, accountID)
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	activity := domain.AccountActivity{AccountID: accountID, Debits: decimal.Zero, Credits: decimal.Zero}
	for _, j := range m.db.journals {
		if j.OrganizationID != orgID || j.Status != domain.JournalStatusPosted {
			continue
		}
		for _, l := range j.Lines {
			if l.AccountID == accountID {
				activity.Debits = activity.Debits.Add(l.Debit)
				activity.Credits = activity.Credits.Add(l.Credit)
			}
		}
	}
	return activity, nil
}

func (m *MockJournalRepository) PostedActivity(_ context.Context, orgID string, start, end *time.Time) (map[string]domain.AccountActivity, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	result := make(map[string]domain.AccountActivity)
	for _, j := range m.db.journals {
		if j.OrganizationID != orgID || j.Status != domain.JournalStatusPosted {
			continue
		}
		day := dateOnly(j.TransactionDate)
		if start != nil && day.Before(dateOnly(*start)) {
			continue
		}
		if end != nil && day.After(dateOnly(*end)) {
			continue
		}
		for _, l := range j.Lines {
			a := result[l.AccountID]
			a.AccountID = l.AccountID
			a.Debits = a.Debits.Add(l.Debit)
			a.Credits = a.Credits.Add(l.Credit)
			result[l.AccountID] = a
		}
	}
	return result, nil
}

// CountBySource counts journals for one (organization, source, source id).
func (m *MockJournalRepository) CountBySource(orgID string, source domain.JournalSource, sourceID string) int {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	n := 0
	for _, j := range m.db.journals {
		if j.OrganizationID == orgID && j.Source == source && j.SourceID != nil && *j.SourceID == sourceID {
			n++
		}
	}
	return n
}

// Count returns the number of stored journals.
func (m *MockJournalRepository) Count() int {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	return len(m.db.journals)
}

// MockPeriodRepository is an in-memory PeriodRepository.
type MockPeriodRepository struct {
	db *memDB

	ListFunc func(ctx context.Context, orgID string) ([]*domain.Period, error)
}

func (m *MockPeriodRepository) Create(_ context.Context, period *domain.Period) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p := *period
	m.db.periods[period.ID] = &p
	return nil
}

func (m *MockPeriodRepository) Update(_ context.Context, period *domain.Period) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.periods[period.ID]; !ok || existing.OrganizationID != period.OrganizationID {
		return domain.ErrPeriodNotFound
	}
	p := *period
	m.db.periods[period.ID] = &p
	return nil
}

func (m *MockPeriodRepository) GetByID(_ context.Context, orgID, id string) (*domain.Period, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	if p, ok := m.db.periods[id]; ok && p.OrganizationID == orgID {
		c := *p
		return &c, nil
	}
	return nil, domain.ErrPeriodNotFound
}

func (m *MockPeriodRepository) List(ctx context.Context, orgID string) ([]*domain.Period, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, orgID)
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var periods []*domain.Period
	for _, p := range m.db.periods {
		if p.OrganizationID == orgID {
			c := *p
			periods = append(periods, &c)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].StartDate.Before(periods[j].StartDate) })
	return periods, nil
}

// MockBillRepository is an in-memory BillRepository.
type MockBillRepository struct {
	db *memDB

	CreateFunc func(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error
}

func (m *MockBillRepository) Create(ctx context.Context, tx usecase.Transaction, bill *domain.Bill) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, bill)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.bills[bill.ID] = cloneBill(bill)
	return nil
}

func (m *MockBillRepository) Update(_ context.Context, _ usecase.Transaction, bill *domain.Bill) error {
	return m.put(bill)
}

func (m *MockBillRepository) UpdateState(_ context.Context, _ usecase.Transaction, bill *domain.Bill) error {
	return m.put(bill)
}

func (m *MockBillRepository) put(bill *domain.Bill) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.bills[bill.ID]; !ok || existing.OrganizationID != bill.OrganizationID {
		return domain.ErrBillNotFound
	}
	m.db.bills[bill.ID] = cloneBill(bill)
	return nil
}

func (m *MockBillRepository) Delete(_ context.Context, _ usecase.Transaction, orgID, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.bills[id]; !ok || existing.OrganizationID != orgID {
		return domain.ErrBillNotFound
	}
	delete(m.db.bills, id)
	return nil
}

func (m *MockBillRepository) GetByID(_ context.Context, orgID, id string) (*domain.Bill, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	if b, ok := m.db.bills[id]; ok && b.OrganizationID == orgID {
		return cloneBill(b), nil
	}
	return nil, domain.ErrBillNotFound
}

func (m *MockBillRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, orgID, id string) (*domain.Bill, error) {
	return m.GetByID(ctx, orgID, id)
}

func (m *MockBillRepository) List(_ context.Context, filter usecase.DocumentFilter) ([]*domain.Bill, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var bills []*domain.Bill
	for _, b := range m.db.bills {
		if matchesDocument(&b.Document, filter) {
			bills = append(bills, cloneBill(b))
		}
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].Number < bills[j].Number })
	return paginate(bills, filter.Limit, filter.Offset), nil
}

func (m *MockBillRepository) FindByVendorInvoiceNumber(_ context.Context, orgID, vendorID, number, excludeID string) ([]*domain.Bill, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var bills []*domain.Bill
	for _, b := range m.db.bills {
		if b.OrganizationID != orgID || b.CounterpartyID != vendorID || b.ID == excludeID ||
			b.Status == domain.DocumentStatusCancelled {
			continue
		}
		if strings.TrimSpace(b.VendorInvoiceNumber) == strings.TrimSpace(number) {
			bills = append(bills, cloneBill(b))
		}
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].Number < bills[j].Number })
	return bills, nil
}

func (m *MockBillRepository) FindSimilar(_ context.Context, orgID, vendorID string, minTotal, maxTotal decimal.Decimal, from, to time.Time, excludeID string) ([]*domain.Bill, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var bills []*domain.Bill
	for _, b := range m.db.bills {
		if b.OrganizationID != orgID || b.CounterpartyID != vendorID || b.ID == excludeID ||
			b.Status == domain.DocumentStatusCancelled {
			continue
		}
		if b.Total.LessThan(minTotal) || b.Total.GreaterThan(maxTotal) {
			continue
		}
		if b.IssueDate.Before(from) || b.IssueDate.After(to) {
			continue
		}
		bills = append(bills, cloneBill(b))
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].Number < bills[j].Number })
	return bills, nil
}

func (m *MockBillRepository) RefreshPurchaseOrderBilled(_ context.Context, _ usecase.Transaction, orgID, purchaseOrderID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	total := decimal.Zero
	for _, b := range m.db.bills {
		if b.OrganizationID == orgID && b.PurchaseOrderID != nil && *b.PurchaseOrderID == purchaseOrderID &&
			b.Status != domain.DocumentStatusCancelled {
			total = total.Add(b.Total)
		}
	}
	m.db.poBilled[orgID+"|"+purchaseOrderID] = total
	return nil
}

// PurchaseOrderBilled returns the last rolled-up billed amount of a purchase order.
func (m *MockBillRepository) PurchaseOrderBilled(orgID, purchaseOrderID string) decimal.Decimal {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	return m.db.poBilled[orgID+"|"+purchaseOrderID]
}

// Count returns the number of stored bills.
func (m *MockBillRepository) Count() int {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	return len(m.db.bills)
}

// MockInvoiceRepository is an in-memory InvoiceRepository.
type MockInvoiceRepository struct {
	db *memDB
}

func (m *MockInvoiceRepository) Create(_ context.Context, _ usecase.Transaction, invoice *domain.Invoice) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (m *MockInvoiceRepository) Update(_ context.Context, _ usecase.Transaction, invoice *domain.Invoice) error {
	return m.put(invoice)
}

func (m *MockInvoiceRepository) UpdateState(_ context.Context, _ usecase.Transaction, invoice *domain.Invoice) error {
	return m.put(invoice)
}

func (m *MockInvoiceRepository) put(invoice *domain.Invoice) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.invoices[invoice.ID]; !ok || existing.OrganizationID != invoice.OrganizationID {
		return domain.ErrInvoiceNotFound
	}
	m.db.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (m *MockInvoiceRepository) Delete(_ context.Context, _ usecase.Transaction, orgID, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.invoices[id]; !ok || existing.OrganizationID != orgID {
		return domain.ErrInvoiceNotFound
	}
	delete(m.db.invoices, id)
	return nil
}

func (m *MockInvoiceRepository) GetByID(_ context.Context, orgID, id string) (*domain.Invoice, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	if inv, ok := m.db.invoices[id]; ok && inv.OrganizationID == orgID {
		return cloneInvoice(inv), nil
	}
	return nil, domain.ErrInvoiceNotFound
}

func (m *MockInvoiceRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, orgID, id string) (*domain.Invoice, error) {
	return m.GetByID(ctx, orgID, id)
}

func (m *MockInvoiceRepository) List(_ context.Context, filter usecase.DocumentFilter) ([]*domain.Invoice, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var invoices []*domain.Invoice
	for _, inv := range m.db.invoices {
		if matchesDocument(&inv.Document, filter) {
			invoices = append(invoices, cloneInvoice(inv))
		}
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].Number < invoices[j].Number })
	return paginate(invoices, filter.Limit, filter.Offset), nil
}

// MockPaymentRepository is an in-memory PaymentRepository.
type MockPaymentRepository struct {
	db *memDB
}

func (m *MockPaymentRepository) Create(_ context.Context, _ usecase.Transaction, payment *domain.Payment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p := *payment
	m.db.payments[payment.ID] = &p
	return nil
}

func (m *MockPaymentRepository) Update(_ context.Context, _ usecase.Transaction, payment *domain.Payment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.payments[payment.ID]; !ok || existing.OrganizationID != payment.OrganizationID {
		return domain.ErrPaymentNotFound
	}
	p := *payment
	m.db.payments[payment.ID] = &p
	return nil
}

func (m *MockPaymentRepository) Delete(_ context.Context, _ usecase.Transaction, orgID, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.payments[id]; !ok || existing.OrganizationID != orgID {
		return domain.ErrPaymentNotFound
	}
	delete(m.db.payments, id)
	return nil
}

func (m *MockPaymentRepository) GetByID(_ context.Context, _ usecase.Transaction, orgID, id string) (*domain.Payment, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	if p, ok := m.db.payments[id]; ok && p.OrganizationID == orgID {
		c := *p
		return &c, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *MockPaymentRepository) ListByDocument(_ context.Context, orgID string, kind domain.DocumentKind, documentID string) ([]*domain.Payment, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var payments []*domain.Payment
	for _, p := range m.db.payments {
		if p.OrganizationID == orgID && p.DocumentKind == kind && p.DocumentID == documentID {
			c := *p
			payments = append(payments, &c)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].PaymentDate.Before(payments[j].PaymentDate) })
	return payments, nil
}

// MockSequenceRepository is an in-memory SequenceRepository.
type MockSequenceRepository struct {
	db *memDB
}

func (m *MockSequenceRepository) Next(_ context.Context, _ usecase.Transaction, orgID string, kind domain.SequenceKind, year int) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%d", orgID, kind, year)
	m.db.sequences[key]++
	return m.db.sequences[key], nil
}

// MockActivityRepository is an in-memory ActivityRepository.
type MockActivityRepository struct {
	db *memDB

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.ActivityLogEntry) error
}

func (m *MockActivityRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.ActivityLogEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e := *entry
	m.db.activity = append(m.db.activity, &e)
	return nil
}

func (m *MockActivityRepository) List(_ context.Context, orgID, entityType, entityID string, limit, offset int) ([]*domain.ActivityLogEntry, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var entries []*domain.ActivityLogEntry
	for i := len(m.db.activity) - 1; i >= 0; i-- {
		e := m.db.activity[i]
		if e.OrganizationID == orgID && e.EntityType == entityType && e.EntityID == entityID {
			c := *e
			entries = append(entries, &c)
		}
	}
	return paginate(entries, limit, offset), nil
}

// Entries returns every recorded entry in insertion order.
func (m *MockActivityRepository) Entries() []*domain.ActivityLogEntry {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	return append([]*domain.ActivityLogEntry(nil), m.db.activity...)
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	db *memDB

	GetUnpublishedFunc func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc  func(ctx context.Context, id string, publishedAt time.Time) error
}

func (m *MockOutboxRepository) Create(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e := *event
	m.db.outbox = append(m.db.outbox, &e)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.db.outbox {
		if !e.Published {
			c := *e
			events = append(events, &c)
		}
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, e := range m.db.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	kept := m.db.outbox[:0]
	for _, e := range m.db.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.db.outbox = kept
	return nil
}

// EventTypes returns the type of every stored event in insertion order.
func (m *MockOutboxRepository) EventTypes() []string {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	types := make([]string, len(m.db.outbox))
	for i, e := range m.db.outbox {
		types[i] = e.EventType
	}
	return types
}

// StaticDirectory is an in-memory MasterDataDirectory. A nil set accepts
// every id; a non-nil set accepts only "org|id" keys it contains.
type StaticDirectory struct {
	Vendors        map[string]bool
	Clients        map[string]bool
	Currencies     map[string]bool
	PurchaseOrders map[string]bool
	Prefixes       map[string]string
	Organizations  []string
}

// NewStaticDirectory accepts every reference.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{Prefixes: make(map[string]string)}
}

func (d *StaticDirectory) VendorExists(_ context.Context, orgID, vendorID string) (bool, error) {
	return lookup(d.Vendors, orgID, vendorID), nil
}

func (d *StaticDirectory) ClientExists(_ context.Context, orgID, clientID string) (bool, error) {
	return lookup(d.Clients, orgID, clientID), nil
}

func (d *StaticDirectory) CurrencyExists(_ context.Context, orgID, currencyID string) (bool, error) {
	return lookup(d.Currencies, orgID, currencyID), nil
}

func (d *StaticDirectory) PurchaseOrderExists(_ context.Context, orgID, purchaseOrderID string) (bool, error) {
	return lookup(d.PurchaseOrders, orgID, purchaseOrderID), nil
}

func (d *StaticDirectory) InvoicePrefix(_ context.Context, orgID string) (string, error) {
	return d.Prefixes[orgID], nil
}

func (d *StaticDirectory) OrganizationIDs(context.Context) ([]string, error) {
	return d.Organizations, nil
}

func lookup(set map[string]bool, orgID, id string) bool {
	if set == nil {
		return true
	}
	return set[orgID+"|"+id]
}

// MockTransactionManager serializes transactions, standing in for the row
// locks a database takes inside them. A transaction that ends without a
// commit restores the state captured when it began.
type MockTransactionManager struct {
	mu sync.Mutex
	db *memDB

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	statsMu   sync.Mutex
	commits   int
	rollbacks int
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	tx := &MockTransaction{manager: m}
	if m.db != nil {
		tx.snapshot = m.db.snapshot()
	}
	return tx, nil
}

// Commits returns how many transactions committed.
func (m *MockTransactionManager) Commits() int {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.commits
}

// Rollbacks returns how many transactions ended without a commit.
func (m *MockTransactionManager) Rollbacks() int {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.rollbacks
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	manager  *MockTransactionManager
	snapshot *memDB
	once     sync.Once
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.finish(true)
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		if err := m.RollbackFunc(ctx); err != nil {
			return err
		}
	}
	m.finish(false)
	return nil
}

func (m *MockTransaction) finish(committed bool) {
	m.once.Do(func() {
		if m.manager == nil {
			return
		}
		m.manager.statsMu.Lock()
		if committed {
			m.manager.commits++
		} else {
			m.manager.rollbacks++
		}
		m.manager.statsMu.Unlock()
		if !committed && m.snapshot != nil {
			m.manager.db.restore(m.snapshot)
		}
		m.manager.mu.Unlock()
	})
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func matchesDocument(d *domain.Document, filter usecase.DocumentFilter) bool {
	if d.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.CounterpartyID != "" && d.CounterpartyID != filter.CounterpartyID {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, s := range filter.Statuses {
		if d.Status == s {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func cloneJournal(j *domain.Journal) *domain.Journal {
	c := *j
	c.Lines = append([]domain.JournalLine(nil), j.Lines...)
	return &c
}

func cloneDocument(d domain.Document) domain.Document {
	d.LineItems = append([]domain.LineItem(nil), d.LineItems...)
	d.Taxes = append([]domain.TaxLine(nil), d.Taxes...)
	return d
}

func cloneBill(b *domain.Bill) *domain.Bill {
	c := *b
	c.Document = cloneDocument(b.Document)
	return &c
}

func cloneInvoice(inv *domain.Invoice) *domain.Invoice {
	c := *inv
	c.Document = cloneDocument(inv.Document)
	return &c
}
