package domain

// LedgerPostingStatus is the outcome of a best-effort GL posting.
type LedgerPostingStatus string

const (
	LedgerPosted        LedgerPostingStatus = "posted"
	LedgerAlreadyPosted LedgerPostingStatus = "already_posted"
	LedgerFailed        LedgerPostingStatus = "failed"
	LedgerSkipped       LedgerPostingStatus = "skipped"
)

// LedgerPosting reports the secondary GL effect of a document transition.
// A failure here never undoes the document change.
type LedgerPosting struct {
	Status    LedgerPostingStatus
	JournalID string
	Error     string
	Retryable bool
}

// Failed reports whether the document is not yet posted to the ledger.
func (p *LedgerPosting) Failed() bool {
	return p != nil && p.Status == LedgerFailed
}
