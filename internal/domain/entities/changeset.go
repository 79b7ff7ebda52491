package entities

import "encoding/json"

// InvoiceWrite is the invoice half of a ChangeSet.
type InvoiceWrite struct {
	Invoice Invoice
	// Create inserts a new row guarded by the (service_id, billing_period) uniqueness.
	Create bool
	// ExpectedVersion must match the stored version for an update to apply.
	ExpectedVersion int64
	// AssignNumber claims the next INV-{year}-{seq} number inside the same commit.
	AssignNumber bool
}

// TransactionWrite inserts or updates one payment transaction.
type TransactionWrite struct {
	Transaction     PaymentTransaction
	Create          bool
	ExpectedVersion int64
}

// ChangeSet is applied atomically by the store: every write and every audit
// entry lands, or none do.
type ChangeSet struct {
	Invoice      *InvoiceWrite
	Transactions []TransactionWrite
	Audit        []AuditLogEntry
}

// CommitResult returns the stored rows with their new versions and numbers.
type CommitResult struct {
	Invoice      *Invoice
	Transactions []PaymentTransaction
}

func (c ChangeSet) Empty() bool {
	return c.Invoice == nil && len(c.Transactions) == 0 && len(c.Audit) == 0
}

// ApplyInvoiceNumber stamps a number claimed during commit onto the invoice and
// refreshes the after-snapshots of the audit entries describing it.
func (c *ChangeSet) ApplyInvoiceNumber(number string) error {
	if c.Invoice == nil {
		return nil
	}
	c.Invoice.Invoice.InvoiceNumber = number
	for i := range c.Audit {
		e := &c.Audit[i]
		if e.ResourceType != ResourceInvoice || e.ResourceID != c.Invoice.Invoice.ID || len(e.After) == 0 {
			continue
		}
		after, err := json.Marshal(c.Invoice.Invoice)
		if err != nil {
			return err
		}
		e.After = after
	}
	return nil
}
