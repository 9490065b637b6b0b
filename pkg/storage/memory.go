package storage

import (
	"context"
	"sync"

	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/subscription"
)

// MemoryStore keeps every record in insertion-ordered slices behind a single
// RWMutex. Reads and writes exchange copies, so callers never share memory
// with the store and a mutation only lands once the matching update persists
// it. Suited to tests and single-node deployments.
type MemoryStore struct {
	mu           sync.RWMutex
	subs         []*subscription.Subscription
	invoices     []*billing.Invoice
	methods      []*payment.Method
	transactions []*payment.Transaction
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.ID == sub.ID {
			return errdefs.Conflictf("subscription %s already exists", sub.ID)
		}
	}
	s.subs = append(s.subs, cloneSubscription(sub))
	return nil
}

func (s *MemoryStore) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subs {
		if existing.ID == sub.ID {
			s.subs[i] = cloneSubscription(sub)
			return nil
		}
	}
	return errdefs.NotFoundf("subscription %s not found", sub.ID)
}

func (s *MemoryStore) ListSubscriptions(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, cloneSubscription(sub))
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if existing.ID == inv.ID {
			return errdefs.Conflictf("invoice %s already exists", inv.ID)
		}
	}
	s.invoices = append(s.invoices, cloneInvoice(inv))
	return nil
}

func (s *MemoryStore) UpdateInvoice(ctx context.Context, inv *billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.invoices {
		if existing.ID == inv.ID {
			s.invoices[i] = cloneInvoice(inv)
			return nil
		}
	}
	return errdefs.NotFoundf("invoice %s not found", inv.ID)
}

func (s *MemoryStore) GetInvoice(ctx context.Context, userID, id string) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.ID == id && inv.UserID == userID {
			return cloneInvoice(inv), nil
		}
	}
	return nil, errdefs.NotFoundf("invoice %s not found", id)
}

func (s *MemoryStore) ListInvoices(ctx context.Context, userID string) ([]*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*billing.Invoice
	for _, inv := range s.invoices {
		if inv.UserID == userID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateMethod(ctx context.Context, m *payment.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.methods {
		if existing.UserID == m.UserID && existing.ID == m.ID {
			return errdefs.Conflictf("payment method %s already exists", m.ID)
		}
	}
	s.methods = append(s.methods, cloneMethod(m))
	return nil
}

func (s *MemoryStore) GetMethod(ctx context.Context, userID, id string) (*payment.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.methods {
		if m.UserID == userID && m.ID == id {
			return cloneMethod(m), nil
		}
	}
	return nil, errdefs.NotFoundf("payment method %s not found", id)
}

func (s *MemoryStore) ListMethods(ctx context.Context, userID string) ([]*payment.Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*payment.Method
	for _, m := range s.methods {
		if m.UserID == userID {
			out = append(out, cloneMethod(m))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteMethod(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.methods {
		if m.UserID == userID && m.ID == id {
			s.methods = append(s.methods[:i], s.methods[i+1:]...)
			return nil
		}
	}
	return errdefs.NotFoundf("payment method %s not found", id)
}

func (s *MemoryStore) SetDefaultMethod(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *payment.Method
	for _, m := range s.methods {
		if m.UserID != userID {
			continue
		}
		m.IsDefault = false
		if m.ID == id {
			target = m
		}
	}
	if target == nil {
		return errdefs.NotFoundf("payment method %s not found", id)
	}
	target.IsDefault = true
	return nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, txn *payment.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transactions {
		if existing.ID == txn.ID {
			return errdefs.Conflictf("transaction %s already exists", txn.ID)
		}
	}
	s.transactions = append(s.transactions, cloneTransaction(txn))
	return nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, userID, id string) (*payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, txn := range s.transactions {
		if txn.UserID == userID && txn.ID == id {
			return cloneTransaction(txn), nil
		}
	}
	return nil, errdefs.NotFoundf("transaction %s not found", id)
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string) ([]*payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*payment.Transaction
	for _, txn := range s.transactions {
		if txn.UserID == userID {
			out = append(out, cloneTransaction(txn))
		}
	}
	return out, nil
}

func cloneSubscription(sub *subscription.Subscription) *subscription.Subscription {
	out := *sub
	if sub.CanceledAt != nil {
		t := *sub.CanceledAt
		out.CanceledAt = &t
	}
	return &out
}

func cloneInvoice(inv *billing.Invoice) *billing.Invoice {
	out := *inv
	out.Items = append([]billing.LineItem(nil), inv.Items...)
	if inv.PaidAt != nil {
		t := *inv.PaidAt
		out.PaidAt = &t
	}
	return &out
}

func cloneMethod(m *payment.Method) *payment.Method {
	out := *m
	if m.Details != nil {
		out.Details = make(map[string]string, len(m.Details))
		for k, v := range m.Details {
			out.Details[k] = v
		}
	}
	return &out
}

func cloneTransaction(txn *payment.Transaction) *payment.Transaction {
	out := *txn
	if txn.Metadata != nil {
		out.Metadata = make(map[string]string, len(txn.Metadata))
		for k, v := range txn.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
