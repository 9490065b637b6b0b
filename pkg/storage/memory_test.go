package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/subscription"
)

func testSubscription(userID, id string) *subscription.Subscription {
	now := time.Now().UTC()
	return &subscription.Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    "basic",
		Status:    subscription.StatusActive,
		Cycle:     billing.CycleMonthly,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		AutoRenew: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testInvoice(userID, id string) *billing.Invoice {
	return &billing.Invoice{
		ID:     id,
		Number: "INV-100000123",
		UserID: userID,
		Items: []billing.LineItem{{
			Description: "Basic Plan (monthly)",
			PlanID:      "basic",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("9.99"),
			Amount:      decimal.RequireFromString("9.99"),
		}},
		Subtotal:  decimal.RequireFromString("9.99"),
		Tax:       decimal.RequireFromString("1.00"),
		Total:     decimal.RequireFromString("10.99"),
		Status:    billing.InvoiceStatusOpen,
		CreatedAt: time.Now().UTC(),
		DueDate:   time.Now().UTC().Add(14 * 24 * time.Hour),
	}
}

func TestMemoryStore_Subscriptions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateSubscription(ctx, testSubscription("user-1", "sub-1")))
	require.NoError(t, store.CreateSubscription(ctx, testSubscription("user-1", "sub-2")))
	require.NoError(t, store.CreateSubscription(ctx, testSubscription("user-2", "sub-3")))

	err := store.CreateSubscription(ctx, testSubscription("user-1", "sub-1"))
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))

	subs, err := store.ListSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "sub-1", subs[0].ID, "insertion order is preserved")
	assert.Equal(t, "sub-2", subs[1].ID)

	subs[0].Status = subscription.StatusCanceled
	require.NoError(t, store.UpdateSubscription(ctx, subs[0]))

	again, err := store.ListSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceled, again[0].Status)

	err = store.UpdateSubscription(ctx, testSubscription("user-1", "ghost"))
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestMemoryStore_ReadsReturnCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateSubscription(ctx, testSubscription("user-1", "sub-1")))

	subs, err := store.ListSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	subs[0].Status = subscription.StatusExpired

	// Mutating the returned record does not touch the store until an
	// explicit update.
	again, err := store.ListSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, again[0].Status)
}

func TestMemoryStore_Invoices(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateInvoice(ctx, testInvoice("user-1", "inv-1")))

	err := store.CreateInvoice(ctx, testInvoice("user-1", "inv-1"))
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))

	inv, err := store.GetInvoice(ctx, "user-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusOpen, inv.Status)

	_, err = store.GetInvoice(ctx, "user-2", "inv-1")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err), "another user's invoice is not found")

	paidAt := time.Now().UTC()
	inv.Status = billing.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	require.NoError(t, store.UpdateInvoice(ctx, inv))

	got, err := store.GetInvoice(ctx, "user-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)

	list, err := store.ListInvoices(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_Methods(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	card := &payment.Method{
		ID:        "card-1",
		UserID:    "user-1",
		Type:      payment.MethodTypeCard,
		Details:   map[string]string{"last4": "4242"},
		IsDefault: true,
		CreatedAt: time.Now().UTC(),
	}
	paypal := &payment.Method{
		ID:        "paypal-1",
		UserID:    "user-1",
		Type:      payment.MethodTypePayPal,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateMethod(ctx, card))
	require.NoError(t, store.CreateMethod(ctx, paypal))

	err := store.CreateMethod(ctx, card)
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))

	require.NoError(t, store.SetDefaultMethod(ctx, "user-1", "paypal-1"))

	methods, err := store.ListMethods(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.False(t, methods[0].IsDefault, "old default is cleared")
	assert.True(t, methods[1].IsDefault)

	err = store.SetDefaultMethod(ctx, "user-1", "ghost")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	require.NoError(t, store.DeleteMethod(ctx, "user-1", "card-1"))
	_, err = store.GetMethod(ctx, "user-1", "card-1")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestMemoryStore_Transactions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	txn := &payment.Transaction{
		ID:            "txn-1",
		UserID:        "user-1",
		InvoiceID:     "inv-1",
		GatewayRef:    "ch_1",
		PaymentMethod: payment.MethodTypeCard,
		Amount:        decimal.RequireFromString("10.99"),
		Status:        payment.TransactionStatusCompleted,
		CreatedAt:     time.Now().UTC(),
		Metadata:      map[string]string{"payment_method_id": "card-1"},
	}
	require.NoError(t, store.CreateTransaction(ctx, txn))

	err := store.CreateTransaction(ctx, txn)
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))

	got, err := store.GetTransaction(ctx, "user-1", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "ch_1", got.GatewayRef)
	assert.Equal(t, "card-1", got.Metadata["payment_method_id"])

	_, err = store.GetTransaction(ctx, "user-2", "txn-1")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	list, err := store.ListTransactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sub-%d", n)
			_ = store.CreateSubscription(ctx, testSubscription("user-1", id))
		}(i)
	}
	wg.Wait()

	subs, err := store.ListSubscriptions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, subs, 50)
}
