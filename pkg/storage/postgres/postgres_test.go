package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/subscription"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)

	for range migrations {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateSubscription(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	err := store.CreateSubscription(context.Background(), &subscription.Subscription{
		ID:        "sub-1",
		UserID:    "user-1",
		PlanID:    "basic",
		Status:    subscription.StatusActive,
		Cycle:     billing.CycleMonthly,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		AutoRenew: true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateSubscription_Conflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateSubscription(context.Background(), &subscription.Subscription{ID: "sub-1"})
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))
}

func TestStore_UpdateSubscription_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateSubscription(context.Background(), &subscription.Subscription{ID: "ghost"})
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestStore_ListSubscriptions(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	canceled := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "plan_id", "status", "cycle",
		"start_date", "end_date", "auto_renew", "canceled_at", "created_at", "updated_at",
	}).
		AddRow("sub-1", "user-1", "basic", "active", "monthly", now, now.AddDate(0, 1, 0), true, nil, now, now).
		AddRow("sub-2", "user-1", "premium", "canceled", "annual", now, now.AddDate(1, 0, 0), false, canceled, now, now)

	mock.ExpectQuery("FROM subscriptions").
		WithArgs("user-1").
		WillReturnRows(rows)

	subs, err := store.ListSubscriptions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, subscription.StatusActive, subs[0].Status)
	assert.Equal(t, billing.CycleMonthly, subs[0].Cycle)
	assert.Nil(t, subs[0].CanceledAt)

	assert.Equal(t, subscription.StatusCanceled, subs[1].Status)
	require.NotNil(t, subs[1].CanceledAt)
	assert.True(t, subs[1].CanceledAt.Equal(canceled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetInvoice(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	items := []byte(`[{"description":"Basic Plan (monthly)","plan_id":"basic","quantity":1,"unit_price":"9.99","amount":"9.99"}]`)
	rows := sqlmock.NewRows([]string{
		"id", "number", "user_id", "subscription_id", "items",
		"subtotal", "tax", "total", "status", "created_at", "due_date", "paid_at",
	}).AddRow("inv-1", "INV-100000123", "user-1", "sub-1", items,
		"9.99", "1.00", "10.99", "open", now, now.Add(14*24*time.Hour), nil)

	mock.ExpectQuery("FROM invoices").
		WithArgs("inv-1", "user-1").
		WillReturnRows(rows)

	inv, err := store.GetInvoice(context.Background(), "user-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, billing.InvoiceStatusOpen, inv.Status)
	assert.True(t, inv.Total.Equal(decimal.RequireFromString("10.99")))
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "basic", inv.Items[0].PlanID)
	assert.Equal(t, 1, inv.Items[0].Quantity)
	assert.Nil(t, inv.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetInvoice_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM invoices").
		WithArgs("ghost", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetInvoice(context.Background(), "user-1", "ghost")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestStore_UpdateInvoice(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE invoices").
		WillReturnResult(sqlmock.NewResult(0, 1))

	paidAt := time.Now().UTC()
	err := store.UpdateInvoice(context.Background(), &billing.Invoice{
		ID:       "inv-1",
		Subtotal: decimal.RequireFromString("9.99"),
		Tax:      decimal.RequireFromString("1.00"),
		Total:    decimal.RequireFromString("10.99"),
		Status:   billing.InvoiceStatusPaid,
		PaidAt:   &paidAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetDefaultMethod(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET is_default = FALSE").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("SET is_default = TRUE").
		WithArgs("user-1", "card-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetDefaultMethod(context.Background(), "user-1", "card-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetDefaultMethod_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET is_default = FALSE").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET is_default = TRUE").
		WithArgs("user-1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetDefaultMethod(context.Background(), "user-1", "ghost")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "invoice_id", "gateway_ref", "payment_method",
		"amount", "status", "created_at", "metadata",
	}).AddRow("txn-1", "user-1", "inv-1", "ch_1", "card",
		"10.99", "completed", now, []byte(`{"payment_method_id":"card-1"}`))

	mock.ExpectQuery("FROM transactions").
		WithArgs("user-1", "txn-1").
		WillReturnRows(rows)

	txn, err := store.GetTransaction(context.Background(), "user-1", "txn-1")
	require.NoError(t, err)

	assert.Equal(t, payment.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, payment.MethodTypeCard, txn.PaymentMethod)
	assert.Equal(t, "card-1", txn.Metadata["payment_method_id"])
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("10.99")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateMethod_Conflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO payment_methods").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateMethod(context.Background(), &payment.Method{ID: "card-1", UserID: "user-1"})
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))
}

func TestStore_DeleteMethod_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM payment_methods").
		WithArgs("user-1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteMethod(context.Background(), "user-1", "ghost")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}
