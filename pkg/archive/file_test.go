package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subledger/subledger/pkg/billing"
)

func archivedInvoice() *billing.Invoice {
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &billing.Invoice{
		ID:             "inv-1",
		Number:         "INV-100000123",
		UserID:         "user-1",
		SubscriptionID: "sub-1",
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
		Status:    billing.InvoiceStatusPaid,
		CreatedAt: paidAt.Add(-time.Hour),
		DueDate:   paidAt.Add(14 * 24 * time.Hour),
		PaidAt:    &paidAt,
	}
}

func TestFileArchiver_StoreInvoice(t *testing.T) {
	root := t.TempDir()
	archiver, err := NewFileArchiver(root)
	require.NoError(t, err)

	inv := archivedInvoice()
	require.NoError(t, archiver.StoreInvoice(context.Background(), inv))

	data, err := os.ReadFile(filepath.Join(root, "user-1", "inv-1.json"))
	require.NoError(t, err)

	var got billing.Invoice
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "INV-100000123", got.Number)
	assert.Equal(t, billing.InvoiceStatusPaid, got.Status)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("10.99")))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "basic", got.Items[0].PlanID)
	require.NotNil(t, got.PaidAt)
}

func TestFileArchiver_StoreInvoice_Overwrites(t *testing.T) {
	root := t.TempDir()
	archiver, err := NewFileArchiver(root)
	require.NoError(t, err)

	inv := archivedInvoice()
	require.NoError(t, archiver.StoreInvoice(context.Background(), inv))

	inv.Number = "INV-999999999"
	require.NoError(t, archiver.StoreInvoice(context.Background(), inv))

	data, err := os.ReadFile(filepath.Join(root, "user-1", "inv-1.json"))
	require.NoError(t, err)

	var got billing.Invoice
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "INV-999999999", got.Number)
}

func TestNewFileArchiver_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "invoices")

	_, err := NewFileArchiver(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
