package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/subledger/subledger/pkg/billing"
)

// FileArchiver writes invoices as indented JSON under
// <root>/<userID>/<invoiceID>.json.
type FileArchiver struct {
	rootDir string
}

var _ Archiver = (*FileArchiver)(nil)

// NewFileArchiver creates a filesystem-backed archiver rooted at rootDir.
func NewFileArchiver(rootDir string) (*FileArchiver, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}
	return &FileArchiver{rootDir: rootDir}, nil
}

// StoreInvoice writes the invoice to disk, replacing any previous archive of
// the same invoice.
func (a *FileArchiver) StoreInvoice(ctx context.Context, inv *billing.Invoice) error {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal invoice: %w", err)
	}

	userDir := filepath.Join(a.rootDir, inv.UserID)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	path := filepath.Join(userDir, inv.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write invoice file: %w", err)
	}
	return nil
}
