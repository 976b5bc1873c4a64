package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coinzy/internal/database"
	"coinzy/internal/models"
)

// ContactRepository stores the e-mail address parent notifications go to
type ContactRepository struct {
	db database.DBTX
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db database.DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetContact retrieves a family's contact, or nil when none is set
func (r *ContactRepository) GetContact(ctx context.Context, familyID string) (*models.FamilyContact, error) {
	query := "SELECT family_id, email, updated_at FROM family_contacts WHERE family_id = ?"
	c := &models.FamilyContact{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(&c.FamilyID, &c.Email, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family contact: %w", err)
	}
	return c, nil
}

// SetContact updates or inserts a family's contact address
func (r *ContactRepository) SetContact(ctx context.Context, familyID, email string) (*models.FamilyContact, error) {
	now := time.Now().UTC()
	query := r.db.GetDialect().UpsertContactQuery()
	if _, err := r.db.ExecContext(ctx, query, familyID, email, now); err != nil {
		return nil, fmt.Errorf("failed to save family contact: %w", err)
	}
	return &models.FamilyContact{FamilyID: familyID, Email: email, UpdatedAt: now}, nil
}

// ListContacts returns every stored contact, for backups
func (r *ContactRepository) ListContacts(ctx context.Context) ([]models.FamilyContact, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT family_id, email, updated_at FROM family_contacts ORDER BY family_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query family contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.FamilyContact
	for rows.Next() {
		var c models.FamilyContact
		if err := rows.Scan(&c.FamilyID, &c.Email, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
