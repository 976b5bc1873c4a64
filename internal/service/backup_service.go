package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"coinzy/internal/catalog"
	"coinzy/internal/database"
	"coinzy/internal/models"
	"coinzy/internal/progress"
	"coinzy/internal/repository"
)

// backupFormatVersion is bumped when BackupData changes shape
const backupFormatVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Families     []FamilyBackup  `json:"families"`
	Contacts     []ContactBackup `json:"contacts"`
}

// FamilyBackup represents one family's progress document
type FamilyBackup struct {
	FamilyID  string          `json:"family_id"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Progress  json.RawMessage `json:"progress"`
}

// ContactBackup represents a family contact record
type ContactBackup struct {
	FamilyID  string    `json:"family_id"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db       *database.DB
	catalog  *catalog.Catalog
	progress *repository.ProgressRepository
	contacts *repository.ContactRepository
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, c *catalog.Catalog) *BackupService {
	return &BackupService{
		db:       db,
		catalog:  c,
		progress: repository.NewProgressRepository(db),
		contacts: repository.NewContactRepository(db),
	}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter writes a backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:      backupFormatVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.MigrationsSubdir(),
	}

	snaps, err := s.progress.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to export progress: %w", err)
	}
	for _, snap := range snaps {
		backup.Families = append(backup.Families, FamilyBackup{
			FamilyID:  snap.FamilyID,
			Version:   snap.Version,
			UpdatedAt: snap.UpdatedAt,
			Progress:  json.RawMessage(snap.Document),
		})
	}

	contacts, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to export contacts: %w", err)
	}
	for _, c := range contacts {
		backup.Contacts = append(backup.Contacts, ContactBackup{
			FamilyID:  c.FamilyID,
			Email:     c.Email,
			UpdatedAt: c.UpdatedAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d families, %d contacts", len(backup.Families), len(backup.Contacts))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores families from a backup. Every progress document is checked
// against the ledger invariants before anything is written, and the whole import runs in
// one transaction.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupFormatVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	for _, fam := range backup.Families {
		if fam.FamilyID == "" {
			return fmt.Errorf("backup contains a family without id")
		}
		if _, err := progress.Restore(s.catalog, fam.Progress); err != nil {
			return fmt.Errorf("family %s: %w", fam.FamilyID, err)
		}
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		progressRepo := repository.NewProgressRepository(tx)
		contactRepo := repository.NewContactRepository(tx)

		for _, fam := range backup.Families {
			version := fam.Version
			if version < 1 {
				version = 1
			}
			err := progressRepo.ReplaceSnapshot(ctx, models.ProgressSnapshot{
				FamilyID:  fam.FamilyID,
				Document:  fam.Progress,
				Version:   version,
				UpdatedAt: fam.UpdatedAt,
			})
			if err != nil {
				return err
			}
		}
		for _, c := range backup.Contacts {
			if _, err := contactRepo.SetContact(ctx, c.FamilyID, c.Email); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}

	log.Printf("Database import completed: %d families, %d contacts", len(backup.Families), len(backup.Contacts))
	return nil
}
