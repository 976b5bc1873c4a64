package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"coinzy/internal/catalog"
	"coinzy/internal/config"
	"coinzy/internal/database"
	"coinzy/internal/models"
	"coinzy/internal/security"
	"coinzy/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	// Token flags
	tokenFamily := tokenCmd.String("family", "", "Family ID (required)")
	tokenRole := tokenCmd.String("role", string(models.RoleParent), "Role: parent or child")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "Token lifetime")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		db := openDatabase(cfg)
		defer db.Close()
		handleExport(ctx, newBackupService(cfg, db), *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		db := openDatabase(cfg)
		defer db.Close()
		handleImport(ctx, newBackupService(cfg, db), db, *importInput, *importClear)

	case "token":
		tokenCmd.Parse(os.Args[2:])
		if *tokenFamily == "" {
			fmt.Println("Error: -family flag is required")
			tokenCmd.PrintDefaults()
			os.Exit(1)
		}
		handleToken(cfg, *tokenFamily, models.Role(*tokenRole), *tokenTTL)

	default:
		printUsage()
		os.Exit(1)
	}
}

func openDatabase(cfg *config.Config) *database.DB {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func newBackupService(cfg *config.Config, db *database.DB) *service.BackupService {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	return service.NewBackupService(db, cat)
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting database to: %s", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)
	}
}

func handleImport(ctx context.Context, backupService *service.BackupService, db *database.DB, inputPath string, clearData bool) {
	// Check if file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input file does not exist: %s", inputPath)
	}

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Println("Import cancelled")
			return
		}

		log.Println("Clearing existing data...")
		if err := clearDatabase(ctx, db); err != nil {
			log.Fatalf("Failed to clear database: %v", err)
		}
	}

	log.Printf("Importing database from: %s", inputPath)
	if err := backupService.Import(ctx, inputPath); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import complete!")
}

func handleToken(cfg *config.Config, familyID string, role models.Role, ttl time.Duration) {
	if !role.Valid() {
		log.Fatalf("Unknown role %q: use parent or child", role)
	}
	tokens, err := security.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize tokens: %v", err)
	}
	token, err := tokens.Issue(models.AuthContext{FamilyID: familyID, Role: role}, ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func clearDatabase(ctx context.Context, db *database.DB) error {
	tables := []string{
		"family_contacts",
		"progress_snapshots",
	}

	return db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range tables {
			query := fmt.Sprintf("DELETE FROM %s", table)
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Printf("Cleared table: %s", table)
		}
		return nil
	})
}

func printUsage() {
	fmt.Println("Coinzy admin tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  coinzyctl export [options]    Export all family progress to a JSON file")
	fmt.Println("  coinzyctl import [options]    Import family progress from a JSON file")
	fmt.Println("  coinzyctl token [options]     Print a signed API token")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Token Options:")
	fmt.Println("  -family <id>      Family ID (required)")
	fmt.Println("  -role <role>      parent or child (default: parent)")
	fmt.Println("  -ttl <duration>   Token lifetime (default: 24h)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./coinzy.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  JWT_SECRET       Token signing secret (required)")
}
