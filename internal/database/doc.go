// Package database provides the data access layer for the daemon.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── generations/     # Offline cache generation registry
//	├── downloads/       # Deferred download tasks
//	└── settings/        # Key/value settings (preference snapshot, connectivity)
//
// Cache entries themselves are owned by the cachestore package, which
// shares the same *gorm.DB.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./manga-slayer.db")
//
//	generationsRepo := generations.NewRepository(db.DB)
//	downloadsRepo := downloads.NewRepository(db.DB)
//
//	active, err := generationsRepo.GetActive(ctx)
//	pending, err := downloadsRepo.ListPending(ctx)
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add compile-time interface check in internal/interfaces
package database
