// Package storage opens the persister configured by STORAGE_DRIVER.
package storage

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/parlor/backend/config"
	"github.com/parlor/backend/internal/database"
	"github.com/parlor/backend/internal/embedded"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/storage/memory"
)

// Persisters groups the storage behind the repositories.
type Persisters struct {
	Conversations repository.ConversationPersister
	Users         repository.UserPersister
	Messages      repository.MessagePersister
	Profiles      repository.ProfilePersister

	// DB is set for the postgres driver only.
	DB *database.DB

	closer io.Closer
}

func (p *Persisters) Close() error {
	return p.closer.Close()
}

// Open opens the configured driver. The postgres driver runs pending
// migrations when migrate is true.
func Open(cfg *config.Config, migrate bool, log *slog.Logger) (*Persisters, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(cfg.GetDSN())
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.RunMigrations(db.DB, log); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		return &Persisters{
			Conversations: database.NewConversationStore(db),
			Users:         database.NewUserStore(db),
			Messages:      database.NewMessageStore(db),
			Profiles:      database.NewProfileStore(db),
			DB:            db,
			closer:        db,
		}, nil

	case config.StorageBadger:
		store, err := embedded.Open(cfg.Storage.BadgerPath, log)
		if err != nil {
			return nil, err
		}
		return &Persisters{Conversations: store, Users: store, Messages: store, Profiles: store, closer: store}, nil

	case config.StorageMemory:
		log.Warn("storage.memory", "detail", "nothing is persisted across restarts")
		store := memory.NewStore()
		return &Persisters{Conversations: store, Users: store, Messages: store, Profiles: store, closer: store}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
