package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/parlor/backend/config"
	"github.com/parlor/backend/internal/database"
	"github.com/parlor/backend/internal/logging"
	"github.com/parlor/backend/internal/repository"
	"github.com/parlor/backend/internal/storage"
)

const usage = "usage: migrate [up|status|reset-conversations]"

var errNeedsPostgres = errors.New("command requires STORAGE_DRIVER=postgres")

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.load.failed", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.Log.Level)

	if err := run(os.Args[1], cfg, log); err != nil {
		log.Error("migrate.failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(command string, cfg *config.Config, log *slog.Logger) error {
	switch command {
	case "up":
		if cfg.Storage.Driver != config.StoragePostgres {
			return errNeedsPostgres
		}
		db, err := database.NewPostgresDB(cfg.GetDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		return database.RunMigrations(db.DB, log)

	case "status":
		if cfg.Storage.Driver != config.StoragePostgres {
			return errNeedsPostgres
		}
		db, err := database.NewPostgresDB(cfg.GetDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		applied, err := database.AppliedMigrations(db.DB)
		if err != nil {
			return err
		}
		printStatus(os.Stdout, applied, database.LatestVersion())
		return nil

	case "reset-conversations":
		return resetConversations(cfg, log)
	}

	fmt.Println(usage)
	return fmt.Errorf("unknown command %q", command)
}

func printStatus(w io.Writer, applied []database.AppliedMigration, latest int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Version", "Applied at"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, m := range applied {
		table.Append([]string{strconv.Itoa(m.Version), m.AppliedAt.Format(time.RFC3339)})
	}
	table.Render()

	current := 0
	if len(applied) > 0 {
		current = applied[len(applied)-1].Version
	}
	fmt.Fprintf(w, "schema at version %d of %d\n", current, latest)
}

// resetConversations wipes every conversation and message from the configured
// store. Users and profiles are kept.
func resetConversations(cfg *config.Config, log *slog.Logger) error {
	store, err := storage.Open(cfg, true, log)
	if err != nil {
		return err
	}
	defer store.Close()

	convRepo := repository.NewConversationRepository(store.Conversations, log)
	msgRepo := repository.NewMessageRepository(store.Messages, log)
	if err := convRepo.Load(); err != nil {
		return err
	}
	if err := msgRepo.Load(); err != nil {
		return err
	}

	if err := msgRepo.DeleteAll(); err != nil {
		return err
	}
	if err := convRepo.DeleteAll(); err != nil {
		return err
	}
	log.Info("migrate.reset_conversations", "driver", cfg.Storage.Driver)
	return nil
}
