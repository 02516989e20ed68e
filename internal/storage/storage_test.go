package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlor/backend/config"
	"github.com/parlor/backend/internal/embedded"
	"github.com/parlor/backend/internal/storage/memory"
)

func TestOpen(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mem, err := Open(&config.Config{Storage: config.StorageConfig{Driver: config.StorageMemory}}, false, log)
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, mem.Conversations)
	require.Nil(t, mem.DB)
	require.NoError(t, mem.Close())

	bdg, err := Open(&config.Config{Storage: config.StorageConfig{Driver: config.StorageBadger, BadgerPath: t.TempDir()}}, false, log)
	require.NoError(t, err)
	require.IsType(t, &embedded.Store{}, bdg.Messages)
	require.NoError(t, bdg.Close())

	_, err = Open(&config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}, false, log)
	require.Error(t, err)
}
