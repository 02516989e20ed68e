package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parlor/backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_ForConversation(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(&fakePersister{}, discardLogger())
	room, other := uuid.New(), uuid.New()
	at := time.Now()

	first := &models.Message{ID: uuid.New(), ConversationID: room, Content: "hi", CreatedAt: at}
	second := &models.Message{ID: uuid.New(), ConversationID: room, Content: "there", CreatedAt: at.Add(time.Second)}
	elsewhere := &models.Message{ID: uuid.New(), ConversationID: other, Content: "psst", CreatedAt: at}
	for _, m := range []*models.Message{first, elsewhere, second} {
		req.NoError(repo.Add(m))
	}

	req.Equal([]*models.Message{first, second}, repo.ForConversation(room))
	req.Empty(repo.ForConversation(uuid.New()))
	req.Equal(3, repo.Count())

	req.NoError(repo.DeleteAll())
	req.Equal(0, repo.Count())
}

func TestMessageRepository_PersistenceFailure(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(&fakePersister{fail: true}, discardLogger())

	err := repo.Add(&models.Message{ID: uuid.New(), ConversationID: uuid.New()})
	req.ErrorIs(err, models.ErrPersistence)
	req.Equal(0, repo.Count())
}
