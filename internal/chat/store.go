package chat

import (
	"context"

	"github.com/NatalyaAtyukova/chat-service/internal/database"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// DBStore backs the service with the pgx persistence layer.
type DBStore struct{}

func (DBStore) InsertMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	return database.InsertMessage(ctx, senderID, receiverID, content)
}
