package repository

import (
	"github.com/google/wire"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/infrastructure/database/repository/conversationrepo"
	"jan-server/services/conversation-api/internal/infrastructure/database/repository/threadrepo"
	"jan-server/services/conversation-api/internal/infrastructure/database/transaction"
)

var RepositoryProvider = wire.NewSet(
	transaction.NewDatabase,
	wire.Bind(new(conversation.Transactor), new(*transaction.Database)),
	conversationrepo.NewConversationGormRepository,
	threadrepo.NewThreadGormRepository,
)
