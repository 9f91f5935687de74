package conversationrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/infrastructure/database"
	"jan-server/services/conversation-api/internal/infrastructure/database/dbschema"
	"jan-server/services/conversation-api/internal/infrastructure/database/transaction"
	"jan-server/services/conversation-api/internal/utils/functional"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

type ConversationGormRepository struct {
	db *transaction.Database
}

var _ conversation.ConversationRepository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *transaction.Database) conversation.ConversationRepository {
	return &ConversationGormRepository{db}
}

// Create implements conversation.ConversationRepository.
func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return database.TranslateError(ctx, err, "failed to create conversation", "6a0f2d91-3c4e-4b87-a5d1-9e2c7f0b3a64")
	}
	conv.ID = model.ID
	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByPublicID implements conversation.ConversationRepository.
func (repo *ConversationGormRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	var model dbschema.Conversation
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&model).Error
	if err != nil {
		return nil, database.TranslateError(ctx, err, "conversation not found", "c41d7e08-9b2a-4f63-8e15-0a6d3f9c2b71")
	}
	return model.EtoD(), nil
}

// FindByFilter implements conversation.ConversationRepository.
func (repo *ConversationGormRepository) FindByFilter(ctx context.Context, filter conversation.ConversationFilter, pagination *query.Pagination) ([]*conversation.Conversation, error) {
	sql := repo.applyFilter(repo.db.GetTx(ctx).WithContext(ctx), filter).
		Order("updated_at DESC").
		Order("id DESC")
	sql = applyPagination(sql, pagination)

	var rows []*dbschema.Conversation
	if err := sql.Find(&rows).Error; err != nil {
		return nil, database.TranslateError(ctx, err, "failed to find conversations", "0e93b5a2-7d1c-4f48-b6e0-c2a9f5d8e137")
	}

	result := functional.Map(rows, func(item *dbschema.Conversation) *conversation.Conversation {
		return item.EtoD()
	})
	return result, nil
}

// Count implements conversation.ConversationRepository.
func (repo *ConversationGormRepository) Count(ctx context.Context, filter conversation.ConversationFilter) (int64, error) {
	var count int64
	sql := repo.applyFilter(repo.db.GetTx(ctx).WithContext(ctx).Model(&dbschema.Conversation{}), filter)
	if err := sql.Count(&count).Error; err != nil {
		return 0, database.TranslateError(ctx, err, "failed to count conversations", "f7c2a4e9-1b06-4d3a-98e5-6d0b2c7f1a85")
	}
	return count, nil
}

// Update implements conversation.ConversationRepository. Every column except the
// key and creation time is written, zero values included.
func (repo *ConversationGormRepository) Update(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("public_id = ?", conv.PublicID).
		Select("*").
		Omit("id", "created_at", "public_id").
		Updates(model)
	if result.Error != nil {
		return database.TranslateError(ctx, result.Error, "failed to update conversation", "2b8e6f13-a0d5-4c79-b3e2-8f1a4d6c0e97")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "93d0a6c5-4e27-4b18-a9f3-1c5e8b2d7f40")
	}
	return nil
}

// Touch implements conversation.ConversationRepository.
func (repo *ConversationGormRepository) Touch(ctx context.Context, publicID string, at time.Time) error {
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("public_id = ?", publicID).
		UpdateColumn("updated_at", at)
	if result.Error != nil {
		return database.TranslateError(ctx, result.Error, "failed to touch conversation", "d86b1f2e-5c09-4a37-bf40-e2a7c3d9f516")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "47e3c9b0-d1a8-4f25-86c4-0b9f2e5a7d13")
	}
	return nil
}

// Delete implements conversation.ConversationRepository.
func (repo *ConversationGormRepository) Delete(ctx context.Context, publicID string) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("public_id = ?", publicID).
		Delete(&dbschema.Conversation{}).Error
	if err != nil {
		return database.TranslateError(ctx, err, "failed to delete conversation", "a5f0e8c3-62b9-4d14-b7a1-3e9d0c6f2b58")
	}
	return nil
}

func (repo *ConversationGormRepository) applyFilter(sql *gorm.DB, filter conversation.ConversationFilter) *gorm.DB {
	if filter.PublicID != nil {
		sql = sql.Where("public_id = ?", *filter.PublicID)
	}
	if filter.OwnerID != nil {
		sql = sql.Where("owner_id = ?", *filter.OwnerID)
	}
	return sql
}

func applyPagination(sql *gorm.DB, pagination *query.Pagination) *gorm.DB {
	if pagination == nil {
		return sql
	}
	if pagination.Limit > 0 {
		sql = sql.Limit(pagination.Limit)
	}
	if pagination.Offset > 0 {
		sql = sql.Offset(pagination.Offset)
	}
	return sql
}
