package threadrepo

import (
	"context"

	"gorm.io/gorm"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/infrastructure/database"
	"jan-server/services/conversation-api/internal/infrastructure/database/dbschema"
	"jan-server/services/conversation-api/internal/infrastructure/database/transaction"
	"jan-server/services/conversation-api/internal/utils/functional"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

type ThreadGormRepository struct {
	db *transaction.Database
}

var _ conversation.ThreadRepository = (*ThreadGormRepository)(nil)

func NewThreadGormRepository(db *transaction.Database) conversation.ThreadRepository {
	return &ThreadGormRepository{db}
}

// Create implements conversation.ThreadRepository.
func (repo *ThreadGormRepository) Create(ctx context.Context, thread *conversation.Thread) error {
	model := dbschema.NewSchemaThread(thread)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return database.TranslateError(ctx, err, "failed to create thread", "e1b74c0d-3f92-4a86-a5e8-7c2d9b0f6a13")
	}
	thread.ID = model.ID
	thread.CreatedAt = model.CreatedAt
	thread.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByPublicID implements conversation.ThreadRepository.
func (repo *ThreadGormRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Thread, error) {
	var model dbschema.Thread
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&model).Error
	if err != nil {
		return nil, database.TranslateError(ctx, err, "thread not found", "5d2a9f6e-b084-4c13-9e7a-1f6c3b8d0e25")
	}
	return model.EtoD(), nil
}

// FindByFilter implements conversation.ThreadRepository.
func (repo *ThreadGormRepository) FindByFilter(ctx context.Context, filter conversation.ThreadFilter, pagination *query.Pagination) ([]*conversation.Thread, error) {
	sql := repo.db.GetTx(ctx).WithContext(ctx)
	if filter.PublicID != nil {
		sql = sql.Where("public_id = ?", *filter.PublicID)
	}
	if filter.ConversationID != nil {
		sql = sql.Where("conversation_id = ?", *filter.ConversationID)
	}
	if filter.ParentThreadID != nil {
		sql = sql.Where("parent_thread_id = ?", *filter.ParentThreadID)
	}
	sql = sql.Order("created_at ASC").Order("id ASC")
	if pagination != nil {
		if pagination.Limit > 0 {
			sql = sql.Limit(pagination.Limit)
		}
		if pagination.Offset > 0 {
			sql = sql.Offset(pagination.Offset)
		}
	}

	var rows []*dbschema.Thread
	if err := sql.Find(&rows).Error; err != nil {
		return nil, database.TranslateError(ctx, err, "failed to find threads", "8c6f0b3a-2e71-4d95-b1a4-d09e7c5f3b82")
	}
	return functional.Map(rows, func(item *dbschema.Thread) *conversation.Thread {
		return item.EtoD()
	}), nil
}

// Update implements conversation.ThreadRepository.
func (repo *ThreadGormRepository) Update(ctx context.Context, thread *conversation.Thread) error {
	model := dbschema.NewSchemaThread(thread)
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Thread{}).
		Where("public_id = ?", thread.PublicID).
		Select("*").
		Omit("id", "created_at", "public_id", "conversation_id").
		Updates(model)
	if result.Error != nil {
		return database.TranslateError(ctx, result.Error, "failed to update thread", "f3a81d5c-06e4-4b72-9c0d-a7e25b1f8d36")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "thread not found", nil, "0b7d4e29-c15a-4f80-a3e6-9d2f8c1b5e74")
	}
	return nil
}

// Delete implements conversation.ThreadRepository.
func (repo *ThreadGormRepository) Delete(ctx context.Context, publicID string) error {
	return repo.delete(ctx, repo.db.GetTx(ctx).WithContext(ctx).Where("public_id = ?", publicID))
}

// DeleteByConversationID implements conversation.ThreadRepository.
func (repo *ThreadGormRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	return repo.delete(ctx, repo.db.GetTx(ctx).WithContext(ctx).Where("conversation_id = ?", conversationID))
}

func (repo *ThreadGormRepository) delete(ctx context.Context, sql *gorm.DB) error {
	if err := sql.Delete(&dbschema.Thread{}).Error; err != nil {
		return database.TranslateError(ctx, err, "failed to delete thread", "72e9c1a6-4b3d-4e08-8f5a-c6d0b9e3a217")
	}
	return nil
}
