package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// TranslateError maps gorm errors onto platform errors. Missing rows become NotFound,
// everything else a database error.
func TranslateError(ctx context.Context, err error, message string, errorCode string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, message, err, errorCode)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err, errorCode)
}
