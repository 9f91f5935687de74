package requests

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// GetPaginationFromQuery reads limit and offset. A missing limit is left at zero so
// the service default applies.
func GetPaginationFromQuery(reqCtx *gin.Context) (query.Pagination, error) {
	var pagination query.Pagination

	if limitStr := reqCtx.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return query.Pagination{}, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid limit number", err, "8e1c4f27-3a90-4d6b-b5e2-0f7a9c3d1b48")
		}
		pagination.Limit = limit
	}

	if offsetStr := reqCtx.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return query.Pagination{}, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid offset number", err, "d4a07b5e-91c2-4f38-8e6d-2b5f0c9a7e13")
		}
		pagination.Offset = offset
	}

	return pagination, nil
}
