package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appstore "github.com/store/backend/internal/application/store"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Reindexer rebuilds search indexes
type Reindexer interface {
	Indexer(name string) (appstore.Indexer, bool)
	ReindexAll(ctx context.Context) ([]appstore.ReindexResult, error)
}

// SyncQueue exposes the search sync queue to operators
type SyncQueue interface {
	Stats(ctx context.Context) (map[shared.SyncStatus]int64, error)
	RetryDead(ctx context.Context) (int64, error)
	Dead(ctx context.Context, page shared.PageRequest) ([]*shared.SearchSyncTask, int64, error)
}

// resourceIndexes maps REST path segments to index names
var resourceIndexes = map[string]string{
	"product-categories": "productcategory",
	"products":           "product",
	"product-orders":     "productorder",
	"order-items":        "orderitem",
	"invoices":           "invoice",
	"shipments":          "shipment",
}

// SyncTaskResponse is a dead search sync task as shown to operators
type SyncTaskResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Operation  string `json:"operation"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

// AdminHandler handles search maintenance endpoints under /api/admin
type AdminHandler struct {
	BaseHandler
	indexes Reindexer
	queue   SyncQueue
	logger  *zap.Logger
}

// NewAdminHandler creates a new admin handler. queue may be nil when search
// sync is disabled.
func NewAdminHandler(indexes Reindexer, queue SyncQueue, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		indexes: indexes,
		queue:   queue,
		logger:  logger,
	}
}

// RegisterRoutes mounts the endpoints on the admin group
func (h *AdminHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/reindex", h.Reindex)
	admin.GET("/search-sync", h.SyncStats)
	admin.GET("/search-sync/dead", h.DeadTasks)
	admin.POST("/search-sync/retry-dead", h.RetryDead)
}

// Reindex rebuilds one index, or all of them without ?entity=
//
//	@ID				reindex
//	@Summary		Rebuild search indexes
//	@Description	Drops and refills one index from the database, or every index when entity is omitted. The response is an array in that case.
//	@Tags			admin
//	@Produce		json
//	@Param			entity	query		string	false	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Success		200		{object}	dto.ReindexResponse
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		403		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/admin/reindex [post]
func (h *AdminHandler) Reindex(c *gin.Context) {
	var query dto.ReindexQuery
	if !h.bindQuery(c, &query) {
		return
	}
	ctx := c.Request.Context()

	if query.Entity == "" {
		results, err := h.indexes.ReindexAll(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resp := make([]dto.ReindexResponse, len(results))
		for i, r := range results {
			resp[i] = dto.ReindexResponse{Entity: r.Entity, Indexed: r.Indexed}
		}
		h.logger.Info("Rebuilt all search indexes", zap.Int("indexes", len(resp)))
		c.JSON(http.StatusOK, resp)
		return
	}

	name, ok := resourceIndexes[query.Entity]
	if !ok {
		name = query.Entity
	}
	indexer, ok := h.indexes.Indexer(name)
	if !ok {
		h.BadRequest(c, "Unknown entity: "+query.Entity)
		return
	}

	n, err := indexer.Reindex(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("Rebuilt search index", zap.String("entity", name), zap.Int64("indexed", n))
	c.JSON(http.StatusOK, dto.ReindexResponse{Entity: name, Indexed: n})
}

// SyncStats counts search sync tasks by status
//
//	@ID				getSearchSyncStats
//	@Summary		Search sync queue counts
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	dto.SyncStatsResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		403	{object}	dto.ErrorResponse
//	@Failure		503	{object}	dto.ErrorResponse	"Search sync is disabled"
//	@Security		BearerAuth
//	@Router			/api/admin/search-sync [get]
func (h *AdminHandler) SyncStats(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	counts, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSyncStatsResponse(counts))
}

// DeadTasks lists tasks that ran out of retries
//
//	@ID				listDeadSearchSyncTasks
//	@Summary		Dead search sync tasks
//	@Tags			admin
//	@Produce		json
//	@Param			page	query		int	false	"Zero-based page"	default(0)
//	@Param			size	query		int	false	"Page size"			default(20)
//	@Success		200		{array}		SyncTaskResponse
//	@Header			200		{integer}	X-Total-Count	"Total number of dead tasks"
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		403		{object}	dto.ErrorResponse
//	@Failure		503		{object}	dto.ErrorResponse	"Search sync is disabled"
//	@Security		BearerAuth
//	@Router			/api/admin/search-sync/dead [get]
func (h *AdminHandler) DeadTasks(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	var query dto.PageQuery
	if !h.bindQuery(c, &query) {
		return
	}
	req := query.ToPageRequest()

	tasks, total, err := h.queue.Dead(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]SyncTaskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = SyncTaskResponse{
			ID:         t.ID.String(),
			EntityType: t.EntityType,
			EntityID:   t.EntityID,
			Operation:  string(t.Operation),
			RetryCount: t.RetryCount,
			LastError:  t.LastError,
			UpdatedAt:  t.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	writePage(c, shared.NewPage(items, total, req))
}

// RetryDead moves dead tasks back to pending
//
//	@ID				retryDeadSearchSyncTasks
//	@Summary		Re-queue dead search sync tasks
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	dto.RetryDeadResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		403	{object}	dto.ErrorResponse
//	@Failure		503	{object}	dto.ErrorResponse	"Search sync is disabled"
//	@Security		BearerAuth
//	@Router			/api/admin/search-sync/retry-dead [post]
func (h *AdminHandler) RetryDead(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	n, err := h.queue.RetryDead(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("Re-queued dead search sync tasks", zap.Int64("requeued", n))
	c.JSON(http.StatusOK, dto.RetryDeadResponse{Requeued: n})
}

func (h *AdminHandler) requireQueue(c *gin.Context) bool {
	if h.queue == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Search sync is disabled")
		return false
	}
	return true
}
