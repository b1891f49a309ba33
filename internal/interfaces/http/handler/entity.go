package handler

import (
	"context"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	appstore "github.com/store/backend/internal/application/store"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/interfaces/http/dto"
)

// EntityService is the subset of the store service a CRUD handler drives
type EntityService[T any] interface {
	Create(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, entity *T) (*T, error)
	Delete(ctx context.Context, id int64) error
	FindOne(ctx context.Context, id int64) (*T, error)
	FindAll(ctx context.Context, page shared.PageRequest) (shared.Page[T], error)
	Search(ctx context.Context, query string, page shared.PageRequest) (shared.Page[T], error)
}

// An unknown id on update is a bad request, not a missing resource
var updateStatus = map[string]int{shared.CodeNotFound: http.StatusBadRequest}

// EntityHandler exposes CRUD and search endpoints for one entity type
type EntityHandler[T any, P shared.Record[T]] struct {
	BaseHandler
	resource string
	service  EntityService[T]
	basePath string
}

// NewEntityHandler creates a handler mounted under the given path segment,
// e.g. "product-categories".
func NewEntityHandler[T any, P shared.Record[T]](resource string, service EntityService[T]) *EntityHandler[T, P] {
	return &EntityHandler[T, P]{
		resource: resource,
		service:  service,
	}
}

// Resource returns the path segment of the entity
func (h *EntityHandler[T, P]) Resource() string {
	return h.resource
}

// RegisterRoutes mounts the endpoints on the /api group
func (h *EntityHandler[T, P]) RegisterRoutes(api *gin.RouterGroup) {
	h.basePath = path.Join(api.BasePath(), h.resource)

	g := api.Group("/" + h.resource)
	g.POST("", h.Create)
	g.PUT("", h.Update)
	g.PUT("/:id", h.Update)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)

	api.GET("/_search/"+h.resource, h.Search)
}

// Create handles POST /api/{entities}
//
//	@ID				createRecord
//	@Summary		Create a record
//	@Description	Persists a new record and mirrors it into the search index. References are given as {"id": n}.
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			entities	path		string	true	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Param			request		body		object	true	"Record without id"
//	@Success		201			{object}	object
//	@Header			201			{string}	Location	"/api/{entities}/{id}"
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/{entities} [post]
func (h *EntityHandler[T, P]) Create(c *gin.Context) {
	entity := new(T)
	if !h.bindJSON(c, entity) {
		return
	}
	if !P(entity).IsNew() {
		h.HandleError(c, shared.ErrIdentityAssigned)
		return
	}

	saved, err := h.service.Create(c.Request.Context(), entity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, h.basePath+"/"+strconv.FormatInt(P(saved).GetID(), 10), saved)
}

// Update handles PUT /api/{entities} and PUT /api/{entities}/{id}. When the
// path carries an id it must match the body.
//
//	@ID				updateRecord
//	@Summary		Replace a record
//	@Description	Replaces every field of an existing record. PUT /api/{entities}/{id} is accepted too; its id must match the body.
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			entities	path		string	true	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Param			request		body		object	true	"Record with id"
//	@Success		200			{object}	object
//	@Failure		400			{object}	dto.ErrorResponse	"Missing or unknown id, or invalid record"
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/{entities} [put]
func (h *EntityHandler[T, P]) Update(c *gin.Context) {
	entity := new(T)
	if !h.bindJSON(c, entity) {
		return
	}
	id := P(entity).GetID()
	if id == 0 {
		h.HandleError(c, shared.ErrIdentityMissing)
		return
	}
	if c.Param("id") != "" && c.Param("id") != strconv.FormatInt(id, 10) {
		h.Error(c, http.StatusBadRequest, shared.CodeInvalidInput, "Path id does not match the body id")
		return
	}

	saved, err := h.service.Update(c.Request.Context(), entity)
	if err != nil {
		h.handleErrorWithStatus(c, err, updateStatus)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// List handles GET /api/{entities}
//
//	@ID				listRecords
//	@Summary		List records
//	@Description	Returns one page of records with X-Total-Count and Link headers
//	@Tags			entities
//	@Produce		json
//	@Param			entities	path		string	true	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Param			page		query		int		false	"Zero-based page"	default(0)
//	@Param			size		query		int		false	"Page size"			default(20)	maximum(2000)
//	@Param			sort		query		string	false	"field,asc|desc"
//	@Success		200			{array}		object
//	@Header			200			{integer}	X-Total-Count	"Total number of records"
//	@Header			200			{string}	Link			"first, prev, next and last pages"
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/{entities} [get]
func (h *EntityHandler[T, P]) List(c *gin.Context) {
	var query dto.PageQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.service.FindAll(c.Request.Context(), query.ToPageRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Get handles GET /api/{entities}/{id}
//
//	@ID				getRecord
//	@Summary		Get a record
//	@Tags			entities
//	@Produce		json
//	@Param			entities	path		string	true	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Param			id			path		int		true	"Record ID"
//	@Success		200			{object}	object
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/{entities}/{id} [get]
func (h *EntityHandler[T, P]) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	entity, err := h.service.FindOne(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Delete handles DELETE /api/{entities}/{id}. Deleting a missing record
// succeeds.
//
//	@ID				deleteRecord
//	@Summary		Delete a record
//	@Description	Removes the record and its search document. References to it are cleared.
//	@Tags			entities
//	@Param			entities	path		string	true	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Param			id			path	int		true	"Record ID"
//	@Success		204
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/{entities}/{id} [delete]
func (h *EntityHandler[T, P]) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Search handles GET /api/_search/{entities}
//
//	@ID				searchRecords
//	@Summary		Search records
//	@Description	Query-string search over the search index, e.g. "name:shirt OR tee"
//	@Tags			entities
//	@Produce		json
//	@Param			entities	path		string	true	"Entity collection"	Enums(product-categories, products, product-orders, order-items, invoices, shipments)
//	@Param			query		query		string	true	"Search query"
//	@Param			page		query		int		false	"Zero-based page"	default(0)
//	@Param			size		query		int		false	"Page size"			default(20)
//	@Success		200			{array}		object
//	@Header			200			{integer}	X-Total-Count	"Total number of hits"
//	@Failure		400			{object}	dto.ErrorResponse	"Missing query or result window exceeded"
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/_search/{entities} [get]
func (h *EntityHandler[T, P]) Search(c *gin.Context) {
	var query dto.SearchQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.service.Search(c.Request.Context(), query.Query, query.ToPageRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Registrar is a handler that mounts itself on the /api group
type Registrar interface {
	RegisterRoutes(api *gin.RouterGroup)
	Resource() string
}

// EntityHandlers creates the CRUD handler of every store entity
func EntityHandlers(s *appstore.Services) []Registrar {
	return []Registrar{
		NewEntityHandler[store.ProductCategory]("product-categories", s.Categories),
		NewEntityHandler[store.Product]("products", s.Products),
		NewEntityHandler[store.ProductOrder]("product-orders", s.Orders),
		NewEntityHandler[store.OrderItem]("order-items", s.OrderItems),
		NewEntityHandler[store.Invoice]("invoices", s.Invoices),
		NewEntityHandler[store.Shipment]("shipments", s.Shipments),
	}
}
