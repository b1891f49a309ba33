package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/interfaces/http/dto"
)

// ProductImageService stores and serves product images
type ProductImageService interface {
	Upload(ctx context.Context, productID int64, data []byte, contentType string) (*store.Product, error)
	DownloadURL(ctx context.Context, productID int64) (string, time.Time, error)
}

// ProductImageHandler handles /api/products/{id}/image
type ProductImageHandler struct {
	BaseHandler
	service ProductImageService
}

// NewProductImageHandler creates a new product image handler
func NewProductImageHandler(service ProductImageService) *ProductImageHandler {
	return &ProductImageHandler{service: service}
}

// RegisterRoutes mounts the image endpoints on the /api group
func (h *ProductImageHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.PUT("/products/:id/image", h.Upload)
	api.GET("/products/:id/image", h.Download)
}

// Upload stores the raw request body as the product image and returns the
// updated product.
//
//	@ID				uploadProductImage
//	@Summary		Upload a product image
//	@Tags			products
//	@Accept			image/png,image/jpeg,image/gif,image/webp
//	@Produce		json
//	@Param			id		path		int		true	"Product ID"
//	@Param			image	body		string	true	"Raw image bytes"
//	@Success		200		{object}	store.Product
//	@Failure		400		{object}	dto.ErrorResponse	"Unsupported content type or empty body"
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		413		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/products/{id}/image [put]
func (h *ProductImageHandler) Upload(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	product, err := h.service.Upload(c.Request.Context(), id, data, c.ContentType())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Download redirects to a presigned URL of the image. With ?redirect=false
// the URL is returned as JSON instead.
//
//	@ID				getProductImage
//	@Summary		Product image URL
//	@Tags			products
//	@Produce		json
//	@Param			id			path		int		true	"Product ID"
//	@Param			redirect	query		bool	false	"Redirect to the URL"	default(true)
//	@Success		200			{object}	dto.ImageURLResponse
//	@Success		302
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse	"No such product or the product has no image"
//	@Security		BearerAuth
//	@Router			/api/products/{id}/image [get]
func (h *ProductImageHandler) Download(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	url, expiresAt, err := h.service.DownloadURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if c.Query("redirect") == "false" {
		c.JSON(http.StatusOK, dto.ImageURLResponse{
			URL:       url,
			ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		})
		return
	}
	c.Redirect(http.StatusFound, url)
}
