package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Image errors
var (
	ErrImageRequired    = shared.NewDomainError(shared.CodeInvalidInput, "Image body must not be empty")
	ErrImageContentType = shared.NewDomainError(shared.CodeInvalidInput, "Content-Type must be an image type")
	ErrImageTooLarge    = shared.NewDomainError(CodeImageTooLarge, "Image exceeds the maximum upload size")
	ErrNoImage          = shared.NewDomainError(shared.CodeNotFound, "Product has no image")
)

// CodeImageTooLarge is returned for uploads over the configured limit
const CodeImageTooLarge = "REQUEST_TOO_LARGE"

// ProductImageService stores product images in object storage
type ProductImageService struct {
	products *EntityService[store.Product, *store.Product]
	storage  storage.ObjectStorage
	maxSize  int64
	urlTTL   time.Duration
	logger   *zap.Logger
}

// NewProductImageService creates the service and hooks image removal into
// product deletion. maxSize <= 0 disables the size check.
func NewProductImageService(
	products *EntityService[store.Product, *store.Product],
	objects storage.ObjectStorage,
	maxSize int64,
	urlTTL time.Duration,
	logger *zap.Logger,
) *ProductImageService {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	s := &ProductImageService{
		products: products,
		storage:  objects,
		maxSize:  maxSize,
		urlTTL:   urlTTL,
		logger:   logger.Named("product_image"),
	}
	products.AfterDelete(s.DeleteImage)
	return s
}

// Upload stores the image under the product's key and records it on the
// product. The product is re-mirrored like any other update.
func (s *ProductImageService) Upload(ctx context.Context, productID int64, data []byte, contentType string) (*store.Product, error) {
	if len(data) == 0 {
		return nil, ErrImageRequired
	}
	if !isImageContentType(contentType) {
		return nil, ErrImageContentType
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, ErrImageTooLarge
	}

	product, err := s.products.FindOne(ctx, productID)
	if err != nil {
		return nil, err
	}

	key := product.ImageStorageKey()
	if err := s.storage.Upload(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload image of product %d: %w", productID, err)
	}

	product.AttachImage(key, contentType)
	return s.products.Update(ctx, product)
}

// DownloadURL returns a presigned URL for the product image
func (s *ProductImageService) DownloadURL(ctx context.Context, productID int64) (string, time.Time, error) {
	product, err := s.products.FindOne(ctx, productID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !product.HasImage() {
		return "", time.Time{}, ErrNoImage
	}
	return s.storage.GenerateDownloadURL(ctx, product.ImageKey, s.urlTTL)
}

// DeleteImage removes the stored image of a deleted product. Failures are
// logged only: the product is already gone.
func (s *ProductImageService) DeleteImage(ctx context.Context, productID int64) {
	key := (&store.Product{BaseEntity: shared.BaseEntity{ID: productID}}).ImageStorageKey()
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("failed to delete product image",
			zap.Int64("product_id", productID),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func isImageContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	return strings.HasPrefix(mediaType, "image/") && len(mediaType) > len("image/")
}
