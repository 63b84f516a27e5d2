package transport

import (
	"context"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/gin-gonic/gin"
)

type mockImageService struct {
	saveFn   func(ctx context.Context, files []model.UploadFile, path string, t model.ImageType) (*model.SavedImageData, error)
	deleteFn func(ctx context.Context, path string) error

	saveCalls   int
	deleteCalls int
}

func (m *mockImageService) SaveFiles(ctx context.Context, files []model.UploadFile, path string, t model.ImageType) (*model.SavedImageData, error) {
	m.saveCalls++
	return m.saveFn(ctx, files, path, t)
}

func (m *mockImageService) DeleteFile(ctx context.Context, path string) error {
	m.deleteCalls++
	return m.deleteFn(ctx, path)
}

func init() {
	gin.SetMode(gin.TestMode)
}
