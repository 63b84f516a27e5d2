package main

import (
	"context"

	"github.com/UnendingLoop/ImageStore/internal/model"
)

type ImageAPIService interface {
	SaveFiles(ctx context.Context, files []model.UploadFile, imagePath string, imageType model.ImageType) (*model.SavedImageData, error)
	DeleteFile(ctx context.Context, imagePath string) error
	ReviveOrphans(ctx context.Context, limit int)
}
