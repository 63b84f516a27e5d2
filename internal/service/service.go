// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/UnendingLoop/ImageStore/internal/mwlogger"
	"github.com/UnendingLoop/ImageStore/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type ImageService struct {
	repo          repository.ImageRepo
	publisher     TaskPublisher
	storage       ImageStorage
	publicBaseURL string
}

func NewImageService(repo repository.ImageRepo, pub TaskPublisher, strg ImageStorage, publicBaseURL string) *ImageService {
	return &ImageService{
		repo:          repo,
		publisher:     pub,
		storage:       strg,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - контракт для работы с хранилищем
type ImageStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// uploadPublishStrategy - одна попытка в рамках запроса, остальное доделает ReviveOrphans
var uploadPublishStrategy = retry.Strategy{
	Attempts: 1,
	Backoff:  1,
}

// SaveFiles stores every file under imagePath and returns their URLs in input order.
// Either all files are stored or none.
func (c ImageService) SaveFiles(ctx context.Context, files []model.UploadFile, imagePath string, imageType model.ImageType) (*model.SavedImageData, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	rule, ok := imageType.Rule()
	if !ok {
		return nil, model.ErrInvalidImageType
	}

	dir, err := model.NormalizePath(imagePath)
	if err != nil {
		return nil, err
	}

	cTypes, err := validateFiles(files, rule)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := make([]*model.Image, 0, len(files))

	for i, f := range files {
		img := &model.Image{
			UID:          uuid.New(),
			ImagePath:    dir,
			ImageType:    imageType,
			ContentType:  cTypes[i],
			Size:         f.Size,
			OriginalName: f.Name,
			Status:       model.StatusCreated,
			CreatedAt:    &now,
		}
		img.ObjectKey = dir + "/" + img.UID.String() + model.GetImageFileExt[img.ContentType]
		if rule.Preview == model.PreviewNone {
			img.Status = model.StatusSkipped
		}

		if err := c.storage.Put(ctx, img.ObjectKey, f.Size, img.ContentType, f.File); err != nil {
			logger.Error().Err(err).Str("key", img.ObjectKey).Msg("Failed to save image in Storage")
			c.rollback(ctx, stored)
			return nil, model.ErrCommon500
		}

		if err := c.repo.Create(ctx, img); err != nil {
			logger.Error().Err(err).Str("key", img.ObjectKey).Msg("Failed to create image in DB")
			c.removeObject(ctx, img.ObjectKey)
			c.rollback(ctx, stored)
			return nil, model.ErrCommon500
		}
		stored = append(stored, img)
	}

	res := &model.SavedImageData{ImageURLs: make([]string, 0, len(stored))}
	queueDown := false
	for _, img := range stored {
		res.ImageURLs = append(res.ImageURLs, c.publicURL(img.ObjectKey))

		if img.Status != model.StatusCreated || queueDown {
			continue
		}
		// при неудаче задачи подхватит ReviveOrphans
		if err := c.publisher.SendWithRetry(ctx, uploadPublishStrategy, []byte(img.UID.String()), nil); err != nil {
			logger.Warn().Err(err).Msg(fmt.Sprintf("Failed to publish image %q to task-queue, leaving the rest to orphan reviver", img.UID))
			queueDown = true
		}
	}

	return res, nil
}

// DeleteFile removes the image addressed by an object key or by a URL returned from SaveFiles
func (c ImageService) DeleteFile(ctx context.Context, imagePath string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	key, err := model.KeyFromURL(imagePath, c.publicBaseURL)
	if err != nil {
		return err
	}

	img, err := c.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return model.ErrImageNotFound // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch image %q from DB", key))
		return model.ErrCommon500
	}

	// строка удаляется последней: пока она есть, повторный запрос доудалит объект
	if err := c.storage.Delete(ctx, img.ObjectKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete image from Storage")
		return model.ErrCommon500
	}
	if img.PreviewKey != "" {
		c.removeObject(ctx, img.PreviewKey)
	}

	if err := c.repo.Delete(ctx, img.UID.String()); err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return model.ErrImageNotFound
		}
		logger.Error().Err(err).Msg("Failed to delete image from DB")
		return model.ErrCommon500
	}

	return nil
}

func (c ImageService) Get(ctx context.Context, id string) (*model.Image, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return nil, model.ErrImageNotFound
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch image %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ImageService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectQuery
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrImageNotFound):
			return model.ErrImageNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update image status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c ImageService) SaveResult(ctx context.Context, input *model.Image) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrImageNotFound):
			return model.ErrImageNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save preview result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

// ReviveOrphans re-queues images whose preview got stuck
func (c ImageService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
}

func (c ImageService) publicURL(key string) string {
	if c.publicBaseURL == "" {
		return key
	}
	return c.publicBaseURL + "/" + key
}

// rollback - best effort, исходная ошибка важнее
func (c ImageService) rollback(ctx context.Context, stored []*model.Image) {
	logger := mwlogger.LoggerFromContext(ctx)
	for _, img := range stored {
		if err := c.repo.Delete(ctx, img.UID.String()); err != nil {
			logger.Error().Err(err).Msg(fmt.Sprintf("Rollback: failed to delete image %q from DB", img.UID))
		}
		c.removeObject(ctx, img.ObjectKey)
	}
}

func (c ImageService) removeObject(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, key); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg(fmt.Sprintf("Failed to delete object %q from Storage", key))
	}
}
