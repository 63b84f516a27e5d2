// Package worker consumes preview tasks from the queue and renders previews of stored images
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageStore/internal/imageproc"
	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/UnendingLoop/ImageStore/internal/service"
	"github.com/disintegration/imaging"
	kafkago "github.com/segmentio/kafka-go"
	_ "golang.org/x/image/webp"
)

type ImageWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Image) error
	Get(ctx context.Context, id string) (*model.Image, error)
}

// Committer - подтверждение обработанного сообщения в очереди
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	storage       service.ImageStorage
	service       ImageWorkerService
	queue         <-chan kafkago.Message
	consumer      Committer
	previewPrefix string
}

func NewWorkerInstance(strg service.ImageStorage, svc ImageWorkerService, q <-chan kafkago.Message, cons Committer, previewPrefix string) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons, previewPrefix: previewPrefix}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil &&
				!errors.Is(err, model.ErrImageNotFound) && !errors.Is(err, model.ErrIncorrectID) {
				log.Printf("Task %s failed: %v", id, err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch image info %q from DB: %w", id, err)
	}

	switch task.Status {
	case model.StatusDone, model.StatusSkipped:
		return nil
	case model.StatusInProgress:
		// брошенную упавшим воркером задачу перезапускаем
		if !task.Orphaned(time.Now().UTC()) {
			return fmt.Errorf("task %q already in progress", id)
		}
		log.Printf("Task %s stuck in progress, restarting it", id)
	}

	if rule, ok := task.ImageType.Rule(); ok && rule.Preview == model.PreviewNone {
		if err := w.service.UpdateStatus(ctx, id, model.StatusSkipped); err != nil {
			return fmt.Errorf("failed to mark task %q as skipped in DB: %w", id, err)
		}
		return nil
	}

	// превью уже лежит, но статус не обновился
	if task.PreviewKey != "" && strings.HasPrefix(task.PreviewKey, w.previewPrefix) {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done task in DB: %w", err)
		}
		return nil
	}

	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of task %q to `in_progress` in DB: %w", id, err)
	}

	if pErr := w.processTask(ctx, task); pErr != nil {
		if uErr := w.service.UpdateStatus(ctx, id, model.StatusFailed); uErr != nil {
			return fmt.Errorf("failed to set status of task %q to `failed` in DB: %w \nAFTER\n error while processing task: %w", id, uErr, pErr)
		}
		return fmt.Errorf("failed to process task %q: %w", id, pErr)
	}

	return nil
}

func (w *Worker) processTask(ctx context.Context, task *model.Image) error {
	rule, ok := task.ImageType.Rule()
	if !ok {
		return model.ErrInvalidImageType
	}
	if rule.Preview == model.PreviewNone {
		return model.ErrPreviewNotNeeded
	}

	src, _, err := w.storage.Get(ctx, task.ObjectKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch image from storage: %w", err)
	}

	data, format, err := validateImgFormat(src)
	if err != nil {
		return fmt.Errorf("worker failed to validate image format: %w", err)
	}

	result, size, err := imageproc.Preview(data, rule, format)
	if err != nil {
		return fmt.Errorf("worker failed to build preview: %w", err)
	}

	resCType := model.GetCType[format]
	resKey := w.previewKey(task.ObjectKey, resCType)
	if err := w.storage.Put(ctx, resKey, size, resCType, result); err != nil {
		return fmt.Errorf("worker failed to put preview to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.PreviewKey = resKey

	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func (w *Worker) previewKey(objectKey, cType string) string {
	base := strings.TrimSuffix(objectKey, path.Ext(objectKey))
	return w.previewPrefix + base + model.GetImageFileExt[cType]
}

// validateImgFormat reads the whole object and picks the encoding format of its preview.
// WEBP has no encoder in imaging, such previews are written as PNG.
func validateImgFormat(r io.ReadCloser) (io.Reader, imaging.Format, error) {
	if r == nil {
		return nil, -1, errors.New("nil-reader provided")
	}
	defer closeFileFlow(r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, -1, err
	}

	_, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, -1, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	var format imaging.Format
	switch f {
	case "webp":
		format = imaging.PNG
	default:
		format, err = imaging.FormatFromExtension(f)
		if err != nil {
			return nil, -1, model.ErrUnsupportedFormat
		}
	}

	switch format {
	case imaging.PNG, imaging.JPEG, imaging.GIF:
	default:
		return nil, -1, model.ErrUnsupportedFormat
	}

	return bytes.NewReader(data), format, nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
