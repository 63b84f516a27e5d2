package main

import (
	"context"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/wb-go/wbf/retry"
)

type ImageWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Image) error
	Get(ctx context.Context, id string) (*model.Image, error)
}

// NoopPublisher - ЗАГЛУШКА, воркер задачи в очередь не публикует
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
