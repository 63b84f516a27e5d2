package transport

import (
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/ImageStore/internal/model"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrImageNotFound):
		return 404
	case errors.Is(err, model.ErrFileTooLarge):
		return 413
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrInvalidImageType),
		errors.Is(err, model.ErrInvalidPath),
		errors.Is(err, model.ErrNoFiles),
		errors.Is(err, model.ErrTooManyFiles),
		errors.Is(err, model.ErrEmptyFile),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
