// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/wb-go/wbf/ginext"
)

// form fields of the upload endpoint
const (
	FieldFiles     = "multipartFile"
	FieldImagePath = "imagePath"
	FieldImageType = "imageType"
)

type ImageHandler struct {
	service        ImageService
	maxUploadBytes int64
}

type ImageService interface {
	SaveFiles(ctx context.Context, files []model.UploadFile, imagePath string, imageType model.ImageType) (*model.SavedImageData, error)
	DeleteFile(ctx context.Context, imagePath string) error
}

// NewImageHandler - maxUploadBytes limits the whole upload body, 0 disables the limit
func NewImageHandler(svc ImageService, maxUploadBytes int64) *ImageHandler {
	return &ImageHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h ImageHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h ImageHandler) Upload(ctx *ginext.Context) {
	if h.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadBytes)
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(413, map[string]string{"error": "request body too large"})
			return
		}
		ctx.JSON(400, map[string]string{"error": "invalid multipart form"})
		return
	}

	// все три поля обязательны, до сервиса запрос без них не доходит
	headers := form.File[FieldFiles]
	if len(headers) == 0 {
		ctx.JSON(400, map[string]string{"error": FieldFiles + " is required"})
		return
	}
	imagePath := ctx.PostForm(FieldImagePath)
	if strings.TrimSpace(imagePath) == "" {
		ctx.JSON(400, map[string]string{"error": FieldImagePath + " is required"})
		return
	}
	rawType := ctx.PostForm(FieldImageType)
	if strings.TrimSpace(rawType) == "" {
		ctx.JSON(400, map[string]string{"error": FieldImageType + " is required"})
		return
	}
	imageType, err := model.ParseImageType(rawType)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}

	files := make([]model.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to read file " + fh.Filename})
			return
		}
		defer closeFileFlow(f)

		files = append(files, model.UploadFile{
			File:        f,
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
	}

	res, err := h.service.SaveFiles(ctx.Request.Context(), files, imagePath, imageType)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, model.NewImageResponse(res))
}

func (h ImageHandler) Delete(ctx *ginext.Context) {
	var req model.ImageDeleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ImagePath) == "" {
		ctx.JSON(400, map[string]string{"error": FieldImagePath + " is required"})
		return
	}

	if err := h.service.DeleteFile(ctx.Request.Context(), req.ImagePath); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
