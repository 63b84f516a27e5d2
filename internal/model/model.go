// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type (
	Status      string
	PreviewKind string
)

const (
	StatusCreated    Status = "created" // preview pending
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped" // type without preview
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
	StatusSkipped:    true,
}

const (
	PreviewNone      PreviewKind = "none"
	PreviewThumbnail PreviewKind = "thumbnail"
	PreviewResize    PreviewKind = "resize"
)

//---------------------

// Image - a stored file and the state of its preview
type Image struct {
	UID          uuid.UUID  `json:"uid"`
	ObjectKey    string     `json:"object_key"`
	ImagePath    string     `json:"image_path"`
	ImageType    ImageType  `json:"image_type"`
	ContentType  string     `json:"content_type"`
	Size         int64      `json:"size"`
	OriginalName string     `json:"original_name,omitempty"`
	Status       Status     `json:"status,omitempty"`
	PreviewKey   string     `json:"-"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// OrphanAge - rows idle in created/in_progress longer than this are re-queued
const OrphanAge = 10 * time.Minute

// Orphaned reports whether the row has been idle longer than OrphanAge at now
func (img *Image) Orphaned(now time.Time) bool {
	last := img.UpdatedAt
	if last == nil {
		last = img.CreatedAt
	}
	if last == nil {
		return false
	}
	return now.Sub(*last) > OrphanAge
}

//-------------------

// UploadFile - one file from the multipartFile form field
type UploadFile struct {
	File        multipart.File
	Name        string
	ContentType string
	Size        int64
}

// SavedImageData - result of saving a batch of files, URLs keep the input order
type SavedImageData struct {
	ImageURLs []string `json:"imageUrls"`
}

// ImageResponse - envelope returned by the upload endpoint
type ImageResponse struct {
	Data *SavedImageData `json:"data"`
}

func NewImageResponse(data *SavedImageData) ImageResponse {
	return ImageResponse{Data: data}
}

// ImageDeleteRequest - JSON body of the delete endpoint
type ImageDeleteRequest struct {
	ImagePath string `json:"imagePath" binding:"required"`
}

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")           // 500
	ErrIncorrectQuery    error = errors.New("incorrect request parameters")                    // 400
	ErrIncorrectID       error = errors.New("incorrect image UUID")                            // 400
	ErrImageNotFound     error = errors.New("specified image doesn't exist")                   // 404
	ErrInvalidImageType  error = errors.New("unknown image type")                              // 400
	ErrInvalidPath       error = errors.New("invalid image path")                              // 400
	ErrNoFiles           error = errors.New("at least one file is required")                   // 400
	ErrTooManyFiles      error = errors.New("too many files for this image type")              // 400
	ErrEmptyFile         error = errors.New("empty file provided")                             // 400
	ErrFileTooLarge      error = errors.New("file exceeds size limit for this image type")     // 413
	ErrUnsupportedFormat error = errors.New("unsupported image format")                        // 400
	ErrPreviewNotNeeded  error = errors.New("image type doesn't require preview generation")   // worker only
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	WEBP: ".webp",
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
}
