package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ImageType - classification of an upload, defines storage rules for it
type ImageType string

const (
	TypeProfile  ImageType = "PROFILE"
	TypePost     ImageType = "POST"
	TypeJobBoard ImageType = "JOB_BOARD"
	TypeCompany  ImageType = "COMPANY"
	TypeNotice   ImageType = "NOTICE"
)

// TypeRule - limits and preview settings of one ImageType
type TypeRule struct {
	MaxFiles     int
	MaxFileSize  int64
	AllowedTypes map[string]bool
	Preview      PreviewKind
	PreviewW     int
	PreviewH     int
}

const mb = 1 << 20

var stillImages = map[string]bool{JPEG: true, PNG: true, WEBP: true}

var allImages = map[string]bool{JPEG: true, PNG: true, WEBP: true, GIF: true}

var TypeRules = map[ImageType]TypeRule{
	TypeProfile: {
		MaxFiles:     1,
		MaxFileSize:  5 * mb,
		AllowedTypes: stillImages,
		Preview:      PreviewThumbnail,
		PreviewW:     128,
		PreviewH:     128,
	},
	TypePost: {
		MaxFiles:     10,
		MaxFileSize:  10 * mb,
		AllowedTypes: allImages,
		Preview:      PreviewResize,
		PreviewW:     480,
	},
	TypeJobBoard: {
		MaxFiles:     5,
		MaxFileSize:  10 * mb,
		AllowedTypes: allImages,
		Preview:      PreviewResize,
		PreviewW:     480,
	},
	TypeCompany: {
		MaxFiles:     1,
		MaxFileSize:  5 * mb,
		AllowedTypes: stillImages,
		Preview:      PreviewThumbnail,
		PreviewW:     256,
		PreviewH:     256,
	},
	TypeNotice: {
		MaxFiles:     10,
		MaxFileSize:  10 * mb,
		AllowedTypes: allImages,
		Preview:      PreviewNone,
	},
}

// ParseImageType matches raw against the known types ignoring case
func ParseImageType(raw string) (ImageType, error) {
	t := ImageType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := TypeRules[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageType, raw)
	}
	return t, nil
}

// Rule returns the storage rule of t, ok is false for unknown types
func (t ImageType) Rule() (TypeRule, bool) {
	r, ok := TypeRules[t]
	return r, ok
}

func (t *ImageType) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*t = ImageType(v)
	case []byte:
		*t = ImageType(v)
	default:
		return fmt.Errorf("invalid type for ImageType: %T", value)
	}
	return nil
}

func (t ImageType) Value() (driver.Value, error) {
	return string(t), nil
}
