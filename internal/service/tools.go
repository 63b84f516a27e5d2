package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

// validateFiles checks files against rule and returns sniffed content types in the same order
func validateFiles(files []model.UploadFile, rule model.TypeRule) ([]string, error) {
	if len(files) == 0 {
		return nil, model.ErrNoFiles
	}
	if len(files) > rule.MaxFiles {
		return nil, fmt.Errorf("%w: got %d, max %d", model.ErrTooManyFiles, len(files), rule.MaxFiles)
	}

	cTypes := make([]string, 0, len(files))
	for _, f := range files {
		if f.File == nil || f.Size <= 0 {
			return nil, fmt.Errorf("%w: %q", model.ErrEmptyFile, f.Name)
		}
		if f.Size > rule.MaxFileSize {
			return nil, fmt.Errorf("%w: %q", model.ErrFileTooLarge, f.Name)
		}

		cType, err := sniffContentType(f)
		if err != nil {
			return nil, err
		}
		if !rule.AllowedTypes[cType] {
			return nil, fmt.Errorf("%w: %q is %s", model.ErrUnsupportedFormat, f.Name, cType)
		}
		cTypes = append(cTypes, cType)
	}

	return cTypes, nil
}

// sniffContentType смотрит на сами байты, заголовок от клиента не учитывается
func sniffContentType(f model.UploadFile) (string, error) {
	mType, err := mimetype.DetectReader(f.File)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", model.ErrUnsupportedFormat, f.Name, err)
	}
	if _, err := f.File.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind %q: %w", f.Name, err)
	}

	cType, _, _ := strings.Cut(mType.String(), ";")
	return cType, nil
}
