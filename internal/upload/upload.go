package upload

import (
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var ErrNotAnImage = errors.New("only image uploads are allowed")

// Saver stores issue photos on local disk under a configured directory.
type Saver struct {
	dir string
}

func NewSaver(dir string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Saver{dir: dir}, nil
}

// SaveImage validates and stores a single multipart image, returning the
// relative path to hand to the issue record. Declared MIME type must start
// with "image/"; anything else fails the whole request.
func (s *Saver) SaveImage(ctx *gin.Context, file *multipart.FileHeader) (string, error) {
	if err := ValidateImage(file); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	dst := filepath.Join(s.dir, name)

	if err := ctx.SaveUploadedFile(file, dst); err != nil {
		return "", err
	}

	return dst, nil
}

func ValidateImage(file *multipart.FileHeader) error {
	ct := file.Header.Get("Content-Type")

	if !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return ErrNotAnImage
	}

	return nil
}
