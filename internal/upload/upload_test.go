package upload

import (
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"
)

func fileHeader(name, contentType string) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)

	return &multipart.FileHeader{
		Filename: name,
		Header:   h,
	}
}

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name        string
		file        *multipart.FileHeader
		wantErr     error
	}{
		{"jpeg_ok", fileHeader("photo.jpg", "image/jpeg"), nil},
		{"png_ok", fileHeader("photo.png", "image/png"), nil},
		{"mixed_case_ok", fileHeader("photo.png", "Image/PNG"), nil},
		{"pdf_rejected", fileHeader("doc.pdf", "application/pdf"), ErrNotAnImage},
		{"missing_type_rejected", fileHeader("mystery.bin", ""), ErrNotAnImage},
		{"text_rejected", fileHeader("notes.txt", "text/plain"), ErrNotAnImage},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSaver_CreatesDir(t *testing.T) {
	dir := t.TempDir() + "/uploads"

	if _, err := NewSaver(dir); err != nil {
		t.Fatalf("NewSaver error: %v", err)
	}

	if _, err := NewSaver(dir); err != nil {
		t.Fatalf("NewSaver should be idempotent: %v", err)
	}
}
