package services

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

const UploadPrefix = "/uploads/"

type FileService struct {
	repo     repo.Files
	maxBytes int64
	now      func() time.Time
}

func NewFileService(r repo.Files, maxBytes int64) *FileService {
	return &FileService{repo: r, maxBytes: maxBytes, now: time.Now}
}

func (s *FileService) MaxBytes() int64 { return s.maxBytes }

// safeName keeps the base name of an upload and replaces anything outside [A-Za-z0-9._-].
func safeName(name string) (base, ext string) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext = strings.ToLower(path.Ext(name))
	base = strings.TrimSuffix(name, path.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." {
		base = "file"
	}
	return base, ext
}

// Upload stores the bytes and returns the public URL under /uploads/{uid}/.
func (s *FileService) Upload(ctx context.Context, userID int64, name, contentType string, data []byte) (models.StoredFile, error) {
	if userID == 0 {
		return models.StoredFile{}, Fail(ErrUnauthorized, "Authentication required")
	}
	if len(data) == 0 {
		return models.StoredFile{}, Fail(ErrBadRequest, "File data is required")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return models.StoredFile{}, Failf(ErrTooLarge, "File exceeds %d bytes", s.maxBytes)
	}
	base, ext := safeName(name)
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	f := models.StoredFile{
		UserID:   userID,
		FileName: base + ext,
		FileType: contentType,
		FileSize: int64(len(data)),
		URL:      fmt.Sprintf("%s%d/%s_%d%s", UploadPrefix, userID, base, s.now().Unix(), ext),
		Data:     data,
	}
	return s.repo.Save(ctx, f)
}

// Open returns a stored file with its content type resolved.
func (s *FileService) Open(ctx context.Context, url string) (models.StoredFile, error) {
	f, err := s.repo.GetByURL(ctx, url)
	if err != nil {
		return models.StoredFile{}, notFound(err, "File not found")
	}
	if f.FileType == "" {
		f.FileType = mime.TypeByExtension(strings.ToLower(path.Ext(f.URL)))
	}
	if f.FileType == "" {
		f.FileType = "application/octet-stream"
	}
	return f, nil
}
