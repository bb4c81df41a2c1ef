package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/service"
)

const proofDir = "proofs"

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Uploads stores payment proof images under Dir, which is served at
// /uploads.
type Uploads struct {
	Dir      string
	MaxBytes int64
}

// SaveProof stores the multipart file named field and returns its public
// path ("/uploads/proofs/<uuid>.<ext>").  It returns nil without error when
// the request carries no such file.
func (u Uploads) SaveProof(c echo.Context, field string) (*string, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable %s", service.ErrValidation, field)
	}
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d MB", service.ErrValidation, field, u.MaxBytes>>20)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: empty %s", service.ErrValidation, field)
	}
	ext, ok := imageExt[http.DetectContentType(head[:n])]
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a jpg, png or webp image", service.ErrValidation, field)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dir := filepath.Join(u.Dir, proofDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return nil, err
	}
	public := "/uploads/" + proofDir + "/" + name
	return &public, nil
}

// Remove deletes a file previously returned by SaveProof.  Unknown paths
// are ignored.
func (u Uploads) Remove(public *string) {
	if public == nil || !strings.HasPrefix(*public, "/uploads/") {
		return
	}
	rel := filepath.FromSlash(strings.TrimPrefix(*public, "/uploads/"))
	_ = os.Remove(filepath.Join(u.Dir, filepath.Clean(rel)))
}
