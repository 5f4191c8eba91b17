package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
)

// FilePrefix starts every stored profile picture name.
const FilePrefix = "profile-"

const sniffLen = 512

// Store writes profile pictures to a local directory served under URLPrefix.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

// NewStore creates the upload directory if needed. A maxBytes of zero or
// above console.MaxPictureBytes is capped to it.
func NewStore(dir, urlPrefix string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxBytes <= 0 || maxBytes > console.MaxPictureBytes {
		maxBytes = console.MaxPictureBytes
	}
	return &Store{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), maxBytes: maxBytes}, nil
}

// Dir returns the directory pictures are written to.
func (s *Store) Dir() string { return s.dir }

// URLPrefix returns the public path pictures are served under.
func (s *Store) URLPrefix() string { return s.urlPrefix }

// Save checks and stores a picture and returns its public URL. The declared
// content type must be JPEG, PNG or GIF and must match the file's content.
func (s *Store) Save(ctx context.Context, a *console.Attachment) (string, error) {
	if a == nil || a.Open == nil {
		return "", pictureError("No file selected")
	}
	if _, ok := console.PictureTypes[a.ContentType]; !ok {
		return "", pictureError(console.PictureTypeMessage)
	}
	if a.Size > s.maxBytes {
		return "", pictureError(console.PictureTooLargeMessage)
	}

	src, err := a.Open()
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "failed to read upload", err)
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", domain.NewAppError(domain.CodeInternal, "failed to read upload", err)
	}
	head = head[:n]
	if n == 0 {
		return "", pictureError("Failed to store empty file")
	}
	if sniffed := http.DetectContentType(head); sniffed != a.ContentType {
		return "", pictureError(console.PictureTypeMessage)
	}

	name := FilePrefix + uuid.NewString() + a.Ext()
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "failed to store file", err)
	}

	body := io.MultiReader(bytes.NewReader(head), src)
	written, err := io.Copy(dst, io.LimitReader(body, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = pictureError(console.PictureTooLargeMessage)
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		if domain.IsValidation(err) {
			return "", err
		}
		return "", domain.NewAppError(domain.CodeInternal, "failed to store file", err)
	}

	slog.InfoContext(ctx, "profile picture stored", "file", name, "bytes", written)
	return s.urlPrefix + "/" + name, nil
}

// Remove deletes a picture previously returned by Save. URLs outside the
// store are ignored.
func (s *Store) Remove(url string) error {
	name, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || name != path.Base(name) || !strings.HasPrefix(name, FilePrefix) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func pictureError(msg string) error {
	return domain.NewFieldError(map[string]string{"profilePicture": msg})
}

// FromFileHeader adapts a multipart file to a console attachment.
func FromFileHeader(fh *multipart.FileHeader) console.Attachment {
	return console.Attachment{
		Name:        fh.Filename,
		ContentType: strings.ToLower(strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0])),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
