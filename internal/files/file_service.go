package files

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// maxPhotoSize is the Telegram Bot API download limit.
const maxPhotoSize = 20 << 20

// URLResolver turns a Telegram file id into a downloadable URL. *tgbotapi.BotAPI satisfies it.
type URLResolver interface {
	GetFileDirectURL(fileID string) (string, error)
}

type FileService struct {
	resolver   URLResolver
	httpClient *http.Client
	docDir     string
}

func NewFileService(resolver URLResolver, docDir string) (*FileService, error) {
	if err := os.MkdirAll(docDir, 0755); err != nil {
		return nil, fmt.Errorf("FileService: cannot create dir %s: %w", docDir, err)
	}

	return &FileService{
		resolver:   resolver,
		httpClient: &http.Client{Timeout: time.Minute},
		docDir:     docDir,
	}, nil
}

// Download fetches the file behind fileID into memory.
func (fs *FileService) Download(ctx context.Context, fileID string) ([]byte, error) {
	link, err := fs.resolver.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("FileService.Download: cannot get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("FileService.Download: %w", err)
	}

	resp, err := fs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FileService.Download: cannot download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FileService.Download: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize))
	if err != nil {
		return nil, fmt.Errorf("FileService.Download: cannot read file: %w", err)
	}

	return data, nil
}

// NewPath returns a fresh uuid-named path inside the document dir.
func (fs *FileService) NewPath(prefix, ext string) string {
	fileName := fmt.Sprintf("%s_%s%s", prefix, uuid.New().String(), ext)
	return filepath.Join(fs.docDir, fileName)
}

func (fs *FileService) DeleteFile(path string) error {
	if path == "" {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("FileService.DeleteFile: %w", err)
	}

	return nil
}
