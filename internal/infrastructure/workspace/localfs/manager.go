package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

const (
	detectionFile    = "detected_card.json"
	insertResultFile = "insert_result.json"
	defaultSourceExt = ".img"
)

// Manager allocates one directory per upload job under a common root.
type Manager struct {
	root string
}

func New(root string) (*Manager, error) {
	if root == "" {
		root = "./data/jobs"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{root: abs}, nil
}

func (m *Manager) Root() string {
	return m.root
}

func (m *Manager) Create(_ context.Context, filename string) (*domain.UploadJob, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	return &domain.UploadJob{
		ID:                  id,
		WorkspaceDir:        dir,
		SourceImagePath:     filepath.Join(dir, "source"+sourceExt(filename)),
		DetectionOutputPath: filepath.Join(dir, detectionFile),
		InsertResultPath:    filepath.Join(dir, insertResultFile),
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (m *Manager) WriteSource(_ context.Context, job *domain.UploadJob, data io.Reader) error {
	if job == nil {
		return errors.New("nil job")
	}
	f, err := os.Create(job.SourceImagePath)
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}
	return f.Close()
}

// Destroy removes the job directory. Repeated calls and nil jobs are no-ops.
func (m *Manager) Destroy(job *domain.UploadJob) error {
	if job == nil || job.WorkspaceDir == "" {
		return nil
	}
	dir := filepath.Clean(job.WorkspaceDir)
	rel, err := filepath.Rel(m.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("refusing to remove %q outside workspace root", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove job dir: %w", err)
	}
	return nil
}

func sourceExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || len(ext) > 6 {
		return defaultSourceExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultSourceExt
		}
	}
	return ext
}
