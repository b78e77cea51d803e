package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

func TestCreateWriteDestroy(t *testing.T) {
	mgr, err := New(filepath.Join(t.TempDir(), "nested", "jobs"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	job, err := mgr.Create(context.Background(), "My Card.PNG")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if filepath.Dir(job.WorkspaceDir) != mgr.Root() {
		t.Fatalf("job dir %q not under root %q", job.WorkspaceDir, mgr.Root())
	}
	if filepath.Base(job.SourceImagePath) != "source.png" {
		t.Fatalf("unexpected source path %q", job.SourceImagePath)
	}
	if filepath.Dir(job.DetectionOutputPath) != job.WorkspaceDir || filepath.Dir(job.InsertResultPath) != job.WorkspaceDir {
		t.Fatalf("output paths must live in the job dir: %+v", job)
	}

	if err := mgr.WriteSource(context.Background(), job, strings.NewReader("image")); err != nil {
		t.Fatalf("WriteSource() error = %v", err)
	}
	raw, err := os.ReadFile(job.SourceImagePath)
	if err != nil || string(raw) != "image" {
		t.Fatalf("unexpected source content %q err=%v", raw, err)
	}
	if err := os.WriteFile(job.DetectionOutputPath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write detection: %v", err)
	}

	if err := mgr.Destroy(job); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := os.Stat(job.WorkspaceDir); !os.IsNotExist(err) {
		t.Fatalf("job dir still exists: %v", err)
	}
	if err := mgr.Destroy(job); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
	if err := mgr.Destroy(nil); err != nil {
		t.Fatalf("Destroy(nil) error = %v", err)
	}
}

func TestCreateUniqueDirectories(t *testing.T) {
	mgr, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		job, err := mgr.Create(context.Background(), "a.jpg")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[job.WorkspaceDir] {
			t.Fatalf("duplicate workspace %q", job.WorkspaceDir)
		}
		seen[job.WorkspaceDir] = true
	}
}

func TestDestroyRefusesPathsOutsideRoot(t *testing.T) {
	base := t.TempDir()
	mgr, err := New(filepath.Join(base, "jobs"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	outside := filepath.Join(base, "keep")
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{outside, mgr.Root(), filepath.Join(mgr.Root(), "..")} {
		if err := mgr.Destroy(&domain.UploadJob{WorkspaceDir: dir}); err == nil {
			t.Fatalf("expected refusal for %q", dir)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("outside dir removed: %v", err)
	}
}

func TestSourceExt(t *testing.T) {
	cases := map[string]string{
		"card.JPG":       ".jpg",
		"noext":          ".img",
		"weird.p$g":      ".img",
		"../../etc.webp": ".webp",
		"long.extension": ".img",
	}
	for in, want := range cases {
		if got := sourceExt(in); got != want {
			t.Fatalf("sourceExt(%q) = %q, want %q", in, got, want)
		}
	}
}
