package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func randomSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return s
}

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		scratchDir := filepath.Join(os.TempDir(), "framemill_test_"+randomSuffix())
		defer func() { _ = os.RemoveAll(scratchDir) }()

		s, err := NewLocalStorage(scratchDir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if s.ScratchDir() != scratchDir {
			t.Errorf("ScratchDir() = %v, want %v", s.ScratchDir(), scratchDir)
		}

		info, err := os.Stat(scratchDir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		s, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "framemill")
		if s.ScratchDir() != expected {
			t.Errorf("ScratchDir() = %v, want %v", s.ScratchDir(), expected)
		}
	})
}

func TestLocalStorage_Cleanup(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		path := filepath.Join(s.ScratchDir(), "gone.mp4")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		if err := s.Cleanup(ctx, []string{path}); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}

		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file %s still exists", path)
		}
	})

	t.Run("ignores missing files", func(t *testing.T) {
		missing := filepath.Join(s.ScratchDir(), "never_existed")
		if err := s.Cleanup(ctx, []string{missing}); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.Cleanup(cancelled, []string{filepath.Join(s.ScratchDir(), "any")})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Upload(t *testing.T) {
	s := setupTestStorage(t)

	_, err := s.Upload(context.Background(), "/tmp/out.mp4", "out.mp4")
	if !errors.Is(err, ErrUploadNotConfigured) {
		t.Errorf("expected ErrUploadNotConfigured, got %v", err)
	}
}
