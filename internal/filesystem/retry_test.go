package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type countingObserver struct {
	attempts int
	failures int
}

func (c *countingObserver) ObserveRetryAttempt(string) { c.attempts++ }
func (c *countingObserver) ObserveRetryFailure(string) { c.failures++ }

func TestWithRetry(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	t.Run("stale then success", func(t *testing.T) {
		calls := 0
		err := withRetry("stat", "/x", fastConfig(), func() error {
			calls++
			if calls < 2 {
				return syscall.ESTALE
			}
			return nil
		})
		if err != nil {
			t.Fatalf("withRetry() error = %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("non-stale error is not retried", func(t *testing.T) {
		calls := 0
		want := errors.New("boom")
		err := withRetry("stat", "/x", fastConfig(), func() error {
			calls++
			return want
		})
		if !errors.Is(err, want) {
			t.Fatalf("withRetry() error = %v, want %v", err, want)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("stale exhausts retries", func(t *testing.T) {
		obs.failures = 0
		calls := 0
		err := withRetry("remove", "/x", fastConfig(), func() error {
			calls++
			return syscall.ESTALE
		})
		if !errors.Is(err, syscall.ESTALE) {
			t.Fatalf("withRetry() error = %v, want ESTALE", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		if obs.failures != 1 {
			t.Errorf("failures observed = %d, want 1", obs.failures)
		}
	})
}

func TestStatWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, fastConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 3 {
		t.Errorf("Size() = %d, want 3", info.Size())
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), fastConfig()); !os.IsNotExist(err) {
		t.Errorf("StatWithRetry(missing) error = %v, want not-exist", err)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := RemoveIfExists(path, fastConfig())
	if err != nil || !removed {
		t.Fatalf("RemoveIfExists() = (%v, %v), want (true, nil)", removed, err)
	}

	removed, err = RemoveIfExists(path, fastConfig())
	if err != nil || removed {
		t.Fatalf("second RemoveIfExists() = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jpg")

	t.Run("success", func(t *testing.T) {
		err := WriteAtomic(path, fastConfig(), func(f *os.File) error {
			_, err := f.Write([]byte("complete"))
			return err
		})
		if err != nil {
			t.Fatalf("WriteAtomic() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "complete" {
			t.Errorf("content = %q, want %q", data, "complete")
		}
	})

	t.Run("failure leaves no partial file", func(t *testing.T) {
		target := filepath.Join(dir, "failed.jpg")
		want := errors.New("encode failed")
		err := WriteAtomic(target, fastConfig(), func(f *os.File) error {
			_, _ = f.Write([]byte("partial"))
			return want
		})
		if !errors.Is(err, want) {
			t.Fatalf("WriteAtomic() error = %v, want %v", err, want)
		}
		if _, err := os.Stat(target); !os.IsNotExist(err) {
			t.Errorf("target exists after failed write")
		}
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if e.Name() != "out.jpg" {
				t.Errorf("unexpected leftover file %s", e.Name())
			}
		}
	})
}
