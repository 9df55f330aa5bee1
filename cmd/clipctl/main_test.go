package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cliphub/internal/database"
	"cliphub/internal/startup"
	"cliphub/internal/storage"

	"github.com/alecthomas/kong"
)

type fakeProber struct{}

func (fakeProber) Duration(context.Context, string) (float64, error) {
	return 30, nil
}

type fakeExtractor struct {
	fail bool
}

func (f fakeExtractor) ExtractFrame(_ context.Context, _, outputPath string, _ float64) bool {
	if f.fail {
		return false
	}
	return os.WriteFile(outputPath, []byte("frame"), 0o644) == nil
}

type copyResizer struct{}

func (copyResizer) Resize(inputPath, outputPath string, _, _ int) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

type testEnv struct {
	app   *app
	out   *bytes.Buffer
	clip  *database.Clip
	owner *database.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	artifacts, err := storage.NewManager(storage.Layout{
		Dir:       filepath.Join(dir, "thumbnails"),
		URLPrefix: "uploads/thumbnails",
	})
	if err != nil {
		t.Fatal(err)
	}

	owner, err := db.CreateUser(ctx, "alice", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	video := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	clip, err := db.CreateClip(ctx, database.NewClip{
		UserID:   owner.ID,
		Filename: "video.mp4",
		FilePath: video,
		FileSize: 3,
		Title:    "First clip",
	})
	if err != nil {
		t.Fatal(err)
	}

	out := &bytes.Buffer{}
	return &testEnv{
		app: &app{
			config:    &startup.Config{},
			db:        db,
			artifacts: artifacts,
			out:       out,
			prober:    fakeProber{},
			extractor: fakeExtractor{},
			resizer:   copyResizer{},
		},
		out:   out,
		clip:  clip,
		owner: owner,
	}
}

// run parses args and runs the selected command against env.
func (env *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	var cli CLI
	parser, err := newParser(&cli, kong.Writers(io.Discard, io.Discard), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatal(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	kctx.BindTo(context.Background(), (*context.Context)(nil))
	return kctx.Run(env.app)
}

func TestReprocess(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.clip.ID)

	if err := env.run(t, "reprocess", id); err != nil {
		t.Fatalf("reprocess error = %v", err)
	}

	clip, err := env.app.db.GetClip(context.Background(), env.clip.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := "uploads/thumbnails/" + id + "_thumb_md.jpg"
	if !clip.HasThumbnail() || *clip.ThumbnailPath != want {
		t.Errorf("thumbnail_path = %v, want %s", clip.ThumbnailPath, want)
	}
	if got := len(env.app.artifacts.Existing(env.clip.ID)); got != 3 {
		t.Errorf("artifact files = %d, want 3 variants", got)
	}
	for _, state := range []string{"extracting_frame", "generating_variants", "finalizing", "done"} {
		if !strings.Contains(env.out.String(), state) {
			t.Errorf("output missing state %q:\n%s", state, env.out.String())
		}
	}
}

func TestReprocessFailures(t *testing.T) {
	t.Run("extraction fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.app.extractor = fakeExtractor{fail: true}

		err := env.run(t, "reprocess", itoa(env.clip.ID))
		if err == nil || !strings.Contains(err.Error(), "extract_failed") {
			t.Errorf("error = %v, want extract_failed", err)
		}
		if got := env.app.artifacts.Existing(env.clip.ID); len(got) != 0 {
			t.Errorf("artifacts left behind: %v", got)
		}
	})

	t.Run("video missing", func(t *testing.T) {
		env := newTestEnv(t)
		if err := os.Remove(env.clip.FilePath); err != nil {
			t.Fatal(err)
		}
		if err := env.run(t, "reprocess", itoa(env.clip.ID)); err == nil {
			t.Error("expected error for missing video")
		}
	})

	t.Run("unknown clip", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(t, "reprocess", "999")
		if !errors.Is(err, database.ErrClipNotFound) {
			t.Errorf("error = %v, want ErrClipNotFound", err)
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "reprocess", "abc"); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestCleanup(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.clip.ID)
	if err := env.run(t, "reprocess", id); err != nil {
		t.Fatal(err)
	}
	env.out.Reset()

	if err := env.run(t, "cleanup", id); err != nil {
		t.Fatalf("cleanup error = %v", err)
	}
	if got := env.app.artifacts.Existing(env.clip.ID); len(got) != 0 {
		t.Errorf("artifacts left: %v", got)
	}
	clip, _ := env.app.db.GetClip(context.Background(), env.clip.ID)
	if clip.HasThumbnail() {
		t.Error("thumbnail reference should be cleared")
	}
	if !strings.Contains(env.out.String(), "Removed 3 artifact file(s)") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestCleanupKeepAndDeletedClip(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.clip.ID)
	if err := env.run(t, "reprocess", id); err != nil {
		t.Fatal(err)
	}

	if err := env.run(t, "cleanup", "--keep", id); err != nil {
		t.Fatal(err)
	}
	clip, _ := env.app.db.GetClip(context.Background(), env.clip.ID)
	if !clip.HasThumbnail() {
		t.Error("--keep should leave the thumbnail reference")
	}

	// Leftover files of a clip whose record is gone
	leftover := env.app.artifacts.VariantPath(404, "sm")
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := env.run(t, "cleanup", "404"); err != nil {
		t.Fatalf("cleanup of deleted clip error = %v", err)
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("leftover artifact should be removed")
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.clip.ID)

	if err := env.run(t, "status", id); err != nil {
		t.Fatal(err)
	}
	out := env.out.String()
	for _, want := range []string{"First clip", "Owner:      alice", "Thumbnail:  none", "- " + id + "_thumb_md.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	_ = env.run(t, "reprocess", id)
	env.out.Reset()
	if err := env.run(t, "status", id); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "+ "+id+"_thumb_md.jpg") {
		t.Errorf("status should mark existing variants:\n%s", env.out.String())
	}
}

func TestPending(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run(t, "pending"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "First clip") {
		t.Errorf("pending output = %q", env.out.String())
	}

	env.out.Reset()
	if err := env.run(t, "pending", "--reprocess"); err != nil {
		t.Fatalf("pending --reprocess error = %v", err)
	}

	env.out.Reset()
	if err := env.run(t, "pending"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "No clips without a thumbnail") {
		t.Errorf("pending after reprocess = %q", env.out.String())
	}
}

func TestPendingReportsFailures(t *testing.T) {
	env := newTestEnv(t)
	env.app.extractor = fakeExtractor{fail: true}

	err := env.run(t, "pending", "--reprocess")
	if err == nil || !strings.Contains(err.Error(), "1 of 1") {
		t.Errorf("error = %v, want 1 of 1 failed", err)
	}
}

func TestOrphans(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run(t, "reprocess", itoa(env.clip.ID)); err != nil {
		t.Fatal(err)
	}

	orphan := env.app.artifacts.VariantPath(77, "md")
	if err := os.WriteFile(orphan, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	env.out.Reset()
	if err := env.run(t, "orphans"); err != nil {
		t.Fatalf("orphans error = %v", err)
	}
	if !strings.Contains(env.out.String(), "clip 77 (no record): 77_thumb_md.jpg") {
		t.Errorf("orphans output = %q", env.out.String())
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Error("report-only run should not delete files")
	}

	env.out.Reset()
	if err := env.run(t, "orphans", "--remove"); err != nil {
		t.Fatalf("orphans --remove error = %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphan should be removed")
	}
	if got := len(env.app.artifacts.Existing(env.clip.ID)); got != 3 {
		t.Errorf("live clip artifacts = %d, want 3 untouched", got)
	}

	env.out.Reset()
	if err := env.run(t, "orphans"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "No orphaned artifacts") {
		t.Errorf("orphans after removal = %q", env.out.String())
	}
}

func TestUserCommands(t *testing.T) {
	env := newTestEnv(t)

	if err := env.run(t, "user", "add", "bob", "--role", "admin", "--avatar", "https://cdn.example/bob.png"); err != nil {
		t.Fatalf("user add error = %v", err)
	}
	if !strings.Contains(env.out.String(), "bob (admin)") {
		t.Errorf("user add output = %q", env.out.String())
	}

	if err := env.run(t, "user", "add", "carol", "--role", "owner"); err == nil {
		t.Error("invalid role should be rejected")
	}

	env.out.Reset()
	if err := env.run(t, "user", "show", itoa(env.owner.ID)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "alice (user)") {
		t.Errorf("user show output = %q", env.out.String())
	}

	if err := env.run(t, "user", "show", "999"); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
