package library

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func openTest(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	lib, err := Open(filepath.Join(dir, "strips"), filepath.Join(dir, "db", "library.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestSave_WritesFileAndIndex(t *testing.T) {
	lib := openTest(t)
	lib.now = func() time.Time { return time.Date(2025, 1, 1, 18, 30, 5, 0, time.UTC) }
	lib.SetSession("session-1")

	e, err := lib.Save(context.Background(), image.NewRGBA(image.Rect(0, 0, 60, 180)))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !regexp.MustCompile(`^strip-20250101-183005-[0-9a-f]{8}\.jpg$`).MatchString(e.Filename) {
		t.Errorf("filename = %q", e.Filename)
	}
	if e.SessionID != "session-1" || e.Width != 60 || e.Height != 180 {
		t.Errorf("unexpected entry %+v", e)
	}

	f, err := os.Open(e.Path)
	if err != nil {
		t.Fatalf("open saved file: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if img.Bounds().Dx() != 60 {
		t.Errorf("saved width = %d, want 60", img.Bounds().Dx())
	}

	got, err := lib.Get(context.Background(), e.Filename)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.ID != e.ID || got.FileSize != e.FileSize {
		t.Errorf("Get = %+v, want %+v", got, e)
	}
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	lib := openTest(t)
	if _, err := lib.Save(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(lib.Dir(), ".strip-*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left: %v", matches)
	}
}

func TestSave_CancelledContext(t *testing.T) {
	lib := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lib.Save(ctx, image.NewRGBA(image.Rect(0, 0, 8, 8))); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	lib := openTest(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		lib.now = func() time.Time { return ts }
		if _, err := lib.Save(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	all, err := lib.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("entries not newest first: %v then %v", all[i-1].CreatedAt, all[i].CreatedAt)
		}
	}

	limited, err := lib.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != all[0].ID {
		t.Errorf("limited list = %+v", limited)
	}
}

func TestGet_Missing(t *testing.T) {
	lib := openTest(t)
	e, err := lib.Get(context.Background(), "nope.jpg")
	if err != nil || e != nil {
		t.Errorf("Get missing = %v, %v; want nil, nil", e, err)
	}
}

func TestRecordShare(t *testing.T) {
	lib := openTest(t)
	ctx := context.Background()
	if err := lib.RecordShare(ctx, "s1", "mail", "guest@example.com", nil); err != nil {
		t.Fatalf("RecordShare: %v", err)
	}
	if err := lib.RecordShare(ctx, "s1", "message", "+15550100", errors.New("gateway down")); err != nil {
		t.Fatalf("RecordShare: %v", err)
	}
	_ = lib.RecordShare(ctx, "s2", "mail", "other@example.com", nil)

	shares, err := lib.Shares(ctx, "s1")
	if err != nil {
		t.Fatalf("Shares: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("got %d shares, want 2", len(shares))
	}
	if !shares[0].OK || shares[0].Target != "mail" {
		t.Errorf("first share = %+v", shares[0])
	}
	if shares[1].OK || shares[1].Error != "gateway down" {
		t.Errorf("second share = %+v", shares[1])
	}
}

func TestSaver_Adapter(t *testing.T) {
	lib := openTest(t)
	if err := lib.Saver().Save(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Saver: %v", err)
	}
	entries, _ := lib.List(context.Background(), 0)
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir, filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := lib.Save(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	lib.Close()

	lib, err = Open(dir, filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer lib.Close()
	entries, _ := lib.List(context.Background(), 0)
	if len(entries) != 1 {
		t.Errorf("got %d entries after reopen, want 1", len(entries))
	}
}
