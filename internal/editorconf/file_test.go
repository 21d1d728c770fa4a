package editorconf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
)

func openTemp(t *testing.T, contents string) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yml")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpen_CreatesDefaults(t *testing.T) {
	f := openTemp(t, "")

	got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != model.DefaultEditorSettings() {
		t.Errorf("Read = %+v, want defaults", got)
	}
}

func TestRead_MissingKeysUseDefaults(t *testing.T) {
	f := openTemp(t, "editor:\n  fontSize: 18\n")

	got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.FontSize != 18 {
		t.Errorf("FontSize = %v, want 18", got.FontSize)
	}
	if got.FontWeight != model.FontWeightNormal {
		t.Errorf("FontWeight = %q, want default", got.FontWeight)
	}
}

func TestWrite_PreservesOtherKeys(t *testing.T) {
	f := openTemp(t, "theme: dark\neditor:\n  fontSize: 12\n")

	want := model.EditorSettings{
		FontSize:            16,
		LineHeight:          1.6,
		LetterSpacing:       0.5,
		FontWeight:          model.FontWeightLight,
		CursorWidth:         3,
		RenderLineHighlight: model.LineHighlightAll,
	}
	if err := f.Write(context.Background(), want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Errorf("Read = %+v, want %+v", got, want)
	}

	data, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "theme: dark") {
		t.Errorf("unrelated key lost:\n%s", data)
	}
}

func TestWrite_CancelledContext(t *testing.T) {
	f := openTemp(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Write(ctx, model.DefaultEditorSettings()); err == nil {
		t.Fatal("Write with cancelled context succeeded")
	}
}

func TestOnExternalChange_FiresAndUnsubscribes(t *testing.T) {
	f := openTemp(t, "")

	fired := make(chan struct{}, 16)
	unsubscribe := f.OnExternalChange(func() { fired <- struct{}{} })

	if err := os.WriteFile(f.Path(), []byte("editor:\n  fontSize: 20\n"), 0644); err != nil {
		t.Fatalf("external write: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification within 5s")
	}

	unsubscribe()
	f.mu.Lock()
	n := len(f.listeners)
	f.mu.Unlock()
	if n != 0 {
		t.Errorf("listeners = %d after unsubscribe, want 0", n)
	}
}
