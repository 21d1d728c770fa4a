// Package editorconf exposes an editor settings file as the live settings target.
//
// The file is YAML with display parameters under the top-level "editor" key.
// Other keys are preserved on write. Changes made by anyone, including this
// process, are reported to OnExternalChange listeners.
package editorconf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/harmonia-vision/harmonia/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	editorKey       = "editor"
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// File is a model.SettingsTarget backed by a YAML file.
type File struct {
	path string

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// Open watches the settings file at path, creating it with defaults when missing.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("editorconf: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("editorconf: mkdir: %w", err)
	}

	f := &File{
		path:      path,
		listeners: map[int]func(){},
		done:      make(chan struct{}),
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := f.write(model.DefaultEditorSettings()); err != nil {
			return nil, err
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("editorconf: watcher: %w", err)
	}
	// Watch the directory: atomic replacement renames over the file and drops file watches.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("editorconf: watch: %w", err)
	}
	f.watcher = w

	f.wg.Add(1)
	go f.watchLoop()
	return f, nil
}

// Path returns the watched file path.
func (f *File) Path() string { return f.path }

// Read parses the current file. Keys missing from the file take default values.
func (f *File) Read() (model.EditorSettings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return model.EditorSettings{}, fmt.Errorf("editorconf: read: %w", err)
	}
	var doc struct {
		Editor model.EditorSettings `yaml:"editor"`
	}
	doc.Editor = model.DefaultEditorSettings()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.EditorSettings{}, fmt.Errorf("editorconf: parse: %w", err)
	}
	return doc.Editor, nil
}

// Write replaces the editor section of the file.
func (f *File) Write(ctx context.Context, s model.EditorSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.write(s)
}

// OnExternalChange registers fn for every change to the file.
func (f *File) OnExternalChange(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Close stops watching and drops all listeners.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.listeners = map[int]func(){}
	f.mu.Unlock()

	close(f.done)
	err := f.watcher.Close()
	f.wg.Wait()
	return err
}

func (f *File) write(s model.EditorSettings) error {
	doc, err := f.loadDocument()
	if err != nil {
		return err
	}

	var value yaml.Node
	if err := value.Encode(s); err != nil {
		return fmt.Errorf("editorconf: encode: %w", err)
	}
	setMappingKey(doc.Content[0], editorKey, &value)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("editorconf: encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("editorconf: encode document: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), defaultFileMode); err != nil {
		return fmt.Errorf("editorconf: write tmp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("editorconf: rename: %w", err)
	}
	return nil
}

func (f *File) loadDocument() (*yaml.Node, error) {
	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("editorconf: read: %w", err)
	}
	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("editorconf: parse: %w", err)
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("editorconf: %s: top level is not a mapping", f.path)
	}
	return &doc, nil
}

func setMappingKey(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func (f *File) watchLoop() {
	defer f.wg.Done()
	name := filepath.Clean(f.path)
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			f.notify()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("editorconf: watch error: %v", err)
		}
	}
}

func (f *File) notify() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
