package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/abrahampo1/savecloud/internal/remote"
)

// fakeRemote is an in-memory remote.Client recording call counts.
type fakeRemote struct {
	mu        sync.Mutex
	nextID    int
	folders   map[string]remote.File            // id → folder
	files     map[string]*fakeStoredFile        // id → file
	listCalls int
	failList  error
}

type fakeStoredFile struct {
	file    remote.File
	content []byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		folders: make(map[string]remote.File),
		files:   make(map[string]*fakeStoredFile),
	}
}

func (f *fakeRemote) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeRemote) ListFiles(_ context.Context, q remote.ListQuery) ([]remote.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++

	if f.failList != nil {
		return nil, f.failList
	}

	var out []remote.File

	if q.OnlyFolders {
		for _, folder := range f.folders {
			if q.Name == "" || folder.Name == q.Name {
				out = append(out, folder)
			}
		}

		return out, nil
	}

	for _, sf := range f.files {
		if q.Name != "" && sf.file.Name != q.Name {
			continue
		}

		if q.NameContains != "" && !strings.Contains(sf.file.Name, q.NameContains) {
			continue
		}

		out = append(out, sf.file)
	}

	return out, nil
}

func (f *fakeRemote) CreateFolder(_ context.Context, name string) (*remote.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	folder := remote.File{ID: f.newID("folder"), Name: name, IsFolder: true}
	f.folders[folder.ID] = folder

	return &folder, nil
}

func (f *fakeRemote) CreateFile(
	_ context.Context, name, parentID, description string, content io.Reader,
) (*remote.File, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file := remote.File{
		ID:          f.newID("file"),
		Name:        name,
		Size:        int64(len(data)),
		Description: description,
		CreatedAt:   time.Now(),
		ModifiedAt:  time.Now(),
	}
	f.files[file.ID] = &fakeStoredFile{file: file, content: data}

	_ = parentID

	return &file, nil
}

func (f *fakeRemote) GetFile(_ context.Context, id string) (*remote.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sf, ok := f.files[id]
	if !ok {
		return nil, fmt.Errorf("fake: file %s not found", id)
	}

	file := sf.file

	return &file, nil
}

func (f *fakeRemote) GetFileContent(_ context.Context, id string, w io.Writer) (int64, error) {
	f.mu.Lock()
	sf, ok := f.files[id]
	f.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("fake: file %s not found", id)
	}

	n, err := io.Copy(w, bytes.NewReader(sf.content))

	return n, err
}

func (f *fakeRemote) DeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.files, id)

	return nil
}

// fakeTool is a CaptureTool that writes canned save files on capture and
// records restore arguments.
type fakeTool struct {
	mu          sync.Mutex
	captured    int
	saveFiles   map[string]string
	restoreArgs []restoreCall
}

type restoreCall struct {
	srcDir         string
	objectID       string
	homeDirMapping string
	currentPrefix  string
	recordedPrefix string
}

func newFakeTool() *fakeTool {
	return &fakeTool{
		saveFiles: map[string]string{"a.sav": "X", "b.sav": "Y"},
	}
}

func (t *fakeTool) Capture(_ context.Context, _, _, destDir, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.captured++

	for name, content := range t.saveFiles {
		if err := os.WriteFile(filepath.Join(destDir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func (t *fakeTool) Restore(
	_ context.Context, srcDir, objectID, homeDirMapping, currentPrefix, recordedPrefix string,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.restoreArgs = append(t.restoreArgs, restoreCall{
		srcDir:         srcDir,
		objectID:       objectID,
		homeDirMapping: homeDirMapping,
		currentPrefix:  currentPrefix,
		recordedPrefix: recordedPrefix,
	})

	return nil
}

// fakeNotifier records emitted events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Emit(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, name)
}
