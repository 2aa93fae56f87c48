// Package fsutil abstracts the handful of filesystem operations used by the
// tile cache and the sounding log store.
package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/depth.survey/internal/timeutil"
)

// FileSystem is implemented by OSFileSystem and MemoryFileSystem.
type FileSystem interface {
	Open(name string) (fs.File, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	// Append opens name for appending, creating it if needed.
	Append(name string) (io.WriteCloser, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
	RemoveAll(path string) error
	MkdirAll(path string, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	// ReadDir lists the regular files directly inside dir, sorted by name.
	ReadDir(dir string) ([]fs.FileInfo, error)
	Chtimes(name string, mtime time.Time) error
	Exists(name string) bool
}

// OSFileSystem implements FileSystem with the os package.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error)    { return os.Open(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (OSFileSystem) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (OSFileSystem) Remove(name string) error             { return os.Remove(name) }
func (OSFileSystem) RemoveAll(path string) error          { return os.RemoveAll(path) }
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Append(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) ReadDir(dir string) ([]fs.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]fs.FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (OSFileSystem) Chtimes(name string, mtime time.Time) error {
	return os.Chtimes(name, mtime, mtime)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem is an in-memory FileSystem for tests. Modification times
// come from the supplied clock.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	clock timeutil.Clock
	files map[string]*memFile
	dirs  map[string]bool
}

type memFile struct {
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

// NewMemoryFileSystem returns an empty filesystem. A nil clock uses the
// real time.
func NewMemoryFileSystem(clock timeutil.Clock) *MemoryFileSystem {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &MemoryFileSystem{
		clock: clock,
		files: make(map[string]*memFile),
		dirs:  make(map[string]bool),
	}
}

func notExist(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = filepath.Clean(name)
	f, ok := m.files[name]
	if !ok {
		return nil, notExist("open", name)
	}
	return &memReader{info: f.info(name), data: append([]byte(nil), f.data...)}, nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[filepath.Clean(name)]
	if !ok {
		return nil, notExist("read", name)
	}
	return append([]byte(nil), f.data...), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	if err := m.parentExists("write", name); err != nil {
		return err
	}
	m.files[name] = &memFile{data: append([]byte(nil), data...), mode: perm, modTime: m.clock.Now()}
	return nil
}

func (m *MemoryFileSystem) Append(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	if err := m.parentExists("open", name); err != nil {
		return nil, err
	}
	if _, ok := m.files[name]; !ok {
		m.files[name] = &memFile{mode: 0644, modTime: m.clock.Now()}
	}
	return &memAppender{fs: m, name: name}, nil
}

func (m *MemoryFileSystem) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldpath, newpath = filepath.Clean(oldpath), filepath.Clean(newpath)
	f, ok := m.files[oldpath]
	if !ok {
		return notExist("rename", oldpath)
	}
	delete(m.files, oldpath)
	m.files[newpath] = f
	return nil
}

func (m *MemoryFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	if _, ok := m.files[name]; ok {
		delete(m.files, name)
		return nil
	}
	if m.dirs[name] {
		delete(m.dirs, name)
		return nil
	}
	return notExist("remove", name)
}

func (m *MemoryFileSystem) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	for name := range m.files {
		if name == path || strings.HasPrefix(name, prefix) {
			delete(m.files, name)
		}
	}
	for name := range m.dirs {
		if name == path || strings.HasPrefix(name, prefix) {
			delete(m.dirs, name)
		}
	}
	return nil
}

func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := filepath.Clean(path); p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		m.dirs[p] = true
	}
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = filepath.Clean(name)
	if m.dirs[name] {
		return memInfo{name: filepath.Base(name), mode: fs.ModeDir | 0755}, nil
	}
	f, ok := m.files[name]
	if !ok {
		return nil, notExist("stat", name)
	}
	return f.info(name), nil
}

func (m *MemoryFileSystem) ReadDir(dir string) ([]fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir = filepath.Clean(dir)
	if !m.dirs[dir] {
		return nil, notExist("readdir", dir)
	}
	var out []fs.FileInfo
	for name, f := range m.files {
		if filepath.Dir(name) == dir {
			out = append(out, f.info(name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (m *MemoryFileSystem) Chtimes(name string, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(name)]
	if !ok {
		return notExist("chtimes", name)
	}
	f.modTime = mtime
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = filepath.Clean(name)
	_, ok := m.files[name]
	return ok || m.dirs[name]
}

// parentExists must be called with m.mu held.
func (m *MemoryFileSystem) parentExists(op, name string) error {
	if dir := filepath.Dir(name); dir != "." && !m.dirs[dir] {
		return notExist(op, name)
	}
	return nil
}

func (f *memFile) info(name string) memInfo {
	return memInfo{name: filepath.Base(name), size: int64(len(f.data)), mode: f.mode, modTime: f.modTime}
}

type memAppender struct {
	fs     *MemoryFileSystem
	name   string
	closed bool
}

func (a *memAppender) Write(p []byte) (int, error) {
	if a.closed {
		return 0, fs.ErrClosed
	}
	a.fs.mu.Lock()
	defer a.fs.mu.Unlock()
	f, ok := a.fs.files[a.name]
	if !ok {
		return 0, notExist("write", a.name)
	}
	f.data = append(f.data, p...)
	f.modTime = a.fs.clock.Now()
	return len(p), nil
}

func (a *memAppender) Close() error {
	a.closed = true
	return nil
}

type memReader struct {
	info   memInfo
	data   []byte
	offset int
}

func (r *memReader) Read(p []byte) (int, error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.offset:])
	r.offset += n
	return n, nil
}

func (r *memReader) Stat() (fs.FileInfo, error) { return r.info, nil }
func (r *memReader) Close() error               { return nil }

type memInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() os.FileMode  { return i.mode }
func (i memInfo) ModTime() time.Time { return i.modTime }
func (i memInfo) IsDir() bool        { return i.mode.IsDir() }
func (i memInfo) Sys() any           { return nil }
