// Package vfs is the file-system facade the applet stores data objects
// behind: a flat (AppID, Tag, Region) keyed blob store. The concrete
// flash/filesystem driver is outside the applet's contract — Backend
// abstracts it.
package vfs

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Region separates the plaintext "File" namespace from the "Secure"
// namespace a real backend may encrypt at rest. That policy is opaque
// to the applet core.
type Region int

const (
	File Region = iota
	Secure
)

func (r Region) String() string {
	if r == Secure {
		return "secure"
	}
	return "file"
}

type key struct {
	AppID  string
	Tag    uint32
	Region Region
}

// Backend is the storage driver contract. A missing key must read back
// as an empty slice with no error.
type Backend interface {
	Read(appID string, tag uint32, region Region) ([]byte, error)
	Write(appID string, tag uint32, region Region, data []byte) error
	Delete(appID string, tag uint32, region Region) error
}

// FS is the facade handlers use. It wraps a Backend with a fixed
// read-missing-as-empty contract.
type FS struct {
	backend Backend
}

// New wraps backend in the facade.
func New(backend Backend) *FS {
	return &FS{backend: backend}
}

// ReadFile reads the blob at (appID, tag, region). A missing file
// returns an empty, non-nil slice and no error.
func (f *FS) ReadFile(appID string, tag uint32, region Region) ([]byte, error) {
	data, err := f.backend.Read(appID, tag, region)
	if err != nil {
		return nil, fmt.Errorf("read %s tag %04X: %w", region, tag, err)
	}
	if data == nil {
		return []byte{}, nil
	}
	return data, nil
}

// WriteFile persists data at (appID, tag, region), overwriting any
// previous value.
func (f *FS) WriteFile(appID string, tag uint32, region Region, data []byte) error {
	if err := f.backend.Write(appID, tag, region, data); err != nil {
		return fmt.Errorf("write %s tag %04X: %w", region, tag, err)
	}
	return nil
}

// DeleteFile removes the blob at (appID, tag, region), if present.
func (f *FS) DeleteFile(appID string, tag uint32, region Region) error {
	if err := f.backend.Delete(appID, tag, region); err != nil {
		return fmt.Errorf("delete %s tag %04X: %w", region, tag, err)
	}
	return nil
}

// MemoryBackend is an in-memory Backend, used for tests and for the
// volatile parts of the applet's state (selected applet, auth flags
// live elsewhere; this is purely the tag store).
type MemoryBackend struct {
	mu    sync.Mutex
	blobs map[key][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[key][]byte)}
}

func (m *MemoryBackend) Read(appID string, tag uint32, region Region) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key{appID, tag, region}]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) Write(appID string, tag uint32, region Region, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key{appID, tag, region}] = stored
	return nil
}

func (m *MemoryBackend) Delete(appID string, tag uint32, region Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key{appID, tag, region})
	return nil
}

// jsonBackendEntry is the on-disk representation of one blob, since
// JSON object keys must be strings and uint32 tags need an explicit
// field rather than being folded into a map key.
type jsonBackendEntry struct {
	AppID  string `json:"app_id"`
	Tag    uint32 `json:"tag"`
	Region int    `json:"region"`
	Data   []byte `json:"data"`
}

// FileBackend persists blobs to a single JSON file on disk, so card
// state survives across process restarts the way a real card's flash
// survives power-up. The cardsim CLI does not use it: each command
// seeds a fresh card on a MemoryBackend.
type FileBackend struct {
	mu   sync.Mutex
	path string
	data map[key][]byte
}

// OpenFileBackend loads path if it exists, or starts empty.
func OpenFileBackend(path string) (*FileBackend, error) {
	fb := &FileBackend{path: path, data: make(map[key][]byte)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fb, nil
		}
		return nil, fmt.Errorf("open file backend %s: %w", path, err)
	}
	var entries []jsonBackendEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode file backend %s: %w", path, err)
	}
	for _, e := range entries {
		fb.data[key{e.AppID, e.Tag, Region(e.Region)}] = e.Data
	}
	return fb, nil
}

func (fb *FileBackend) Read(appID string, tag uint32, region Region) ([]byte, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	data, ok := fb.data[key{appID, tag, region}]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (fb *FileBackend) Write(appID string, tag uint32, region Region, data []byte) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	fb.data[key{appID, tag, region}] = stored
	return fb.flushLocked()
}

func (fb *FileBackend) Delete(appID string, tag uint32, region Region) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	delete(fb.data, key{appID, tag, region})
	return fb.flushLocked()
}

func (fb *FileBackend) flushLocked() error {
	entries := make([]jsonBackendEntry, 0, len(fb.data))
	for k, v := range fb.data {
		entries = append(entries, jsonBackendEntry{AppID: k.AppID, Tag: k.Tag, Region: int(k.Region), Data: v})
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode file backend: %w", err)
	}
	if err := os.WriteFile(fb.path, raw, 0o600); err != nil {
		return fmt.Errorf("write file backend %s: %w", fb.path, err)
	}
	return nil
}
