package vfs

import (
	"path/filepath"
	"testing"
)

func TestMemoryBackendMissingReadsEmpty(t *testing.T) {
	fs := New(NewMemoryBackend())
	data, err := fs.ReadFile("openpgp", 0x005E, File)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty data, got %x", data)
	}
}

func TestMemoryBackendRoundtrip(t *testing.T) {
	fs := New(NewMemoryBackend())
	want := []byte("Hello")
	if err := fs.WriteFile("openpgp", 0x005E, File, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := fs.ReadFile("openpgp", 0x005E, File)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRegionsAreIndependent(t *testing.T) {
	fs := New(NewMemoryBackend())
	fs.WriteFile("openpgp", 0x00C1, File, []byte{1})
	fs.WriteFile("openpgp", 0x00C1, Secure, []byte{2})

	fileData, _ := fs.ReadFile("openpgp", 0x00C1, File)
	secureData, _ := fs.ReadFile("openpgp", 0x00C1, Secure)
	if fileData[0] != 1 || secureData[0] != 2 {
		t.Errorf("regions leaked into each other: file=%x secure=%x", fileData, secureData)
	}
}

func TestDelete(t *testing.T) {
	fs := New(NewMemoryBackend())
	fs.WriteFile("openpgp", 0x0065, File, []byte{0xAA})
	if err := fs.DeleteFile("openpgp", 0x0065, File); err != nil {
		t.Fatalf("delete: %v", err)
	}
	data, _ := fs.ReadFile("openpgp", 0x0065, File)
	if len(data) != 0 {
		t.Errorf("expected empty after delete, got %x", data)
	}
}

func TestFileBackendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.json")

	backend1, err := OpenFileBackend(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	fs1 := New(backend1)
	if err := fs1.WriteFile("openpgp", 0x005E, File, []byte("login")); err != nil {
		t.Fatalf("write: %v", err)
	}

	backend2, err := OpenFileBackend(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	fs2 := New(backend2)
	got, err := fs2.ReadFile("openpgp", 0x005E, File)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "login" {
		t.Errorf("got %q, want %q", got, "login")
	}
}
