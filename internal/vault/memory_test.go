package vault

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestMemoryVault_PutAndGetSnapshot(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		host    string
		content string
	}{
		{name: "store and retrieve snapshot", host: "living-room", content: "SQLite format 3"},
		{name: "store empty snapshot", host: "empty-host", content: ""},
		{name: "store large snapshot", host: "large-host", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			if err := vault.PutSnapshot(tt.host, "store", r, int64(len(tt.content)), 1); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetSnapshot(tt.host, "store", &buf); err != nil {
				t.Fatalf("GetSnapshot() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetSnapshot() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	err := vault.PutSnapshot("h1", "store", strings.NewReader("hello"), 100, 1)
	if err == nil {
		t.Fatal("PutSnapshot() expected size mismatch error")
	}
	if v, _ := vault.SnapshotVersion("h1", "store"); v != 0 {
		t.Errorf("SnapshotVersion() = %d after failed put, want 0", v)
	}
}

func TestMemoryVault_GetMissing(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	if err := vault.GetSnapshot("nobody", "store", &buf); err == nil {
		t.Fatal("GetSnapshot() expected error for missing snapshot")
	}
}

func TestMemoryVault_Versions(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if v, err := vault.SnapshotVersion("h1", "store"); err != nil || v != 0 {
		t.Fatalf("SnapshotVersion() = %d, %v; want 0, nil", v, err)
	}

	for version := int64(1); version <= 3; version++ {
		data := "v" + strings.Repeat("!", int(version))
		if err := vault.PutSnapshot("h1", "store", strings.NewReader(data), int64(len(data)), version); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
	}

	v, err := vault.SnapshotVersion("h1", "store")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if v != 3 {
		t.Errorf("SnapshotVersion() = %d, want 3", v)
	}

	var buf bytes.Buffer
	if err := vault.GetSnapshot("h1", "store", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != "v!!!" {
		t.Errorf("GetSnapshot() = %q, want latest", buf.String())
	}

	if v, _ := vault.SnapshotVersion("h2", "store"); v != 0 {
		t.Errorf("SnapshotVersion(h2) = %d, want 0", v)
	}
}

func TestMemoryVault_ConcurrentAccess(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			host := "host-" + strings.Repeat("a", i+1)
			data := strings.Repeat("d", i)
			if err := vault.PutSnapshot(host, "store", strings.NewReader(data), int64(len(data)), int64(i+1)); err != nil {
				t.Errorf("PutSnapshot() error = %v", err)
			}
			var buf bytes.Buffer
			if err := vault.GetSnapshot(host, "store", &buf); err != nil {
				t.Errorf("GetSnapshot() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
