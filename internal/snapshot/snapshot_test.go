package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvp-go/internal/database"
	"tvp-go/internal/encryption"
	"tvp-go/internal/snapshot"
	"tvp-go/internal/testutil"
)

func seed(t *testing.T, db *database.DB, names ...string) {
	t.Helper()
	_, err := db.Writer.Exec("CREATE TABLE IF NOT EXISTS channels (_id INTEGER PRIMARY KEY, display_name TEXT)")
	require.NoError(t, err)
	for _, n := range names {
		_, err := db.Writer.Exec("INSERT INTO channels (display_name) VALUES (?)", n)
		require.NoError(t, err)
	}
}

func countChannels(t *testing.T, path string) int {
	t.Helper()
	db, err := database.Open(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.Reader.QueryRow("SELECT COUNT(*) FROM channels").Scan(&n))
	return n
}

func TestService_PushPull(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	seed(t, db, "BBC One", "Arte")

	enc := testutil.NewTestEncryptor()
	svc := snapshot.NewService(db, testutil.NewTestVault(), enc, "living-room", nil)

	v, err := svc.RemoteVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	v, err = svc.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	seed(t, db, "NHK")
	v, err = svc.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	dc, err := enc.Unlock("")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "restored", "store.db")
	v, err = svc.Pull(ctx, dc, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, 3, countChannels(t, dest))
}

func TestService_PullWithoutSnapshot(t *testing.T) {
	svc := snapshot.NewService(testutil.NewTestDatabase(t), testutil.NewTestVault(),
		testutil.NewTestEncryptor(), "den", nil)

	_, err := svc.Pull(context.Background(), &encryption.TestDecryptionContext{},
		filepath.Join(t.TempDir(), "store.db"))
	require.Error(t, err)
}

func TestService_PullDecryptFailureKeepsDest(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	seed(t, db, "BBC One")

	dir := t.TempDir()
	keys := encryptionConfig(dir)
	enc := encryption.NewAgeEncryptor(keys)
	require.NoError(t, enc.Setup("pw"))

	svc := snapshot.NewService(db, testutil.NewTestVault(), enc, "den", nil)
	_, err := svc.Push(ctx)
	require.NoError(t, err)

	dest := filepath.Join(dir, "store.db")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0600))

	// A test context cannot read age ciphertext.
	_, err = svc.Pull(ctx, &encryption.TestDecryptionContext{}, dest)
	require.Error(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))

	dc, err := enc.Unlock("pw")
	require.NoError(t, err)
	_, err = svc.Pull(ctx, dc, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, countChannels(t, dest))
}

func TestService_PushCanceled(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	seed(t, db, "BBC One")
	vault := testutil.NewTestVault()
	svc := snapshot.NewService(db, vault, testutil.NewTestEncryptor(), "den", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Push(ctx)
	require.Error(t, err)

	v, err := svc.RemoteVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}
