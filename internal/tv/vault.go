package tv

import "io"

// Vault stores encrypted store snapshots away from the host.
// All operations stream through io.Reader/io.Writer so large stores are never
// held in memory by the caller.
type Vault interface {
	// PutSnapshot stores a named snapshot for a host. size is the number of
	// bytes that will be read from r. version is recorded alongside the data
	// and must grow with every push.
	PutSnapshot(hostID string, name string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the latest snapshot stored under hostID/name to w.
	GetSnapshot(hostID string, name string, w io.Writer) error

	// SnapshotVersion returns the version of the stored snapshot, or 0 if none exists.
	SnapshotVersion(hostID string, name string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
