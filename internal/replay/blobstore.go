package replay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is the object-store contract the core depends on. The
// durable schema keeps only metadata plus the returned path.
type BlobStore interface {
	PutBlob(data []byte) (string, error)
	GetBlob(path string) ([]byte, error)
}

// FSBlobStore keeps replay blobs on the local filesystem, content
// addressed by hash so duplicate uploads collapse onto one path.
type FSBlobStore struct {
	root string
}

// NewFSBlobStore creates the root directory if needed.
func NewFSBlobStore(root string) (*FSBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	return &FSBlobStore{root: root}, nil
}

// PutBlob writes data and returns the blob's path.
func (s *FSBlobStore) PutBlob(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:]) + ".rep"
	path := filepath.Join(s.root, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write replay blob: %w", err)
	}
	return path, nil
}

// GetBlob reads the blob back.
func (s *FSBlobStore) GetBlob(path string) ([]byte, error) {
	if filepath.Dir(path) != filepath.Clean(s.root) {
		return nil, fmt.Errorf("replay path %q outside store", path)
	}
	return os.ReadFile(path)
}

// HashBlob returns the hex digest used for replay_hash.
func HashBlob(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
