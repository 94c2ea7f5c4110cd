// Package docstore provides a content-addressed blob store for manuscript
// documents. Blobs are keyed by the SHA-256 digest of their content, so
// storing the same bytes twice yields the same reference and the merged
// artifact produced at intake is immutable by construction.
package docstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixir/peer-review-service/internal/domain"
)

// Sentinel errors for document store operations.
var (
	// ErrNotPDF is returned when the content does not carry a PDF signature.
	ErrNotPDF = errors.New("docstore: content is not a PDF")
	// ErrTooLarge is returned when the content exceeds the maximum allowed size.
	ErrTooLarge = errors.New("docstore: content exceeds maximum size")
	// ErrInvalidRef is returned when a reference is not a well-formed sha256 ref.
	ErrInvalidRef = errors.New("docstore: invalid document reference")
)

// refPrefix is the scheme prefix carried by every document reference.
const refPrefix = "sha256:"

// pdfMagic is the signature every stored PDF must start with.
var pdfMagic = []byte("%PDF-")

// Config holds document store configuration.
type Config struct {
	// Root is the directory blobs are written under.
	Root string
	// MaxSize is the maximum blob size in bytes. Default: 100MB.
	MaxSize int64
}

// Store is a filesystem-backed content-addressed blob store.
type Store struct {
	root    string
	maxSize int64
}

// New creates a document store rooted at cfg.Root, creating the directory
// if it does not exist.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, domain.NewValidationError("root", "document store root is required")
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 100 * 1024 * 1024 // 100MB
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, domain.NewStorageError("init", err)
	}
	return &Store{root: cfg.Root, maxSize: cfg.MaxSize}, nil
}

// ValidatePDF checks that content starts with the PDF signature.
func ValidatePDF(content []byte) error {
	if !bytes.HasPrefix(content, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}

// Put writes content to the store and returns its reference. The write is
// atomic: content lands in a temp file that is renamed into place, so a
// crashed write never leaves a partially-written blob addressable.
// Storing content that already exists is a no-op returning the same ref.
func (s *Store) Put(ctx context.Context, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewStorageError("put", err)
	}
	if int64(len(content)) > s.maxSize {
		return "", fmt.Errorf("%w: %d bytes over %d limit", ErrTooLarge, len(content), s.maxSize)
	}

	digest := sha256.Sum256(content)
	ref := refPrefix + hex.EncodeToString(digest[:])

	path, err := s.blobPath(ref)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", domain.NewStorageError("put", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return "", domain.NewStorageError("put", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", domain.NewStorageError("put", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", domain.NewStorageError("put", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", domain.NewStorageError("put", err)
	}

	return ref, nil
}

// Get reads the blob for the given reference.
// Returns domain.ErrNotFound if no blob exists for the reference.
func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("get", err)
	}

	path, err := s.blobPath(ref)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewNotFoundError("document", ref)
		}
		return nil, domain.NewStorageError("get", err)
	}

	// Integrity check: the stored bytes must still hash to the reference.
	digest := sha256.Sum256(content)
	if refPrefix+hex.EncodeToString(digest[:]) != ref {
		return nil, domain.NewStorageError("get", fmt.Errorf("blob %s failed integrity check", ref))
	}

	return content, nil
}

// Merge concatenates the blobs for firstRef then secondRef, stores the
// result, and returns its reference. The merged artifact is produced before
// anything else is committed, so a merge failure aborts the caller's whole
// operation with nothing persisted.
func (s *Store) Merge(ctx context.Context, firstRef, secondRef string) (string, error) {
	first, err := s.Get(ctx, firstRef)
	if err != nil {
		return "", err
	}
	second, err := s.Get(ctx, secondRef)
	if err != nil {
		return "", err
	}

	merged := make([]byte, 0, len(first)+len(second))
	merged = append(merged, first...)
	merged = append(merged, second...)

	ref, err := s.Put(ctx, merged)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", domain.NewStorageError("merge", err)
	}
	return ref, nil
}

// Exists reports whether a blob is present for the reference.
func (s *Store) Exists(ref string) bool {
	path, err := s.blobPath(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// blobPath maps a reference to its filesystem location. Blobs are fanned out
// by the first two hex digits to keep directory sizes bounded.
func (s *Store) blobPath(ref string) (string, error) {
	digest, ok := strings.CutPrefix(ref, refPrefix)
	if !ok || len(digest) != sha256.Size*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.root, digest[:2], digest), nil
}
