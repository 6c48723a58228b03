package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/pkg/cloudinary"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxProofSize caps proof of payment uploads.
const MaxProofSize = 5 << 20

// ProofStore persists a proof of payment image and returns where it lives.
// Discard removes a proof saved by Save whose purchase did not go through.
type ProofStore interface {
	Save(c *gin.Context, file *multipart.FileHeader) (string, error)
	Discard(ctx context.Context, location string) error
}

// CloudinaryProofStore uploads proofs to a Cloudinary folder.
type CloudinaryProofStore struct {
	cloud  cloudinary.Client
	folder string
}

func NewCloudinaryProofStore(cloud cloudinary.Client, folder string) *CloudinaryProofStore {
	return &CloudinaryProofStore{cloud: cloud, folder: folder}
}

func (s *CloudinaryProofStore) Save(c *gin.Context, file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.cloud.UploadImage(c.Request.Context(), f, s.folder, proofID())
}

// Discard destroys the image behind a URL returned by Save.
func (s *CloudinaryProofStore) Discard(ctx context.Context, location string) error {
	return s.cloud.DeleteImage(ctx, path.Join(s.folder, proofName(location)))
}

// DiskProofStore writes proofs under dir and serves them below urlPrefix.
type DiskProofStore struct {
	dir       string
	urlPrefix string
}

func NewDiskProofStore(dir, urlPrefix string) (*DiskProofStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskProofStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *DiskProofStore) Save(c *gin.Context, file *multipart.FileHeader) (string, error) {
	name := proofID() + strings.ToLower(filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// Discard deletes the file behind a URL returned by Save.
func (s *DiskProofStore) Discard(_ context.Context, location string) error {
	if !strings.HasPrefix(location, s.urlPrefix+"/") {
		return fmt.Errorf("proof %q not stored under %s", location, s.urlPrefix)
	}
	err := os.Remove(filepath.Join(s.dir, path.Base(location)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// proofName strips the directory and extension from a stored proof URL.
func proofName(location string) string {
	base := path.Base(location)
	return strings.TrimSuffix(base, path.Ext(base))
}

func proofID() string {
	return "proof_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// checkProof accepts images up to MaxProofSize, sniffing the content rather
// than trusting the client's header.
func checkProof(file *multipart.FileHeader) error {
	if file.Size > MaxProofSize {
		return models.NewValidationError("proofOfPayment", "file exceeds 5MB")
	}
	f, err := file.Open()
	if err != nil {
		return models.NewValidationError("proofOfPayment", "could not read file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return models.NewValidationError("proofOfPayment", "only image files are allowed")
	}
	return nil
}

// ProofStoreFunc adapts a function to ProofStore; handy in tests. Discard
// is a no-op.
type ProofStoreFunc func(ctx context.Context, file *multipart.FileHeader) (string, error)

func (f ProofStoreFunc) Save(c *gin.Context, file *multipart.FileHeader) (string, error) {
	return f(c.Request.Context(), file)
}

func (f ProofStoreFunc) Discard(context.Context, string) error { return nil }
