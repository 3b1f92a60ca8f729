package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryService is the object store for sighting media.
type CloudinaryService struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryService{cld: cld}, nil
}

// Upload stores r under key and returns the secure download URL. The key's
// extension is dropped from the public ID because Cloudinary appends the
// detected format itself.
func (s *CloudinaryService) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	uploadResult, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     PublicID(key),
		ResourceType: "auto", // images and videos share one folder
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return uploadResult.SecureURL, nil
}

// PublicID converts an object key such as sightings-media/1700_a.jpg into the
// Cloudinary public ID sightings-media/1700_a.
func PublicID(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}
