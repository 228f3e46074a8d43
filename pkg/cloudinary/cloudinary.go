package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether every credential is present.
func (c Config) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// ArtifactStore mirrors result files to Cloudinary as raw assets.
type ArtifactStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs an artifact store.
func New(cfg Config, logger zerolog.Logger) (*ArtifactStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &ArtifactStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the artifact under a stable public id derived from its file
// name. Re-uploading the same daily file replaces the remote copy.
func (s *ArtifactStore) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     PublicID(name),
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload artifact: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("artifact mirrored to cloudinary")

	return result.SecureURL, nil
}

// PublicID keeps the extension, since raw assets are served by exact name.
func PublicID(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '-'
	}, strings.TrimSuffix(base, ext))

	stem = strings.Trim(stem, "-")
	if stem == "" {
		stem = "artifact"
	}
	return stem + ext
}
