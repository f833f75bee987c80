package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
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

// Service stores attempt audio in Cloudinary and hands back retrievable URLs.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// UploadAudio stores the audio under the given key (a slash-separated path
// namespacing user/session/segment/attempt) and returns a secure URL.
func (s *Service) UploadAudio(ctx context.Context, key string, reader io.Reader) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", fmt.Errorf("upload key must not be empty")
	}

	folder := s.folder
	if dir := path.Dir(key); dir != "." {
		folder = path.Join(folder, dir)
	}

	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:       folder,
		PublicID:     sanitizePublicID(path.Base(key)),
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("audio uploaded to cloudinary")

	return result.SecureURL, nil
}

func sanitizePublicID(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)

	return strings.Trim(name, "-")
}
