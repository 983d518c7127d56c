package services

import (
	"context"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
)

type UploadService struct {
	assets *assets.Manager
	logger logging.Logger
}

func NewUploadService(am *assets.Manager, logger logging.Logger) *UploadService {
	return &UploadService{assets: am, logger: logger.With("module", "uploads")}
}

// RequestUpload issues a presigned PUT for a new staged object owned by the
// viewer. The returned reference is what clients attach to posts, collections
// and avatars.
func (s *UploadService) RequestUpload(ctx context.Context, viewer access.Viewer, fileName, contentType string) (*assets.UploadCapability, error) {
	const op = "uploads.RequestUpload"

	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	if !assets.AllowedContentType(contentType) {
		return nil, common.Validation(op, "contentType", "unsupported content type")
	}

	c, err := s.assets.IssueUploadCapability(ctx, fileName, contentType, viewer.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "upload capability issued", "owner_id", viewer.ID, "key", c.Key)
	return c, nil
}
