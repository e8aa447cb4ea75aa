package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/auth"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// ShareService issues share capabilities and turns redeemed ones into
// directory shares.
type ShareService struct {
	codec       *auth.Codec
	dir         Directory
	concurrency int
	log         logging.Logger
}

// NewShareService builds the service. concurrency bounds the directory calls
// of ShareObjects; zero means DefaultBulkConcurrency.
func NewShareService(codec *auth.Codec, dir Directory, concurrency int, log logging.Logger) *ShareService {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ShareService{codec: codec, dir: dir, concurrency: concurrency, log: log.With("service", "share")}
}

// IssueShareCapability signs a grant of permission on resourceID by
// subjectID, valid for ttlSeconds.
func (s *ShareService) IssueShareCapability(subjectID, resourceID, permission string, ttlSeconds int) (string, error) {
	return s.codec.Issue(subjectID, resourceID, permission, ttlSeconds)
}

// InspectShareCapability returns what a token grants without redeeming it.
func (s *ShareService) InspectShareCapability(token string, now time.Time) (auth.Capability, error) {
	return s.codec.Verify(token, now)
}

// RedeemShareCapability verifies token at now and shares the resource with
// recipientID on behalf of the grantor.
func (s *ShareService) RedeemShareCapability(ctx context.Context, token, recipientID string, now time.Time) (*models.ShareResult, error) {
	c, err := s.codec.Verify(token, now)
	if err != nil {
		return nil, err
	}
	if recipientID == "" {
		return nil, common.Validationf("recipient is required")
	}
	if recipientID == c.SubjectID {
		return nil, common.Validationf("a share link cannot be redeemed by its grantor")
	}

	res, err := s.dir.Share(ctx, c.SubjectID, c.ResourceID, recipientID, c.Permission)
	if err != nil {
		return nil, fmt.Errorf("share %s with %s: %w", c.ResourceID, recipientID, err)
	}
	s.log.Info(ctx, "share link redeemed", "resource", c.ResourceID, "grantor", c.SubjectID,
		"recipient", recipientID, "permission", c.Permission)
	return res, nil
}

// ShareObjects shares every node in ids with every recipient. Results come
// back ordered by node, then by recipient. The first failure stops the
// shares not yet started; shares already made are kept.
func (s *ShareService) ShareObjects(ctx context.Context, owner string, ids, recipients []string, permission string) ([]*models.ShareResult, error) {
	if len(ids) == 0 || len(recipients) == 0 {
		return nil, common.Validationf("ids and recipients are required")
	}

	out := make([]*models.ShareResult, len(ids)*len(recipients))
	err := fanOut(ctx, len(out), s.concurrency, func(ctx context.Context, i int) error {
		id, recipient := ids[i/len(recipients)], recipients[i%len(recipients)]
		res, err := s.dir.Share(ctx, owner, id, recipient, permission)
		if err != nil {
			return fmt.Errorf("share %s with %s: %w", id, recipient, err)
		}
		out[i] = res
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "bulk share stopped", "objects", len(ids), "recipients", len(recipients), "error", err)
		return nil, err
	}

	s.log.Info(ctx, "objects shared", "objects", len(ids), "recipients", len(recipients), "permission", permission)
	return out, nil
}
