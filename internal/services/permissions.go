package services

import (
	"context"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
	"github.com/mapcrew/backend/usecase"
)

// PermissionChecker answers read/write access questions from the challenge
// and project ownership data. It stands in for the platform's permission
// service; denial is a typed FORBIDDEN error, never a silent false.
type PermissionChecker struct {
	challenges repository.ChallengeRepository
}

func NewPermissionChecker(challenges repository.ChallengeRepository) *PermissionChecker {
	return &PermissionChecker{challenges: challenges}
}

func (p *PermissionChecker) HasReadAccess(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	if user.Superuser {
		return nil
	}
	switch itemType {
	case domain.ItemTypeChallenge:
		challenge, err := p.challenges.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if challenge.VisibleTo(user) {
			return nil
		}
	}
	return domain.ErrNotAuthorized
}

func (p *PermissionChecker) HasWriteAccess(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	if user.Superuser {
		return nil
	}
	switch itemType {
	case domain.ItemTypeChallenge:
		challenge, err := p.challenges.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if challenge.WritableBy(user) {
			return nil
		}
	}
	return domain.ErrNotAuthorized
}

var _ usecase.Permissions = (*PermissionChecker)(nil)
