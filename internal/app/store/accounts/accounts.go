// Package accounts performs the account writes that span several
// collections: completing onboarding and deleting an account.
package accounts

import (
	"context"
	"errors"

	coursestore "github.com/hwankr/courseplanner/internal/app/store/courses"
	feedbackstore "github.com/hwankr/courseplanner/internal/app/store/feedback"
	gradreqstore "github.com/hwankr/courseplanner/internal/app/store/gradreqs"
	patchnotestore "github.com/hwankr/courseplanner/internal/app/store/patchnotes"
	planstore "github.com/hwankr/courseplanner/internal/app/store/plans"
	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/app/system/txn"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyOnboarded is returned when onboarding is submitted twice.
	ErrAlreadyOnboarded = errors.New("onboarding already completed")
	// ErrSelfDelete is returned when an admin targets their own account
	// through RemoveUser.
	ErrSelfDelete = errors.New("cannot delete your own account here")
)

// Service owns the multi-collection account writes.
type Service struct {
	client *mongo.Client
	log    *zap.Logger

	users    *userstore.Store
	plans    *planstore.Store
	reqs     *gradreqstore.Store
	feedback *feedbackstore.Store
	notes    *patchnotestore.Store
	courses  *coursestore.Store
}

// New creates a Service. A nil client runs every write without a transaction.
func New(client *mongo.Client, db *mongo.Database, log *zap.Logger) *Service {
	return &Service{
		client:   client,
		log:      log,
		users:    userstore.New(db),
		plans:    planstore.New(db),
		reqs:     gradreqstore.New(db),
		feedback: feedbackstore.New(db),
		notes:    patchnotestore.New(db),
		courses:  coursestore.New(db),
	}
}

// CompleteOnboarding writes the profile and the graduation requirement
// together and returns the updated user.
func (s *Service) CompleteOnboarding(ctx context.Context, userID primitive.ObjectID, ob userstore.Onboarding, req models.GraduationRequirement) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.OnboardingCompleted {
		return nil, ErrAlreadyOnboarded
	}

	err = txn.Run(ctx, s.client, s.log, "onboarding", func(ctx context.Context) error {
		if err := s.users.CompleteOnboarding(ctx, userID, ob); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrAlreadyOnboarded
			}
			return err
		}
		_, err := s.reqs.Upsert(ctx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// DeleteAccount removes the user and everything the user owns: plan,
// graduation requirement, feedback, patch-note receipts and custom courses.
func (s *Service) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	return txn.Run(ctx, s.client, s.log, "delete_account", func(ctx context.Context) error {
		if _, err := s.plans.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.reqs.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.feedback.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.notes.DeleteReadsByUser(ctx, userID); err != nil {
			return err
		}
		if _, err := s.courses.DeleteByCreator(ctx, userID); err != nil {
			return err
		}
		return s.users.Delete(ctx, userID)
	})
}

// RemoveUser deletes targetID on behalf of actorID. Admins cannot remove
// themselves this way, and the last admin cannot be removed at all.
func (s *Service) RemoveUser(ctx context.Context, actorID, targetID primitive.ObjectID) (*models.User, error) {
	if actorID == targetID {
		return nil, ErrSelfDelete
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.users.EnsureNotLastAdmin(ctx, u); err != nil {
		return nil, err
	}
	if err := s.DeleteAccount(ctx, targetID); err != nil {
		return nil, err
	}
	return u, nil
}
