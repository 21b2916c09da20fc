package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages account records: profile, addresses and read views
type UserService struct {
	store   *store.Store
	catalog *ProductService
	logger  *zap.Logger
}

func NewUserService(store *store.Store, catalog *ProductService) *UserService {
	return &UserService{
		store:   store,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// GetAccount returns the user's record with credentials removed and
// wishlist/cart snapshots refreshed from the live catalog.
func (s *UserService) GetAccount(ctx context.Context, email string) (*models.UserData, error) {
	ctx, span := util.StartSpan(ctx, "UserService.GetAccount")
	defer span.End()

	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil, notFound("account not found")
	}

	user.Profile.PasswordHash = ""
	user.Wishlist = s.catalog.RefreshSnapshots(ctx, user.Wishlist)
	user.Cart = s.catalog.RefreshCart(ctx, user.Cart)
	return user, nil
}

// ListCustomers returns every account without credentials
func (s *UserService) ListCustomers(ctx context.Context) []models.UserData {
	ctx, span := util.StartSpan(ctx, "UserService.ListCustomers")
	defer span.End()

	users := s.store.ListUsers(ctx)
	for i := range users {
		users[i].Profile.PasswordHash = ""
	}
	return users
}

// UpdateProfile merges the editable fields; credentials and the admin flag are preserved
func (s *UserService) UpdateProfile(ctx context.Context, email string, req UpdateProfileRequest) (*models.UserProfile, error) {
	ctx, span := util.StartSpan(ctx, "UserService.UpdateProfile")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}

	var profile models.UserProfile
	err := s.store.MutateUser(ctx, email, func(u *models.UserData) error {
		u.Profile.Name = name
		u.Profile.Phone = strings.TrimSpace(req.Phone)
		profile = u.Profile
		return nil
	})
	if err != nil {
		return nil, s.writeError(err, "profile")
	}

	profile.PasswordHash = ""
	return &profile, nil
}

// SaveAddresses replaces the address book. Missing ids are generated and at
// most one address stays default: the last one flagged wins, and the first
// address is default when none is flagged.
func (s *UserService) SaveAddresses(ctx context.Context, email string, addresses []models.Address) ([]models.Address, error) {
	ctx, span := util.StartSpan(ctx, "UserService.SaveAddresses")
	defer span.End()

	out := make([]models.Address, len(addresses))
	defaultIdx := -1
	for i, addr := range addresses {
		if strings.TrimSpace(addr.Name) == "" || strings.TrimSpace(addr.Street) == "" ||
			strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.Zip) == "" {
			return nil, invalid("address %d: name, street, city and zip are required", i+1)
		}
		if addr.ID == "" {
			addr.ID = uuid.New().String()
		}
		if addr.IsDefault {
			defaultIdx = i
		}
		addr.IsDefault = false
		out[i] = addr
	}
	if defaultIdx < 0 && len(out) > 0 {
		defaultIdx = 0
	}
	if defaultIdx >= 0 {
		out[defaultIdx].IsDefault = true
	}

	if err := s.store.UpdateUserAddresses(ctx, email, out); err != nil {
		return nil, s.writeError(err, "addresses")
	}
	return out, nil
}

func (s *UserService) writeError(err error, what string) error {
	if errors.Is(err, store.ErrUserNotFound) {
		return notFound("account not found")
	}
	s.logger.Error("Failed to save user data", zap.String("part", what), zap.Error(err))
	return fmt.Errorf("failed to save %s: %w", what, err)
}
