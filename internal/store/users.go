package store

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"storefront/internal/models"
)

// GetUserData looks up a user by exact email key; nil when absent
func (s *Store) GetUserData(ctx context.Context, email string) *models.UserData {
	users := s.users.Read(ctx)
	user, ok := users[email]
	if !ok {
		return nil
	}
	return &user
}

// ListUsers returns every user ordered by email
func (s *Store) ListUsers(ctx context.Context) []models.UserData {
	users := s.users.Read(ctx)

	emails := make([]string, 0, len(users))
	for email := range users {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	out := make([]models.UserData, 0, len(emails))
	for _, email := range emails {
		out = append(out, users[email])
	}
	return out
}

// InitializeUserAccount creates the user if missing. An existing record is returned untouched.
func (s *Store) InitializeUserAccount(ctx context.Context, profile models.UserProfile) (*models.UserData, error) {
	if profile.Email == "" {
		return nil, errors.New("email is required")
	}

	var result models.UserData
	err := s.users.Update(ctx, func(users *map[string]models.UserData) error {
		if existing, ok := (*users)[profile.Email]; ok {
			result = existing
			return errSkipWrite
		}

		result = models.UserData{
			Profile:   profile,
			Addresses: []models.Address{},
			Orders:    []models.Order{},
			Wishlist:  []models.Product{},
			Cart:      []models.CartItem{},
		}
		(*users)[profile.Email] = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MutateUser runs fn on one user record under the users file lock
func (s *Store) MutateUser(ctx context.Context, email string, fn func(*models.UserData) error) error {
	return s.users.Update(ctx, func(users *map[string]models.UserData) error {
		user, ok := (*users)[email]
		if !ok {
			return ErrUserNotFound
		}
		if err := fn(&user); err != nil {
			return err
		}
		(*users)[email] = user
		return nil
	})
}

// UpdateUserAddresses replaces the whole address list
func (s *Store) UpdateUserAddresses(ctx context.Context, email string, addresses []models.Address) error {
	return s.MutateUser(ctx, email, func(u *models.UserData) error {
		u.Addresses = nonNil(addresses)
		return nil
	})
}

// AddOrder appends an order and keeps the list newest-first
func (s *Store) AddOrder(ctx context.Context, email string, order models.Order) error {
	return s.MutateUser(ctx, email, func(u *models.UserData) error {
		u.Orders = append(u.Orders, order)
		SortOrders(u.Orders)
		return nil
	})
}

// UpdateOrderStatus overwrites the status of one of the user's orders and returns the previous one.
// Any transition between known statuses is accepted.
func (s *Store) UpdateOrderStatus(ctx context.Context, email, orderID string, status models.OrderStatus) (models.OrderStatus, error) {
	if !status.Valid() {
		return "", ErrInvalidStatus
	}

	var previous models.OrderStatus
	err := s.MutateUser(ctx, email, func(u *models.UserData) error {
		for i := range u.Orders {
			if u.Orders[i].ID == orderID {
				previous = u.Orders[i].Status
				u.Orders[i].Status = status
				return nil
			}
		}
		return ErrOrderNotFound
	})
	return previous, err
}

// FindOrder locates an order by id across all users
func (s *Store) FindOrder(ctx context.Context, orderID string) (string, *models.Order) {
	for _, user := range s.ListUsers(ctx) {
		for i := range user.Orders {
			if user.Orders[i].ID == orderID {
				order := user.Orders[i]
				return user.Profile.Email, &order
			}
		}
	}
	return "", nil
}

// ListOrders returns every order with its owner, newest-first
func (s *Store) ListOrders(ctx context.Context) []models.CustomerOrder {
	users := s.users.Read(ctx)

	out := make([]models.CustomerOrder, 0)
	for email, user := range users {
		for _, order := range user.Orders {
			out = append(out, models.CustomerOrder{Email: email, Order: order})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if orderBefore(out[i].Order, out[j].Order) {
			return true
		}
		if orderBefore(out[j].Order, out[i].Order) {
			return false
		}
		return out[i].Email < out[j].Email
	})
	return out
}

// SortOrders orders newest-first by numeric id. Orders whose id is not an
// integer go after numeric ones, newest date first.
func SortOrders(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orderBefore(orders[i], orders[j])
	})
}

func orderBefore(a, b models.Order) bool {
	ai, aErr := strconv.ParseInt(a.ID, 10, 64)
	bi, bErr := strconv.ParseInt(b.ID, 10, 64)

	switch {
	case aErr == nil && bErr == nil:
		return ai > bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	case a.Date != b.Date:
		return a.Date > b.Date
	default:
		return a.ID > b.ID
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
