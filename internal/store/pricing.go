package store

import (
	"context"

	"storefront/internal/models"
)

// GetCoupons returns every coupon
func (s *Store) GetCoupons(ctx context.Context) []models.Coupon {
	return s.coupons.Read(ctx)
}

// MutateCoupons runs fn on the coupon list under the coupons file lock
func (s *Store) MutateCoupons(ctx context.Context, fn func(*[]models.Coupon) error) error {
	return s.coupons.Update(ctx, fn)
}

func (s *Store) GetGlobalDiscount(ctx context.Context) models.GlobalDiscount {
	return s.discount.Read(ctx)
}

func (s *Store) SaveGlobalDiscount(ctx context.Context, d models.GlobalDiscount) error {
	return s.discount.Write(ctx, d)
}

func (s *Store) GetTaxRate(ctx context.Context) models.TaxRate {
	return s.tax.Read(ctx)
}

func (s *Store) SaveTaxRate(ctx context.Context, t models.TaxRate) error {
	return s.tax.Write(ctx, t)
}

func (s *Store) GetShippingSettings(ctx context.Context) models.ShippingSettings {
	return s.shipping.Read(ctx)
}

func (s *Store) SaveShippingSettings(ctx context.Context, settings models.ShippingSettings) error {
	return s.shipping.Write(ctx, settings)
}

func (s *Store) GetAdminCredentials(ctx context.Context) models.AdminCredentials {
	return s.admin.Read(ctx)
}

// ConfigureAdminCredentials stores the credentials only if none are configured yet.
// It reports whether they were stored.
func (s *Store) ConfigureAdminCredentials(ctx context.Context, creds models.AdminCredentials) (bool, error) {
	stored := false
	err := s.admin.Update(ctx, func(current *models.AdminCredentials) error {
		if current.Configured() {
			return errSkipWrite
		}
		*current = creds
		stored = true
		return nil
	})
	return stored, err
}
