package service

import (
	"context"
	"math"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PricingService owns coupons, the global discount, tax and shipping rules
type PricingService struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewPricingService(store *store.Store) *PricingService {
	return &PricingService{
		store:  store,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// CouponInput is the admin coupon form. ExpiryDate accepts RFC 3339 or YYYY-MM-DD.
type CouponInput struct {
	Code         string              `json:"code"`
	DiscountType models.DiscountType `json:"discountType"`
	Value        float64             `json:"value"`
	ExpiryDate   string              `json:"expiryDate,omitempty"`
	MinSpend     *float64            `json:"minSpend,omitempty"`
	UsageLimit   *int                `json:"usageLimit,omitempty"`
}

func (in CouponInput) toCoupon(id string) (models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return models.Coupon{}, invalid("coupon code is required")
	}

	switch in.DiscountType {
	case models.DiscountPercentage:
		if in.Value <= 0 || in.Value > 100 {
			return models.Coupon{}, invalid("percentage discount must be greater than 0 and at most 100")
		}
	case models.DiscountFixed:
		if in.Value <= 0 || !finite(in.Value) {
			return models.Coupon{}, invalid("fixed discount must be greater than 0")
		}
	default:
		return models.Coupon{}, invalid("discount type must be percentage or fixed")
	}

	if in.MinSpend != nil && (*in.MinSpend < 0 || !finite(*in.MinSpend)) {
		return models.Coupon{}, invalid("minimum spend cannot be negative")
	}
	if in.UsageLimit != nil && *in.UsageLimit < 0 {
		return models.Coupon{}, invalid("usage limit cannot be negative")
	}

	coupon := models.Coupon{
		ID:           id,
		Code:         code,
		DiscountType: in.DiscountType,
		Value:        in.Value,
		MinSpend:     in.MinSpend,
		UsageLimit:   in.UsageLimit,
	}

	if expiry := strings.TrimSpace(in.ExpiryDate); expiry != "" {
		t, err := parseExpiry(expiry)
		if err != nil {
			return models.Coupon{}, invalid("expiry date is not a valid date")
		}
		coupon.ExpiryDate = &t
	}
	return coupon, nil
}

// parseExpiry treats a bare date as valid until the end of that day (UTC)
func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Second), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s *PricingService) GetCoupons(ctx context.Context) []models.Coupon {
	return s.store.GetCoupons(ctx)
}

// AddCoupon stores the code uppercased; codes are unique ignoring case
func (s *PricingService) AddCoupon(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.AddCoupon")
	defer span.End()

	coupon, err := in.toCoupon(uuid.New().String())
	if err != nil {
		return nil, err
	}

	err = s.store.MutateCoupons(ctx, func(coupons *[]models.Coupon) error {
		if codeTaken(*coupons, coupon.Code, "") {
			return conflict("coupon code %s already exists", coupon.Code)
		}
		*coupons = append(*coupons, coupon)
		return nil
	})
	if err != nil {
		return nil, wrapWrite(err, "coupon")
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code))
	return &coupon, nil
}

func (s *PricingService) UpdateCoupon(ctx context.Context, id string, in CouponInput) (*models.Coupon, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.UpdateCoupon")
	defer span.End()

	coupon, err := in.toCoupon(id)
	if err != nil {
		return nil, err
	}

	err = s.store.MutateCoupons(ctx, func(coupons *[]models.Coupon) error {
		if codeTaken(*coupons, coupon.Code, id) {
			return conflict("coupon code %s already exists", coupon.Code)
		}
		for i := range *coupons {
			if (*coupons)[i].ID == id {
				(*coupons)[i] = coupon
				return nil
			}
		}
		return notFound("coupon not found")
	})
	if err != nil {
		return nil, wrapWrite(err, "coupon")
	}
	return &coupon, nil
}

func (s *PricingService) DeleteCoupon(ctx context.Context, id string) error {
	err := s.store.MutateCoupons(ctx, func(coupons *[]models.Coupon) error {
		for i := range *coupons {
			if (*coupons)[i].ID == id {
				*coupons = append((*coupons)[:i], (*coupons)[i+1:]...)
				return nil
			}
		}
		return notFound("coupon not found")
	})
	return wrapWrite(err, "coupon")
}

func codeTaken(coupons []models.Coupon, code, ignoreID string) bool {
	for _, c := range coupons {
		if c.ID != ignoreID && strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

// ValidateCoupon checks that the code exists, has not expired and that subtotal meets its minimum spend.
// Usage limits are stored but redemptions are not counted.
func (s *PricingService) ValidateCoupon(ctx context.Context, code string, subtotal float64) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("coupon code is required")
	}

	for _, c := range s.store.GetCoupons(ctx) {
		if !strings.EqualFold(c.Code, code) {
			continue
		}
		if c.ExpiryDate != nil && s.now().After(*c.ExpiryDate) {
			return nil, invalid("coupon %s has expired", c.Code)
		}
		if c.MinSpend != nil && subtotal < *c.MinSpend {
			return nil, invalid("coupon %s requires a minimum spend of %.2f", c.Code, *c.MinSpend)
		}
		coupon := c
		return &coupon, nil
	}
	return nil, invalid("coupon %s is not valid", strings.ToUpper(code))
}

// CouponDiscount is the amount the coupon takes off amount, never more than amount
func CouponDiscount(c models.Coupon, amount float64) float64 {
	var off float64
	switch c.DiscountType {
	case models.DiscountPercentage:
		off = amount * c.Value / 100
	case models.DiscountFixed:
		off = c.Value
	}
	return math.Min(math.Max(off, 0), amount)
}

func (s *PricingService) GetGlobalDiscountPercentage(ctx context.Context) float64 {
	return s.store.GetGlobalDiscount(ctx).Percentage
}

func (s *PricingService) UpdateGlobalDiscountPercentage(ctx context.Context, percentage float64) (float64, error) {
	if !finite(percentage) || percentage < 0 || percentage > 100 {
		return 0, invalid("discount percentage must be between 0 and 100")
	}
	if err := s.store.SaveGlobalDiscount(ctx, models.GlobalDiscount{Percentage: percentage}); err != nil {
		return 0, wrapWrite(err, "global discount")
	}
	s.logger.Info("Global discount updated", zap.Float64("percentage", percentage))
	return percentage, nil
}

func (s *PricingService) GetTaxRate(ctx context.Context) float64 {
	return s.store.GetTaxRate(ctx).Rate
}

func (s *PricingService) UpdateTaxRate(ctx context.Context, rate float64) (float64, error) {
	if !finite(rate) || rate < 0 || rate > 100 {
		return 0, invalid("tax rate must be between 0 and 100")
	}
	if err := s.store.SaveTaxRate(ctx, models.TaxRate{Rate: rate}); err != nil {
		return 0, wrapWrite(err, "tax rate")
	}
	s.logger.Info("Tax rate updated", zap.Float64("rate", rate))
	return rate, nil
}

func (s *PricingService) GetShippingSettings(ctx context.Context) models.ShippingSettings {
	return s.store.GetShippingSettings(ctx)
}

func (s *PricingService) UpdateShippingSettings(ctx context.Context, rate, threshold float64) (*models.ShippingSettings, error) {
	if !finite(rate) || rate < 0 {
		return nil, invalid("shipping rate cannot be negative")
	}
	if !finite(threshold) || threshold < 0 {
		return nil, invalid("free shipping threshold cannot be negative")
	}

	settings := models.ShippingSettings{Rate: rate, Threshold: threshold}
	if err := s.store.SaveShippingSettings(ctx, settings); err != nil {
		return nil, wrapWrite(err, "shipping settings")
	}
	s.logger.Info("Shipping settings updated", zap.Float64("rate", rate), zap.Float64("threshold", threshold))
	return &settings, nil
}
