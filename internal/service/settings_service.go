package service

import (
	"errors"
	"strconv"

	"feedesk/config"
	"feedesk/internal/domain"
	"feedesk/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pricing is the set of amounts used when charging a month.
type Pricing struct {
	BaseFee        int64 `json:"base_fee"`
	ReferralUnit   int64 `json:"referral_unit"`
	SignupDiscount int64 `json:"signup_discount"`
}

// SettingsService resolves pricing from system settings, falling back to config.
type SettingsService struct {
	repo     *repository.SettingRepository
	defaults config.BillingConfig
	log      *zap.Logger
}

func NewSettingsService(repo *repository.SettingRepository, defaults config.BillingConfig, log *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults, log: log}
}

func (s *SettingsService) Pricing() Pricing {
	return Pricing{
		BaseFee:        s.getInt(domain.SettingBaseFee, s.defaults.BaseFee),
		ReferralUnit:   s.getInt(domain.SettingReferralUnit, s.defaults.ReferralUnit),
		SignupDiscount: s.getInt(domain.SettingSignupDiscount, s.defaults.SignupDiscount),
	}
}

// UpdatePricing stores overrides. Negative amounts are rejected.
func (s *SettingsService) UpdatePricing(p Pricing) error {
	if p.BaseFee < 0 || p.ReferralUnit < 0 || p.SignupDiscount < 0 {
		return domain.NewError(domain.KindValidation, "amounts must not be negative")
	}
	values := map[string]int64{
		domain.SettingBaseFee:        p.BaseFee,
		domain.SettingReferralUnit:   p.ReferralUnit,
		domain.SettingSignupDiscount: p.SignupDiscount,
	}
	for k, v := range values {
		if err := s.repo.Set(k, strconv.FormatInt(v, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettingsService) getInt(key string, fallback int64) int64 {
	v, err := s.repo.Get(key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("read setting", zap.String("key", key), zap.Error(err))
		}
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		s.log.Warn("bad setting value", zap.String("key", key), zap.String("value", v))
		return fallback
	}
	return n
}
