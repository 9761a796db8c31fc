package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"feedesk/config"
	"feedesk/internal/auth"
	"feedesk/internal/domain"
	"feedesk/internal/models"
	"feedesk/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// passwordCost is the bcrypt cost for new student passwords.
var passwordCost = 12

const (
	rollCounter       = "roll_no"
	codeGenAttempts   = 10
	minPasswordLength = 6
)

type SignupInput struct {
	Name         string
	Email        string
	Class        string
	Board        string
	Password     string
	ReferralCode string
}

type AuthService struct {
	cfg       *config.Config
	db        *gorm.DB
	students  *repository.StudentRepository
	counters  *repository.CounterRepository
	codes     *repository.CouponRepository
	referrals *ReferralService
	settings  *SettingsService
	log       *zap.Logger
}

func NewAuthService(
	cfg *config.Config,
	db *gorm.DB,
	students *repository.StudentRepository,
	counters *repository.CounterRepository,
	codes *repository.CouponRepository,
	referrals *ReferralService,
	settings *SettingsService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:       cfg,
		db:        db,
		students:  students,
		counters:  counters,
		codes:     codes,
		referrals: referrals,
		settings:  settings,
		log:       log,
	}
}

// Signup registers an unapproved student. A valid student referral code
// grants the signup discount and records a referral fact for its owner.
func (s *AuthService) Signup(in SignupInput) (*models.Student, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Name == "" || in.Class == "" || in.Board == "" {
		return nil, domain.NewError(domain.KindValidation, "name, email, class and board are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.EqualFold(in.Email, s.cfg.Admin.Email) {
		return nil, domain.ErrEmailExists
	}
	exists, err := s.students.EmailExists(in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailExists
	}

	var referrer *models.StudentCode
	if strings.TrimSpace(in.ReferralCode) != "" {
		sc, err := s.referrals.ResolveStudentCode(in.ReferralCode)
		if err != nil {
			return nil, err
		}
		referrer = &sc
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, err
	}

	st := &models.Student{
		Name:         in.Name,
		Email:        in.Email,
		Class:        strings.TrimSpace(in.Class),
		Board:        strings.TrimSpace(in.Board),
		PasswordHash: string(hash),
	}
	if referrer != nil {
		st.SignupCouponUsed = &referrer.Code
		st.SignupDiscount = s.settings.Pricing().SignupDiscount
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		seq, err := s.counters.WithTx(tx).Next(rollCounter)
		if err != nil {
			return fmt.Errorf("next roll number: %w", err)
		}
		st.RollNo = fmt.Sprintf("%s-%s-%d", st.Class, st.Board, seq)

		codes := s.codes.WithTx(tx)
		st.ReferralCode, err = uniqueReferralCode(codes)
		if err != nil {
			return err
		}
		if err := s.students.WithTx(tx).Create(st); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrEmailExists
			}
			return err
		}
		if err := codes.Create(&models.ReferralCode{
			Code:      st.ReferralCode,
			CreatedBy: st.Email,
			Kind:      domain.CodeKindStudent,
		}); err != nil {
			return fmt.Errorf("store referral code: %w", err)
		}
		if referrer != nil {
			if err := s.referrals.WithTx(tx).RecordSignup(referrer.Owner, st.Email); err != nil {
				return fmt.Errorf("record referral: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("student signed up",
		zap.String("email", st.Email),
		zap.String("roll_no", st.RollNo),
		zap.Bool("referred", referrer != nil))
	return st, nil
}

func uniqueReferralCode(codes *repository.CouponRepository) (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code, err := repository.GenerateReferralCode()
		if err != nil {
			return "", err
		}
		taken, err := codes.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", repository.ErrCodeGeneration
}

// Login authenticates the configured admin or an approved student and
// returns an access token.
func (s *AuthService) Login(email, password string) (auth.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var id auth.Identity
	if s.isAdmin(email, password) {
		id = auth.AdminIdentity(email)
	} else {
		st, err := s.students.GetByEmail(email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return auth.Identity{}, "", domain.ErrInvalidCredentials
			}
			return auth.Identity{}, "", err
		}
		if !st.Approved {
			return auth.Identity{}, "", domain.ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
			return auth.Identity{}, "", domain.ErrInvalidCredentials
		}
		id = auth.StudentIdentity(st.ID, st.Email)
	}
	token, err := auth.GenerateAccessToken(&s.cfg.JWT, id)
	if err != nil {
		return auth.Identity{}, "", err
	}
	return id, token, nil
}

func (s *AuthService) isAdmin(email, password string) bool {
	if s.cfg.Admin.Email == "" || s.cfg.Admin.Password == "" {
		return false
	}
	emailOK := strings.EqualFold(email, s.cfg.Admin.Email)
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Admin.Password)) == 1
	return emailOK && passOK
}
