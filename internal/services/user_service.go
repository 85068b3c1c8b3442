package services

import (
	"context"
	"errors"
	"strings"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"
	"riteswipe-api/internal/reports"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserService struct {
	txRunner
	notifier *NotificationService
	reports  *reports.Reports
	limiter  auth.AttemptLimiter
	log      *logrus.Entry
}

type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
}

type ProfileUpdate struct {
	FullName       *string
	PhoneNumber    *string
	ProfilePicture *string
	Bio            *string
}

// Register creates a user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := auth.ValidateName(in.FullName); err != nil {
		return nil, err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hashing password", err)
	}

	user := &models.User{
		ID:           newID(),
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		CreatedAt:    now(),
	}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return storeErr("checking email", err)
		}
		if count > 0 {
			return apperr.Conflict("Email already registered")
		}
		if err := tx.Create(user).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Email already registered")
			}
			return storeErr("creating user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login checks credentials. Repeated failures lock the email out for a while.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	if s.limiter != nil {
		locked, _, err := s.limiter.Locked(ctx, email)
		if err != nil {
			s.log.WithError(err).Warn("login limiter unavailable")
		} else if locked {
			return nil, apperr.RateLimited("Too many failed login attempts, try again later")
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("loading user", err)
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.recordFailure(ctx, email)
		return nil, auth.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.WithError(err).Warn("resetting login attempts failed")
		}
	}
	return &user, nil
}

func (s *UserService) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.log.WithError(err).Warn("recording failed login failed")
	}
	s.log.WithField("email", email).Info("failed login")
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), userID)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", auth.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User", email)
	}
	if err != nil {
		return nil, storeErr("loading user", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	if in.FullName != nil {
		if err := auth.ValidateName(*in.FullName); err != nil {
			return nil, err
		}
	}
	var user *models.User
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		if user, err = findUser(tx, userID); err != nil {
			return err
		}
		if in.FullName != nil {
			user.FullName = strings.TrimSpace(*in.FullName)
		}
		if in.PhoneNumber != nil {
			user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
		}
		if in.ProfilePicture != nil {
			user.ProfilePicture = strings.TrimSpace(*in.ProfilePicture)
		}
		if in.Bio != nil {
			user.Bio = strings.TrimSpace(*in.Bio)
		}
		user.ModifiedAt = timePtr(now())
		return storeErr("updating profile", tx.Save(user).Error)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AddSkill links a skill to the user. Adding it twice is a Conflict.
func (s *UserService) AddSkill(ctx context.Context, userID, skillID string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := findUser(tx, userID); err != nil {
			return err
		}
		if _, err := findSkill(tx, skillID); err != nil {
			return err
		}
		link := models.UserSkill{UserID: userID, SkillID: skillID, CreatedAt: now()}
		if err := tx.Create(&link).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Skill already added")
			}
			return storeErr("adding skill", err)
		}
		return nil
	})
}

func (s *UserService) RemoveSkill(ctx context.Context, userID, skillID string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND skill_id = ?", userID, skillID).Delete(&models.UserSkill{})
	if res.Error != nil {
		return storeErr("removing skill", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("UserSkill", skillID)
	}
	return nil
}

func (s *UserService) ListSkills(ctx context.Context, userID string) ([]models.Skill, error) {
	skills := []models.Skill{}
	err := s.db.WithContext(ctx).
		Joins("JOIN user_skills ON user_skills.skill_id = skills.id").
		Where("user_skills.user_id = ?", userID).
		Order("skills.name asc").
		Find(&skills).Error
	if err != nil {
		return nil, storeErr("listing user skills", err)
	}
	return skills, nil
}

// ReviewView is a review with the reviewer's display name.
type ReviewView struct {
	models.TaskReview
	ReviewerName           string `json:"reviewerName"`
	ReviewerProfilePicture string `json:"reviewerProfilePicture"`
}

// GetReviews lists reviews the user received, newest first.
func (s *UserService) GetReviews(ctx context.Context, userID string) ([]ReviewView, error) {
	var reviews []models.TaskReview
	db := s.db.WithContext(ctx)
	if err := db.Where("reviewed_user_id = ?", userID).Order("created_at desc").Find(&reviews).Error; err != nil {
		return nil, storeErr("listing reviews", err)
	}
	return withReviewers(db, reviews)
}

func withReviewers(db *gorm.DB, reviews []models.TaskReview) ([]ReviewView, error) {
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ReviewerUserID)
	}
	var users []models.User
	if len(ids) > 0 {
		if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, storeErr("loading reviewers", err)
		}
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		u := byID[r.ReviewerUserID]
		out = append(out, ReviewView{TaskReview: r, ReviewerName: u.FullName, ReviewerProfilePicture: u.ProfilePicture})
	}
	return out, nil
}

// GetRating averages received ratings; 0 when there are none.
func (s *UserService) GetRating(ctx context.Context, userID string) (float64, error) {
	var row struct{ Avg *float64 }
	err := s.db.WithContext(ctx).Model(&models.TaskReview{}).
		Select("AVG(rating) AS avg").
		Where("reviewed_user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, storeErr("averaging rating", err)
	}
	if row.Avg == nil {
		return 0, nil
	}
	return *row.Avg, nil
}

func (s *UserService) GetStats(ctx context.Context, userID string) (reports.UserStats, error) {
	if _, err := findUser(s.db.WithContext(ctx), userID); err != nil {
		return reports.UserStats{}, err
	}
	stats, err := s.reports.UserStats(ctx, userID)
	return stats, storeErr("loading stats", err)
}

// VerifyUser marks a user verified and pushes StatusUpdate to them.
func (s *UserService) VerifyUser(ctx context.Context, userID string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		ts := now()
		if err := tx.Model(user).Updates(map[string]any{"is_verified": true, "modified_at": ts}).Error; err != nil {
			return storeErr("verifying user", err)
		}
		return s.notifier.Emit(tx, realtime.UserGroup(userID), realtime.EventStatusUpdate, map[string]any{
			"userId":     userID,
			"isVerified": true,
		})
	})
}
