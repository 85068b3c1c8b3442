package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/cache"
	"riteswipe-api/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SkillService manages the name-unique skill catalog.
type SkillService struct {
	txRunner
	demand    *cache.SimpleCache[string, int64]
	demandTTL time.Duration
	log       *logrus.Entry
}

func newSkillService(runner txRunner, demandTTL time.Duration, log *logrus.Entry) *SkillService {
	return &SkillService{
		txRunner:  runner,
		demand:    cache.NewSimpleCache[string, int64](),
		demandTTL: demandTTL,
		log:       log,
	}
}

// SkillDetails is a skill with how many tasks and users reference it.
type SkillDetails struct {
	models.Skill
	TaskCount int64 `json:"taskCount"`
	UserCount int64 `json:"userCount"`
}

func normalizeSkillName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return "", apperr.Validation("Skill name must be between 1 and 50 characters")
	}
	return name, nil
}

func (s *SkillService) CreateSkill(ctx context.Context, name string) (*models.Skill, error) {
	name, err := normalizeSkillName(name)
	if err != nil {
		return nil, err
	}
	skill := &models.Skill{ID: newID(), Name: name, CreatedAt: now()}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Skill{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
			return storeErr("checking skill", err)
		}
		if count > 0 {
			return apperr.Conflict("Skill '%s' already exists", name)
		}
		if err := tx.Create(skill).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Skill '%s' already exists", name)
			}
			return storeErr("creating skill", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return skill, nil
}

func (s *SkillService) details(db *gorm.DB, skill *models.Skill) (*SkillDetails, error) {
	d := &SkillDetails{Skill: *skill}
	if err := db.Model(&models.Task{}).Where("skill_required_id = ?", skill.ID).Count(&d.TaskCount).Error; err != nil {
		return nil, storeErr("counting skill tasks", err)
	}
	if err := db.Model(&models.UserSkill{}).Where("skill_id = ?", skill.ID).Count(&d.UserCount).Error; err != nil {
		return nil, storeErr("counting skill users", err)
	}
	return d, nil
}

func (s *SkillService) GetSkill(ctx context.Context, id string) (*SkillDetails, error) {
	db := s.db.WithContext(ctx)
	skill, err := findSkill(db, id)
	if err != nil {
		return nil, err
	}
	return s.details(db, skill)
}

func (s *SkillService) GetSkillByName(ctx context.Context, name string) (*SkillDetails, error) {
	db := s.db.WithContext(ctx)
	var skill models.Skill
	err := db.Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&skill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Skill", name)
	}
	if err != nil {
		return nil, storeErr("loading skill", err)
	}
	return s.details(db, &skill)
}

func (s *SkillService) ListSkills(ctx context.Context) ([]models.Skill, error) {
	skills := []models.Skill{}
	if err := s.db.WithContext(ctx).Order("name asc").Find(&skills).Error; err != nil {
		return nil, storeErr("listing skills", err)
	}
	return skills, nil
}

func (s *SkillService) SearchSkills(ctx context.Context, term string) ([]models.Skill, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListSkills(ctx)
	}
	skills := []models.Skill{}
	err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%").
		Order("name asc").
		Find(&skills).Error
	if err != nil {
		return nil, storeErr("searching skills", err)
	}
	return skills, nil
}

// DeleteSkill refuses while an open task requires the skill. Closed tasks
// lose the reference and user links are removed with the skill.
func (s *SkillService) DeleteSkill(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		skill, err := findSkill(tx, id)
		if err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&models.Task{}).Where("skill_required_id = ? AND status = ?", id, models.TaskOpen).Count(&open).Error; err != nil {
			return storeErr("checking skill usage", err)
		}
		if open > 0 {
			return apperr.Validation("Cannot delete a skill that is required by open tasks")
		}
		if err := tx.Model(&models.Task{}).Where("skill_required_id = ?", id).Update("skill_required_id", nil).Error; err != nil {
			return storeErr("clearing task skills", err)
		}
		if err := tx.Where("skill_id = ?", id).Delete(&models.UserSkill{}).Error; err != nil {
			return storeErr("removing user skills", err)
		}
		return storeErr("deleting skill", tx.Delete(skill).Error)
	})
	if err != nil {
		return err
	}
	s.demand.Delete(id)
	return nil
}

// TasksBySkill lists open tasks requiring the skill, newest first.
func (s *SkillService) TasksBySkill(ctx context.Context, id string) ([]models.Task, error) {
	db := s.db.WithContext(ctx)
	if _, err := findSkill(db, id); err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	err := db.Where("skill_required_id = ? AND status = ?", id, models.TaskOpen).
		Order("created_at desc").
		Find(&tasks).Error
	if err != nil {
		return nil, storeErr("listing skill tasks", err)
	}
	return tasks, nil
}

func (s *SkillService) UsersBySkill(ctx context.Context, id string) ([]models.User, error) {
	db := s.db.WithContext(ctx)
	if _, err := findSkill(db, id); err != nil {
		return nil, err
	}
	users := []models.User{}
	err := db.Joins("JOIN user_skills ON user_skills.user_id = users.id").
		Where("user_skills.skill_id = ?", id).
		Order("users.full_name asc").
		Find(&users).Error
	if err != nil {
		return nil, storeErr("listing skill users", err)
	}
	return users, nil
}

// Demand counts open tasks requiring the skill. Results are cached for the
// configured TTL, so the figure may lag behind new tasks.
func (s *SkillService) Demand(ctx context.Context, id string) (int64, error) {
	if n, ok := s.demand.Get(id); ok {
		return n, nil
	}
	db := s.db.WithContext(ctx)
	if _, err := findSkill(db, id); err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(&models.Task{}).Where("skill_required_id = ? AND status = ?", id, models.TaskOpen).Count(&n).Error; err != nil {
		return 0, storeErr("counting demand", err)
	}
	s.demand.Set(id, n, s.demandTTL)
	return n, nil
}

// PurgeDemandCache drops expired demand figures.
func (s *SkillService) PurgeDemandCache() int {
	return s.demand.PurgeExpired()
}
