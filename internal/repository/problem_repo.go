package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/phybench-api/internal/models"
)

// ProblemFilter narrows problem listings. OwnerID matches submitter or offerer,
// ExaminerID matches problems whose examiner set contains the user.
type ProblemFilter struct {
	Page       int
	PageSize   int
	OwnerID    *uint
	ExaminerID *uint
	Status     models.ProblemStatus
}

// ProblemCountFilter narrows problem counts used by statistics.
type ProblemCountFilter struct {
	Status        models.ProblemStatus
	CreatedFrom   *time.Time
	CreatedBefore *time.Time
}

// ExportFilter selects problems for export.
type ExportFilter struct {
	Tag              models.ProblemTag
	Status           models.ProblemStatus
	TranslatedStatus models.ProblemStatus
	Nominated        string
	WithoutAIResults bool
	PreloadVariables bool
	PreloadAIResults bool
}

// TagCount is a group-by row of problems per tag.
type TagCount struct {
	Tag   models.ProblemTag
	Count int64
}

// ProblemRepository persists problems and their owned rows.
type ProblemRepository interface {
	Create(ctx context.Context, problem *models.Problem) error
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	GetDetailed(ctx context.Context, id uint) (models.Problem, error)
	List(ctx context.Context, filter ProblemFilter) ([]models.Problem, int64, error)
	Delete(ctx context.Context, id uint) error
	ReplaceExaminers(ctx context.Context, problemID uint, examiners []models.User) error
	Count(ctx context.Context, filter ProblemCountFilter) (int64, error)
	CountByTag(ctx context.Context) ([]TagCount, error)
	Export(ctx context.Context, filter ExportFilter) ([]models.Problem, error)
	UpdateTranslation(ctx context.Context, id uint, updates map[string]interface{}) (bool, error)
	AddAIPerformances(ctx context.Context, problemID uint, performances []models.AIPerformance) (bool, error)
	CreateAttachment(ctx context.Context, attachment *models.ProblemAttachment) error
}

type problemRepository struct {
	db *gorm.DB
}

// NewProblemRepository constructs the problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Omit("User", "Offerer", "Examiners").Create(problem).Error
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).Preload("Examiners").First(&problem, id).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) GetDetailed(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Offerer").
		Preload("Examiners").
		Preload("Variables").
		Preload("AIPerformances", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		Preload("Attachments").
		First(&problem, id).Error
	if err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) List(ctx context.Context, filter ProblemFilter) ([]models.Problem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Problem{})

	if filter.OwnerID != nil {
		query = query.Where("user_id = ? OR offerer_id = ?", *filter.OwnerID, *filter.OwnerID)
	}

	if filter.ExaminerID != nil {
		examined := r.db.Table("problem_examiners").Select("problem_id").Where("user_id = ?", *filter.ExaminerID)
		query = query.Where("id IN (?)", examined)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var problems []models.Problem
	if err := query.Order("created_at DESC").Order("id DESC").Find(&problems).Error; err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *problemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		problem := models.Problem{ID: id}
		if err := tx.Where("problem_id = ?", id).Delete(&models.AIPerformance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("problem_id = ?", id).Delete(&models.ProblemVariable{}).Error; err != nil {
			return err
		}
		if err := tx.Where("problem_id = ?", id).Delete(&models.ProblemAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&problem).Association("Examiners").Clear(); err != nil {
			return err
		}

		result := tx.Delete(&models.Problem{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *problemRepository) ReplaceExaminers(ctx context.Context, problemID uint, examiners []models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var problem models.Problem
		if err := tx.Select("id").First(&problem, problemID).Error; err != nil {
			return err
		}
		association := tx.Model(&problem).Association("Examiners")
		if len(examiners) == 0 {
			return association.Clear()
		}
		return association.Replace(examiners)
	})
}

func (r *problemRepository) Count(ctx context.Context, filter ProblemCountFilter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Problem{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *problemRepository) CountByTag(ctx context.Context) ([]TagCount, error) {
	var rows []TagCount
	err := r.db.WithContext(ctx).
		Model(&models.Problem{}).
		Select("tag, COUNT(*) AS count").
		Group("tag").
		Order("tag").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *problemRepository) Export(ctx context.Context, filter ExportFilter) ([]models.Problem, error) {
	query := r.db.WithContext(ctx).Model(&models.Problem{})

	if filter.Tag != "" {
		query = query.Where("tag = ?", filter.Tag)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TranslatedStatus != "" {
		query = query.Where("translated_status = ?", filter.TranslatedStatus)
	}
	if filter.Nominated != "" {
		query = query.Where("nominated = ?", filter.Nominated)
	}
	if filter.WithoutAIResults {
		annotated := r.db.Model(&models.AIPerformance{}).Select("problem_id")
		query = query.Where("id NOT IN (?)", annotated)
	}
	if filter.PreloadVariables {
		query = query.Preload("Variables")
	}
	if filter.PreloadAIResults {
		query = query.Preload("AIPerformances", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		})
	}

	var problems []models.Problem
	if err := query.Order("id ASC").Find(&problems).Error; err != nil {
		return nil, err
	}
	return problems, nil
}

func (r *problemRepository) UpdateTranslation(ctx context.Context, id uint, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Problem{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *problemRepository) AddAIPerformances(ctx context.Context, problemID uint, performances []models.AIPerformance) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Problem{}).Where("id = ?", problemID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		found = true
		for i := range performances {
			performances[i].ProblemID = problemID
		}
		if len(performances) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(&performances).Error
	})
	return found, err
}

func (r *problemRepository) CreateAttachment(ctx context.Context, attachment *models.ProblemAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}
