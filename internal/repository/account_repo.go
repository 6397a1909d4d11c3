package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/lab-eval-api/internal/models"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Role   *models.Role
	Search string
}

// AccountRepository provides access to account records.
type AccountRepository interface {
	List(ctx context.Context, filter AccountFilter) ([]models.Account, error)
	GetByID(ctx context.Context, id uint) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	GetByGoogleSub(ctx context.Context, sub string) (models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	BindGoogleSub(ctx context.Context, id uint, sub, name string) (bool, error)
	ClearGoogleSub(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository constructs an account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]models.Account, error) {
	query := r.db.WithContext(ctx).Model(&models.Account{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var accounts []models.Account
	if err := query.Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return models.Account{}, err
	}

	return account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return models.Account{}, err
	}

	return account, nil
}

func (r *accountRepository) GetByGoogleSub(ctx context.Context, sub string) (models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("google_sub = ?", sub).First(&account).Error; err != nil {
		return models.Account{}, err
	}

	return account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// BindGoogleSub attaches sub to the account only while it is still unbound. The boolean
// is false when another writer bound the account first.
func (r *accountRepository) BindGoogleSub(ctx context.Context, id uint, sub, name string) (bool, error) {
	updates := map[string]interface{}{"google_sub": sub}
	if name != "" {
		updates["name"] = name
	}

	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Where("google_sub IS NULL").
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *accountRepository) ClearGoogleSub(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("google_sub", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the account together with its enrollments. Callers refuse the delete
// while evaluations still name the account.
func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Account{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}
