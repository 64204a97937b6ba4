package db

import (
	"github.com/pkg/errors"
	"github.com/unimarket/unimarket-chat/models"
	"gorm.io/gorm"
)

// AuthRepository covers the credential boundary: user lookups for login and the
// revoked-token blacklist consulted on every authorized call.
type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
	FindUserByUsername(username string) (*models.User, error)
	AddToBlacklist(token string) error
	IsTokenInBlacklist(token string) bool
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (r *authRepo) CreateUser(user *models.User) (*models.User, error) {
	if err := r.DB.Create(user).Error; err != nil {
		return nil, errors.Wrap(err, "creating user")
	}
	return user, nil
}

func (r *authRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *authRepo) FindUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *authRepo) AddToBlacklist(token string) error {
	entry := models.Blacklist{Token: token}
	if err := r.DB.Create(&entry).Error; err != nil {
		return errors.Wrap(err, "blacklisting token")
	}
	return nil
}

func (r *authRepo) IsTokenInBlacklist(token string) bool {
	var count int64
	r.DB.Model(&models.Blacklist{}).Where("token = ?", token).Count(&count)
	return count > 0
}
