package repository

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if err := r.DB.Create(user).Error; err != nil {
		if isDuplicate(err) {
			return util.ErrEmailRegistered
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByID(id string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

type OrganizationRepository struct {
	DB *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{DB: db}
}

func (r *OrganizationRepository) Create(org *model.Organization) error {
	if org.PlanTier == "" {
		org.PlanTier = model.PlanStarter
	}
	return r.DB.Create(org).Error
}

func (r *OrganizationRepository) FindByID(id string) (*model.Organization, error) {
	var org model.Organization
	if err := r.DB.Where("id = ?", id).First(&org).Error; err != nil {
		return nil, notFound(err, util.ErrOrgNotFound)
	}
	return &org, nil
}

func (r *OrganizationRepository) Update(org *model.Organization) error {
	return r.DB.Save(org).Error
}
