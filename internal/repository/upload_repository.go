package repository

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"

	"gorm.io/gorm"
)

type UploadRepository struct {
	DB *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{DB: db}
}

func (r *UploadRepository) Create(upload *model.Upload) error {
	return r.DB.Create(upload).Error
}

func (r *UploadRepository) FindByID(id string) (*model.Upload, error) {
	var upload model.Upload
	if err := r.DB.Where("id = ?", id).First(&upload).Error; err != nil {
		return nil, notFound(err, util.ErrUploadNotFound)
	}
	return &upload, nil
}

func (r *UploadRepository) Update(upload *model.Upload) error {
	return r.DB.Save(upload).Error
}
