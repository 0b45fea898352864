package model

const (
	UploadSourcePaste = "paste"
	UploadSourceFile  = "file"
)

// Upload 原始 SOP 文本，生成课程前创建
// swagger:model Upload
type Upload struct {
	UUIDBase
	OrgID     string  `gorm:"type:varchar(36);index;not null" json:"orgId"`
	Source    string  `gorm:"size:20;not null" json:"source"`
	Content   string  `gorm:"type:text;not null" json:"content"`
	ObjectURL string  `gorm:"size:512" json:"objectUrl,omitempty"`
	Processed bool    `gorm:"not null;default:false" json:"processed"`
	Error     *string `gorm:"type:text" json:"error,omitempty"`
}

func (Upload) TableName() string {
	return "uploads"
}

// AllModels 迁移时使用
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&Course{},
		&Module{},
		&Question{},
		&Enrollment{},
		&Attempt{},
		&Badge{},
		&Upload{},
	}
}
