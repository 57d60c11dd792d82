package database

import (
	"time"

	"gorm.io/datatypes"
)

// 可参与“默认项”标记的实体类别，对应 default_selections.entity_type。
const (
	EntityName      = "name"
	EntityPhone     = "phone"
	EntityEmail     = "email"
	EntityEducation = "education_item"
)

// User 表示系统中的账号信息，所有简历数据都归属某个用户。
type User struct {
	ID           uint   `gorm:"primarykey"`
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name 表示一条可复用的姓名记录。值在同一用户下唯一。
type Name struct {
	ID        uint   `gorm:"primarykey"`
	OwnerID   uint   `gorm:"index;uniqueIndex:idx_names_owner_value"`
	Value     string `gorm:"column:name;size:255;uniqueIndex:idx_names_owner_value"`
	CreatedAt time.Time
}

// Phone 表示一条可复用的电话记录。
type Phone struct {
	ID        uint   `gorm:"primarykey"`
	OwnerID   uint   `gorm:"index;uniqueIndex:idx_phones_owner_value"`
	Value     string `gorm:"column:phone;size:64;uniqueIndex:idx_phones_owner_value"`
	CreatedAt time.Time
}

// Email 表示一条可复用的邮箱记录。
type Email struct {
	ID        uint   `gorm:"primarykey"`
	OwnerID   uint   `gorm:"index;uniqueIndex:idx_emails_owner_value"`
	Value     string `gorm:"column:email;size:255;uniqueIndex:idx_emails_owner_value"`
	CreatedAt time.Time
}

// EducationItem 表示一条教育经历。(school, degree, year) 组合在同一用户下唯一。
type EducationItem struct {
	ID        uint   `gorm:"primarykey"`
	OwnerID   uint   `gorm:"index;uniqueIndex:idx_education_owner_tuple"`
	School    string `gorm:"size:255;uniqueIndex:idx_education_owner_tuple"`
	Degree    string `gorm:"size:255;uniqueIndex:idx_education_owner_tuple"`
	Year      string `gorm:"size:16;uniqueIndex:idx_education_owner_tuple"`
	CreatedAt time.Time
}

// ExperienceTemplate 表示可复用的工作经历模板，拥有若干 Highlight。
type ExperienceTemplate struct {
	ID          uint    `gorm:"primarykey"`
	OwnerID     uint    `gorm:"index"`
	JobTitle    string  `gorm:"size:255"`
	CompanyName string  `gorm:"size:255"`
	StartDate   string  `gorm:"size:32"`
	EndDate     *string `gorm:"size:32"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Highlight 是经历模板独占的一条要点，模板删除时级联删除。
type Highlight struct {
	ID                   uint `gorm:"primarykey"`
	ExperienceTemplateID uint `gorm:"index"`
	Text                 string
	CreatedAt            time.Time
}

// Resume 表示用户创建的一份简历。Title 在同一用户下唯一。
// NameID/PhoneID/EmailID 是弱引用：被引用的联系信息删除后引用保持原样，
// 读取时解析为 null。
type Resume struct {
	ID        uint   `gorm:"primarykey"`
	OwnerID   uint   `gorm:"index;uniqueIndex:idx_resumes_owner_title"`
	Title     string `gorm:"size:255;uniqueIndex:idx_resumes_owner_title"`
	NameID    *uint
	PhoneID   *uint
	EmailID   *uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResumeExperienceInstance 关联简历与经历模板，并记录该简历选用的要点子集。
// 每份简历同一模板至多一行。
type ResumeExperienceInstance struct {
	ID                   uint                      `gorm:"primarykey"`
	ResumeID             uint                      `gorm:"index;uniqueIndex:idx_instances_resume_template"`
	ExperienceTemplateID uint                      `gorm:"uniqueIndex:idx_instances_resume_template"`
	SelectedHighlightIDs datatypes.JSONSlice[uint] `gorm:"type:json"`
	DisplayOrder         int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ResumeEducation 关联简历与教育经历。每份简历同一条目至多一行。
type ResumeEducation struct {
	ID              uint `gorm:"primarykey"`
	ResumeID        uint `gorm:"index;uniqueIndex:idx_resume_education_pair"`
	EducationItemID uint `gorm:"uniqueIndex:idx_resume_education_pair"`
	DisplayOrder    int
	CreatedAt       time.Time
}

// DefaultSelection 记录 (owner, entity_type) -> entity_id 的默认项映射。
// 四个类别统一使用此表，每类别至多一行。
type DefaultSelection struct {
	ID         uint   `gorm:"primarykey"`
	OwnerID    uint   `gorm:"uniqueIndex:idx_defaults_owner_type"`
	EntityType string `gorm:"size:32;uniqueIndex:idx_defaults_owner_type"`
	EntityID   uint
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AllModels 返回需要迁移的全部模型，供 AutoMigrate 使用。
func AllModels() []any {
	return []any{
		&User{},
		&Name{},
		&Phone{},
		&Email{},
		&EducationItem{},
		&ExperienceTemplate{},
		&Highlight{},
		&Resume{},
		&ResumeExperienceInstance{},
		&ResumeEducation{},
		&DefaultSelection{},
	}
}
