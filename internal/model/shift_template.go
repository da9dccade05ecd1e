package model

// ShiftTemplate 班次模板表，对应 shift_templates
// 小时区间为半开区间 [StartHour, EndHour)；EndHour <= StartHour 表示跨午夜
type ShiftTemplate struct {
	ShiftTemplateID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_template_id"`
	Name            string `gorm:"type:varchar(50);not null"                      json:"name"`
	StartHour       int    `gorm:"type:smallint;not null"                         json:"start_hour"` // 0-23
	EndHour         int    `gorm:"type:smallint;not null"                         json:"end_hour"`   // 0-23
	Type            string `gorm:"type:varchar(20);not null"                      json:"type"`       // MORNING | EVENING | NIGHT
	VersionedModel

	// 关联
	Users []User `gorm:"many2many:user_shift_templates;foreignKey:ShiftTemplateID;joinForeignKey:ShiftTemplateID;references:UserID;joinReferences:UserID" json:"users,omitempty"`
}

// TableName 指定表名
func (ShiftTemplate) TableName() string { return "shift_templates" }
