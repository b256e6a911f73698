package hazard

import "time"

type Hazard struct {
	ID          int64      `gorm:"primaryKey"`
	Title       string     `gorm:"column:title;not null"`
	Description string     `gorm:"column:description;not null"`
	ReportedBy  int64      `gorm:"column:reported_by;not null;index"`
	AssignedTo  *int64     `gorm:"column:assigned_to;index"`
	Status      string     `gorm:"column:status;not null;default:Open"`
	Severity    string     `gorm:"column:severity;not null"`
	HazardType  string     `gorm:"column:hazard_type;not null"`
	DueDate     *time.Time `gorm:"column:due_date;type:date"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Hazard) TableName() string {
	return "hazards"
}

type HazardLog struct {
	ID          int64     `gorm:"primaryKey"`
	HazardID    int64     `gorm:"column:hazard_id;not null;index"`
	ActionType  string    `gorm:"column:action_type;not null"`
	Details     string    `gorm:"column:details"`
	PerformedBy int64     `gorm:"column:performed_by;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (HazardLog) TableName() string {
	return "hazard_logs"
}
