package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
	hazardDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/hazard"
	"github.com/frahmantamala/safety-hazards/internal/hazard"
	"gorm.io/gorm"
)

const hazardColumns = "h.id, h.title, h.description, h.reported_by, h.assigned_to, h.status, h.severity, " +
	"h.hazard_type, h.due_date, h.created_at, h.updated_at, " +
	"rep.full_name AS reported_by_name, asg.full_name AS assigned_to_name"

// hazardRow is a hazard joined with reporter and assignee names.
type hazardRow struct {
	ID             int64
	Title          string
	Description    string
	ReportedBy     int64
	AssignedTo     *int64
	Status         string
	Severity       string
	HazardType     string
	DueDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ReportedByName *string
	AssignedToName *string
}

func (r hazardRow) toDomain() *hazard.Hazard {
	h := hazard.FromDataModel(&hazardDatamodel.Hazard{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		ReportedBy:  r.ReportedBy,
		AssignedTo:  r.AssignedTo,
		Status:      r.Status,
		Severity:    r.Severity,
		HazardType:  r.HazardType,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	})
	if r.ReportedByName != nil {
		h.ReportedByName = *r.ReportedByName
	}
	if r.AssignedToName != nil {
		h.AssignedToName = *r.AssignedToName
	}
	return h
}

type logRow struct {
	ID              int64
	HazardID        int64
	ActionType      string
	Details         *string
	PerformedBy     int64
	PerformedByName *string
	CreatedAt       time.Time
}

type labelCount struct {
	Label string
	Total int64
}

// HazardRepository implements hazard.Repository using GORM.
type HazardRepository struct {
	db *gorm.DB
}

func NewHazardRepository(db *gorm.DB) *HazardRepository {
	return &HazardRepository{db: db}
}

func (r *HazardRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("hazards AS h").
		Select(hazardColumns).
		Joins("LEFT JOIN users rep ON rep.id = h.reported_by").
		Joins("LEFT JOIN users asg ON asg.id = h.assigned_to")
}

// applyScope limits q to rows the scope's role may view. It must stay in
// step with access.Policy.CanView.
func applyScope(q *gorm.DB, scope hazard.Scope) *gorm.DB {
	switch scope.Role {
	case access.RoleSafetyOfficer:
		return q
	case access.RoleFieldWorker:
		return q.Where("(h.reported_by = ? OR h.assigned_to = ?)", scope.UserID, scope.UserID)
	case access.RoleSiteManager:
		return q.Where("(h.reported_by = ? OR h.assigned_to = ? OR (h.assigned_to IS NULL AND h.status = ?))",
			scope.UserID, scope.UserID, access.StatusOpen.String())
	default:
		return q.Where("1 = 0")
	}
}

func applyFilter(q *gorm.DB, f hazard.Filter, today time.Time) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(h.title) LIKE ? OR LOWER(h.description) LIKE ?)", like, like)
	}
	if f.Status.IsKnown() {
		q = q.Where("h.status = ?", f.Status.String())
	}
	if f.Severity != "" {
		q = q.Where("h.severity = ?", string(f.Severity))
	}
	if f.HazardType != "" {
		q = q.Where("h.hazard_type = ?", f.HazardType)
	}
	if f.AssignedTo != nil {
		q = q.Where("h.assigned_to = ?", *f.AssignedTo)
	}
	if f.OverdueOnly {
		q = overdue(q, today)
	}
	if f.From != nil {
		q = q.Where("h.created_at >= ?", hazard.NormalizeDate(*f.From))
	}
	if f.To != nil {
		q = q.Where("h.created_at < ?", hazard.NormalizeDate(*f.To).AddDate(0, 0, 1))
	}
	return q
}

func overdue(q *gorm.DB, today time.Time) *gorm.DB {
	return q.Where("h.due_date IS NOT NULL AND h.due_date < ? AND h.status <> ?", today, access.StatusResolved.String())
}

// guard restricts an update to the row state a policy decision was made on.
func guard(q *gorm.DB, expected *access.HazardSnapshot) *gorm.DB {
	q = q.Where("reported_by = ? AND status = ?", expected.ReportedBy, expected.Status.String())
	if userID, ok := expected.AssignedTo.UserID(); ok {
		return q.Where("assigned_to = ?", userID)
	}
	return q.Where("assigned_to IS NULL")
}

func (r *HazardRepository) List(ctx context.Context, filter hazard.Filter, scope hazard.Scope, today time.Time) ([]*hazard.Hazard, error) {
	q := applyFilter(applyScope(r.joined(ctx), scope), filter, today).
		Order("h.created_at DESC").
		Order("h.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []hazardRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	hazards := make([]*hazard.Hazard, len(rows))
	for i, row := range rows {
		hazards[i] = row.toDomain()
	}
	return hazards, nil
}

func (r *HazardRepository) GetByID(ctx context.Context, id int64) (*hazard.Hazard, error) {
	var rows []hazardRow
	if err := r.joined(ctx).Where("h.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, hazard.ErrHazardNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *HazardRepository) Create(ctx context.Context, h *hazard.Hazard, performedBy int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := hazard.ToDataModel(h)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		h.ID = row.ID
		h.CreatedAt = row.CreatedAt
		h.UpdatedAt = row.UpdatedAt

		details := fmt.Sprintf("Reported with severity %s, type %s", h.Severity, h.HazardType)
		return writeLog(tx, h.ID, hazard.ActionCreated, details, performedBy)
	})
}

func (r *HazardRepository) UpdateDetails(ctx context.Context, h *hazard.Hazard, expected *access.HazardSnapshot, changes string, performedBy int64) error {
	updates := map[string]interface{}{
		"title":       h.Title,
		"description": h.Description,
		"severity":    string(h.Severity),
		"hazard_type": h.HazardType,
		"due_date":    h.DueDate,
		"updated_at":  time.Now(),
	}
	return r.guardedUpdate(ctx, h.ID, expected, updates, hazard.ActionUpdated, "Changed "+changes, performedBy)
}

func (r *HazardRepository) Assign(ctx context.Context, id, assigneeID int64, expected *access.HazardSnapshot, performedBy int64) error {
	updates := map[string]interface{}{
		"assigned_to": assigneeID,
		"updated_at":  time.Now(),
	}
	details := fmt.Sprintf("Assigned to user #%d", assigneeID)
	return r.guardedUpdate(ctx, id, expected, updates, hazard.ActionAssigned, details, performedBy)
}

func (r *HazardRepository) ChangeStatus(ctx context.Context, id int64, to access.Status, expected *access.HazardSnapshot, note string, performedBy int64) error {
	updates := map[string]interface{}{
		"status":     to.String(),
		"updated_at": time.Now(),
	}
	details := fmt.Sprintf("%s -> %s", expected.Status, to)
	if note != "" {
		details += ": " + note
	}
	return r.guardedUpdate(ctx, id, expected, updates, hazard.ActionStatusChanged, details, performedBy)
}

func (r *HazardRepository) guardedUpdate(ctx context.Context, id int64, expected *access.HazardSnapshot, updates map[string]interface{}, action, details string, performedBy int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := guard(tx.Model(&hazardDatamodel.Hazard{}).Where("id = ?", id), expected).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrConflict(tx, id)
		}
		return writeLog(tx, id, action, details, performedBy)
	})
}

func missingOrConflict(tx *gorm.DB, id int64) error {
	var n int64
	if err := tx.Model(&hazardDatamodel.Hazard{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return hazard.ErrHazardNotFound
	}
	return hazard.ErrHazardConflict
}

func writeLog(tx *gorm.DB, hazardID int64, action, details string, performedBy int64) error {
	return tx.Create(&hazardDatamodel.HazardLog{
		HazardID:    hazardID,
		ActionType:  action,
		Details:     details,
		PerformedBy: performedBy,
	}).Error
}

func (r *HazardRepository) AddLog(ctx context.Context, entry *hazard.Log) error {
	row := &hazardDatamodel.HazardLog{
		HazardID:    entry.HazardID,
		ActionType:  entry.ActionType,
		Details:     entry.Details,
		PerformedBy: entry.PerformedBy,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	return nil
}

func (r *HazardRepository) Logs(ctx context.Context, hazardID int64) ([]*hazard.Log, error) {
	var rows []logRow
	err := r.db.WithContext(ctx).
		Table("hazard_logs AS l").
		Select("l.id, l.hazard_id, l.action_type, l.details, l.performed_by, u.full_name AS performed_by_name, l.created_at").
		Joins("LEFT JOIN users u ON u.id = l.performed_by").
		Where("l.hazard_id = ?", hazardID).
		Order("l.created_at ASC").
		Order("l.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	logs := make([]*hazard.Log, len(rows))
	for i, row := range rows {
		entry := &hazard.Log{
			ID:          row.ID,
			HazardID:    row.HazardID,
			ActionType:  row.ActionType,
			PerformedBy: row.PerformedBy,
			CreatedAt:   row.CreatedAt,
		}
		if row.Details != nil {
			entry.Details = *row.Details
		}
		if row.PerformedByName != nil {
			entry.PerformedByName = *row.PerformedByName
		}
		logs[i] = entry
	}
	return logs, nil
}

func (r *HazardRepository) Dashboard(ctx context.Context, scope hazard.Scope, today time.Time) (*hazard.DashboardMetrics, error) {
	scoped := func() *gorm.DB {
		return applyScope(r.db.WithContext(ctx).Table("hazards AS h"), scope)
	}
	metrics := hazard.NewDashboardMetrics()

	byStatus, err := countBy(scoped(), "h.status")
	if err != nil {
		return nil, err
	}
	for _, c := range byStatus {
		status, _ := access.ParseStatus(c.Label)
		switch status {
		case access.StatusOpen:
			metrics.OpenCount = c.Total
		case access.StatusInProgress:
			metrics.InProgressCount = c.Total
		case access.StatusResolved:
			metrics.ResolvedCount = c.Total
		}
	}

	if err := overdue(scoped(), today).Count(&metrics.OverdueOpenCount).Error; err != nil {
		return nil, err
	}

	bySeverity, err := countBy(scoped(), "h.severity")
	if err != nil {
		return nil, err
	}
	for _, c := range bySeverity {
		metrics.BySeverity[c.Label] = c.Total
	}

	byType, err := countBy(scoped(), "h.hazard_type")
	if err != nil {
		return nil, err
	}
	for _, c := range byType {
		metrics.ByType[c.Label] = c.Total
	}

	return metrics, nil
}

func countBy(q *gorm.DB, column string) ([]labelCount, error) {
	var counts []labelCount
	err := q.Select(column + " AS label, COUNT(*) AS total").Group(column).Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count hazards by %s: %w", column, err)
	}
	return counts, nil
}

var _ hazard.Repository = (*HazardRepository)(nil)
