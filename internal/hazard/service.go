package hazard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/core/events"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Repository persists hazards and their audit log. Mutations that take an
// expected snapshot only apply while the stored row still matches it and
// return ErrHazardConflict otherwise. Each mutation writes its log entry in
// the same transaction.
type Repository interface {
	List(ctx context.Context, filter Filter, scope Scope, today time.Time) ([]*Hazard, error)
	GetByID(ctx context.Context, id int64) (*Hazard, error)
	Create(ctx context.Context, h *Hazard, performedBy int64) error
	UpdateDetails(ctx context.Context, h *Hazard, expected *access.HazardSnapshot, changes string, performedBy int64) error
	Assign(ctx context.Context, id, assigneeID int64, expected *access.HazardSnapshot, performedBy int64) error
	ChangeStatus(ctx context.Context, id int64, to access.Status, expected *access.HazardSnapshot, note string, performedBy int64) error
	AddLog(ctx context.Context, log *Log) error
	Logs(ctx context.Context, hazardID int64) ([]*Log, error)
	Dashboard(ctx context.Context, scope Scope, today time.Time) (*DashboardMetrics, error)
}

type UserDirectory interface {
	IsAssignable(ctx context.Context, userID int64) (bool, error)
}

type TypeCatalog interface {
	IsActiveType(ctx context.Context, name string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo       Repository
	users      UserDirectory
	types      TypeCatalog
	publisher  EventPublisher
	policy     access.Policy
	classifier *Classifier
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithClassifier(c *Classifier) Option {
	return func(s *Service) {
		s.classifier = c
	}
}

// NewService wires the hazard workflow. publisher may be nil.
func NewService(repo Repository, users UserDirectory, types TypeCatalog, publisher EventPublisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		users:      users,
		types:      types,
		publisher:  publisher,
		classifier: NewClassifier(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records a new Open hazard reported by the actor. Blank severity
// or type are filled in from the classifier.
func (s *Service) Create(ctx context.Context, actor Actor, dto CreateHazardDTO) (*View, error) {
	if !actor.Role.IsKnown() {
		return nil, ErrForbidden
	}

	d, err := dto.parse()
	if err != nil {
		return nil, err
	}

	if d.severity == "" || d.hazardType == "" {
		suggestion := s.classifier.Classify(d.description)
		if d.severity == "" {
			d.severity = suggestion.Severity
		}
		if d.hazardType == "" {
			d.hazardType = suggestion.HazardType
		}
	}

	if err := s.checkType(ctx, d.hazardType); err != nil {
		return nil, err
	}

	h := &Hazard{
		Title:       d.title,
		Description: d.description,
		ReportedBy:  actor.UserID,
		Status:      access.StatusOpen,
		Severity:    d.severity,
		HazardType:  d.hazardType,
		DueDate:     d.dueDate,
	}

	if err := s.repo.Create(ctx, h, actor.UserID); err != nil {
		s.logger.Error("failed to create hazard", "error", err, "user_id", actor.UserID)
		return nil, internal.NewInternalError("failed to create hazard", err)
	}

	s.logger.Info("hazard created",
		"hazard_id", h.ID,
		"user_id", actor.UserID,
		"severity", h.Severity,
		"hazard_type", h.HazardType)
	s.publish(ctx, events.NewHazardCreatedEvent(h.ID, actor.UserID, string(h.Severity), h.HazardType))

	return s.reload(ctx, actor, h), nil
}

// List returns the hazards matching filter that the actor may see.
func (s *Service) List(ctx context.Context, actor Actor, filter Filter) ([]*View, error) {
	if !actor.Role.IsKnown() {
		return []*View{}, nil
	}

	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	now := s.now()
	hazards, err := s.repo.List(ctx, filter, actor.Scope(), NormalizeDate(now.UTC()))
	if err != nil {
		s.logger.Error("failed to list hazards", "error", err, "user_id", actor.UserID)
		return nil, internal.NewInternalError("failed to list hazards", err)
	}

	views := make([]*View, 0, len(hazards))
	for _, h := range hazards {
		if !s.policy.CanView(actor.Role, actor.UserID, h.Snapshot()) {
			s.logger.Warn("repository returned a hazard outside the caller's scope",
				"hazard_id", h.ID, "user_id", actor.UserID)
			continue
		}
		views = append(views, s.view(actor, h, now))
	}
	return views, nil
}

// Get returns one hazard with the actor's permissions on it. Hazards the
// actor may not see are reported as not found.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*View, error) {
	h, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(actor, h, s.now()), nil
}

func (s *Service) UpdateDetails(ctx context.Context, actor Actor, id int64, dto UpdateHazardDTO) (*View, error) {
	d, err := dto.parse()
	if err != nil {
		return nil, err
	}

	h, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	snap := h.Snapshot()
	if !s.policy.CanEditDetails(actor.Role, actor.UserID, snap) {
		s.logger.Warn("hazard edit denied", "hazard_id", id, "user_id", actor.UserID, "role", actor.Role.String())
		return nil, ErrForbidden
	}

	if !strings.EqualFold(d.hazardType, h.HazardType) {
		if err := s.checkType(ctx, d.hazardType); err != nil {
			return nil, err
		}
	}

	changes := changedFields(h, d)
	if len(changes) == 0 {
		return s.view(actor, h, s.now()), nil
	}

	updated := *h
	updated.Title = d.title
	updated.Description = d.description
	updated.Severity = d.severity
	updated.HazardType = d.hazardType
	updated.DueDate = d.dueDate

	if err := s.repo.UpdateDetails(ctx, &updated, snap, strings.Join(changes, ", "), actor.UserID); err != nil {
		return nil, s.storeError("update hazard", id, err)
	}

	s.logger.Info("hazard updated", "hazard_id", id, "user_id", actor.UserID, "fields", changes)
	return s.reload(ctx, actor, &updated), nil
}

// SelfAssign lets a site manager take ownership of an open unassigned
// hazard.
func (s *Service) SelfAssign(ctx context.Context, actor Actor, id int64) (*View, error) {
	h, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	snap := h.Snapshot()
	if !s.policy.CanSelfAssign(actor.Role, actor.UserID, snap) {
		s.logger.Warn("hazard self-assign denied", "hazard_id", id, "user_id", actor.UserID, "role", actor.Role.String())
		return nil, ErrForbidden
	}

	return s.assign(ctx, actor, h, snap, actor.UserID)
}

// AssignTo assigns the hazard to an active site manager.
func (s *Service) AssignTo(ctx context.Context, actor Actor, id int64, dto AssignHazardDTO) (*View, error) {
	if !s.policy.CanAssignToOther(actor.Role) {
		s.logger.Warn("hazard assignment denied", "hazard_id", id, "user_id", actor.UserID, "role", actor.Role.String())
		return nil, ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	h, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.users.IsAssignable(ctx, dto.AssigneeID)
	if err != nil {
		s.logger.Error("failed to check assignee", "error", err, "assignee_id", dto.AssigneeID)
		return nil, internal.NewInternalError("failed to check assignee", err)
	}
	if !ok {
		return nil, ErrInvalidAssignee
	}

	return s.assign(ctx, actor, h, h.Snapshot(), dto.AssigneeID)
}

func (s *Service) assign(ctx context.Context, actor Actor, h *Hazard, snap *access.HazardSnapshot, assigneeID int64) (*View, error) {
	if err := s.repo.Assign(ctx, h.ID, assigneeID, snap, actor.UserID); err != nil {
		return nil, s.storeError("assign hazard", h.ID, err)
	}

	s.logger.Info("hazard assigned", "hazard_id", h.ID, "assigned_to", assigneeID, "user_id", actor.UserID)
	s.publish(ctx, events.NewHazardAssignedEvent(h.ID, assigneeID, actor.UserID))

	updated := *h
	updated.AssignedTo = &assigneeID
	updated.AssignedToName = ""
	return s.reload(ctx, actor, &updated), nil
}

// ChangeStatus moves the hazard to the requested status if the actor's
// role allows that transition.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id int64, dto ChangeStatusDTO) (*View, error) {
	to, note, err := dto.parse()
	if err != nil {
		return nil, err
	}

	h, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	snap := h.Snapshot()
	if !s.policy.CanChangeStatus(actor.Role, actor.UserID, snap, to) {
		s.logger.Warn("hazard status change denied",
			"hazard_id", id,
			"user_id", actor.UserID,
			"role", actor.Role.String(),
			"from", h.Status.String(),
			"to", to.String())
		return nil, ErrForbidden
	}

	if err := s.repo.ChangeStatus(ctx, id, to, snap, note, actor.UserID); err != nil {
		return nil, s.storeError("change hazard status", id, err)
	}

	s.logger.Info("hazard status changed", "hazard_id", id, "from", h.Status.String(), "to", to.String(), "user_id", actor.UserID)
	s.publish(ctx, events.NewHazardStatusChangedEvent(id, h.Status.String(), to.String(), actor.UserID))

	updated := *h
	updated.Status = to
	return s.reload(ctx, actor, &updated), nil
}

// AddComment appends a comment to the hazard's audit log.
func (s *Service) AddComment(ctx context.Context, actor Actor, id int64, dto CommentDTO) (*Log, error) {
	if !s.policy.CanAddComment(actor.Role) {
		return nil, ErrForbidden
	}

	comment, err := dto.parse()
	if err != nil {
		return nil, err
	}

	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}

	entry := &Log{
		HazardID:    id,
		ActionType:  ActionComment,
		Details:     comment,
		PerformedBy: actor.UserID,
	}
	if err := s.repo.AddLog(ctx, entry); err != nil {
		return nil, s.storeError("add hazard comment", id, err)
	}

	s.publish(ctx, events.NewHazardCommentedEvent(id, actor.UserID))
	return entry, nil
}

// Logs returns the hazard's audit trail, oldest first.
func (s *Service) Logs(ctx context.Context, actor Actor, id int64) ([]*Log, error) {
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}

	logs, err := s.repo.Logs(ctx, id)
	if err != nil {
		return nil, s.storeError("load hazard logs", id, err)
	}
	return logs, nil
}

// Dashboard aggregates the hazards visible to the actor.
func (s *Service) Dashboard(ctx context.Context, actor Actor) (*DashboardMetrics, error) {
	if !actor.Role.IsKnown() {
		return nil, ErrForbidden
	}

	metrics, err := s.repo.Dashboard(ctx, actor.Scope(), NormalizeDate(s.now().UTC()))
	if err != nil {
		s.logger.Error("failed to load dashboard", "error", err, "user_id", actor.UserID)
		return nil, internal.NewInternalError("failed to load dashboard", err)
	}
	return metrics, nil
}

func (s *Service) Classify(description string) Classification {
	return s.classifier.Classify(description)
}

func (s *Service) loadVisible(ctx context.Context, actor Actor, id int64) (*Hazard, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrHazardNotFound) {
			return nil, ErrHazardNotFound
		}
		s.logger.Error("failed to load hazard", "error", err, "hazard_id", id)
		return nil, internal.NewInternalError("failed to load hazard", err)
	}

	if !s.policy.CanView(actor.Role, actor.UserID, h.Snapshot()) {
		s.logger.Warn("hazard view denied", "hazard_id", id, "user_id", actor.UserID, "role", actor.Role.String())
		return nil, ErrHazardNotFound
	}
	return h, nil
}

// reload re-reads h after a write so joined names are current. If the read
// fails the in-memory copy is returned.
func (s *Service) reload(ctx context.Context, actor Actor, h *Hazard) *View {
	fresh, err := s.repo.GetByID(ctx, h.ID)
	if err != nil {
		s.logger.Warn("failed to reload hazard", "error", err, "hazard_id", h.ID)
		fresh = h
	}
	return s.view(actor, fresh, s.now())
}

func (s *Service) view(actor Actor, h *Hazard, now time.Time) *View {
	return &View{
		Hazard:      h,
		Permissions: s.policy.Decide(actor.Role, actor.UserID, h.Snapshot()),
		IsOverdue:   h.IsOverdue(now.UTC()),
	}
}

func (s *Service) checkType(ctx context.Context, name string) error {
	ok, err := s.types.IsActiveType(ctx, name)
	if err != nil {
		s.logger.Error("failed to check hazard type", "error", err, "hazard_type", name)
		return internal.NewInternalError("failed to check hazard type", err)
	}
	if !ok {
		return ErrInvalidType
	}
	return nil
}

func (s *Service) storeError(op string, id int64, err error) error {
	if errors.Is(err, ErrHazardConflict) {
		s.logger.Warn("hazard changed concurrently", "op", op, "hazard_id", id)
		return ErrHazardConflict
	}
	if errors.Is(err, ErrHazardNotFound) {
		return ErrHazardNotFound
	}
	s.logger.Error("hazard store failed", "op", op, "error", err, "hazard_id", id)
	return internal.NewInternalError(fmt.Sprintf("failed to %s", op), err)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func changedFields(h *Hazard, d details) []string {
	var changes []string
	if h.Title != d.title {
		changes = append(changes, "title")
	}
	if h.Description != d.description {
		changes = append(changes, "description")
	}
	if h.Severity != d.severity {
		changes = append(changes, "severity")
	}
	if h.HazardType != d.hazardType {
		changes = append(changes, "hazard_type")
	}
	if !sameDate(h.DueDate, d.dueDate) {
		changes = append(changes, "due_date")
	}
	return changes
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return NormalizeDate(*a).Equal(NormalizeDate(*b))
}
