package hazard_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/core/events"
	"github.com/frahmantamala/safety-hazards/internal/hazard"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var (
	worker      = hazard.Actor{UserID: 1, Role: access.RoleFieldWorker}
	otherWorker = hazard.Actor{UserID: 2, Role: access.RoleFieldWorker}
	manager     = hazard.Actor{UserID: 7, Role: access.RoleSiteManager}
	otherMgr    = hazard.Actor{UserID: 8, Role: access.RoleSiteManager}
	officer     = hazard.Actor{UserID: 9, Role: access.RoleSafetyOfficer}
	nobody      = hazard.Actor{UserID: 10, Role: access.RoleNone}
)

func expectStatus(err error, status int) {
	appErr, ok := internal.IsAppError(err)
	ExpectWithOffset(1, ok).To(BeTrue(), "expected an AppError, got %v", err)
	ExpectWithOffset(1, appErr.StatusCode).To(Equal(status))
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		repo      *fakeRepository
		publisher *recordingPublisher
		service   *hazard.Service
		now       time.Time
	)

	openHazard := func() *hazard.Hazard {
		return repo.seed(hazard.Hazard{
			Title:       "Loose cable",
			Description: "Cable across walkway",
			ReportedBy:  worker.UserID,
			Status:      access.StatusOpen,
			Severity:    hazard.SeverityMedium,
			HazardType:  "Electrical",
		})
	}

	assignedHazard := func(assignee int64, status access.Status) *hazard.Hazard {
		return repo.seed(hazard.Hazard{
			Title:       "Blocked exit",
			Description: "Pallets in front of the fire exit",
			ReportedBy:  worker.UserID,
			AssignedTo:  int64Ptr(assignee),
			Status:      status,
			Severity:    hazard.SeverityHigh,
			HazardType:  "Physical",
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepository()
		publisher = &recordingPublisher{}
		now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
		service = hazard.NewService(repo,
			fakeUsers{assignable: map[int64]bool{7: true, 8: true}},
			defaultTypes(),
			publisher,
			quietLogger(),
			hazard.WithClock(func() time.Time { return now }))
	})

	Describe("Create", func() {
		It("records an open hazard reported by the caller", func() {
			view, err := service.Create(ctx, worker, hazard.CreateHazardDTO{
				Title:       "  Wet floor ",
				Description: "Leak near the loading dock",
				Severity:    "low",
				HazardType:  "Physical",
				DueDate:     "2026-03-20",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Hazard.ID).To(BeNumerically(">", 0))
			Expect(view.Hazard.Title).To(Equal("Wet floor"))
			Expect(view.Hazard.Status).To(Equal(access.StatusOpen))
			Expect(view.Hazard.ReportedBy).To(Equal(worker.UserID))
			Expect(view.Hazard.Severity).To(Equal(hazard.SeverityLow))
			Expect(view.Hazard.DueDate.Format("2006-01-02")).To(Equal("2026-03-20"))
			Expect(view.Permissions.CanEditDetails).To(BeTrue())
			Expect(repo.logsOf(view.Hazard.ID, hazard.ActionCreated)).To(HaveLen(1))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeHazardCreated}))
		})

		It("classifies a blank severity and type from the description", func() {
			view, err := service.Create(ctx, worker, hazard.CreateHazardDTO{
				Title:       "Smell",
				Description: "Smoke coming from the server room",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Hazard.HazardType).To(Equal("Fire"))
			Expect(view.Hazard.Severity).To(Equal(hazard.SeverityHigh))
		})

		It("keeps an explicit severity when only the type is blank", func() {
			view, err := service.Create(ctx, worker, hazard.CreateHazardDTO{
				Title:       "Acid",
				Description: "Acid spill in lab 2",
				Severity:    "Low",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Hazard.HazardType).To(Equal("Chemical"))
			Expect(view.Hazard.Severity).To(Equal(hazard.SeverityLow))
		})

		It("rejects an unknown hazard type", func() {
			_, err := service.Create(ctx, worker, hazard.CreateHazardDTO{
				Title: "x", Description: "y", Severity: "Low", HazardType: "Radiation",
			})
			Expect(err).To(MatchError(hazard.ErrInvalidType))
		})

		It("rejects invalid details with a validation error", func() {
			_, err := service.Create(ctx, worker, hazard.CreateHazardDTO{Title: " ", Description: "y"})
			expectStatus(err, http.StatusBadRequest)
			Expect(repo.nextID).To(Equal(int64(1)))
		})

		It("refuses callers without a role", func() {
			_, err := service.Create(ctx, nobody, hazard.CreateHazardDTO{Title: "x", Description: "y"})
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})
	})

	Describe("Get", func() {
		It("reports hazards outside the caller's visibility as not found", func() {
			h := assignedHazard(7, access.StatusInProgress)
			_, err := service.Get(ctx, otherWorker, h.ID)
			Expect(err).To(MatchError(hazard.ErrHazardNotFound))
			_, err = service.Get(ctx, otherMgr, h.ID)
			Expect(err).To(MatchError(hazard.ErrHazardNotFound))
		})

		It("returns the caller's permissions", func() {
			h := openHazard()
			view, err := service.Get(ctx, manager, h.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Permissions.CanView).To(BeTrue())
			Expect(view.Permissions.CanSelfAssign).To(BeTrue())
			Expect(view.Permissions.CanEditDetails).To(BeFalse())
			Expect(view.Permissions.AllowedNextStatuses).To(BeEmpty())
		})

		It("flags past-due unresolved hazards as overdue", func() {
			due := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
			h := openHazard()
			repo.hazards[h.ID].DueDate = &due

			view, err := service.Get(ctx, officer, h.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsOverdue).To(BeTrue())

			repo.hazards[h.ID].Status = access.StatusResolved
			view, err = service.Get(ctx, officer, h.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsOverdue).To(BeFalse())
		})

		It("wraps repository failures as internal errors", func() {
			repo.getErr = errors.New("connection reset")
			_, err := service.Get(ctx, officer, 1)
			expectStatus(err, http.StatusInternalServerError)
		})
	})

	Describe("List", func() {
		It("passes the caller's scope and today's date to the repository", func() {
			openHazard()
			views, err := service.List(ctx, manager, hazard.Filter{Limit: 1000})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(repo.lastScope).To(Equal(hazard.Scope{Role: access.RoleSiteManager, UserID: 7}))
			Expect(repo.lastToday).To(Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
			Expect(repo.lastFilter.Limit).To(Equal(hazard.MaxListLimit))
		})

		It("drops rows the caller may not see", func() {
			visible := openHazard()
			hidden := assignedHazard(8, access.StatusInProgress)
			repo.listOverride = []*hazard.Hazard{visible, hidden}

			views, err := service.List(ctx, manager, hazard.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Hazard.ID).To(Equal(visible.ID))
		})

		It("returns nothing to callers without a role", func() {
			openHazard()
			views, err := service.List(ctx, nobody, hazard.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})
	})

	Describe("UpdateDetails", func() {
		update := hazard.UpdateHazardDTO{
			Title:       "Loose cable near stairs",
			Description: "Cable across walkway",
			Severity:    "High",
			HazardType:  "Electrical",
		}

		It("lets the reporter edit before ownership is taken and logs the changed fields", func() {
			h := openHazard()
			view, err := service.UpdateDetails(ctx, worker, h.ID, update)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Hazard.Title).To(Equal("Loose cable near stairs"))
			Expect(view.Hazard.Severity).To(Equal(hazard.SeverityHigh))

			logs := repo.logsOf(h.ID, hazard.ActionUpdated)
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].Details).To(Equal("Changed title, severity"))
		})

		It("writes nothing when no field changes", func() {
			h := openHazard()
			_, err := service.UpdateDetails(ctx, worker, h.ID, hazard.UpdateHazardDTO{
				Title: h.Title, Description: h.Description, Severity: string(h.Severity), HazardType: h.HazardType,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.logsOf(h.ID, hazard.ActionUpdated)).To(BeEmpty())
		})

		It("forbids the reporter once the hazard is assigned", func() {
			h := assignedHazard(7, access.StatusOpen)
			_, err := service.UpdateDetails(ctx, worker, h.ID, update)
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})

		It("lets the assigned manager edit a resolved hazard", func() {
			h := assignedHazard(7, access.StatusResolved)
			_, err := service.UpdateDetails(ctx, manager, h.ID, update)
			Expect(err).NotTo(HaveOccurred())
		})

		It("surfaces a concurrent change as a conflict", func() {
			h := openHazard()
			repo.conflict = true
			_, err := service.UpdateDetails(ctx, worker, h.ID, update)
			Expect(err).To(MatchError(hazard.ErrHazardConflict))
			expectStatus(err, http.StatusConflict)
		})
	})

	Describe("SelfAssign", func() {
		It("assigns an open unassigned hazard to the calling manager", func() {
			h := openHazard()
			view, err := service.SelfAssign(ctx, manager, h.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*view.Hazard.AssignedTo).To(Equal(manager.UserID))
			Expect(view.Permissions.AllowedNextStatuses).To(Equal([]string{"InProgress"}))
			Expect(publisher.types()).To(ContainElement(events.EventTypeHazardAssigned))
		})

		It("hides the hazard from a second manager once claimed", func() {
			h := openHazard()
			_, err := service.SelfAssign(ctx, manager, h.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.SelfAssign(ctx, otherMgr, h.ID)
			Expect(err).To(MatchError(hazard.ErrHazardNotFound))
		})

		It("forbids field workers and officers", func() {
			h := openHazard()
			_, err := service.SelfAssign(ctx, worker, h.ID)
			Expect(err).To(MatchError(hazard.ErrForbidden))
			_, err = service.SelfAssign(ctx, officer, h.ID)
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})
	})

	Describe("AssignTo", func() {
		It("lets an officer assign to an active site manager", func() {
			h := openHazard()
			view, err := service.AssignTo(ctx, officer, h.ID, hazard.AssignHazardDTO{AssigneeID: 8})
			Expect(err).NotTo(HaveOccurred())
			Expect(*view.Hazard.AssignedTo).To(Equal(int64(8)))
			Expect(repo.logsOf(h.ID, hazard.ActionAssigned)).To(HaveLen(1))
		})

		It("rejects assignees who are not active site managers", func() {
			h := openHazard()
			_, err := service.AssignTo(ctx, officer, h.ID, hazard.AssignHazardDTO{AssigneeID: 2})
			Expect(err).To(MatchError(hazard.ErrInvalidAssignee))
		})

		It("forbids managers from assigning to others", func() {
			h := openHazard()
			_, err := service.AssignTo(ctx, manager, h.ID, hazard.AssignHazardDTO{AssigneeID: 8})
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})
	})

	Describe("ChangeStatus", func() {
		It("moves the assigned manager's hazard one step forward", func() {
			h := assignedHazard(7, access.StatusOpen)
			view, err := service.ChangeStatus(ctx, manager, h.ID, hazard.ChangeStatusDTO{Status: "InProgress", Note: "on it"})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Hazard.Status).To(Equal(access.StatusInProgress))
			Expect(publisher.types()).To(ContainElement(events.EventTypeHazardStatusChanged))

			logs := repo.logsOf(h.ID, hazard.ActionStatusChanged)
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].Details).To(Equal("on it"))
		})

		It("forbids skipping a stage", func() {
			h := assignedHazard(7, access.StatusOpen)
			_, err := service.ChangeStatus(ctx, manager, h.ID, hazard.ChangeStatusDTO{Status: "Resolved"})
			Expect(err).To(MatchError(hazard.ErrForbidden))
			Expect(repo.hazards[h.ID].Status).To(Equal(access.StatusOpen))
		})

		It("lets an officer reopen a resolved hazard", func() {
			h := assignedHazard(7, access.StatusResolved)
			view, err := service.ChangeStatus(ctx, officer, h.ID, hazard.ChangeStatusDTO{Status: "open"})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Hazard.Status).To(Equal(access.StatusOpen))
		})

		It("rejects unknown statuses before loading the hazard", func() {
			repo.getErr = errors.New("must not be called")
			_, err := service.ChangeStatus(ctx, officer, 1, hazard.ChangeStatusDTO{Status: "Closed"})
			Expect(err).To(MatchError(hazard.ErrInvalidStatus))
		})

		It("never lets a field worker change status", func() {
			h := assignedHazard(1, access.StatusOpen)
			_, err := service.ChangeStatus(ctx, worker, h.ID, hazard.ChangeStatusDTO{Status: "InProgress"})
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})

		It("loses to a concurrent change", func() {
			h := assignedHazard(7, access.StatusOpen)
			repo.conflict = true
			_, err := service.ChangeStatus(ctx, manager, h.ID, hazard.ChangeStatusDTO{Status: "InProgress"})
			Expect(err).To(MatchError(hazard.ErrHazardConflict))
		})
	})

	Describe("AddComment", func() {
		It("appends a trimmed comment to a visible hazard", func() {
			h := openHazard()
			entry, err := service.AddComment(ctx, manager, h.ID, hazard.CommentDTO{Comment: "  checked it  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ActionType).To(Equal(hazard.ActionComment))
			Expect(entry.Details).To(Equal("checked it"))
			Expect(entry.PerformedBy).To(Equal(manager.UserID))
			Expect(publisher.types()).To(ContainElement(events.EventTypeHazardCommented))
		})

		It("rejects comments shorter than three characters", func() {
			h := openHazard()
			_, err := service.AddComment(ctx, worker, h.ID, hazard.CommentDTO{Comment: " ok "})
			expectStatus(err, http.StatusBadRequest)
		})

		It("does not confirm hazards the caller cannot see", func() {
			h := assignedHazard(8, access.StatusInProgress)
			_, err := service.AddComment(ctx, otherWorker, h.ID, hazard.CommentDTO{Comment: "hello"})
			Expect(err).To(MatchError(hazard.ErrHazardNotFound))
		})

		It("refuses callers without a role", func() {
			h := openHazard()
			_, err := service.AddComment(ctx, nobody, h.ID, hazard.CommentDTO{Comment: "hello"})
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})
	})

	Describe("Logs", func() {
		It("returns the trail of a visible hazard", func() {
			view, err := service.Create(ctx, worker, hazard.CreateHazardDTO{Title: "t", Description: "forklift parked badly"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AddComment(ctx, worker, view.Hazard.ID, hazard.CommentDTO{Comment: "still there"})
			Expect(err).NotTo(HaveOccurred())

			logs, err := service.Logs(ctx, worker, view.Hazard.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(2))
			Expect(logs[0].ActionType).To(Equal(hazard.ActionCreated))
			Expect(logs[1].ActionType).To(Equal(hazard.ActionComment))

			_, err = service.Logs(ctx, otherWorker, view.Hazard.ID)
			Expect(err).To(MatchError(hazard.ErrHazardNotFound))
		})
	})

	Describe("Dashboard", func() {
		It("aggregates within the caller's scope", func() {
			metrics, err := service.Dashboard(ctx, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(metrics.OpenCount).To(Equal(int64(2)))
			Expect(repo.lastScope).To(Equal(worker.Scope()))
		})

		It("refuses callers without a role", func() {
			_, err := service.Dashboard(ctx, nobody)
			Expect(err).To(MatchError(hazard.ErrForbidden))
		})
	})
})
