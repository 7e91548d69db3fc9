package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
)

func storedAppointment() *model.Appointment {
	date, _ := model.ParseSlotDate("2026-09-15")
	return &model.Appointment{
		ID:       "appt-1",
		UserID:   "user-1",
		DocID:    "doc-1",
		SlotDate: date,
		SlotTime: "10:30 AM",
		Amount:   120,
		Pending:  true,
		Snapshot: model.BookingSnapshot{
			DoctorName:   "Greg House",
			PatientName:  "Pat Example",
			PatientEmail: "pat@example.com",
		},
		BookedAt: time.Now().UTC(),
	}
}

func repoWith(appt *model.Appointment) *mockAppointmentRepository {
	return &mockAppointmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			if id != appt.ID {
				return nil, appointmentserrors.ErrNotFound
			}
			copied := *appt
			return &copied, nil
		},
	}
}

func TestAccept_Success(t *testing.T) {
	appt := storedAppointment()
	notifier := &mockNotifier{}
	svc := newTestService(repoWith(appt), &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, notifier)

	if err := svc.Accept(context.Background(), "doc-1", "appt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.recorded) != 1 || notifier.recorded[0].Type != model.NotifyAppointmentAccepted {
		t.Errorf("expected accepted notification, got %+v", notifier.recorded)
	}
	if notifier.recorded[0].ReceiverID != "user-1" {
		t.Errorf("notification should target the patient, got %q", notifier.recorded[0].ReceiverID)
	}
}

func TestAccept_WrongDoctor(t *testing.T) {
	svc := newTestService(repoWith(storedAppointment()), &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	err := svc.Accept(context.Background(), "doc-2", "appt-1")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestAccept_NotPending(t *testing.T) {
	repo := repoWith(storedAppointment())
	repo.markAcceptedFunc = func(ctx context.Context, id string) error {
		return appointmentserrors.ErrNotPending
	}
	svc := newTestService(repo, &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	err := svc.Accept(context.Background(), "doc-1", "appt-1")
	assertCode(t, err, apperrors.CodeConflict)
}

func TestComplete_Terminal(t *testing.T) {
	repo := repoWith(storedAppointment())
	repo.markCompletedFunc = func(ctx context.Context, id string) error {
		return appointmentserrors.ErrAlreadyTerminal
	}
	svc := newTestService(repo, &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	err := svc.Complete(context.Background(), "doc-1", "appt-1")
	assertCode(t, err, apperrors.CodeConflict)
}

func TestComplete_RequiresAccepted(t *testing.T) {
	appt := storedAppointment()
	repo := repoWith(appt)
	repo.markCompletedFunc = func(ctx context.Context, id string) error {
		switch {
		case appt.Pending:
			return appointmentserrors.ErrNotConfirmed
		case appt.Cancelled || appt.Completed:
			return appointmentserrors.ErrAlreadyTerminal
		default:
			appt.Completed = true
			return nil
		}
	}
	svc := newTestService(repo, &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	err := svc.Complete(context.Background(), "doc-1", "appt-1")
	assertCode(t, err, apperrors.CodeConflict)
	if appt.Completed {
		t.Fatal("pending appointment must not reach completed")
	}

	appt.Pending = false
	if err := svc.Complete(context.Background(), "doc-1", "appt-1"); err != nil {
		t.Fatalf("unexpected error after confirmation: %v", err)
	}
	if !appt.Completed {
		t.Error("confirmed appointment should complete")
	}
}

func TestCancel_ByPatientReleasesSlot(t *testing.T) {
	appt := storedAppointment()
	var released []string
	var recordedBy string
	repo := repoWith(appt)
	repo.markCancelledFunc = func(ctx context.Context, id string, by string, at time.Time) error {
		recordedBy = by
		return nil
	}
	doctors := &mockDoctors{
		releaseSlotFunc: func(ctx context.Context, id string, date model.SlotDate, slotTime string) error {
			released = append(released, id+"/"+date.String()+"/"+slotTime)
			return nil
		},
	}
	svc := newTestService(repo, &mockSlotLocks{}, doctors, &mockUsers{}, &mockNotifier{})

	actor := auth.Principal{ID: "user-1", Role: auth.RolePatient}
	if err := svc.Cancel(context.Background(), actor, "appt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if recordedBy != model.CancelledByUser {
		t.Errorf("expected cancelled_by %q, got %q", model.CancelledByUser, recordedBy)
	}
	if len(released) != 1 || released[0] != "doc-1/2026-09-15/10:30 AM" {
		t.Errorf("expected one slot release, got %v", released)
	}
}

func TestCancel_OwnershipEnforced(t *testing.T) {
	cases := []struct {
		name  string
		actor auth.Principal
	}{
		{"other patient", auth.Principal{ID: "user-2", Role: auth.RolePatient}},
		{"other doctor", auth.Principal{ID: "doc-2", Role: auth.RoleDoctor}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(repoWith(storedAppointment()), &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

			err := svc.Cancel(context.Background(), tc.actor, "appt-1")
			assertCode(t, err, apperrors.CodeForbidden)
		})
	}
}

func TestCancel_AdminBypassesOwnership(t *testing.T) {
	var recordedBy string
	repo := repoWith(storedAppointment())
	repo.markCancelledFunc = func(ctx context.Context, id string, by string, at time.Time) error {
		recordedBy = by
		return nil
	}
	svc := newTestService(repo, &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	actor := auth.Principal{ID: "admin", Role: auth.RoleAdmin}
	if err := svc.Cancel(context.Background(), actor, "appt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recordedBy != model.CancelledByAdmin {
		t.Errorf("expected cancelled_by %q, got %q", model.CancelledByAdmin, recordedBy)
	}
}

func TestCancel_DoubleCancelConflicts(t *testing.T) {
	var mu sync.Mutex
	cancelled := false
	repo := repoWith(storedAppointment())
	repo.markCancelledFunc = func(ctx context.Context, id string, by string, at time.Time) error {
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			return appointmentserrors.ErrAlreadyTerminal
		}
		cancelled = true
		return nil
	}
	releases := 0
	doctors := &mockDoctors{
		releaseSlotFunc: func(ctx context.Context, id string, date model.SlotDate, slotTime string) error {
			releases++
			return nil
		},
	}
	svc := newTestService(repo, &mockSlotLocks{}, doctors, &mockUsers{}, &mockNotifier{})
	actor := auth.Principal{ID: "user-1", Role: auth.RolePatient}

	if err := svc.Cancel(context.Background(), actor, "appt-1"); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	err := svc.Cancel(context.Background(), actor, "appt-1")
	assertCode(t, err, apperrors.CodeConflict)

	if releases != 1 {
		t.Errorf("slot must be released exactly once, got %d", releases)
	}
}

func TestSendRemedy_RequiresCompleted(t *testing.T) {
	svc := newTestService(repoWith(storedAppointment()), &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	err := svc.SendRemedy(context.Background(), "doc-1", "appt-1", strings.NewReader("img"), "scan.png")
	assertCode(t, err, apperrors.CodeConflict)
}

func TestSendRemedy_ExactlyOnce(t *testing.T) {
	appt := storedAppointment()
	appt.Pending = false
	appt.Completed = true
	appt.RemedySent = true
	svc := newTestService(repoWith(appt), &mockSlotLocks{}, &mockDoctors{}, &mockUsers{}, &mockNotifier{})

	err := svc.SendRemedy(context.Background(), "doc-1", "appt-1", strings.NewReader("img"), "scan.png")
	assertCode(t, err, apperrors.CodeConflict)
}

func TestRemoveDoctor_Cascade(t *testing.T) {
	date, _ := model.ParseSlotDate("2026-09-15")
	active := &model.Appointment{ID: "a1", UserID: "user-1", DocID: "doc-1", SlotDate: date, SlotTime: "9:00 AM", Pending: true}
	done := &model.Appointment{ID: "a2", UserID: "user-2", DocID: "doc-1", SlotDate: date, SlotTime: "10:00 AM", Completed: true}

	var cancelledIDs []string
	var purgedAppointments, purgedReviews, deletedDoctors bool

	repo := &mockAppointmentRepository{
		findByDoctorFunc: func(ctx context.Context, docID string, limit int, offset int64) ([]*model.Appointment, error) {
			return []*model.Appointment{active, done}, nil
		},
		markCancelledFunc: func(ctx context.Context, id string, by string, at time.Time) error {
			if by != model.CancelledByAdmin {
				t.Errorf("cascade cancellations must be recorded as admin, got %q", by)
			}
			cancelledIDs = append(cancelledIDs, id)
			return nil
		},
		deleteByDoctorFunc: func(ctx context.Context, docID string) (int64, error) {
			purgedAppointments = true
			return 2, nil
		},
	}
	doctors := &mockDoctors{
		deleteFunc: func(ctx context.Context, id string) error {
			deletedDoctors = true
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := newTestService(repo, &mockSlotLocks{}, doctors, &mockUsers{}, notifier)
	svc.reviews = &mockReviewPurger{
		deleteByDoctorFunc: func(ctx context.Context, docID string) (int64, error) {
			purgedReviews = true
			return 1, nil
		},
	}

	if err := svc.RemoveDoctor(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cancelledIDs) != 1 || cancelledIDs[0] != "a1" {
		t.Errorf("only the active appointment should be cancelled, got %v", cancelledIDs)
	}
	if !purgedAppointments || !purgedReviews || !deletedDoctors {
		t.Errorf("cascade incomplete: appointments=%v reviews=%v doctor=%v", purgedAppointments, purgedReviews, deletedDoctors)
	}
	if len(notifier.recorded) != 1 || notifier.recorded[0].ReceiverID != "user-1" {
		t.Errorf("expected one cancellation notification to user-1, got %+v", notifier.recorded)
	}
}
