package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
)

type mockDoctorService struct {
	getAllFunc         func(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error)
	changePasswordFunc func(ctx context.Context, id, current, next string) error
}

func (m *mockDoctorService) Add(ctx context.Context, doctor *model.Doctor, password string, image io.Reader, imageName string) error {
	return nil
}

func (m *mockDoctorService) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	return &model.Doctor{ID: id, Name: "Dr. House", Email: "house@example.com"}, nil
}

func (m *mockDoctorService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Doctor{}, 0, nil
}

func (m *mockDoctorService) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	return true, nil
}

func (m *mockDoctorService) UpdateProfile(ctx context.Context, id string, updates *model.DoctorProfileUpdate) error {
	return nil
}

func (m *mockDoctorService) Authenticate(ctx context.Context, email, password string) (*model.Doctor, error) {
	return nil, apperrors.Unauthorized("Invalid credentials")
}

func (m *mockDoctorService) ChangePassword(ctx context.Context, id, current, next string) error {
	if m.changePasswordFunc != nil {
		return m.changePasswordFunc(ctx, id, current, next)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
}

func TestList_StripsContactDetails(t *testing.T) {
	mockService := &mockDoctorService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error) {
			return []*model.Doctor{
				{ID: "doc-1", Name: "Dr. House", Email: "house@example.com", Available: true},
				{ID: "doc-2", Name: "Dr. Wilson", Email: "wilson@example.com", Available: true},
			}, 2, nil
		},
	}

	handler := &DoctorHandler{service: mockService, log: testLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/doctors?limit=10&offset=0", nil)
	w := httptest.NewRecorder()

	handler.List(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "example.com") {
		t.Errorf("public listing leaked email addresses: %s", w.Body.String())
	}
}

func TestList_InvalidPagination(t *testing.T) {
	handler := &DoctorHandler{service: &mockDoctorService{}, log: testLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/doctors?limit=abc", nil)
	w := httptest.NewRecorder()

	handler.List(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestChangePassword_UsesPrincipalID(t *testing.T) {
	var gotID string
	mockService := &mockDoctorService{
		changePasswordFunc: func(ctx context.Context, id, current, next string) error {
			gotID = id
			return nil
		},
	}

	handler := &DoctorHandler{service: mockService, log: testLogger()}

	body, _ := json.Marshal(map[string]string{
		"current_password": "old-password",
		"new_password":     "new-password-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/doctor/change-password", strings.NewReader(string(body)))
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ID: "doc-9", Role: auth.RoleDoctor}))
	w := httptest.NewRecorder()

	handler.ChangePassword(w, req, httprouter.Params{})

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if gotID != "doc-9" {
		t.Errorf("expected principal id doc-9, got %q", gotID)
	}
}
