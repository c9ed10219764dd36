package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykarpenko/solvebot-backend/internal/gateway"
	"github.com/ykarpenko/solvebot-backend/internal/quota"
)

type fakeLedgerService struct {
	consumeResult gateway.ConsumeResult
	status        gateway.Status
	contacts      []int64
	codes         []string
	consumedKinds []quota.Kind
}

func (f *fakeLedgerService) EnsureContact(ctx context.Context, userID int64, referrerCode string) error {
	f.contacts = append(f.contacts, userID)
	f.codes = append(f.codes, referrerCode)
	return nil
}

func (f *fakeLedgerService) Consume(ctx context.Context, userID int64, kind quota.Kind) (gateway.ConsumeResult, error) {
	f.consumedKinds = append(f.consumedKinds, kind)
	return f.consumeResult, nil
}

func (f *fakeLedgerService) Status(ctx context.Context, userID int64) (gateway.Status, error) {
	return f.status, nil
}

func TestConsumeAllowed(t *testing.T) {
	svc := &fakeLedgerService{
		consumeResult: gateway.ConsumeResult{Allowed: true, RemainingTexts: 19, RemainingPhotos: 10},
	}
	handler := Consume(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/consume",
		strings.NewReader(`{"user_id":42,"kind":"text"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"allowed":true`)
	assert.Contains(t, rec.Body.String(), `"remaining_texts":19`)
	assert.Equal(t, []quota.Kind{quota.KindText}, svc.consumedKinds)
}

func TestConsumeDeniedMapsTo429(t *testing.T) {
	svc := &fakeLedgerService{
		consumeResult: gateway.ConsumeResult{Allowed: false, RemainingTexts: 0, RemainingPhotos: 3},
	}
	handler := Consume(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/consume",
		strings.NewReader(`{"user_id":42,"kind":"text"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "QUOTA_EXCEEDED")
	assert.Contains(t, rec.Body.String(), "upgrade to premium")
	assert.Contains(t, rec.Body.String(), `"upgrade":"/api/v1/plans"`)
	assert.Contains(t, rec.Body.String(), `"remaining_photos":3`)
}

func TestConsumeRejectsUnknownKind(t *testing.T) {
	svc := &fakeLedgerService{}
	handler := Consume(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/consume",
		strings.NewReader(`{"user_id":42,"kind":"video"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.consumedKinds)
}

func TestContactPassesReferralCode(t *testing.T) {
	svc := &fakeLedgerService{status: gateway.Status{ReferralSeed: 42}}
	handler := Contact(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"user_id":42,"referral_code":"ref_7"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{42}, svc.contacts)
	assert.Equal(t, []string{"ref_7"}, svc.codes)
}

func TestUserStatusParsesPathParam(t *testing.T) {
	svc := &fakeLedgerService{
		status: gateway.Status{IsPremium: true, PremiumUntil: 1_700_000_000, ReferralSeed: 42},
	}

	router := chi.NewRouter()
	router.Get("/users/{userId}/status", UserStatus(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/users/42/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"is_premium":true`)

	req = httptest.NewRequest(http.MethodGet, "/users/abc/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
