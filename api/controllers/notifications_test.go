package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/scrapline/scrapline-backend/api/middleware"
	"github.com/scrapline/scrapline-backend/internal/notify"
)

type testNotifyService struct {
	listFn     func(ctx context.Context, params notify.ListParams) (notify.ListResult, error)
	markReadFn func(ctx context.Context, id, shopID uuid.UUID) error
}

func (s *testNotifyService) List(ctx context.Context, params notify.ListParams) (notify.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return notify.ListResult{}, nil
}

func (s *testNotifyService) MarkRead(ctx context.Context, id, shopID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, id, shopID)
	}
	return nil
}

func TestListNotificationsForwardsQuery(t *testing.T) {
	shopID := uuid.New()
	var captured notify.ListParams
	svc := &testNotifyService{
		listFn: func(ctx context.Context, params notify.ListParams) (notify.ListResult, error) {
			captured = params
			return notify.ListResult{NextCursor: "next"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=10&unread_only=true&cursor=abc", nil)
	req = req.WithContext(middleware.WithShopID(req.Context(), shopID))
	resp := httptest.NewRecorder()

	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.ShopID != shopID {
		t.Fatalf("unexpected shop %s", captured.ShopID)
	}
	if captured.Limit != 10 || !captured.UnreadOnly || captured.Cursor != "abc" {
		t.Fatalf("query not forwarded: %+v", captured)
	}
}

func TestListNotificationsRequiresShop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()

	ListNotifications(&testNotifyService{}, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	shopID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotifyService{
		markReadFn: func(ctx context.Context, id, sid uuid.UUID) error {
			called = true
			if id != notificationID || sid != shopID {
				t.Fatalf("unexpected ids %s %s", id, sid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = req.WithContext(middleware.WithShopID(req.Context(), shopID))
	req = addRouteParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()

	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["status"] != "read" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestMarkNotificationReadRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/nope/read", nil)
	req = req.WithContext(middleware.WithShopID(req.Context(), uuid.New()))
	req = addRouteParam(req, "notificationId", "nope")
	resp := httptest.NewRecorder()

	MarkNotificationRead(&testNotifyService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
