package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
	"github.com/izzyftw1/rvi-sub013/internal/mes/service"
	"github.com/izzyftw1/rvi-sub013/internal/mes/testutil"
	"github.com/izzyftw1/rvi-sub013/internal/middleware"
)

func setupGateHandlerTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	hub := notify.NewHub(0, nil)
	services := service.NewServices(repos, hub, nil, nil)
	h := NewGateHandler(services.Gate)

	r := testutil.SetupRouter()
	wos := testutil.AuthGroup(r, "/api/v1").Group("/work-orders")
	wos.GET("/:id/can-release", h.CanRelease)
	supervisor := wos.Group("", middleware.RequireRole("mes_supervisor"))
	supervisor.POST("/:id/release", h.Release)
	supervisor.POST("/:id/complete", h.Complete)
	return db, r
}

func seedGateWO(t *testing.T, db *gorm.DB, material, firstPiece string) *entity.WorkOrder {
	t.Helper()
	wo := &entity.WorkOrder{
		ID:                      uuid.New().String(),
		WOCode:                  "WO-H-" + uuid.New().String()[:8],
		ItemCode:                "ITM-777",
		ItemName:                "轴套",
		Quantity:                500,
		CurrentStage:            entity.StageRawMaterial,
		ProductionReleaseStatus: entity.ReleaseStatusNotReleased,
		QCMaterialStatus:        material,
		QCFirstPieceStatus:      firstPiece,
		CreatedAt:               time.Now(),
		UpdatedAt:               time.Now(),
	}
	if err := db.Create(wo).Error; err != nil {
		t.Fatalf("Failed to seed work order: %v", err)
	}
	return wo
}

func TestReleaseEndpointRequiresSupervisorRole(t *testing.T) {
	db, r := setupGateHandlerTest(t)
	wo := seedGateWO(t, db, "passed", "passed")
	path := "/api/v1/work-orders/" + wo.ID + "/release"

	w := testutil.DoRequest(r, http.MethodPost, path, gin.H{"notes": "ok"}, testutil.OperatorToken())
	if w.Code != http.StatusForbidden {
		t.Fatalf("operator should get 403, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"notes": "ok"}, testutil.SupervisorToken())
	if w.Code != http.StatusOK {
		t.Fatalf("supervisor release failed: %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Code int              `json:"code"`
		Data entity.WorkOrder `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Code != 0 || resp.Data.ProductionReleaseStatus != entity.ReleaseStatusReleased {
		t.Errorf("unexpected response: code=%d status=%s", resp.Code, resp.Data.ProductionReleaseStatus)
	}
}

func TestReleaseEndpointRejectsUnauthenticated(t *testing.T) {
	db, r := setupGateHandlerTest(t)
	wo := seedGateWO(t, db, "passed", "passed")

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/work-orders/"+wo.ID+"/release", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

// TestReleaseEndpointRejectsMalformedBody 空 body 合法（notes 可选），
// 但给了 body 就必须是合法 JSON
func TestReleaseEndpointRejectsMalformedBody(t *testing.T) {
	db, r := setupGateHandlerTest(t)
	wo := seedGateWO(t, db, "passed", "passed")
	path := "/api/v1/work-orders/" + wo.ID + "/release"

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testutil.SupervisorToken())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body should be 400, got %d: %s", w.Code, w.Body.String())
	}

	fresh := &entity.WorkOrder{}
	if err := db.Where("id = ?", wo.ID).First(fresh).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if fresh.ProductionReleaseStatus != entity.ReleaseStatusNotReleased {
		t.Error("malformed request must not release the work order")
	}

	// 空 body 不受影响
	w = testutil.DoRequest(r, http.MethodPost, path, nil, testutil.SupervisorToken())
	if w.Code != http.StatusOK {
		t.Fatalf("empty-body release failed: %d: %s", w.Code, w.Body.String())
	}
}

func TestReleaseEndpointFailsClosedOnIncompleteGates(t *testing.T) {
	db, r := setupGateHandlerTest(t)
	wo := seedGateWO(t, db, "pending", "passed")
	path := "/api/v1/work-orders/" + wo.ID

	w := testutil.DoRequest(r, http.MethodGet, path+"/can-release", nil, testutil.OperatorToken())
	if w.Code != http.StatusOK {
		t.Fatalf("can-release failed: %d", w.Code)
	}
	var check struct {
		Data struct {
			CanRelease bool `json:"can_release"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &check); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if check.Data.CanRelease {
		t.Error("can_release should be false with pending material gate")
	}

	w = testutil.DoRequest(r, http.MethodPost, path+"/release", nil, testutil.SupervisorToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("release with incomplete gates should be 400, got %d", w.Code)
	}
}

func TestCompleteEndpointValidatesReason(t *testing.T) {
	db, r := setupGateHandlerTest(t)
	wo := seedGateWO(t, db, "passed", "passed")
	path := "/api/v1/work-orders/" + wo.ID + "/complete"

	// reason 是必填字段
	w := testutil.DoRequest(r, http.MethodPost, path, gin.H{}, testutil.SupervisorToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing reason should be 400, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"reason": "qty_reached"}, testutil.SupervisorToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("qty_reached below plan should be 400, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"reason": "manual", "notes": "提前关单"}, testutil.SupervisorToken())
	if w.Code != http.StatusOK {
		t.Fatalf("manual complete failed: %d: %s", w.Code, w.Body.String())
	}
}
