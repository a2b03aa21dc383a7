package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-analytics/internal/data/repos"
	"github.com/yungbote/textbook-analytics/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-analytics/internal/domain"
	httpH "github.com/yungbote/textbook-analytics/internal/http/handlers"
	httpMW "github.com/yungbote/textbook-analytics/internal/http/middleware"
)

func testRouter(t *testing.T, auth *httpMW.AuthMiddleware) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewRouter(RouterConfig{
		ResultsHandler: httpH.NewResultsHandler(
			log,
			repos.NewModelRunRepo(db, log),
			repos.NewModelResultRepo(db, log),
			repos.NewHeldoutPredictionRepo(db, log),
		),
		HealthHandler:  httpH.NewHealthHandler(),
		AuthMiddleware: auth,
	})
}

func seedFinishedRun(t *testing.T, name string) *types.ModelRun {
	t.Helper()
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)

	started := time.Now().UTC().Add(-time.Hour)
	run := testutil.SeedRun(t, ctx, db, started, true)
	run.BestModel = name
	run.HeldoutModel = "base"
	if err := db.WithContext(ctx).Save(run).Error; err != nil {
		t.Fatalf("save run: %v", err)
	}

	resRepo := repos.NewModelResultRepo(db, log)
	if _, err := resRepo.Create(ctx, nil, []*types.ModelResult{
		{RunID: run.ID, Name: name, Rank: 1, Converged: true, AIC: 100, Coefficients: datatypes.JSON([]byte("{}"))},
	}); err != nil {
		t.Fatalf("seed result: %v", err)
	}
	predRepo := repos.NewHeldoutPredictionRepo(db, log)
	if _, err := predRepo.Create(ctx, nil, []*types.HeldoutPrediction{
		{RunID: run.ID, SeqID: 0, StudentID: "h01", Chapter: 1, Score: 0.5},
	}); err != nil {
		t.Fatalf("seed prediction: %v", err)
	}
	return run
}

func TestRunEndpoints(t *testing.T) {
	run := seedFinishedRun(t, "base")
	r := testRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil))
	if w.Code != nethttp.StatusOK {
		t.Fatalf("healthcheck status: want=200 got=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/api/runs/latest", nil))
	if w.Code != nethttp.StatusOK {
		t.Fatalf("latest run status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	var latest struct {
		Run     types.ModelRun       `json:"run"`
		Ranking []types.ModelResult  `json:"ranking"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if latest.Run.ID != run.ID || len(latest.Ranking) != 1 {
		t.Fatalf("latest run payload: run=%v ranking=%d", latest.Run.ID, len(latest.Ranking))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/api/runs/"+run.ID.String()+"/predictions", nil))
	if w.Code != nethttp.StatusOK {
		t.Fatalf("predictions status: want=200 got=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/api/runs/not-a-uuid/results", nil))
	if w.Code != nethttp.StatusBadRequest {
		t.Fatalf("bad run id status: want=400 got=%d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	log := testutil.Logger(t)
	secret := "test-secret"
	r := testRouter(t, httpMW.NewAuthMiddleware(log, secret))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/api/runs/latest", nil))
	if w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("unauthenticated status: want=401 got=%d", w.Code)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "reader",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(nethttp.MethodGet, "/api/runs/latest", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code == nethttp.StatusUnauthorized {
		t.Fatalf("valid token must pass auth, got %d", w.Code)
	}

	req = httptest.NewRequest(nethttp.MethodGet, "/api/runs/latest", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("garbage token status: want=401 got=%d", w.Code)
	}
}
