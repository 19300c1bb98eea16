package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/agent"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/registry"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/scoring"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/services"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/simulator"
)

type stubEvaluator struct {
	err error
}

func (e stubEvaluator) Evaluate(_ context.Context, t models.Telemetry) (scoring.Evaluation, error) {
	if e.err != nil {
		return scoring.Evaluation{}, e.err
	}
	probability := t.ToolWear / 500
	return scoring.Evaluation{
		Probability: probability,
		Status:      scoring.Classify(probability),
		Message:     "ok",
	}, nil
}

func newTestRouter(t *testing.T, evaluator registry.Evaluator) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sim := simulator.New(9)
	reg := registry.New(logger, evaluator, sim.TickAll(registry.FleetIDs))
	chatAgent := agent.New(logger, reg, nil)
	service := services.NewCopilotService(logger, reg, sim, chatAgent, nil)
	return NewHandler(logger, service).Router()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestListMachineIDs(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodGet, "/api/v1/machines/list", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Total int      `json:"total_machines"`
		IDs   []string `json:"machine_ids"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, 20, payload.Total)
	assert.Equal(t, registry.FleetIDs, payload.IDs)
}

func TestPredictOne(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodPost, "/api/v1/machines/predict/M14860", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var result models.PredictionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "M14860", result.MachineID)
	assert.Contains(t, []models.Status{models.StatusNormal, models.StatusWarning, models.StatusFailure}, result.Status)
	assert.GreaterOrEqual(t, result.Probability, 0.0)
	assert.LessOrEqual(t, result.Probability, 1.0)
}

func TestPredictUnknownMachine(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodPost, "/api/v1/machines/predict/Z9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPredictModelUnavailable(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{err: models.ErrModelUnavailable})

	resp := doRequest(t, router, http.MethodPost, "/api/v1/machines/predict/M14860", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestPredictInvalidFeatures(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{err: models.ErrInvalidFeatures})

	resp := doRequest(t, router, http.MethodPost, "/api/v1/machines/predict/M14860", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestPredictBatch(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodPost, "/api/v1/machines/predict", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Count       int                       `json:"count"`
		Predictions []models.PredictionResult `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, 20, payload.Count)
	assert.Len(t, payload.Predictions, 20)
}

func TestHighRiskAfterBatch(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	require.Equal(t, http.StatusOK, doRequest(t, router, http.MethodPost, "/api/v1/machines/predict", nil).Code)

	resp := doRequest(t, router, http.MethodGet, "/api/v1/machines/high-risk", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Count    int              `json:"count"`
		Machines []models.Machine `json:"machines"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, payload.Count, len(payload.Machines))
	for _, m := range payload.Machines {
		assert.Contains(t, []models.Status{models.StatusWarning, models.StatusFailure}, m.Status)
	}
	// Ordered by probability descending.
	for i := 1; i < len(payload.Machines); i++ {
		assert.GreaterOrEqual(t, *payload.Machines[i-1].LastProbability, *payload.Machines[i].LastProbability)
	}
}

func TestByStatusRejectsUnknownValue(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodGet, "/api/v1/machines/by-status/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestByStatusFilters(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	require.Equal(t, http.StatusOK, doRequest(t, router, http.MethodPost, "/api/v1/machines/predict", nil).Code)

	resp := doRequest(t, router, http.MethodGet, "/api/v1/machines/by-status/Normal", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Status   models.Status    `json:"status"`
		Machines []models.Machine `json:"machines"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, models.StatusNormal, payload.Status)
	for _, m := range payload.Machines {
		assert.Equal(t, models.StatusNormal, m.Status)
	}
}

func TestFleetStatus(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodGet, "/api/v1/machines/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Total    int              `json:"total_machines"`
		Machines []models.Machine `json:"machines"`
		Summary  struct {
			Normal  int `json:"normal"`
			Warning int `json:"warning"`
			Failure int `json:"failure"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, 20, payload.Total)
	assert.Len(t, payload.Machines, 20)
}

func TestChat(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	body, _ := json.Marshal(map[string]string{"query": "Bagaimana kondisi mesin M14860?"})
	resp := doRequest(t, router, http.MethodPost, "/api/v1/chat", body)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Contains(t, payload.Response, "M14860")
}

func TestChatDegradedModelStillAnswers(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{err: models.ErrModelUnavailable})

	body, _ := json.Marshal(map[string]string{"query": "M14860"})
	resp := doRequest(t, router, http.MethodPost, "/api/v1/chat", body)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Contains(t, payload.Response, "Maaf")
}

func TestChatMissingQuery(t *testing.T) {
	router := newTestRouter(t, stubEvaluator{})

	resp := doRequest(t, router, http.MethodPost, "/api/v1/chat", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
