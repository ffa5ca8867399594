package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/rules"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/schedule"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/service"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/stabilizer"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/validator"
	"github.com/gin-gonic/gin"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	rs := rules.Default()
	v := validator.New(rs)
	engine := stabilizer.NewEngine(rs, v)
	scheduler := schedule.New()
	analysis := service.NewAnalysisService(nil, engine, v, scheduler, nil, nil, nil, 3)

	h := NewWBSHandler(analysis, v, scheduler)

	r := gin.New()
	r.POST("/api/v1/stabilize", h.Stabilize)
	r.POST("/api/v1/validate", h.Validate)
	r.POST("/api/v1/schedule", h.Schedule)
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const sampleWBS = `{
	"project_info": {"project_name": "P", "total_estimated_hours": 100},
	"phases": [{"id": "1", "name": "Fase", "duration": "3 days", "estimated_hours": 100,
		"work_packages": [{"id": "1.1", "name": "WP", "estimated_hours": 100,
			"tasks": [{"id": "1.1.1", "name": "Tarefa", "estimated_hours": 8}]}]}]
}`

func TestStabilizeEndpoint(t *testing.T) {
	r := setupRouter()

	body := `{"results": [` + sampleWBS + `,` + sampleWBS + `], "method": "median", "validate": true}`
	w := post(r, "/api/v1/stabilize", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, corpo: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			RunID    string `json:"run_id"`
			Metadata struct {
				Method         string `json:"method"`
				UsedIterations int    `json:"used_iterations"`
			} `json:"metadata"`
			Validation json.RawMessage `json:"validation"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("resposta inválida: %v", err)
	}
	if !resp.Success || resp.Data.RunID == "" {
		t.Errorf("resposta inesperada: %s", w.Body.String())
	}
	if resp.Data.Metadata.UsedIterations != 2 {
		t.Errorf("iterações usadas = %d, esperava 2", resp.Data.Metadata.UsedIterations)
	}
	if len(resp.Data.Validation) == 0 {
		t.Error("validação solicitada mas ausente na resposta")
	}
}

func TestStabilizeEndpointRejectsEmptyEnsemble(t *testing.T) {
	r := setupRouter()

	w := post(r, "/api/v1/stabilize", `{"results": []}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, esperava 400", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	r := setupRouter()

	w := post(r, "/api/v1/validate", `{"wbs": `+sampleWBS+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, corpo: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			IsValid bool `json:"is_valid"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Data.IsValid {
		t.Errorf("árvore válida rejeitada: %s", w.Body.String())
	}
}

func TestScheduleEndpoint(t *testing.T) {
	r := setupRouter()

	w := post(r, "/api/v1/schedule", `{"wbs": `+sampleWBS+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, corpo: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			TotalDays int `json:"total_days"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.TotalDays <= 0 {
		t.Errorf("total de dias = %d, esperava > 0", resp.Data.TotalDays)
	}
}

func TestEndpointsRejectMalformedPayload(t *testing.T) {
	r := setupRouter()

	for _, path := range []string{"/api/v1/stabilize", "/api/v1/validate", "/api/v1/schedule"} {
		w := post(r, path, `{nonsense`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, esperava 400", path, w.Code)
		}
	}
}
