package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/repository"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AnalyzeHandler expõe o pipeline completo documento -> WBS estabilizada,
// a consulta de resultados retidos e a exportação Excel.
type AnalyzeHandler struct {
	analysis *service.AnalysisService
	excel    *service.ExcelGenerator
	history  *repository.HistoryRepository
}

// NewAnalyzeHandler cria um novo handler de análise. history é opcional.
func NewAnalyzeHandler(analysis *service.AnalysisService, excel *service.ExcelGenerator, history *repository.HistoryRepository) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		excel:    excel,
		history:  history,
	}
}

// Analyze roda o pipeline completo sobre um documento de requisitos.
// O run_id é devolvido no header antes do processamento via X-Run-ID,
// permitindo acompanhar o progresso pelo WebSocket.
// @Summary Analisa um documento e devolve a WBS estabilizada
// @Tags analysis
// @Accept json
// @Produce json
// @Router /api/v1/analyze [post]
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return
	}

	runID := uuid.New().String()
	c.Header("X-Run-ID", runID)

	result, err := h.analysis.Analyze(c.Request.Context(), runID, req.Document, req.Iterations, req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    result,
		Meta:    gin.H{"run_id": result.RunID},
	})
}

// GetResult devolve um resultado retido em memória
// @Summary Busca o resultado de um run
// @Tags analysis
// @Produce json
// @Router /api/v1/results/{id} [get]
func (h *AnalyzeHandler) GetResult(c *gin.Context) {
	runID := c.Param("id")

	result, err := h.analysis.GetResult(runID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: result})
}

// DownloadExcel exporta um resultado retido como planilha
// @Summary Exporta o resultado de um run em Excel
// @Tags analysis
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/v1/results/{id}/excel [get]
func (h *AnalyzeHandler) DownloadExcel(c *gin.Context) {
	runID := c.Param("id")

	result, err := h.analysis.GetResult(runID)
	if err != nil {
		respondError(c, err)
		return
	}

	buf, err := h.excel.Generate(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "erro ao gerar planilha",
			Details: err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("wbs_%s_%s.xlsx", shortID(runID), time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// ListHistory devolve os runs mais recentes do histórico persistido
// @Summary Lista o histórico de runs
// @Tags analysis
// @Produce json
// @Router /api/v1/history [get]
func (h *AnalyzeHandler) ListHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error: "histórico não configurado",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.history.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "erro ao consultar histórico",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    records,
		Meta:    gin.H{"count": len(records)},
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
