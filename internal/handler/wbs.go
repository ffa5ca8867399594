package handler

import (
	"errors"
	"net/http"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/schedule"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/service"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/validator"
	"github.com/gin-gonic/gin"
)

// WBSHandler expõe as operações síncronas sobre árvores WBS:
// estabilização de um ensemble pronto, validação e cronograma.
type WBSHandler struct {
	analysis  *service.AnalysisService
	validator *validator.Validator
	scheduler *schedule.Scheduler
}

// NewWBSHandler cria um novo handler de operações WBS
func NewWBSHandler(analysis *service.AnalysisService, v *validator.Validator, scheduler *schedule.Scheduler) *WBSHandler {
	return &WBSHandler{
		analysis:  analysis,
		validator: v,
		scheduler: scheduler,
	}
}

// Stabilize funde N árvores candidatas em um resultado de consenso
// @Summary Estabiliza um ensemble de árvores WBS
// @Tags wbs
// @Accept json
// @Produce json
// @Router /api/v1/stabilize [post]
func (h *WBSHandler) Stabilize(c *gin.Context) {
	var req model.StabilizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return
	}

	result, err := h.analysis.Stabilize(c.Request.Context(), "", req.Results, req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{
		"run_id":   result.RunID,
		"tree":     result.Tree,
		"metadata": result.Metadata,
		"schedule": result.Schedule,
	}
	if req.Validate {
		data["validation"] = result.Validation
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: data})
}

// Validate audita uma única árvore contra o conjunto de regras
// @Summary Valida uma árvore WBS
// @Tags wbs
// @Accept json
// @Produce json
// @Router /api/v1/validate [post]
func (h *WBSHandler) Validate(c *gin.Context) {
	var req model.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return
	}

	result := h.validator.Validate(req.WBS)

	c.JSON(http.StatusOK, model.Response{Success: true, Data: result})
}

// Normalize devolve uma cópia da árvore com as horas dentro das faixas
// @Summary Normaliza uma árvore WBS
// @Tags wbs
// @Accept json
// @Produce json
// @Router /api/v1/normalize [post]
func (h *WBSHandler) Normalize(c *gin.Context) {
	var req model.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return
	}

	normalized := h.validator.Normalize(req.WBS)

	c.JSON(http.StatusOK, model.Response{Success: true, Data: normalized})
}

// Schedule calcula o cronograma de uma árvore
// @Summary Calcula o cronograma de uma árvore WBS
// @Tags wbs
// @Accept json
// @Produce json
// @Router /api/v1/schedule [post]
func (h *WBSHandler) Schedule(c *gin.Context) {
	var req model.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return
	}

	sched := h.scheduler.Compute(req.WBS)

	c.JSON(http.StatusOK, model.Response{Success: true, Data: sched})
}

// respondError mapeia erros de domínio para códigos HTTP
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, model.ErrNoResults):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrResultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrGeneratorDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrAllAttemptsFailed):
		status = http.StatusBadGateway
	case errors.Is(err, model.ErrRateLimited):
		status = http.StatusTooManyRequests
	}

	c.JSON(status, model.ErrorResponse{Error: err.Error()})
}
