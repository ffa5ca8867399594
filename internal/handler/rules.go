package handler

import (
	"net/http"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/rules"
	"github.com/gin-gonic/gin"
)

// RulesHandler expõe o conjunto de regras ativo
type RulesHandler struct {
	rules *rules.RuleSet
}

// NewRulesHandler cria um novo handler de regras
func NewRulesHandler(rs *rules.RuleSet) *RulesHandler {
	return &RulesHandler{rules: rs}
}

// GetRules devolve o conjunto de regras em uso
// @Summary Consulta as regras de estimativa ativas
// @Tags rules
// @Produce json
// @Router /api/v1/rules [get]
func (h *RulesHandler) GetRules(c *gin.Context) {
	c.JSON(http.StatusOK, model.Response{Success: true, Data: h.rules})
}
