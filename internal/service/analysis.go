package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/cache"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/metrics"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/repository"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/schedule"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/stabilizer"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/validator"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/ws"
	"github.com/google/uuid"
)

// AnalysisResult é o artefato completo de um run: árvore estabilizada,
// metadados de consenso, auditoria e cronograma.
type AnalysisResult struct {
	RunID      string              `json:"run_id"`
	Tree       *model.WBSTree      `json:"tree"`
	Metadata   stabilizer.Metadata `json:"metadata"`
	Validation *validator.Result   `json:"validation,omitempty"`
	Schedule   *schedule.Schedule  `json:"schedule,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AnalysisService orquestra o pipeline completo: geração em ensemble,
// consenso, validação e cronograma.
type AnalysisService struct {
	ensemble  *EnsembleService
	engine    *stabilizer.Engine
	validator *validator.Validator
	scheduler *schedule.Scheduler
	store     *cache.Store[*AnalysisResult]
	history   *repository.HistoryRepository
	hub       ProgressSink

	defaultIterations int
}

// NewAnalysisService cria o serviço de análise. history e hub são
// opcionais; ensemble pode ser nil quando o gerador não está configurado.
func NewAnalysisService(
	ensemble *EnsembleService,
	engine *stabilizer.Engine,
	v *validator.Validator,
	scheduler *schedule.Scheduler,
	store *cache.Store[*AnalysisResult],
	history *repository.HistoryRepository,
	hub ProgressSink,
	defaultIterations int,
) *AnalysisService {
	if defaultIterations <= 0 {
		defaultIterations = 3
	}
	return &AnalysisService{
		ensemble:          ensemble,
		engine:            engine,
		validator:         v,
		scheduler:         scheduler,
		store:             store,
		history:           history,
		hub:               hub,
		defaultIterations: defaultIterations,
	}
}

// Analyze executa o pipeline completo a partir de um documento de
// requisitos e guarda o resultado para consulta posterior.
func (s *AnalysisService) Analyze(ctx context.Context, runID, document string, iterations int, method string) (*AnalysisResult, error) {
	start := time.Now()

	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = logger.WithRunID(ctx, runID)
	log := logger.Get(ctx)
	if iterations <= 0 {
		iterations = s.defaultIterations
	}

	metrics.Get().IncrementRunStarted()

	if s.ensemble == nil {
		metrics.Get().IncrementRunFailed()
		return nil, model.ErrGeneratorDisabled
	}

	trees, err := s.ensemble.Run(ctx, runID, document, iterations)
	if err != nil {
		metrics.Get().IncrementRunFailed()
		s.notify(runID, "failed", err.Error())
		return nil, err
	}

	result, err := s.Stabilize(ctx, runID, trees, method)
	if err != nil {
		metrics.Get().IncrementRunFailed()
		s.notify(runID, "failed", err.Error())
		return nil, err
	}

	log.Info().
		Str("run_id", runID).
		Int("iterations", iterations).
		Dur("elapsed", time.Since(start)).
		Msg("Análise concluída")

	return result, nil
}

// Stabilize executa a etapa de consenso sobre árvores já geradas (ou
// enviadas pelo cliente), seguida de validação e cronograma.
func (s *AnalysisService) Stabilize(ctx context.Context, runID string, trees []*model.WBSTree, method string) (*AnalysisResult, error) {
	if runID == "" {
		runID = uuid.New().String()
	}

	s.notify(runID, "stabilizing", "Calculando consenso do ensemble")

	stabilized, err := s.engine.Stabilize(trees, method)
	if err != nil {
		return nil, err
	}

	s.notify(runID, "validating", "Auditando resultado estabilizado")
	validation := s.validator.Validate(stabilized.Tree)

	s.notify(runID, "scheduling", "Calculando cronograma")
	sched := s.scheduler.Compute(stabilized.Tree)

	result := &AnalysisResult{
		RunID:      runID,
		Tree:       stabilized.Tree,
		Metadata:   stabilized.Metadata,
		Validation: validation,
		Schedule:   sched,
		CreatedAt:  time.Now(),
	}

	if s.store != nil {
		s.store.Set(runID, result)
	}

	metrics.Get().IncrementRunCompleted(stabilized.Metadata.OutliersRemoved)
	s.saveHistory(ctx, result)
	s.notify(runID, "completed", "Run concluído")

	return result, nil
}

// GetResult busca um resultado retido em memória
func (s *AnalysisService) GetResult(runID string) (*AnalysisResult, error) {
	if s.store == nil {
		return nil, model.ErrResultNotFound
	}
	result, ok := s.store.Get(runID)
	if !ok {
		return nil, model.ErrResultNotFound
	}
	return result, nil
}

// saveHistory persiste o run quando o histórico está habilitado. Falha de
// persistência não derruba o run: o resultado já está em memória.
func (s *AnalysisService) saveHistory(ctx context.Context, result *AnalysisResult) {
	if s.history == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("run_id", result.RunID).
			Msg("Erro ao serializar run para o histórico")
		return
	}

	rec := repository.RunRecord{
		ID:              result.RunID,
		Method:          result.Metadata.Method,
		TotalIterations: result.Metadata.TotalIterations,
		UsedIterations:  result.Metadata.UsedIterations,
		OutliersRemoved: result.Metadata.OutliersRemoved,
		Confidence:      result.Metadata.Confidence,
		Result:          raw,
	}
	if result.Tree != nil {
		rec.ProjectName = result.Tree.ProjectInfo.ProjectName
		rec.TotalHours = result.Tree.ProjectInfo.TotalEstimatedHours
	}
	if result.Validation != nil {
		rec.IsValid = result.Validation.IsValid
	} else {
		rec.IsValid = true
	}

	if err := s.history.SaveRun(rec); err != nil {
		logger.Get(ctx).Error().Err(err).Str("run_id", result.RunID).
			Msg("Erro ao salvar run no histórico")
	}
}

func (s *AnalysisService) notify(runID, stage, message string) {
	if s.hub == nil || runID == "" {
		return
	}
	s.hub.SendProgress(ws.RunProgress{
		RunID:   runID,
		Stage:   stage,
		Message: message,
	})
}
