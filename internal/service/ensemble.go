package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/metrics"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/ws"
)

// Generator produz uma árvore WBS a partir de um documento. Cada chamada
// é uma tentativa independente do ensemble.
type Generator interface {
	GenerateWBS(ctx context.Context, document string) (*model.WBSTree, error)
}

// ProgressSink recebe atualizações de progresso de um run
type ProgressSink interface {
	SendProgress(progress ws.RunProgress)
}

// EnsembleService executa N gerações independentes em paralelo limitado
type EnsembleService struct {
	generator      Generator
	hub            ProgressSink
	maxParallel    int
	attemptTimeout time.Duration
}

// NewEnsembleService cria o serviço de ensemble
func NewEnsembleService(generator Generator, hub ProgressSink, maxParallel int, attemptTimeout time.Duration) *EnsembleService {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	return &EnsembleService{
		generator:      generator,
		hub:            hub,
		maxParallel:    maxParallel,
		attemptTimeout: attemptTimeout,
	}
}

// Run dispara as tentativas de geração e devolve as árvores obtidas com
// sucesso, na ordem original das tentativas. Tentativas individuais podem
// falhar sem derrubar o run; só falha quando nenhuma produz resultado.
func (s *EnsembleService) Run(ctx context.Context, runID, document string, iterations int) ([]*model.WBSTree, error) {
	log := logger.Get(ctx)

	if s.generator == nil {
		return nil, model.ErrGeneratorDisabled
	}
	if iterations <= 0 {
		iterations = 1
	}

	results := make([]*model.WBSTree, iterations)
	errs := make([]error, iterations)

	sem := make(chan struct{}, s.maxParallel)
	var wg sync.WaitGroup

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func(attempt int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[attempt] = ctx.Err()
				return
			}

			s.notify(runID, "generating", attempt+1, iterations,
				fmt.Sprintf("Gerando tentativa %d de %d", attempt+1, iterations))

			attemptCtx := ctx
			if s.attemptTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
				defer cancel()
			}

			tree, err := s.generator.GenerateWBS(attemptCtx, document)
			if err != nil {
				errs[attempt] = err
				metrics.Get().IncrementAttempt(false)
				log.Warn().
					Int("attempt", attempt+1).
					Err(err).
					Msg("Tentativa de geração falhou")
				return
			}

			results[attempt] = tree
			metrics.Get().IncrementAttempt(true)
		}(i)
	}

	wg.Wait()

	trees := make([]*model.WBSTree, 0, iterations)
	for _, tree := range results {
		if tree != nil {
			trees = append(trees, tree)
		}
	}

	log.Info().
		Int("iterations", iterations).
		Int("succeeded", len(trees)).
		Msg("Ensemble de geração concluído")

	if len(trees) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrAllAttemptsFailed, firstError(errs))
	}

	s.notify(runID, "generated", iterations, iterations,
		fmt.Sprintf("%d de %d tentativas concluídas", len(trees), iterations))

	return trees, nil
}

func (s *EnsembleService) notify(runID, stage string, attempt, total int, message string) {
	if s.hub == nil || runID == "" {
		return
	}
	s.hub.SendProgress(ws.RunProgress{
		RunID:   runID,
		Stage:   stage,
		Attempt: attempt,
		Total:   total,
		Message: message,
	})
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
