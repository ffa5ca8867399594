package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
)

// fakeGenerator devolve respostas pré-programadas por tentativa
type fakeGenerator struct {
	calls   int32
	results []*model.WBSTree
	errs    []error
	delay   time.Duration
}

func (f *fakeGenerator) GenerateWBS(ctx context.Context, document string) (*model.WBSTree, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	n := int(atomic.AddInt32(&f.calls, 1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	if n < len(f.results) {
		return f.results[n], nil
	}
	return &model.WBSTree{ProjectInfo: model.ProjectInfo{TotalEstimatedHours: 100}}, nil
}

func TestEnsembleCollectsSuccesses(t *testing.T) {
	gen := &fakeGenerator{
		results: []*model.WBSTree{
			{ProjectInfo: model.ProjectInfo{TotalEstimatedHours: 100}},
			{ProjectInfo: model.ProjectInfo{TotalEstimatedHours: 110}},
			{ProjectInfo: model.ProjectInfo{TotalEstimatedHours: 90}},
		},
	}
	svc := NewEnsembleService(gen, nil, 2, time.Minute)

	trees, err := svc.Run(context.Background(), "run-1", "spec de teste", 3)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(trees) != 3 {
		t.Errorf("árvores = %d, esperava 3", len(trees))
	}
}

func TestEnsembleToleratesPartialFailures(t *testing.T) {
	boom := errors.New("boom")
	gen := &fakeGenerator{
		errs: []error{nil, boom, nil},
	}
	svc := NewEnsembleService(gen, nil, 1, time.Minute)

	trees, err := svc.Run(context.Background(), "run-2", "spec", 3)
	if err != nil {
		t.Fatalf("falha parcial não deveria derrubar o run: %v", err)
	}
	if len(trees) != 2 {
		t.Errorf("árvores = %d, esperava 2 (uma tentativa falhou)", len(trees))
	}
}

func TestEnsembleAllFailures(t *testing.T) {
	boom := errors.New("boom")
	gen := &fakeGenerator{
		errs: []error{boom, boom, boom},
	}
	svc := NewEnsembleService(gen, nil, 2, time.Minute)

	_, err := svc.Run(context.Background(), "run-3", "spec", 3)
	if !errors.Is(err, model.ErrAllAttemptsFailed) {
		t.Fatalf("esperava ErrAllAttemptsFailed, obteve %v", err)
	}
}

func TestEnsembleNilGenerator(t *testing.T) {
	svc := NewEnsembleService(nil, nil, 2, time.Minute)

	_, err := svc.Run(context.Background(), "run-4", "spec", 3)
	if !errors.Is(err, model.ErrGeneratorDisabled) {
		t.Fatalf("esperava ErrGeneratorDisabled, obteve %v", err)
	}
}

func TestEnsembleHonorsCancellation(t *testing.T) {
	gen := &fakeGenerator{delay: time.Second}
	svc := NewEnsembleService(gen, nil, 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, "run-5", "spec", 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("esperava context.Canceled, obteve %v", err)
	}
}

func TestEnsembleDefaultsIterations(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewEnsembleService(gen, nil, 2, time.Minute)

	trees, err := svc.Run(context.Background(), "run-6", "spec", 0)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if len(trees) != 1 {
		t.Errorf("árvores = %d, esperava 1 (iterações <= 0 vira 1)", len(trees))
	}
}
