package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/model"
	"golang.org/x/time/rate"
)

const (
	// RequestsPerMinute limite conservador para a API de geração
	RequestsPerMinute = 60

	// DefaultTimeout timeout padrão para requisições
	DefaultTimeout = 120 * time.Second

	// RetryMaxAttempts número máximo de tentativas por chamada
	RetryMaxAttempts = 3

	// RetryBackoff tempo de espera entre retries
	RetryBackoff = 5 * time.Second
)

// systemPrompt instrui o modelo a devolver apenas o JSON da WBS
const systemPrompt = `You are a senior project analyst. Decompose the technical specification below into a Work Breakdown Structure.

RESPOND WITH JSON ONLY, NO PROSE. Schema:
{"project_info":{"project_name":"...","description":"...","complexity_level":"Low|Medium|High","total_estimated_hours":0,"estimated_duration":"N weeks"},"wbs":{"phases":[{"id":"1","name":"...","description":"...","duration":"N days","estimated_hours":0,"work_packages":[{"id":"1.1","name":"...","estimated_hours":0,"dependencies":[],"can_start_parallel":false,"skills_required":[],"deliverables":[],"tasks":[{"id":"1.1.1","name":"...","estimated_hours":0,"status":"pending"}]}]}]}}`

// Config contém a configuração do cliente de geração
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// Generator é o cliente HTTP para a API de geração (compatível com
// chat/completions da OpenAI)
type Generator struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGenerator cria um novo cliente de geração
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/RequestsPerMinute), 5),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateWBS executa uma tentativa de geração para o documento e devolve
// a árvore interpretada. Cada chamada é independente; a temperatura
// não-zero garante variação entre as tentativas do ensemble.
func (g *Generator) GenerateWBS(ctx context.Context, document string) (*model.WBSTree, error) {
	// Aguarda rate limiter
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	content, err := g.completeWithRetry(ctx, document)
	if err != nil {
		return nil, err
	}

	tree, err := ParseWBSContent(content)
	if err != nil {
		return nil, err
	}
	tree.ApplyDefaults()
	return tree, nil
}

// completeWithRetry executa a chamada com retry e backoff
func (g *Generator) completeWithRetry(ctx context.Context, document string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= RetryMaxAttempts; attempt++ {
		content, err := g.complete(ctx, document)
		if err == nil {
			return content, nil
		}

		lastErr = err

		// Contexto cancelado ou erro definitivo: não faz retry
		if ctx.Err() != nil {
			return "", err
		}
		if err == model.ErrUnauthorized {
			return "", err
		}

		if attempt < RetryMaxAttempts {
			logger.Get(ctx).Warn().
				Int("attempt", attempt).
				Err(err).
				Msg("Falha na geração, tentando novamente")

			select {
			case <-time.After(RetryBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("geração falhou após %d tentativas: %w", RetryMaxAttempts, lastErr)
}

func (g *Generator) complete(ctx context.Context, document string) (string, error) {
	payload := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: document},
		},
		Temperature: g.cfg.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("montar payload: %w", err)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executar request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", model.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", model.ErrUnauthorized
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("API de geração retornou %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decodificar resposta: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", model.ErrInvalidResponse
	}

	return parsed.Choices[0].Message.Content, nil
}

// ParseWBSContent extrai e interpreta o JSON da WBS de uma resposta do
// modelo, tolerando cercas de código e texto ao redor.
func ParseWBSContent(content string) (*model.WBSTree, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, model.ErrInvalidResponse
	}

	tree := &model.WBSTree{}
	if err := json.Unmarshal([]byte(raw), tree); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidResponse, err)
	}
	return tree, nil
}

// ExtractJSON localiza o objeto JSON mais externo em um texto livre,
// removendo cercas markdown quando presentes.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
