package model

import "errors"

var (
	// ErrNoResults indica que não há árvores para estabilizar
	ErrNoResults = errors.New("nenhum resultado para estabilizar")

	// ErrAllAttemptsFailed indica que todas as tentativas de geração falharam
	ErrAllAttemptsFailed = errors.New("todas as tentativas de geração falharam")

	// ErrResultNotFound indica que o resultado expirou ou nunca existiu
	ErrResultNotFound = errors.New("resultado de análise não encontrado")

	// ErrGeneratorDisabled indica que o endpoint de geração não foi configurado
	ErrGeneratorDisabled = errors.New("cliente de geração não configurado")

	// ErrRateLimited indica que a API de geração retornou 429
	ErrRateLimited = errors.New("rate limit excedido na API de geração")

	// ErrUnauthorized indica token inválido na API de geração
	ErrUnauthorized = errors.New("token da API de geração inválido ou expirado")

	// ErrInvalidResponse indica resposta sem JSON utilizável
	ErrInvalidResponse = errors.New("resposta da API de geração não contém JSON válido")
)
