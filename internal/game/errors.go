package game

import "errors"

// Taxonomia de erros do engine. Erros de comando são devolvidos ao chamador
// sem alterar estado compartilhado; nunca há retry automático.
var (
	ErrValidation        = errors.New("validation failed")
	ErrState             = errors.New("invalid state for command")
	ErrUnauthorized      = errors.New("admin role required")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)
