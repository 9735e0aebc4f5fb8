package core

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrNoRoutesAvailable = errors.New("no routes available")
	ErrResponderFailed   = errors.New("responder failed")
	ErrKnowledgeBase     = errors.New("knowledge base query failed")
	ErrSnapshot          = errors.New("invalid snapshot")
)
