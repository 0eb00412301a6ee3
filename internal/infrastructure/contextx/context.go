package contextx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = fmt.Errorf("not found in context")

type contextKey string

func (key contextKey) String() string {
	return string(key)
}

const (
	ContextKeyRequestID = contextKey("request_id")
	ContextKeyUserID    = contextKey("user_id")
	ContextKeySessionID = contextKey("session_id")
)

func getValue[T any](ctx context.Context, key contextKey) (T, error) {
	var zero T

	value := ctx.Value(key)
	if value == nil {
		return zero, fmt.Errorf("key %v: %w", key, ErrNotFound)
	}

	v, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("key %v: wrong format in context, got %T, want %T", key, value, zero)
	}

	return v, nil
}

// GetRequestID returns the ID of the outgoing backend request being performed.
func GetRequestID(ctx context.Context) (uuid.UUID, error) {
	id, err := getValue[uuid.UUID](ctx, ContextKeyRequestID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("contextx.GetRequestID: %w", err)
	}

	return id, nil
}

func GetUserID(ctx context.Context) (int64, error) {
	id, err := getValue[int64](ctx, ContextKeyUserID)
	if err != nil {
		return 0, fmt.Errorf("contextx.GetUserID: %w", err)
	}

	return id, nil
}

func GetSessionID(ctx context.Context) (uuid.UUID, error) {
	id, err := getValue[uuid.UUID](ctx, ContextKeySessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("contextx.GetSessionID: %w", err)
	}

	return id, nil
}

func SetRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

func SetUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, id)
}

func SetSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}
