package logger

import (
	"context"
	"errors"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/contextx"
	"github.com/rs/zerolog"
)

func Error(ctx context.Context, loggingErr error) *zerolog.Event {
	return event(ctx, apperr.LogLevelOf(loggingErr), loggingErr)
}

func Warn(ctx context.Context, loggingErr error) *zerolog.Event {
	return event(ctx, apperr.LogLevelWarn, loggingErr)
}

func Debug(ctx context.Context) *zerolog.Event {
	return enrich(ctx, zerolog.Ctx(context.WithoutCancel(ctx)).Debug())
}

// event builds a leveled event on the request logger.
func event(ctx context.Context, level apperr.LogLevel, loggingErr error) *zerolog.Event {
	ctx = context.WithoutCancel(ctx)
	e := enrich(ctx, zerolog.Ctx(ctx).WithLevel(toZerologLevel(level)))
	if loggingErr != nil {
		e = e.Err(loggingErr)
	}

	return e
}

func enrich(ctx context.Context, e *zerolog.Event) *zerolog.Event {
	requestID, err := contextx.GetRequestID(ctx)
	if err != nil {
		if !errors.Is(err, contextx.ErrNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("logger.enrich: GetRequestID")
		}
	} else {
		e = e.Str("backend_request_id", requestID.String())
	}

	userID, err := contextx.GetUserID(ctx)
	if err != nil {
		if !errors.Is(err, contextx.ErrNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("logger.enrich: GetUserID")
		}
	} else {
		e = e.Int64("current_user_id", userID)
	}

	sessionID, err := contextx.GetSessionID(ctx)
	if err != nil {
		if !errors.Is(err, contextx.ErrNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("logger.enrich: GetSessionID")
		}
	} else {
		e = e.Str("session_id", sessionID.String())
	}

	return e
}

func toZerologLevel(level apperr.LogLevel) zerolog.Level {
	switch level {
	case apperr.LogLevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
