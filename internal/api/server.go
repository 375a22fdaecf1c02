// Package api serves the badge operations over a local HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/humanitybadge/cli/internal/service"
	"github.com/humanitybadge/cli/pkg/archive"
	"github.com/humanitybadge/cli/pkg/deviceflow"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/share"
	"github.com/humanitybadge/cli/pkg/shortener"
	"github.com/humanitybadge/cli/pkg/store"
)

type Service interface {
	SaveRecording(ctx context.Context, rec recording.Recording) (service.SaveResult, error)
	Reshare(ctx context.Context, id string) (service.SaveResult, error)
	ListRecordings(ctx context.Context) ([]recording.Recording, error)
	GetRecording(ctx context.Context, id string) (recording.Recording, error)
	DeleteRecording(ctx context.Context, id string) error
	Usage(ctx context.Context) (count, bytes int, err error)
	Verify(rec recording.Recording) recording.Verification
	Decode(link string) (recording.ViewerLink, error)
	Shorten(ctx context.Context, urls []string, delay time.Duration) []shortener.Result
	AuthStatus(ctx context.Context) (deviceflow.AuthStatus, error)
	StartDeviceFlow(ctx context.Context) (*deviceflow.Session, error)
	PollDeviceFlow(ctx context.Context) deviceflow.PollResult
	CancelDeviceFlow(ctx context.Context) error
	PromptState(ctx context.Context) (share.PromptState, error)
	DismissPrompt(ctx context.Context) error
	SkipPrompt(ctx context.Context) error
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Humanity Badge API", "1.0.0")
	api := humachi.New(router, cfg)

	registerRecordingHandlers(api, svc)
	registerToolHandlers(api, svc)
	registerAuthHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var serverErr *deviceflow.ServerError
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrInvalidRecording), errors.Is(err, recording.ErrCorruptLink):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, deviceflow.ErrNotConfigured):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, store.ErrQuotaExceeded):
		return huma.NewError(http.StatusInsufficientStorage, err.Error())
	case errors.As(err, &serverErr):
		return huma.Error502BadGateway(serverErr.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
