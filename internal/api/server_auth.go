package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/humanitybadge/cli/pkg/deviceflow"
	"github.com/humanitybadge/cli/pkg/share"
)

func registerAuthHandlers(api huma.API, svc Service) {
	type statusOutput struct {
		Body deviceflow.AuthStatus
	}

	huma.Register(api, huma.Operation{OperationID: "auth-status", Method: http.MethodGet, Path: "/api/v1/auth/status", Summary: "Report the active GitHub credential", Tags: []string{"Auth"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			st, err := svc.AuthStatus(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &statusOutput{Body: st}, nil
		})

	type sessionOutput struct {
		Body deviceflow.Session
	}

	huma.Register(api, huma.Operation{OperationID: "start-device-flow", Method: http.MethodPost, Path: "/api/v1/auth/device", Summary: "Start a GitHub device authorization", Tags: []string{"Auth"}},
		func(ctx context.Context, input *struct{}) (*sessionOutput, error) {
			sess, err := svc.StartDeviceFlow(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &sessionOutput{Body: *sess}, nil
		})

	type pollOutput struct {
		Body deviceflow.PollResult
	}

	huma.Register(api, huma.Operation{OperationID: "poll-device-flow", Method: http.MethodPost, Path: "/api/v1/auth/device/poll", Summary: "Poll the pending device authorization once", Tags: []string{"Auth"}},
		func(ctx context.Context, input *struct{}) (*pollOutput, error) {
			return &pollOutput{Body: svc.PollDeviceFlow(ctx)}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "cancel-device-flow", Method: http.MethodDelete, Path: "/api/v1/auth/device", Summary: "Cancel the pending device authorization", Tags: []string{"Auth"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			if err := svc.CancelDeviceFlow(ctx); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})

	type promptOutput struct {
		Body share.PromptState
	}

	huma.Register(api, huma.Operation{OperationID: "get-prompt", Method: http.MethodGet, Path: "/api/v1/prompt", Summary: "Read the credential prompt counters", Tags: []string{"Prompt"}},
		func(ctx context.Context, input *struct{}) (*promptOutput, error) {
			st, err := svc.PromptState(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &promptOutput{Body: st}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "dismiss-prompt", Method: http.MethodPost, Path: "/api/v1/prompt/dismiss", Summary: "Never show the credential prompt again", Tags: []string{"Prompt"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			if err := svc.DismissPrompt(ctx); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "skip-prompt", Method: http.MethodPost, Path: "/api/v1/prompt/skip", Summary: "Record that the user declined to connect GitHub", Tags: []string{"Prompt"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			if err := svc.SkipPrompt(ctx); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})
}
