package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/humanitybadge/cli/pkg/recording"
	"github.com/humanitybadge/cli/pkg/shortener"
)

func registerToolHandlers(api huma.API, svc Service) {
	type verifyOutput struct {
		Body recording.Verification
	}

	huma.Register(api, huma.Operation{OperationID: "verify", Method: http.MethodPost, Path: "/api/v1/verify", Summary: "Score a recording without storing it", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct {
			Body recordingBody
		}) (*verifyOutput, error) {
			return &verifyOutput{Body: svc.Verify(input.Body.recording())}, nil
		})

	type decodeOutput struct {
		Body struct {
			GistID    string               `json:"gistId,omitempty"`
			Recording *recording.Recording `json:"recording,omitempty"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "decode", Method: http.MethodPost, Path: "/api/v1/decode", Summary: "Parse a viewer link", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct {
			Body struct {
				URL string `json:"url" minLength:"1" doc:"Viewer URL with ?gist= or #data="`
			}
		}) (*decodeOutput, error) {
			link, err := svc.Decode(input.Body.URL)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &decodeOutput{}
			out.Body.GistID = link.GistID
			out.Body.Recording = link.Recording
			return out, nil
		})

	type shortenOutput struct {
		Body struct {
			Results []shortener.Result `json:"results"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "shorten", Method: http.MethodPost, Path: "/api/v1/shorten", Summary: "Shorten URLs sequentially", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct {
			Body struct {
				URLs    []string `json:"urls" minItems:"1" doc:"URLs to shorten, in order"`
				DelayMS int      `json:"delayMs,omitempty" minimum:"0" default:"1000" doc:"Pause between requests"`
			}
		}) (*shortenOutput, error) {
			out := &shortenOutput{}
			out.Body.Results = svc.Shorten(ctx, input.Body.URLs, time.Duration(input.Body.DelayMS)*time.Millisecond)
			return out, nil
		})
}
