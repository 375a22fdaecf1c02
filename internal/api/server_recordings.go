package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/humanitybadge/cli/internal/service"
	"github.com/humanitybadge/cli/pkg/recording"
)

// recordingBody is the wire form accepted from callers. The id is optional.
type recordingBody struct {
	ID           string            `json:"id,omitempty" doc:"Recording id; generated when empty"`
	StartTime    int64             `json:"startTime" doc:"Start time in unix milliseconds"`
	EndTime      int64             `json:"endTime" doc:"End time in unix milliseconds"`
	Duration     int64             `json:"duration" minimum:"0" doc:"endTime - startTime"`
	Events       []recording.Event `json:"events" doc:"Input events in timestamp order"`
	InitialValue string            `json:"initialValue,omitempty"`
	FinalValue   string            `json:"finalValue" doc:"Field contents at the end of the session"`
	URL          string            `json:"url,omitempty" doc:"Page the text was typed on"`
	Domain       string            `json:"domain,omitempty"`
}

func (b recordingBody) recording() recording.Recording {
	return recording.Recording{
		ID:           b.ID,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Duration:     b.Duration,
		Events:       b.Events,
		InitialValue: b.InitialValue,
		FinalValue:   b.FinalValue,
		URL:          b.URL,
		Domain:       b.Domain,
	}
}

func registerRecordingHandlers(api huma.API, svc Service) {
	type saveOutput struct {
		Body service.SaveResult
	}

	huma.Register(api, huma.Operation{OperationID: "save-recording", Method: http.MethodPost, Path: "/api/v1/recordings", Summary: "Verify, archive and share a recording", Tags: []string{"Recordings"}},
		func(ctx context.Context, input *struct {
			Body recordingBody
		}) (*saveOutput, error) {
			res, err := svc.SaveRecording(ctx, input.Body.recording())
			if err != nil {
				return nil, mapErr(err)
			}
			return &saveOutput{Body: res}, nil
		})

	type listOutput struct {
		Body struct {
			Recordings []recording.Recording `json:"recordings"`
			Count      int                   `json:"count"`
			Bytes      int                   `json:"bytes"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "list-recordings", Method: http.MethodGet, Path: "/api/v1/recordings", Summary: "List archived recordings, newest first", Tags: []string{"Recordings"}},
		func(ctx context.Context, input *struct{}) (*listOutput, error) {
			recs, err := svc.ListRecordings(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			count, bytes, err := svc.Usage(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listOutput{}
			out.Body.Recordings = recs
			out.Body.Count = count
			out.Body.Bytes = bytes
			return out, nil
		})

	type idInput struct {
		ID string `path:"id" doc:"Recording id"`
	}

	type recordingOutput struct {
		Body recording.Recording
	}

	huma.Register(api, huma.Operation{OperationID: "get-recording", Method: http.MethodGet, Path: "/api/v1/recordings/{id}", Summary: "Get an archived recording", Tags: []string{"Recordings"}},
		func(ctx context.Context, input *idInput) (*recordingOutput, error) {
			rec, err := svc.GetRecording(ctx, input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &recordingOutput{Body: rec}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-recording", Method: http.MethodDelete, Path: "/api/v1/recordings/{id}", Summary: "Delete an archived recording", Tags: []string{"Recordings"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *idInput) (*struct{}, error) {
			if err := svc.DeleteRecording(ctx, input.ID); err != nil {
				return nil, mapErr(err)
			}
			return &struct{}{}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "share-recording", Method: http.MethodPost, Path: "/api/v1/recordings/{id}/share", Summary: "Resolve a fresh share link for an archived recording", Tags: []string{"Recordings"}},
		func(ctx context.Context, input *idInput) (*saveOutput, error) {
			res, err := svc.Reshare(ctx, input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &saveOutput{Body: res}, nil
		})
}
