package httpapi

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/loqalabs/loqa-coach/internal/progress"
)

const (
	variantBasic    = "basic"
	variantEnhanced = "enhanced"
)

type VariantInput struct {
	Variant string `path:"variant" enum:"basic,enhanced" doc:"Progress log variant"`
}

type SessionsOutput struct {
	Body []progress.SessionRecord
}

type BasicStatsOutput struct {
	Body progress.Stats
}

type EnhancedStatsOutput struct {
	Body progress.EnhancedStats
}

func RegisterProgressRoutes(api huma.API, basic *progress.Tracker, enhanced *progress.EnhancedTracker) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/v1/progress/{variant}/sessions",
		Summary:     "List recorded sessions in chronological order",
		Tags:        []string{"Progress"},
	}, func(ctx context.Context, input *VariantInput) (*SessionsOutput, error) {
		if input.Variant == variantEnhanced {
			return &SessionsOutput{Body: enhanced.All(ctx)}, nil
		}
		return &SessionsOutput{Body: basic.All(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "basic-stats",
		Method:      http.MethodGet,
		Path:        "/v1/progress/" + variantBasic + "/stats",
		Summary:     "Summary statistics over the basic log",
		Tags:        []string{"Progress"},
	}, func(ctx context.Context, _ *struct{}) (*BasicStatsOutput, error) {
		return &BasicStatsOutput{Body: basic.Stats(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "enhanced-stats",
		Method:      http.MethodGet,
		Path:        "/v1/progress/" + variantEnhanced + "/stats",
		Summary:     "Skill trends, badges and milestones over the enhanced log",
		Tags:        []string{"Progress"},
	}, func(ctx context.Context, _ *struct{}) (*EnhancedStatsOutput, error) {
		return &EnhancedStatsOutput{Body: enhanced.Stats(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "clear-sessions",
		Method:        http.MethodDelete,
		Path:          "/v1/progress/{variant}",
		Summary:       "Delete every session in a log",
		Tags:          []string{"Progress"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *VariantInput) (*struct{}, error) {
		if input.Variant == variantEnhanced {
			enhanced.Clear(ctx)
		} else {
			basic.Clear(ctx)
		}
		return nil, nil
	})
}
