package server

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/middleware/requestctx"
	"github.com/openkcm/admin-console/internal/openapi"
	"github.com/openkcm/admin-console/internal/serviceerr"
	"github.com/openkcm/admin-console/internal/signout"
)

// openAPIServer is an implementation of the OpenAPI interface.
type openAPIServer struct {
	terminator *signout.Terminator
}

// Ensure openAPIServer implements [openapi.StrictServerInterface]
var _ openapi.StrictServerInterface = (*openAPIServer)(nil)

// newOpenAPIServer creates a new implementation of the openapi.StrictServerInterface.
func newOpenAPIServer(terminator *signout.Terminator) *openAPIServer {
	return &openAPIServer{
		terminator: terminator,
	}
}

// SignOut implements openapi.StrictServerInterface.
func (s *openAPIServer) SignOut(ctx context.Context, _ openapi.SignOutRequestObject) (openapi.SignOutResponseObject, error) {
	slogctx.Debug(ctx, "SignOut() called")
	defer slogctx.Debug(ctx, "SignOut() completed")

	rc, err := requestctx.FromContext(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to get request context from context", "error", err)

		body, status := s.toErrorModel(serviceerr.ErrServerError)
		return openapi.SignOutdefaultJSONResponse{
			Body:       body,
			StatusCode: status,
		}, nil
	}

	if err := s.terminator.SignOut(ctx, rc); err != nil {
		body, status := s.toErrorModel(err)
		return openapi.SignOutdefaultJSONResponse{
			Body:       body,
			StatusCode: status,
		}, nil
	}

	return openapi.SignOut200JSONResponse{Ok: true}, nil
}

func (s *openAPIServer) toErrorModel(err error) (model openapi.ErrorModel, httpStatus int) {
	serviceErr := serviceerr.As(err)

	model = openapi.ErrorModel{
		Error: string(serviceErr.Err),
	}
	if serviceErr.Description != "" {
		model.ErrorDescription = &serviceErr.Description
	}

	return model, serviceErr.HTTPStatus()
}
