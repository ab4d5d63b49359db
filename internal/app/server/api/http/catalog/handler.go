package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"stefabooks/internal/domain/book"
	"stefabooks/internal/domain/catalog"
)

type Handler struct {
	service    catalog.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service catalog.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.fingerprintOp(), h.fingerprint)
}

// list отвечает {success:false, error} с кодом 500, а не problem+json: клиент читает поле error.
func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	page, err := h.service.List(ctx, input.Limit, input.Cursor)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrInvalidCursor) {
			status = http.StatusBadRequest
		}
		return &listOutput{
			Status: status,
			Body: listResponse{
				Success: false,
				Data:    []book.Book{},
				Error:   err.Error(),
			},
		}, nil
	}

	return &listOutput{
		Status: http.StatusOK,
		Body: listResponse{
			Success:    true,
			Data:       page.Books,
			HasMore:    page.HasMore,
			NextCursor: page.NextCursor,
		},
	}, nil
}

func (h *Handler) fingerprint(ctx context.Context, _ *struct{}) (*fingerprintOutput, error) {
	hash, err := h.service.Fingerprint(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("catalog fingerprint unavailable", err)
	}

	return &fingerprintOutput{
		Body: fingerprintResponse{Hash: hash},
	}, nil
}
