package catalog

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "catalog-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog",
		Summary:     "Страница каталога книг",
		Description: "Возвращает книги страницами по limit. Следующая страница запрашивается с cursor=next_cursor.",
		Tags:        []string{"catalog"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) fingerprintOp() huma.Operation {
	return huma.Operation{
		OperationID: "catalog-fingerprint",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/fingerprint",
		Summary:     "Отпечаток каталога",
		Description: "Хеш всего каталога, сравнимый с dataHash локального кеша клиента.",
		Tags:        []string{"catalog"},
		Middlewares: h.middleware,
	}
}
