package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) loadOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-load",
		Method:      http.MethodGet,
		Path:        "/api/sync/load",
		Summary:     "Загрузить снимок из облака",
		Description: "Возвращает последний сохраненный снимок пользователя. 404, если снимка нет.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) saveOp() huma.Operation {
	return huma.Operation{
		OperationID:  "sync-save",
		Method:       http.MethodPost,
		Path:         "/api/sync/save",
		Summary:      "Сохранить снимок в облако",
		Description:  "Целиком заменяет снимок пользователя. 413, если data превышает предел.",
		Tags:         []string{"sync"},
		MaxBodyBytes: h.maxBodyBytes,
		Middlewares:  h.middleware,
	}
}
