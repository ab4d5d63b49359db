package catalog

import "stefabooks/internal/domain/book"

type listInput struct {
	Limit  int    `query:"limit" minimum:"0" example:"1000" doc:"Размер страницы, 0 - максимальный"`
	Cursor string `query:"cursor" doc:"next_cursor предыдущей страницы; пусто - первая страница"`
}

type listOutput struct {
	Status int
	Body   listResponse
}

type listResponse struct {
	Success    bool        `json:"success" doc:"false, если каталог не удалось прочитать"`
	Data       []book.Book `json:"data" doc:"Книги в порядке каталога"`
	Error      string      `json:"error,omitempty"`
	HasMore    bool        `json:"has_more" doc:"Есть ли следующая страница"`
	NextCursor string      `json:"next_cursor,omitempty" doc:"Курсор следующей страницы"`
}

type fingerprintOutput struct {
	Body fingerprintResponse
}

type fingerprintResponse struct {
	Hash string `json:"hash" example:"0000000012ab34cd" doc:"Отпечаток всего каталога"`
}
