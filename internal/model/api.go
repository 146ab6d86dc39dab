package model

// ShortenRequest представляет структуру запроса на сокращение URL.
type ShortenRequest struct {
	URL string `json:"url"`
}

// ShortenResponse представляет структуру ответа на создание ссылки.
// При неудаче Success == false и заполнено поле Error.
type ShortenResponse struct {
	Success bool   `json:"success"`
	Link    *Link  `json:"link,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RecentLinksResponse представляет список последних созданных ссылок.
type RecentLinksResponse struct {
	Links []*Link `json:"links"`
}
