package search

// SearchResponse 是 /api/search 的响应体
type SearchResponse struct {
	Available bool     `json:"available"`
	Query     string   `json:"query"`
	Results   []Result `json:"results"`
}

// SuggestResponse 是 /api/search/suggest 的响应体
type SuggestResponse struct {
	Available   bool         `json:"available"`
	Query       string       `json:"query"`
	Suggestions []Suggestion `json:"suggestions"`
	DidYouMean  string       `json:"didYouMean,omitempty"`
}
