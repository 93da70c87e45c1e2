package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"Melodix/core/library"
	"Melodix/core/search"
	"Melodix/logger"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxSuggestions     = 10
)

// SearchHandler handles GET /api/search?q=&limit=. When no index is
// available it answers 200 with available=false and no results.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n > maxSearchLimit {
			n = maxSearchLimit
		}
		limit = n
	}

	resp := search.SearchResponse{Query: query, Results: []search.Result{}}
	index := h.provider.Current()
	if index == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Available = true
	resp.Results = index.Search(query, search.SearchOptions{Limit: limit})
	logger.Debug("[Search] 查询完成",
		logger.String("query", query), logger.Int("results", len(resp.Results)))
	writeJSON(w, http.StatusOK, resp)
}

// SuggestHandler handles GET /api/search/suggest?q=&fields=.
func (h *APIHandler) SuggestHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	resp := search.SuggestResponse{Query: query, Suggestions: []search.Suggestion{}}
	index := h.provider.Current()
	if index == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Available = true
	resp.Suggestions = index.AutoSuggest(query, search.SearchOptions{Fields: fields, Limit: maxSuggestions})
	if len(resp.Suggestions) > 0 {
		resp.DidYouMean = resp.Suggestions[0].Suggestion
	}
	logger.Debug("[Search] 补全完成",
		logger.String("query", query), logger.Strings("fields", fields),
		logger.Int("suggestions", len(resp.Suggestions)))
	writeJSON(w, http.StatusOK, resp)
}

// LibraryHandler 返回当前索引对应的曲库
func (h *APIHandler) LibraryHandler(w http.ResponseWriter, r *http.Request) {
	index := h.provider.Current()
	if index == nil {
		http.Error(w, "Library not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, index.Library())
}

// Reindex rebuilds the index from src, swaps it in and tells every events
// subscriber about the new version.
func (h *APIHandler) Reindex(ctx context.Context, src library.Source) *search.Index {
	index := h.provider.Rebuild(ctx, src)

	data := ReindexData{Available: index != nil, Version: h.provider.Version()}
	if index != nil {
		data.Artists, data.Albums, data.Songs = index.Library().Counts()
	}
	if err := h.hub.Publish(Event{Type: EventLibraryReindexed, Data: data}); err != nil {
		logger.Warn("[Events] 推送重建事件失败", logger.ErrorField(err))
	}
	return index
}
