package main

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"budgetbite/pkg/api"
	"budgetbite/pkg/cache"
	"budgetbite/pkg/config"
	"budgetbite/pkg/logger"
	"budgetbite/pkg/models"
	"budgetbite/pkg/pagination"
	"budgetbite/pkg/validate"
	"budgetbite/pkg/workflow"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:embed templates/storefront.html
var templateFS embed.FS

var storefrontTmpl = template.Must(template.New("storefront.html").Funcs(template.FuncMap{
	"miles":   workflow.Miles,
	"pageURL": pageURL,
	"add":     func(a, b int) int { return a + b },
}).ParseFS(templateFS, "templates/storefront.html"))

type server struct {
	cfg      *config.Config
	searcher workflow.Searcher
	store    *cache.Cache
	log      zerolog.Logger
}

func newServer(cfg *config.Config, searcher workflow.Searcher, store *cache.Cache, log zerolog.Logger) *server {
	return &server{cfg: cfg, searcher: searcher, store: store, log: log}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleSubmit)
	mux.HandleFunc("POST /api/v1/storefront/search", s.handleAPISearch)
	mux.HandleFunc("GET /api/v1/storefront/searches/{id}", s.handleAPIResults)
	mux.HandleFunc("GET /docs", handleDocs)
	return mux
}

func (s *server) newWorkflow() *workflow.Workflow {
	return workflow.New(s.searcher, workflowOptions(s.cfg, s.log)...)
}

func workflowOptions(cfg *config.Config, log zerolog.Logger) []workflow.Option {
	opts := []workflow.Option{workflow.WithLogger(log)}
	if !cfg.DiscardStale {
		opts = append(opts, workflow.WithLastResponseWins())
	}
	return opts
}

type pageData struct {
	View        workflow.View
	SearchID    string
	Notice      string
	PageSizes   []int
	Pages       []int
	TitleFailed string
	TitleEmpty  string
}

func (s *server) render(w http.ResponseWriter, status int, data pageData) {
	data.PageSizes = pagination.PageSizes
	data.TitleFailed = workflow.TitleFailed
	data.TitleEmpty = workflow.TitleEmpty
	for p := 1; p <= data.View.TotalPages; p++ {
		data.Pages = append(data.Pages, p)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := storefrontTmpl.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("Error rendering storefront")
	}
}

func pageURL(searchID string, page, size int) string {
	q := url.Values{}
	q.Set("search", searchID)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))
	return "/?" + q.Encode()
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	wf := s.newWorkflow()
	id := r.URL.Query().Get("search")
	if id == "" {
		s.render(w, http.StatusOK, pageData{View: wf.View()})
		return
	}

	entry, err := s.loadEntry(id)
	if errors.Is(err, cache.ErrNotFound) {
		s.render(w, http.StatusNotFound, pageData{
			View:   wf.View(),
			Notice: "That search has expired. Please search again.",
		})
		return
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	wf.Restore(entry.Input, entry.Request, entry.Listings)
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		_ = wf.SetPageSize(size)
	}
	wf.SetPage(queryInt(r, "page", 1))
	s.render(w, http.StatusOK, pageData{View: wf.View(), SearchID: id})
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	def := models.DefaultSearchInput()
	in := models.SearchInput{
		ProductName: r.PostForm.Get("product_name"),
		ZipCode:     r.PostForm.Get("zip_code"),
		RadiusMiles: formInt(r.PostForm, "radius_miles", def.RadiusMiles),
		StoreCount:  formInt(r.PostForm, "store_count", def.StoreCount),
	}

	wf := s.newWorkflow()
	wf.SetInput(in)
	err := wf.Search(r.Context())
	switch {
	case errors.Is(err, workflow.ErrValidation):
		s.render(w, http.StatusUnprocessableEntity, pageData{View: wf.View()})
		return
	case err != nil:
		s.render(w, http.StatusBadGateway, pageData{View: wf.View()})
		return
	}

	id, err := s.saveEntry(wf)
	if err != nil {
		s.log.Error().Err(err).Msg("Error storing result set")
		s.render(w, http.StatusOK, pageData{View: wf.View()})
		return
	}
	http.Redirect(w, r, "/?search="+url.QueryEscape(id), http.StatusSeeOther)
}

type searchResponse struct {
	SearchID   string               `json:"search_id"`
	Request    models.SearchRequest `json:"request"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
	Total      int                  `json:"total"`
	Listings   []models.Listing     `json:"listings"`
}

func newSearchResponse(id string, v workflow.View) searchResponse {
	listings := v.Listings
	if listings == nil {
		listings = []models.Listing{}
	}
	return searchResponse{
		SearchID:   id,
		Request:    v.Request,
		Page:       v.Page,
		PageSize:   v.PageSize,
		TotalPages: v.TotalPages,
		Total:      v.Total,
		Listings:   listings,
	}
}

const pageSizeDetail = "Invalid page_size. Available: 3, 6, 9, 12"

// pageSizeParam reads page_size from the query. A missing value keeps the
// default.
func pageSizeParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page_size")
	if raw == "" {
		return pagination.DefaultPageSize, true
	}
	size, err := strconv.Atoi(raw)
	if err != nil || !pagination.ValidPageSize(size) {
		return 0, false
	}
	return size, true
}

func (s *server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	size, ok := pageSizeParam(r)
	if !ok {
		api.WriteBadRequest(w, pageSizeDetail, r.URL.Path)
		return
	}

	in := models.DefaultSearchInput()
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteBadRequest(w, "Invalid JSON body. Expected a search object.", r.URL.Path)
		return
	}
	defer r.Body.Close()

	wf := s.newWorkflow()
	wf.SetInput(in)
	_ = wf.SetPageSize(size)
	err := wf.Search(r.Context())
	switch {
	case errors.Is(err, workflow.ErrValidation):
		api.WriteValidationError(w, validate.MsgSummary, wf.View().FieldErrors, r.URL.Path)
		return
	case err != nil:
		api.WriteBadGateway(w, wf.View().Error, r.URL.Path)
		return
	}

	id, err := s.saveEntry(wf)
	if err != nil {
		s.log.Error().Err(err).Msg("Error storing result set")
		api.WriteInternalServerError(w, errors.New("failed to store result set"), r.URL.Path)
		return
	}
	if err := api.WriteJSON(w, http.StatusOK, newSearchResponse(id, wf.View())); err != nil {
		s.log.Error().Err(err).Msg("Error encoding response")
	}
}

func (s *server) handleAPIResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	size, ok := pageSizeParam(r)
	if !ok {
		api.WriteBadRequest(w, pageSizeDetail, r.URL.Path)
		return
	}

	entry, err := s.loadEntry(id)
	if errors.Is(err, cache.ErrNotFound) {
		api.WriteNotFound(w, "Search not found or expired", r.URL.Path)
		return
	}
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}

	wf := s.newWorkflow()
	wf.Restore(entry.Input, entry.Request, entry.Listings)
	_ = wf.SetPageSize(size)
	wf.SetPage(queryInt(r, "page", 1))
	if err := api.WriteJSON(w, http.StatusOK, newSearchResponse(id, wf.View())); err != nil {
		s.log.Error().Err(err).Msg("Error encoding response")
	}
}

func (s *server) saveEntry(wf *workflow.Workflow) (string, error) {
	v := wf.View()
	entry := &cache.Entry{
		ID:       uuid.NewString(),
		Input:    v.Input,
		Request:  v.Request,
		Listings: wf.Results(),
	}
	if err := s.store.Put(entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *server) loadEntry(id string) (*cache.Entry, error) {
	entry, err := s.store.Get(id)
	if err == nil {
		logger.Dedup("Result set hit for %s", id)
	}
	return entry, err
}

func handleDocs(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("BudgetBite Storefront API"),
		),
	)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return n
}

func formInt(form url.Values, key string, fallback int) int {
	n, err := strconv.Atoi(form.Get(key))
	if err != nil {
		return fallback
	}
	return n
}
