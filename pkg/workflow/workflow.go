// Package workflow owns the state of one storefront search session: the form,
// its validation messages, the in-flight search and the paginated results.
//
// A Workflow is not safe for concurrent use. It is meant to be driven by a
// single event loop, with the network call itself split out through Begin and
// Complete so the loop never blocks on it.
package workflow

import (
	"context"
	"errors"
	"slices"
	"strings"

	"budgetbite/pkg/models"
	"budgetbite/pkg/normalize"
	"budgetbite/pkg/pagination"
	"budgetbite/pkg/searchclient"
	"budgetbite/pkg/validate"

	"github.com/rs/zerolog"
)

type Status int

const (
	Idle Status = iota
	Loading
	Success
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrValidation     = errors.New("search input is invalid")
	ErrNothingToRetry = errors.New("no search to retry")
)

// Searcher issues a single request against the search service and returns the
// decoded response body.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (any, error)
}

// Ticket identifies one issued search. Seq increases with every search,
// retry and clear.
type Ticket struct {
	Seq     uint64
	Request models.SearchRequest
}

type Workflow struct {
	searcher     Searcher
	log          zerolog.Logger
	discardStale bool

	input      models.SearchInput
	productErr string
	zipErr     string
	summary    string

	status     Status
	results    []models.Listing
	errMessage string
	page       pagination.State

	seq         uint64
	lastRequest *models.SearchRequest
}

type Option func(*Workflow)

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

// WithLastResponseWins applies every response as it arrives, even when a
// newer search has been issued since. By default such responses are dropped.
func WithLastResponseWins() Option {
	return func(w *Workflow) { w.discardStale = false }
}

func WithPageSize(size int) Option {
	return func(w *Workflow) {
		if pagination.ValidPageSize(size) {
			w.page.PageSize = size
		}
	}
}

func New(searcher Searcher, opts ...Option) *Workflow {
	w := &Workflow{
		searcher:     searcher,
		log:          zerolog.Nop(),
		discardStale: true,
		input:        models.DefaultSearchInput(),
		page:         pagination.NewState(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) Input() models.SearchInput {
	return w.input
}

func (w *Workflow) Status() Status {
	return w.status
}

// Results returns a copy of the whole result set, nil unless the last search
// succeeded.
func (w *Workflow) Results() []models.Listing {
	return slices.Clone(w.results)
}

// EditProductName applies a keystroke-level edit. An edit with characters
// other than letters and spaces is refused: the previous value stays and the
// field gets an error.
func (w *Workflow) EditProductName(raw string) bool {
	if !validate.AcceptProductEdit(raw) {
		w.productErr = validate.MsgLettersOnly
		return false
	}
	w.input.ProductName = raw
	if w.productErr != "" {
		w.Validate()
	}
	return true
}

// EditZipCode applies a keystroke-level edit to the ZIP code.
func (w *Workflow) EditZipCode(raw string) bool {
	if !validate.AcceptZipEdit(raw) {
		w.zipErr = validate.MsgZipInputChars
		return false
	}
	w.input.ZipCode = raw
	if w.zipErr != "" {
		w.Validate()
	}
	return true
}

func (w *Workflow) SetRadius(miles int) {
	w.input.RadiusMiles = validate.Radius(miles)
}

func (w *Workflow) SetStoreCount(n int) {
	w.input.StoreCount = validate.StoreCount(n)
}

// SetInput replaces the whole form at once, as a submitted HTML form does.
// Text fields are taken verbatim and only checked on submit.
func (w *Workflow) SetInput(in models.SearchInput) {
	w.input = models.SearchInput{
		ProductName: in.ProductName,
		ZipCode:     in.ZipCode,
		RadiusMiles: validate.Radius(in.RadiusMiles),
		StoreCount:  validate.StoreCount(in.StoreCount),
	}
}

// Validate runs the non-submit checks, used when a field loses focus.
func (w *Workflow) Validate() bool {
	return w.applyValidation(validate.Fields(w.input, false))
}

func (w *Workflow) applyValidation(res validate.Result) bool {
	w.productErr, w.zipErr = "", ""
	if res.Product != nil {
		w.productErr = res.Product.Message
	}
	if res.Zip != nil {
		w.zipErr = res.Zip.Message
	}
	if res.OK() {
		w.summary = ""
	}
	return res.OK()
}

// Begin validates the form for submission and, when it passes, moves to
// Loading and returns the ticket for the request to issue. On failure no
// request may be issued and ErrValidation is returned.
func (w *Workflow) Begin() (Ticket, error) {
	if !w.applyValidation(validate.Fields(w.input, true)) {
		w.summary = validate.MsgSummary
		w.errMessage = ""
		if w.status == Failed {
			w.status = Idle
		}
		w.log.Debug().Str("product_error", w.productErr).Str("zip_error", w.zipErr).Msg("Search blocked by validation")
		return Ticket{}, ErrValidation
	}
	return w.issue(searchclient.BuildRequest(w.input)), nil
}

// BeginRetry re-issues the last request unchanged.
func (w *Workflow) BeginRetry() (Ticket, error) {
	if w.lastRequest == nil {
		return Ticket{}, ErrNothingToRetry
	}
	return w.issue(*w.lastRequest), nil
}

func (w *Workflow) issue(req models.SearchRequest) Ticket {
	w.seq++
	w.summary = ""
	w.errMessage = ""
	w.status = Loading
	w.page.Reset()
	w.lastRequest = &req
	w.log.Debug().Uint64("seq", w.seq).Str("product", req.ProductName).Str("zip", req.ZipCode).Msg("Search started")
	return Ticket{Seq: w.seq, Request: req}
}

// Complete applies the outcome of the search identified by t. It reports
// false when the outcome was dropped because t has been superseded.
func (w *Workflow) Complete(t Ticket, payload any, err error) bool {
	if w.discardStale && t.Seq != w.seq {
		w.log.Debug().Uint64("seq", t.Seq).Uint64("current", w.seq).Msg("Dropping superseded search response")
		return false
	}
	if err != nil {
		w.status = Failed
		w.results = nil
		w.errMessage = strings.TrimSpace("Unable to fetch stores. " + err.Error())
		w.log.Warn().Err(err).Uint64("seq", t.Seq).Msg("Search failed")
		return true
	}
	w.status = Success
	w.results = normalize.Listings(payload, t.Request.ProductName)
	w.errMessage = ""
	w.page.Reset()
	w.log.Debug().Uint64("seq", t.Seq).Int("results", len(w.results)).Msg("Search completed")
	return true
}

func (w *Workflow) run(ctx context.Context, t Ticket) error {
	payload, err := w.searcher.Search(ctx, t.Request)
	w.Complete(t, payload, err)
	return err
}

// Search validates, issues and applies one search synchronously.
func (w *Workflow) Search(ctx context.Context) error {
	t, err := w.Begin()
	if err != nil {
		return err
	}
	return w.run(ctx, t)
}

// Retry re-issues the last request synchronously.
func (w *Workflow) Retry(ctx context.Context) error {
	t, err := w.BeginRetry()
	if err != nil {
		return err
	}
	return w.run(ctx, t)
}

// Restore puts a previously completed search back in place, as if its
// response had just arrived.
func (w *Workflow) Restore(in models.SearchInput, req models.SearchRequest, listings []models.Listing) {
	w.SetInput(in)
	w.reset()
	w.lastRequest = &req
	w.status = Success
	w.results = append(make([]models.Listing, 0, len(listings)), listings...)
}

// Clear resets the form, filters, messages and results to their defaults.
// Responses to searches issued before the clear are dropped.
func (w *Workflow) Clear() {
	w.input = models.DefaultSearchInput()
	w.reset()
}

// ClearSearch drops the results and the text fields but keeps the radius and
// store count.
func (w *Workflow) ClearSearch() {
	w.input.ProductName = ""
	w.input.ZipCode = ""
	w.reset()
}

func (w *Workflow) reset() {
	w.seq++
	w.productErr, w.zipErr, w.summary = "", "", ""
	w.status = Idle
	w.results = nil
	w.errMessage = ""
	w.lastRequest = nil
	w.page.Reset()
}

func (w *Workflow) SetPage(page int) {
	w.page.Go(page, len(w.results))
}

func (w *Workflow) NextPage() {
	w.SetPage(w.page.CurrentPage + 1)
}

func (w *Workflow) PrevPage() {
	w.SetPage(w.page.CurrentPage - 1)
}

func (w *Workflow) SetPageSize(size int) error {
	return w.page.SetPageSize(size)
}

func (w *Workflow) CyclePageSize() {
	_ = w.page.SetPageSize(pagination.NextPageSize(w.page.PageSize))
}

// View is a read-only snapshot for rendering.
type View struct {
	Status      Status
	Input       models.SearchInput
	FieldErrors map[string]string
	Summary     string
	Error       string
	CanRetry    bool
	// Request is the last request issued, zero when there is none.
	Request models.SearchRequest

	Listings   []models.Listing
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	Window     pagination.Window
	HasPrev    bool
	HasNext    bool
	// Empty is set when the search succeeded but found nothing.
	Empty bool
}

func (w *Workflow) View() View {
	v := View{
		Status:      w.status,
		Input:       w.input,
		FieldErrors: map[string]string{},
		Summary:     w.summary,
		Error:       w.errMessage,
		CanRetry:    w.status == Failed && w.lastRequest != nil,
		Page:        w.page.CurrentPage,
		PageSize:    w.page.PageSize,
	}
	if w.lastRequest != nil {
		v.Request = *w.lastRequest
	}
	if w.productErr != "" {
		v.FieldErrors[validate.FieldProductName] = w.productErr
	}
	if w.zipErr != "" {
		v.FieldErrors[validate.FieldZipCode] = w.zipErr
	}
	if w.status != Success {
		return v
	}
	n := len(w.results)
	v.Listings = slices.Clone(pagination.Apply(w.page, w.results))
	v.Total = n
	v.TotalPages = w.page.TotalPages(n)
	v.Window = w.page.Window(n)
	v.HasPrev = w.page.HasPrev()
	v.HasNext = w.page.HasNext(n)
	v.Empty = n == 0
	return v
}
