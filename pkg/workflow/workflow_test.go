package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"budgetbite/pkg/models"
	"budgetbite/pkg/pagination"
	"budgetbite/pkg/searchclient"
	"budgetbite/pkg/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSearcher struct {
	mu       sync.Mutex
	requests []models.SearchRequest
	payload  any
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, req models.SearchRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.payload, f.err
}

func (f *fakeSearcher) calls() []models.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SearchRequest(nil), f.requests...)
}

func items(n int) map[string]any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{
			"product_name": fmt.Sprintf("Milk %d", i+1),
			"price":        float64(i + 1),
			"store":        "ShopRite",
		}
	}
	return map[string]any{"stores_list": out}
}

func fill(t *testing.T, w *Workflow, product, zip string) {
	t.Helper()
	require.True(t, w.EditProductName(product))
	require.True(t, w.EditZipCode(zip))
}

func TestNewDefaults(t *testing.T) {
	w := New(&fakeSearcher{})
	v := w.View()

	assert.Equal(t, Idle, v.Status)
	assert.Equal(t, models.DefaultSearchInput(), v.Input)
	assert.Empty(t, v.FieldErrors)
	assert.Equal(t, pagination.DefaultPageSize, v.PageSize)
	assert.Equal(t, 1, v.Page)
	assert.Nil(t, w.Results())
}

func TestEditRejectsInvalidKeystrokes(t *testing.T) {
	w := New(&fakeSearcher{})

	assert.True(t, w.EditProductName("milk"))
	assert.False(t, w.EditProductName("milk2"))
	assert.Equal(t, "milk", w.Input().ProductName)
	assert.Equal(t, validate.MsgLettersOnly, w.View().FieldErrors[validate.FieldProductName])

	assert.True(t, w.EditZipCode("0887"))
	assert.False(t, w.EditZipCode("0887a"))
	assert.Equal(t, "0887", w.Input().ZipCode)
	assert.Equal(t, validate.MsgZipInputChars, w.View().FieldErrors[validate.FieldZipCode])
}

func TestEditRevalidatesOnceFieldHasError(t *testing.T) {
	w := New(&fakeSearcher{})

	w.EditProductName("m")
	assert.False(t, w.Validate())
	assert.Equal(t, validate.MsgTooShort, w.View().FieldErrors[validate.FieldProductName])

	w.EditProductName("mi")
	assert.NotContains(t, w.View().FieldErrors, validate.FieldProductName)
}

func TestValidateSkipsBlankFields(t *testing.T) {
	w := New(&fakeSearcher{})
	assert.True(t, w.Validate())
	assert.Empty(t, w.View().FieldErrors)
}

func TestSearchBlockedByValidation(t *testing.T) {
	f := &fakeSearcher{}
	w := New(f)

	err := w.Search(context.Background())
	require.ErrorIs(t, err, ErrValidation)

	v := w.View()
	assert.Equal(t, Idle, v.Status)
	assert.Equal(t, validate.MsgSummary, v.Summary)
	assert.Contains(t, v.FieldErrors, validate.FieldProductName)
	assert.Equal(t, validate.MsgZipFormat, v.FieldErrors[validate.FieldZipCode])
	assert.Empty(t, f.calls(), "no request may be issued for invalid input")
}

func TestSearchSuccess(t *testing.T) {
	f := &fakeSearcher{payload: items(7)}
	w := New(f)
	fill(t, w, "milk", "08873")
	w.SetRadius(10)
	w.SetStoreCount(4)

	require.NoError(t, w.Search(context.Background()))

	assert.Equal(t, []models.SearchRequest{{
		ProductName:     "milk",
		ZipCode:         "08873",
		MinStoreResults: 4,
		RadiusMiles:     10,
	}}, f.calls())

	v := w.View()
	assert.Equal(t, Success, v.Status)
	assert.Equal(t, 7, v.Total)
	assert.Equal(t, 2, v.TotalPages)
	assert.Len(t, v.Listings, 6)
	assert.Equal(t, "Showing 1 to 6 of 7 results", v.Window.String())
	assert.False(t, v.Empty)
	assert.Empty(t, v.Error)

	w.NextPage()
	v = w.View()
	assert.Equal(t, 2, v.Page)
	require.Len(t, v.Listings, 1)
	assert.Equal(t, "Milk 7", v.Listings[0].ProductName)
	assert.Equal(t, 7, v.Listings[0].ID)
	assert.True(t, v.HasPrev)
	assert.False(t, v.HasNext)
}

func TestSearchEmptyResult(t *testing.T) {
	w := New(&fakeSearcher{payload: items(0)})
	fill(t, w, "milk", "08873")

	require.NoError(t, w.Search(context.Background()))
	v := w.View()
	assert.Equal(t, Success, v.Status)
	assert.True(t, v.Empty)
	assert.Zero(t, v.Total)
	assert.Empty(t, v.Listings)
}

func TestSearchUpstreamFailure(t *testing.T) {
	f := &fakeSearcher{err: &searchclient.APIError{StatusCode: 500}}
	w := New(f)
	fill(t, w, "milk", "08873")

	err := w.Search(context.Background())
	var apiErr *searchclient.APIError
	require.ErrorAs(t, err, &apiErr)

	v := w.View()
	assert.Equal(t, Failed, v.Status)
	assert.Equal(t, "Unable to fetch stores. API error 500", v.Error)
	assert.True(t, v.CanRetry)
	assert.Nil(t, v.Listings)
	assert.Nil(t, w.Results())
}

func TestRetryReissuesIdenticalRequest(t *testing.T) {
	f := &fakeSearcher{err: errors.New("connection refused")}
	w := New(f)
	fill(t, w, "eggs", "10001-1234")

	require.Error(t, w.Search(context.Background()))

	// edits after the failure do not change what the retry sends
	w.EditProductName("bread")
	f.err = nil
	f.payload = items(2)
	require.NoError(t, w.Retry(context.Background()))

	calls := f.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1])
	assert.Equal(t, Success, w.Status())
	assert.Len(t, w.Results(), 2)
}

func TestRetryWithoutSearch(t *testing.T) {
	w := New(&fakeSearcher{})
	assert.ErrorIs(t, w.Retry(context.Background()), ErrNothingToRetry)
}

func TestNewSearchReplacesResultsAndResetsPage(t *testing.T) {
	f := &fakeSearcher{payload: items(13)}
	w := New(f)
	fill(t, w, "milk", "08873")
	require.NoError(t, w.Search(context.Background()))
	w.SetPage(3)
	assert.Equal(t, 3, w.View().Page)

	f.payload = items(2)
	require.NoError(t, w.Search(context.Background()))
	v := w.View()
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 2, v.Total)
}

func TestStaleResponseIsDropped(t *testing.T) {
	w := New(&fakeSearcher{})
	fill(t, w, "milk", "08873")

	first, err := w.Begin()
	require.NoError(t, err)
	w.EditProductName("eggs")
	second, err := w.Begin()
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	assert.True(t, w.Complete(second, items(1), nil))
	assert.False(t, w.Complete(first, items(5), nil))

	require.Len(t, w.Results(), 1)
	assert.Equal(t, "Milk 1", w.Results()[0].ProductName)
}

func TestLastResponseWins(t *testing.T) {
	w := New(&fakeSearcher{}, WithLastResponseWins())
	fill(t, w, "milk", "08873")

	first, err := w.Begin()
	require.NoError(t, err)
	second, err := w.Begin()
	require.NoError(t, err)

	assert.True(t, w.Complete(second, items(1), nil))
	assert.True(t, w.Complete(first, items(5), nil))
	assert.Len(t, w.Results(), 5)
}

func TestResponseAfterClearIsDropped(t *testing.T) {
	w := New(&fakeSearcher{})
	fill(t, w, "milk", "08873")
	ticket, err := w.Begin()
	require.NoError(t, err)

	w.Clear()
	assert.False(t, w.Complete(ticket, items(3), nil))
	assert.Equal(t, Idle, w.Status())
	assert.Nil(t, w.Results())
}

func TestFailureThenSuccessIsExclusive(t *testing.T) {
	f := &fakeSearcher{err: errors.New("boom")}
	w := New(f)
	fill(t, w, "milk", "08873")
	require.Error(t, w.Search(context.Background()))
	assert.NotEmpty(t, w.View().Error)

	f.err = nil
	f.payload = items(1)
	require.NoError(t, w.Search(context.Background()))
	v := w.View()
	assert.Empty(t, v.Error)
	assert.Len(t, v.Listings, 1)
}

func TestValidationFailureClearsBanner(t *testing.T) {
	w := New(&fakeSearcher{err: errors.New("boom")})
	fill(t, w, "milk", "08873")
	require.Error(t, w.Search(context.Background()))

	w.EditZipCode("088")
	require.ErrorIs(t, w.Search(context.Background()), ErrValidation)
	v := w.View()
	assert.Empty(t, v.Error)
	assert.Equal(t, Idle, v.Status)
}

func TestClear(t *testing.T) {
	w := New(&fakeSearcher{payload: items(8)})
	fill(t, w, "milk", "08873")
	w.SetRadius(20)
	w.SetStoreCount(8)
	require.NoError(t, w.SetPageSize(3))
	require.NoError(t, w.Search(context.Background()))
	w.NextPage()

	w.Clear()
	v := w.View()
	assert.Equal(t, models.DefaultSearchInput(), v.Input)
	assert.Equal(t, Idle, v.Status)
	assert.Empty(t, v.FieldErrors)
	assert.Empty(t, v.Summary)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 3, v.PageSize)
	assert.ErrorIs(t, w.Retry(context.Background()), ErrNothingToRetry)
}

func TestClearSearchKeepsFilters(t *testing.T) {
	w := New(&fakeSearcher{payload: items(2)})
	fill(t, w, "milk", "08873")
	w.SetRadius(15)
	w.SetStoreCount(6)
	require.NoError(t, w.Search(context.Background()))

	w.ClearSearch()
	in := w.Input()
	assert.Empty(t, in.ProductName)
	assert.Empty(t, in.ZipCode)
	assert.Equal(t, 15, in.RadiusMiles)
	assert.Equal(t, 6, in.StoreCount)
	assert.Nil(t, w.Results())
	assert.Equal(t, Idle, w.Status())
}

func TestFiltersAreClamped(t *testing.T) {
	w := New(&fakeSearcher{})
	w.SetRadius(100)
	w.SetStoreCount(0)
	assert.Equal(t, models.MaxRadiusMiles, w.Input().RadiusMiles)
	assert.Equal(t, models.MinStoreCount, w.Input().StoreCount)
}

func TestPageSize(t *testing.T) {
	w := New(&fakeSearcher{payload: items(7)}, WithPageSize(3))
	fill(t, w, "milk", "08873")
	require.NoError(t, w.Search(context.Background()))

	v := w.View()
	assert.Equal(t, 3, v.TotalPages)
	w.SetPage(3)
	assert.Len(t, w.View().Listings, 1)

	assert.Error(t, w.SetPageSize(5))
	w.CyclePageSize()
	v = w.View()
	assert.Equal(t, 6, v.PageSize)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 2, v.TotalPages)

	w.SetPage(99)
	assert.Equal(t, 2, w.View().Page)
	w.SetPage(-1)
	assert.Equal(t, 1, w.View().Page)
}

func TestSetInputClampsFilters(t *testing.T) {
	w := New(&fakeSearcher{})
	w.SetInput(models.SearchInput{ProductName: "milk", ZipCode: "08873", RadiusMiles: 0, StoreCount: 50})
	in := w.Input()
	assert.Equal(t, models.MinRadiusMiles, in.RadiusMiles)
	assert.Equal(t, models.MaxStoreCount, in.StoreCount)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestViewTexts(t *testing.T) {
	w := New(&fakeSearcher{payload: items(0)})
	fill(t, w, "milk", "08873")
	w.SetRadius(1)
	require.NoError(t, w.Search(context.Background()))

	v := w.View()
	assert.Equal(t, `We couldn't find any deals for "milk" in zip code 08873 within 1 mile.`, v.EmptyText())
	assert.Equal(t, `We're finding the best stores for "milk" in your area`, v.LoadingText())
	assert.Equal(t, "12 miles", Miles(12))
}

func TestRestore(t *testing.T) {
	f := &fakeSearcher{payload: items(4)}
	w := New(f)
	fill(t, w, "milk", "08873")
	require.NoError(t, w.Search(context.Background()))

	restored := New(&fakeSearcher{}, WithPageSize(3))
	restored.Restore(w.Input(), f.calls()[0], w.Results())
	restored.SetPage(2)

	v := restored.View()
	assert.Equal(t, Success, v.Status)
	assert.Equal(t, "milk", v.Input.ProductName)
	assert.Equal(t, f.calls()[0], v.Request)
	assert.Equal(t, 2, v.Page)
	require.Len(t, v.Listings, 1)
	assert.Equal(t, 4, v.Listings[0].ID)

	restored.Restore(w.Input(), f.calls()[0], nil)
	assert.True(t, restored.View().Empty)
	assert.NotNil(t, restored.Results())
}
