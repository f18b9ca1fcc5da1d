package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func TestStorefrontInBrowser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("no Chrome binary found")
	}

	up := &fakeUpstream{}
	up.set(http.StatusOK, 7)
	site := httptest.NewServer(newTestServer(t, up))
	defer site.Close()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chrome),
		chromedp.WindowSize(1280, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()
	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	var (
		focused  string
		listings int
		window   string
	)
	err := chromedp.Run(ctx,
		chromedp.Navigate(site.URL),
		chromedp.WaitReady(`#product_name`, chromedp.ByQuery),
		chromedp.Evaluate(`document.activeElement.id`, &focused),
		chromedp.SendKeys(`#product_name`, "Banana", chromedp.ByQuery),
		chromedp.SendKeys(`#zip_code`, "08873", chromedp.ByQuery),
		chromedp.Click(`#search`, chromedp.ByQuery),
		chromedp.WaitVisible(`article.listing`, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelectorAll("article.listing").length`, &listings),
		chromedp.Text(`p.window`, &window, chromedp.ByQuery),
	)
	require.NoError(t, err)

	assert.Equal(t, "product_name", focused)
	assert.Equal(t, 6, listings)
	assert.Equal(t, "Showing 1 to 6 of 7 results", window)
}
