package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"budgetbite/pkg/logger"
	"budgetbite/pkg/models"
	"budgetbite/pkg/pagination"
	"budgetbite/pkg/tui"
	"budgetbite/pkg/workflow"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

const tuiLogFile = "budgetbite.log"

var searchFlags struct {
	product  string
	zip      string
	radius   int
	stores   int
	page     int
	pageSize int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one search and print a page of results",
	Long: `Runs a single search against the search service and prints the requested
page of listings as a table.

Example:
  budgetbite search --product banana --zip 08873 --radius 10 --stores 5`,
	RunE: runSearch,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal storefront",
	RunE:  runTUI,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchFlags.product, "product", "", "Product to search for (required)")
	f.StringVar(&searchFlags.zip, "zip", "", "ZIP or ZIP+4 code (required)")
	f.IntVar(&searchFlags.radius, "radius", models.DefaultRadiusMiles, "Search radius in miles (1-25)")
	f.IntVar(&searchFlags.stores, "stores", models.DefaultStoreCount, "Minimum number of stores (1-10)")
	f.IntVar(&searchFlags.page, "page", 1, "Page to print")
	f.IntVar(&searchFlags.pageSize, "page-size", pagination.DefaultPageSize, "Listings per page: 3, 6, 9 or 12")
	searchCmd.MarkFlagRequired("product")
	searchCmd.MarkFlagRequired("zip")
}

func runSearch(cmd *cobra.Command, args []string) error {
	wf := workflow.New(newClient(cfg, appLog), workflowOptions(cfg, appLog)...)
	if err := wf.SetPageSize(searchFlags.pageSize); err != nil {
		return err
	}
	wf.SetInput(models.SearchInput{
		ProductName: searchFlags.product,
		ZipCode:     searchFlags.zip,
		RadiusMiles: searchFlags.radius,
		StoreCount:  searchFlags.stores,
	})

	err := wf.Search(cmd.Context())
	if errors.Is(err, workflow.ErrValidation) {
		return fmt.Errorf("%w: %s", err, fieldErrors(wf.View().FieldErrors))
	}
	if err != nil {
		return fmt.Errorf("unable to fetch stores: %w", err)
	}

	wf.SetPage(searchFlags.page)
	printResults(cmd.OutOrStdout(), wf.View())
	return nil
}

func fieldErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+errs[k])
	}
	return strings.Join(parts, "; ")
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printResults(w io.Writer, v workflow.View) {
	if v.Empty {
		fmt.Fprintln(w, workflow.TitleEmpty)
		fmt.Fprintln(w, v.EmptyText())
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Store", "Product", "Price", "Unit", "Distance", "Address", "Website").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, l := range v.Listings {
		t.Row(strconv.Itoa(l.ID), l.Store.Name, l.ProductName, l.ProductPrice, l.UnitQuantity,
			l.Store.DistanceLabel, l.Store.Address, l.Store.WebsiteURL)
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%s (page %d of %d)\n", v.Window, v.Page, v.TotalPages)
}

func runTUI(cmd *cobra.Command, args []string) error {
	f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	log := logger.New(f, cfg.LogLevel, false)
	return tui.Run(cmd.Context(), newClient(cfg, log), workflowOptions(cfg, log)...)
}
