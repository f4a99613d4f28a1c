package monitor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"storewatch-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ExtractItems applies the store's selectors to one fetched page.
// Containers missing a required field (name, link, at least one
// price) are reported in the second return value and skipped, the
// page is never failed wholesale because of one broken listing.
func ExtractItems(doc *goquery.Document, store StoreConfig) ([]Item, []*ExtractionError) {
	opts := store.Options

	var items []Item
	var failures []*ExtractionError

	doc.Find(opts.ItemContainerSelector).Each(func(_ int, container *goquery.Selection) {
		name := ""
		nameTag := container.Find(opts.ItemNameSelector).First()
		if nameTag.Length() > 0 {
			name = htmlutil.CleanText(nameTag.Text())
		}
		if name == "" {
			failures = append(failures, &ExtractionError{Store: store.Name, Field: "name"})
			return
		}

		link := ""
		linkTag := container.Find(opts.ItemLinkSelector).First()
		if linkTag.Length() > 0 {
			link = htmlutil.ResolveHref(opts.SiteMainUrl, linkTag.AttrOr("href", ""))
		}
		if link == "" {
			failures = append(failures, &ExtractionError{Store: store.Name, Field: "link"})
			return
		}

		prices := map[string]float64{}
		for _, priceSelector := range opts.ItemPriceSelectors {
			priceTag := container.Find(priceSelector.Selector).First()
			if priceTag.Length() == 0 {
				continue
			}
			price, err := parsePrice(priceSelector.Currency, priceTag.Text())
			if err != nil {
				continue
			}
			prices[priceSelector.Currency] = price
		}
		if len(prices) == 0 {
			failures = append(failures, &ExtractionError{Store: store.Name, Field: "price"})
			return
		}

		image := ""
		if opts.ItemImageSelector != "" {
			imageTag := container.Find(opts.ItemImageSelector).First()
			if imageTag.Length() > 0 {
				image = htmlutil.ResolveHref(opts.SiteMainUrl, imageTag.AttrOr("src", ""))
			}
		}

		items = append(items, Item{
			Name:    name,
			Link:    link,
			Image:   image,
			SoldOut: isSoldOut(container, opts),
			Prices:  prices,
		})
	})

	return items, failures
}

// the marker can sit on the container itself (e.g. a class toggled on
// the listing) or on any descendant
func isSoldOut(container *goquery.Selection, opts StoreOptions) bool {
	if opts.SoldOutSelector == "" {
		return false
	}
	if container.Is(opts.SoldOutSelector) {
		return true
	}
	return container.Find(opts.SoldOutSelector).Length() > 0
}

// NextPageUrl locates the link to the following catalog page, or ""
// when pagination is exhausted. Candidate links are filtered by the
// configured text (case-insensitive substring) and the last match
// wins, which is where catalog sites put their forward arrow.
func NextPageUrl(doc *goquery.Document, opts StoreOptions) string {
	if opts.NextPageSelector == "" {
		return ""
	}

	wantText := strings.ToLower(opts.NextPageSelectorText)
	attribute := opts.NextPageAttribute
	if attribute == "" {
		attribute = "href"
	}

	href := ""
	doc.Find(opts.NextPageSelector).Each(func(_ int, link *goquery.Selection) {
		text := strings.ToLower(htmlutil.CleanText(link.Text()))
		if wantText != "" && !strings.Contains(text, wantText) {
			return
		}
		if value := link.AttrOr(attribute, ""); value != "" {
			href = value
		}
	})
	if href == "" {
		return ""
	}
	return htmlutil.ResolveHref(opts.SiteMainUrl, href)
}

var (
	jpyPattern     = regexp.MustCompile(`[\d,]+`)
	eurPattern     = regexp.MustCompile(`[\d.,]+`)
	decimalPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// parsePrice normalizes the raw price text of a listing. JPY comes as
// grouped integers, EUR as cents with mixed separators; anything else
// takes a plain decimal reading.
func parsePrice(currency, text string) (float64, error) {
	text = strings.TrimSpace(text)

	switch currency {
	case "JPY":
		match := jpyPattern.FindString(text)
		if match == "" {
			return 0, fmt.Errorf("no JPY amount in %q", text)
		}
		return strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	case "EUR":
		match := eurPattern.FindString(text)
		if match == "" {
			return 0, fmt.Errorf("no EUR amount in %q", text)
		}
		cleaned := strings.NewReplacer(",", "", ".", "").Replace(match)
		cents, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, err
		}
		return cents / 100, nil
	default:
		match := decimalPattern.FindString(text)
		if match == "" {
			return 0, fmt.Errorf("no amount in %q", text)
		}
		return strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	}
}
