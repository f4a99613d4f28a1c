package monitor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func testStoreConfig() StoreConfig {
	return StoreConfig{
		Name: "teststore",
		Options: StoreOptions{
			BaseUrl:               "https://store.example/catalog",
			SiteMainUrl:           "https://store.example",
			ItemContainerSelector: "li.product",
			ItemNameSelector:      ".name",
			ItemLinkSelector:      "a.item",
			ItemImageSelector:     "img",
			SoldOutSelector:       ".soldout",
			ItemPriceSelectors: []PriceSelector{
				{Currency: "JPY", Selector: ".price-jpy"},
			},
			NextPageSelector:     "a.page",
			NextPageSelectorText: "next",
			NextPageAttribute:    "href",
		},
	}
}

func docFromHtml(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractItems(t *testing.T) {
	doc := docFromHtml(t, `
		<ul>
			<li class="product">
				<span class="name"> Figure  A </span>
				<a class="item" href="/item/a">link</a>
				<img src="/img/a.jpg">
				<span class="price-jpy">¥1,500</span>
			</li>
			<li class="product">
				<span class="name">Figure B</span>
				<a class="item" href="https://store.example/item/b">link</a>
				<span class="price-jpy">2,000円</span>
				<span class="soldout">SOLD OUT</span>
			</li>
		</ul>
	`)

	items, failures := ExtractItems(doc, testStoreConfig())
	require.Empty(t, failures)
	require.Len(t, items, 2)

	require.Equal(t, "Figure A", items[0].Name)
	require.Equal(t, "https://store.example/item/a", items[0].Link)
	require.Equal(t, "https://store.example/img/a.jpg", items[0].Image)
	require.Equal(t, float64(1500), items[0].Prices["JPY"])
	require.False(t, items[0].SoldOut)

	require.Equal(t, "Figure B", items[1].Name)
	require.True(t, items[1].SoldOut)
	// image is optional
	require.Equal(t, "", items[1].Image)
}

func TestExtractSkipsBrokenContainers(t *testing.T) {
	doc := docFromHtml(t, `
		<ul>
			<li class="product">
				<a class="item" href="/item/noname">link</a>
				<span class="price-jpy">¥100</span>
			</li>
			<li class="product">
				<span class="name">No Link</span>
				<span class="price-jpy">¥100</span>
			</li>
			<li class="product">
				<span class="name">No Price</span>
				<a class="item" href="/item/noprice">link</a>
			</li>
			<li class="product">
				<span class="name">Fine</span>
				<a class="item" href="/item/fine">link</a>
				<span class="price-jpy">¥300</span>
			</li>
		</ul>
	`)

	items, failures := ExtractItems(doc, testStoreConfig())
	require.Len(t, items, 1)
	require.Equal(t, "Fine", items[0].Name)

	require.Len(t, failures, 3)
	fields := []string{failures[0].Field, failures[1].Field, failures[2].Field}
	require.Equal(t, []string{"name", "link", "price"}, fields)
}

func TestExtractSoldOutOnContainerItself(t *testing.T) {
	config := testStoreConfig()
	config.Options.SoldOutSelector = ".product.is-hidden"

	doc := docFromHtml(t, `
		<li class="product is-hidden">
			<span class="name">Hidden</span>
			<a class="item" href="/item/hidden">link</a>
			<span class="price-jpy">¥100</span>
		</li>
	`)

	items, failures := ExtractItems(doc, config)
	require.Empty(t, failures)
	require.Len(t, items, 1)
	require.True(t, items[0].SoldOut)
}

func TestNextPageUrl(t *testing.T) {
	opts := testStoreConfig().Options

	doc := docFromHtml(t, `
		<a class="page" href="/catalog?p=0">prev</a>
		<a class="page" href="/catalog?p=2">NEXT »</a>
	`)
	require.Equal(t, "https://store.example/catalog?p=2", NextPageUrl(doc, opts))

	// the last matching link wins
	doc = docFromHtml(t, `
		<a class="page" href="/catalog?p=2">next</a>
		<a class="page" href="/catalog?p=3">next</a>
	`)
	require.Equal(t, "https://store.example/catalog?p=3", NextPageUrl(doc, opts))

	// no matching text means pagination is over
	doc = docFromHtml(t, `<a class="page" href="/catalog?p=0">prev</a>`)
	require.Equal(t, "", NextPageUrl(doc, opts))

	doc = docFromHtml(t, `<p>no links at all</p>`)
	require.Equal(t, "", NextPageUrl(doc, opts))
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		currency string
		text     string
		expect   float64
	}{
		{currency: "JPY", text: "¥1,500", expect: 1500},
		{currency: "JPY", text: "1,500円 (tax in)", expect: 1500},
		{currency: "EUR", text: "€12,50", expect: 12.50},
		{currency: "EUR", text: "1.234,56 €", expect: 1234.56},
		{currency: "USD", text: "$19.99", expect: 19.99},
	}
	for _, test := range testCases {
		price, err := parsePrice(test.currency, test.text)
		if err != nil {
			t.Fatalf("%s %q: %s", test.currency, test.text, err)
		}
		require.Equal(t, test.expect, price, "%s %q", test.currency, test.text)
	}

	_, err := parsePrice("JPY", "sold out")
	require.Error(t, err)
}
