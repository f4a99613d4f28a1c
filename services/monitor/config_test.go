package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const storesJson5 = `[
	{
		name: "goodstore",
		name_format: "Good Store",
		options: {
			base_url: "https://good.example/catalog",
			site_main_url: "https://good.example",
			item_container_selector: "li.product",
			item_name_selector: ".name",
			item_price_selectors: [{currency: "JPY", selector: ".price"}],
			item_link_selector: "a.item",
			item_image_selector: "img",
			sold_out_selector: ".soldout",
			next_page_selector: "a.page",
			next_page_selector_text: "next",
			next_page_attribute: "href",
			delay_between_requests: 5,
			encoding: "euc-jp",
		},
		schedule: {
			minutes: [0, 30],
			hours: "*",
			days: "*",
			months: "*",
			years: "*",
		},
	},
	{
		// no base_url, should be dropped
		name: "brokenstore",
		options: {
			site_main_url: "https://broken.example",
		},
		schedule: {minutes: "*", hours: "*", days: "*", months: "*", years: "*"},
	},
]`

func TestLoadStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stores.json5")
	err := os.WriteFile(path, []byte(storesJson5), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	stores, err := LoadStores(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, stores, 1)

	store := stores[0]
	require.Equal(t, "goodstore", store.Name)
	require.Equal(t, "Good Store", store.DisplayName())
	require.Equal(t, "euc-jp", store.Options.Encoding)
	require.Equal(t, float64(5), store.Options.DelayBetweenRequests)
	require.False(t, store.ParsedSchedule.Minutes.Any)
	require.Equal(t, []int{0, 30}, store.ParsedSchedule.Minutes.Values)
	require.True(t, store.ParsedSchedule.Hours.Any)
}

func TestValidateRequiresPriceSelectors(t *testing.T) {
	store := testStoreConfig()
	store.Schedule = allWildcards()
	store.Options.ItemPriceSelectors = nil

	err := store.Validate()
	require.Error(t, err)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "teststore", cerr.Store)
}

func TestValidateParsesSchedule(t *testing.T) {
	store := testStoreConfig()
	store.Schedule = allWildcards()
	require.NoError(t, store.Validate())
	require.True(t, store.ParsedSchedule.Minutes.Any)

	store.Schedule.Minutes = "never"
	require.Error(t, store.Validate())
}
