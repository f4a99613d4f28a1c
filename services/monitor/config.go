package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"storewatch-backend/lib/configutil"
)

type PriceSelector struct {
	Currency string `json:"currency"`
	Selector string `json:"selector"`
}

// StoreOptions is the extraction half of a store definition: where to
// fetch and which selectors pull the item fields out of the markup.
type StoreOptions struct {
	BaseUrl     string `json:"base_url"`
	SiteMainUrl string `json:"site_main_url"`

	ItemContainerSelector string          `json:"item_container_selector"`
	ItemNameSelector      string          `json:"item_name_selector"`
	ItemPriceSelectors    []PriceSelector `json:"item_price_selectors"`
	ItemLinkSelector      string          `json:"item_link_selector"`
	ItemImageSelector     string          `json:"item_image_selector"`
	SoldOutSelector       string          `json:"sold_out_selector"`

	NextPageSelector     string `json:"next_page_selector"`
	NextPageSelectorText string `json:"next_page_selector_text"`
	NextPageAttribute    string `json:"next_page_attribute"`

	// seconds between page requests against the same store
	DelayBetweenRequests float64 `json:"delay_between_requests"`
	Encoding             string  `json:"encoding"`
}

type StoreConfig struct {
	Name       string       `json:"name"`
	NameFormat string       `json:"name_format"`
	Options    StoreOptions `json:"options"`
	Schedule   RawSchedule  `json:"schedule"`

	// populated by Validate
	ParsedSchedule Schedule `json:"-"`
}

// Validate checks the shape of the definition and parses the
// schedule. All failures come back as *ConfigurationError.
func (c *StoreConfig) Validate() error {
	fail := func(err error) error {
		return &ConfigurationError{Store: c.Name, Err: err}
	}

	if c.Name == "" {
		return &ConfigurationError{Store: "(unnamed)", Err: fmt.Errorf("store name is required")}
	}
	if c.Options.BaseUrl == "" {
		return fail(fmt.Errorf("options.base_url is required"))
	}
	if c.Options.SiteMainUrl == "" {
		return fail(fmt.Errorf("options.site_main_url is required"))
	}
	if c.Options.ItemContainerSelector == "" {
		return fail(fmt.Errorf("options.item_container_selector is required"))
	}
	if c.Options.ItemNameSelector == "" {
		return fail(fmt.Errorf("options.item_name_selector is required"))
	}
	if c.Options.ItemLinkSelector == "" {
		return fail(fmt.Errorf("options.item_link_selector is required"))
	}
	if len(c.Options.ItemPriceSelectors) == 0 {
		return fail(fmt.Errorf("options.item_price_selectors needs at least one entry"))
	}
	for i, sel := range c.Options.ItemPriceSelectors {
		if sel.Currency == "" || sel.Selector == "" {
			return fail(fmt.Errorf("options.item_price_selectors[%d] needs both currency and selector", i))
		}
	}

	schedule, err := c.Schedule.Parse()
	if err != nil {
		return fail(err)
	}
	c.ParsedSchedule = schedule

	return nil
}

// DisplayName is what the notifier shows users, falling back to the
// unique name when no format was configured.
func (c StoreConfig) DisplayName() string {
	if c.NameFormat != "" {
		return c.NameFormat
	}
	return c.Name
}

// LoadStores reads the store definitions file. Definitions that fail
// validation are logged and dropped, one broken store must not take
// the rest down with it.
func LoadStores(ctx context.Context, path string) ([]StoreConfig, error) {
	configs, err := configutil.ReadConfig[[]StoreConfig](path)
	if err != nil {
		return nil, err
	}

	var valid []StoreConfig
	for _, store := range configs {
		err := store.Validate()
		if err != nil {
			slog.ErrorContext(ctx, "skipping store with invalid config", "store", store.Name, "err", err)
			continue
		}
		valid = append(valid, store)
	}
	return valid, nil
}
