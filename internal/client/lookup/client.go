// Package lookup consumes the public country and currency endpoints the
// editing surface autocompletes from. Upstream payloads are dynamic JSON;
// they are converted to fixed structs here and never leak past this package.
package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/relhe/billpilot/internal/domain/errors"
	"github.com/relhe/billpilot/internal/infrastructure/cache"
)

// Config contains configuration for the lookup client
type Config struct {
	CountriesURL  string        `json:"countries_url"`
	CurrenciesURL string        `json:"currencies_url"`
	Timeout       time.Duration `json:"timeout"`
	RateLimitRPS  int           `json:"rate_limit_rps"`
	CacheTTL      time.Duration `json:"cache_ttl"`
}

// Country is one entry of the countries endpoint, already flattened
type Country struct {
	Name   string   `json:"country"`
	ISO2   string   `json:"iso2"`
	Cities []string `json:"cities"`
}

// Client fetches country and currency reference data, optionally backed by
// a cache so repeated form opens do not hammer the public endpoints
type Client struct {
	config      Config
	client      *http.Client
	rateLimiter *rate.Limiter
	cache       cache.Cache
}

// NewClient creates a lookup client. cache may be nil; lookups then always
// go upstream.
func NewClient(config Config, c cache.Cache) *Client {
	if config.CountriesURL == "" {
		config.CountriesURL = "https://countriesnow.space/api/v0.1/countries"
	}
	if config.CurrenciesURL == "" {
		config.CurrenciesURL = "https://restcountries.com/v3.1/all"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimitRPS == 0 {
		config.RateLimitRPS = 5
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = cache.LookupTTL
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.RateLimitRPS*2),
		cache:       c,
	}
}

type countriesResponse struct {
	Error bool      `json:"error"`
	Msg   string    `json:"msg"`
	Data  []Country `json:"data"`
}

// Countries returns every country with its ISO2 code and city list
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	if c.cache != nil {
		var cached []Country
		if err := c.cache.GetJSON(ctx, cache.CountriesKey, &cached); err == nil {
			return cached, nil
		}
	}

	var body countriesResponse
	if err := c.fetch(ctx, c.config.CountriesURL, &body); err != nil {
		return nil, err
	}
	if body.Error {
		return nil, errors.NewExternalError("lookup", body.Msg)
	}

	if c.cache != nil {
		_ = c.cache.SetJSON(ctx, cache.CountriesKey, body.Data, c.config.CacheTTL)
	}

	return body.Data, nil
}

type currencyEntry struct {
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
}

// Currencies returns the deduplicated, sorted list of ISO 4217 codes in use
func (c *Client) Currencies(ctx context.Context) ([]string, error) {
	if c.cache != nil {
		var cached []string
		if err := c.cache.GetJSON(ctx, cache.CurrenciesKey, &cached); err == nil {
			return cached, nil
		}
	}

	var entries []currencyEntry
	if err := c.fetch(ctx, c.config.CurrenciesURL, &entries); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		for code := range e.Currencies {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	if c.cache != nil {
		_ = c.cache.SetJSON(ctx, cache.CurrenciesKey, codes, c.config.CacheTTL)
	}

	return codes, nil
}

func (c *Client) fetch(ctx context.Context, url string, dest interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return errors.NewInternalError("rate limiter wait interrupted").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewInternalError("building request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewExternalError("lookup", "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		appErr := errors.NewExternalError("lookup", "lookup service returned HTTP "+resp.Status)
		appErr.StatusCode = resp.StatusCode
		return appErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.NewInternalError("decoding lookup response").WithCause(err)
	}

	return nil
}

// CountryIndex resolves country names to ISO2 codes and city lists.
// Name matching is case-insensitive.
type CountryIndex struct {
	byName map[string]Country
}

// NewCountryIndex builds an index over the given country list
func NewCountryIndex(countries []Country) *CountryIndex {
	byName := make(map[string]Country, len(countries))
	for _, country := range countries {
		byName[strings.ToLower(country.Name)] = country
	}
	return &CountryIndex{byName: byName}
}

// ISO2 resolves a country name to its ISO 3166-1 alpha-2 code
func (i *CountryIndex) ISO2(name string) (string, bool) {
	country, ok := i.byName[strings.ToLower(name)]
	if !ok || country.ISO2 == "" {
		return "", false
	}
	return country.ISO2, true
}

// Cities returns the known cities of a country, nil when unknown
func (i *CountryIndex) Cities(name string) []string {
	country, ok := i.byName[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return country.Cities
}
