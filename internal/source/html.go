package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"realty_bot/internal/model"
	"realty_bot/internal/parse"
)

// SiteConfig describes how to extract listings from one site's search page.
// Selectors are goquery/CSS expressions; Link is resolved against LinkBase
// when relative.
type SiteConfig struct {
	Name     model.Source
	URL      string
	Item     string
	Title    string
	Price    string
	Address  string
	Link     string
	LinkBase string
}

// Site scrapes a listing site's search page according to its SiteConfig.
type Site struct {
	cfg    SiteConfig
	client HTTPClient
	log    *slog.Logger
	now    func() time.Time
}

// NewSite creates a scraping listing source for one site.
func NewSite(cfg SiteConfig, client HTTPClient, log *slog.Logger) *Site {
	return &Site{
		cfg:    cfg,
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Name returns the source name used in logs and listing records.
func (s *Site) Name() string {
	return string(s.cfg.Name)
}

// Fetch downloads the search page and extracts listings. Items missing a
// title or link are skipped and logged; a bad item never aborts the fetch.
func (s *Site) Fetch(ctx context.Context) ([]model.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	now := s.now().UTC()
	var listings []model.Listing
	doc.Find(s.cfg.Item).Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(s.cfg.Title).First().Text())
		href, _ := sel.Find(s.cfg.Link).First().Attr("href")
		if title == "" || href == "" {
			s.log.Debug("skip malformed item", "source", s.cfg.Name, "index", i)
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = s.cfg.LinkBase + href
		}

		price := strings.TrimSpace(sel.Find(s.cfg.Price).First().Text())
		if price == "" {
			// Some sites carry the price in a meta content attribute.
			price, _ = sel.Find(s.cfg.Price).First().Attr("content")
		}
		address := strings.TrimSpace(sel.Find(s.cfg.Address).First().Text())

		listings = append(listings, model.Listing{
			Source:        s.cfg.Name,
			Title:         title,
			PriceText:     price,
			PriceValue:    parse.Price(price),
			Address:       address,
			DistanceValue: parse.Distance(address),
			URL:           href,
			FetchedAt:     now,
		})
	})
	return listings, nil
}

// DefaultSites returns the scraping configurations for the supported listing
// sites.
func DefaultSites() []SiteConfig {
	return []SiteConfig{
		{
			Name:     model.SourceCian,
			URL:      "https://www.cian.ru/cat.php?deal_type=rent&offer_type=flat&region=1",
			Item:     `article[data-name="CardComponent"]`,
			Title:    `[data-name="TitleComponent"]`,
			Price:    `[data-mark="MainPrice"]`,
			Address:  `[data-name="GeoLabel"]`,
			Link:     `a[data-name="LinkArea"]`,
			LinkBase: "https://cian.ru",
		},
		{
			Name:     model.SourceYandex,
			URL:      "https://realty.yandex.ru/moskva_i_moskovskaya_oblast/snyat/kvartira/",
			Item:     `article[data-test="offer-card"]`,
			Title:    `span[data-test="offer-title"]`,
			Price:    `span[data-test="offer-price"]`,
			Address:  `div[data-test="address"]`,
			Link:     "a",
			LinkBase: "https://realty.yandex.ru",
		},
		{
			Name:     model.SourceAvito,
			URL:      "https://www.avito.ru/moskva/kvartiry/sdam/na_dlitelnyy_srok",
			Item:     `div[data-marker="item"]`,
			Title:    `h3[itemprop="name"]`,
			Price:    `meta[itemprop="price"]`,
			Address:  `[data-marker="item-address"]`,
			Link:     `a[data-marker="item-title"]`,
			LinkBase: "https://www.avito.ru",
		},
	}
}
