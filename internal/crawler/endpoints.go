package crawler

import (
	"context"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

const defaultPageSize = 50

// EndpointConfig describes one auction-API endpoint.
type EndpointConfig struct {
	APIURL     string            `yaml:"api_url"`
	Delay      time.Duration     `yaml:"delay"`
	MaxDelay   time.Duration     `yaml:"max_delay"`
	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
	Params     map[string]string `yaml:"params"`
}

// Endpoints bundles the configured auction-API endpoints.
type Endpoints struct {
	Auctions EndpointConfig `yaml:"gongpeng"`
	Sections EndpointConfig `yaml:"auction_sections"`
	Pigeons  EndpointConfig `yaml:"auction_pigeons"`
	Current  EndpointConfig `yaml:"current_pigeons"`
	Ledger   EndpointConfig `yaml:"pid_pigeons"`
}

// Scraper is the duck type the pool holds: a blocking ledger scrape plus
// list endpoints and the current-lot probe.
type Scraper interface {
	CrawlAuctions(ctx context.Context) []map[string]any
	FetchSections(ctx context.Context, auctionID int64) []map[string]any
	FetchPigeons(ctx context.Context, auctionID, sectionID int64) []map[string]any
	CurrentInfo(ctx context.Context) (schema.CurrentLot, int64, bool)
	RunCrawl(ctx context.Context, pid int64) []map[string]any
	Close() error
}

// APIScraper implements Scraper against the configured endpoints with
// one base client per concern so each carries its own throttle.
type APIScraper struct {
	endpoints Endpoints
	auctions  *Client
	sections  *Client
	pigeons   *Client
	current   *Client
	ledger    *Client

	// Window narrows the auction-list crawl; zero values mean no bound.
	WindowStart int64
	WindowEnd   int64
	WindowKey   string
}

// NewAPIScraper builds a scraper with per-endpoint clients sharing the
// UA and proxy pools.
func NewAPIScraper(endpoints Endpoints, userAgents, proxies []string) *APIScraper {
	build := func(ep EndpointConfig) *Client {
		return NewClient(ClientConfig{
			UserAgents:      userAgents,
			Proxies:         proxies,
			MinDelay:        ep.Delay,
			MaxDelay:        ep.MaxDelay,
			Timeout:         ep.Timeout,
			MaxRetries:      ep.MaxRetries,
			RecreateOnBlock: true,
		})
	}
	scraper := new(APIScraper)
	scraper.endpoints = endpoints
	scraper.auctions = build(endpoints.Auctions)
	scraper.sections = build(endpoints.Sections)
	scraper.pigeons = build(endpoints.Pigeons)
	scraper.current = build(endpoints.Current)
	scraper.ledger = build(endpoints.Ledger)
	return scraper
}

// CrawlAuctions paginates the auction list until a short or empty page.
func (s *APIScraper) CrawlAuctions(ctx context.Context) []map[string]any {
	ep := s.endpoints.Auctions
	pageSize := defaultPageSize
	if raw, ok := ep.Params["pagesize"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			pageSize = n
		}
	}

	var all []map[string]any
	for page := 1; ; page++ {
		params := cloneParams(ep.Params)
		params["pageno"] = strconv.Itoa(page)
		params["pagesize"] = strconv.Itoa(pageSize)
		if s.WindowStart > 0 {
			params["finishstarttime"] = strconv.FormatInt(s.WindowStart, 10)
		}
		if s.WindowEnd > 0 {
			params["finishendtime"] = strconv.FormatInt(s.WindowEnd, 10)
		}
		if s.WindowKey != "" {
			params["key"] = s.WindowKey
		}

		body, ok := s.auctions.Get(ctx, ep.APIURL, params, nil)
		if !ok {
			observability.Log().Warn("auction list page failed",
				observability.F("page", page))
			return all
		}
		rows := ExtractRows(body)
		if len(rows) == 0 {
			return all
		}
		all = append(all, rows...)
		if len(rows) < pageSize {
			return all
		}
	}
}

// FetchSections loads the section list of one auction.
func (s *APIScraper) FetchSections(ctx context.Context, auctionID int64) []map[string]any {
	ep := s.endpoints.Sections
	params := cloneParams(ep.Params)
	params["auctionid"] = strconv.FormatInt(auctionID, 10)
	body, ok := s.sections.Get(ctx, ep.APIURL, params, nil)
	if !ok {
		return nil
	}
	return ExtractRows(body)
}

// FetchPigeons loads the lot list of one auction section.
func (s *APIScraper) FetchPigeons(ctx context.Context, auctionID, sectionID int64) []map[string]any {
	ep := s.endpoints.Pigeons
	params := cloneParams(ep.Params)
	params["auctionid"] = strconv.FormatInt(auctionID, 10)
	params["sectionid"] = strconv.FormatInt(sectionID, 10)
	body, ok := s.pigeons.Get(ctx, ep.APIURL, params, nil)
	if !ok {
		return nil
	}
	return ExtractRows(body)
}

// currentProbeResponse is the wire shape of the current-lot probe.
type currentProbeResponse struct {
	ID          *int64  `json:"id"`
	FootRing    *string `json:"footring"`
	MatcherName *string `json:"matchername"`
}

// CurrentInfo probes for the lot currently on the block. The pid return
// is zero when no lot is live.
func (s *APIScraper) CurrentInfo(ctx context.Context) (schema.CurrentLot, int64, bool) {
	ep := s.endpoints.Current
	body, ok := s.current.Get(ctx, ep.APIURL, cloneParams(ep.Params), nil)
	if !ok {
		return schema.CurrentLot{}, 0, false
	}
	var probe currentProbeResponse
	if err := json.Unmarshal(body, &probe); err != nil {
		observability.Log().Warn("current probe parse failed",
			observability.F("error", err.Error()),
			observability.F("snippet", snippet(body)))
		return schema.CurrentLot{}, 0, false
	}
	lot := schema.CurrentLot{ID: probe.ID, FootRing: probe.FootRing, MatcherName: probe.MatcherName}
	if probe.ID == nil {
		return lot, 0, true
	}
	return lot, *probe.ID, true
}

// RunCrawl fetches the bid ledger of one lot.
func (s *APIScraper) RunCrawl(ctx context.Context, pid int64) []map[string]any {
	ep := s.endpoints.Ledger
	params := cloneParams(ep.Params)
	params["pigeonid"] = strconv.FormatInt(pid, 10)
	body, ok := s.ledger.Get(ctx, ep.APIURL, params, nil)
	if !ok {
		return nil
	}
	return ExtractLedgerRows(body)
}

// Close releases every endpoint client.
func (s *APIScraper) Close() error {
	for _, c := range []*Client{s.auctions, s.sections, s.pigeons, s.current, s.ledger} {
		_ = c.Close()
	}
	return nil
}

func cloneParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+4)
	for k, v := range params {
		out[k] = v
	}
	return out
}
