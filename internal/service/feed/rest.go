package feed

import (
	"context"
	"fmt"
	"time"

	"PriceTrend/internal/domain/repository"
	xhttp "PriceTrend/pkg/http"
	"PriceTrend/pkg/util"
)

// tickerResponse is the hourly ticker payload. The exchange quotes all
// numeric fields as strings, so they are parsed separately. "vwap" is
// the hourly volume-weighted price this service stores.
type tickerResponse struct {
	High      string `json:"high"`
	Last      string `json:"last"`
	Timestamp string `json:"timestamp"`
	Bid       string `json:"bid"`
	VWAP      string `json:"vwap"`
	Volume    string `json:"volume"`
	Low       string `json:"low"`
	Ask       string `json:"ask"`
}

// RestFeed polls a Bitstamp-style hourly ticker endpoint.
type RestFeed struct {
	client *xhttp.Client
	url    string
}

// NewRestFeed creates a REST price feed.
func NewRestFeed(url string, timeout time.Duration) repository.PriceFeed {
	return &RestFeed{
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		url:    url,
	}
}

func (f *RestFeed) Current(ctx context.Context) (repository.Quote, error) {
	var resp tickerResponse
	if err := f.client.GetJSON(ctx, f.url, &resp); err != nil {
		return repository.Quote{}, fmt.Errorf("fetch ticker: %w", err)
	}

	price, ok := util.ParsePriceCents(resp.VWAP)
	if !ok {
		return repository.Quote{}, fmt.Errorf("ticker returned unparsable vwap %q", resp.VWAP)
	}
	ts, ok := util.ParseTimestamp(resp.Timestamp)
	if !ok {
		return repository.Quote{}, fmt.Errorf("ticker returned unparsable timestamp %q", resp.Timestamp)
	}

	return repository.Quote{Timestamp: ts, PriceCents: price}, nil
}

func (f *RestFeed) Close() error { return nil }
