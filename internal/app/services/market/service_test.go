package market

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tradon-app/tradon/internal/app/domain/market"
)

func TestTopAssetsPassesThrough(t *testing.T) {
	svc := New(FetcherFunc(func(ctx context.Context) ([]market.Asset, error) {
		return []market.Asset{{Name: "Bitcoin", Symbol: "BTC"}}, nil
	}), 0, nil)

	assets, err := svc.TopAssets(context.Background())
	if err != nil {
		t.Fatalf("TopAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].Symbol != "BTC" {
		t.Fatalf("unexpected assets: %+v", assets)
	}
}

func TestTopAssetsEnforcesTimeout(t *testing.T) {
	svc := New(FetcherFunc(func(ctx context.Context) ([]market.Asset, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 10*time.Millisecond, nil)

	_, err := svc.TopAssets(context.Background())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", upstream.StatusCode)
	}
}

func TestTopAssetsClassifiesPlainErrors(t *testing.T) {
	svc := New(FetcherFunc(func(ctx context.Context) ([]market.Asset, error) {
		return nil, errors.New("boom")
	}), 0, nil)

	_, err := svc.TopAssets(context.Background())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", upstream.StatusCode)
	}
	if upstream.Message != "Internal Server Error" {
		t.Errorf("message = %q", upstream.Message)
	}
}

func TestTopAssetsWithoutFetcher(t *testing.T) {
	svc := New(nil, 0, nil)
	_, err := svc.TopAssets(context.Background())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", upstream.StatusCode)
	}
}
