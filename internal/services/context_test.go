package services_test

import (
	"context"
	"testing"

	"streamlet/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.OwnerIDFromContext(ctx); ok {
		t.Fatal("expected no owner id on empty context")
	}

	ctx = services.WithOwnerID(ctx, "owner-1")
	ctx = services.WithAssetID(ctx, "asset-9")
	ctx = services.WithRequestID(ctx, "req-42")

	if owner, ok := services.OwnerIDFromContext(ctx); !ok || owner != "owner-1" {
		t.Fatalf("owner id = %q, ok=%v", owner, ok)
	}
	if asset, ok := services.AssetIDFromContext(ctx); !ok || asset != "asset-9" {
		t.Fatalf("asset id = %q, ok=%v", asset, ok)
	}
	if req, ok := services.RequestIDFromContext(ctx); !ok || req != "req-42" {
		t.Fatalf("request id = %q, ok=%v", req, ok)
	}
}

func TestEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithOwnerID(context.Background(), "")
	if _, ok := services.OwnerIDFromContext(ctx); ok {
		t.Fatal("empty owner id should not be stored")
	}
}
