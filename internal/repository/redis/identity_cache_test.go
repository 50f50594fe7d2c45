package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arklim/authgate/internal/core/domain"
)

func TestIdentityCacheRepository(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewIdentityCacheRepository(client, "identity", 5*time.Minute)
	ctx := context.Background()

	identity := domain.Identity{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "alice@example.com",
		Flags:    domain.Flags{Active: true},
		Profile:  domain.Profile{GivenName: "Alice", Gender: domain.GenderFemale},
		Address:  &domain.Address{Country: "Ecuador", Locality: "Quito"},
		Timestamps: domain.Timestamps{
			CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	miss, err := cache.Get(ctx, identity.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected cache miss")
	}

	if err := cache.Set(ctx, identity); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if ttl := server.TTL("identity:" + identity.ID.String()); ttl != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", ttl)
	}

	got, err := cache.Get(ctx, identity.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil || got.Username != "alice" || got.Address == nil || got.Address.Locality != "Quito" {
		t.Fatalf("unexpected cached identity %+v", got)
	}
	if !got.Active || got.GivenName != "Alice" {
		t.Fatalf("expected embedded fields preserved, got %+v", got)
	}
}

func TestOAuthStateRepository(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOAuthStateRepository(client, "oauth:state", 10*time.Minute)
	ctx := context.Background()

	if err := repo.Save(ctx, "abc"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if ttl := server.TTL("oauth:state:abc"); ttl != 10*time.Minute {
		t.Fatalf("expected 10m ttl, got %s", ttl)
	}

	ok, err := repo.Consume(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("expected state consumed, got %v %v", ok, err)
	}

	ok, err = repo.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected state to be single use")
	}
}
