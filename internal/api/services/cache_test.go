package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/janovincze/icecat/internal/api/models"
)

func TestTableResponseCache(t *testing.T) {
	cache := NewTableResponseCache()
	namespace := []string{"accounting", "tax"}

	if _, ok := cache.Get(namespace, "orders"); ok {
		t.Fatal("expected empty cache")
	}

	result := models.LoadTableResult{
		MetadataLocation: "s3://bucket/accounting.tax/orders/metadata/current.metadata.json",
	}
	cache.Put(namespace, "orders", result)

	got, ok := cache.Get(namespace, "orders")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.MetadataLocation != result.MetadataLocation {
		t.Errorf("metadata location = %q, want %q", got.MetadataLocation, result.MetadataLocation)
	}

	// Overlaying credentials on the returned copy must not mutate the entry.
	got.Config = map[string]string{"client.region": "us-east-1"}
	stored, _ := cache.Get(namespace, "orders")
	if stored.Config != nil {
		t.Error("cache entry mutated through returned copy")
	}

	cache.Invalidate(namespace, "orders")
	if _, ok := cache.Get(namespace, "orders"); ok {
		t.Error("expected entry to be invalidated")
	}
}

func TestTableResponseCacheLastWriterWins(t *testing.T) {
	cache := NewTableResponseCache()
	namespace := []string{"n"}

	cache.Put(namespace, "t", models.LoadTableResult{MetadataLocation: "first"})
	cache.Put(namespace, "t", models.LoadTableResult{MetadataLocation: "second"})

	got, _ := cache.Get(namespace, "t")
	if got.MetadataLocation != "second" {
		t.Errorf("expected last write to win, got %q", got.MetadataLocation)
	}
}

func TestTableResponseCacheConcurrent(t *testing.T) {
	cache := NewTableResponseCache()
	namespace := []string{"n"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			cache.Put(namespace, fmt.Sprintf("t%d", i%4), models.LoadTableResult{})
		}(i)
		go func(i int) {
			defer wg.Done()
			cache.Get(namespace, fmt.Sprintf("t%d", i%4))
		}(i)
	}
	wg.Wait()
}
