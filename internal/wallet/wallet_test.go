package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMemoryStoreUpsertIgnoresDuplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := []Item{
		{ID: "metamask", Name: "MetaMask", Chains: []string{"eip155:1"}},
		{ID: "rainbow", Name: "Rainbow"},
	}
	inserted, err := store.UpsertAll(ctx, first)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserts, got %d", inserted)
	}

	// 重叠的 id 不产生重复行，也不覆盖属性。
	overlap := []Item{
		{ID: "metamask", Name: "Overwritten"},
		{ID: "zerion", Name: "Zerion"},
	}
	inserted, err = store.UpsertAll(ctx, overlap)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 insert on overlap, got %d", inserted)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == "metamask" && item.Name != "MetaMask" {
			t.Fatalf("existing attributes must not be overwritten, got %q", item.Name)
		}
	}
}

func TestMemoryStoreUpsertSkipsEmptyID(t *testing.T) {
	store := NewMemoryStore()
	inserted, err := store.UpsertAll(context.Background(), []Item{{Name: "nameless"}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("items without id must be skipped")
	}
}

func TestClientFetchItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("reference flow must not send credentials, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"wallets":[
            {"id":"metamask","name":"MetaMask","homepage":"https://metamask.io",
             "chains":["eip155:1","eip155:137"]}
        ]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	items, err := client.FetchItems(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].ID != "metamask" || len(items[0].Chains) != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestClientFetchItemsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	if _, err := client.FetchItems(context.Background()); err == nil {
		t.Fatalf("expected error on 503")
	}
}

type fakeFetcher struct {
	items []Item
}

func (f *fakeFetcher) FetchItems(context.Context) ([]Item, error) { return f.items, nil }

func TestSyncerIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	fetcher := &fakeFetcher{items: []Item{
		{ID: "metamask", Name: "MetaMask"},
		{ID: "rainbow", Name: "Rainbow"},
	}}
	syncer := NewSyncer(fetcher, store, nil)

	for i := 0; i < 3; i++ {
		if err := syncer.Sync(context.Background()); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}

	items, _ := store.List(context.Background())
	if len(items) != 2 {
		t.Fatalf("repeated sync must not duplicate rows, got %d", len(items))
	}
}
