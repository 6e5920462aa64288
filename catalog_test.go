package llmgate

import (
	"sync"
	"testing"
)

func TestDefaultCatalog_BuiltinKeys(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 4 {
		t.Fatalf("built-in key count: got %d, want 4", c.Len())
	}

	tests := []struct {
		key  string
		name string
		rpm  int64
	}{
		{"test-key-1", "Default Tier", 500},
		{"test-key-2", "High-Throughput Tier", 1000},
		{"unlimited-key", "Unlimited Test", 999999},
		{"free-tier-key", "Free Tier", 20},
	}
	for _, tt := range tests {
		entry, ok := c.Lookup(tt.key)
		if !ok {
			t.Errorf("%s should be registered", tt.key)
			continue
		}
		if entry.Name != tt.name {
			t.Errorf("%s name: got %q, want %q", tt.key, entry.Name, tt.name)
		}
		if entry.Quota.RPM != tt.rpm {
			t.Errorf("%s rpm: got %d, want %d", tt.key, entry.Quota.RPM, tt.rpm)
		}
	}
}

func TestCatalog_UnknownKey(t *testing.T) {
	c := DefaultCatalog()
	if _, ok := c.Lookup("ghost-key"); ok {
		t.Error("ghost-key should not be registered")
	}
}

func TestCatalog_SetDelete(t *testing.T) {
	c := NewCatalog()

	c.Set("acme", QuotaEntry{Name: "Acme", Quota: Quota{RPM: 42, InputTPM: 100, OutputTPM: 100}})
	entry, ok := c.Lookup("acme")
	if !ok || entry.Quota.RPM != 42 {
		t.Fatalf("lookup after set: got (%+v, %v)", entry, ok)
	}

	c.Set("acme", QuotaEntry{Name: "Acme v2", Quota: Quota{RPM: 99, InputTPM: 100, OutputTPM: 100}})
	entry, _ = c.Lookup("acme")
	if entry.Name != "Acme v2" || entry.Quota.RPM != 99 {
		t.Errorf("set should replace: got %+v", entry)
	}

	c.Delete("acme")
	if _, ok := c.Lookup("acme"); ok {
		t.Error("acme should be gone after delete")
	}
	if c.Len() != 0 {
		t.Errorf("len after delete: got %d, want 0", c.Len())
	}
}

func TestCatalog_QuotaFunc(t *testing.T) {
	c := DefaultCatalog()
	f := c.QuotaFunc()

	q, ok := f("free-tier-key")
	if !ok {
		t.Fatal("free-tier-key should resolve")
	}
	if q.RPM != 20 || q.InputTPM != 4000 || q.OutputTPM != 1000 {
		t.Errorf("free tier quota: got %+v", q)
	}

	if _, ok := f("ghost-key"); ok {
		t.Error("ghost-key should not resolve")
	}
}

func TestCatalog_ConcurrentAccess(t *testing.T) {
	c := DefaultCatalog()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Lookup("test-key-1")
				c.Len()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set("churn", QuotaEntry{Quota: Quota{RPM: int64(j + 1)}})
				c.Delete("churn")
			}
		}()
	}
	wg.Wait()
}
