package registry_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/savushkin-dev/scada-gateway/internal/registry"
)

func sample(serverID, tagID string, v domain.Value) *domain.TagValue {
	return &domain.TagValue{
		ServerID:  serverID,
		TagID:     tagID,
		TagName:   tagID,
		Value:     v,
		Quality:   domain.QualityGood,
		Timestamp: time.Now(),
	}
}

func TestRegistry_SetAndLatest(t *testing.T) {
	r := registry.New()

	if _, err := r.Latest("plc-001", "ns=2;s=Temp"); !errors.Is(err, domain.ErrValueNotFound) {
		t.Fatalf("Latest() on empty registry: err = %v, want ErrValueNotFound", err)
	}

	first := sample("plc-001", "ns=2;s=Temp", domain.FloatValue(20.0))
	r.Set(first)

	got, err := r.Latest("plc-001", "ns=2;s=Temp")
	if err != nil {
		t.Fatalf("Latest(): %v", err)
	}
	if got != first {
		t.Error("Latest() did not return the stored record")
	}

	// Overwrite replaces, never mutates.
	second := sample("plc-001", "ns=2;s=Temp", domain.FloatValue(21.0))
	r.Set(second)

	got, _ = r.Latest("plc-001", "ns=2;s=Temp")
	if got != second {
		t.Error("Latest() after overwrite did not return the new record")
	}
	if f, _ := first.Value.Float(); f != 20.0 {
		t.Error("previous record was mutated by overwrite")
	}
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	r := registry.New()
	r.Set(sample("plc-001", "a", domain.IntValue(1)))
	r.Set(sample("plc-001", "b", domain.IntValue(2)))
	r.Set(sample("plc-002", "a", domain.IntValue(3)))

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	if got := r.ServerValues("plc-001"); len(got) != 2 {
		t.Errorf("ServerValues(plc-001) returned %d values, want 2", len(got))
	}
	if got := r.All(); len(got) != 3 {
		t.Errorf("All() returned %d values, want 3", len(got))
	}
}

func TestRegistry_ConcurrentReadersAndWriters(t *testing.T) {
	r := registry.New()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.Set(sample("plc-001", "ns=2;s=Temp", domain.IntValue(int64(i))))
			}
		}()
	}

	for rd := 0; rd < 4; rd++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tv, err := r.Latest("plc-001", "ns=2;s=Temp")
				if err != nil {
					continue // before first write
				}
				// A reader must always observe a complete record.
				if tv.ServerID != "plc-001" || tv.TagID != "ns=2;s=Temp" {
					t.Error("observed torn record")
					return
				}
			}
		}()
	}

	wg.Wait()
}
