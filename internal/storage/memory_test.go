package storage

import (
	"errors"
	"sync"
	"testing"
)

func TestMemoryEngine_CopiesValues(t *testing.T) {
	engine := NewMemoryEngine()

	value := []byte("original")
	if err := engine.Set("k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'X'

	got, _ := engine.Get("k")
	if string(got) != "original" {
		t.Errorf("Get() = %s, stored value aliased the caller's slice", got)
	}

	got[0] = 'Y'
	again, _ := engine.Get("k")
	if string(again) != "original" {
		t.Errorf("Get() = %s, returned value aliased the stored slice", again)
	}
}

func TestMemoryEngine_Concurrent(t *testing.T) {
	engine := NewMemoryEngine()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.Set("auth.auth", []byte("v"))
			_, _ = engine.Get("auth.auth")
			_ = engine.Delete("auth.auth")
		}()
	}
	wg.Wait()
}

func TestMemoryEngine_Closed(t *testing.T) {
	engine := NewMemoryEngine()
	engine.Close()

	if err := engine.Delete("k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete() after Close error = %v, want ErrClosed", err)
	}
}
