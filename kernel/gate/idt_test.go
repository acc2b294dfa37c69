package gate

import (
	"sync"
	"testing"

	ksync "x86kern/kernel/sync"
)

func TestIDTSingleton(t *testing.T) {
	defer func() {
		idtOnce = ksync.Lazy{}
	}()
	idtOnce = ksync.Lazy{}
	idt.entries[0x40].options = NewOptions(false, Ring0, true)

	const callers = 16
	var (
		wg      sync.WaitGroup
		results [callers]*Table
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = IDT()
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != &idt {
			t.Fatalf("caller %d observed a different table", i)
		}
	}

	if idt.entries[0x40].Present() {
		t.Fatal("expected the table to be reset by its first access")
	}

	if idtOnce.State() != ksync.Initialized {
		t.Fatalf("expected the guard to be initialized; got %s", idtOnce.State())
	}
}
