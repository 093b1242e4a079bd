package tracking

import (
	"errors"
	"sync"
	"testing"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		err  error
	}{
		{"120", 120, nil},
		{" 1,5 ", 1.5, nil},
		{"0.25", 0.25, nil},
		{"0", 0, ErrAmountNotPositive},
		{"-3", 0, ErrAmountNotPositive},
		{"abc", 0, ErrAmountNotNumber},
		{"", 0, ErrAmountNotNumber},
		{"NaN", 0, ErrAmountNotNumber},
		{"+Inf", 0, ErrAmountNotNumber},
		{"1,5,6", 0, ErrAmountNotNumber},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.raw)
		if !errors.Is(err, tt.err) {
			t.Fatalf("ParseAmount(%q): expected error %v, got %v", tt.raw, tt.err, err)
		}
		if got != tt.want {
			t.Fatalf("ParseAmount(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestKeyedMutexIsReaped(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(domain.UserID(7))
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
	if k.size() != 0 {
		t.Fatalf("expected no locks left, got %d", k.size())
	}
}
