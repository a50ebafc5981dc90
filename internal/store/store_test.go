package store

import (
	"context"
	"testing"
	"time"

	"lob-sim/internal/config"
	"lob-sim/internal/sizer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(config.DatabaseConfig{
		InMemory:        true,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestQTableStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	qtable, err := NewQTableStore(s)
	if err != nil {
		t.Fatalf("NewQTableStore: %v", err)
	}

	if _, ok, err := qtable.Load(); err != nil || ok {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}

	snapshot := sizer.Snapshot{
		Table: map[string]map[string]float64{
			"high|on|ok|calm": {"1.0": 0.5, "2.0": 0.62},
		},
		Epsilon: 0.11,
		Step:    37,
		Actions: []float64{1, 2, 3, 4, 5},
	}
	if err := qtable.Save(snapshot); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := qtable.Load()
	if err != nil || !ok {
		t.Fatalf("Load after save: ok=%v err=%v", ok, err)
	}
	if loaded.Step != 37 || loaded.Epsilon != 0.11 {
		t.Errorf("snapshot fields lost: %+v", loaded)
	}
	if loaded.Table["high|on|ok|calm"]["2.0"] != 0.62 {
		t.Errorf("q value lost: %+v", loaded.Table)
	}

	// 覆盖写入保持单快照
	snapshot.Step = 40
	if err := qtable.Save(snapshot); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	loaded, _, err = qtable.Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if loaded.Step != 40 {
		t.Errorf("expected overwritten step 40, got %d", loaded.Step)
	}
}

func TestTradeReaderFiltersVetoed(t *testing.T) {
	s := newTestStore(t)

	reader, err := NewTradeReader(s)
	if err != nil {
		t.Fatalf("NewTradeReader: %v", err)
	}

	ctx := context.Background()
	records := []TradeRecord{
		{Ticker: "NVDA", Action: "LONG", SizePct: 2, PnlBps: 18, Outcome: "WIN"},
		{Ticker: "NVDA", Action: "SHORT", SizePct: 3, PnlBps: -12, Outcome: "LOSS"},
		{Ticker: "AMD", Action: "LONG", SizePct: 1, PnlBps: 0, Outcome: "VETOED"},
		{Ticker: "AMD", Action: "LONG", SizePct: 2, PnlBps: 1, Outcome: "FLAT"},
	}
	for _, rec := range records {
		if err := reader.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	executed, err := reader.ListExecuted(ctx)
	if err != nil {
		t.Fatalf("ListExecuted: %v", err)
	}
	if len(executed) != 3 {
		t.Fatalf("expected 3 executed records, got %d", len(executed))
	}
	for _, rec := range executed {
		if rec.Outcome == "VETOED" {
			t.Errorf("vetoed record leaked into replay set")
		}
	}
	if executed[0].Ticker != "NVDA" || executed[0].PnlBps != 18 {
		t.Errorf("records out of order: %+v", executed[0])
	}
}
