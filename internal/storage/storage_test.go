package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"multipool/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")
	s := NewJsonlStorage(path)
	ctx := context.Background()

	first := []model.OperationResult{
		{Seq: 1, Op: model.OpDeposit, Status: model.StatusOK, Outputs: map[string]string{"held": "10"}, TotalSupply: "0", TotalUsd: "0"},
		{Seq: 2, Op: model.OpMint, Status: model.StatusFailed, Error: "mint amount in exceeded", TotalSupply: "0", TotalUsd: "0"},
	}
	second := []model.OperationResult{
		{Seq: 3, Op: model.OpBurn, Status: model.StatusOK, TotalSupply: "0", TotalUsd: "0"},
	}
	if err := s.PutResultBatch(ctx, first); err != nil {
		t.Fatalf("put first batch: %v", err)
	}
	if err := s.PutResultBatch(ctx, nil); err != nil {
		t.Fatalf("put empty batch: %v", err)
	}
	if err := s.PutResultBatch(ctx, second); err != nil {
		t.Fatalf("put second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var got []model.OperationResult
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r model.OperationResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, r)
	}

	want := append(append([]model.OperationResult{}, first...), second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("results mismatch: %+v != %+v", got, want)
	}
}

func TestFileCheckpointStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewFileCheckpointStore(path, true)
	ctx := context.Background()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected no checkpoint, got ok=%v err=%v", ok, err)
	}

	cp := model.Checkpoint{
		LastSeq: 42,
		Snapshot: model.Snapshot{
			Params:      model.ParamsState{DeviationPercentLimit: "100000000000000000"},
			TotalSupply: "10",
			Assets: []model.AssetState{{
				Address:            "0x1000000000000000000000000000000000000001",
				Quantity:           "7",
				Price:              "1",
				Percent:            "1",
				CollectedFees:      "0",
				CollectedCashbacks: "0",
				Held:               "8",
			}},
		},
		UpdatedAt: "2024-01-01T00:00:00Z",
	}
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, cp) {
		t.Fatalf("checkpoint mismatch: %+v != %+v", got, cp)
	}
}

func TestFileCheckpointStoreDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewFileCheckpointStore(path, false)
	ctx := context.Background()

	if err := store.Save(ctx, model.Checkpoint{LastSeq: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled store wrote a file")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("disabled store loaded a checkpoint")
	}
}

type failingSink struct{ calls int }

func (f *failingSink) PutResultBatch(context.Context, []model.OperationResult) error {
	f.calls++
	return errors.New("sink down")
}

func TestMultiStopsAtFirstError(t *testing.T) {
	first := &failingSink{}
	second := &failingSink{}
	err := Multi{first, second}.PutResultBatch(context.Background(), []model.OperationResult{{Seq: 1}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("unexpected calls: %d %d", first.calls, second.calls)
	}
}
