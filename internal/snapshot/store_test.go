package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/funvibe/irslots/internal/irvar"
	"github.com/funvibe/irslots/internal/pipeline"
	"github.com/funvibe/irslots/internal/typesystem"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if _, ok, err := s.Latest(ctx, "vloc_x_1"); err != nil || ok {
		t.Fatalf("Latest on empty store = %v, %v", ok, err)
	}

	first, err := s.BeginRun(ctx, "first")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := s.Save(ctx, first, "vloc_x_1", []string{"vloc_x_1_lo", "vloc_x_1_hi"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := s.BeginRun(ctx, "second")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := s.Save(ctx, second, "vloc_x_1", []string{"vloc_x_1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Latest(ctx, "vloc_x_1")
	if err != nil || !ok {
		t.Fatalf("Latest = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, []string{"vloc_x_1"}) {
		t.Errorf("Latest = %v, want [vloc_x_1]", got)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || runs[1].Label != "first" {
		t.Errorf("Runs = %+v, want second then first", runs)
	}
}

func TestRunsKeepCreationTime(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run, err := s.BeginRun(ctx, "stamped")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || !runs[0].CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("Runs = %+v, want CreatedAt %v", runs, run.CreatedAt)
	}
}

func TestConcurrentBeginRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := s.BeginRun(ctx, fmt.Sprintf("run-%d", i))
			if err == nil {
				err = s.Save(ctx, run, "v", []string{fmt.Sprintf("v_%d", i)})
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("BeginRun/Save: %v", err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != n {
		t.Fatalf("got %d runs, want %d", len(runs), n)
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].CreatedAt.After(runs[i-1].CreatedAt) {
			t.Errorf("runs not newest first at %d: %v after %v", i, runs[i].CreatedAt, runs[i-1].CreatedAt)
		}
	}
	if _, ok, err := s.Latest(ctx, "v"); err != nil || !ok {
		t.Errorf("Latest = %v, %v", ok, err)
	}
}

func TestSameTickRunsOrderedByInsertion(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	stamp := int64(1700000000000000000)
	for _, id := range []string{"00000000-0000-0000-0000-000000000002", "00000000-0000-0000-0000-000000000001"} {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, label, created_at) VALUES (?, ?, ?)`, id, id, stamp); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO slots (run_id, base_name, position, name) VALUES (?, 'v', 0, ?)`, id, "v_"+id[len(id)-1:]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, _, err := s.Latest(ctx, "v")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"v_1"}) {
		t.Errorf("Latest = %v, want the later insert [v_1]", got)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].Label != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("Runs = %+v, want the later insert first", runs)
	}
}

func TestSaveReplacesWithinRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.BeginRun(ctx, "r")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := s.Save(ctx, run, "t", []string{"t_a", "t_b", "t_c"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, run, "t", []string{"t_a"}); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	got, _, err := s.Latest(ctx, "t")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"t_a"}) {
		t.Errorf("Latest = %v, want [t_a]", got)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Verify(ctx, "never", []string{"never"}); err != nil {
		t.Errorf("Verify of unrecorded variable = %v, want nil", err)
	}

	run, _ := s.BeginRun(ctx, "golden")
	if err := s.Save(ctx, run, "p", []string{"p_lo", "p_hi"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Verify(ctx, "p", []string{"p_lo", "p_hi"}); err != nil {
		t.Errorf("Verify of same names = %v", err)
	}

	tests := [][]string{
		{"p_hi", "p_lo"},
		{"p_lo"},
		{"p_lo", "p_hi", "p_extra"},
	}
	for _, got := range tests {
		err := s.Verify(ctx, "p", got)
		if !IsMismatch(err) {
			t.Errorf("Verify(%v) = %v, want MismatchError", got, err)
		}
	}
}

func TestProcessorRecordThenVerify(t *testing.T) {
	s := openStore(t)
	pair := typesystem.TFunc{External: true}

	run := func(base string, verify bool) *pipeline.PipelineContext {
		ctx := pipeline.NewPipelineContext("")
		ctx.Variables = []pipeline.NamedVariable{{Label: base, Variable: irvar.New(pair, base)}}
		return pipeline.New(pipeline.NewNamingProcessor(), NewProcessor(s, "test", verify)).Run(ctx)
	}

	rec := run("f", false)
	if rec.Failed() {
		t.Fatalf("record run failed: %v", rec.Errors)
	}
	if rec.RunID == "" {
		t.Errorf("RunID not set")
	}

	if ctx := run("f", true); ctx.Failed() {
		t.Errorf("verify of unchanged names failed: %v", ctx.Errors)
	}

	// Same base name, different layout.
	ctx := pipeline.NewPipelineContext("")
	ctx.Variables = []pipeline.NamedVariable{{Label: "f", Variable: irvar.New(typesystem.TFunc{}, "f")}}
	ctx = pipeline.New(pipeline.NewNamingProcessor(), NewProcessor(s, "test", true)).Run(ctx)
	if len(ctx.Errors) != 1 || !IsMismatch(ctx.Errors[0]) {
		t.Errorf("Errors = %v, want one MismatchError", ctx.Errors)
	}
}
