// internal/writer/writer_test.go
package writer

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tamzrod/statpoll/internal/poller"
)

// ---- fake endpoint client ----

type fakeEndpointClient struct {
	writes []writeCall
	err    error

	lastRegsAddr uint16
	lastRegs     []uint16
}

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.err != nil {
		return f.err
	}
	cp := append([]uint16(nil), regs...)
	f.writes = append(f.writes, writeCall{unitID: unitID, addr: addr, regs: cp})
	f.lastRegsAddr = addr
	f.lastRegs = cp
	return nil
}

// ---- tests ----

func TestWriter_ValueToEveryTarget(t *testing.T) {
	ep1 := &fakeEndpointClient{}
	ep2 := &fakeEndpointClient{}

	plan := Plan{
		Targets: []TargetPlan{
			{Endpoint: "ep1", UnitID: 1, ValueAddress: 100},
			{Endpoint: "ep2", UnitID: 7, ValueAddress: 0},
		},
	}

	w := New(plan, map[string]endpointClient{"ep1": ep1, "ep2": ep2})

	if err := w.Write(poller.PollResult{Value: "70000"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ep1.writes) != 1 || len(ep2.writes) != 1 {
		t.Fatalf("expected one write per target, got %d and %d", len(ep1.writes), len(ep2.writes))
	}

	got := ep1.writes[0]
	if got.unitID != 1 || got.addr != 100 {
		t.Fatalf("unexpected destination: unit=%d addr=%d", got.unitID, got.addr)
	}
	// 70000 = 0x0001_1170
	if len(got.regs) != 2 || got.regs[0] != 0x0001 || got.regs[1] != 0x1170 {
		t.Fatalf("unexpected registers: %v", got.regs)
	}

	if ep2.writes[0].unitID != 7 || ep2.writes[0].addr != 0 {
		t.Fatalf("unexpected destination for ep2: %+v", ep2.writes[0])
	}
}

func TestWriter_FailedCycleWritesNothing(t *testing.T) {
	ep := &fakeEndpointClient{}
	w := New(Plan{Targets: []TargetPlan{{Endpoint: "ep"}}}, map[string]endpointClient{"ep": ep})

	if err := w.Write(poller.PollResult{Err: errors.New("boom")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ep.writes) != 0 {
		t.Fatalf("expected no writes, got %d", len(ep.writes))
	}
}

func TestWriter_BadValue(t *testing.T) {
	ep := &fakeEndpointClient{}
	w := New(Plan{Targets: []TargetPlan{{Endpoint: "ep"}}}, map[string]endpointClient{"ep": ep})

	err := w.Write(poller.PollResult{Value: "12k"})

	var bv *BadValueError
	if !errors.As(err, &bv) {
		t.Fatalf("expected BadValueError, got %v", err)
	}
	if len(ep.writes) != 0 {
		t.Fatalf("expected no writes, got %d", len(ep.writes))
	}
}

func TestWriter_AggregatesTargetErrors(t *testing.T) {
	bad := &fakeEndpointClient{err: errors.New("refused")}
	good := &fakeEndpointClient{}

	plan := Plan{
		Targets: []TargetPlan{
			{Endpoint: "bad", UnitID: 1},
			{Endpoint: "missing", UnitID: 2},
			{Endpoint: "good", UnitID: 3},
		},
	}

	w := New(plan, map[string]endpointClient{"bad": bad, "good": good})

	err := w.Write(poller.PollResult{Value: "1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "refused") || !strings.Contains(err.Error(), "missing client") {
		t.Fatalf("error does not name both failures: %v", err)
	}
	if len(good.writes) != 1 {
		t.Fatalf("healthy target must still be written")
	}
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "12345", want: 12345},
		{in: " 42 ", want: 42},
		{in: "4294967295", want: math.MaxUint32},
		{in: "4294967296", want: math.MaxUint32},
		{in: "99999999999999999999999", want: math.MaxUint32},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "1.5", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseValue(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseValue(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseValue(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseValue(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
