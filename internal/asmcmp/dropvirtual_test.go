package asmcmp

import "testing"

func physical(name string) Reg { return Reg{Virtual: false, Physical: name} }

func TestDropVirtualRemovesLifetimeMarkers(t *testing.T) {
	prog := &Program{Instrs: []Instruction{
		{Op: OpLifetimeStart, Live: physical("rax")},
		{Op: OpMov, Dst: RegOperand(physical("rax")), Src1: ImmOperand(1)},
		{Op: OpLifetimeEnd, Live: physical("rax")},
	}}
	if err := amd64DropVirtual(prog); err != nil {
		t.Fatalf("amd64DropVirtual: %v", err)
	}
	if len(prog.Instrs) != 1 || prog.Instrs[0].Op != OpMov {
		t.Fatalf("expected lifetime markers stripped, got %+v", prog.Instrs)
	}
}

func TestDropVirtualRejectsSurvivingVirtualRegister(t *testing.T) {
	prog := &Program{Instrs: []Instruction{
		{Op: OpMov, Dst: RegOperand(r(1)), Src1: ImmOperand(1)},
	}}
	if err := amd64DropVirtual(prog); err == nil {
		t.Fatalf("expected an error for a surviving virtual register")
	}
}
