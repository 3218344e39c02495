// cmd/kefir-opt is a small demonstration entry point for the optimizer
// core: it builds a synthetic stack-IR module, runs it through
// construction, the optimizer pipeline, and the asmcmp pipeline, and
// prints the resulting IR and diagnostics. It does not parse C and is
// not the driver CLI spec.md section 1 places out of scope — it exists
// only to exercise the core end to end the way a real driver would
// wire it.
package main

import (
	"fmt"
	"os"

	"kefir/internal/asmcmp"
	"kefir/internal/bigint"
	"kefir/internal/config"
	"kefir/internal/construct"
	"kefir/internal/diag"
	"kefir/internal/ir"
	"kefir/internal/passes"
	"kefir/internal/pipeline"
	"kefir/internal/stackir"
	"kefir/internal/target"
)

// commandAliases mirrors the teacher's single-letter alias table
// (cmd/sentra/main.go), scaled down to this entry point's two
// subcommands.
var commandAliases = map[string]string{
	"r": "run",
	"h": "help",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "help", "--help", "-h":
		showUsage()
	case "run":
		if err := run(); err != nil {
			fmt.Fprintln(os.Stderr, "kefir-opt:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "kefir-opt: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`kefir-opt - optimizer core demonstration driver

Usage:
  kefir-opt run     build a synthetic module and run the full pipeline
  kefir-opt help     show this message`)
}

// run builds a stack-IR module with three functions chosen to exercise
// one representative scenario from spec.md section 8 each: a counter
// loop for mem2reg, a direct tail call for tail-call marking, and a wide
// _BitInt add for constant folding and target lowering, then runs the
// optimizer pipeline and the asmcmp pipeline and prints the result.
func run() error {
	diags := diag.NewStack()
	mod, types, err := buildModule(diags)
	if err != nil {
		diags.Render(os.Stderr)
		return err
	}

	cfg := config.Config{
		Passes: []string{
			"mem2reg",
			"compare-branch-fuse",
			"simplify",
			"gvn",
			"constant-fold",
			"tail-call",
			"unreachable",
			"lowering",
		},
		EmitDebugInfo:         true,
		MaxInlineDepth:        config.DefaultMaxInlineDepth,
		MaxInlinesPerFunction: config.DefaultMaxInlinesPerFunction,
	}

	// The lowering pass' platform/hook are wired onto the registered
	// pass directly (pipeline.Pass.Payload is the only per-pass
	// extension point the registry exposes; see internal/passes'
	// LoweringPayload doc comment).
	if lowerPass := pipeline.Lookup("lowering"); lowerPass != nil {
		lowerPass.Payload = passes.LoweringPayload{Platform: target.Generic64, Lower: target.LowerToRuntimeCalls}
	}

	pl, err := pipeline.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("resolving pipeline: %w", err)
	}
	if err := pl.Run(mod); err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	for _, name := range mod.FunctionNames() {
		fmt.Print(mod.Functions[name].Print(types))
	}

	if err := runAsmcmpDemo(); err != nil {
		return fmt.Errorf("asmcmp demo: %w", err)
	}

	if diags.HasErrors() {
		diags.Render(os.Stderr)
	}
	return nil
}

// buildModule assembles the stack-IR module and runs internal/construct
// over each function, producing the SSA-form ir.Module the pipeline
// consumes.
func buildModule(diags *diag.Stack) (*ir.Module, *ir.TypeTable, error) {
	types := ir.NewTypeTable()
	i32 := types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	wide := types.Intern(ir.Type{Kind: ir.KindBitInt, BitWidth: 80, Signed: false, Align: 8})

	src := stackir.NewModule("demo")
	src.Types = types
	src.AddFunction(counterLoop(types, i32))
	src.AddFunction(tailRecursive(i32))
	src.AddFunction(wideAdd(wide))

	builder := construct.NewBuilder(types, diags)
	mod := ir.NewModule(src.Name)
	mod.Types = types
	for _, fn := range src.Functions {
		built, err := builder.Build(fn)
		if err != nil {
			return nil, nil, fmt.Errorf("constructing %s: %w", fn.Name, err)
		}
		mod.AddFunction(built)
	}
	return mod, types, nil
}

// counterLoop is scenario 1 from spec.md section 8: int f(int n){int
// i=0; for(;i<n;++i); return i;} expressed directly in stack-IR (the
// front-end's lowering-from-C is out of scope; this hand-writes its
// output shape). Local 0 holds `i`.
func counterLoop(types *ir.TypeTable, i32 ir.TypeRef) *stackir.Function {
	locals := types.Intern(ir.Type{Kind: ir.KindStruct, Members: []ir.Member{{Type: i32}}})
	fn := stackir.NewFunction("counter_loop", []ir.TypeRef{i32}, i32, locals)

	entry := 0
	fn.Emit(entry, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 0})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpAddrOfLocal, Immediate: 0})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpStore})

	header := fn.AddBlock("header")
	fn.Emit(entry, stackir.Instr{Op: stackir.OpJump, Targets: []int{header}})

	fn.Emit(header, stackir.Instr{Op: stackir.OpAddrOfLocal, Immediate: 0})
	fn.Emit(header, stackir.Instr{Op: stackir.OpLoad, Type: i32})
	fn.Emit(header, stackir.Instr{Op: stackir.OpParam, Type: i32, Immediate: 0})
	fn.Emit(header, stackir.Instr{Op: stackir.OpICmp, Type: i32, Predicate: ir.PredSLT})

	body := fn.AddBlock("body")
	exit := fn.AddBlock("exit")
	fn.Emit(header, stackir.Instr{Op: stackir.OpBranch, Targets: []int{body, exit}})

	fn.Emit(body, stackir.Instr{Op: stackir.OpAddrOfLocal, Immediate: 0})
	fn.Emit(body, stackir.Instr{Op: stackir.OpLoad, Type: i32})
	fn.Emit(body, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 1})
	fn.Emit(body, stackir.Instr{Op: stackir.OpAdd, Type: i32})
	fn.Emit(body, stackir.Instr{Op: stackir.OpAddrOfLocal, Immediate: 0})
	fn.Emit(body, stackir.Instr{Op: stackir.OpStore})
	fn.Emit(body, stackir.Instr{Op: stackir.OpJump, Targets: []int{header}})

	fn.Emit(exit, stackir.Instr{Op: stackir.OpAddrOfLocal, Immediate: 0})
	fn.Emit(exit, stackir.Instr{Op: stackir.OpLoad, Type: i32})
	fn.Emit(exit, stackir.Instr{Op: stackir.OpReturn})
	return fn
}

// tailRecursive is scenario 5's eligible case: `int tail(int x) { return
// tail(x-1); }`.
func tailRecursive(i32 ir.TypeRef) *stackir.Function {
	fn := stackir.NewFunction("tail", []ir.TypeRef{i32}, i32, ir.Void)
	entry := 0
	fn.Emit(entry, stackir.Instr{Op: stackir.OpParam, Type: i32, Immediate: 0})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 1})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpSub, Type: i32})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpCall, Type: i32, Immediate: 1, CalleeSymbol: "tail"})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpReturn})
	return fn
}

// wideAdd is scenario 3: a width-80 _BitInt add of 2^80-1 and 1, which
// constant folding reduces mod 2^80 to 0 and lowering (if the fold
// somehow didn't fire first) would otherwise turn into a runtime helper
// call.
func wideAdd(wide ir.TypeRef) *stackir.Function {
	fn := stackir.NewFunction("wide_add", nil, wide, ir.Void)
	width := 80
	allOnes := bigint.SetUnsigned(width, 0)
	bigint.Invert(&allOnes, width)
	one := bigint.SetUnsigned(width, 1)

	entry := 0
	fn.Emit(entry, stackir.Instr{Op: stackir.OpConst, Type: wide, BitIntConst: allOnes})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpConst, Type: wide, BitIntConst: one})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpAdd, Type: wide})
	fn.Emit(entry, stackir.Instr{Op: stackir.OpReturn})
	return fn
}

// runAsmcmpDemo exercises spec.md section 8 scenario 6 directly against
// internal/asmcmp: a branch to a block containing only a jump should be
// retargeted past it, and the now-unreferenced label removed.
func runAsmcmpDemo() error {
	cfg := config.AsmcmpConfig{Passes: []config.AsmcmpPassEntry{
		{Name: "amd64-propagate-jump", Kind: config.Both},
		{Name: "amd64-eliminate-label", Kind: config.Devirtual},
		{Name: "amd64-peephole", Kind: config.Both},
		{Name: "amd64-drop-virtual", Kind: config.Devirtual},
	}}
	pl, err := asmcmp.New(cfg)
	if err != nil {
		return err
	}

	prog := &asmcmp.Program{Instrs: []asmcmp.Instruction{
		{Op: asmcmp.OpJcc, Target: "b2", Cond: "ne"},
		{Op: asmcmp.OpLabel, Label: "b2"},
		{Op: asmcmp.OpJmp, Target: "b3"},
		{Op: asmcmp.OpLabel, Label: "b3"},
		{Op: asmcmp.OpMov, Dst: asmcmp.RegOperand(asmcmp.Reg{Physical: "rax", Class: asmcmp.RegClassGPR}), Src1: asmcmp.ImmOperand(0)},
	}}

	if err := pl.RunVirtual(prog); err != nil {
		return err
	}
	if err := pl.RunDevirtual(prog); err != nil {
		return err
	}

	fmt.Println("asmcmp:")
	for _, inst := range prog.Instrs {
		fmt.Printf("  %+v\n", inst)
	}
	return nil
}
