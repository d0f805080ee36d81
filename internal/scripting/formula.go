package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// FormulaEvaluator evaluates integer rule formulas in a sandboxed VM.
// Variables are bound as Lua globals for the duration of one evaluation; the
// helpers max, min, floor and ceil are available unqualified.
//
// FormulaEvaluator is safe for concurrent use; evaluations are serialized.
type FormulaEvaluator struct {
	mu       sync.Mutex
	L        *lua.LState
	limit    int
	libDirs  []string
	compiled map[string]*lua.LFunction
	logger   *zap.Logger
}

// NewFormulaEvaluator creates an evaluator with a per-evaluation instruction limit.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: Returns a ready evaluator; the caller must call Close.
func NewFormulaEvaluator(instLimit int, logger *zap.Logger) *FormulaEvaluator {
	if logger == nil {
		panic("scripting: NewFormulaEvaluator precondition violated: nil logger")
	}
	e := &FormulaEvaluator{limit: instLimit, logger: logger}
	e.reset()
	return e
}

func (e *FormulaEvaluator) reset() {
	if e.L != nil {
		e.L.Close()
	}
	e.L = newBareState()
	registerHelpers(e.L)
	e.compiled = make(map[string]*lua.LFunction)
}

// registerHelpers binds the unqualified math helpers formulas rely on.
func registerHelpers(L *lua.LState) {
	m := L.GetGlobal("math").(*lua.LTable)
	for _, name := range []string{"max", "min", "floor", "ceil"} {
		L.SetGlobal(name, m.RawGetString(name))
	}
}

// LoadLibrary executes every *.lua file in dir in lexicographic order so the
// functions it defines are available to formulas. Libraries survive a VM reset.
//
// Precondition: dir must be a readable directory.
func (e *FormulaEvaluator) LoadLibrary(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loadDir(dir); err != nil {
		return err
	}
	e.libDirs = append(e.libDirs, dir)
	return nil
}

func (e *FormulaEvaluator) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading library dir %q: %w", dir, err)
	}
	var luaFiles []string
	for _, ent := range entries {
		if !ent.IsDir() && filepath.Ext(ent.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, ent.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		cancel := limitInstructions(e.L, e.limit)
		err := e.L.DoFile(path)
		e.L.RemoveContext()
		cancel()
		if err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	return nil
}

// Evaluate computes formula with vars bound as globals and returns the result
// rounded down. Integer literals are returned without entering the VM.
//
// Postcondition: returns an error wrapping the formula text when it fails to
// compile, raises, exceeds the instruction limit or yields a non-number.
func (e *FormulaEvaluator) Evaluate(formula string, vars resource.Vars) (int, error) {
	src := strings.TrimSpace(formula)
	if n, err := strconv.Atoi(src); err == nil {
		return n, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fn, err := e.compile(src)
	if err != nil {
		return 0, fmt.Errorf("scripting: formula %q: %w", formula, err)
	}

	for name, v := range vars {
		e.L.SetGlobal(name, lua.LNumber(v))
	}
	defer func() {
		for name := range vars {
			e.L.SetGlobal(name, lua.LNil)
		}
	}()

	cancel := limitInstructions(e.L, e.limit)
	err = e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true})
	e.L.RemoveContext()
	cancel()
	if err != nil {
		e.logger.Warn("scripting: formula failed",
			zap.String("formula", formula),
			zap.Error(err),
		)
		e.rebuild()
		return 0, fmt.Errorf("scripting: formula %q: %w", formula, err)
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)
	num, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("scripting: formula %q: result is %s, not a number", formula, ret.Type())
	}
	return int(math.Floor(float64(num))), nil
}

func (e *FormulaEvaluator) compile(src string) (*lua.LFunction, error) {
	if fn, ok := e.compiled[src]; ok {
		return fn, nil
	}
	fn, err := e.L.LoadString("return (" + src + ")")
	if err != nil {
		return nil, err
	}
	e.compiled[src] = fn
	return fn, nil
}

// rebuild rebuilds the VM after a failed call so a runaway formula cannot
// leave it in an aborted state.
func (e *FormulaEvaluator) rebuild() {
	e.reset()
	for _, dir := range e.libDirs {
		if err := e.loadDir(dir); err != nil {
			e.logger.Error("scripting: reloading library", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// Close releases the VM.
func (e *FormulaEvaluator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.L.Close()
}
