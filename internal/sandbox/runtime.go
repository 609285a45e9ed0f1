package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrTimeout reports that an evaluation exceeded its wall-clock budget.
var ErrTimeout = errors.New("execution timeout exceeded")

// Runtime wraps a goja VM with the extraction sandbox's capability
// restrictions. A runtime evaluates one function at a time.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console []LogEntry
}

// New creates a sandboxed runtime with dangerous globals removed and
// timers neutered.
func New(config Config) (*Runtime, error) {
	r := &Runtime{
		vm:     goja.New(),
		config: config,
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute validates code, evaluates it as a function applied to
// (api, url), and exports the return value. The evaluation is
// preempted at the invocation timeout via the engine interrupt.
func (r *Runtime) Execute(ctx context.Context, code string, inv *Invocation) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := Validate(code); err != nil {
		return nil, err
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = r.config.Timeout
	}

	start := time.Now()
	r.console = nil
	r.vm.ClearInterrupt()

	api, err := r.buildAPI(inv)
	if err != nil {
		return nil, fmt.Errorf("building sandbox api: %w", err)
	}

	// Watchdog: interrupt the VM on timeout or context cancellation.
	done := make(chan struct{})
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer close(done)

	fnVal, err := r.vm.RunString("(" + code + ")")
	if err != nil {
		return nil, r.mapError(err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, errors.New("code did not evaluate to a function")
	}

	val, err := fn(goja.Undefined(), api, r.vm.ToValue(inv.URL))
	if err != nil {
		return nil, r.mapError(err)
	}

	return &Result{
		Value:    exportValue(val),
		Console:  append([]LogEntry(nil), r.console...),
		Duration: time.Since(start),
	}, nil
}

// mapError normalizes goja errors: interrupts become ErrTimeout (or the
// cancellation cause), thrown values keep their message.
func (r *Runtime) mapError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		r.vm.ClearInterrupt()
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return ErrTimeout
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return fmt.Errorf("function threw: %s", exception.Value().String())
	}
	return err
}

// setupGlobals strips ambient authority from the VM.
func (r *Runtime) setupGlobals() error {
	r.vm.SetMaxCallStackSize(1024)

	for _, name := range []string{"require", "process", "module", "exports", "globalThis"} {
		r.vm.Set(name, goja.Undefined())
	}

	// Timers never schedule work.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		r.vm.Set(name, noop)
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error"} {
			console.Set(level, r.makeConsoleFunc(level))
		}
		r.vm.Set("console", console)
	}

	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		r.console = append(r.console, LogEntry{Level: level, Message: strings.Join(parts, " ")})
		return goja.Undefined()
	}
}

func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset discards all VM state. The next Execute starts from a fresh
// global scope, so nothing persists across invocations.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = goja.New()
	r.console = nil
	return r.setupGlobals()
}

// Close releases the VM.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
