// internal/browser/jsexec/runtime.go
package jsexec

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Runtime evaluates the inline configuration scripts pages ship with their
// widgets. Nothing is rendered: jQuery and the DOM globals are inert stubs
// that record every plugin call so callers can read back the arguments a
// page passed, such as the search URL given to .autocomplete().
type Runtime struct {
	vm        *goja.Runtime
	logger    *zap.Logger
	execMutex sync.Mutex
	calls     map[string][][]interface{}
}

// DefaultTimeout bounds a script when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// jqueryStub makes $ and jQuery chainable no-ops. Callbacks handed to the
// stub (document ready handlers and the like) are invoked right away.
const jqueryStub = `(function(global) {
	var chain;
	function invoke(args) {
		for (var i = 0; i < args.length; i++) {
			if (typeof args[i] === 'function') {
				try { args[i].call(chain, chain); } catch (e) {}
			}
		}
	}
	chain = new Proxy(function() {}, {
		get: function(target, prop) {
			if (typeof prop !== 'string') { return undefined; }
			return function() {
				var args = Array.prototype.slice.call(arguments);
				__record(prop, args);
				invoke(args);
				return chain;
			};
		},
		apply: function(target, self, args) {
			invoke(args);
			return chain;
		}
	});
	global.jQuery = chain;
	global.$ = chain;
	global.window = global;
	global.document = {};
})(this);`

// NewRuntime creates a runtime with the stubs installed.
func NewRuntime(logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		vm:     goja.New(),
		logger: logger.Named("jsexec"),
		calls:  make(map[string][][]interface{}),
	}
	if err := r.vm.Set("__record", r.record); err != nil {
		return nil, fmt.Errorf("failed to install recorder: %w", err)
	}
	if _, err := r.vm.RunString(jqueryStub); err != nil {
		return nil, fmt.Errorf("failed to install jquery stub: %w", err)
	}
	return r, nil
}

func (r *Runtime) record(method string, args []interface{}) {
	r.calls[method] = append(r.calls[method], args)
}

// Calls returns the argument lists of every recorded call of method.
func (r *Runtime) Calls(method string) [][]interface{} {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()
	return append([][]interface{}(nil), r.calls[method]...)
}

// FirstStringArg returns the first string argument passed to method.
func (r *Runtime) FirstStringArg(method string) (string, bool) {
	for _, args := range r.Calls(method) {
		if len(args) == 0 {
			continue
		}
		if s, ok := args[0].(string); ok {
			return s, true
		}
	}
	return "", false
}

// ExecuteScript runs a snippet, or calls it with args when it is a
// function wrapper. Execution stops when ctx is done.
func (r *Runtime) ExecuteScript(ctx context.Context, script string, args []interface{}) (interface{}, error) {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	stop := context.AfterFunc(ctx, func() { r.vm.Interrupt(ctx.Err()) })
	defer r.vm.ClearInterrupt()
	defer stop()

	var result goja.Value
	var err error
	if r.isFunctionWrapper(script) {
		result, err = r.executeFunctionWrapper(script, args)
	} else {
		if len(args) > 0 {
			r.logger.Debug("Arguments provided to ExecuteScript in snippet mode are ignored.")
		}
		result, err = r.vm.RunString(script)
	}

	if err != nil {
		if _, ok := err.(*goja.InterruptedError); ok {
			return nil, fmt.Errorf("javascript execution interrupted by context: %w", ctx.Err())
		}
		if jsErr, ok := err.(*goja.Exception); ok {
			return nil, fmt.Errorf("javascript exception: %s", jsErr.String())
		}
		return nil, fmt.Errorf("javascript error: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.Export(), nil
}

func (r *Runtime) isFunctionWrapper(script string) bool {
	s := strings.TrimSpace(script)
	if len(s) < 5 {
		return false
	}
	return strings.HasPrefix(s, "(function") || strings.HasPrefix(s, "function") || strings.HasPrefix(s, "(()=>")
}

func (r *Runtime) executeFunctionWrapper(script string, args []interface{}) (goja.Value, error) {
	prog, err := goja.Compile("", script, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile function wrapper script: %w", err)
	}
	val, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		// Self-invoking wrappers have already run.
		return val, nil
	}
	gojaArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		gojaArgs[i] = r.vm.ToValue(arg)
	}
	return fn(r.vm.GlobalObject(), gojaArgs...)
}
