package fields

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

var exportDefault = regexp.MustCompile(`(?m)^(\s*)export\s+default\s+`)

type scriptLoader struct{}

// NewScriptLoader loads JavaScript definition units in an embedded interpreter.
// Units are CommonJS modules; a leading "export default" is accepted as well.
// require resolves relative .js and .json files only.
func NewScriptLoader() Loader {
	return scriptLoader{}
}

func (scriptLoader) Load(path string) (Definition, error) {
	rt := newScriptRuntime()

	exports, err := rt.require(path)
	if err != nil {
		return nil, err
	}
	fn, err := rt.exportedFunction(exports)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return func(renderContext map[string]any) (Group, error) {
		rt.lock.Lock()
		defer rt.lock.Unlock()

		if renderContext == nil {
			renderContext = map[string]any{}
		}
		result, err := fn(goja.Undefined(), rt.vm.ToValue(renderContext))
		if err != nil {
			return nil, err
		}
		result, err = settle(result)
		if err != nil {
			return nil, err
		}
		return rt.toGroup(result)
	}, nil
}

// scriptRuntime is one interpreter plus its module cache. goja runtimes are not
// goroutine safe, every use goes through lock.
type scriptRuntime struct {
	lock    sync.Mutex
	vm      *goja.Runtime
	modules map[string]goja.Value
}

func newScriptRuntime() *scriptRuntime {
	return &scriptRuntime{
		vm:      goja.New(),
		modules: map[string]goja.Value{},
	}
}

func (rt *scriptRuntime) require(path string) (goja.Value, error) {
	if exports, ok := rt.modules[path]; ok {
		return exports, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		v, err := rt.parseJSON(string(src))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		rt.modules[path] = v
		return v, nil
	}

	module := rt.vm.NewObject()
	exports := rt.vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	// cached before running so require cycles see the partial exports
	rt.modules[path] = exports

	body := exportDefault.ReplaceAllString(string(src), "${1}module.exports = ")
	wrapped := "(function (exports, require, module, __filename, __dirname) {\n" + body + "\n})"
	wrapper, err := rt.vm.RunScript(path, wrapped)
	if err != nil {
		delete(rt.modules, path)
		return nil, err
	}
	call, ok := goja.AssertFunction(wrapper)
	if !ok {
		delete(rt.modules, path)
		return nil, fmt.Errorf("%s: unable to evaluate module", path)
	}

	dir := filepath.Dir(path)
	if _, err := call(goja.Undefined(),
		exports,
		rt.vm.ToValue(rt.requireFrom(dir)),
		module,
		rt.vm.ToValue(path),
		rt.vm.ToValue(dir),
	); err != nil {
		delete(rt.modules, path)
		return nil, err
	}

	result := module.Get("exports")
	rt.modules[path] = result
	return result, nil
}

func (rt *scriptRuntime) requireFrom(dir string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") && !filepath.IsAbs(spec) {
			panic(rt.vm.NewGoError(fmt.Errorf("cannot find module '%s'", spec)))
		}
		target := spec
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, spec)
		}
		resolved, err := resolveModuleFile(target)
		if err != nil {
			panic(rt.vm.NewGoError(err))
		}
		exports, err := rt.require(resolved)
		if err != nil {
			panic(rt.vm.NewGoError(err))
		}
		return exports
	}
}

func resolveModuleFile(target string) (string, error) {
	candidates := []string{
		target,
		target + ".js",
		target + ".json",
		filepath.Join(target, "index.js"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("cannot find module '%s'", target)
}

// exportedFunction accepts module.exports = fn and exports.default = fn.
func (rt *scriptRuntime) exportedFunction(exports goja.Value) (goja.Callable, error) {
	if fn, ok := goja.AssertFunction(exports); ok {
		return fn, nil
	}
	if obj, ok := exports.(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(obj.Get("default")); ok {
			return fn, nil
		}
	}
	return nil, errors.New("definition unit must export a function")
}

func (rt *scriptRuntime) parseJSON(src string) (goja.Value, error) {
	parse, ok := goja.AssertFunction(rt.vm.Get("JSON").ToObject(rt.vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse unavailable")
	}
	return parse(goja.Undefined(), rt.vm.ToValue(src))
}

// stringify uses the interpreter's own JSON.stringify so toJSON methods are honored
// and key order is kept.
func (rt *scriptRuntime) stringify(v goja.Value) (json.RawMessage, error) {
	stringify, ok := goja.AssertFunction(rt.vm.Get("JSON").ToObject(rt.vm).Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify unavailable")
	}
	out, err := stringify(goja.Undefined(), v)
	if err != nil {
		return nil, err
	}
	if out == nil || goja.IsUndefined(out) {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(out.String()), nil
}

func (rt *scriptRuntime) toGroup(v goja.Value) (Group, error) {
	group, ok, err := rt.toNode(v, map[*goja.Object]bool{})
	if err != nil {
		return nil, err
	}
	if g, isGroup := group.(Group); ok && isGroup {
		return g, nil
	}
	return nil, fmt.Errorf("definition must return an array, got %s", describe(v))
}

// toNode returns ok=true when v is an array.
func (rt *scriptRuntime) toNode(v goja.Value, path map[*goja.Object]bool) (Node, bool, error) {
	obj, isObj := v.(*goja.Object)
	if !isObj || obj.ClassName() != "Array" {
		return Entry{Value: scriptValue{rt: rt, v: v}}, false, nil
	}
	if path[obj] {
		return nil, true, errors.New("definition contains a cyclic array")
	}
	path[obj] = true
	defer delete(path, obj)

	length := obj.Get("length").ToInteger()
	group := make(Group, 0, length)
	for i := int64(0); i < length; i++ {
		n, _, err := rt.toNode(obj.Get(strconv.FormatInt(i, 10)), path)
		if err != nil {
			return nil, true, err
		}
		group = append(group, n)
	}
	return group, true, nil
}

func describe(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if t := v.ExportType(); t != nil {
		return t.String()
	}
	return v.String()
}

// settle unwraps an already settled promise; definitions may be async as long as
// they do not wait on real I/O.
func settle(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("definition rejected: %s", p.Result().String())
	default:
		return nil, errors.New("definition returned a promise that never settled")
	}
}

// scriptValue is an entry still living in the interpreter.
type scriptValue struct {
	rt *scriptRuntime
	v  goja.Value
}

func (s scriptValue) Serialize() (any, error) {
	s.rt.lock.Lock()
	defer s.rt.lock.Unlock()
	return s.rt.stringify(s.v)
}
