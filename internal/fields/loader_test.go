package fields_test

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/cmsdeploy/uploader/internal/fields"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeUnit(dir, name, content string) string {
	full := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(full), 0o755)).To(Succeed())
	Expect(os.WriteFile(full, []byte(content), 0o644)).To(Succeed())
	return full
}

// invoke loads, calls and serializes the unit at path.
func invoke(path string) ([]any, error) {
	def, err := fields.DefaultRegistry().Load(path)
	if err != nil {
		return nil, err
	}
	group, err := def(map[string]any{})
	if err != nil {
		return nil, err
	}
	return fields.Serialize(fields.Flatten(group))
}

func encode(path string) string {
	values, err := invoke(path)
	Expect(err).To(BeNil())
	data, err := fields.Encode(values)
	Expect(err).To(BeNil())
	return string(data)
}

var _ = Describe("script loader", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("calls a CommonJS export and flattens its result", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => [{a: 1}, [{b: 2}, {c: 3}]];`)
		Expect(encode(unit)).To(MatchJSON(`[{"a":1},{"b":2},{"c":3}]`))
	})

	It("passes an empty context", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = (ctx) => [{keys: Object.keys(ctx).length}];`)
		Expect(encode(unit)).To(MatchJSON(`[{"keys":0}]`))
	})

	It("accepts export default", func() {
		unit := writeUnit(dir, "fields.mjs", "export default function () {\n  return [{name: 'title'}];\n}\n")
		Expect(encode(unit)).To(MatchJSON(`[{"name":"title"}]`))
	})

	It("accepts exports.default", func() {
		unit := writeUnit(dir, "fields.cjs", `exports.default = () => [[[{deep: true}]]];`)
		Expect(encode(unit)).To(MatchJSON(`[{"deep":true}]`))
	})

	It("honors toJSON on entries", func() {
		unit := writeUnit(dir, "fields.js", `
class TextField {
  constructor(name) { this.name = name; }
  toJSON() { return {type: 'text', name: this.name}; }
}
module.exports = () => [new TextField('headline'), [new TextField('body')]];
`)
		Expect(encode(unit)).To(MatchJSON(`[{"type":"text","name":"headline"},{"type":"text","name":"body"}]`))
	})

	It("keeps key order", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => [{z: 1, a: 2}];`)
		Expect(encode(unit)).To(Equal("[\n  {\n    \"z\": 1,\n    \"a\": 2\n  }\n]"))
	})

	It("resolves relative requires", func() {
		writeUnit(dir, "partials/link.js", `module.exports = (name) => ({type: 'link', name});`)
		writeUnit(dir, "partials/defaults.json", `{"required": true}`)
		unit := writeUnit(dir, "fields.js", `
const link = require('./partials/link');
const defaults = require('./partials/defaults.json');
module.exports = () => [Object.assign(link('cta'), defaults)];
`)
		Expect(encode(unit)).To(MatchJSON(`[{"type":"link","name":"cta","required":true}]`))
	})

	It("unwraps settled promises", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => Promise.resolve([{a: 1}]);`)
		Expect(encode(unit)).To(MatchJSON(`[{"a":1}]`))
	})

	It("fails for package requires", func() {
		unit := writeUnit(dir, "fields.js", `const f = require('@hubspot/cms-components/fields'); module.exports = () => [];`)
		_, err := invoke(unit)
		Expect(err).To(MatchError(ContainSubstring("cannot find module '@hubspot/cms-components/fields'")))
	})

	It("fails when nothing callable is exported", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = [{a: 1}];`)
		_, err := invoke(unit)
		Expect(err).To(MatchError(ContainSubstring("must export a function")))
	})

	It("fails when the definition throws", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => { throw new Error('nope'); };`)
		_, err := invoke(unit)
		Expect(err).To(MatchError(ContainSubstring("nope")))
	})

	It("fails when the result is not an array", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => ({a: 1});`)
		_, err := invoke(unit)
		Expect(err).To(MatchError(ContainSubstring("must return an array")))
	})

	It("fails on cyclic arrays", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => { const a = [{x: 1}]; a.push(a); return a; };`)
		_, err := invoke(unit)
		Expect(err).To(MatchError(ContainSubstring("cyclic")))
	})

	It("fails on syntax errors", func() {
		unit := writeUnit(dir, "fields.js", `module.exports = () => [;`)
		_, err := invoke(unit)
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("document loader", func() {
	It("loads a YAML sequence", func() {
		unit := writeUnit(GinkgoT().TempDir(), "fields.yaml", "- name: a\n- - name: b\n  - name: c\n")
		Expect(encode(unit)).To(MatchJSON(`[{"name":"a"},{"name":"b"},{"name":"c"}]`))
	})

	It("rejects a mapping", func() {
		unit := writeUnit(GinkgoT().TempDir(), "fields.yaml", "name: a\n")
		_, err := invoke(unit)
		Expect(err).To(MatchError(ContainSubstring("must be a sequence")))
	})
})

var _ = Describe("registry", func() {
	It("fails for unknown extensions", func() {
		_, err := fields.NewRegistry().Load("fields.ts")
		Expect(errors.Is(err, fields.ErrNoLoader)).To(BeTrue())
	})

	It("dispatches to the registered loader", func() {
		called := ""
		r := fields.NewRegistry().Register(".TS", fields.LoaderFunc(func(path string) (fields.Definition, error) {
			called = path
			return func(map[string]any) (fields.Group, error) { return fields.Group{}, nil }, nil
		}))
		_, err := r.Load("dir/fields.ts")
		Expect(err).To(BeNil())
		Expect(called).To(Equal("dir/fields.ts"))
	})
})
