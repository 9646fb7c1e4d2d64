package fields_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmsdeploy/uploader/internal/fields"
	"github.com/cmsdeploy/uploader/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("transformer", func() {
	var (
		root     string
		recorder *report.Recorder
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		recorder = report.NewRecorder()
	})

	It("writes the flattened, indented artifact next to the unit", func() {
		unit := writeUnit(root, "modules/hero.module/fields.js", `module.exports = () => [{a:1},[{b:2},{c:3}]];`)

		res := fields.NewTransformer(recorder).Transform(unit, root)
		Expect(res.Err).To(BeNil())
		Expect(res.State).To(Equal(fields.StateWritten))
		Expect(res.Artifact).To(Equal(filepath.Join(root, "modules/hero.module/fields.json")))

		content, err := os.ReadFile(res.Artifact)
		Expect(err).To(BeNil())
		Expect(string(content)).To(Equal(strings.Join([]string{
			"[",
			"  {",
			`    "a": 1`,
			"  },",
			"  {",
			`    "b": 2`,
			"  },",
			"  {",
			`    "c": 3`,
			"  }",
			"]",
		}, "\n")))
		Expect(recorder.Messages(report.LevelInfo)).To(ConsistOf("Found a fields JS file: " + unit + "."))
		Expect(recorder.Count(report.LevelError)).To(BeZero())
	})

	It("writes to the scan root with the root layout", func() {
		unit := writeUnit(root, "theme/fields.js", `module.exports = () => [];`)

		res := fields.NewTransformer(recorder, fields.WithLayout(fields.LayoutRoot)).Transform(unit, root)
		Expect(res.State).To(Equal(fields.StateWritten))
		Expect(res.Artifact).To(Equal(filepath.Join(root, "fields.json")))
		Expect(res.Artifact).To(BeAnExistingFile())
	})

	It("overwrites the previous artifact on re-run", func() {
		unit := writeUnit(root, "fields.js", `module.exports = () => [{a: 1}, {b: 2}];`)
		t := fields.NewTransformer(recorder)
		Expect(t.Transform(unit, root).State).To(Equal(fields.StateWritten))

		writeUnit(root, "fields.js", `module.exports = () => [{c: 3}];`)
		res := t.Transform(unit, root)
		Expect(res.State).To(Equal(fields.StateWritten))

		content, err := os.ReadFile(res.Artifact)
		Expect(err).To(BeNil())
		Expect(content).To(MatchJSON(`[{"c":3}]`))
	})

	It("reports a load failure and stops at loading", func() {
		unit := writeUnit(root, "fields.js", `module.exports = 42;`)

		res := fields.NewTransformer(recorder).Transform(unit, root)
		Expect(res.State).To(Equal(fields.StateFailed))
		Expect(res.Err).To(MatchError(ContainSubstring("must export a function")))
		Expect(res.Artifact).NotTo(BeAnExistingFile())
		Expect(recorder.Messages(report.LevelError)).To(HaveLen(1))
		Expect(recorder.Messages(report.LevelError)[0]).To(HavePrefix("Failed to convert " + unit))
	})

	It("recovers from a panicking loader", func() {
		loader := fields.LoaderFunc(func(string) (fields.Definition, error) {
			return func(map[string]any) (fields.Group, error) { panic("kaboom") }, nil
		})
		unit := writeUnit(root, "fields.js", "")

		res := fields.NewTransformer(recorder, fields.WithLoader(loader)).Transform(unit, root)
		Expect(res.State).To(Equal(fields.StateFailed))
		Expect(res.Err).To(MatchError(ContainSubstring("panic during invoking: kaboom")))
	})

	It("refuses to overwrite its own source", func() {
		unit := writeUnit(root, "fields.json", `[]`)

		res := fields.NewTransformer(recorder).Transform(unit, root)
		Expect(res.State).To(Equal(fields.StateFailed))
		content, _ := os.ReadFile(unit)
		Expect(string(content)).To(Equal("[]"))
	})

	It("transforms a batch and isolates failures", func() {
		good := writeUnit(root, "a/fields.js", `module.exports = () => [{ok: true}];`)
		bad := writeUnit(root, "b/fields.js", `module.exports = () => { throw new Error('bad unit'); };`)

		results := fields.NewTransformer(recorder).TransformAll(context.TODO(), []string{good, bad}, root)
		Expect(results).To(HaveLen(2))
		Expect(results[0].State).To(Equal(fields.StateWritten))
		Expect(results[1].State).To(Equal(fields.StateFailed))
		Expect(results[1].Err).To(MatchError(ContainSubstring("bad unit")))
		Expect(recorder.Count(report.LevelError)).To(Equal(1))
	})

	It("warns and keeps the last unit when the root layout collides", func() {
		first := writeUnit(root, "a/fields.js", `module.exports = () => [{from: 'a'}];`)
		second := writeUnit(root, "b/fields.js", `module.exports = () => [{from: 'b'}];`)

		t := fields.NewTransformer(recorder, fields.WithLayout(fields.LayoutRoot))
		results := t.TransformAll(context.TODO(), []string{first, second}, root)
		Expect(results).To(HaveLen(2))
		Expect(results[0].State).To(Equal(fields.StateWritten))
		Expect(results[1].State).To(Equal(fields.StateWritten))
		Expect(results[0].Artifact).To(Equal(results[1].Artifact))

		content, err := os.ReadFile(filepath.Join(root, "fields.json"))
		Expect(err).To(BeNil())
		Expect(content).To(MatchJSON(`[{"from":"b"}]`))
		Expect(recorder.Messages(report.LevelWarn)).To(ConsistOf(ContainSubstring("keeping the output of " + second)))
	})

	Context("matcher", func() {
		It("matches reserved base names", func() {
			m := fields.ReservedNames(fields.DefaultDefinitionNames...)
			Expect(m("fields.js")).To(BeTrue())
			Expect(m("modules/hero.module/fields.js")).To(BeTrue())
			Expect(m("modules/hero.module/fields.mjs")).To(BeTrue())
			Expect(m("modules/hero.module/myfields.js")).To(BeFalse())
			Expect(m("fields.json")).To(BeFalse())
		})
	})
})
