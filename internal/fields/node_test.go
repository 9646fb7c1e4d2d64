package fields_test

import (
	"errors"

	"github.com/cmsdeploy/uploader/internal/fields"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type upper string

func (u upper) Serialize() (any, error) {
	return map[string]string{"name": string(u) + "!"}, nil
}

type broken struct{}

func (broken) Serialize() (any, error) {
	return nil, errors.New("boom")
}

var _ = Describe("nodes", func() {
	Context("flatten", func() {
		It("flattens arbitrarily nested groups in order", func() {
			tree := fields.Group{
				fields.Entry{Value: 1},
				fields.Group{
					fields.Entry{Value: 2},
					fields.Group{fields.Group{fields.Entry{Value: 3}}},
				},
				fields.Group{},
				fields.Entry{Value: 4},
			}

			flat := fields.Flatten(tree)
			Expect(flat).To(Equal([]fields.Entry{{Value: 1}, {Value: 2}, {Value: 3}, {Value: 4}}))
		})

		It("builds the tree from decoded data", func() {
			node := fields.FromValue([]any{"a", []any{"b", []any{"c"}}})
			group, ok := node.(fields.Group)
			Expect(ok).To(BeTrue())
			Expect(fields.Flatten(group)).To(HaveLen(3))

			_, ok = fields.FromValue(map[string]any{}).(fields.Entry)
			Expect(ok).To(BeTrue())
		})
	})

	Context("serialize", func() {
		It("uses the entry's own serialization when present", func() {
			values, err := fields.Serialize([]fields.Entry{{Value: upper("x")}, {Value: "plain"}})
			Expect(err).To(BeNil())
			Expect(values).To(Equal([]any{map[string]string{"name": "x!"}, "plain"}))
		})

		It("fails on a failing entry", func() {
			_, err := fields.Serialize([]fields.Entry{{Value: broken{}}})
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})
	})

	Context("encode", func() {
		It("indents with two spaces", func() {
			data, err := fields.Encode([]any{map[string]int{"a": 1}})
			Expect(err).To(BeNil())
			Expect(string(data)).To(Equal("[\n  {\n    \"a\": 1\n  }\n]"))
		})

		It("encodes an empty list", func() {
			data, err := fields.Encode([]any{})
			Expect(err).To(BeNil())
			Expect(string(data)).To(Equal("[]"))
		})
	})
})
