package report_test

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/cmsdeploy/uploader/internal/report"
	"github.com/fatih/color"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type panickingSink struct{}

func (panickingSink) Log(string)     { panic("log") }
func (panickingSink) Info(string)    { panic("info") }
func (panickingSink) Warn(string)    { panic("warn") }
func (panickingSink) Success(string) { panic("success") }
func (panickingSink) Error(string)   { panic("error") }

var _ = Describe("sinks", func() {
	Context("recorder", func() {
		It("records every level in order", func() {
			r := report.NewRecorder()
			r.Log("a")
			r.Info("b")
			r.Warn("c")
			r.Success("d")
			r.Error("e")

			Expect(r.Entries()).To(Equal([]report.Entry{
				{Level: report.LevelLog, Message: "a"},
				{Level: report.LevelInfo, Message: "b"},
				{Level: report.LevelWarn, Message: "c"},
				{Level: report.LevelSuccess, Message: "d"},
				{Level: report.LevelError, Message: "e"},
			}))
			Expect(r.Count(report.LevelWarn)).To(Equal(1))
		})

		It("is safe for concurrent use", func() {
			r := report.NewRecorder()
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					r.Info(fmt.Sprintf("msg %d", i))
				}(i)
			}
			wg.Wait()
			Expect(r.Count(report.LevelInfo)).To(Equal(50))
		})
	})

	Context("safe", func() {
		It("swallows panics from the wrapped sink", func() {
			s := report.Safe(panickingSink{})
			Expect(func() {
				s.Log("x")
				s.Info("x")
				s.Warn("x")
				s.Success("x")
				s.Error("x")
			}).NotTo(Panic())
		})

		It("returns a discarding sink for nil", func() {
			Expect(func() { report.Safe(nil).Error("x") }).NotTo(Panic())
		})
	})

	Context("zap", func() {
		It("maps levels onto the logger", func() {
			core, logs := observer.New(zapcore.DebugLevel)
			s := report.NewZapSink(zap.New(core).Sugar())

			s.Success("uploaded")
			s.Warn("careful")
			s.Error("broken")

			entries := logs.All()
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Level).To(Equal(zapcore.InfoLevel))
			Expect(entries[0].ContextMap()).To(HaveKeyWithValue("level", "success"))
			Expect(entries[1].Level).To(Equal(zapcore.WarnLevel))
			Expect(entries[2].Level).To(Equal(zapcore.ErrorLevel))
			Expect(entries[2].Message).To(Equal("broken"))
		})
	})

	Context("console", func() {
		It("prefixes leveled lines", func() {
			color.NoColor = true
			buf := &bytes.Buffer{}
			s := report.NewConsoleSink(buf)

			s.Log("plain")
			s.Error("bad")
			s.Success("good")

			Expect(buf.String()).To(Equal("plain\n[ERROR] bad\n[SUCCESS] good\n"))
		})
	})
})
