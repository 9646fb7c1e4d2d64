package report

import "sync"

type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps every reported line in memory.
type Recorder struct {
	lock    sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Log(msg string)     { r.add(LevelLog, msg) }
func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }
func (r *Recorder) Warn(msg string)    { r.add(LevelWarn, msg) }
func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(lvl Level, msg string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries = append(r.entries, Entry{Level: lvl, Message: msg})
}

// Entries returns a copy of the recorded lines in arrival order.
func (r *Recorder) Entries() []Entry {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the recorded messages of one level.
func (r *Recorder) Messages(lvl Level) []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Level == lvl {
			out = append(out, e.Message)
		}
	}
	return out
}

func (r *Recorder) Count(lvl Level) int {
	return len(r.Messages(lvl))
}
