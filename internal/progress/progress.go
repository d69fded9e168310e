package progress

import "go.uber.org/zap"

type BarProgressTracker interface {
	SetMessage(msg string)
	SetTotal(total int64)
	SetDone(n int)
	SetError(err error)
	MarkFinished()
}

type NoopBarProgressTracker struct{}

var _ BarProgressTracker = NoopBarProgressTracker{}

func (n NoopBarProgressTracker) SetMessage(msg string) {}
func (n NoopBarProgressTracker) SetTotal(total int64)  {}
func (n NoopBarProgressTracker) SetDone(n2 int)        {}
func (n NoopBarProgressTracker) SetError(err error)    {}
func (n NoopBarProgressTracker) MarkFinished()         {}

// LoggingBarTracker reports progress through a zap logger, one debug entry
// per tenth of the total. It is not thread-safe; use one per worker.
type LoggingBarTracker struct {
	log      *zap.SugaredLogger
	msg      string
	total    int64
	lastStep int64
	err      error
}

var _ BarProgressTracker = (*LoggingBarTracker)(nil)

func NewLoggingBarTracker(log *zap.SugaredLogger) *LoggingBarTracker {
	return &LoggingBarTracker{log: log}
}

func (t *LoggingBarTracker) SetMessage(msg string) {
	t.msg = msg
}

func (t *LoggingBarTracker) SetTotal(total int64) {
	t.total = total
	t.lastStep = 0
}

func (t *LoggingBarTracker) SetDone(n int) {
	if t.total <= 0 {
		return
	}
	step := int64(n) * 10 / t.total
	if step > t.lastStep {
		t.lastStep = step
		t.log.Debugw(t.msg, "done", n, "total", t.total)
	}
}

func (t *LoggingBarTracker) SetError(err error) {
	t.err = err
}

func (t *LoggingBarTracker) MarkFinished() {
	if t.err != nil {
		t.log.Errorw(t.msg+" failed", "error", t.err.Error())
		return
	}
	t.log.Infow(t.msg+" finished", "total", t.total)
}
