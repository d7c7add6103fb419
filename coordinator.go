package retropal

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log"
	"runtime/debug"
	"time"
)

// Failure carries what went wrong with a conversion, including a captured
// stack when the engine panicked.
type Failure struct {
	Message string
	Stack   []byte
}

// Outcome is the terminal report for one submitted request.
type Outcome struct {
	ID      string
	Key     uint64
	Result  *Result
	Failure *Failure
}

type submission struct {
	id  string
	key uint64
	req Request
}

type completion struct {
	key uint64
}

// Coordinator serializes engine runs: at most one conversion in flight, at
// most one waiting. A request arriving mid-run supersedes whatever was
// waiting, so a burst of edits converges on the newest one. Started runs
// are never aborted; a superseded run still finishes and reports.
//
// Consumers must drain Outcomes until it is closed.
type Coordinator struct {
	engine   *Engine
	logger   *log.Logger
	debounce time.Duration

	submissions chan submission
	outcomes    chan Outcome
	quit        chan struct{}
	done        chan struct{}
}

func NewCoordinator(engine *Engine, debounce time.Duration, logger *log.Logger) *Coordinator {
	c := &Coordinator{
		engine:      engine,
		logger:      logger,
		debounce:    debounce,
		submissions: make(chan submission),
		outcomes:    make(chan Outcome),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go c.loop()
	return c
}

// Outcomes delivers one Outcome per run, in completion order.
func (c *Coordinator) Outcomes() <-chan Outcome {
	return c.outcomes
}

// Submit schedules a conversion of the identified source and returns its
// key. A key equal to the one that just completed is a no-op unless the
// request forces a recompute.
func (c *Coordinator) Submit(id string, req Request) uint64 {
	key := c.key(id, req)
	c.submissions <- submission{id: id, key: key, req: req}
	return key
}

// Close waits for any in-flight run to report, then closes Outcomes.
func (c *Coordinator) Close() {
	close(c.quit)
	<-c.done
}

func (c *Coordinator) key(id string, req Request) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	h.Write([]byte{0})
	h.Write([]byte(req.Profile.Name))

	var scratch [8]byte
	word := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		h.Write(scratch[:])
	}
	word(ProfileVersion)
	word(uint64(req.TargetWidth))
	word(uint64(req.TargetHeight))
	word(uint64(req.Scale))
	if req.Force {
		word(1)
	}
	for _, p := range req.SourcePalette {
		h.Write([]byte{p.R, p.G, p.B})
	}
	h.Write([]byte(c.engine.Config().String()))

	return h.Sum64()
}

func (c *Coordinator) loop() {
	defer close(c.done)

	completions := make(chan completion)

	var (
		running  bool
		pending  *submission
		lastKey  uint64
		haveLast bool
		timer    *time.Timer
		timerC   <-chan time.Time
	)

	start := func(s submission) {
		running = true
		go c.run(s, completions)
	}

	for {
		select {
		case s := <-c.submissions:
			if running {
				pending = &s
				continue
			}
			// A newer request supersedes anything still waiting out its
			// debounce.
			pending = nil
			if haveLast && s.key == lastKey {
				continue
			}
			start(s)

		case done := <-completions:
			running = false
			lastKey, haveLast = done.key, true
			if pending == nil {
				continue
			}
			if pending.key == done.key {
				pending = nil
				continue
			}
			timer = time.NewTimer(c.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if pending == nil || running {
				continue
			}
			s := *pending
			pending = nil
			if haveLast && s.key == lastKey {
				continue
			}
			start(s)

		case <-c.quit:
			if timer != nil {
				timer.Stop()
			}
			if running {
				<-completions
			}
			close(c.outcomes)
			return
		}
	}
}

// run executes one conversion off the loop goroutine. A panicking engine
// is reported as a Failure rather than taking the process down.
func (c *Coordinator) run(s submission, completions chan<- completion) {
	out := Outcome{ID: s.id, Key: s.key}

	func() {
		defer func() {
			if r := recover(); r != nil {
				out.Result = nil
				out.Failure = &Failure{
					Message: fmt.Sprint(r),
					Stack:   debug.Stack(),
				}
			}
		}()

		res, err := c.engine.Process(s.req)
		if err != nil {
			out.Failure = &Failure{Message: err.Error()}
			return
		}
		out.Result = res
	}()

	if out.Failure != nil {
		c.logger.Printf("Conversion of \"%s\" failed: %s\n", s.id, out.Failure.Message)
	}

	c.outcomes <- out
	completions <- completion{key: s.key}
}
