package engine

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/ncerr"
	"github.com/nwp-consumer/core/notify"
	"github.com/nwp-consumer/core/parameter"
	"github.com/nwp-consumer/core/raw"
	"github.com/nwp-consumer/core/repometa"
	"github.com/nwp-consumer/core/tensorstore"
)

// fakeJob is a raw.Job that hands back one pre-built fragment, or fails,
// optionally recording how many jobs were in flight at once.
type fakeJob struct {
	name    string
	frag    tensorstore.Fragment
	failErr error
	tracker *concurrencyTracker
}

func (j *fakeJob) String() string { return j.name }

func (j *fakeJob) Run(ctx context.Context) ([]tensorstore.Fragment, error) {
	if j.tracker != nil {
		j.tracker.enter()
		defer j.tracker.exit()
		time.Sleep(5 * time.Millisecond)
	}
	if j.failErr != nil {
		return nil, j.failErr
	}
	return []tensorstore.Fragment{j.frag}, nil
}

// concurrencyTracker records the maximum number of jobs observed in
// flight simultaneously.
type concurrencyTracker struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *concurrencyTracker) enter() {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()
}

func (c *concurrencyTracker) exit() {
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
}

func testModel() repometa.Model {
	return repometa.Model{
		Name:           "testmodel",
		RunningHours:   []int{0, 6, 12, 18},
		DelayMinutes:   60,
		MaxConnections: 4,
		ExpectedCoordinates: coords.Coords{
			Step:      []int{0, 1, 2},
			Variable:  []string{"temperature_sl", "downward_shortwave_radiation_flux_gl"},
			Latitude:  []float64{60.1, 60.0},
			Longitude: []float64{10.0, 10.1},
		},
	}
}

func fragmentFor(it time.Time, variable string, step int, model repometa.Model) tensorstore.Fragment {
	p, _ := parameter.Canonical(variable)
	return tensorstore.Fragment{
		Parameter: p,
		Coords: coords.Coords{
			InitTime:  []time.Time{it},
			Step:      []int{step},
			Variable:  []string{variable},
			Latitude:  model.ExpectedCoordinates.Latitude,
			Longitude: model.ExpectedCoordinates.Longitude,
		},
		Data: []float64{1, 2, 3, 4},
	}
}

// scriptedRepo drives a single Consume call with a fixed job list.
type scriptedRepo struct {
	model repometa.Model
	jobs  []*fakeJob
}

func (r *scriptedRepo) Metadata() repometa.Model           { return r.model }
func (r *scriptedRepo) Authenticate(context.Context) error { return nil }
func (r *scriptedRepo) FetchInitData(ctx context.Context, it time.Time) ([]raw.Job, error) {
	out := make([]raw.Job, len(r.jobs))
	for i, j := range r.jobs {
		out[i] = j
	}
	return out, nil
}

func allJobsFor(it time.Time, model repometa.Model, tracker *concurrencyTracker) []*fakeJob {
	var jobs []*fakeJob
	for _, v := range model.ExpectedCoordinates.Variable {
		for _, s := range model.ExpectedCoordinates.Step {
			jobs = append(jobs, &fakeJob{
				name:    v,
				frag:    fragmentFor(it, v, s, model),
				tracker: tracker,
			})
		}
	}
	return jobs
}

// perInitTimeRepo hands back one job per init-time, counting how many
// times each init-time was actually fetched.
type perInitTimeRepo struct {
	model repometa.Model
	mu    sync.Mutex
	seen  map[time.Time]int
	calls int32
}

func (r *perInitTimeRepo) Metadata() repometa.Model           { return r.model }
func (r *perInitTimeRepo) Authenticate(context.Context) error { return nil }

func (r *perInitTimeRepo) FetchInitData(ctx context.Context, it time.Time) ([]raw.Job, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.seen[it]++
	r.mu.Unlock()
	return []raw.Job{
		&fakeJob{name: "fragment", frag: fragmentFor(it, "temperature_sl", 0, r.model)},
	}, nil
}

func (r *perInitTimeRepo) totalCalls() int { return int(atomic.LoadInt32(&r.calls)) }

// recordingSink captures every message sent to it.
type recordingSink struct {
	messages []notify.Message
}

func (s *recordingSink) Notify(m notify.Message) error {
	s.messages = append(s.messages, m)
	return nil
}

var _ = Describe("Consume", func() {
	var storeRoot string
	var it time.Time

	BeforeEach(func() {
		var err error
		storeRoot, err = os.MkdirTemp("", "nwpc-engine-consume-")
		Expect(err).NotTo(HaveOccurred())
		it = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		os.RemoveAll(storeRoot)
	})

	It("writes every job's fragment and reports a populated store size", func() {
		model := testModel()
		repo := &scriptedRepo{model: model, jobs: allJobsFor(it, model, nil)}

		sink := &recordingSink{}
		path, err := Consume(context.Background(), repo, storeRoot, &it, sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(tensorstore.ConsumeStorePath(storeRoot, model.Name, it)))

		_, statErr := os.Stat(path)
		Expect(statErr).NotTo(HaveOccurred())

		Expect(sink.messages).To(HaveLen(1))
		Expect(sink.messages[0].Kind).To(Equal(notify.KindStoreCreated))
		Expect(sink.messages[0].SizeMB).To(BeNumerically(">", 0))
	})

	It("fails with PartialFailure and sends no notification when a job fails", func() {
		model := testModel()
		jobs := allJobsFor(it, model, nil)
		jobs[0].failErr = &ncerr.NetworkError{URL: "bad", Transient: false}
		repo := &scriptedRepo{model: model, jobs: jobs}

		sink := &recordingSink{}
		path, err := Consume(context.Background(), repo, storeRoot, &it, sink)

		Expect(err).To(HaveOccurred())
		pf, ok := err.(*ncerr.PartialFailure)
		Expect(ok).To(BeTrue())
		Expect(pf.Count).To(Equal(1))
		Expect(sink.messages).To(BeEmpty())

		_, statErr := os.Stat(path)
		Expect(statErr).NotTo(HaveOccurred())
	})

	It("bounds concurrency to max_connections-1 simultaneous jobs", func() {
		model := testModel()
		model.MaxConnections = 4
		tracker := &concurrencyTracker{}
		jobs := allJobsFor(it, model, tracker)
		repo := &scriptedRepo{model: model, jobs: jobs}

		_, err := Consume(context.Background(), repo, storeRoot, &it, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(tracker.peak).To(BeNumerically("<=", model.MaxConnections-1))
	})
})

var _ = Describe("Archive", func() {
	var storeRoot string

	BeforeEach(func() {
		var err error
		storeRoot, err = os.MkdirTemp("", "nwpc-engine-archive-")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(storeRoot)
	})

	It("resumes without re-fetching init-times that already have data", func() {
		model := testModel()
		model.RunningHours = []int{0, 12}

		repo := &perInitTimeRepo{model: model, seen: map[time.Time]int{}}

		path1, err := Archive(context.Background(), repo, storeRoot, 2021, 1, nil)
		Expect(err).NotTo(HaveOccurred())

		firstRunCalls := repo.totalCalls()
		Expect(firstRunCalls).To(BeNumerically(">", 0))

		path2, err := Archive(context.Background(), repo, storeRoot, 2021, 1, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(path2).To(Equal(path1))

		// every init-time already has a write on disk, so the resume set
		// is empty and no init-time is re-fetched on the second run.
		Expect(repo.totalCalls()).To(Equal(firstRunCalls))
	})
})
