// Package scheduler refreshes groups of predictors on a fixed cadence.
//
// Each refresh of a predictor issues all of its sub-fetches through the cache
// and renders once every one of them has delivered.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultStagger = 250 * time.Millisecond

var (
	ErrUnknownGroup    = errors.New("unknown refresh group")
	ErrDuplicateGroup  = errors.New("refresh group already registered")
	ErrInvalidInterval = errors.New("refresh interval must be at least one second")
)

// Executor runs closures on the event loop
type Executor interface {
	Post(fn func()) bool
	After(d time.Duration, fn func())
}

// SubFetch issues one cache lookup and passes its value to deliver.
// It is called on the event loop.
type SubFetch func(deliver func(any))

type Predictor interface {
	Name() string
	SubFetches() []SubFetch
	// Render receives the sub-fetch results in the order of SubFetches
	Render(results []any)
}

// Group is a set of predictors refreshed together
type Group struct {
	Name       string
	Interval   time.Duration
	Predictors []Predictor
}

type Scheduler struct {
	logger   *slog.Logger
	executor Executor
	stagger  time.Duration
	cron     *cron.Cron

	mu     sync.Mutex
	groups map[string]Group
	order  []string
}

func New(logger *slog.Logger, executor Executor, stagger time.Duration) *Scheduler {
	logger = logger.With("component", "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	return &Scheduler{
		logger:   logger,
		executor: executor,
		stagger:  stagger,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		groups: make(map[string]Group),
	}
}

type groupJob struct {
	scheduler *Scheduler
	group     Group
}

func (j *groupJob) Run() {
	j.scheduler.post(j.group)
}

func (s *Scheduler) AddGroup(group Group) error {
	if group.Interval < time.Second {
		return fmt.Errorf("%w: group %s has interval %s", ErrInvalidInterval, group.Name, group.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[group.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateGroup, group.Name)
	}

	spec := "@every " + group.Interval.String()
	if _, err := s.cron.AddJob(spec, &groupJob{scheduler: s, group: group}); err != nil {
		return fmt.Errorf("failed to schedule group %s with spec %s: %w", group.Name, spec, err)
	}
	s.groups[group.Name] = group
	s.order = append(s.order, group.Name)

	s.logger.Info("Refresh group added",
		"group", group.Name,
		"spec", spec,
		"predictors", len(group.Predictors),
	)
	return nil
}

// Every runs fn on the event loop once per interval, starting one interval
// after Start
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) error {
	if interval < time.Second {
		return fmt.Errorf("%w: task %s has interval %s", ErrInvalidInterval, name, interval)
	}

	spec := "@every " + interval.String()
	_, err := s.cron.AddFunc(spec, func() {
		if !s.executor.Post(fn) {
			s.logger.Warn("Dropped periodic task", "task", name)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule task %s with spec %s: %w", name, spec, err)
	}
	return nil
}

// Start refreshes every group once, then follows each group's interval
func (s *Scheduler) Start() {
	s.mu.Lock()
	groups := make([]Group, 0, len(s.order))
	for _, name := range s.order {
		groups = append(groups, s.groups[name])
	}
	s.mu.Unlock()

	for _, group := range groups {
		s.post(group)
	}
	s.cron.Start()
}

// Stop stops the schedule and waits for running jobs to complete
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RefreshNow refreshes the named group outside of its schedule
func (s *Scheduler) RefreshNow(name string) error {
	s.mu.Lock()
	group, ok := s.groups[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	s.post(group)
	return nil
}

func (s *Scheduler) post(group Group) {
	if !s.executor.Post(func() { s.runCycle(group) }) {
		s.logger.Warn("Dropped refresh cycle", "group", group.Name)
	}
}

// runCycle staggers the refresh of each predictor in the group
func (s *Scheduler) runCycle(group Group) {
	s.logger.Debug("Refreshing group", "group", group.Name)
	for i, predictor := range group.Predictors {
		s.executor.After(time.Duration(i)*s.stagger, func() {
			Refresh(predictor)
		})
	}
}

// Refresh issues every sub-fetch of predictor and renders once all have
// delivered. Must be called on the event loop.
func Refresh(predictor Predictor) {
	fetches := predictor.SubFetches()
	join := NewJoin(len(fetches), predictor.Render)
	for i, fetch := range fetches {
		fetch(func(value any) {
			join.Deliver(i, value)
		})
	}
}
