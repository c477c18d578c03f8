package audit

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yitter/idgenerator-go/idgen"

	"reconaudit/backend/constant/status"
	"reconaudit/backend/database/repository"
	"reconaudit/backend/pipeline"
)

type runtimeState struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs independent pipelines on a bounded worker pool.
type Manager struct {
	pipeline *pipeline.Pipeline
	history  repository.AuditRunRepository
	logger   logrus.FieldLogger
	pool     *ants.PoolWithFunc

	mu       sync.RWMutex
	tasks    map[int64]*Task
	runtimes map[int64]*runtimeState
}

// NewManager creates a manager running at most concurrency pipelines at once.
// history may be nil, in which case finished runs are kept in memory only.
func NewManager(p *pipeline.Pipeline, history repository.AuditRunRepository, concurrency int, logger logrus.FieldLogger) (*Manager, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	m := &Manager{
		pipeline: p,
		history:  history,
		logger:   logger,
		tasks:    make(map[int64]*Task),
		runtimes: make(map[int64]*runtimeState),
	}
	pool, err := ants.NewPoolWithFunc(concurrency, func(item interface{}) {
		m.execute(item.(int64))
	}, ants.WithPanicHandler(func(r interface{}) {
		m.logger.Errorf("panic in audit worker: %v\n%s", r, string(debug.Stack()))
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create audit pool")
	}
	m.pool = pool
	return m, nil
}

// StartTask queues a run of description. It blocks while every worker is busy.
func (m *Manager) StartTask(description string) (task *Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("panic in audit StartTask: %v\n%s", r, string(debug.Stack()))
			err = errors.New("audit start task panic")
		}
	}()

	target, err := pipeline.ExtractTarget(description)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	taskID := idgen.NextId()
	task = &Task{
		ID:          taskID,
		Description: description,
		Target:      target,
		Status:      status.Waiting,
		CreatedAt:   time.Now(),
	}
	rt := &runtimeState{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.tasks[taskID] = task
	m.runtimes[taskID] = rt
	snapshot := cloneTask(task)
	m.mu.Unlock()

	if err := m.pool.Invoke(taskID); err != nil {
		cancel()
		m.finish(taskID, rt, nil, errors.Wrap(err, "submit audit task"))
		return nil, err
	}
	return snapshot, nil
}

func (m *Manager) execute(taskID int64) {
	m.mu.Lock()
	task, ok := m.tasks[taskID]
	rt := m.runtimes[taskID]
	if !ok || rt == nil {
		m.mu.Unlock()
		return
	}
	task.Status = status.Running
	task.StartedAt = time.Now()
	description := task.Description
	m.mu.Unlock()

	if rt.ctx.Err() != nil {
		m.finish(taskID, rt, nil, rt.ctx.Err())
		return
	}

	logger := m.logger.WithField("run", taskID)
	st, err := m.pipeline.RunWithLogger(rt.ctx, description, logger)
	m.finish(taskID, rt, st, err)
}

func (m *Manager) finish(taskID int64, rt *runtimeState, st *pipeline.State, runErr error) {
	defer close(rt.done)
	defer rt.cancel()

	m.mu.Lock()
	task := m.tasks[taskID]
	delete(m.runtimes, taskID)
	task.CompletedAt = time.Now()
	task.State = st
	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		task.Status = status.Stopped
		task.Error = runErr.Error()
	case runErr != nil:
		task.Status = status.Error
		task.Error = runErr.Error()
	case rt.ctx.Err() != nil:
		task.Status = status.Stopped
	default:
		task.Status = status.OK
	}
	snapshot := cloneTask(task)
	m.mu.Unlock()

	m.logger.WithField("run", taskID).
		WithField("status", status.Name(snapshot.Status)).
		Info("audit task finished")

	if m.history == nil || snapshot.State == nil {
		return
	}
	record, err := NewRecord(snapshot)
	if err != nil {
		m.logger.WithError(err).Warn("encode audit history failed")
		return
	}
	if err := m.history.Create(record); err != nil {
		m.logger.WithError(err).Warn("save audit history failed")
	}
}

// Wait blocks until the task finished or ctx is done.
func (m *Manager) Wait(ctx context.Context, taskID int64) (*Task, error) {
	m.mu.RLock()
	rt, running := m.runtimes[taskID]
	_, known := m.tasks[taskID]
	m.mu.RUnlock()
	if !known {
		return nil, errors.New("task not found")
	}
	if running {
		select {
		case <-rt.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.GetTask(taskID)
}

func (m *Manager) StopTask(taskID int64) error {
	m.mu.RLock()
	rt, ok := m.runtimes[taskID]
	m.mu.RUnlock()
	if !ok {
		return errors.New("task not running or does not exist")
	}
	rt.cancel()
	return nil
}

func (m *Manager) GetTask(taskID int64) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, errors.New("task not found")
	}
	return cloneTask(task), nil
}

func (m *Manager) ListTasks() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		list = append(list, cloneTask(task))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Release cancels outstanding runs and frees the pool.
func (m *Manager) Release() {
	m.mu.RLock()
	for _, rt := range m.runtimes {
		rt.cancel()
	}
	m.mu.RUnlock()
	m.pool.Release()
}

func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.State != nil {
		st := t.State.Clone()
		cp.State = &st
	}
	return &cp
}
