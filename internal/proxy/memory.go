package proxy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yegors/narsim-bridge/internal/flights"
)

// ErrObjectNotFound is returned for ids the memory client never issued or
// already removed
var ErrObjectNotFound = errors.New("proxy: object not found")

// Object is one simulated aircraft held by the memory client
type Object struct {
	ID    flights.ProxyID `json:"id"`
	Model string          `json:"model"`
	Pose  Pose            `json:"pose"`
}

// Memory is an in-process Client. Ids are issued sequentially from 1 and
// never reused.
type Memory struct {
	mu      sync.Mutex
	nextID  flights.ProxyID
	objects map[flights.ProxyID]*Object
}

// NewMemory creates an empty memory client
func NewMemory() *Memory {
	return &Memory{objects: make(map[flights.ProxyID]*Object)}
}

// Create implements Client
func (m *Memory) Create(ctx context.Context, pose Pose, model string) (flights.ProxyID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.objects[m.nextID] = &Object{ID: m.nextID, Model: model, Pose: pose}
	return m.nextID, nil
}

// SetPose implements Client
func (m *Memory) SetPose(ctx context.Context, id flights.ProxyID, pose Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrObjectNotFound, id)
	}
	obj.Pose = pose
	return nil
}

// Remove implements Client
func (m *Memory) Remove(ctx context.Context, id flights.ProxyID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[id]; !ok {
		return fmt.Errorf("%w: %d", ErrObjectNotFound, id)
	}
	delete(m.objects, id)
	return nil
}

// Get returns a copy of one object
func (m *Memory) Get(id flights.ProxyID) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[id]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// Objects returns copies of all live objects ordered by id
func (m *Memory) Objects() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Object, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, *obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
