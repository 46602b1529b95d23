package hierarchy

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	units  map[int64]Unit
}

func newMemRepo() *memRepo {
	return &memRepo{units: make(map[int64]Unit)}
}

func (m *memRepo) Get(_ context.Context, id int64) (Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return Unit{}, ErrUnitNotFound
	}
	return u, nil
}

func (m *memRepo) List(_ context.Context, filter ListFilter) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Unit
	for _, u := range m.units {
		if filter.Level != "" && u.Level != filter.Level {
			continue
		}
		if filter.ParentID > 0 && u.ParentID != filter.ParentID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Create(_ context.Context, unit Unit) (Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.units {
		if u.Level == unit.Level && u.Code == unit.Code {
			return Unit{}, ErrDuplicateCode
		}
	}
	m.nextID++
	unit.ID = m.nextID
	switch unit.Level {
	case LevelState:
		unit.StateID = unit.ID
	case LevelRegion:
		unit.RegionID = unit.ID
	case LevelDistrict:
		unit.DistrictID = unit.ID
	case LevelGroup:
		unit.GroupID = unit.ID
	}
	unit.CreatedAt = time.Now()
	unit.UpdatedAt = unit.CreatedAt
	m.units[unit.ID] = unit
	return unit, nil
}

func (m *memRepo) Update(_ context.Context, id int64, in UpdateInput) (Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return Unit{}, ErrUnitNotFound
	}
	for _, other := range m.units {
		if other.ID != id && other.Level == u.Level && other.Code == in.Code {
			return Unit{}, ErrDuplicateCode
		}
	}
	u.Code, u.Name = in.Code, in.Name
	m.units[id] = u
	return u, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[id]; !ok {
		return ErrUnitNotFound
	}
	delete(m.units, id)
	return nil
}

func (m *memRepo) CountChildren(_ context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.units {
		if u.ParentID == id {
			n++
		}
	}
	return n, nil
}
