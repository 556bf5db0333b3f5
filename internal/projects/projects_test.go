package projects

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/lumoraenergy/lumora/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

type memRepo struct {
	items map[uuid.UUID]models.Project
	order []uuid.UUID
	limit int
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]models.Project)}
}

func (m *memRepo) Create(_ context.Context, p *models.Project) error {
	p.ID = uuid.New()
	m.items[p.ID] = *p
	m.order = append([]uuid.UUID{p.ID}, m.order...)
	return nil
}

func (m *memRepo) Update(_ context.Context, p *models.Project) error {
	if _, ok := m.items[p.ID]; !ok {
		return errMissing
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return errMissing
	}
	delete(m.items, id)
	return nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, errMissing
	}
	return &p, nil
}

func (m *memRepo) List(_ context.Context, limit, _ int) ([]models.Project, error) {
	m.limit = limit
	out := make([]models.Project, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) Count(context.Context) (int, error) {
	return len(m.items), nil
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		valid bool
	}{
		{"complete", Input{Title: "Villa", Location: "Pune", CapacityKW: 5}, true},
		{"missing title", Input{Location: "Pune", CapacityKW: 5}, false},
		{"blank location", Input{Title: "Villa", Location: "  ", CapacityKW: 5}, false},
		{"zero capacity", Input{Title: "Villa", Location: "Pune"}, false},
		{"negative capacity", Input{Title: "Villa", Location: "Pune", CapacityKW: -1}, false},
		{"NaN capacity", Input{Title: "Villa", Location: "Pune", CapacityKW: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestServiceCreateTrimsAndStores(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	blank := "  "
	p, err := svc.Create(context.Background(), Input{
		Title:       " Rooftop Villa ",
		Location:    "Chennai",
		CapacityKW:  5.5,
		ClientImage: &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rooftop Villa", p.Title)
	assert.Nil(t, p.ClientImage)

	n, _ := svc.Count(context.Background())
	assert.Equal(t, 1, n)
}

func TestServiceCreateRejectsInvalid(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), Input{Title: "No location", CapacityKW: 1})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Empty(t, repo.items)
}

func TestServiceUpdate(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), Input{Title: "Old", Location: "Delhi", CapacityKW: 2})
	require.NoError(t, err)

	img := "http://cdn/client.jpg"
	updated, err := svc.Update(context.Background(), created.ID, Input{Title: "New", Location: "Delhi", CapacityKW: 3, ClientImage: &img})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, 3.0, got.CapacityKW)
	require.NotNil(t, got.ClientImage)
	assert.Equal(t, img, *got.ClientImage)
}

func TestServiceUpdateMissingPropagatesError(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Update(context.Background(), uuid.New(), Input{Title: "X", Location: "Y", CapacityKW: 1})
	assert.ErrorIs(t, err, errMissing)
}

func TestServiceListNewestFirst(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	first, _ := svc.Create(context.Background(), Input{Title: "First", Location: "A", CapacityKW: 1})
	second, _ := svc.Create(context.Background(), Input{Title: "Second", Location: "B", CapacityKW: 1})

	list, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 200, repo.limit)
}

func TestServiceDelete(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	p, _ := svc.Create(context.Background(), Input{Title: "T", Location: "L", CapacityKW: 1})
	require.NoError(t, svc.Delete(context.Background(), p.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), p.ID), errMissing)
}
