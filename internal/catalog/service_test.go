package catalog

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products map[string]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[string]Product)}
}

func (r *memoryRepo) GetProduct(_ context.Context, id string) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListProducts(context.Context) ([]Product, error) {
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) InsertProduct(_ context.Context, p Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepo) UpdateProduct(_ context.Context, p Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	r.products[p.ID] = p
	return nil
}

func TestCreateProductValidates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{Name: "  ", Price: 10})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Create(ctx, CreateProductInput{Name: "Hamburguesa", Price: 0})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Create(ctx, CreateProductInput{Name: "Hamburguesa", Price: 10, Cost: -1})
	require.ErrorIs(t, err, ErrInvalidProduct)

	p, err := svc.Create(ctx, CreateProductInput{Name: " Hamburguesa ", Price: 10, Cost: 4})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "Hamburguesa", p.Name)
	require.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestUpdateProductAppliesPartialChanges(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateProductInput{Name: "Papas", Price: 5, Cost: 1})
	require.NoError(t, err)

	price := 6.5
	updated, err := svc.Update(ctx, p.ID, UpdateProductInput{Price: &price})
	require.NoError(t, err)
	require.InDelta(t, 6.5, updated.Price, 0.0001)
	require.Equal(t, "Papas", updated.Name)

	zero := 0.0
	_, err = svc.Update(ctx, p.ID, UpdateProductInput{Price: &zero})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Update(ctx, "missing", UpdateProductInput{Price: &price})
	require.ErrorIs(t, err, ErrProductNotFound)
}
