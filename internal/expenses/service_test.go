package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/shared"
)

type memoryRepo struct {
	register    *cashregister.Register
	expenses    map[string]Expense
	ingredients map[string]inventory.Ingredient
	movements   []inventory.Movement
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		expenses:    make(map[string]Expense),
		ingredients: make(map[string]inventory.Ingredient),
	}
}

func (m *memoryRepo) openRegister(opening float64) {
	m.register = &cashregister.Register{ID: "reg-1", OpeningBalance: opening, ExpectedBalance: opening, Status: cashregister.StatusOpen}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var reg *cashregister.Register
	if m.register != nil {
		copied := *m.register
		reg = &copied
	}
	exps := make(map[string]Expense, len(m.expenses))
	for k, v := range m.expenses {
		exps[k] = v
	}
	ings := make(map[string]inventory.Ingredient, len(m.ingredients))
	for k, v := range m.ingredients {
		ings[k] = v
	}
	moves := append([]inventory.Movement(nil), m.movements...)
	if err := fn(ctx, m); err != nil {
		m.register, m.expenses, m.ingredients, m.movements = reg, exps, ings, moves
		return err
	}
	return nil
}

func (m *memoryRepo) OpenRegisterForUpdate(context.Context) (cashregister.Register, error) {
	if m.register == nil || m.register.Status != cashregister.StatusOpen {
		return cashregister.Register{}, cashregister.ErrNoOpenRegister
	}
	return *m.register, nil
}

func (m *memoryRepo) AddExpense(_ context.Context, _ string, amount float64) (cashregister.Register, error) {
	m.register.TotalExpenses += amount
	m.register.ExpectedBalance = m.register.Expected()
	return *m.register, nil
}

func (m *memoryRepo) InsertExpense(_ context.Context, e Expense) error {
	m.expenses[e.ID] = e
	return nil
}

func (m *memoryRepo) GetExpense(_ context.Context, id string) (Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return Expense{}, ErrExpenseNotFound
	}
	return e, nil
}

func (m *memoryRepo) ListExpenses(_ context.Context, from, to time.Time) ([]Expense, error) {
	var out []Expense
	for _, e := range m.expenses {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetIngredient(_ context.Context, id string) (inventory.Ingredient, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return inventory.Ingredient{}, inventory.ErrIngredientNotFound
	}
	return ing, nil
}

func (m *memoryRepo) ListRecipe(context.Context, string) ([]inventory.RecipeLine, error) {
	return nil, nil
}

func (m *memoryRepo) ApplyStockDelta(_ context.Context, id string, delta float64, at time.Time) (inventory.Ingredient, bool, error) {
	ing, ok := m.ingredients[id]
	if !ok {
		return inventory.Ingredient{}, false, inventory.ErrIngredientNotFound
	}
	if ing.Stock+delta < 0 {
		return ing, false, nil
	}
	ing.Stock += delta
	ing.UpdatedAt = at
	m.ingredients[id] = ing
	return ing, true, nil
}

func (m *memoryRepo) InsertMovement(_ context.Context, mv inventory.Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

func TestCreateRequiresOpenRegister(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateExpenseInput{Description: "gas", Amount: 30, Category: CategoryUtilities})
	require.ErrorIs(t, err, cashregister.ErrNoOpenRegister)
	require.Empty(t, repo.expenses)
}

func TestCreateValidates(t *testing.T) {
	repo := newMemoryRepo()
	repo.openRegister(100)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateExpenseInput{Description: " ", Amount: 30, Category: CategoryRent})
	require.ErrorIs(t, err, ErrInvalidExpense)
	_, err = svc.Create(ctx, CreateExpenseInput{Description: "renta", Amount: 0, Category: CategoryRent})
	require.ErrorIs(t, err, ErrInvalidExpense)
	_, err = svc.Create(ctx, CreateExpenseInput{Description: "renta", Amount: 10, Category: "PARTY"})
	require.ErrorIs(t, err, ErrInvalidExpense)
}

func TestCreateBooksAgainstRegister(t *testing.T) {
	repo := newMemoryRepo()
	repo.openRegister(100)
	svc := NewService(repo, nil)
	ctx := shared.ContextWithActor(context.Background(), "cajero")

	exp, err := svc.Create(ctx, CreateExpenseInput{Description: "luz", Amount: 45, Category: CategoryUtilities})
	require.NoError(t, err)
	require.Equal(t, "reg-1", exp.CashRegisterID)
	require.Equal(t, "cajero", exp.UserID)
	require.InDelta(t, 45, repo.register.TotalExpenses, 0.0001)
	require.InDelta(t, 55, repo.register.ExpectedBalance, 0.0001)
}

func TestCreateWithRestockPostsMovement(t *testing.T) {
	repo := newMemoryRepo()
	repo.openRegister(0)
	repo.ingredients["pan"] = inventory.Ingredient{ID: "pan", Name: "Pan", Stock: 2}
	svc := NewService(repo, nil)

	exp, err := svc.Create(context.Background(), CreateExpenseInput{
		Description: "compra pan", Amount: 20, Category: CategorySupplies,
		Restock: &RestockLine{IngredientID: "pan", Quantity: 10},
	})
	require.NoError(t, err)
	require.InDelta(t, 12, repo.ingredients["pan"].Stock, 0.0001)
	require.Len(t, repo.movements, 1)
	require.Equal(t, inventory.MovementIn, repo.movements[0].Type)
	require.Equal(t, exp.ID, repo.movements[0].RelatedExpenseID)
}

func TestCreateRestockUnknownIngredientRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.openRegister(0)
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateExpenseInput{
		Description: "compra", Amount: 20, Category: CategorySupplies,
		Restock: &RestockLine{IngredientID: "nope", Quantity: 1},
	})
	require.ErrorIs(t, err, inventory.ErrIngredientNotFound)
	require.Empty(t, repo.expenses)
	require.Zero(t, repo.register.TotalExpenses)
}
