package inventory

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/catalog"
)

type memoryRepo struct {
	ingredients map[string]Ingredient
	recipes     map[string][]RecipeLine
	movements   []Movement
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{ingredients: make(map[string]Ingredient), recipes: make(map[string][]RecipeLine)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[string]Ingredient, len(r.ingredients))
	for k, v := range r.ingredients {
		snapshot[k] = v
	}
	movements := len(r.movements)
	if err := fn(ctx, r); err != nil {
		r.ingredients = snapshot
		r.movements = r.movements[:movements]
		return err
	}
	return nil
}

func (r *memoryRepo) GetIngredient(_ context.Context, id string) (Ingredient, error) {
	ing, ok := r.ingredients[id]
	if !ok {
		return Ingredient{}, ErrIngredientNotFound
	}
	return ing, nil
}

func (r *memoryRepo) ListIngredients(context.Context) ([]Ingredient, error) {
	out := make([]Ingredient, 0, len(r.ingredients))
	for _, ing := range r.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) ListLowStock(ctx context.Context) ([]Ingredient, error) {
	all, _ := r.ListIngredients(ctx)
	var out []Ingredient
	for _, ing := range all {
		if ing.LowStock() {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r *memoryRepo) InsertIngredient(_ context.Context, ing Ingredient) error {
	r.ingredients[ing.ID] = ing
	return nil
}

func (r *memoryRepo) UpdateIngredientMeta(_ context.Context, ing Ingredient) error {
	current, ok := r.ingredients[ing.ID]
	if !ok {
		return ErrIngredientNotFound
	}
	ing.Stock = current.Stock
	r.ingredients[ing.ID] = ing
	return nil
}

func (r *memoryRepo) ApplyStockDelta(_ context.Context, id string, delta float64, at time.Time) (Ingredient, bool, error) {
	ing, ok := r.ingredients[id]
	if !ok || ing.Stock+delta < 0 {
		return Ingredient{}, false, nil
	}
	ing.Stock += delta
	ing.UpdatedAt = at
	r.ingredients[id] = ing
	return ing, true, nil
}

func (r *memoryRepo) ListRecipe(_ context.Context, productID string) ([]RecipeLine, error) {
	return r.recipes[productID], nil
}

func (r *memoryRepo) InsertRecipeLine(_ context.Context, l RecipeLine) error {
	for _, existing := range r.recipes[l.ProductID] {
		if existing.IngredientID == l.IngredientID {
			return ErrDuplicateRecipeLine
		}
	}
	r.recipes[l.ProductID] = append(r.recipes[l.ProductID], l)
	return nil
}

func (r *memoryRepo) DeleteRecipeLine(_ context.Context, productID, ingredientID string) error {
	lines := r.recipes[productID]
	for i, l := range lines {
		if l.IngredientID == ingredientID {
			r.recipes[productID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrRecipeLineNotFound
}

func (r *memoryRepo) InsertMovement(_ context.Context, m Movement) error {
	r.movements = append(r.movements, m)
	return nil
}

func (r *memoryRepo) ListMovements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if filter.IngredientID != "" && m.IngredientID != filter.IngredientID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type productSource map[string]catalog.Product

func (p productSource) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	product, ok := p[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return product, nil
}

func (p productSource) ListProducts(context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(p))
	for _, product := range p {
		out = append(out, product)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type recordingNotifier struct {
	events []LowStockEvent
	err    error
}

func (n *recordingNotifier) NotifyLowStock(_ context.Context, evt LowStockEvent) error {
	n.events = append(n.events, evt)
	return n.err
}

func seedBurger(repo *memoryRepo) productSource {
	repo.ingredients["bun"] = Ingredient{ID: "bun", Name: "Pan", Unit: "u", Stock: 10, MinStock: 2, Cost: 0.5}
	repo.ingredients["patty"] = Ingredient{ID: "patty", Name: "Carne", Unit: "u", Stock: 7, MinStock: 1, Cost: 2}
	repo.recipes["burger"] = []RecipeLine{
		{ID: "l1", ProductID: "burger", IngredientID: "bun", IngredientName: "Pan", Quantity: 1},
		{ID: "l2", ProductID: "burger", IngredientID: "patty", IngredientName: "Carne", Quantity: 2},
	}
	return productSource{
		"burger": {ID: "burger", Name: "Hamburguesa", Price: 10},
		"soda":   {ID: "soda", Name: "Refresco", Price: 2},
	}
}

func TestEvaluateProductWithoutRecipeIsUnlimited(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	eval := NewEvaluator(products, repo)

	result, err := eval.Evaluate(context.Background(), "soda")
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.True(t, result[0].Available)
	require.Equal(t, UnlimitedQuantity, result[0].MaxQuantity)
	require.Empty(t, result[0].MissingIngredients)
}

func TestEvaluateTakesMinimumCeilingAcrossRecipe(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	eval := NewEvaluator(products, repo)

	result, err := eval.Evaluate(context.Background(), "burger")
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.True(t, result[0].Available)
	require.Equal(t, 3, result[0].MaxQuantity)

	all, err := eval.Evaluate(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEvaluateClampsHugeStockRatios(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	repo.ingredients["bun"] = Ingredient{ID: "bun", Name: "Pan", Stock: 1e20}
	repo.ingredients["patty"] = Ingredient{ID: "patty", Name: "Carne", Stock: 1e20}
	eval := NewEvaluator(products, repo)

	result, err := eval.Evaluate(context.Background(), "burger")
	require.NoError(t, err)
	require.True(t, result[0].Available)
	require.Empty(t, result[0].MissingIngredients)
	require.Equal(t, math.MaxInt32, result[0].MaxQuantity)

	verdict, err := eval.CanPrepare(context.Background(), "burger", 1000)
	require.NoError(t, err)
	require.True(t, verdict.OK)
}

func TestEvaluateReportsMissingIngredients(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	repo.ingredients["patty"] = Ingredient{ID: "patty", Name: "Carne", Stock: 1}
	repo.recipes["burger"] = append(repo.recipes["burger"], RecipeLine{ID: "l3", ProductID: "burger", IngredientID: "cheese", IngredientName: "Queso", Quantity: 1})
	eval := NewEvaluator(products, repo)

	result, err := eval.Evaluate(context.Background(), "burger")
	require.NoError(t, err)
	require.False(t, result[0].Available)
	require.Equal(t, 0, result[0].MaxQuantity)
	require.Equal(t, []string{"Carne", "Queso"}, result[0].MissingIngredients)
}

func TestEvaluateUnknownProductIsEmpty(t *testing.T) {
	repo := newMemoryRepo()
	eval := NewEvaluator(seedBurger(repo), repo)

	result, err := eval.Evaluate(context.Background(), "nope")
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestCanPrepareReasons(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	eval := NewEvaluator(products, repo)
	ctx := context.Background()

	verdict, err := eval.CanPrepare(ctx, "burger", 3)
	require.NoError(t, err)
	require.True(t, verdict.OK)

	verdict, err = eval.CanPrepare(ctx, "burger", 4)
	require.NoError(t, err)
	require.False(t, verdict.OK)
	require.Equal(t, "only 3 units available", verdict.Reason)

	verdict, err = eval.CanPrepare(ctx, "missing", 1)
	require.NoError(t, err)
	require.Equal(t, "product not found", verdict.Reason)

	repo.ingredients["bun"] = Ingredient{ID: "bun", Name: "Pan", Stock: 0}
	verdict, err = eval.CanPrepare(ctx, "burger", 1)
	require.NoError(t, err)
	require.Equal(t, "missing ingredients: Pan", verdict.Reason)
}

func TestConsumeDecrementsAndRecordsMovements(t *testing.T) {
	repo := newMemoryRepo()
	seedBurger(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := Consume(ctx, repo, ConsumeRequest{SaleID: "s1", UserID: "u1", Lines: []ConsumeLine{{IngredientID: "patty", Quantity: 2}}})
		require.NoError(t, err)
	}
	require.InDelta(t, 1.0, repo.ingredients["patty"].Stock, 0.0001)
	require.Len(t, repo.movements, 3)
	for _, m := range repo.movements {
		require.Equal(t, MovementOut, m.Type)
		require.Equal(t, "s1", m.RelatedSaleID)
		require.Equal(t, ReasonSaleConsumption, m.Reason)
	}
	require.True(t, repo.movements[2].LowStock)
}

func TestConsumeRejectsInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seedBurger(repo)

	_, err := Consume(context.Background(), repo, ConsumeRequest{Lines: []ConsumeLine{{IngredientID: "patty", Quantity: 8}}})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, "Carne", stockErr.Ingredient)
	require.InDelta(t, 7.0, stockErr.Available, 0.0001)
	require.InDelta(t, 7.0, repo.ingredients["patty"].Stock, 0.0001)
	require.Empty(t, repo.movements)

	_, err = Consume(context.Background(), repo, ConsumeRequest{Lines: []ConsumeLine{{IngredientID: "ghost", Quantity: 1}}})
	require.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestConsumeIngredientsRollsBackPartialConsumption(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	svc := NewService(repo, products, nil, nil, nil)

	_, err := svc.ConsumeIngredients(context.Background(), ConsumeRequest{Lines: []ConsumeLine{
		{IngredientID: "bun", Quantity: 1},
		{IngredientID: "patty", Quantity: 100},
	}})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.InDelta(t, 10.0, repo.ingredients["bun"].Stock, 0.0001)
	require.Empty(t, repo.movements)
}

func TestAdjustGuardsNegativeStockAndNotifies(t *testing.T) {
	repo := newMemoryRepo()
	products := seedBurger(repo)
	notifier := &recordingNotifier{err: errors.New("queue down")}
	svc := NewService(repo, products, nil, notifier, nil)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustInput{IngredientID: "bun", Delta: -11, Reason: "merma"})
	require.ErrorIs(t, err, ErrNegativeStock)

	movement, err := svc.Adjust(ctx, AdjustInput{IngredientID: "bun", Delta: -9, Reason: "merma"})
	require.NoError(t, err)
	require.Equal(t, MovementAdjustment, movement.Type)
	require.InDelta(t, 1.0, movement.BalanceAfter, 0.0001)
	require.Len(t, notifier.events, 1)
	require.Equal(t, "bun", notifier.events[0].IngredientID)

	_, err = svc.Adjust(ctx, AdjustInput{IngredientID: "bun", Delta: 1})
	require.ErrorIs(t, err, ErrInvalidIngredient)
}

func TestRestockPostsInboundMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, seedBurger(repo), nil, nil, nil)

	movement, err := svc.Restock(context.Background(), RestockInput{IngredientID: "bun", Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, MovementIn, movement.Type)
	require.Equal(t, "restock", movement.Reason)
	require.InDelta(t, 15.0, repo.ingredients["bun"].Stock, 0.0001)

	_, err = svc.Restock(context.Background(), RestockInput{IngredientID: "bun", Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLinkIngredientDenormalizesName(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, seedBurger(repo), nil, nil, nil)
	ctx := context.Background()

	line, err := svc.LinkIngredient(ctx, LinkInput{ProductID: "soda", IngredientID: "bun", Quantity: 0.5})
	require.NoError(t, err)
	require.Equal(t, "Pan", line.IngredientName)
	require.Equal(t, "u", line.Unit)

	_, err = svc.LinkIngredient(ctx, LinkInput{ProductID: "soda", IngredientID: "bun", Quantity: 1})
	require.ErrorIs(t, err, ErrDuplicateRecipeLine)

	_, err = svc.LinkIngredient(ctx, LinkInput{ProductID: "ghost", IngredientID: "bun", Quantity: 1})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)

	require.NoError(t, svc.UnlinkIngredient(ctx, "soda", "bun"))
	require.ErrorIs(t, svc.UnlinkIngredient(ctx, "soda", "bun"), ErrRecipeLineNotFound)
}

func TestLowStockEventsKeepsLastMovementPerIngredient(t *testing.T) {
	events := LowStockEvents([]Movement{
		{IngredientID: "a", BalanceAfter: 3, LowStock: true},
		{IngredientID: "b", BalanceAfter: 9},
		{IngredientID: "a", BalanceAfter: 1, LowStock: true},
	})
	require.Len(t, events, 1)
	require.InDelta(t, 1.0, events[0].Stock, 0.0001)
}
