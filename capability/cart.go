package capability

import (
	"context"
	"slices"

	"github.com/AmareGatie/phase4/state"
)

// Cart operations.
const (
	OpAddItem    = "addItem"
	OpRemoveItem = "removeItem"
)

// Item is one cart line. Duplicate ids may coexist.
type Item struct {
	ID   int    `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required,max=200"`
}

// CartProvider declares the cart container, an ordered list of items.
func CartProvider() state.Provider {
	return state.Provide(Cart, []Item{}, map[string]state.Reducer[[]Item]{
		OpAddItem: func(items []Item, args any) ([]Item, error) {
			item, err := argAs[Item](Cart, "item", args)
			if err != nil {
				return nil, err
			}
			return append(items, item), nil
		},
		OpRemoveItem: func(items []Item, args any) ([]Item, error) {
			id, err := argAs[int](Cart, "id", args)
			if err != nil {
				return nil, err
			}
			return slices.DeleteFunc(items, func(it Item) bool { return it.ID == id }), nil
		},
	}, state.WithClone(cloneItems))
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return slices.Clone(items)
}

// CartHandle is the typed view of the cart capability.
type CartHandle struct {
	*state.Handle[[]Item]
}

// UseCart returns the cart handle of scope.
func UseCart(scope *state.Scope) (CartHandle, error) {
	h, err := state.Use[[]Item](scope, Cart)
	return CartHandle{h}, err
}

// Add appends item.
func (c CartHandle) Add(ctx context.Context, item Item) ([]Item, error) {
	return c.Apply(ctx, OpAddItem, item)
}

// Remove drops every item with the given id. Removing an absent id commits
// the unchanged list.
func (c CartHandle) Remove(ctx context.Context, id int) ([]Item, error) {
	return c.Apply(ctx, OpRemoveItem, id)
}
