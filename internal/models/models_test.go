package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPermissionJSON(t *testing.T) {
	var set PermissionSet
	err := json.Unmarshal([]byte(`{"products": true, "orders": {"view": true, "update": false}, "admins": false}`), &set)
	require.NoError(t, err)

	assert.Equal(t, PermissionSimple, set[DomainProducts].Kind())
	assert.Equal(t, PermissionScoped, set[DomainOrders].Kind())

	assert.True(t, set.Allows(DomainProducts, ActionDelete))
	assert.True(t, set.Allows(DomainOrders, ActionView))
	assert.False(t, set.Allows(DomainOrders, ActionUpdate))
	assert.False(t, set.Allows(DomainOrders, ActionDelete))
	assert.False(t, set.Allows(DomainAdmins, ActionView))
	assert.False(t, set.Allows(DomainPreorders, ActionView))

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"products": true, "orders": {"view": true, "update": false}, "admins": false}`, string(out))
}

func TestPermissionJSONRejectsOtherShapes(t *testing.T) {
	var p Permission
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"view": "yes"}`), &p))
}

func TestPermissionYAML(t *testing.T) {
	doc := `
products:
  view: true
  create: true
orders: true
`
	var set PermissionSet
	require.NoError(t, yaml.Unmarshal([]byte(doc), &set))

	assert.True(t, set.Allows(DomainProducts, ActionCreate))
	assert.False(t, set.Allows(DomainProducts, ActionDelete))
	assert.True(t, set.Allows(DomainOrders, ActionUpdate))
	assert.Equal(t, []string{DomainOrders, DomainProducts}, set.Domains())

	var bad PermissionSet
	assert.Error(t, yaml.Unmarshal([]byte("orders: [view]\n"), &bad))
}

func TestAdminCan(t *testing.T) {
	super := &Admin{Role: RoleSuperAdmin}
	assert.True(t, super.Can(DomainAdmins, ActionDelete))

	staff := &Admin{Role: "staff", Permissions: PermissionSet{DomainOrders: Scoped(map[string]bool{ActionView: true})}}
	assert.True(t, staff.Can(DomainOrders, ActionView))
	assert.False(t, staff.Can(DomainOrders, ActionUpdate))
}

func TestPreorderTransitions(t *testing.T) {
	tests := []struct {
		from PreorderStatus
		to   PreorderStatus
		ok   bool
	}{
		{PreorderPending, PreorderConfirmed, true},
		{PreorderPending, PreorderCancelled, true},
		{PreorderPending, PreorderProcessing, false},
		{PreorderConfirmed, PreorderProcessing, true},
		{PreorderConfirmed, PreorderReady, false},
		{PreorderProcessing, PreorderReady, true},
		{PreorderReady, PreorderPending, false},
		{PreorderCancelled, PreorderConfirmed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPreorderDeletable(t *testing.T) {
	assert.True(t, PreorderPending.Deletable())
	assert.True(t, PreorderConfirmed.Deletable())
	assert.True(t, PreorderProcessing.Deletable())
	assert.False(t, PreorderReady.Deletable())
	assert.False(t, PreorderCancelled.Deletable())
	assert.False(t, PreorderStatus("Shipped").Valid())
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses() {
		assert.True(t, ValidOrderStatus(s))
	}
	assert.False(t, ValidOrderStatus("Lost"))
}

func TestProductLookups(t *testing.T) {
	p := &Product{
		Price: decimal.NewFromInt(25),
		Colors: []ColorVariant{
			{Hex: "#000000", Sizes: []SizeStock{{Size: "M", Quantity: 5}}},
			{Hex: "#ffffff", Images: []string{"white.png"}, Sizes: []SizeStock{{Size: "L", Quantity: 0}}},
		},
	}

	v, ok := p.Variant("#000000")
	require.True(t, ok)
	s, ok := v.Size("M")
	require.True(t, ok)
	assert.Equal(t, 5, s.Quantity)

	_, ok = v.Size("L")
	assert.False(t, ok)
	_, ok = p.Variant("")
	assert.False(t, ok)

	_, _, err := p.Select("", "M")
	assert.ErrorIs(t, err, ErrColorRequired)
	_, _, err = p.Select("#123456", "M")
	assert.ErrorIs(t, err, ErrVariantNotFound)
	_, _, err = p.Select("#000000", "XL")
	assert.ErrorIs(t, err, ErrSizeNotFound)
	_, entry, err := p.Select("#000000", "M")
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Quantity)

	assert.Equal(t, "white.png", p.Image("#ffffff"))
	assert.Equal(t, "white.png", p.Image("#000000"))
}
