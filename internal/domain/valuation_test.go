package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_InsertKeepsOrder(t *testing.T) {
	cases := []struct {
		name   string
		pool   *Pool
		insert []float64
		want   []float64
	}{
		{"buyers strongest first", NewBuyerPool(), []float64{5, 10, 1, 7}, []float64{10, 7, 5, 1}},
		{"sellers cheapest first", NewSellerPool(), []float64{5, 10, 1, 7}, []float64{1, 5, 7, 10}},
		{"buyers with repeats", NewBuyerPool(), []float64{3, 3, 8, 3}, []float64{8, 3, 3, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range tc.insert {
				tc.pool.Insert(v)
			}
			assert.Equal(t, tc.want, tc.pool.Values())
			assert.Equal(t, len(tc.want), tc.pool.Len())
		})
	}
}

// 0 y -0 son iguales para el orden del pool pero se distinguen por el signo,
// así que sirven para ver dónde cae un empate.
func TestPool_InsertTieGoesAfterEquals(t *testing.T) {
	for _, p := range []*Pool{NewBuyerPool(), NewSellerPool()} {
		p.Insert(0)
		p.Insert(math.Copysign(0, -1))

		v := p.Values()
		assert.False(t, math.Signbit(v[0]), "%s pool keeps the older arrival first", p.Side())
		assert.True(t, math.Signbit(v[1]), "%s pool puts the tie last", p.Side())
	}

	b := NewBuyerPool()
	for _, v := range []float64{4, 9, 1} {
		b.Insert(v)
	}
	b.Insert(4)
	assert.Equal(t, []float64{9, 4, 4, 1}, b.Values())
}

func TestPool_RemoveMatched(t *testing.T) {
	cases := []struct {
		name        string
		pool        *Pool
		values      []float64
		price       float64
		wantMatched []float64
		wantLeft    []float64
	}{
		{"buyers at or above price", NewBuyerPool(), []float64{10, 8, 7, 5}, 7, []float64{10, 8, 7}, []float64{5}},
		{"sellers at or below price", NewSellerPool(), []float64{3, 6, 7, 9}, 7, []float64{3, 6, 7}, []float64{9}},
		{"nobody accepts", NewBuyerPool(), []float64{5, 4}, 6, nil, []float64{5, 4}},
		{"everybody accepts", NewSellerPool(), []float64{1, 2}, 2, []float64{1, 2}, nil},
		{"empty pool", NewSellerPool(), nil, 2, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range tc.values {
				tc.pool.Insert(v)
			}
			matched := tc.pool.RemoveMatched(tc.price)
			assert.Equal(t, tc.wantMatched, matched)

			left := tc.pool.Values()
			if tc.wantLeft == nil {
				assert.Empty(t, left)
			} else {
				assert.Equal(t, tc.wantLeft, left)
			}
			assert.False(t, tc.pool.Accepts(tc.price))
		})
	}
}

func TestPool_ValuesIsCopy(t *testing.T) {
	p := NewSellerPool()
	p.Insert(2)
	p.Insert(1)

	v := p.Values()
	v[0] = 100
	assert.Equal(t, []float64{1, 2}, p.Values())

	best, ok := p.Best()
	assert.True(t, ok)
	assert.Equal(t, 1.0, best)

	_, ok = NewBuyerPool().Best()
	assert.False(t, ok)
}
