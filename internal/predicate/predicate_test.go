package predicate

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(kind Kind, pks ...uint) *IDsInput {
	out := &IDsInput{}
	for _, pk := range pks {
		out.IDs = append(out.IDs, EncodeID(kind, pk))
	}
	return out
}

func sampleEntities() []Entity {
	return []Entity{
		{ProductID: 1, VariantIDs: []uint{11, 12}, CategoryID: 5, CategoryAncestorIDs: []uint{2, 1}},
		{ProductID: 2, VariantIDs: []uint{21}, CategoryID: 2, CategoryAncestorIDs: []uint{1}, CollectionIDs: []uint{7}},
		{ProductID: 3, VariantIDs: []uint{31}, CategoryID: 9, CollectionIDs: []uint{7, 8}},
		{ProductID: 4, CategoryID: 1},
		{ProductID: 5, VariantIDs: []uint{51, 52}, CategoryID: 8, CategoryAncestorIDs: []uint{9}},
	}
}

func TestGlobalIDRoundTrip(t *testing.T) {
	for _, kind := range Kinds {
		raw := EncodeID(kind, 42)
		pk, err := DecodeID(kind, raw)
		require.NoError(t, err)
		assert.Equal(t, uint(42), pk)
	}

	pk, err := DecodeID(KindProduct, "17")
	require.NoError(t, err)
	assert.Equal(t, uint(17), pk)

	_, err = DecodeID(KindProduct, EncodeID(KindCategory, 3))
	assert.ErrorIs(t, err, ErrWrongIDType)

	for _, raw := range []string{"", "0", "not-base64!", EncodeID(KindProduct, 0)} {
		_, err = DecodeID(KindProduct, raw)
		assert.ErrorIs(t, err, ErrMalformedID, "raw=%q", raw)
	}
}

func TestCleanBuildsTree(t *testing.T) {
	input := &Input{Or: []Input{
		{ProductPredicate: ids(KindProduct, 3, 1, 3)},
		{And: []Input{
			{CategoryPredicate: ids(KindCategory, 2)},
			{CollectionPredicate: ids(KindCollection, 7)},
		}},
	}}

	result, err := Clean(input, DefaultErrorCodes)
	require.NoError(t, err)

	or, ok := result.(Or)
	require.True(t, ok)
	require.Len(t, or.Children, 2)
	assert.Equal(t, NewLeaf(KindProduct, 1, 3), or.Children[0])
	and, ok := or.Children[1].(And)
	require.True(t, ok)
	assert.Len(t, and.Children, 2)
	assert.Equal(t, 3, Depth(result))
	assert.Equal(t, map[Kind][]uint{
		KindProduct:    {1, 3},
		KindCategory:   {2},
		KindCollection: {7},
	}, IDsByKind(result))
}

func TestCleanRejectsMixedNode(t *testing.T) {
	codes := ErrorCodes{Invalid: "promotion_invalid", NotFound: "promotion_not_found", GraphQLError: "promotion_graphql"}
	input := &Input{
		ProductPredicate: ids(KindProduct, 1),
		Or:               []Input{{VariantPredicate: ids(KindVariant, 2)}},
	}

	_, err := Clean(input, codes, WithRootField("cataloguePredicate"))
	var errs Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "promotion_invalid", errs[0].Code)
	assert.Equal(t, "cataloguePredicate", errs[0].Field)

	_, err = Clean(&Input{ProductPredicate: ids(KindProduct, 1), CategoryPredicate: ids(KindCategory, 1)}, codes)
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "promotion_invalid", errs[0].Code)

	_, err = Clean(&Input{}, codes)
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "promotion_invalid", errs[0].Code)
}

func TestCleanRejectsEmptyListsAndIDs(t *testing.T) {
	_, err := Clean(&Input{And: []Input{}}, DefaultErrorCodes)
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "AND", errs[0].Field)
	assert.Equal(t, "invalid", errs[0].Code)

	_, err = Clean(&Input{Or: []Input{{ProductPredicate: &IDsInput{}}}}, DefaultErrorCodes)
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "OR.0.productPredicate.ids", errs[0].Field)
	assert.Equal(t, "invalid", errs[0].Code)
}

func TestCleanDepthLimit(t *testing.T) {
	node := Input{ProductPredicate: ids(KindProduct, 1)}
	for i := 0; i < DefaultMaxDepth; i++ {
		node = Input{And: []Input{node}}
	}
	_, err := Clean(&node, DefaultErrorCodes)
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "invalid", errs[0].Code)

	shallow := Input{ProductPredicate: ids(KindProduct, 1)}
	for i := 0; i < DefaultMaxDepth-1; i++ {
		shallow = Input{And: []Input{shallow}}
	}
	result, err := Clean(&shallow, DefaultErrorCodes)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDepth, Depth(result))

	_, err = Clean(&shallow, DefaultErrorCodes, WithMaxDepth(3))
	require.Error(t, err)
}

func TestCleanCollectsSiblingErrors(t *testing.T) {
	missing := ResolverFunc(func(kind Kind, pks []uint) ([]uint, error) {
		var out []uint
		for _, pk := range pks {
			if pk >= 100 {
				out = append(out, pk)
			}
		}
		return out, nil
	})
	input := &Input{Or: []Input{
		{ProductPredicate: &IDsInput{IDs: []string{"garbage!", EncodeID(KindCategory, 1)}}},
		{CategoryPredicate: ids(KindCategory, 1, 100, 101)},
		{VariantPredicate: ids(KindVariant, 3)},
	}}

	_, err := Clean(input, DefaultErrorCodes, WithResolver(missing))
	var errs Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 2)

	assert.Equal(t, "OR.0.productPredicate.ids", errs[0].Field)
	assert.Equal(t, "graphql_error", errs[0].Code)
	assert.Equal(t, []string{"garbage!", EncodeID(KindCategory, 1)}, errs[0].IDs)

	assert.Equal(t, "OR.1.categoryPredicate.ids", errs[1].Field)
	assert.Equal(t, "not_found", errs[1].Code)
	assert.Equal(t, []string{EncodeID(KindCategory, 100), EncodeID(KindCategory, 101)}, errs[1].IDs)
}

func TestCleanPropagatesResolverFailure(t *testing.T) {
	boom := errors.New("db down")
	failing := ResolverFunc(func(Kind, []uint) ([]uint, error) { return nil, boom })
	_, err := Clean(&Input{ProductPredicate: ids(KindProduct, 1)}, DefaultErrorCodes, WithResolver(failing))
	assert.ErrorIs(t, err, boom)
}

func TestMatchesAndOrSemantics(t *testing.T) {
	a := NewLeaf(KindCategory, 2)
	b := NewLeaf(KindCollection, 7)
	c := NewLeaf(KindVariant, 52)
	for idx, e := range sampleEntities() {
		name := strconv.Itoa(idx)
		assert.Equal(t, Matches(a, e) && Matches(b, e), Matches(NewAnd(a, b), e), name)
		assert.Equal(t, Matches(a, e) || Matches(b, e), Matches(NewOr(a, b), e), name)
		assert.Equal(t, Matches(a, e) || (Matches(b, e) && Matches(c, e)), Matches(NewOr(a, NewAnd(b, c)), e), name)
	}
	assert.False(t, Matches(NewAnd(), sampleEntities()[0]))
	assert.False(t, Matches(NewOr(), sampleEntities()[0]))
}

func TestMatchesCategoryIsHierarchical(t *testing.T) {
	entities := sampleEntities()
	root := NewLeaf(KindCategory, 1)
	assert.True(t, Matches(root, entities[0]), "grandchild category")
	assert.True(t, Matches(root, entities[1]), "child category")
	assert.True(t, Matches(root, entities[3]), "own category")
	assert.False(t, Matches(root, entities[2]))

	assert.False(t, Matches(NewLeaf(KindProduct, 2), entities[0]))
	assert.True(t, Matches(NewLeaf(KindVariant, 12), entities[0]))
}

func TestPredicateRoundTrip(t *testing.T) {
	original := NewOr(
		NewLeaf(KindProduct, 1, 4),
		NewAnd(NewLeaf(KindCategory, 9), NewLeaf(KindCollection, 8)),
		NewAnd(NewOr(NewLeaf(KindVariant, 21), NewLeaf(KindCategory, 2)), NewLeaf(KindCollection, 7)),
	)

	raw, err := Marshal(original)
	require.NoError(t, err)
	parsed, err := ParseInput(raw)
	require.NoError(t, err)
	cleaned, err := Clean(parsed, DefaultErrorCodes)
	require.NoError(t, err)

	assert.Equal(t, original, cleaned)
	for _, e := range sampleEntities() {
		assert.Equal(t, Matches(original, e), Matches(cleaned, e))
	}
}

type fakeCatalogue struct {
	calls int
}

func (f *fakeCatalogue) QueryLeaf(kind Kind, pks []uint) ([]uint, []uint, error) {
	f.calls++
	switch kind {
	case KindProduct:
		return pks, []uint{pks[0]*10 + 1}, nil
	case KindCategory:
		// c1 下有 p2
		return []uint{2}, []uint{21}, nil
	case KindVariant:
		return []uint{5}, pks, nil
	}
	return nil, nil, nil
}

func TestAffectedUnionsBranches(t *testing.T) {
	catalogue := &fakeCatalogue{}
	tree := NewOr(NewLeaf(KindProduct, 1), NewLeaf(KindCategory, 1))

	set, err := Affected(tree, catalogue)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, set.ProductIDs())
	assert.Equal(t, []uint{11, 21}, set.VariantIDs())

	and, err := Affected(NewAnd(NewLeaf(KindVariant, 52), NewLeaf(KindCategory, 1)), catalogue)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 5}, and.ProductIDs())
	assert.True(t, and.HasVariant(52))
	assert.True(t, and.HasVariant(21))
}

func TestAffectedEmpty(t *testing.T) {
	catalogue := &fakeCatalogue{}
	set, err := Affected(nil, catalogue)
	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.Zero(t, catalogue.calls)
}
