package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNames struct {
	names map[string]string
	calls map[string]int
}

func (s *staticNames) CompanyName(_ context.Context, ticker string) (string, bool) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[ticker]++
	n, ok := s.names[ticker]
	return n, ok
}

func TestBuild_DepthOne(t *testing.T) {
	items := Builder{}.Build(context.Background(), []string{"AAPL"}, []string{"reuters"}, 1)
	require.Len(t, items, 1)
	assert.Equal(t, WorkItem{Ticker: "AAPL", Source: "reuters", Query: "AAPL+reuters+stock+articles"}, items[0])
}

func TestBuild_IsDeterministic(t *testing.T) {
	b := Builder{}
	tickers := []string{"AAPL", "MSFT"}
	sources := []string{"reuters", "bloomberg"}

	first := b.Build(context.Background(), tickers, sources, 1)
	second := b.Build(context.Background(), tickers, sources, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{
		"AAPL+reuters+stock+articles",
		"AAPL+bloomberg+stock+articles",
		"MSFT+reuters+stock+articles",
		"MSFT+bloomberg+stock+articles",
	}, queries(first))
}

func TestBuild_DepthTwoAddsNameQuery(t *testing.T) {
	names := &staticNames{names: map[string]string{"AAPL": "Apple Inc.", "T": "AT&T Inc."}}
	b := Builder{Names: names}

	items := b.Build(context.Background(), []string{"AAPL", "T", "ZZZZ"}, []string{"reuters", "thestreet"}, 2)
	assert.Equal(t, []string{
		"Apple+reuters+stock+news",
		"AAPL+reuters+stock+articles",
		"Apple+thestreet+stock+news",
		"AAPL+thestreet+stock+articles",
		"ATT+reuters+stock+news",
		"T+reuters+stock+articles",
		"ATT+thestreet+stock+news",
		"T+thestreet+stock+articles",
		"ZZZZ+reuters+stock+articles",
		"ZZZZ+thestreet+stock+articles",
	}, queries(items))
	assert.Equal(t, 1, names.calls["AAPL"], "name resolved once per ticker")
	assert.Equal(t, 1, names.calls["ZZZZ"], "misses are cached too")
}

func TestBuild_DepthOneSkipsResolver(t *testing.T) {
	names := &staticNames{names: map[string]string{"AAPL": "Apple Inc."}}
	Builder{Names: names}.Build(context.Background(), []string{"AAPL"}, []string{"reuters"}, 1)
	assert.Zero(t, names.calls["AAPL"])
}

func TestCleanCompanyName(t *testing.T) {
	assert.Equal(t, "Apple", CleanCompanyName("Apple Inc."))
	assert.Equal(t, "Johnson+Johnson", CleanCompanyName("Johnson & Johnson"))
	assert.Equal(t, "Alphabet+Class+A", CleanCompanyName("Alphabet (Class A)"))
}

func TestQuerify(t *testing.T) {
	assert.Equal(t, "apple+stock+news", Querify("apple stock news"))
}

func TestValidSources(t *testing.T) {
	assert.True(t, IsValidSource("Reuters"))
	assert.False(t, IsValidSource("myblog"))
	assert.Len(t, ValidSources(), 5)
}

func TestChainResolver(t *testing.T) {
	first := &staticNames{names: map[string]string{}}
	second := &staticNames{names: map[string]string{"MSFT": "Microsoft Corp."}}
	name, ok := ChainResolver{nil, first, second}.CompanyName(context.Background(), "MSFT")
	require.True(t, ok)
	assert.Equal(t, "Microsoft Corp.", name)
}

func queries(items []WorkItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Query
	}
	return out
}
