package embedindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Mock(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, 384, provider.Dimensions())
	assert.NoError(t, provider.Close())
}

func TestNewProvider_UnsupportedType(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
}

func TestNewProvider_LocalHTTPRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(Config{Provider: "local-http"})
	require.Error(t, err)
}

func TestMockProvider_Deterministic(t *testing.T) {
	t.Parallel()

	p := NewMockProvider(64)
	a, err := p.Embed(context.Background(), []string{"hello"}, ModePassage)
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), []string{"hello"}, ModePassage)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockProvider_DifferentModesDifferentVectors(t *testing.T) {
	t.Parallel()

	p := NewMockProvider(64)
	a, err := p.Embed(context.Background(), []string{"hello"}, ModeQuery)
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), []string{"hello"}, ModePassage)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCosineSimilarity_IdenticalVectorsAreOne(t *testing.T) {
	t.Parallel()

	v := []float32{1, 2, 3}
	sim, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-6)
}

func TestCosineSimilarity_OrthogonalVectorsAreZero(t *testing.T) {
	t.Parallel()

	sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-6)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	t.Parallel()

	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
}

func TestCosineSimilarity_ZeroNormYieldsZero(t *testing.T) {
	t.Parallel()

	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestIndex_TopKOrdersBySimilarityThenID(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.AddVector("a", []float32{1, 0})
	idx.AddVector("b", []float32{0.9, 0.1})
	idx.AddVector("c", []float32{0, 1})

	results, err := idx.TopK([]float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestIndex_TopKExcludesIDs(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.AddVector("a", []float32{1, 0})
	idx.AddVector("b", []float32{0.9, 0.1})

	results, err := idx.TopK([]float32{1, 0}, 5, map[string]bool{"a": true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestIndex_RemoveDropsVector(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.AddVector("a", []float32{1, 0})
	idx.Remove("a")
	assert.Equal(t, 0, idx.Len())
}

func TestEmbedBatched_PreservesOrder(t *testing.T) {
	t.Parallel()

	p := NewMockProvider(8)
	texts := []string{"one", "two", "three", "four", "five"}
	expected, err := p.Embed(context.Background(), texts, ModePassage)
	require.NoError(t, err)

	got, err := EmbedBatched(context.Background(), p, texts, ModePassage, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestCodeInputText_TruncatesBodyPreview(t *testing.T) {
	t.Parallel()

	body := make([]byte, 2000)
	for i := range body {
		body[i] = 'x'
	}
	text := CodeInputText("pkg.fn", "fn()", string(body))
	assert.Contains(t, text, "pkg.fn")
	assert.LessOrEqual(t, len(text), len("pkg.fn")+len("fn()")+1024+2)
}

func TestDocInputText_JoinsHeadingPath(t *testing.T) {
	t.Parallel()

	text := DocInputText([]string{"Title", "Usage"}, "call it like this")
	assert.Equal(t, "Title > Usage\ncall it like this", text)
}
