package driftengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsentinel/docsentinel/internal/store"
)

func TestMentionIndex_FindsSubstringInContent(t *testing.T) {
	idx, err := NewMentionIndex([]store.DocChunkRow{
		{Identity: "doc1", Path: "api.md", HeadingPath: "Usage", Content: "Call add() to sum two numbers."},
	})
	require.NoError(t, err)
	defer idx.Close()

	found, docs := idx.Mentions("add")
	require.True(t, found)
	require.Len(t, docs, 1)
	require.Equal(t, "doc1", docs[0].Identity)
}

func TestMentionIndex_FindsSubstringInHeadingPath(t *testing.T) {
	idx, err := NewMentionIndex([]store.DocChunkRow{
		{Identity: "doc1", Path: "api.md", HeadingPath: "API > add", Content: "no direct mention here"},
	})
	require.NoError(t, err)
	defer idx.Close()

	found, _ := idx.Mentions("add")
	require.True(t, found)
}

func TestMentionIndex_NoMentionReturnsFalse(t *testing.T) {
	idx, err := NewMentionIndex([]store.DocChunkRow{
		{Identity: "doc1", Path: "api.md", HeadingPath: "Usage", Content: "this section is unrelated"},
	})
	require.NoError(t, err)
	defer idx.Close()

	found, docs := idx.Mentions("subtract")
	require.False(t, found)
	require.Empty(t, docs)
}

func TestMentionIndex_EmptyQualifiedNameNeverMatches(t *testing.T) {
	idx, err := NewMentionIndex(nil)
	require.NoError(t, err)
	defer idx.Close()

	found, _ := idx.Mentions("")
	require.False(t, found)
}
