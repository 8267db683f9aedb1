package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Code Sprint 2026!":  "code-sprint-2026",
		"  Robo   Race ":     "robo-race",
		"Tech-Quiz (Finals)": "tech-quiz-finals",
		"Garba Night":        "garba-night",
		"!!!":                "",
		"Café Coding":        "caf-coding",
	}
	for in, want := range cases {
		require.Equal(t, want, slugify(in), in)
	}
}

func TestNormalisePage(t *testing.T) {
	page, size, offset := normalisePage(0, 0)
	require.Equal(t, 1, page)
	require.Equal(t, defaultPageSize, size)
	require.Equal(t, 0, offset)

	page, size, offset = normalisePage(3, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 20, size)
	require.Equal(t, 40, offset)

	_, size, _ = normalisePage(1, maxPageSize+1)
	require.Equal(t, defaultPageSize, size)
}

func TestNormaliseIDs(t *testing.T) {
	require.Nil(t, normaliseIDs(nil))
	require.Equal(t, []string{"a", "b"}, normaliseIDs([]string{" a", "b", "", "a "}))
}
