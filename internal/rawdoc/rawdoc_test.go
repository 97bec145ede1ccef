// internal/rawdoc/rawdoc_test.go
package rawdoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

func mustObject(t *testing.T, src string) *Object {
	t.Helper()
	v, err := Parse([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, v)
	obj, err := v.Object("config")
	require.NoError(t, err)
	return obj
}

func TestParse_EmptyAndNull(t *testing.T) {
	for _, src := range []string{"", "   \n", "# only a comment\n", "~\n", "null\n"} {
		v, err := Parse([]byte(src))
		require.NoError(t, err, "source %q", src)
		assert.Nil(t, v, "source %q", src)
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("filters: [unterminated\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrSyntax))
	assert.Contains(t, err.Error(), "malformed policy document")
}

func TestObject_DuplicateKey(t *testing.T) {
	v, err := Parse([]byte("summary: long\nsummary: short\n"))
	require.NoError(t, err)

	_, err = v.Object("config")
	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrSyntax))

	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 2, ve.Line)
}

func TestObject_KeysKeepDocumentOrder(t *testing.T) {
	obj := mustObject(t, "zeta: 1\nalpha: 2\nmid: 3\n")
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())
	assert.Equal(t, 3, obj.Len())
	assert.True(t, obj.Has("alpha"))
	assert.False(t, obj.Has("beta"))
}

func TestObject_ChildPaths(t *testing.T) {
	obj := mustObject(t, "configs:\n  release:\n    summary: long\n  \"odd.name\":\n    summary: none\n")

	configs, ok := obj.Get("configs")
	require.True(t, ok)
	assert.Equal(t, "configs", configs.Path())

	configsObj, err := configs.Object("configs")
	require.NoError(t, err)

	release, ok := configsObj.Get("release")
	require.True(t, ok)
	assert.Equal(t, "configs.release", release.Path())
	assert.Equal(t, 3, release.Line())

	odd, ok := configsObj.Get("odd.name")
	require.True(t, ok)
	assert.Equal(t, `configs["odd.name"]`, odd.Path())
}

func TestObject_CheckKeys(t *testing.T) {
	obj := mustObject(t, "summary: long\ncolour: blue\nshade: dark\n")

	err := obj.CheckKeys([]string{"summary"}, "config")
	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrKey))
	assert.Contains(t, err.Error(), "colour is not permitted in config")

	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 2, ve.Line)

	assert.NoError(t, obj.CheckKeys([]string{"summary", "colour", "shade"}, "config"))
}

func TestValue_TypedAccessors(t *testing.T) {
	obj := mustObject(t, `
name: release
flag: true
quoted: "true"
count: 12
whole: 3.0
negative: -1
fraction: 1.5
huge: 4294967296
list: [a, b]
mixed: [a, 1]
empty: []
`)

	get := func(key string) *Value {
		v, ok := obj.Get(key)
		require.True(t, ok, key)
		return v
	}

	s, err := get("name").String("name")
	require.NoError(t, err)
	assert.Equal(t, "release", s)

	_, err = get("count").String("count")
	assert.True(t, errors.Is(err, validation.ErrType))

	b, err := get("flag").Bool("flag")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = get("quoted").Bool("quoted")
	assert.True(t, errors.Is(err, validation.ErrType), "a quoted boolean is a string")

	n, err := get("count").NonNegativeInt("count")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = get("whole").NonNegativeInt("whole")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = get("negative").NonNegativeInt("negative")
	assert.True(t, errors.Is(err, validation.ErrValue))

	_, err = get("fraction").NonNegativeInt("fraction")
	assert.True(t, errors.Is(err, validation.ErrValue))
	assert.Contains(t, err.Error(), "fraction must be an integer")

	_, err = get("huge").NonNegativeInt("huge")
	assert.True(t, errors.Is(err, validation.ErrValue))
	assert.Contains(t, err.Error(), "huge is too large")

	_, err = get("name").NonNegativeInt("name")
	assert.True(t, errors.Is(err, validation.ErrType))

	list, err := get("list").StringList("list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	list, err = get("empty").StringList("empty")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = get("mixed").StringList("mixed")
	require.Error(t, err)
	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, validation.KindType, ve.Kind)
	assert.Equal(t, "mixed[1]", ve.Path)

	_, err = get("name").Object("name")
	assert.True(t, errors.Is(err, validation.ErrType))
}

func TestValue_AliasesResolve(t *testing.T) {
	obj := mustObject(t, "base: &sev high\ncopy: *sev\n")
	v, ok := obj.Get("copy")
	require.True(t, ok)
	s, err := v.String("copy")
	require.NoError(t, err)
	assert.Equal(t, "high", s)
}

func TestValue_RootPath(t *testing.T) {
	v, err := Parse([]byte("- a\n- b\n"))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, RootPath, v.Path())

	_, err = v.Object("config")
	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, validation.KindType, ve.Kind)
	assert.Equal(t, "config", ve.Path)
}
