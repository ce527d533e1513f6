package codec_test

import (
	"testing"

	"github.com/aretw0/logicbridge/internal/testutils"
	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/registry"
	"github.com/aretw0/logicbridge/pkg/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup() (*testutils.Engine, *registry.Handles, *codec.Codec) {
	eng := testutils.NewEngine()
	handles := registry.NewHandles()
	return eng, handles, codec.New(eng, handles)
}

func TestCodec_RoundTrip(t *testing.T) {
	_, _, c := setup()

	values := []any{
		int64(123),
		123.5,
		"abc",
		"测试",
		"hello world",
		[]any{int64(1), int64(2), int64(3), []any{"abc", "def"}, "xyz"},
		domain.NewStruct("hello", "world", int64(123)),
		domain.NewStruct("point", 1.5, []any{"a"}),
	}
	for _, v := range values {
		h, err := c.Encode(v)
		require.NoError(t, err, "%v", v)
		got, err := c.Decode(h)
		require.NoError(t, err, "%v", v)
		assert.Equal(t, v, got)
	}
}

func TestCodec_StringClassification(t *testing.T) {
	_, _, c := setup()

	atom, err := c.Encode("测试")
	require.NoError(t, err)
	assert.True(t, atom.IsAtom())

	str, err := c.Encode("two words")
	require.NoError(t, err)
	assert.True(t, str.IsString())

	empty, err := c.Encode("")
	require.NoError(t, err)
	assert.True(t, empty.IsString())
}

func TestCodec_EmptyListCollapse(t *testing.T) {
	eng, _, c := setup()

	got, err := c.DecodeRef(eng.EncodeAtom(domain.EmptyListAtom))
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)

	h, err := c.Encode([]any{})
	require.NoError(t, err)
	assert.True(t, h.IsAtom())
	assert.Equal(t, "[]", h.String())
}

func TestCodec_DecodeStruct(t *testing.T) {
	eng, _, c := setup()

	got, err := c.DecodeRef(eng.Build(domain.NewStruct("hello", "world", 123)))
	require.NoError(t, err)
	assert.Equal(t, domain.Struct{Functor: "hello", Args: []any{"world", int64(123)}}, got)
}

func TestCodec_EncodeWidensNumbers(t *testing.T) {
	_, _, c := setup()

	for _, v := range []any{int8(4), int32(4), uint16(4), 4} {
		h, err := c.Encode(v)
		require.NoError(t, err)
		got, err := c.Decode(h)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got)
	}

	h, err := c.Encode(float32(0.5))
	require.NoError(t, err)
	got, err := c.Decode(h)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)

	h, err = c.Encode([]string{"a", "b c"})
	require.NoError(t, err)
	got, err = c.Decode(h)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b c"}, got)
}

func TestCodec_Variables(t *testing.T) {
	_, _, c := setup()

	h, err := c.Encode(domain.Variable{})
	require.NoError(t, err)
	assert.True(t, h.IsVar())

	got, err := c.Decode(h)
	require.NoError(t, err)
	assert.IsType(t, domain.Variable{}, got)
}

func TestCodec_Addresses(t *testing.T) {
	eng, handles, c := setup()
	obj := &struct{ n int }{n: 1}

	h := c.EncodeOpaque(obj)
	assert.True(t, h.IsAddress())
	assert.Equal(t, 1, handles.Len())

	got, err := c.Decode(h)
	require.NoError(t, err)
	assert.Same(t, obj, got)

	miss, err := c.DecodeRef(eng.EncodeAddress(999))
	require.NoError(t, err)
	assert.Nil(t, miss)

	raw, err := c.Encode(domain.Address{Key: 7})
	require.NoError(t, err)
	assert.True(t, raw.IsAddress())
}

func TestCodec_Booleans(t *testing.T) {
	_, _, c := setup()
	h, err := c.Encode(true)
	require.NoError(t, err)
	assert.Equal(t, "true", h.String())
}

func TestCodec_EncodeErrors(t *testing.T) {
	_, _, c := setup()

	var encErr *domain.EncodeError
	_, err := c.Encode(map[string]int{"a": 1})
	require.ErrorAs(t, err, &encErr)

	_, err = c.Encode(nil)
	require.ErrorAs(t, err, &encErr)

	_, err = c.Encode(domain.Struct{Functor: "f"})
	require.ErrorAs(t, err, &encErr)

	_, err = c.Encode([]any{int64(1), struct{}{}})
	require.ErrorAs(t, err, &encErr)
}

func TestCodec_HandlePassThrough(t *testing.T) {
	eng, _, c := setup()
	orig := term.New(eng, eng.EncodeAtom("x"))

	h, err := c.Encode([]any{orig})
	require.NoError(t, err)
	got, err := c.Decode(h)
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, got)
}

func TestCodec_Limits(t *testing.T) {
	eng := testutils.NewEngine()
	c := codec.New(eng, registry.NewHandles(), codec.WithMaxListLength(3), codec.WithMaxDepth(2))

	var decErr *domain.DecodeError
	_, err := c.DecodeRef(eng.Build([]any{1, 2, 3, 4}))
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, domain.KindList, decErr.Kind)

	_, err = c.DecodeRef(eng.Build([]any{[]any{[]any{[]any{1}}}}))
	require.ErrorAs(t, err, &decErr)

	var encErr *domain.EncodeError
	_, err = c.Encode([]any{[]any{[]any{[]any{1}}}})
	require.ErrorAs(t, err, &encErr)
}

func TestCodec_SharedBuffer(t *testing.T) {
	eng := testutils.NewEngine()
	buf := make([]byte, 0, 2)
	c := codec.New(eng, registry.NewHandles(), codec.WithBuffer(buf))

	got, err := c.DecodeRef(eng.Build([]any{"first", "second"}))
	require.NoError(t, err)
	assert.Equal(t, []any{"first", "second"}, got)
}

func TestCodec_NilHandle(t *testing.T) {
	_, _, c := setup()
	_, err := c.Decode(nil)
	var decErr *domain.DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestJSON(t *testing.T) {
	got := codec.JSON(map[string]any{
		"X": domain.NewStruct("pair", "a", []any{int64(1), 2.5}),
		"Y": domain.Variable{Name: "_G1"},
		"Z": nil,
	})
	assert.Equal(t, map[string]any{
		"X": map[string]any{"functor": "pair", "args": []any{"a", []any{int64(1), 2.5}}},
		"Y": map[string]any{"var": "_G1"},
		"Z": nil,
	}, got)
}
