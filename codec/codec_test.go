package codec

import (
	"strings"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	ID    int               `json:"id"`
	Name  string            `json:"name"`
	Roles []string          `json:"roles"`
	Meta  map[string]string `json:"meta"`
}

func TestEncode_SmallValueStaysPlain(t *testing.T) {
	t.Parallel()

	enc, err := Encode(map[string]int{"v": 1}, true)
	require.NoError(t, err)
	assert.False(t, enc.Compressed)
	assert.Equal(t, `{"v":1}`, string(enc.Data))
	assert.Equal(t, int64(len(`{"v":1}`)), enc.Size)
}

func TestEncode_CompressesAboveThreshold(t *testing.T) {
	t.Parallel()

	v := member{ID: 7, Name: strings.Repeat("roster", 400)}
	enc, err := Encode(v, true)
	require.NoError(t, err)
	require.True(t, enc.Compressed)
	assert.Equal(t, Measure(enc.Data), enc.Size)

	var got member
	require.NoError(t, Decode(enc.Data, enc.Compressed, &got))
	assert.Equal(t, v, got)
}

func TestEncode_CompressDisabled(t *testing.T) {
	t.Parallel()

	enc, err := Encode(strings.Repeat("x", 4096), false)
	require.NoError(t, err)
	assert.False(t, enc.Compressed)
	assert.Equal(t, int64(4096+2), enc.Size)
}

func TestEncode_UnserializableValue(t *testing.T) {
	t.Parallel()

	_, err := Encode(func() {}, true)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = Encode(make(chan int), false)
	require.Error(t, err)
}

func TestDecode_RoundTripShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]any{
		"object": member{ID: 1, Name: "ana", Roles: []string{"admin"}, Meta: map[string]string{"team": "blue"}},
		"array":  []int{1, 2, 3},
		"string": "hello",
		"number": 3.5,
		"bool":   true,
	}
	for name, v := range cases {
		for _, compress := range []bool{false, true} {
			enc, err := Encode(v, compress)
			require.NoError(t, err, name)

			switch want := v.(type) {
			case member:
				var got member
				require.NoError(t, Decode(enc.Data, enc.Compressed, &got))
				assert.Equal(t, want, got, name)
			case []int:
				var got []int
				require.NoError(t, Decode(enc.Data, enc.Compressed, &got))
				assert.Equal(t, want, got, name)
			case string:
				var got string
				require.NoError(t, Decode(enc.Data, enc.Compressed, &got))
				assert.Equal(t, want, got, name)
			case float64:
				var got float64
				require.NoError(t, Decode(enc.Data, enc.Compressed, &got))
				assert.Equal(t, want, got, name)
			case bool:
				var got bool
				require.NoError(t, Decode(enc.Data, enc.Compressed, &got))
				assert.Equal(t, want, got, name)
			}
		}
	}
}

func TestDecode_CorruptData(t *testing.T) {
	t.Parallel()

	var dst map[string]any
	err := Decode([]byte("not gzip"), true, &dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))

	err = Decode([]byte("{broken"), false, &dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDecode_IncompatibleType(t *testing.T) {
	t.Parallel()

	enc, err := Encode([]string{"a"}, false)
	require.NoError(t, err)

	var dst member
	assert.ErrorIs(t, Decode(enc.Data, enc.Compressed, &dst), ErrDecode)
}
