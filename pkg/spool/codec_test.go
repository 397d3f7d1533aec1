package spool_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spool/pkg/spool"
)

func TestMarshalUnmarshal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data map[string]any
	}{
		{"empty", nil},
		{"flat", map[string]any{"repo": "core", "count": json.Number("3"), "ok": true}},
		{"numbers", map[string]any{
			"change": json.Number("9007199254740993"),
			"min":    json.Number("-9223372036854775808"),
			"ratio":  json.Number("0.25"),
		}},
		{"nested", map[string]any{
			"actor": map[string]any{"name": "ci", "ids": []any{json.Number("1"), json.Number("2")}},
			"tags":  []any{"a", map[string]any{"b": nil}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			body, err := spool.Marshal("commit", "100", tc.data)
			require.NoError(t, err)

			taskType, id, data, err := spool.Unmarshal(body)
			require.NoError(t, err)
			assert.Equal(t, "commit", taskType)
			assert.Equal(t, "100", id)
			assert.Equal(t, tc.data, data)
		})
	}

	t.Run("integers keep their exact value", func(t *testing.T) {
		t.Parallel()

		body, err := spool.Marshal("commit", "100", map[string]any{
			"change": int64(9007199254740993),
			"max":    int64(math.MaxInt64),
			"count":  3,
		})
		require.NoError(t, err)

		_, _, data, err := spool.Unmarshal(body)
		require.NoError(t, err)
		for key, want := range map[string]int64{"change": 9007199254740993, "max": math.MaxInt64, "count": 3} {
			n, ok := data[key].(json.Number)
			require.True(t, ok, key)
			got, err := n.Int64()
			require.NoError(t, err)
			assert.Equal(t, want, got, key)
		}
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := spool.Unmarshal([]byte("commit,1\n{\"a\":1} {\"b\":2}"))
		assert.ErrorIs(t, err, spool.ErrInvalidPayload)
	})

	t.Run("empty data has no payload section", func(t *testing.T) {
		t.Parallel()

		body, err := spool.Marshal("comment", "55", nil)
		require.NoError(t, err)
		assert.Equal(t, "comment,55\n", string(body))

		body, err = spool.Marshal("comment", "55", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "comment,55\n", string(body))
	})

	t.Run("id may contain commas", func(t *testing.T) {
		t.Parallel()

		body, err := spool.Marshal("path", "a,b,c", nil)
		require.NoError(t, err)
		_, id, _, err := spool.Unmarshal(body)
		require.NoError(t, err)
		assert.Equal(t, "a,b,c", id)
	})
}

func TestMarshal_Invalid(t *testing.T) {
	t.Parallel()

	_, err := spool.Marshal("", "1", nil)
	assert.ErrorIs(t, err, spool.ErrMissingType)

	_, err = spool.Marshal("a,b", "1", nil)
	assert.ErrorIs(t, err, spool.ErrInvalidType)

	_, err = spool.Marshal("commit", "1\n2", nil)
	assert.ErrorIs(t, err, spool.ErrInvalidID)

	_, err = spool.Marshal("commit", strings.Repeat("x", spool.MaxHeaderSize), nil)
	assert.ErrorIs(t, err, spool.ErrHeaderTooLarge)

	_, err = spool.Marshal("commit", "1", map[string]any{"blob": strings.Repeat("x", spool.MaxPayloadSize)})
	assert.ErrorIs(t, err, spool.ErrPayloadTooLarge)
}

func TestUnmarshal_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body []byte
		err  error
	}{
		"missing type":  {[]byte(",1\n"), spool.ErrMissingType},
		"empty body":    {nil, spool.ErrMissingType},
		"array payload": {[]byte("commit,1\n[1,2]"), spool.ErrInvalidPayload},
		"null payload":  {[]byte("commit,1\nnull"), spool.ErrInvalidPayload},
		"broken json":   {[]byte("commit,1\n{"), spool.ErrInvalidPayload},
		"long header": {
			append(bytes.Repeat([]byte("x"), spool.MaxHeaderSize+1), '\n'),
			spool.ErrHeaderTooLarge,
		},
		"long payload": {
			append([]byte("commit,1\n"), bytes.Repeat([]byte(" "), spool.MaxPayloadSize+1)...),
			spool.ErrPayloadTooLarge,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, _, err := spool.Unmarshal(tc.body)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRecordName(t *testing.T) {
	t.Parallel()

	at := time.Unix(1760000000, 250000*int64(time.Microsecond))
	name, err := spool.RecordName(at, 7)
	require.NoError(t, err)
	assert.Equal(t, "0001760000000.250000-000007.task", name)

	parsed, err := spool.ParseRecordName(name)
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))

	_, err = spool.RecordName(time.Unix(-1, 0), 0)
	assert.ErrorIs(t, err, spool.ErrInvalidTime)

	_, err = spool.ParseRecordName("notes.txt")
	assert.ErrorIs(t, err, spool.ErrInvalidName)

	t.Run("names sort by time", func(t *testing.T) {
		t.Parallel()

		base := time.Unix(999999999, 0)
		times := []time.Time{
			base,
			base.Add(time.Microsecond),
			base.Add(time.Second),
			base.Add(1000 * time.Hour),
		}
		var prev string
		for _, tm := range times {
			name, err := spool.RecordName(tm, 0)
			require.NoError(t, err)
			assert.Less(t, prev, name)
			prev = name
		}
	})
}
