package visit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Time(t *testing.T) {
	tests := []struct {
		in     Date
		want   string
		wantOK bool
	}{
		{"2023-04-11", "2023-04-11", true},
		{" 2023-04-11 ", "2023-04-11", true},
		{"2023-04-11T22:30:00Z", "2023-04-11", true},
		{"2023-04-11T08:00:00", "2023-04-11", true},
		{"11/04/2023", "2023-04-11", true},
		{"1/4/2023", "2023-04-01", true},
		{"", "", false},
		{"NP", "", false},
		{"2023-02-30", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, ok := tt.in.Time()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
				assert.Equal(t, time.UTC, got.Location())
				assert.Zero(t, got.Hour())
			}
		})
	}
}

func TestDate_Normalize(t *testing.T) {
	assert.Equal(t, Date("2023-04-11"), Date("11/04/2023").Normalize())
	assert.Equal(t, Date("garbage"), Date("garbage").Normalize())
	assert.True(t, Date("").IsValid())
	assert.False(t, Date("garbage").IsValid())
}

func TestDate_JSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: "2023-04-11"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2023-04-11","b":null}`, string(raw))

	var decoded struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":" 2023-06-27 ","b":null}`), &decoded))
	assert.Equal(t, Date("2023-06-27"), decoded.A)
	assert.True(t, decoded.B.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"a":20230627}`), &decoded))
}

func TestDate_SQL(t *testing.T) {
	v, err := Date("").Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Date("2023-04-11").Value()
	require.NoError(t, err)
	assert.Equal(t, "2023-04-11", v)

	var d Date
	require.NoError(t, d.Scan([]byte("2023-07-27")))
	assert.Equal(t, Date("2023-07-27"), d)
	require.NoError(t, d.Scan(time.Date(2023, 6, 27, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, Date("2023-06-27"), d)
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	assert.Error(t, d.Scan(42))
}
