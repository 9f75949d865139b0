package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValueJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ProfileValue
	}{
		{"string", `"vegetarian"`, StringValue("vegetarian")},
		{"number", `42.5`, NumberValue(42.5)},
		{"bool", `true`, BoolValue(true)},
		{"string list", `["hiking","sailing"]`, StringListValue([]string{"hiking", "sailing"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v ProfileValue
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.want, v)

			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}

	t.Run("rejects object", func(t *testing.T) {
		var v ProfileValue
		assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
	})

	t.Run("rejects mixed list", func(t *testing.T) {
		var v ProfileValue
		assert.Error(t, json.Unmarshal([]byte(`["a",1]`), &v))
	})
}

func TestProfileValueString(t *testing.T) {
	assert.Equal(t, "vegetarian", StringValue("vegetarian").String())
	assert.Equal(t, "3", NumberValue(3).String())
	assert.Equal(t, "2.5", NumberValue(2.5).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "hiking, sailing", StringListValue([]string{"hiking", "sailing"}).String())
}

func TestProfileEntryValidAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		from  *time.Time
		until *time.Time
		want  bool
	}{
		{"open window", nil, nil, true},
		{"valid from past", &past, nil, true},
		{"valid from future", &future, nil, false},
		{"valid until future", nil, &future, true},
		{"valid until past", nil, &past, false},
		{"closed window covering now", &past, &future, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &ProfileEntry{ValidFrom: tt.from, ValidUntil: tt.until}
			assert.Equal(t, tt.want, entry.ValidAt(now))
		})
	}
}

func TestValidateProfileEntry(t *testing.T) {
	valid := &ProfileEntry{
		ID:       "p1",
		SpaceID:  "sp1",
		Category: "preferences",
		Key:      "diet",
		Value:    StringValue("vegetarian"),
		Source:   Source{Type: SourceTypeManual, Timestamp: time.Now()},
	}

	require.NoError(t, ValidateProfileEntry(valid))

	t.Run("missing key", func(t *testing.T) {
		e := *valid
		e.Key = ""
		assert.Error(t, ValidateProfileEntry(&e))
	})

	t.Run("bad source type", func(t *testing.T) {
		e := *valid
		e.Source.Type = "guesswork"
		assert.Error(t, ValidateProfileEntry(&e))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Error(t, ValidateProfileEntry(nil))
	})
}
