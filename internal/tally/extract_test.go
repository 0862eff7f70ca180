package tally

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	fields := []Field{
		{Key: "question_abc", Label: "Phone Number", Value: String("  +31 6 12345678 ")},
		{Key: "Email", Label: "Your email", Value: String("ann@example.com")},
		{Key: "question_xyz", Label: "Name", Value: String("   ")},
	}

	t.Run("label match", func(t *testing.T) {
		got, ok := Extract(fields, []string{"phone", "Phone Number"})
		require.True(t, ok)
		assert.Equal(t, "+31 6 12345678", got)
	})

	t.Run("key match is case insensitive", func(t *testing.T) {
		got, ok := Extract(fields, []string{"email"})
		require.True(t, ok)
		assert.Equal(t, "ann@example.com", got)
	})

	t.Run("blank value is absent", func(t *testing.T) {
		_, ok := Extract(fields, []string{"name"})
		assert.False(t, ok)
	})

	t.Run("no candidate matches", func(t *testing.T) {
		_, ok := Extract(fields, []string{"event_id", "Event ID"})
		assert.False(t, ok)
	})

	t.Run("empty candidate list", func(t *testing.T) {
		_, ok := Extract(fields, nil)
		assert.False(t, ok)
	})
}

func TestExtractPrecedence(t *testing.T) {
	// "phone" matches a key; "Mobile" only a label. The earlier candidate's key hit wins.
	fields := []Field{
		{Key: "question_1", Label: "phone", Value: String("label-hit")},
		{Key: "phone", Label: "Contact", Value: String("key-hit")},
		{Key: "question_2", Label: "Mobile", Value: String("later-label")},
	}
	got, ok := Extract(fields, []string{"phone", "Mobile"})
	require.True(t, ok)
	assert.Equal(t, "key-hit", got)

	// Declared order beats index kind: an earlier candidate's label hit beats a later candidate's key hit.
	fields = []Field{
		{Key: "question_1", Label: "Phone", Value: String("first")},
		{Key: "mobile", Label: "Cell", Value: String("second")},
	}
	got, ok = Extract(fields, []string{"phone", "mobile"})
	require.True(t, ok)
	assert.Equal(t, "first", got)
}

func TestValueNormalize(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
		ok   bool
	}{
		{"absent", Value{}, "", false},
		{"string trimmed", String("  hi "), "hi", true},
		{"empty string", String(""), "", false},
		{"list joins non-empty", Strings("a", " ", "b "), "a, b", true},
		{"empty list", List(), "", false},
		{"list of blanks", Strings("", "  "), "", false},
		{"number", Number("42"), "42", true},
		{"float", Number("4.5"), "4.5", true},
		{"bool", Bool(true), "true", true},
		{"mixed list", List(Number("1"), String("two")), "1, two", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.Normalize()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueJSON(t *testing.T) {
	var fields []Field
	raw := `[
		{"key":"a","label":"A","value":null},
		{"key":"b","label":"B","value":"text"},
		{"key":"c","label":"C","value":7},
		{"key":"d","label":"D","value":["x","y"]},
		{"key":"e","label":"E","value":false},
		{"key":"f","label":"F","value":{"url":"https://x"}},
		{"key":"g","label":"G"}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	require.Len(t, fields, 7)

	assert.True(t, fields[0].Value.IsAbsent())
	assert.Equal(t, KindString, fields[1].Value.Kind())
	assert.Equal(t, KindNumber, fields[2].Value.Kind())
	assert.Equal(t, KindList, fields[3].Value.Kind())
	assert.Equal(t, KindBool, fields[4].Value.Kind())
	assert.Equal(t, KindObject, fields[5].Value.Kind())
	assert.True(t, fields[6].Value.IsAbsent())

	n, ok := fields[2].Value.Int()
	require.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestValueInt(t *testing.T) {
	n, ok := Number("3").Int()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = Number("5.0").Int()
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = Number("2.5").Int()
	assert.False(t, ok)

	n, ok = String(" 4 ").Int()
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = String("four").Int()
	assert.False(t, ok)

	_, ok = Strings("1").Int()
	assert.False(t, ok)
}

func TestResolveChoice(t *testing.T) {
	options := []Option{
		{ID: String("opt-1"), Text: "Yes"},
		{ID: String("opt-2"), Text: "No"},
		{ID: Number("3"), Text: "Maybe"},
	}

	t.Run("single select", func(t *testing.T) {
		got, ok := ResolveChoice(Field{Type: TypeMultipleChoice, Value: String("opt-2"), Options: options})
		require.True(t, ok)
		assert.Equal(t, "No", got)
	})

	t.Run("multi select with unresolved id", func(t *testing.T) {
		got, ok := ResolveChoice(Field{Type: TypeMultiSelect, Value: Strings("opt-1", "opt-9"), Options: options})
		require.True(t, ok)
		assert.Equal(t, "Yes, opt-9", got)
	})

	t.Run("numeric option id", func(t *testing.T) {
		got, ok := ResolveChoice(Field{Type: TypeDropdown, Value: List(Number("3")), Options: options})
		require.True(t, ok)
		assert.Equal(t, "Maybe", got)
	})

	t.Run("no options falls back to normalization", func(t *testing.T) {
		got, ok := ResolveChoice(Field{Type: TypeDropdown, Value: String(" raw ")})
		require.True(t, ok)
		assert.Equal(t, "raw", got)
	})

	t.Run("absent value", func(t *testing.T) {
		_, ok := ResolveChoice(Field{Type: TypeDropdown, Options: options})
		assert.False(t, ok)
	})
}

func TestExtractProfile(t *testing.T) {
	fields := []Field{
		{Key: "question_EQROMA", Label: "What's your first name?", Type: "INPUT_TEXT", Value: String(" Ann ")},
		{Key: "question_4x6bzd", Label: "First time?", Type: TypeMultipleChoice, Value: Strings("o1"),
			Options: []Option{{ID: String("o1"), Text: "Yes"}, {ID: String("o2"), Text: "No"}}},
		{Key: "question_2NW67g", Label: "creative expression", Type: TypeLinearScale, Value: Number("4")},
		{Key: "question_xaqWvE", Label: "feel nervous", Type: TypeLinearScale, Value: Number("2.5")},
		{Key: "question_NWjZdN", Label: "emotional intuition", Type: "INPUT_TEXT", Value: String("5")},
		{Key: "question_qArlv8", Label: "Active & Outdoors", Type: TypeMultiSelect, Value: Strings("h", "c"),
			Options: []Option{{ID: String("h"), Text: "Hiking"}, {ID: String("c"), Text: "Cycling"}}},
		{Key: "question_72AkM6", Label: "How old are you?", Type: TypeLinearScale, Value: Number("31")},
		{Key: "other", Label: "MBTI", Type: "INPUT_TEXT", Value: String("INTJ")},
	}

	got := ExtractProfile(fields)
	require.NotNil(t, got.FirstName)
	assert.Equal(t, "Ann", *got.FirstName)
	require.NotNil(t, got.FirstTime)
	assert.Equal(t, "Yes", *got.FirstTime)
	require.NotNil(t, got.CreativeExpressionScore)
	assert.Equal(t, 4, *got.CreativeExpressionScore)
	assert.Nil(t, got.SocialAnxietyScore, "non-integer scale answers are discarded")
	assert.Nil(t, got.EmotionalIntuitionScore, "scores only come from linear scale fields")
	require.NotNil(t, got.InterestsActiveOutdoors)
	assert.Equal(t, "Hiking, Cycling", *got.InterestsActiveOutdoors)
	require.NotNil(t, got.Age)
	assert.Equal(t, "31", *got.Age)
	require.NotNil(t, got.MBTI, "label candidates are a fallback")
	assert.Equal(t, "INTJ", *got.MBTI)
	assert.Nil(t, got.Country)
	assert.Nil(t, got.OptionalNote)
}
