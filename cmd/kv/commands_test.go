package kv

import (
	"reflect"
	"testing"
)

func TestParseValue(t *testing.T) {
	testCases := []struct {
		in   string
		want any
	}{
		{in: "42", want: 42.0},
		{in: "true", want: true},
		{in: `"quoted"`, want: "quoted"},
		{in: "plain text", want: "plain text"},
		{in: `{"a":[1,2]}`, want: map[string]any{"a": []any{1.0, 2.0}}},
		{in: "null", want: nil},
	}

	for _, tc := range testCases {
		if got := parseValue(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseValue(%q): expected %#v, got %#v", tc.in, tc.want, got)
		}
	}
}
