package rbschema_test

import (
	"testing"

	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend/rbschema"
)

func TestDDL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		st   *rbschema.StructType
		want string
	}{
		{name: "nil", st: nil, want: ""},
		{name: "empty", st: rbschema.New(), want: ""},
		{
			name: "single nullable",
			st:   rbschema.New().Add("value", "STRING"),
			want: "value STRING",
		},
		{
			name: "mixed nullability preserves order",
			st:   rbschema.New().AddRequired("ts", "TIMESTAMP").Add("line", "STRING"),
			want: "ts TIMESTAMP NOT NULL, line STRING",
		},
		{
			name: "whitespace trimmed",
			st:   rbschema.New().Add(" count ", " BIGINT "),
			want: "count BIGINT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.DDL(); got != tt.want {
				t.Fatalf("DDL()=%q want=%q", got, tt.want)
			}
		})
	}
}
