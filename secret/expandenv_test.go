package secret

import (
	"errors"
	"slices"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("INFERGATE_HOST", "redis")
	t.Setenv("INFERGATE_PORT", "6379")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "braced", in: "addr: ${INFERGATE_HOST}:${INFERGATE_PORT}", want: "addr: redis:6379"},
		{name: "bare", in: "$INFERGATE_HOST/x", want: "redis/x"},
		{name: "escaped dollar", in: "price: $$5", want: "price: $5"},
		{name: "escape before var", in: "$$${INFERGATE_HOST}", want: "$redis"},
		{name: "lone dollar", in: "a $ b", want: "a $ b"},
		{name: "no vars", in: "listen: :8000", want: "listen: :8000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if err != nil {
				t.Fatalf("ExpandEnvStrict() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandEnvStrict_Missing(t *testing.T) {
	t.Setenv("INFERGATE_HOST", "redis")

	_, err := ExpandEnvStrict("${INFERGATE_ZZ} ${INFERGATE_HOST} $INFERGATE_AA ${INFERGATE_ZZ}")
	var missing *MissingEnvError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingEnvError", err)
	}
	if want := []string{"INFERGATE_AA", "INFERGATE_ZZ"}; !slices.Equal(missing.Names, want) {
		t.Errorf("Names = %v, want %v", missing.Names, want)
	}
}
