package validation

import (
	"errors"
	"testing"
)

func TestValidateBlockAcceptsPersistedShape(t *testing.T) {
	err := ValidateBlockJSON([]byte(`{"service":"youtube","source":"https://youtu.be/a","embed":"https://www.youtube.com/embed/a","width":580,"height":320,"caption":"hi","extra":true}`))
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateBlockRejectsWrongTypes(t *testing.T) {
	err := ValidateBlockJSON([]byte(`{"service":42,"width":-1}`))
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	if len(Issues(err)) < 2 {
		t.Fatalf("expected an issue per field, got %v", Issues(err))
	}
}

func TestValidateBlockRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`"text"`, `[1,2]`, `12`} {
		if err := ValidateBlockJSON([]byte(raw)); err == nil {
			t.Fatalf("expected %s to be rejected", raw)
		}
	}
}

func TestValidateBlockRejectsMalformedJSON(t *testing.T) {
	err := ValidateBlockJSON([]byte(`{"service":`))
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
}
