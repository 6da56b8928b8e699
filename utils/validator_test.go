package utils

import (
	"strings"
	"testing"
)

func TestValidateStructMessages(t *testing.T) {
	type input struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}

	err := ValidateStruct(input{Email: "not-an-email", Password: "short"})
	if err == nil {
		t.Fatal("invalid struct passed validation")
	}
	msg := err.Error()
	if !strings.Contains(msg, "email must be a valid email") {
		t.Fatalf("message %q missing email error", msg)
	}
	if !strings.Contains(msg, "password must be at least 8 characters") {
		t.Fatalf("message %q missing password error", msg)
	}

	if err := ValidateStruct(input{Email: "ok@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("valid struct failed validation: %v", err)
	}
}

func TestValidateStructKeepsLiteralPercent(t *testing.T) {
	type input struct {
		Discount string `validate:"required,oneof=flat 100%"`
	}

	err := ValidateStruct(input{Discount: "half"})
	if err == nil {
		t.Fatal("invalid value passed validation")
	}
	msg := err.Error()
	if !strings.Contains(msg, "100%") {
		t.Fatalf("message %q lost the literal percent", msg)
	}
	if strings.Contains(msg, "%!") {
		t.Fatalf("message %q was run through a format verb", msg)
	}
}
