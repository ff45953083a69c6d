package http

import (
	"testing"
)

type probe struct {
	Account string `validate:"omitempty,account"`
	Symbol  string `validate:"omitempty,symbol"`
	Amount  string `validate:"omitempty,amount"`
}

func TestCustomValidator_Account(t *testing.T) {
	cv := NewValidator()

	for _, ok := range []string{"alice.near", "usdt.token.near", "a", "a-b_c.d"} {
		if err := cv.Validate(&probe{Account: ok}); err != nil {
			t.Errorf("account %q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"Alice.near", ".near", "near.", "a b", "-a"} {
		if err := cv.Validate(&probe{Account: bad}); err == nil {
			t.Errorf("account %q accepted", bad)
		}
	}
}

func TestCustomValidator_Symbol(t *testing.T) {
	cv := NewValidator()

	for _, ok := range []string{"USDT", "WNEAR", "DAI2"} {
		if err := cv.Validate(&probe{Symbol: ok}); err != nil {
			t.Errorf("symbol %q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"usdt", "US DT", "TOOLONGSYMBOL12345"} {
		if err := cv.Validate(&probe{Symbol: bad}); err == nil {
			t.Errorf("symbol %q accepted", bad)
		}
	}
}

func TestCustomValidator_Amount(t *testing.T) {
	cv := NewValidator()

	for _, ok := range []string{"1", "1000", "340282366920938463463374607431768211455"} {
		if err := cv.Validate(&probe{Amount: ok}); err != nil {
			t.Errorf("amount %q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"0", "-5", "1.5", "abc"} {
		if err := cv.Validate(&probe{Amount: bad}); err == nil {
			t.Errorf("amount %q accepted", bad)
		}
	}
}

func TestToFieldErrors(t *testing.T) {
	cv := NewValidator()
	err := cv.Validate(&struct {
		Sender string `validate:"required,account"`
	}{})
	if err == nil {
		t.Fatal("want validation error")
	}
	fields := ToFieldErrors(err)
	if len(fields) != 1 || fields[0].Field != "Sender" || fields[0].Message != "is required" {
		t.Fatalf("fields = %+v", fields)
	}
}
