package validation_test

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/pkg/validation"
)

func TestValidISBN(t *testing.T) {
	cases := map[string]bool{
		"9780441172719":     true,
		"978-0-441-17271-9": true,
		"0-306-40615-2":     true,
		"080442957X":        true,
		"080442957x":        true,
		"12345":             false,
		"97804411727190":    false,
		"X804429570":        false,
		"978044117271A":     false,
		"":                  false,
	}
	for in, want := range cases {
		assert.Equal(t, want, validation.ValidISBN(in), in)
	}
	assert.Equal(t, "0306406152", validation.NormalizeISBN("0 306-40615-2"))
}

type sample struct {
	Title    string `json:"title" validate:"required,notblank,max=5"`
	ISBN     string `json:"isbn" validate:"omitempty,isbn_loose"`
	Password string `json:"password" validate:"required,pwd"`
	Copies   int    `json:"copies" validate:"min=0,max=3"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	validation.Register(v)
	return v
}

func TestToDetails(t *testing.T) {
	v := newValidator()
	err := v.Struct(sample{Title: "   ", ISBN: "123", Password: "short", Copies: 9})
	require.Error(t, err)

	details := validation.ToDetails(err)
	assert.Equal(t, "must not be blank", details["title"])
	assert.Equal(t, "must be a 10 or 13 character ISBN", details["isbn"])
	assert.Contains(t, details, "password")
	assert.Equal(t, "must be at most 3", details["copies"])

	assert.NoError(t, v.Struct(sample{Title: "Dune", ISBN: "080442957X", Password: "longenough", Copies: 1}))
	assert.Nil(t, validation.ToDetails(nil))
}

func TestToDetailsDecodeErrors(t *testing.T) {
	var dst struct {
		Year int `json:"year"`
	}
	err := json.Unmarshal([]byte(`{"year":`), &dst)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, validation.ToDetails(err))

	err = json.Unmarshal([]byte(`{"year":"soon"}`), &dst)
	assert.Equal(t, "must be of type int", validation.ToDetails(err)["year"])

	assert.Equal(t, "invalid json", validation.ToDetails(io.EOF)["payload"])
}

func TestPasswordAliasMessage(t *testing.T) {
	err := newValidator().Struct(sample{Title: "Dune", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, "must be at least 8 characters long", validation.ToDetails(err)["password"])
}

func TestVarEmail(t *testing.T) {
	assert.NoError(t, validation.Var("ann@example.com", "email,max=255"))
	for _, bad := range []string{"Ann <ann@example.com>", "ann@", "ann example.com"} {
		assert.Error(t, validation.Var(bad, "email,max=255"), bad)
	}
}
