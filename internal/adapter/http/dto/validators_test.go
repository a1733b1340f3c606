package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type safeIDProbe struct {
	Ref string `binding:"safe_id"`
}

func bindingValidator(t *testing.T) *validator.Validate {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return v
}

func TestValidateSafeID(t *testing.T) {
	v := bindingValidator(t)

	valid := []string{"DEP-001", "ref_123", "a.b.c", "ABC"}
	for _, s := range valid {
		assert.NoError(t, v.Struct(safeIDProbe{Ref: s}), s)
	}

	invalid := []string{"", "has space", "semi;colon", "quote'", "<script>"}
	for _, s := range invalid {
		assert.Error(t, v.Struct(safeIDProbe{Ref: s}), s)
	}
}

func TestSanitizeStruct(t *testing.T) {
	extra := "  <i>note</i> "
	req := struct {
		Name  string
		Extra *string
	}{
		Name:  "  <b>bold</b>  ",
		Extra: &extra,
	}

	SanitizeStruct(&req)

	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", req.Name)
	assert.Equal(t, "&lt;i&gt;note&lt;/i&gt;", *req.Extra)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := struct{ Name string }{Name: " x "}
	SanitizeStruct(req)
	assert.Equal(t, " x ", req.Name)
}
