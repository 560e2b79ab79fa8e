package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitForm struct {
	Score int `json:"score" validate:"min=0"`
	Total int `json:"total_questions" validate:"required,min=1"`
}

func TestStructUsesJSONNames(t *testing.T) {
	v := NewValidator()

	errs := v.Struct(&submitForm{Score: -1})
	require.Len(t, errs, 2)
	assert.Equal(t, "score", errs[0].Domain)
	assert.Equal(t, "total_questions", errs[1].Domain)
	assert.NotEmpty(t, errs[0].Reason)
}

func TestStructValid(t *testing.T) {
	assert.Nil(t, NewValidator().Struct(&submitForm{Score: 5, Total: 7}))
}

func TestEmpty(t *testing.T) {
	v := NewValidator()
	assert.Len(t, v.Empty("ts", ""), 1)
	assert.Nil(t, v.Empty("ts", "2020"))
}
