package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("customer: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("invoice: %w", ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("order: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("amount: %w", ErrValidation), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestRespondErrorIncludesFields(t *testing.T) {
	rr := httptest.NewRecorder()
	verr := NewValidationError("amount", "must be greater than zero")
	RespondError(rr, fmt.Errorf("create expense: %w", verr))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "must be greater than zero", body.Fields["amount"])
	assert.True(t, errors.Is(verr, ErrValidation))
}

func TestFromValidator(t *testing.T) {
	type input struct {
		Email string `json:"email" validate:"required,email"`
		Kind  string `json:"kind,omitempty" validate:"oneof=A B"`
		Plain string `validate:"required"`
	}
	err := FromValidator(NewValidator().Struct(input{Email: "nope", Kind: "C"}))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "must be one of [A B]", verr.Fields["kind"])
	assert.Equal(t, "is required", verr.Fields["Plain"])
	assert.Nil(t, FromValidator(nil))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(req, &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "ok", target.Name)
}
