package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{shared.NotFound("Role not found"), http.StatusNotFound, "Role not found"},
		{shared.Duplicate("That email already exists"), http.StatusConflict, "That email already exists"},
		{shared.RelationConflict("Role is still held by users"), http.StatusConflict, "Role is still held by users"},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{shared.ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrUnauthorized, http.StatusUnauthorized, ""},
		{ErrTooManyRequests, http.StatusTooManyRequests, ""},
		{fmt.Errorf("store/postgres: dial tcp 10.0.0.1:5432: refused"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)

		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.detail, body.Detail)
		assert.NotContains(t, rr.Body.String(), "5432")
	}
}

func TestValidationProblemListsFields(t *testing.T) {
	type payload struct {
		Username string `json:"username" validate:"required,min=3"`
	}
	err := validator.New().Struct(payload{Username: "ab"})
	require.Error(t, err)

	rr := httptest.NewRecorder()
	ValidationProblem(rr, err)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "must be at least 3 long", body.Errors["Username"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","admin":true}`))
	err := DecodeJSON(req, &target)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestIDListAcceptsSingleID(t *testing.T) {
	var body struct {
		Roles IDList `json:"roles" validate:"required,unique,dive,gt=0"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"roles":7}`), &body))
	assert.Equal(t, IDList{7}, body.Roles)

	require.NoError(t, json.Unmarshal([]byte(`{"roles":[]}`), &body))
	assert.NotNil(t, body.Roles)
	assert.NoError(t, NewValidator().Struct(body))

	require.NoError(t, json.Unmarshal([]byte(`{"roles":[2,2]}`), &body))
	err := NewValidator().Struct(body)
	require.Error(t, err)

	rr := httptest.NewRecorder()
	ValidationProblem(rr, err)
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "must not contain duplicates", problem.Errors["roles"])
}
