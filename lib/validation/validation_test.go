package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePagination(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		size    int
		wantErr bool
	}{
		{"valid", 1, 20, false},
		{"max size", 3, MaxPageSize, false},
		{"zero page", 0, 20, true},
		{"zero size", 1, 0, true},
		{"too large", 1, MaxPageSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePagination(tt.page, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type signup struct {
	Username string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(signup{Username: "ana", Email: "ana@example.com"}))

	err := Struct(signup{Username: "ana", Email: "not-an-email"})
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, "email", fe.Rule)
	assert.Equal(t, "not-an-email", fe.Value)
}

func TestEnvelopes(t *testing.T) {
	assert.NoError(t, ValidatePageEnvelope([]byte(`{"result":{"content":[],"totalPages":0,"last":true}}`)))
	assert.Error(t, ValidatePageEnvelope([]byte(`{"result":{"items":[]}}`)))
	assert.Error(t, ValidatePageEnvelope([]byte(`{"result":{"content":[1,2]}}`)))
	assert.NoError(t, ValidateItemEnvelope([]byte(`{"result":{"id":1}}`)))
	assert.Error(t, ValidateItemEnvelope([]byte(`[]`)))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("genre already exists"), http.StatusConflict, map[string]any{"field": "name", "value": "Drama"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"genre already exists","field":"name","value":"Drama"}`, rec.Body.String())
}
