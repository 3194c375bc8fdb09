package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fieldErr map[string]string

func (f fieldErr) Error() string             { return "invalid input" }
func (f fieldErr) Fields() map[string]string { return f }

func TestHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "success", err: nil, status: http.StatusOK},
		{name: "field errors", err: fmt.Errorf("wrapped: %w", fieldErr{"pair": "is required"}), status: http.StatusBadRequest, code: ErrCodeValidationFailed},
		{name: "not found", err: gorm.ErrRecordNotFound, status: http.StatusNotFound, code: ErrCodeNotFound},
		{name: "duplicate", err: gorm.ErrDuplicatedKey, status: http.StatusConflict, code: ErrCodeDuplicateResource},
		{name: "internal", err: errors.New("disk on fire"), status: http.StatusInternalServerError, code: ErrCodeInternalError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Handle(c, gin.H{"ok": true}, tc.err)
			assert.Equal(t, tc.status, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if tc.err == nil {
				assert.True(t, resp.Success)
				assert.Nil(t, resp.Error)
				return
			}
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "disk on fire")
		})
	}
}

func TestValidationFailedDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Handle(c, nil, fieldErr{"entry": "must be a decimal number"})

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{"entry": "must be a decimal number"}, resp.Error.Details)
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, gin.H{"id": "1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"1"}}`, w.Body.String())
}
