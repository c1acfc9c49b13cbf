package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimetableHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerSaveInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetables", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Save(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerRotationsRejectsBadWeeks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetables/v1/rotations?weeks=0", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "v1"}}

	handler.Rotations(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
