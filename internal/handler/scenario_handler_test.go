package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestScenarioHandlerToggleInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScenarioHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/scenarios/toggle", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Toggle(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScenarioHandlerSelectDayInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScenarioHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/scenarios/day", bytes.NewReader([]byte(`{"day":"monday"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SelectDay(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/exports", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
