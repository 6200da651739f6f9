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

func TestDegreeHandlerGetStateInvalidUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDegreeHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/users/abc/degree", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.GetState(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDegreeHandlerAddCourseInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDegreeHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/users/5/degree/requirements/2/courses", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "5"}, {Key: "reqId", Value: "2"}}

	h.AddCourse(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDegreeHandlerSetForceCompletedInvalidRequirementID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewDegreeHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/users/5/degree/requirements/x", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "5"}, {Key: "reqId", Value: "x"}}

	h.SetForceCompleted(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerAddInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewScheduleHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/users/5/schedule", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Add(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandlerGetInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewGroupHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/course-groups/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
