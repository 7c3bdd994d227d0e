// Package views renders pages as HTML or JSON depending on the Accept header.
package views

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/csrf"
	"github.com/circobit/fyyur-event-management/pkg/fyyur/session"
)

// Summary is a listing entry with its upcoming show count
type Summary struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	NumUpcomingShows int    `json:"num_upcoming_shows"`
}

// SearchResult is the payload of the search endpoints
type SearchResult struct {
	Count int       `json:"count"`
	Data  []Summary `json:"data"`
}

// WantsJSON reports whether the client prefers JSON over HTML
func WantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(binding.MIMEHTML, binding.MIMEJSON) == binding.MIMEJSON
}

// Render writes the named template, or data as JSON for JSON clients.
// HTML pages additionally receive the pending flashes and the CSRF token.
func Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if WantsJSON(c) {
		c.JSON(status, data)
		return
	}

	data["flashes"] = session.Flashes(c)
	data["csrf_token"] = csrf.Token(c)
	c.HTML(status, name, data)
}

// Redirect sends the browser to location after a form post
func Redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

// Created answers a successful create: JSON clients get 201 with payload,
// browsers are redirected to location
func Created(c *gin.Context, location string, payload gin.H) {
	if WantsJSON(c) {
		c.JSON(http.StatusCreated, payload)
		return
	}
	Redirect(c, location)
}

// Invalid re-renders a form with its validation errors
func Invalid(c *gin.Context, name string, data gin.H, errs map[string]string) {
	if WantsJSON(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": errs})
		return
	}
	data["errors"] = errs
	Render(c, http.StatusBadRequest, name, data)
}

// BadRequest renders the 400 page
func BadRequest(c *gin.Context) {
	Render(c, http.StatusBadRequest, "errors/400.html", gin.H{"error": "Bad request"})
}

// NotFound renders the 404 page
func NotFound(c *gin.Context) {
	Render(c, http.StatusNotFound, "errors/404.html", gin.H{"error": "Not found"})
}

// ServerError renders the 500 page
func ServerError(c *gin.Context) {
	Render(c, http.StatusInternalServerError, "errors/500.html", gin.H{"error": "Internal server error"})
}
