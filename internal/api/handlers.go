package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nihanthkethireddy/invite/internal/guests"
)

// flexNumber accepts a JSON number or a numeric string. Anything else
// decodes to 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		*n = flexNumber(f)
	}
	return nil
}

// flexString accepts a JSON string or number; null and other values
// decode to "".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = flexString(v)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = flexString(data)
	}
	return nil
}

type profileRequest struct {
	Name  flexString `json:"name"`
	Phone flexString `json:"phone"`
}

type rsvpRequest struct {
	Name     flexString `json:"name"`
	Phone    flexString `json:"phone"`
	RSVP     flexString `json:"rsvp"`
	PlusOnes flexNumber `json:"plusOnes"`
	Scope    flexString `json:"scope"`
}

// bindBody decodes a JSON body into dst, treating an empty body as {}. It
// writes a 400 and returns false on malformed input.
func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// fail maps service errors onto status codes.
func (s *Server) fail(c *gin.Context, err error) {
	if guests.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) getGuest(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	g, err := s.guests.LookupByPhone(c.Request.Context(), phone)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guest": g})
}

func (s *Server) saveProfile(c *gin.Context) {
	var req profileRequest
	if !bindBody(c, &req) {
		return
	}
	g, err := s.guests.UpsertProfile(c.Request.Context(), string(req.Name), string(req.Phone))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guest": g})
}

func (s *Server) saveRSVP(c *gin.Context) {
	var req rsvpRequest
	if !bindBody(c, &req) {
		return
	}
	if _, ok := guests.ParseRSVP(string(req.RSVP)); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid RSVP choice"})
		return
	}
	g, err := s.guests.SaveRSVP(c.Request.Context(), guests.RSVPInput{
		Name:     string(req.Name),
		Phone:    string(req.Phone),
		RSVP:     string(req.RSVP),
		PlusOnes: float64(req.PlusOnes),
		Scope:    string(req.Scope),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guest": g})
}

func (s *Server) listGuests(c *gin.Context) {
	opts := guests.ListOptions{
		Scope:  c.Query("scope"),
		RSVP:   c.Query("rsvp"),
		Search: c.Query("q"),
		Sort:   c.Query("sort"),
		Asc:    strings.EqualFold(c.Query("dir"), "asc"),
	}
	if opts.Scope == "any" {
		opts.Scope = ""
	}
	list, err := s.guests.List(c.Request.Context(), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guests": list})
}

func (s *Server) adminSave(c *gin.Context) {
	var req rsvpRequest
	if !bindBody(c, &req) {
		return
	}
	g, err := s.guests.AdminUpsert(c.Request.Context(), guests.AdminInput{
		Name:     string(req.Name),
		Phone:    string(req.Phone),
		RSVP:     string(req.RSVP),
		PlusOnes: float64(req.PlusOnes),
		Scope:    string(req.Scope),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guest": g})
}

func (s *Server) deleteGuest(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	deleted, err := s.guests.DeleteByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Guest not found"})
		return
	}
	s.log.Info().Str("id", id).Msg("Guest removed by admin")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.guests.Summary(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum})
}
