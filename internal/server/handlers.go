package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"amari/internal/dispatch"
	"amari/internal/engineerr"
)

type resultResponse struct {
	Result any `json:"result"`
}

type errorResponse struct {
	Error *dispatch.ErrorBody `json:"error"`
}

// batchRequest is the body of POST /v1/batch/:name.
type batchRequest struct {
	Items   []json.RawMessage `json:"items"`
	Workers int               `json:"workers,omitempty"`
}

// saveRequest is the body of PUT /v1/computations/:name.
type saveRequest struct {
	Type     string            `json:"type"`
	Result   json.RawMessage   `json:"result"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// statusOf maps the error taxonomy onto HTTP statuses.
func statusOf(err error) int {
	switch engineerr.Kind(err) {
	case engineerr.KindShape, engineerr.KindSyntax, engineerr.KindUnknownFamily:
		return http.StatusBadRequest
	case engineerr.KindDomain, engineerr.KindNegativeCycle:
		return http.StatusUnprocessableEntity
	case engineerr.KindNotFound, engineerr.KindUnknownOperation:
		return http.StatusNotFound
	case engineerr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: &dispatch.ErrorBody{Kind: engineerr.KindShape, Message: err.Error()},
		})
		return
	}
	c.JSON(statusOf(err), errorResponse{Error: dispatch.ErrorOf(err)})
}

func (s *Server) respond(c *gin.Context, name string, raw json.RawMessage) {
	res, err := s.dispatcher.Call(c.Request.Context(), name, raw)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: res})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) listOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": dispatch.Operations()})
}

func (s *Server) callOperation(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, c.Param("name"), raw)
}

func (s *Server) batch(c *gin.Context) {
	var req batchRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			s.fail(c, err)
			return
		}
		s.fail(c, engineerr.Shapef("batch body: %v", err))
		return
	}
	res, err := s.dispatcher.Batch(c.Request.Context(), c.Param("name"), req.Items, req.Workers)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: res})
}

func (s *Server) listComputations(c *gin.Context) {
	s.respond(c, dispatch.NameListComputations, nil)
}

func (s *Server) loadComputation(c *gin.Context) {
	s.respond(c, dispatch.NameLoadComputation, nameParams(c.Param("name")))
}

func (s *Server) deleteComputation(c *gin.Context) {
	s.respond(c, dispatch.NameDeleteComputation, nameParams(c.Param("name")))
}

func (s *Server) saveComputation(c *gin.Context) {
	var req saveRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			s.fail(c, err)
			return
		}
		s.fail(c, engineerr.Shapef("save body: %v", err))
		return
	}
	op := &dispatch.SaveComputation{
		Name:     c.Param("name"),
		Type:     req.Type,
		Result:   req.Result,
		Metadata: req.Metadata,
	}
	res, err := s.dispatcher.Execute(c.Request.Context(), op)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultResponse{Result: res})
}

func nameParams(name string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"name": name})
	return data
}
