package handler

import (
	"strconv"

	"marketplace-backend/internal/adapter/http/middleware"
	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// fail attaches err for the request logger and writes the error envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	response.Error(c, err)
}

// pathID parses a positive integer path parameter, writing a VAL_001 response on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperror.Validation("invalid "+name))
		return 0, false
	}
	return id, true
}

// optionalQueryID parses an optional positive integer query parameter.
func optionalQueryID(c *gin.Context, name string) (*int64, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperror.Validation("invalid "+name))
		return nil, false
	}
	return &id, true
}

// pageRequest reads page and page_size. Missing values select page 1 and the default size.
func pageRequest(c *gin.Context) (ports.PageRequest, bool) {
	req := ports.PageRequest{Page: 1}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &req.Page}, {"page_size", &req.PageSize}} {
		raw, present := c.GetQuery(p.name)
		if !present {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, apperror.Validation("invalid "+p.name))
			return ports.PageRequest{}, false
		}
		*p.dst = n
		if p.name == "page_size" {
			req.PageSizeSet = true
		}
	}
	return req, true
}

// actor returns the authenticated caller. Routes using it sit behind BearerAuth.
func actor(c *gin.Context) (*domain.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperror.ErrInvalidToken())
		return nil, false
	}
	return user, true
}

// pageResponse renders one page of results.
func pageResponse[T any, R any](page *ports.PageResult[T], render func([]T) []R) response.Page {
	return response.NewPage(render(page.Items), page.Total, page.Page.Number, page.Page.Size)
}
