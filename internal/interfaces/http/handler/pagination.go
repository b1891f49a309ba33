package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/domain/shared"
)

// Pagination headers
const (
	TotalCountHeader = "X-Total-Count"
	LinkHeader       = "Link"
)

// writePage sends the page items as a bare JSON array with the total count
// and navigation links in headers.
func writePage[T any](c *gin.Context, page shared.Page[T]) {
	c.Header(TotalCountHeader, strconv.FormatInt(page.Total, 10))
	c.Header(LinkHeader, pageLinks(c.Request.URL, page.Page, page.Size, page.TotalPages()))

	items := page.Items
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

// pageLinks builds an RFC 5988 Link header value. Pages are zero-based;
// prev and next are omitted at the edges.
func pageLinks(u *url.URL, page, size, totalPages int) string {
	last := max(totalPages-1, 0)

	link := func(p int, rel string) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(p))
		q.Set("size", strconv.Itoa(size))
		return "<" + u.Path + "?" + q.Encode() + `>; rel="` + rel + `"`
	}

	links := make([]string, 0, 4)
	if page < last {
		links = append(links, link(page+1, "next"))
	}
	if page > 0 {
		links = append(links, link(min(page-1, last), "prev"))
	}
	links = append(links, link(last, "last"), link(0, "first"))
	return strings.Join(links, ",")
}
