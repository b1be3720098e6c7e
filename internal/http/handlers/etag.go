package handlers

import (
	"encoding/hex"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/gin-gonic/gin"
)

// taskListETag changes whenever a task enters or leaves the list, moves
// within it, or is updated. Every write refreshes updatedAt, so id and
// updatedAt in response order are enough to identify the body.
func taskListETag(items []task.Task) string {
	h := fnv.New128a()

	for _, t := range items {
		h.Write([]byte(t.ID))
		h.Write([]byte{0})
		h.Write(strconv.AppendInt(nil, t.UpdatedAt.UnixNano(), 36))
		h.Write([]byte{0})
	}

	return `"tasks-` + strconv.Itoa(len(items)) + "-" + hex.EncodeToString(h.Sum(nil)) + `"`
}

func statsETag(s task.Stats) string {
	parts := []int{s.Total, s.Pending, s.InProgress, s.Done, s.Overdue}

	var b strings.Builder
	b.WriteString(`"stats`)
	for _, n := range parts {
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteByte('"')

	return b.String()
}

// respondCached writes payload with etag, or an empty 304 when the client
// already holds that version.
func respondCached(ctx *gin.Context, etag string, payload interface{}) {
	ctx.Header("ETag", etag)

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, payload)
}

// etagMatches uses weak comparison, as If-None-Match requires.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}

	return false
}
