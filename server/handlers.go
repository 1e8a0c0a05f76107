package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weibaohui/fcpipe/filter"
	"go.uber.org/zap"
)

// FilterInfo 过滤器列表项
type FilterInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Pipelines []string `json:"pipelines"`
	Priority  int      `json:"priority"`
	Tools     []string `json:"tools"`
}

// FilterRequest inlet/outlet 请求
type FilterRequest struct {
	Body *filter.Body   `json:"body"`
	User map[string]any `json:"user,omitempty"`
}

type handler struct {
	chain  *filter.Chain
	logger *zap.Logger
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) listFilters(c *gin.Context) {
	filters := h.chain.Filters()
	data := make([]FilterInfo, 0, len(filters))
	for _, f := range filters {
		v := f.Valves()
		data = append(data, FilterInfo{
			ID:        f.ID(),
			Name:      f.Name(),
			Type:      filter.TypeFilter,
			Pipelines: v.Pipelines,
			Priority:  v.Priority,
			Tools:     f.Registry().Names(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *handler) valves(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.Valves())
}

func (h *handler) filterInlet(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.Inlet(c.Request.Context(), req.Body, req.User))
}

func (h *handler) filterOutlet(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.Outlet(c.Request.Context(), req.Body, req.User))
}

// chainInlet 执行适用于 body.model 的所有过滤器
func (h *handler) chainInlet(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.chain.Inlet(c.Request.Context(), req.Body, req.User))
}

func (h *handler) chainOutlet(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.chain.Outlet(c.Request.Context(), req.Body, req.User))
}

func (h *handler) lookup(c *gin.Context) (*filter.Filter, bool) {
	id := c.Param("id")
	f, ok := h.chain.Get(id)
	if !ok {
		writeError(c, http.StatusNotFound, "filter not found: "+id, "not_found")
		return nil, false
	}
	return f, true
}

func (h *handler) bind(c *gin.Context) (*FilterRequest, bool) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestLogger(c, h.logger).Debug("请求体解析失败", zap.Error(err))
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), "invalid_request_error")
		return nil, false
	}
	if req.Body == nil {
		writeError(c, http.StatusBadRequest, "missing body", "invalid_request_error")
		return nil, false
	}
	return &req, true
}

func writeError(c *gin.Context, status int, message, typ string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    typ,
		},
	})
}
