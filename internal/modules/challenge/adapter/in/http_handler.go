package in

import (
	"net/http"

	"github.com/gin-gonic/gin"

	challengein "habitkit/internal/modules/challenge/port/in"
	"habitkit/internal/platform/httpx"
)

type HTTPHandler struct {
	usecase challengein.Usecase
}

func NewHTTPHandler(usecase challengein.Usecase) HTTPHandler {
	return HTTPHandler{usecase: usecase}
}

func (h HTTPHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/challenges", h.list)
	rg.GET("/challenges/:id", h.get)
}

type challengeResponse struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	Points              int      `json:"points"`
	DurationDays        int      `json:"duration_days,omitempty"`
	ReflectionQuestions []string `json:"reflection_questions"`
}

func (h HTTPHandler) list(c *gin.Context) {
	items, err := h.usecase.List(c.Request.Context())
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	resp := make([]challengeResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, challengeResponse(item))
	}
	c.JSON(http.StatusOK, resp)
}

func (h HTTPHandler) get(c *gin.Context) {
	item, err := h.usecase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, challengeResponse(item))
}
