package response

import (
	"github.com/gin-gonic/gin"
)

type Body struct {
	Code int         `json:"code" xml:"code"`
	Msg  string      `json:"msg" xml:"msg"`
	Data interface{} `json:"data" xml:"data,omitempty"`
}

func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Code: 0, Msg: "ok", Data: data})
}

func Error(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, Body{Code: code, Msg: message})
}
