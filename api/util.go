package api

import (
	"errors"
	"net/http"

	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/EdoardoFiore/madmin-strongswan/service"
	"github.com/gin-gonic/gin"
)

// Msg is the envelope of every API response.
type Msg struct {
	Success bool        `json:"success"`
	Msg     string      `json:"msg"`
	Obj     interface{} `json:"obj,omitempty"`
}

func jsonMsg(c *gin.Context, msg string, err error) {
	jsonMsgObj(c, msg, nil, err)
}

func jsonObj(c *gin.Context, obj interface{}, err error) {
	jsonMsgObj(c, "", obj, err)
}

func jsonMsgObj(c *gin.Context, msg string, obj interface{}, err error) {
	m := Msg{
		Success: err == nil,
		Msg:     msg,
		Obj:     obj,
	}
	code := http.StatusOK
	if err != nil {
		if msg != "" {
			m.Msg = msg + ": " + err.Error()
		} else {
			m.Msg = err.Error()
		}
		logger.Warning(m.Msg)
		// A missing control-plane binary means the host cannot serve the
		// request at all, not that the request was wrong.
		if errors.Is(err, service.ErrSwanctlNotFound) {
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, m)
}
