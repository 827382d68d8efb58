package testtool

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/lucrare-diploma/university-chat-sub000/pkg/config"
	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
)

// StartPprof serves pprof on :6060 outside production.
func StartPprof() {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server on :6060")
		if err := http.ListenAndServe(":6060", nil); err != nil {
			logger.Log.Infof("pprof server failed: ", err)
		}
	}()
}
